package echoportal

import (
	"net/http"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/school"
	"github.com/trezcool/masomo-portal/core/user"
	"github.com/trezcool/masomo-portal/services/schoolapi"
)

type adminScreens struct {
	api        *schoolapi.Client
	validate   *validator.Validate
	translator ut.Translator
}

type usersData struct {
	Kind  string // Students | Teachers
	Users []user.User
}

func registerAdminRoutes(g *echo.Group, deps ServerDeps) {
	s := adminScreens{
		api:        deps.API,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	g.GET("", s.dashboard)
	g.GET("/students", s.students)
	g.GET("/teachers", s.teachers)
	g.POST("/users/:id/toggle-status", s.toggleUserStatus)
	g.GET("/classes", s.classes)
	g.POST("/classes", s.createClass)
	g.POST("/classes/:id", s.updateClass)
	g.POST("/classes/:id/delete", s.deleteClass)
	g.GET("/subjects", s.subjects)
	g.POST("/subjects", s.createSubject)
	g.POST("/subjects/:id", s.updateSubject)
	g.POST("/subjects/:id/delete", s.deleteSubject)
}

// Handlers

func (s *adminScreens) dashboard(ctx echo.Context) error {
	snap, err := getSnapshot(ctx)
	if err != nil {
		return errors.Wrap(err, "getting session snapshot")
	}
	stats, err := s.api.DashboardStats(ctx.Request().Context(), snap.Token)
	if err != nil {
		return errors.Wrap(err, "fetching dashboard stats")
	}
	return ctx.Render(http.StatusOK, "admin_dashboard", newPage(ctx, "Admin Dashboard").withData(stats))
}

func (s *adminScreens) students(ctx echo.Context) error {
	snap, err := getSnapshot(ctx)
	if err != nil {
		return errors.Wrap(err, "getting session snapshot")
	}
	users, err := s.api.Students(ctx.Request().Context(), snap.Token)
	if err != nil {
		return errors.Wrap(err, "fetching students")
	}
	return ctx.Render(http.StatusOK, "admin_users", newPage(ctx, "Students").withData(usersData{Kind: "Students", Users: users}))
}

func (s *adminScreens) teachers(ctx echo.Context) error {
	snap, err := getSnapshot(ctx)
	if err != nil {
		return errors.Wrap(err, "getting session snapshot")
	}
	users, err := s.api.Teachers(ctx.Request().Context(), snap.Token)
	if err != nil {
		return errors.Wrap(err, "fetching teachers")
	}
	return ctx.Render(http.StatusOK, "admin_users", newPage(ctx, "Teachers").withData(usersData{Kind: "Teachers", Users: users}))
}

func (s *adminScreens) toggleUserStatus(ctx echo.Context) error {
	snap, err := getSnapshot(ctx)
	if err != nil {
		return errors.Wrap(err, "getting session snapshot")
	}
	if _, err = s.api.ToggleUserStatus(ctx.Request().Context(), snap.Token, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "toggling user status")
	}

	next, ok := core.LocalPath(ctx.FormValue("next"))
	if !ok {
		next = "/admin/students"
	}
	return ctx.Redirect(http.StatusSeeOther, next)
}

func (s *adminScreens) classes(ctx echo.Context) error {
	return s.renderClasses(ctx, http.StatusOK, newPage(ctx, "Classes").withForm(new(school.NewClass), nil))
}

func (s *adminScreens) renderClasses(ctx echo.Context, code int, p *page) error {
	snap, err := getSnapshot(ctx)
	if err != nil {
		return errors.Wrap(err, "getting session snapshot")
	}
	classes, err := s.api.Classes(ctx.Request().Context(), snap.Token)
	if err != nil {
		return errors.Wrap(err, "fetching classes")
	}
	return ctx.Render(code, "admin_classes", p.withData(classes))
}

func (s *adminScreens) createClass(ctx echo.Context) error {
	snap, err := getSnapshot(ctx)
	if err != nil {
		return errors.Wrap(err, "getting session snapshot")
	}

	var data school.NewClass
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	data.Clean()
	if err = s.validate.Struct(data); err != nil {
		return s.invalidForm(ctx, err, &data, s.renderClasses, "Classes")
	}

	if _, err = s.api.CreateClass(ctx.Request().Context(), snap.Token, data); err != nil {
		var apiErr *schoolapi.Error
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest {
			p := newPage(ctx, "Classes").withForm(&data, nil).withError(schoolapi.Message(err, "Failed to save class"))
			return s.renderClasses(ctx, http.StatusBadRequest, p)
		}
		return errors.Wrap(err, "creating class")
	}
	return ctx.Redirect(http.StatusSeeOther, "/admin/classes")
}

// updateClass saves a row of the classes table. Errors are shown above the table,
// since the form fields belong to the create form.
func (s *adminScreens) updateClass(ctx echo.Context) error {
	snap, err := getSnapshot(ctx)
	if err != nil {
		return errors.Wrap(err, "getting session snapshot")
	}

	var data school.NewClass
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	data.Clean()
	if err = s.validate.Struct(data); err != nil {
		return s.invalidRow(ctx, err, new(school.NewClass), s.renderClasses, "Classes")
	}

	if _, err = s.api.UpdateClass(ctx.Request().Context(), snap.Token, ctx.Param("id"), data); err != nil {
		return s.rowFailed(ctx, err, new(school.NewClass), s.renderClasses, "Classes", "Failed to update class")
	}
	return ctx.Redirect(http.StatusSeeOther, "/admin/classes")
}

func (s *adminScreens) deleteClass(ctx echo.Context) error {
	snap, err := getSnapshot(ctx)
	if err != nil {
		return errors.Wrap(err, "getting session snapshot")
	}
	if err = s.api.DeleteClass(ctx.Request().Context(), snap.Token, ctx.Param("id")); err != nil {
		return s.rowFailed(ctx, err, new(school.NewClass), s.renderClasses, "Classes", "Failed to delete class")
	}
	return ctx.Redirect(http.StatusSeeOther, "/admin/classes")
}

func (s *adminScreens) subjects(ctx echo.Context) error {
	return s.renderSubjects(ctx, http.StatusOK, newPage(ctx, "Subjects").withForm(new(school.NewSubject), nil))
}

func (s *adminScreens) renderSubjects(ctx echo.Context, code int, p *page) error {
	snap, err := getSnapshot(ctx)
	if err != nil {
		return errors.Wrap(err, "getting session snapshot")
	}
	subjects, err := s.api.Subjects(ctx.Request().Context(), snap.Token)
	if err != nil {
		return errors.Wrap(err, "fetching subjects")
	}
	return ctx.Render(code, "admin_subjects", p.withData(subjects))
}

func (s *adminScreens) createSubject(ctx echo.Context) error {
	snap, err := getSnapshot(ctx)
	if err != nil {
		return errors.Wrap(err, "getting session snapshot")
	}

	var data school.NewSubject
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	data.Clean()
	if err = s.validate.Struct(data); err != nil {
		return s.invalidForm(ctx, err, &data, s.renderSubjects, "Subjects")
	}

	if _, err = s.api.CreateSubject(ctx.Request().Context(), snap.Token, data); err != nil {
		var apiErr *schoolapi.Error
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest {
			p := newPage(ctx, "Subjects").withForm(&data, nil).withError(schoolapi.Message(err, "Failed to save subject"))
			return s.renderSubjects(ctx, http.StatusBadRequest, p)
		}
		return errors.Wrap(err, "creating subject")
	}
	return ctx.Redirect(http.StatusSeeOther, "/admin/subjects")
}

func (s *adminScreens) updateSubject(ctx echo.Context) error {
	snap, err := getSnapshot(ctx)
	if err != nil {
		return errors.Wrap(err, "getting session snapshot")
	}

	var data school.NewSubject
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	data.Clean()
	if err = s.validate.Struct(data); err != nil {
		return s.invalidRow(ctx, err, new(school.NewSubject), s.renderSubjects, "Subjects")
	}

	if _, err = s.api.UpdateSubject(ctx.Request().Context(), snap.Token, ctx.Param("id"), data); err != nil {
		return s.rowFailed(ctx, err, new(school.NewSubject), s.renderSubjects, "Subjects", "Failed to update subject")
	}
	return ctx.Redirect(http.StatusSeeOther, "/admin/subjects")
}

func (s *adminScreens) deleteSubject(ctx echo.Context) error {
	snap, err := getSnapshot(ctx)
	if err != nil {
		return errors.Wrap(err, "getting session snapshot")
	}
	if err = s.api.DeleteSubject(ctx.Request().Context(), snap.Token, ctx.Param("id")); err != nil {
		return s.rowFailed(ctx, err, new(school.NewSubject), s.renderSubjects, "Subjects", "Failed to delete subject")
	}
	return ctx.Redirect(http.StatusSeeOther, "/admin/subjects")
}

type renderFunc func(ctx echo.Context, code int, p *page) error

// invalidForm renders the screen again with the form's field errors.
func (s *adminScreens) invalidForm(ctx echo.Context, err error, form interface{}, render renderFunc, title string) error {
	vErrs, ok := errors.Cause(err).(validator.ValidationErrors)
	if !ok {
		return err
	}
	return render(ctx, http.StatusBadRequest, newPage(ctx, title).withForm(form, core.TranslateErrors(vErrs, s.translator)))
}

// invalidRow renders the screen again with the row's field errors joined into the page error.
func (s *adminScreens) invalidRow(ctx echo.Context, err error, blank interface{}, render renderFunc, title string) error {
	vErrs, ok := errors.Cause(err).(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(vErrs))
	for _, vErr := range vErrs {
		msgs = append(msgs, vErr.Translate(s.translator))
	}
	p := newPage(ctx, title).withForm(blank, nil).withError(strings.Join(msgs, "; "))
	return render(ctx, http.StatusBadRequest, p)
}

// rowFailed shows an API 400 or 404 message above the table; other errors go to the error handler.
func (s *adminScreens) rowFailed(ctx echo.Context, err error, blank interface{}, render renderFunc, title, fallback string) error {
	var apiErr *schoolapi.Error
	if !errors.As(err, &apiErr) || (apiErr.Status != http.StatusBadRequest && apiErr.Status != http.StatusNotFound) {
		return errors.Wrap(err, strings.ToLower(fallback))
	}
	p := newPage(ctx, title).withForm(blank, nil).withError(schoolapi.Message(err, fallback))
	return render(ctx, apiErr.Status, p)
}
