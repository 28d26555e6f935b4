package echoportal

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/school"
	"github.com/trezcool/masomo-portal/services/schoolapi"
)

const (
	statusFieldPrefix = "status_"
	scoreFieldPrefix  = "score_"
	dateLayout        = "2006-01-02"
)

type teacherScreens struct {
	api        *schoolapi.Client
	validate   *validator.Validate
	translator ut.Translator
}

type (
	teacherDashboardData struct {
		Assignments  []school.TeacherClass
		ClassCount   int
		StudentCount int64
		Subjects     []string
	}

	attendanceRow struct {
		StudentID string
		Name      string
		Email     string
		Status    school.AttendanceStatus
	}

	attendanceData struct {
		Classes  []school.ClassInfo
		ClassID  string
		Date     string
		Rows     []attendanceRow
		Statuses []school.AttendanceStatus
		Summary  school.AttendanceSummary
	}

	markRow struct {
		StudentID string
		Name      string
		Score     string
	}

	marksData struct {
		Assignments []school.TeacherClass
		ClassID     string
		SubjectID   string
		Marks       []school.Mark
		Summary     school.MarksSummary
		Rows        []markRow
		ExamTypes   []string
		ExamType    string
		MaxScore    string
		ExamDate    string
	}
)

func registerTeacherRoutes(g *echo.Group, deps ServerDeps) {
	s := teacherScreens{
		api:        deps.API,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	g.GET("", s.dashboard)
	g.GET("/classes", s.classes)
	g.GET("/attendance", s.attendance)
	g.POST("/attendance", s.recordAttendance)
	g.GET("/marks", s.marks)
	g.POST("/marks", s.recordMarks)
}

func today() string {
	return time.Now().Format(dateLayout)
}

// uniqueClasses returns the classes of the assignments, in order, without duplicates.
func uniqueClasses(assignments []school.TeacherClass) []school.ClassInfo {
	seen := make(map[string]bool, len(assignments))
	classes := make([]school.ClassInfo, 0, len(assignments))
	for _, a := range assignments {
		class := a.Class()
		if seen[class.ID] {
			continue
		}
		seen[class.ID] = true
		classes = append(classes, class)
	}
	return classes
}

// Handlers

func (s *teacherScreens) dashboard(ctx echo.Context) error {
	snap, err := getSnapshot(ctx)
	if err != nil {
		return errors.Wrap(err, "getting session snapshot")
	}
	assignments, err := s.api.MyTeacherClasses(ctx.Request().Context(), snap.Token)
	if err != nil {
		return errors.Wrap(err, "fetching teacher classes")
	}

	data := teacherDashboardData{Assignments: assignments}
	counted := make(map[string]bool)
	subjects := make(map[string]bool)
	for _, a := range assignments {
		if class := a.Class(); !counted[class.ID] {
			counted[class.ID] = true
			data.ClassCount++
			data.StudentCount += a.StudentCount
		}
		if name := a.SubjectLabel(); name != "" && !subjects[name] {
			subjects[name] = true
			data.Subjects = append(data.Subjects, name)
		}
	}
	return ctx.Render(http.StatusOK, "teacher_dashboard", newPage(ctx, "Teacher Dashboard").withData(data))
}

func (s *teacherScreens) classes(ctx echo.Context) error {
	snap, err := getSnapshot(ctx)
	if err != nil {
		return errors.Wrap(err, "getting session snapshot")
	}
	assignments, err := s.api.MyTeacherClasses(ctx.Request().Context(), snap.Token)
	if err != nil {
		return errors.Wrap(err, "fetching teacher classes")
	}
	return ctx.Render(http.StatusOK, "teacher_classes", newPage(ctx, "My Classes").withData(assignments))
}

func (s *teacherScreens) attendance(ctx echo.Context) error {
	p := newPage(ctx, "Attendance")
	if ctx.QueryParam("saved") != "" {
		p.withNotice("Attendance saved.")
	}
	date := ctx.QueryParam("date")
	if date == "" {
		date = today()
	}
	return s.renderAttendance(ctx, http.StatusOK, p, ctx.QueryParam("classId"), date, nil)
}

// renderAttendance shows the roll call of classID on date; picked overrides the recorded statuses.
func (s *teacherScreens) renderAttendance(
	ctx echo.Context,
	code int,
	p *page,
	classID, date string,
	picked map[string]school.AttendanceStatus,
) error {
	snap, err := getSnapshot(ctx)
	if err != nil {
		return errors.Wrap(err, "getting session snapshot")
	}
	reqCtx := ctx.Request().Context()

	assignments, err := s.api.MyTeacherClasses(reqCtx, snap.Token)
	if err != nil {
		return errors.Wrap(err, "fetching teacher classes")
	}
	data := attendanceData{
		Classes:  uniqueClasses(assignments),
		ClassID:  classID,
		Date:     date,
		Statuses: school.AttendanceStatuses,
	}

	if classID != "" {
		students, err := s.api.ClassStudents(reqCtx, snap.Token, classID)
		if err != nil {
			return errors.Wrap(err, "fetching class students")
		}
		records, err := s.api.ClassAttendance(reqCtx, snap.Token, classID, date)
		if err != nil {
			return errors.Wrap(err, "fetching class attendance")
		}
		data.Summary = school.SummarizeAttendance(records)

		recorded := make(map[string]school.AttendanceStatus, len(records))
		for _, r := range records {
			recorded[r.StudentID] = r.Status
		}
		for _, sc := range students {
			row := attendanceRow{StudentID: sc.StudentID, Name: sc.StudentName, Email: sc.StudentEmail, Status: recorded[sc.StudentID]}
			if sc.Student != nil {
				row.Name, row.Email = sc.Student.FullName, sc.Student.Email
			}
			if status, ok := picked[sc.StudentID]; ok {
				row.Status = status
			}
			data.Rows = append(data.Rows, row)
		}
	}
	return ctx.Render(code, "teacher_attendance", p.withData(data))
}

func (s *teacherScreens) recordAttendance(ctx echo.Context) error {
	snap, err := getSnapshot(ctx)
	if err != nil {
		return errors.Wrap(err, "getting session snapshot")
	}
	params, err := ctx.FormParams()
	if err != nil {
		return errors.Wrap(err, "parsing attendance form")
	}
	classID, date := params.Get("classId"), params.Get("date")

	picked := make(map[string]school.AttendanceStatus)
	var records []school.NewAttendance
	fldErrs := make(map[string]string)
	for studentID, status := range prefixedValues(params, statusFieldPrefix) {
		picked[studentID] = school.AttendanceStatus(status)
		rec := school.NewAttendance{StudentID: studentID, ClassID: classID, Date: date, Status: school.AttendanceStatus(status)}
		if err = s.validate.Struct(rec); err != nil {
			vErrs, ok := err.(validator.ValidationErrors)
			if !ok {
				return errors.Wrap(err, "validating attendance")
			}
			for fld, msg := range core.TranslateErrors(vErrs, s.translator) {
				fldErrs[studentID] = fld + ": " + msg
			}
			continue
		}
		records = append(records, rec)
	}

	p := newPage(ctx, "Attendance")
	switch {
	case len(fldErrs) > 0:
		p.Errors = fldErrs
		return s.renderAttendance(ctx, http.StatusBadRequest, p.withError("Please correct the errors below."), classID, date, picked)
	case len(records) == 0:
		return s.renderAttendance(ctx, http.StatusBadRequest, p.withError("Please mark at least one student."), classID, date, picked)
	}

	if _, err = s.api.RecordAttendance(ctx.Request().Context(), snap.Token, records); err != nil {
		if msg, ok := badRequestMessage(err, "Failed to save attendance"); ok {
			return s.renderAttendance(ctx, http.StatusBadRequest, p.withError(msg), classID, date, picked)
		}
		return errors.Wrap(err, "recording attendance")
	}
	q := url.Values{"classId": {classID}, "date": {date}, "saved": {"1"}}
	return ctx.Redirect(http.StatusSeeOther, "/teacher/attendance?"+q.Encode())
}

func (s *teacherScreens) marks(ctx echo.Context) error {
	p := newPage(ctx, "Marks")
	if saved := ctx.QueryParam("saved"); saved != "" {
		p.withNotice(saved + " student marks have been recorded.")
	}
	form := marksData{
		ClassID:   ctx.QueryParam("classId"),
		SubjectID: ctx.QueryParam("subjectId"),
		ExamType:  school.ExamTypes[0],
		MaxScore:  "100",
		ExamDate:  today(),
	}
	return s.renderMarks(ctx, http.StatusOK, p, form, nil)
}

// renderMarks shows the marks of a class in a subject and the form to grade its students.
func (s *teacherScreens) renderMarks(ctx echo.Context, code int, p *page, data marksData, scores map[string]string) error {
	snap, err := getSnapshot(ctx)
	if err != nil {
		return errors.Wrap(err, "getting session snapshot")
	}
	reqCtx := ctx.Request().Context()

	data.Assignments, err = s.api.MyTeacherClasses(reqCtx, snap.Token)
	if err != nil {
		return errors.Wrap(err, "fetching teacher classes")
	}
	data.ExamTypes = school.ExamTypes

	if data.ClassID != "" && data.SubjectID != "" {
		data.Marks, err = s.api.ClassSubjectMarks(reqCtx, snap.Token, data.ClassID, data.SubjectID)
		if err != nil {
			return errors.Wrap(err, "fetching class marks")
		}
		data.Summary = school.SummarizeMarks(data.Marks)

		students, err := s.api.ClassStudents(reqCtx, snap.Token, data.ClassID)
		if err != nil {
			return errors.Wrap(err, "fetching class students")
		}
		for _, sc := range students {
			row := markRow{StudentID: sc.StudentID, Name: sc.StudentName, Score: scores[sc.StudentID]}
			if sc.Student != nil {
				row.Name = sc.Student.FullName
			}
			data.Rows = append(data.Rows, row)
		}
	}
	return ctx.Render(code, "teacher_marks", p.withData(data))
}

func (s *teacherScreens) recordMarks(ctx echo.Context) error {
	snap, err := getSnapshot(ctx)
	if err != nil {
		return errors.Wrap(err, "getting session snapshot")
	}
	params, err := ctx.FormParams()
	if err != nil {
		return errors.Wrap(err, "parsing marks form")
	}
	data := marksData{
		ClassID:   params.Get("classId"),
		SubjectID: params.Get("subjectId"),
		ExamType:  params.Get("examType"),
		MaxScore:  core.CleanString(params.Get("maxScore")),
		ExamDate:  params.Get("examDate"),
	}
	scores := prefixedValues(params, scoreFieldPrefix)

	p := newPage(ctx, "Marks")
	maxScore, err := strconv.ParseFloat(data.MaxScore, 64)
	if err != nil {
		p.Errors["maxScore"] = "enter a number"
		return s.renderMarks(ctx, http.StatusBadRequest, p.withError("Please correct the errors below."), data, scores)
	}

	var marks []school.NewMark
	for studentID, raw := range scores {
		score, err := strconv.ParseFloat(core.CleanString(raw), 64)
		if err != nil {
			p.Errors[studentID] = "enter a number"
			continue
		}
		mark := school.NewMark{
			StudentID: studentID,
			ClassID:   data.ClassID,
			SubjectID: data.SubjectID,
			ExamType:  data.ExamType,
			Score:     score,
			MaxScore:  maxScore,
			ExamDate:  data.ExamDate,
		}
		if err = s.validate.Struct(mark); err != nil {
			vErrs, ok := err.(validator.ValidationErrors)
			if !ok {
				return errors.Wrap(err, "validating mark")
			}
			for fld, msg := range core.TranslateErrors(vErrs, s.translator) {
				p.Errors[studentID] = fmt.Sprintf("%s: %s", fld, msg)
			}
			continue
		}
		marks = append(marks, mark)
	}

	switch {
	case len(p.Errors) > 0:
		return s.renderMarks(ctx, http.StatusBadRequest, p.withError("Please correct the errors below."), data, scores)
	case len(marks) == 0:
		return s.renderMarks(ctx, http.StatusBadRequest, p.withError("Please enter at least one score."), data, scores)
	}

	if _, err = s.api.RecordMarks(ctx.Request().Context(), snap.Token, marks); err != nil {
		if msg, ok := badRequestMessage(err, "Failed to save marks"); ok {
			return s.renderMarks(ctx, http.StatusBadRequest, p.withError(msg), data, scores)
		}
		return errors.Wrap(err, "recording marks")
	}
	q := url.Values{"classId": {data.ClassID}, "subjectId": {data.SubjectID}, "saved": {strconv.Itoa(len(marks))}}
	return ctx.Redirect(http.StatusSeeOther, "/teacher/marks?"+q.Encode())
}

// prefixedValues collects the non-empty form values whose key starts with prefix, keyed by the rest of the key.
func prefixedValues(params url.Values, prefix string) map[string]string {
	values := make(map[string]string)
	for key, vals := range params {
		if !strings.HasPrefix(key, prefix) || len(vals) == 0 {
			continue
		}
		if v := core.CleanString(vals[0]); v != "" {
			values[strings.TrimPrefix(key, prefix)] = v
		}
	}
	return values
}

// badRequestMessage returns the API's message when it rejected the request as invalid.
func badRequestMessage(err error, fallback string) (string, bool) {
	var apiErr *schoolapi.Error
	if errors.As(err, &apiErr) && (apiErr.Status == http.StatusBadRequest || apiErr.Status == http.StatusConflict) {
		return schoolapi.Message(err, fallback), true
	}
	return "", false
}
