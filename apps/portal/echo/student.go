package echoportal

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core/school"
	"github.com/trezcool/masomo-portal/services/schoolapi"
)

const recentMarksCount = 5

type studentScreens struct {
	api *schoolapi.Client
}

type (
	studentDashboardData struct {
		Classes     []school.StudentClass
		Attendance  school.AttendanceSummary
		Marks       school.MarksSummary
		RecentMarks []school.Mark
	}

	studentAttendanceData struct {
		Classes []school.ClassInfo
		ClassID string
		Records []school.AttendanceRecord
		Summary school.AttendanceSummary
	}

	studentResultsData struct {
		Subjects  []school.SubjectAverage // of all marks, for the filter
		SubjectID string
		Marks     []school.Mark
		Summary   school.MarksSummary
	}
)

func registerStudentRoutes(g *echo.Group, deps ServerDeps) {
	s := studentScreens{api: deps.API}

	g.GET("", s.dashboard)
	g.GET("/classes", s.classes)
	g.GET("/attendance", s.attendance)
	g.GET("/results", s.results)
}

// Handlers

func (s *studentScreens) dashboard(ctx echo.Context) error {
	snap, err := getSnapshot(ctx)
	if err != nil {
		return errors.Wrap(err, "getting session snapshot")
	}
	reqCtx := ctx.Request().Context()

	classes, err := s.api.MyStudentClasses(reqCtx, snap.Token)
	if err != nil {
		return errors.Wrap(err, "fetching student classes")
	}
	records, err := s.api.MyAttendance(reqCtx, snap.Token)
	if err != nil {
		return errors.Wrap(err, "fetching attendance")
	}
	marks, err := s.api.MyMarks(reqCtx, snap.Token)
	if err != nil {
		return errors.Wrap(err, "fetching marks")
	}

	data := studentDashboardData{
		Classes:     classes,
		Attendance:  school.SummarizeAttendance(records),
		Marks:       school.SummarizeMarks(marks),
		RecentMarks: school.RecentMarks(marks, recentMarksCount),
	}
	return ctx.Render(http.StatusOK, "student_dashboard", newPage(ctx, "Student Dashboard").withData(data))
}

func (s *studentScreens) classes(ctx echo.Context) error {
	snap, err := getSnapshot(ctx)
	if err != nil {
		return errors.Wrap(err, "getting session snapshot")
	}
	classes, err := s.api.MyStudentClasses(ctx.Request().Context(), snap.Token)
	if err != nil {
		return errors.Wrap(err, "fetching student classes")
	}
	return ctx.Render(http.StatusOK, "student_classes", newPage(ctx, "My Classes").withData(classes))
}

func (s *studentScreens) attendance(ctx echo.Context) error {
	snap, err := getSnapshot(ctx)
	if err != nil {
		return errors.Wrap(err, "getting session snapshot")
	}
	reqCtx := ctx.Request().Context()

	enrollments, err := s.api.MyStudentClasses(reqCtx, snap.Token)
	if err != nil {
		return errors.Wrap(err, "fetching student classes")
	}
	records, err := s.api.MyAttendance(reqCtx, snap.Token)
	if err != nil {
		return errors.Wrap(err, "fetching attendance")
	}

	data := studentAttendanceData{ClassID: ctx.QueryParam("classId")}
	for _, e := range enrollments {
		data.Classes = append(data.Classes, e.Class())
	}
	data.Records = school.FilterAttendance(records, data.ClassID)
	data.Summary = school.SummarizeAttendance(data.Records)
	return ctx.Render(http.StatusOK, "student_attendance", newPage(ctx, "My Attendance").withData(data))
}

func (s *studentScreens) results(ctx echo.Context) error {
	snap, err := getSnapshot(ctx)
	if err != nil {
		return errors.Wrap(err, "getting session snapshot")
	}
	marks, err := s.api.MyMarks(ctx.Request().Context(), snap.Token)
	if err != nil {
		return errors.Wrap(err, "fetching marks")
	}

	data := studentResultsData{
		Subjects:  school.SummarizeMarks(marks).Subjects,
		SubjectID: ctx.QueryParam("subjectId"),
	}
	data.Marks = school.FilterMarks(marks, data.SubjectID)
	data.Summary = school.SummarizeMarks(data.Marks)
	return ctx.Render(http.StatusOK, "student_results", newPage(ctx, "My Results").withData(data))
}
