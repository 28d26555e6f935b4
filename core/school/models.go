package school

import (
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-portal/core"
)

// AttendanceStatus is the status of a student on a given day.
type AttendanceStatus string

// Attendance statuses
const (
	StatusPresent AttendanceStatus = "PRESENT"
	StatusAbsent  AttendanceStatus = "ABSENT"
	StatusLate    AttendanceStatus = "LATE"
	StatusExcused AttendanceStatus = "EXCUSED"
)

var AttendanceStatuses = []AttendanceStatus{StatusPresent, StatusAbsent, StatusLate, StatusExcused}

// ExamTypes offered by the marks form.
var ExamTypes = []string{"Quiz", "Assignment", "Midterm", "Final", "Project"}

type (
	DashboardStats struct {
		TotalStudents int64 `json:"totalStudents"`
		TotalTeachers int64 `json:"totalTeachers"`
		TotalClasses  int64 `json:"totalClasses"`
		TotalSubjects int64 `json:"totalSubjects"`
	}

	ClassInfo struct {
		ID           string      `json:"id"`
		Name         string      `json:"name"`
		GradeLevel   null.String `json:"gradeLevel"`
		Description  null.String `json:"description"`
		AcademicYear null.String `json:"academicYear"`
	}

	SubjectInfo struct {
		ID   string      `json:"id"`
		Name string      `json:"name"`
		Code null.String `json:"code"`
	}

	PersonInfo struct {
		ID       string `json:"id"`
		FullName string `json:"fullName"`
		Email    string `json:"email"`
	}

	Class struct {
		ID           string      `json:"id"`
		Name         string      `json:"name"`
		Description  null.String `json:"description"`
		GradeLevel   null.String `json:"gradeLevel"`
		AcademicYear null.String `json:"academicYear"`
		StudentCount int64       `json:"studentCount"`
		CreatedAt    core.Time   `json:"createdAt"`
		UpdatedAt    core.Time   `json:"updatedAt"`
	}

	Subject struct {
		ID          string      `json:"id"`
		Name        string      `json:"name"`
		Code        null.String `json:"code"`
		Description null.String `json:"description"`
		CreatedAt   core.Time   `json:"createdAt"`
	}

	TeacherClass struct {
		ID           string       `json:"id"`
		TeacherID    string       `json:"teacherId"`
		TeacherName  string       `json:"teacherName"`
		ClassID      string       `json:"classId"`
		ClassName    string       `json:"className"`
		SubjectID    null.String  `json:"subjectId"`
		SubjectName  null.String  `json:"subjectName"`
		StudentCount int64        `json:"studentCount"`
		SchoolClass  *ClassInfo   `json:"schoolClass"`
		Subject      *SubjectInfo `json:"subject"`
	}

	StudentClass struct {
		ID           string      `json:"id"`
		StudentID    string      `json:"studentId"`
		StudentName  string      `json:"studentName"`
		StudentEmail string      `json:"studentEmail"`
		ClassID      string      `json:"classId"`
		ClassName    string      `json:"className"`
		GradeLevel   null.String `json:"gradeLevel"`
		EnrolledAt   core.Time   `json:"enrolledAt"`
		Student      *PersonInfo `json:"student"`
		SchoolClass  *ClassInfo  `json:"schoolClass"`
	}

	AttendanceRecord struct {
		ID          string           `json:"id"`
		StudentID   string           `json:"studentId"`
		StudentName string           `json:"studentName"`
		ClassID     string           `json:"classId"`
		ClassName   string           `json:"className"`
		Date        string           `json:"date"` // yyyy-mm-dd
		Status      AttendanceStatus `json:"status"`
		Notes       null.String      `json:"notes"`
		SchoolClass *ClassInfo       `json:"schoolClass"`
	}

	Mark struct {
		ID          string       `json:"id"`
		StudentID   string       `json:"studentId"`
		StudentName string       `json:"studentName"`
		ClassID     string       `json:"classId"`
		ClassName   string       `json:"className"`
		SubjectID   string       `json:"subjectId"`
		SubjectName string       `json:"subjectName"`
		ExamType    string       `json:"examType"`
		Score       float64      `json:"score"`
		MaxScore    float64      `json:"maxScore"`
		ExamDate    string       `json:"examDate"` // yyyy-mm-dd
		Notes       null.String  `json:"notes"`
		Subject     *SubjectInfo `json:"subject"`
		SchoolClass *ClassInfo   `json:"schoolClass"`
	}
)

// ClassLabel returns the display name of the record's class.
func (a AttendanceRecord) ClassLabel() string {
	if a.SchoolClass != nil && a.SchoolClass.Name != "" {
		return a.SchoolClass.Name
	}
	if a.ClassName != "" {
		return a.ClassName
	}
	return "Unknown"
}

func (a AttendanceRecord) ClassKey() string {
	if a.SchoolClass != nil && a.SchoolClass.ID != "" {
		return a.SchoolClass.ID
	}
	return a.ClassID
}

// SubjectLabel returns the display name of the mark's subject.
func (m Mark) SubjectLabel() string {
	if m.Subject != nil && m.Subject.Name != "" {
		return m.Subject.Name
	}
	if m.SubjectName != "" {
		return m.SubjectName
	}
	return "Unknown"
}

func (m Mark) SubjectKey() string {
	if m.Subject != nil && m.Subject.ID != "" {
		return m.Subject.ID
	}
	if m.SubjectID != "" {
		return m.SubjectID
	}
	return m.SubjectLabel()
}

func (m Mark) ClassLabel() string {
	if m.SchoolClass != nil && m.SchoolClass.Name != "" {
		return m.SchoolClass.Name
	}
	if m.ClassName != "" {
		return m.ClassName
	}
	return "Unknown"
}

func (m Mark) Percentage() int { return Percentage(m.Score, m.MaxScore) }

func (m Mark) Grade() string { return GradeLetter(m.Percentage()) }

func (sc StudentClass) Class() ClassInfo {
	if sc.SchoolClass != nil {
		return *sc.SchoolClass
	}
	return ClassInfo{ID: sc.ClassID, Name: sc.ClassName, GradeLevel: sc.GradeLevel}
}

func (tc TeacherClass) Class() ClassInfo {
	if tc.SchoolClass != nil {
		return *tc.SchoolClass
	}
	return ClassInfo{ID: tc.ClassID, Name: tc.ClassName}
}

func (tc TeacherClass) SubjectLabel() string {
	if tc.Subject != nil && tc.Subject.Name != "" {
		return tc.Subject.Name
	}
	return tc.SubjectName.String
}

// Forms

type (
	NewClass struct {
		Name         string `json:"name" form:"name" validate:"required,max=100"`
		Description  string `json:"description,omitempty" form:"description"`
		GradeLevel   string `json:"gradeLevel,omitempty" form:"gradeLevel" validate:"max=50"`
		AcademicYear string `json:"academicYear,omitempty" form:"academicYear" validate:"max=20"`
	}

	NewSubject struct {
		Name        string `json:"name" form:"name" validate:"required,max=100"`
		Code        string `json:"code,omitempty" form:"code" validate:"max=20"`
		Description string `json:"description,omitempty" form:"description"`
	}

	NewAttendance struct {
		StudentID string           `json:"studentId" validate:"required"`
		ClassID   string           `json:"classId" validate:"required"`
		Date      string           `json:"date" validate:"required,datetime=2006-01-02"`
		Status    AttendanceStatus `json:"status" validate:"required,oneof=PRESENT ABSENT LATE EXCUSED"`
		Notes     string           `json:"notes,omitempty"`
	}

	NewMark struct {
		StudentID string  `json:"studentId" validate:"required"`
		ClassID   string  `json:"classId" validate:"required"`
		SubjectID string  `json:"subjectId" validate:"required"`
		ExamType  string  `json:"examType" validate:"required"`
		Score     float64 `json:"score" validate:"gte=0,ltefield=MaxScore"`
		MaxScore  float64 `json:"maxScore" validate:"gt=0"`
		ExamDate  string  `json:"examDate" validate:"required,datetime=2006-01-02"`
		Notes     string  `json:"notes,omitempty"`
	}
)

func (nc *NewClass) Clean() {
	nc.Name = core.CleanString(nc.Name)
	nc.Description = core.CleanString(nc.Description)
	nc.GradeLevel = core.CleanString(nc.GradeLevel)
	nc.AcademicYear = core.CleanString(nc.AcademicYear)
}

func (ns *NewSubject) Clean() {
	ns.Name = core.CleanString(ns.Name)
	ns.Code = core.CleanString(ns.Code)
	ns.Description = core.CleanString(ns.Description)
}
