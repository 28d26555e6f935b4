package schoolapi

import (
	"context"
	"net/http"
	"net/url"

	"github.com/trezcool/masomo-portal/core/school"
	"github.com/trezcool/masomo-portal/core/user"
)

// Admin

func (c *Client) DashboardStats(ctx context.Context, token string) (school.DashboardStats, error) {
	var stats school.DashboardStats
	err := c.get(ctx, token, "/dashboard/stats", &stats)
	return stats, err
}

func (c *Client) Students(ctx context.Context, token string) ([]user.User, error) {
	var users []user.User
	err := c.get(ctx, token, "/users/students", &users)
	return users, err
}

func (c *Client) Teachers(ctx context.Context, token string) ([]user.User, error) {
	var users []user.User
	err := c.get(ctx, token, "/users/teachers", &users)
	return users, err
}

// ToggleUserStatus activates or deactivates a user and returns the updated record.
func (c *Client) ToggleUserStatus(ctx context.Context, token, userID string) (user.User, error) {
	var usr user.User
	err := c.do(ctx, call{method: http.MethodPatch, route: "/users/{id}/toggle-status", args: []string{userID}, token: token}, &usr)
	return usr, err
}

func (c *Client) Classes(ctx context.Context, token string) ([]school.Class, error) {
	var classes []school.Class
	err := c.get(ctx, token, "/classes", &classes)
	return classes, err
}

func (c *Client) CreateClass(ctx context.Context, token string, nc school.NewClass) (school.Class, error) {
	var class school.Class
	err := c.post(ctx, token, "/classes", nc, &class)
	return class, err
}

// UpdateClass replaces the editable fields of a class.
func (c *Client) UpdateClass(ctx context.Context, token, classID string, nc school.NewClass) (school.Class, error) {
	var class school.Class
	err := c.do(ctx, call{method: http.MethodPut, route: "/classes/{id}", args: []string{classID}, token: token, body: nc}, &class)
	return class, err
}

func (c *Client) DeleteClass(ctx context.Context, token, classID string) error {
	return c.do(ctx, call{method: http.MethodDelete, route: "/classes/{id}", args: []string{classID}, token: token}, nil)
}

func (c *Client) Subjects(ctx context.Context, token string) ([]school.Subject, error) {
	var subjects []school.Subject
	err := c.get(ctx, token, "/subjects", &subjects)
	return subjects, err
}

func (c *Client) CreateSubject(ctx context.Context, token string, ns school.NewSubject) (school.Subject, error) {
	var subject school.Subject
	err := c.post(ctx, token, "/subjects", ns, &subject)
	return subject, err
}

// UpdateSubject replaces the editable fields of a subject.
func (c *Client) UpdateSubject(ctx context.Context, token, subjectID string, ns school.NewSubject) (school.Subject, error) {
	var subject school.Subject
	err := c.do(ctx, call{method: http.MethodPut, route: "/subjects/{id}", args: []string{subjectID}, token: token, body: ns}, &subject)
	return subject, err
}

func (c *Client) DeleteSubject(ctx context.Context, token, subjectID string) error {
	return c.do(ctx, call{method: http.MethodDelete, route: "/subjects/{id}", args: []string{subjectID}, token: token}, nil)
}

// Teacher

// MyTeacherClasses returns the class assignments of the signed-in teacher.
func (c *Client) MyTeacherClasses(ctx context.Context, token string) ([]school.TeacherClass, error) {
	var classes []school.TeacherClass
	err := c.get(ctx, token, "/teacher-classes/my-classes", &classes)
	return classes, err
}

// ClassStudents returns the enrollments of a class.
func (c *Client) ClassStudents(ctx context.Context, token, classID string) ([]school.StudentClass, error) {
	var students []school.StudentClass
	err := c.get(ctx, token, "/student-classes/class/{id}", &students, classID)
	return students, err
}

// ClassAttendance returns the attendance of a class on a day (yyyy-mm-dd).
func (c *Client) ClassAttendance(ctx context.Context, token, classID, date string) ([]school.AttendanceRecord, error) {
	var records []school.AttendanceRecord
	err := c.do(ctx, call{
		method: http.MethodGet,
		route:  "/attendance/class/{id}",
		args:   []string{classID},
		query:  url.Values{"date": {date}},
		token:  token,
	}, &records)
	return records, err
}

// RecordAttendance saves attendance in bulk.
func (c *Client) RecordAttendance(ctx context.Context, token string, records []school.NewAttendance) ([]school.AttendanceRecord, error) {
	var saved []school.AttendanceRecord
	err := c.post(ctx, token, "/attendance/bulk", records, &saved)
	return saved, err
}

func (c *Client) ClassSubjectMarks(ctx context.Context, token, classID, subjectID string) ([]school.Mark, error) {
	var marks []school.Mark
	err := c.get(ctx, token, "/marks/class/{classId}/subject/{subjectId}", &marks, classID, subjectID)
	return marks, err
}

// RecordMarks saves marks in bulk.
func (c *Client) RecordMarks(ctx context.Context, token string, marks []school.NewMark) ([]school.Mark, error) {
	var saved []school.Mark
	err := c.post(ctx, token, "/marks/bulk", marks, &saved)
	return saved, err
}

// Student

// MyStudentClasses returns the enrollments of the signed-in student.
func (c *Client) MyStudentClasses(ctx context.Context, token string) ([]school.StudentClass, error) {
	var classes []school.StudentClass
	err := c.get(ctx, token, "/student-classes/my-classes", &classes)
	return classes, err
}

func (c *Client) MyAttendance(ctx context.Context, token string) ([]school.AttendanceRecord, error) {
	var records []school.AttendanceRecord
	err := c.get(ctx, token, "/attendance/my-attendance", &records)
	return records, err
}

func (c *Client) MyMarks(ctx context.Context, token string) ([]school.Mark, error) {
	var marks []school.Mark
	err := c.get(ctx, token, "/marks/my-marks", &marks)
	return marks, err
}
