package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-portal/core/guard"
	"github.com/trezcool/masomo-portal/core/school"
	"github.com/trezcool/masomo-portal/core/session"
	"github.com/trezcool/masomo-portal/core/user"
)

func TestPortal_Initializing(t *testing.T) {
	h := newHarness(t)

	for _, path := range []string{"/", "/auth", "/admin", "/teacher/marks", "/student/results"} {
		t.Run(path, func(t *testing.T) {
			rec := h.request(http.MethodGet, path, nil)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "1", rec.Header().Get("Refresh"))
			assert.Contains(t, rec.Body.String(), "Loading your session")
		})
	}
}

func TestPortal_Guard(t *testing.T) {
	t.Run("anonymous", func(t *testing.T) {
		h := newHarness(t)
		h.restore(t, nil)

		runHTTPTests(t, h, []httpTest{
			{name: "home", path: "/", wantCode: http.StatusOK, wantBody: []string{"Sign in"}},
			{name: "login screen", path: "/auth", wantCode: http.StatusOK, wantBody: []string{`action="/auth/login"`, `name="_csrf"`}},
			{name: "signup screen", path: "/auth?tab=signup", wantCode: http.StatusOK, wantBody: []string{`action="/auth/signup"`}},
			{name: "admin", path: "/admin", wantCode: http.StatusSeeOther, wantLocation: guard.LoginURL("/admin")},
			{
				name: "with query", path: "/teacher/attendance?classId=c1", wantCode: http.StatusSeeOther,
				wantLocation: guard.LoginURL("/teacher/attendance?classId=c1"),
			},
			{name: "student", path: "/student/results", wantCode: http.StatusSeeOther, wantLocation: guard.LoginURL("/student/results")},
		})
	})

	t.Run("teacher", func(t *testing.T) {
		h := newHarness(t)
		h.signedInAs(t, user.RoleTeacher)

		runHTTPTests(t, h, []httpTest{
			{name: "home", path: "/", wantCode: http.StatusSeeOther, wantLocation: "/teacher"},
			{name: "login screen", path: "/auth?from=/teacher/marks", wantCode: http.StatusSeeOther, wantLocation: "/teacher/marks"},
			{name: "admin screen", path: "/admin/classes", wantCode: http.StatusSeeOther, wantLocation: "/teacher"},
			{name: "student screen", path: "/student", wantCode: http.StatusSeeOther, wantLocation: "/teacher"},
			{name: "own screen", path: "/teacher", wantCode: http.StatusOK, wantBody: []string{"Teacher Dashboard", "Mathematics"}},
		})
	})
}

func TestPortal_Login(t *testing.T) {
	login := func(email, pw, from string) url.Values {
		return url.Values{"email": {email}, "password": {pw}, "from": {from}}
	}

	t.Run("success", func(t *testing.T) {
		h := newHarness(t)
		h.restore(t, nil)

		rec := h.request(http.MethodPost, "/auth/login", login("Teacher@Masomo.cd", password, "/teacher/marks"))
		checkResponse(t, httpTest{wantCode: http.StatusSeeOther, wantLocation: "/teacher/marks"}, rec)

		snap := h.store.Snapshot()
		assert.Equal(t, session.StatusAuthenticated, snap.Status)
		assert.Equal(t, user.RoleTeacher, snap.Role)

		creds, err := h.repo.Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, snap.Token, creds.Token)
	})

	t.Run("from another role's screen", func(t *testing.T) {
		h := newHarness(t)
		h.restore(t, nil)

		rec := h.request(http.MethodPost, "/auth/login", login("student@masomo.cd", password, "/admin"))
		checkResponse(t, httpTest{wantCode: http.StatusSeeOther, wantLocation: "/student"}, rec)
	})

	t.Run("rejected", func(t *testing.T) {
		h := newHarness(t)
		h.restore(t, nil)

		rec := h.request(http.MethodPost, "/auth/login", login("admin@masomo.cd", "wrong", ""))
		checkResponse(t, httpTest{wantCode: http.StatusBadRequest, wantBody: []string{"Invalid email or password", "admin@masomo.cd"}}, rec)
		assert.NotContains(t, rec.Body.String(), `value="wrong"`)
		assert.Equal(t, session.StatusAnonymous, h.store.Snapshot().Status)
		assert.Equal(t, 0, h.repo.Len())
	})

	t.Run("invalid input", func(t *testing.T) {
		h := newHarness(t)
		h.restore(t, nil)

		rec := h.request(http.MethodPost, "/auth/login", login("not-an-email", "", ""))
		checkResponse(t, httpTest{wantCode: http.StatusBadRequest, wantBody: []string{"field-error"}}, rec)
	})

	t.Run("invalid csrf token", func(t *testing.T) {
		h := newHarness(t)
		h.restore(t, nil)

		rec := h.submit(http.MethodPost, "/auth/login", login("admin@masomo.cd", password, ""), "abc", "xyz")
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, session.StatusAnonymous, h.store.Snapshot().Status)
	})
}

func TestPortal_Logout(t *testing.T) {
	h := newHarness(t)
	h.signedInAs(t, user.RoleAdmin)

	rec := h.request(http.MethodPost, "/auth/logout", url.Values{})
	checkResponse(t, httpTest{wantCode: http.StatusSeeOther, wantLocation: guard.LoginPath}, rec)
	assert.Equal(t, session.StatusAnonymous, h.store.Snapshot().Status)
	assert.Equal(t, 0, h.repo.Len())

	rec = h.request(http.MethodGet, "/admin", nil)
	checkResponse(t, httpTest{wantCode: http.StatusSeeOther, wantLocation: guard.LoginURL("/admin")}, rec)
}

func TestPortal_ExpiredToken(t *testing.T) {
	h := newHarness(t)
	token := h.signedInAs(t, user.RoleAdmin)
	h.api.revoke(token)

	rec := h.request(http.MethodGet, "/admin/classes", nil)
	checkResponse(t, httpTest{wantCode: http.StatusSeeOther, wantLocation: guard.LoginURL("/admin/classes")}, rec)
	assert.Equal(t, session.StatusAnonymous, h.store.Snapshot().Status)
	assert.Equal(t, 0, h.repo.Len())
}

func TestPortal_AdminScreens(t *testing.T) {
	h := newHarness(t)
	h.signedInAs(t, user.RoleAdmin)

	runHTTPTests(t, h, []httpTest{
		{name: "dashboard", path: "/admin", wantCode: http.StatusOK, wantBody: []string{"Total Students: <strong>42</strong>", "Total Subjects: <strong>9</strong>"}},
		{name: "classes", path: "/admin/classes", wantCode: http.StatusOK, wantBody: []string{"Form 1", `action="/admin/classes"`}},
		{
			name: "create class without name", method: http.MethodPost, path: "/admin/classes",
			form: url.Values{"name": {"  "}}, wantCode: http.StatusBadRequest, wantBody: []string{"field-error"},
		},
		{name: "trailing slash", path: "/admin/", wantCode: http.StatusOK, wantBody: []string{"Admin Dashboard"}},
		{
			name: "classes have row forms", path: "/admin/classes", wantCode: http.StatusOK,
			wantBody: []string{`action="/admin/classes/c1"`, `action="/admin/classes/c1/delete"`, `name="_csrf"`},
		},
		{
			name: "edit class", method: http.MethodPost, path: "/admin/classes/c1",
			form: url.Values{"name": {" Form 2 "}, "gradeLevel": {"2"}}, wantCode: http.StatusSeeOther, wantLocation: "/admin/classes",
		},
		{
			name: "edit class without name", method: http.MethodPost, path: "/admin/classes/c1",
			form: url.Values{"name": {""}}, wantCode: http.StatusBadRequest, wantBody: []string{`class="error"`, "Form 1"},
		},
		{
			name: "delete class", method: http.MethodPost, path: "/admin/classes/c1/delete",
			form: url.Values{}, wantCode: http.StatusSeeOther, wantLocation: "/admin/classes",
		},
		{
			name: "delete missing class", method: http.MethodPost, path: "/admin/classes/c9/delete",
			form: url.Values{}, wantCode: http.StatusNotFound, wantBody: []string{"Class not found"},
		},
		{
			name: "subjects have row forms", path: "/admin/subjects", wantCode: http.StatusOK,
			wantBody: []string{"Mathematics", `action="/admin/subjects/s1"`, `action="/admin/subjects/s1/delete"`},
		},
		{
			name: "edit subject", method: http.MethodPost, path: "/admin/subjects/s1",
			form: url.Values{"name": {"Maths"}, "code": {"MTH"}}, wantCode: http.StatusSeeOther, wantLocation: "/admin/subjects",
		},
		{
			name: "edit subject with taken code", method: http.MethodPost, path: "/admin/subjects/s2",
			form: url.Values{"name": {"Physics"}, "code": {"MTH"}}, wantCode: http.StatusBadRequest, wantBody: []string{"Subject code already exists"},
		},
		{
			name: "delete subject", method: http.MethodPost, path: "/admin/subjects/s1/delete",
			form: url.Values{}, wantCode: http.StatusSeeOther, wantLocation: "/admin/subjects",
		},
	})

	h.api.mu.Lock()
	defer h.api.mu.Unlock()
	assert.Equal(t, []string{
		"PUT /classes/c1 Form 2",
		"DELETE /classes/c1",
		"PUT /subjects/s1 Maths",
		"DELETE /subjects/s1",
	}, h.api.changes)
}

func TestPortal_AdminRowFormsNeedCSRF(t *testing.T) {
	h := newHarness(t)
	h.signedInAs(t, user.RoleAdmin)

	rec := h.submit(http.MethodPost, "/admin/classes/c1/delete", url.Values{}, csrfToken, "forged")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	h.api.mu.Lock()
	defer h.api.mu.Unlock()
	assert.Empty(t, h.api.changes)
}

func TestPortal_TeacherAttendance(t *testing.T) {
	h := newHarness(t)
	h.signedInAs(t, user.RoleTeacher)

	rec := h.request(http.MethodGet, "/teacher/attendance?classId=c1&date=2026-10-17", nil)
	checkResponse(t, httpTest{wantCode: http.StatusOK, wantBody: []string{"Amani Juma", "Baraka Said", `name="status_st1"`}}, rec)

	runHTTPTests(t, h, []httpTest{
		{
			name: "nobody marked", method: http.MethodPost, path: "/teacher/attendance",
			form:     url.Values{"classId": {"c1"}, "date": {"2026-10-17"}},
			wantCode: http.StatusBadRequest, wantBody: []string{"Please mark at least one student."},
		},
		{
			name: "bad status", method: http.MethodPost, path: "/teacher/attendance",
			form:     url.Values{"classId": {"c1"}, "date": {"2026-10-17"}, "status_st1": {"SLEEPING"}},
			wantCode: http.StatusBadRequest, wantBody: []string{"Please correct the errors below."},
		},
		{
			name: "saved", method: http.MethodPost, path: "/teacher/attendance",
			form:         url.Values{"classId": {"c1"}, "date": {"2026-10-17"}, "status_st1": {"PRESENT"}, "status_st2": {"ABSENT"}},
			wantCode:     http.StatusSeeOther,
			wantLocation: "/teacher/attendance?classId=c1&date=2026-10-17&saved=1",
		},
	})

	h.api.mu.Lock()
	defer h.api.mu.Unlock()
	assert.ElementsMatch(t, []school.NewAttendance{
		{StudentID: "st1", ClassID: "c1", Date: "2026-10-17", Status: school.StatusPresent},
		{StudentID: "st2", ClassID: "c1", Date: "2026-10-17", Status: school.StatusAbsent},
	}, h.api.attendance)
}

func TestPortal_TeacherMarks(t *testing.T) {
	h := newHarness(t)
	h.signedInAs(t, user.RoleTeacher)

	form := func(maxScore string, scores map[string]string) url.Values {
		v := url.Values{
			"classId": {"c1"}, "subjectId": {"s1"}, "examType": {"Quiz"},
			"maxScore": {maxScore}, "examDate": {"2026-10-17"},
		}
		for id, score := range scores {
			v.Set("score_"+id, score)
		}
		return v
	}

	runHTTPTests(t, h, []httpTest{
		{name: "form", path: "/teacher/marks?classId=c1&subjectId=s1", wantCode: http.StatusOK, wantBody: []string{`name="score_st1"`, "No marks recorded yet."}},
		{
			name: "not a number", method: http.MethodPost, path: "/teacher/marks",
			form: form("100", map[string]string{"st1": "abc"}), wantCode: http.StatusBadRequest, wantBody: []string{"enter a number"},
		},
		{
			name: "above max score", method: http.MethodPost, path: "/teacher/marks",
			form: form("20", map[string]string{"st1": "25"}), wantCode: http.StatusBadRequest, wantBody: []string{"Please correct the errors below."},
		},
		{
			name: "no scores", method: http.MethodPost, path: "/teacher/marks",
			form: form("100", nil), wantCode: http.StatusBadRequest, wantBody: []string{"Please enter at least one score."},
		},
		{
			name: "saved", method: http.MethodPost, path: "/teacher/marks",
			form: form("100", map[string]string{"st1": "80", "st2": "65.5"}), wantCode: http.StatusSeeOther,
			wantLocation: "/teacher/marks?classId=c1&saved=2&subjectId=s1",
		},
	})

	h.api.mu.Lock()
	defer h.api.mu.Unlock()
	require.Len(t, h.api.marks, 2)
	for _, m := range h.api.marks {
		assert.Equal(t, "s1", m.SubjectID)
		assert.Equal(t, 100.0, m.MaxScore)
	}
}

func TestPortal_StudentResults(t *testing.T) {
	h := newHarness(t)
	h.signedInAs(t, user.RoleStudent)

	runHTTPTests(t, h, []httpTest{
		{name: "all subjects", path: "/student/results", wantCode: http.StatusOK, wantBody: []string{"Mathematics", "History", "90%", "55%"}},
		{name: "one subject", path: "/student/results?subjectId=s2", wantCode: http.StatusOK, wantBody: []string{"1 results, average 55% (F)"}},
	})
}

func TestPortal_Health(t *testing.T) {
	h := newHarness(t)

	rec := h.request(http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{"status": "ok", "build": "test", "session": "initializing"}, body)

	h.signedInAs(t, user.RoleStudent)
	rec = h.request(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `masomo_portal_session_transitions_total{from="initializing",reason="restored",to="authenticated"} 1`)
	assert.Contains(t, rec.Body.String(), "masomo_portal_session_authenticated 1")
}
