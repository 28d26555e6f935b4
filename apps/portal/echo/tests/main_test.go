package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-portal/apps/portal/echo"
	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/school"
	"github.com/trezcool/masomo-portal/core/session"
	"github.com/trezcool/masomo-portal/core/user"
	"github.com/trezcool/masomo-portal/services/metrics"
	"github.com/trezcool/masomo-portal/services/schoolapi"
	"github.com/trezcool/masomo-portal/storage/keystore/inmem"
	"github.com/trezcool/masomo-portal/tests"
)

const (
	csrfToken = "abc"
	password  = "secret123"
)

// schoolAPI fakes the remote school service.
type schoolAPI struct {
	mu         sync.Mutex
	users      map[string]user.User // by token
	revoked    map[string]bool
	attendance []school.NewAttendance
	marks      []school.NewMark
	changes    []string // eg. "PUT /classes/c1 Form 2"
}

func (api *schoolAPI) record(change string) {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.changes = append(api.changes, change)
}

func newSchoolAPI() *schoolAPI {
	return &schoolAPI{users: make(map[string]user.User), revoked: make(map[string]bool)}
}

func (api *schoolAPI) issue(t *testing.T, usr user.User) string {
	api.mu.Lock()
	defer api.mu.Unlock()
	token := testutil.Token(t, usr.ID, time.Now().Add(time.Hour))
	api.users[token] = usr
	return token
}

func (api *schoolAPI) revoke(token string) {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.revoked[token] = true
}

func (api *schoolAPI) caller(r *http.Request) (user.User, bool) {
	api.mu.Lock()
	defer api.mu.Unlock()
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	usr, ok := api.users[token]
	return usr, ok && !api.revoked[token]
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func ok(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "OK", "data": data})
}

func fail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{"success": false, "message": msg})
}

func (api *schoolAPI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds user.Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		role, found := map[string]user.Role{
			"admin@masomo.cd":   user.RoleAdmin,
			"teacher@masomo.cd": user.RoleTeacher,
			"student@masomo.cd": user.RoleStudent,
		}[creds.Email]
		if !found || creds.Password != password {
			fail(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		usr := testutil.User(role)
		ok(w, user.AuthResult{Token: api.issue(t, usr), UserID: usr.ID, Email: usr.Email, FullName: usr.FullName, Role: role})
	})

	authed := func(pattern string, h func(w http.ResponseWriter, r *http.Request, usr user.User)) {
		mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
			usr, found := api.caller(r)
			if !found {
				fail(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}
			h(w, r, usr)
		})
	}

	authed("GET /api/auth/me", func(w http.ResponseWriter, _ *http.Request, usr user.User) { ok(w, usr) })
	authed("GET /api/dashboard/stats", func(w http.ResponseWriter, _ *http.Request, _ user.User) {
		ok(w, school.DashboardStats{TotalStudents: 42, TotalTeachers: 7, TotalClasses: 5, TotalSubjects: 9})
	})
	authed("GET /api/classes", func(w http.ResponseWriter, _ *http.Request, _ user.User) {
		ok(w, []school.Class{{ID: "c1", Name: "Form 1", GradeLevel: null.StringFrom("1"), StudentCount: 2}})
	})
	authed("PUT /api/classes/{id}", func(w http.ResponseWriter, r *http.Request, _ user.User) {
		if r.PathValue("id") != "c1" {
			fail(w, http.StatusNotFound, "Class not found")
			return
		}
		var nc school.NewClass
		_ = json.NewDecoder(r.Body).Decode(&nc)
		api.record("PUT /classes/c1 " + nc.Name)
		ok(w, school.Class{ID: "c1", Name: nc.Name})
	})
	authed("DELETE /api/classes/{id}", func(w http.ResponseWriter, r *http.Request, _ user.User) {
		if r.PathValue("id") != "c1" {
			fail(w, http.StatusNotFound, "Class not found")
			return
		}
		api.record("DELETE /classes/c1")
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Class deleted"})
	})
	authed("GET /api/subjects", func(w http.ResponseWriter, _ *http.Request, _ user.User) {
		ok(w, []school.Subject{{ID: "s1", Name: "Mathematics", Code: null.StringFrom("MTH")}})
	})
	authed("PUT /api/subjects/{id}", func(w http.ResponseWriter, r *http.Request, _ user.User) {
		var ns school.NewSubject
		_ = json.NewDecoder(r.Body).Decode(&ns)
		if ns.Code == "MTH" && r.PathValue("id") != "s1" {
			fail(w, http.StatusBadRequest, "Subject code already exists")
			return
		}
		api.record("PUT /subjects/" + r.PathValue("id") + " " + ns.Name)
		ok(w, school.Subject{ID: r.PathValue("id"), Name: ns.Name})
	})
	authed("DELETE /api/subjects/{id}", func(w http.ResponseWriter, r *http.Request, _ user.User) {
		api.record("DELETE /subjects/" + r.PathValue("id"))
		w.WriteHeader(http.StatusNoContent)
	})
	authed("GET /api/teacher-classes/my-classes", func(w http.ResponseWriter, _ *http.Request, usr user.User) {
		ok(w, []school.TeacherClass{{
			ID: "tc1", TeacherID: usr.ID, ClassID: "c1", ClassName: "Form 1",
			SubjectID: null.StringFrom("s1"), SubjectName: null.StringFrom("Mathematics"), StudentCount: 2,
		}})
	})
	authed("GET /api/student-classes/class/{id}", func(w http.ResponseWriter, r *http.Request, _ user.User) {
		ok(w, []school.StudentClass{
			{ID: "e1", StudentID: "st1", StudentName: "Amani Juma", ClassID: r.PathValue("id")},
			{ID: "e2", StudentID: "st2", StudentName: "Baraka Said", ClassID: r.PathValue("id")},
		})
	})
	authed("GET /api/attendance/class/{id}", func(w http.ResponseWriter, _ *http.Request, _ user.User) {
		ok(w, []school.AttendanceRecord{})
	})
	authed("POST /api/attendance/bulk", func(w http.ResponseWriter, r *http.Request, _ user.User) {
		var records []school.NewAttendance
		if err := json.NewDecoder(r.Body).Decode(&records); err != nil {
			fail(w, http.StatusBadRequest, "Invalid payload")
			return
		}
		api.mu.Lock()
		api.attendance = append(api.attendance, records...)
		api.mu.Unlock()
		ok(w, []school.AttendanceRecord{})
	})
	authed("GET /api/marks/class/{classId}/subject/{subjectId}", func(w http.ResponseWriter, _ *http.Request, _ user.User) {
		ok(w, []school.Mark{})
	})
	authed("POST /api/marks/bulk", func(w http.ResponseWriter, r *http.Request, _ user.User) {
		var marks []school.NewMark
		if err := json.NewDecoder(r.Body).Decode(&marks); err != nil {
			fail(w, http.StatusBadRequest, "Invalid payload")
			return
		}
		api.mu.Lock()
		api.marks = append(api.marks, marks...)
		api.mu.Unlock()
		ok(w, []school.Mark{})
	})
	authed("GET /api/marks/my-marks", func(w http.ResponseWriter, _ *http.Request, usr user.User) {
		ok(w, []school.Mark{
			{ID: "m1", StudentID: usr.ID, SubjectID: "s1", SubjectName: "Mathematics", ExamType: "Quiz", Score: 45, MaxScore: 50, ExamDate: "2026-10-01"},
			{ID: "m2", StudentID: usr.ID, SubjectID: "s2", SubjectName: "History", ExamType: "Final", Score: 11, MaxScore: 20, ExamDate: "2026-10-02"},
		})
	})

	return mux
}

type harness struct {
	api    *schoolAPI
	repo   *inmemstore.Store
	store  *session.Store
	server *echoportal.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	api := newSchoolAPI()
	apiSrv := httptest.NewServer(api.handler(t))
	t.Cleanup(apiSrv.Close)

	conf := &core.Config{
		TestMode: true,
		Build:    "test",
		API:      core.APIConfig{BaseURL: apiSrv.URL + "/api", Timeout: 5 * time.Second},
		Server:   core.ServerConfig{DisableReqLogs: true},
	}
	logger := testutil.NewLogger()
	validate, translator := testutil.NewValidator()
	mtr := metrics.New()
	client := schoolapi.NewClient(conf, logger, schoolapi.WithObserver(mtr))
	repo := inmemstore.New()
	store := session.NewStore(client, repo, validate, logger, session.WithObserver(mtr))

	server := echoportal.NewServer(echoportal.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		Store:      store,
		API:        client,
		Metrics:    mtr,
		Validate:   validate,
		Translator: translator,
	})
	t.Cleanup(func() { _ = server.Shutdown(context.Background()) })

	return &harness{api: api, repo: repo, store: store, server: server}
}

// restore finishes the startup restore: anonymous when usr is nil, else signed in as usr.
func (h *harness) restore(t *testing.T, usr *user.User) string {
	t.Helper()
	ctx := context.Background()

	var token string
	if usr != nil {
		token = h.api.issue(t, *usr)
		require.NoError(t, h.repo.Save(ctx, session.Credentials{Token: token, User: *usr}))
	}
	snap := h.store.Restore(ctx)
	require.Equal(t, usr != nil, snap.IsAuthenticated())
	return token
}

func (h *harness) signedInAs(t *testing.T, role user.Role) string {
	usr := testutil.User(role)
	return h.restore(t, &usr)
}

// request sends a request to the portal; form requests carry a valid CSRF token.
func (h *harness) request(method, path string, form url.Values) *httptest.ResponseRecorder {
	if form != nil {
		return h.submit(method, path, form, csrfToken, csrfToken)
	}
	rec := httptest.NewRecorder()
	h.server.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func (h *harness) submit(method, path string, form url.Values, cookieToken, formToken string) *httptest.ResponseRecorder {
	form.Set("_csrf", formToken)
	req := httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: "_csrf", Value: cookieToken})

	rec := httptest.NewRecorder()
	h.server.ServeHTTP(rec, req)
	return rec
}

type httpTest struct {
	name         string
	method       string
	path         string
	form         url.Values
	wantCode     int
	wantLocation string
	wantBody     []string
}

func checkResponse(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != tt.wantLocation {
		t.Errorf("failed! location = %q; wantLocation %q", loc, tt.wantLocation)
	}
	for _, want := range tt.wantBody {
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("failed! body does not contain %q", want)
		}
	}
}

func runHTTPTests(t *testing.T, h *harness, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			checkResponse(t, tt, h.request(method, tt.path, tt.form))
		})
	}
}
