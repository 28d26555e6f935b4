package echoportal

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/school"
	"github.com/trezcool/masomo-portal/core/session"
	"github.com/trezcool/masomo-portal/core/user"
)

const (
	csrfField      = "_csrf"
	csrfContextKey = "csrf"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templateFuncs = template.FuncMap{
	"grade": school.GradeLetter,
	"band":  school.Band,
	"score": func(f float64) string { return fmt.Sprintf("%g", f) },
	"date": func(t core.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Format("Jan 2, 2006")
	},
	"datetime": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Local().Format("Jan 2, 2006 15:04")
	},
	"landing": func(r user.Role) string {
		route, _ := r.LandingRoute()
		return route
	},
}

type renderer struct {
	templates *template.Template
}

func newRenderer() *renderer {
	return &renderer{
		templates: template.Must(template.New("").Funcs(templateFuncs).ParseFS(templatesFS, "templates/*.html")),
	}
}

func (r *renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

// page is the data every template gets.
type page struct {
	Title   string
	Path    string
	CSRF    string
	Session session.Snapshot
	Notice  string
	Error   string
	Errors  map[string]string // form field errors
	Form    interface{}
	Data    interface{}
}

func newPage(ctx echo.Context, title string) *page {
	p := &page{Title: title, Path: ctx.Request().URL.Path, Errors: map[string]string{}}
	if token, ok := ctx.Get(csrfContextKey).(string); ok {
		p.CSRF = token
	}
	if snap, ok := ctx.Get(snapshotKey).(session.Snapshot); ok {
		p.Session = snap
	}
	return p
}

func (p *page) withData(data interface{}) *page {
	p.Data = data
	return p
}

func (p *page) withForm(form interface{}, errs map[string]string) *page {
	p.Form = form
	if errs != nil {
		p.Errors = errs
	}
	return p
}

func (p *page) withError(msg string) *page {
	p.Error = msg
	return p
}

func (p *page) withNotice(msg string) *page {
	p.Notice = msg
	return p
}
