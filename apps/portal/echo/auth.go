package echoportal

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/guard"
	"github.com/trezcool/masomo-portal/core/session"
	"github.com/trezcool/masomo-portal/core/user"
)

const (
	tabLogin  = "login"
	tabSignup = "signup"
)

type authHandlers struct {
	store      *session.Store
	logger     core.Logger
	translator ut.Translator
}

type authForm struct {
	Tab    string
	From   string
	Login  user.Credentials
	Signup user.NewAccount
	Roles  []user.RoleOption
}

func registerAuthRoutes(e *echo.Echo, deps ServerDeps) {
	h := authHandlers{
		store:      deps.Store,
		logger:     deps.Logger,
		translator: deps.Translator,
	}

	e.GET("/", h.index)
	e.GET(guard.LoginPath, h.authScreen)
	e.POST(guard.LoginPath+"/login", h.login)
	e.POST(guard.LoginPath+"/signup", h.signup)
	e.POST(guard.LoginPath+"/logout", h.logout)
}

func newAuthForm(tab, from string) *authForm {
	if tab != tabSignup {
		tab = tabLogin
	}
	if from, ok := core.LocalPath(from); ok {
		return &authForm{Tab: tab, From: from, Roles: user.RoleOptions, Signup: user.NewAccount{Role: user.RoleStudent}}
	}
	return &authForm{Tab: tab, Roles: user.RoleOptions, Signup: user.NewAccount{Role: user.RoleStudent}}
}

// Handlers

func (h *authHandlers) index(ctx echo.Context) error {
	snap := h.store.Snapshot()
	switch snap.Status {
	case session.StatusInitializing:
		return renderLoading(ctx)
	case session.StatusAuthenticated:
		return ctx.Redirect(http.StatusSeeOther, guard.AfterLogin(snap.Role, ""))
	}
	return ctx.Render(http.StatusOK, "index", newPage(ctx, "Welcome"))
}

func (h *authHandlers) authScreen(ctx echo.Context) error {
	snap := h.store.Snapshot()
	from := ctx.QueryParam(guard.FromParam)
	switch snap.Status {
	case session.StatusInitializing:
		return renderLoading(ctx)
	case session.StatusAuthenticated:
		return ctx.Redirect(http.StatusSeeOther, guard.AfterLogin(snap.Role, from))
	}
	return ctx.Render(http.StatusOK, "auth", newPage(ctx, "Sign in").withForm(newAuthForm(ctx.QueryParam("tab"), from), nil))
}

func (h *authHandlers) login(ctx echo.Context) error {
	form := newAuthForm(tabLogin, ctx.FormValue(guard.FromParam))
	if err := ctx.Bind(&form.Login); err != nil {
		return errors.Wrap(err, "binding to Credentials")
	}

	snap, err := h.store.SignIn(ctx.Request().Context(), form.Login.Email, form.Login.Password)
	if err != nil {
		form.Login.Password = ""
		return h.rejected(ctx, form, err)
	}
	return ctx.Redirect(http.StatusSeeOther, guard.AfterLogin(snap.Role, form.From))
}

func (h *authHandlers) signup(ctx echo.Context) error {
	form := newAuthForm(tabSignup, ctx.FormValue(guard.FromParam))
	if err := ctx.Bind(&form.Signup); err != nil {
		return errors.Wrap(err, "binding to NewAccount")
	}

	snap, err := h.store.SignUp(ctx.Request().Context(), form.Signup)
	if err != nil {
		form.Signup.Password = ""
		return h.rejected(ctx, form, err)
	}
	return ctx.Redirect(http.StatusSeeOther, guard.AfterLogin(snap.Role, form.From))
}

// rejected renders the auth screen again with the reason of a failed sign-in or sign-up.
func (h *authHandlers) rejected(ctx echo.Context, form *authForm, err error) error {
	p := newPage(ctx, "Sign in")

	var authErr *session.AuthError
	switch origErr := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		p.withForm(form, core.TranslateErrors(origErr, h.translator))
	default:
		if !errors.As(err, &authErr) {
			return err
		}
		h.logger.Info("auth: "+authErr.Op+" rejected", authErr.Unwrap())
		p.withForm(form, nil).withError(authErr.Message)
	}
	return ctx.Render(http.StatusBadRequest, "auth", p)
}

func (h *authHandlers) logout(ctx echo.Context) error {
	h.store.SignOut(ctx.Request().Context())
	return ctx.Redirect(http.StatusSeeOther, guard.LoginPath)
}
