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
	"github.com/trezcool/masomo-portal/services/schoolapi"
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// A 401 from the school API signs the session out and sends the browser to the login screen.
func newAppHTTPErrorHandler(logger core.Logger, store *session.Store, translator ut.Translator) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		if ctx.Response().Committed {
			return
		}

		if schoolapi.IsUnauthorized(err) && !isAuthError(err) {
			expire(ctx, store)
			return
		}

		var code int
		var message string
		var fields map[string]string

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			if msg, ok := origErr.Message.(string); ok {
				message = msg
			} else {
				message = http.StatusText(code)
			}
		case *session.AuthError:
			code = http.StatusBadRequest
			message = origErr.Message
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			message = "Please correct the errors below."
			fields = core.TranslateErrors(origErr, translator)
		case *schoolapi.Error:
			code = origErr.Status
			message = schoolapi.Message(origErr, http.StatusText(origErr.Status))
			if code >= http.StatusInternalServerError {
				code = http.StatusBadGateway
				message = "The school service is unavailable. Please try again later."
			}
		default: // any other error is a server error
			code = http.StatusInternalServerError
			message = http.StatusText(http.StatusInternalServerError)

			snap, _ := ctx.Get(snapshotKey).(session.Snapshot)
			logger.Error(message, errors.Wrap(err, message), snap.User())
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}

		// Send response
		if ctx.Request().Method == http.MethodHead { // Issue #608
			err = ctx.NoContent(code)
		} else {
			p := newPage(ctx, http.StatusText(code)).withError(message)
			p.Errors = fields
			p.Data = code
			err = ctx.Render(code, "error", p)
		}
		if err != nil {
			ctx.Echo().Logger.Error(err)
		}
	}
}

func isAuthError(err error) bool {
	var authErr *session.AuthError
	return errors.As(err, &authErr)
}

// expire signs out the token the request was made with and redirects to the login screen.
func expire(ctx echo.Context, store *session.Store) {
	if snap, ok := ctx.Get(snapshotKey).(session.Snapshot); ok {
		store.Expire(ctx.Request().Context(), snap.Token)
	}

	loc := guard.LoginPath
	if ctx.Request().Method == http.MethodGet {
		loc = guard.LoginURL(ctx.Request().URL.RequestURI())
	}
	if err := ctx.Redirect(http.StatusSeeOther, loc); err != nil {
		ctx.Echo().Logger.Error(err)
	}
}
