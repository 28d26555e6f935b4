package echoportal

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core/guard"
	"github.com/trezcool/masomo-portal/core/session"
	"github.com/trezcool/masomo-portal/core/user"
)

const snapshotKey = "session"

var errNoSnapshot = errors.New("session snapshot not found in echo.Context")

// guardMiddleware performs what guard.Decide says for the current session;
// rendered handlers find the snapshot they were authorized with in the context.
func guardMiddleware(store *session.Store, roles ...user.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			snap := store.Snapshot()
			decision := guard.Decide(snap, ctx.Request().URL.RequestURI(), roles...)
			switch decision.Kind {
			case guard.ShowLoading:
				return renderLoading(ctx)
			case guard.Redirect:
				return ctx.Redirect(http.StatusSeeOther, decision.Location)
			}
			ctx.Set(snapshotKey, snap)
			return next(ctx)
		}
	}
}

// renderLoading asks the browser to come back while the session is being restored.
func renderLoading(ctx echo.Context) error {
	ctx.Response().Header().Set("Refresh", "1")
	ctx.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return ctx.Render(http.StatusOK, "loading", newPage(ctx, "Loading"))
}

func getSnapshot(ctx echo.Context) (session.Snapshot, error) {
	snap, ok := ctx.Get(snapshotKey).(session.Snapshot)
	if !ok || !snap.IsAuthenticated() {
		return session.Snapshot{}, errNoSnapshot
	}
	return snap, nil
}
