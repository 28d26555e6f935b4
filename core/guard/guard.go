// Package guard decides whether a role-scoped screen may be shown for a session.
package guard

import (
	"net/url"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/session"
	"github.com/trezcool/masomo-portal/core/user"
)

// Paths the guard redirects to.
const (
	LoginPath     = "/auth"
	ForbiddenPath = "/forbidden" // authenticated with a role that has no landing screen
	FromParam     = "from"
)

type Kind int

// Decision kinds
const (
	ShowLoading Kind = iota
	Render
	Redirect
)

func (k Kind) String() string {
	switch k {
	case ShowLoading:
		return "loading"
	case Render:
		return "render"
	case Redirect:
		return "redirect"
	}
	return "unknown"
}

// Decision is what the caller should do; Location is only set for Redirect.
type Decision struct {
	Kind     Kind
	Location string
}

func loading() Decision            { return Decision{Kind: ShowLoading} }
func render() Decision             { return Decision{Kind: Render} }
func redirect(loc string) Decision { return Decision{Kind: Redirect, Location: loc} }

// Decide gates `location` for the session in snap. With no required roles any authenticated viewer may see it.
func Decide(snap session.Snapshot, location string, required ...user.Role) Decision {
	switch snap.Status {
	case session.StatusInitializing:
		return loading()
	case session.StatusAuthenticated:
	default:
		return redirect(LoginURL(location))
	}

	if len(required) == 0 || hasRole(snap.Role, required) {
		return render()
	}
	if landing, ok := snap.Role.LandingRoute(); ok {
		return redirect(landing)
	}
	return redirect(ForbiddenPath)
}

func hasRole(role user.Role, roles []user.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// LoginURL returns the login screen carrying `from` when it is a local path.
func LoginURL(from string) string {
	from, ok := core.LocalPath(from)
	if !ok || from == LoginPath {
		return LoginPath
	}
	return LoginPath + "?" + url.Values{FromParam: {from}}.Encode()
}

// AfterLogin returns where to go once signed in: `from` if local and permitted for role, else role's landing screen.
func AfterLogin(role user.Role, from string) string {
	landing, ok := role.LandingRoute()
	if !ok {
		landing = ForbiddenPath
	}
	if from, ok := core.LocalPath(from); ok {
		if required, scoped := ScopeOf(from); !scoped || required == role {
			if u, err := url.Parse(from); err == nil && u.Path != LoginPath {
				return from
			}
		}
	}
	return landing
}

// ScopeOf returns the role owning the screen at path, if it is role-scoped.
func ScopeOf(path string) (user.Role, bool) {
	u, err := url.Parse(path)
	if err != nil {
		return "", false
	}
	for _, role := range user.AllRoles {
		landing, _ := role.LandingRoute()
		if u.Path == landing || len(u.Path) > len(landing) && u.Path[:len(landing)+1] == landing+"/" {
			return role, true
		}
	}
	return "", false
}
