// Package guard decides whether a protected view may be shown for the
// current session.
package guard

import (
	"net/url"

	"humanityclub/site/internal/client/session"
)

const HomePath = "/"

type State int

const (
	Loading State = iota
	Unauthenticated
	InsufficientRole
	Authorized
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Unauthenticated:
		return "unauthenticated"
	case InsufficientRole:
		return "authenticated-insufficient-role"
	default:
		return "authenticated-authorized"
	}
}

type Action int

const (
	// Placeholder renders neutral content and does not navigate.
	Placeholder Action = iota
	RedirectLogin
	RedirectHome
	Render
)

// Route is a guarded view. Empty Roles admits any signed-in user.
type Route struct {
	Path  string
	Roles []string
}

func AdminRoute(path string) Route {
	return Route{Path: path, Roles: []string{"admin"}}
}

type Decision struct {
	State  State
	Action Action
	// Target is where a redirect goes; for the login view it carries the
	// requested path in the "from" query parameter.
	Target string
	// From is the originally requested path.
	From string
}

type SessionView interface {
	Status() session.Status
	User() (session.User, bool)
}

type Guard struct {
	session SessionView
}

func New(s SessionView) *Guard {
	return &Guard{session: s}
}

func (g *Guard) Evaluate(route Route) Decision {
	switch g.session.Status() {
	case session.StatusLoading:
		return Decision{State: Loading, Action: Placeholder, From: route.Path}
	case session.StatusLoggedOut:
		return Decision{
			State:  Unauthenticated,
			Action: RedirectLogin,
			Target: LoginTarget(route.Path),
			From:   route.Path,
		}
	}

	user, ok := g.session.User()
	if !ok {
		return Decision{State: Unauthenticated, Action: RedirectLogin, Target: LoginTarget(route.Path), From: route.Path}
	}
	if !allowed(user.Role, route.Roles) {
		return Decision{State: InsufficientRole, Action: RedirectHome, Target: HomePath, From: route.Path}
	}
	return Decision{State: Authorized, Action: Render, From: route.Path}
}

func allowed(role string, roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func LoginTarget(from string) string {
	if from == "" || from == session.LoginPath {
		return session.LoginPath
	}
	return session.LoginPath + "?" + url.Values{"from": {from}}.Encode()
}

// ReturnPath extracts the path a login view should go back to, falling back
// to the home view for anything that is not a local path.
func ReturnPath(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return HomePath
	}
	from := u.Query().Get("from")
	if from == "" || from[0] != '/' || (len(from) > 1 && from[1] == '/') {
		return HomePath
	}
	return from
}
