// Package gate decides whether a protected view may be shown for the current session.
package gate

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-medapp/auth"
	"github.com/jrsteele09/go-medapp/users"
)

const (
	DefaultSignInPath = "/login"
	DefaultHomePath   = "/"

	// WaitMessage is shown while the session is resolving
	WaitMessage = "Preparing your workspace..."
)

// Decision is what a protected view should do
type Decision int

const (
	Wait Decision = iota
	RedirectSignIn
	RedirectHome
	Render
)

func (d Decision) String() string {
	switch d {
	case Wait:
		return "wait"
	case RedirectSignIn:
		return "redirect-sign-in"
	case RedirectHome:
		return "redirect-home"
	case Render:
		return "render"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Outcome is the result of evaluating a Gate
type Outcome struct {
	Decision Decision
	Location string      // Redirect target, set for the redirect decisions
	User     *users.User // The session user when Decision is Render
}

// Gate guards a view. An empty Roles admits any signed in user.
type Gate struct {
	Roles      []users.Role
	SignInPath string // Defaults to /login
	HomePath   string // Defaults to /
}

// Require returns a Gate admitting the given roles with the default fallbacks
func Require(roles ...users.Role) Gate {
	return Gate{Roles: roles}
}

// Evaluate decides what to show for snap. While the session is loading the
// answer is always Wait, whatever the user.
func (g Gate) Evaluate(snap auth.Snapshot) Outcome {
	switch {
	case snap.Loading:
		return Outcome{Decision: Wait}
	case snap.User == nil:
		return Outcome{Decision: RedirectSignIn, Location: g.signInPath()}
	case !snap.User.HasRole(g.Roles...):
		return Outcome{Decision: RedirectHome, Location: g.homePath()}
	default:
		return Outcome{Decision: Render, User: snap.User}
	}
}

func (g Gate) signInPath() string {
	if g.SignInPath == "" {
		return DefaultSignInPath
	}
	return g.SignInPath
}

func (g Gate) homePath() string {
	if g.HomePath == "" {
		return DefaultHomePath
	}
	return g.HomePath
}

type userKey struct{}

// UserFrom returns the user admitted by Middleware
func UserFrom(ctx context.Context) (*users.User, bool) {
	u, ok := ctx.Value(userKey{}).(*users.User)
	return u, ok && u != nil
}

// Middleware renders the Gate's outcome over HTTP.
// Wait answers 202 with a Retry-After header, redirects answer 303 and Render
// calls next with the admitted user in the request context.
func Middleware(source auth.SnapshotSource, g Gate) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			out := g.Evaluate(source.Snapshot())
			switch out.Decision {
			case Wait:
				w.Header().Set("Retry-After", "1")
				w.Header().Set("Content-Type", "text/plain; charset=utf-8")
				w.WriteHeader(http.StatusAccepted)
				_, _ = fmt.Fprintln(w, WaitMessage)
			case RedirectSignIn, RedirectHome:
				http.Redirect(w, r, out.Location, http.StatusSeeOther)
			default:
				next(w, r.WithContext(context.WithValue(r.Context(), userKey{}, out.User)))
			}
		}
	}
}
