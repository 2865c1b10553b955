/*
Package session implements the device's live room session.

This file defines the Controller: the per-page-load state machine deciding
whether a page may render or must first establish (or re-establish) a room
session. Pages enter at Unauthenticated and end at Active or Redirecting;
Redirecting is terminal for the page load and carries the original target
path so a successful login can return there.
*/
package session

import (
	"context"
	"net/url"

	"github.com/rs/zerolog"

	"famhub/internal/app/creds"
	"famhub/internal/pkg/logx"
)

// PageKind classifies the page triggering the controller.
type PageKind int

const (
	// PageProtected is any page other than the login/join page.
	PageProtected PageKind = iota

	// PageLogin is the login/join page itself.
	PageLogin
)

// State is the controller's position in the page-load state machine.
type State int

const (
	// StateUnauthenticated is the initial state on every page load.
	StateUnauthenticated State = iota

	// StateJoining means an automatic join driven by stored credentials is
	// in flight.
	StateJoining

	// StateActive means the session is populated and the page may render.
	StateActive

	// StateRedirecting is terminal for the page load: the browser is sent
	// elsewhere, at most once per load.
	StateRedirecting
)

// Action is what the HTTP layer should do with the page load.
type Action int

const (
	// ActionProceed lets the requested page render.
	ActionProceed Action = iota

	// ActionRedirect navigates the browser to Outcome.Target.
	ActionRedirect
)

// Outcome is the controller's decision for one page load.
type Outcome struct {
	State  State
	Action Action

	// Target is the redirect destination when Action is ActionRedirect.
	Target string
}

// DefaultNextTarget is where a successful login lands when no explicit
// next parameter was carried.
const DefaultNextTarget = "/"

// Controller drives the page-load authentication state machine on top of the
// session and the credential store.
type Controller struct {
	session   *Session
	creds     *creds.Store
	loginPath string
	logger    zerolog.Logger
}

// NewController constructs a Controller. loginPath is where unauthenticated
// page loads are sent.
func NewController(s *Session, credStore *creds.Store, loginPath string) *Controller {
	return &Controller{
		session:   s,
		creds:     credStore,
		loginPath: loginPath,
		logger:    logx.Logger().With().Str("component", "Controller").Logger(),
	}
}

// Resolve runs the state machine for one page load and returns exactly one
// outcome, so a page load can trigger at most one redirect.
//
// Protected pages: no usable credential redirects to the login page with the
// original path as the next target; a credential triggers an automatic
// rejoin, and any failure during that join also redirects. The controller
// does not distinguish a wrong room from a transient remote fault; both
// force re-login.
//
// The login page: a usable credential without the per-tab marker triggers
// the same automatic rejoin, and success redirects to the next target
// instead of rendering the login page. With the marker set (this tab already
// joined) the login page renders normally.
func (c *Controller) Resolve(ctx context.Context, page PageKind, path string, tabJoined bool, next string) Outcome {
	cred, err := c.creds.Load(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("Credential store unreadable; treating device as unauthenticated.")
		cred = creds.Credential{}
	}

	switch page {
	case PageLogin:
		if !cred.IsComplete() || tabJoined {
			return Outcome{State: StateUnauthenticated, Action: ActionProceed}
		}

		if customErr := c.session.Join(ctx, cred.RoomID, cred.Password, cred.UserName, AutoRejoin); customErr != nil {
			c.logger.Warn().Str("room_code", cred.RoomID).Str("reason", customErr.Message).Msg("Automatic rejoin from login page failed.")
			return Outcome{State: StateUnauthenticated, Action: ActionProceed}
		}

		target := next
		if target == "" {
			target = DefaultNextTarget
		}
		return Outcome{State: StateRedirecting, Action: ActionRedirect, Target: target}

	default:
		if !cred.IsComplete() {
			return Outcome{
				State:  StateRedirecting,
				Action: ActionRedirect,
				Target: c.loginTarget(path),
			}
		}

		if customErr := c.session.Join(ctx, cred.RoomID, cred.Password, cred.UserName, AutoRejoin); customErr != nil {
			c.logger.Warn().Str("room_code", cred.RoomID).Str("reason", customErr.Message).Msg("Automatic rejoin failed; forcing re-login.")
			return Outcome{
				State:  StateRedirecting,
				Action: ActionRedirect,
				Target: c.loginTarget(path),
			}
		}

		return Outcome{State: StateActive, Action: ActionProceed}
	}
}

// loginTarget builds the login redirect carrying the original path.
func (c *Controller) loginTarget(path string) string {
	return c.loginPath + "?next=" + url.QueryEscape(path)
}
