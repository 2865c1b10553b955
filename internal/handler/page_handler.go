/*
Package handler provides the HTTP handlers and routing setup for the famhub server.

This file wires the session controller into the page routes. Every protected
page passes through RequireRoomSession, which runs the controller's page-load
state machine and either lets the page render or issues a single redirect to
the login page carrying the original path. The page bodies themselves are
placeholders: rendering belongs to the UI layer, not to this core.
*/
package handler

import (
	"fmt"
	"net/http"

	"famhub/internal/app/session"
	"famhub/internal/pkg/auth/tabtoken"
)

// LoginPath is the route of the login/join page.
const LoginPath = "/login"

// RequireRoomSession gates a protected page behind the session controller.
// The controller resolves each load to exactly one outcome, so a page load
// triggers at most one redirect.
func RequireRoomSession(deps *AppDeps, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		outcome := deps.Controller.Resolve(
			r.Context(),
			session.PageProtected,
			r.URL.Path,
			tabtoken.FromRequest(r, deps.Config.TabTokenSecret) != nil,
			"",
		)

		if outcome.Action == session.ActionRedirect {
			http.Redirect(w, r, outcome.Target, http.StatusSeeOther)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// HandleLoginPage serves the login/join page. When stored credentials are
// valid and this tab has not joined yet, the controller rejoins automatically
// and redirects to the next target instead of rendering the page.
func HandleLoginPage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tabJoined := tabtoken.FromRequest(r, deps.Config.TabTokenSecret) != nil

		outcome := deps.Controller.Resolve(
			r.Context(),
			session.PageLogin,
			r.URL.Path,
			tabJoined,
			r.URL.Query().Get("next"),
		)

		if outcome.Action == session.ActionRedirect {
			if token, err := tabtoken.Issue(deps.Session.RoomID(), deps.Session.UserName(), deps.Config.TabTokenSecret); err == nil {
				tabtoken.SetCookie(w, token)
			}
			http.Redirect(w, r, outcome.Target, http.StatusSeeOther)
			return
		}

		writePage(w, "login")
	}
}

// HandlePage serves a named protected page body.
func HandlePage(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writePage(w, name)
	}
}

// writePage emits a minimal page shell. The real views are rendered by the
// UI layer on top of /api/room/data.
func writePage(w http.ResponseWriter, name string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<!DOCTYPE html><html><head><title>famhub — %s</title></head><body data-page=%q></body></html>", name, name)
}
