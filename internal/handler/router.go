/*
Package handler provides the HTTP handlers and routing setup for the famhub server.

This file defines the main Router, applying logging, CORS, and IP-based rate
limiting before delegating to the room API, the page routes gated by the
session controller, and the WebSocket update feed.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"famhub/internal/pkg/limiter"
	"famhub/internal/pkg/logx"
	"famhub/internal/pkg/resp"
)

const (
	CreateRate  = 0.05
	CreateBurst = 2
	JoinRate    = 0.2
	JoinBurst   = 5
)

// Router assembles the application's chi routing table: global middleware,
// the JSON API under /api, the controller-gated page routes, and /ws/room.
func Router(deps *AppDeps) http.Handler {
	createLimiter := limiter.NewIPRateLimiter(rate.Limit(CreateRate), CreateBurst)
	joinLimiter := limiter.NewIPRateLimiter(rate.Limit(JoinRate), JoinBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.Environment == "development" {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.Environment == "development" {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, map[string]string{
			"status":  "ok",
			"service": "famhub",
		})
	})

	r.Route("/api", func(api chi.Router) {
		api.Route("/room", func(rm chi.Router) {
			rm.With(createLimiter.Middleware).Post("/create", HandleCreateRoom(deps))
			rm.With(joinLimiter.Middleware).Post("/join", HandleJoinRoom(deps))
			rm.Post("/leave", HandleLeaveRoom(deps))
			rm.Get("/data", HandleGetData(deps))
			rm.Post("/sync", HandleSync(deps))
			rm.Post("/backup", HandleBackup(deps))
		})
	})

	r.Get("/ws/room", HandleRoomUpdates(wsUpgrader, deps))

	r.Get(LoginPath, HandleLoginPage(deps))

	pages := map[string]string{
		"/":         "overview",
		"/budget":   "budget",
		"/calendar": "calendar",
		"/shopping": "shopping",
	}
	for path, name := range pages {
		r.Method(http.MethodGet, path, RequireRoomSession(deps, HandlePage(name)))
	}

	return r
}
