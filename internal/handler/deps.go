package handler

import (
	"famhub/internal/app/backup"
	"famhub/internal/app/session"
	"famhub/internal/app/store"
	"famhub/internal/configs"
)

// AppDeps bundles the collaborators the handlers need. It is assembled once
// by the composition root; the session and controller are explicit objects
// passed here rather than ambient globals.
type AppDeps struct {
	Session    *session.Session
	Controller *session.Controller
	Store      store.RoomStore
	Config     *configs.AppConfig

	// Backup is nil when snapshot backups are not configured.
	Backup backup.Service
}
