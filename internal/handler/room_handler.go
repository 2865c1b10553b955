/*
Package handler provides the HTTP handlers and routing setup for the famhub server.

This file holds the collaborator-facing room operations the UI layer calls:
create room, join room, leave room, read the session snapshot, sync it back,
and export a backup snapshot.
*/
package handler

import (
	"net/http"

	"famhub/internal/app/room"
	"famhub/internal/app/session"
	"famhub/internal/pkg/auth/tabtoken"
	"famhub/internal/pkg/errs"
	"famhub/internal/pkg/logx"
	"famhub/internal/pkg/randx"
	"famhub/internal/pkg/req"
	"famhub/internal/pkg/resp"
)

type CreateRoomInput struct {
	Password string `json:"password"`
	UserName string `json:"userName"`
}

// HandleCreateRoom mints a room, registers the creator, and marks the tab as
// joined so the login page skips its automatic rejoin.
func HandleCreateRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input CreateRoomInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		code, customErr := deps.Session.CreateRoom(r.Context(), input.Password, input.UserName)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		markTabJoined(w, deps, code, input.UserName)

		resp.RespondSuccess(w, r, map[string]any{
			"roomId": code,
		})
	}
}

type JoinRoomInput struct {
	RoomID   string `json:"roomId"`
	Password string `json:"password"`
	UserName string `json:"userName"`
}

// HandleJoinRoom performs an interactive join with user-supplied credentials.
// On success the credential triple is cached for future automatic rejoins.
func HandleJoinRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input JoinRoomInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if !randx.IsValidRoomCode(input.RoomID) {
			resp.RespondError(w, r, errs.NewError(errs.ErrRoomCodeInvalid))
			return
		}

		customErr := deps.Session.Join(r.Context(), input.RoomID, input.Password, input.UserName, session.InteractiveJoin)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		markTabJoined(w, deps, input.RoomID, input.UserName)

		resp.RespondSuccess(w, r, map[string]any{
			"roomId": input.RoomID,
		})
	}
}

// HandleLeaveRoom tears the session down: subscription released, snapshot
// reset, credentials cleared, tab marker dropped.
func HandleLeaveRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if customErr := deps.Session.Leave(r.Context()); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		tabtoken.ClearCookie(w)

		resp.RespondSuccess(w, r, nil)
	}
}

// HandleGetData returns the session's current data snapshot.
func HandleGetData(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, bound := deps.Session.Data()
		if !bound {
			resp.RespondError(w, r, errs.NewError(errs.ErrNoActiveSession))
			return
		}

		resp.RespondSuccess(w, r, data)
	}
}

type SyncInput struct {
	Data room.Data `json:"data"`
}

// HandleSync replaces the session snapshot with the client's and pushes the
// full snapshot to the remote store. Whichever device pushes last wins.
func HandleSync(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input SyncInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		lastUpdated, customErr := deps.Session.Sync(r.Context(), input.Data)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"lastUpdated": lastUpdated,
		})
	}
}

// HandleBackup exports a point-in-time snapshot of the bound room to the
// configured object storage.
func HandleBackup(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Backup == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrBackupDisabled))
			return
		}

		code := deps.Session.RoomID()
		if code == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrNoActiveSession))
			return
		}

		rec, err := deps.Store.Fetch(r.Context(), code)
		if err != nil {
			logx.Error(err, "Failed to fetch room for backup", "room_code", code)
			resp.RespondError(w, r, errs.NewError(errs.ErrRoomNotFound))
			return
		}

		key, err := deps.Backup.Export(r.Context(), code, rec)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrBackupFailed))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"key": key,
		})
	}
}

// markTabJoined issues the per-tab marker after a successful create or join.
func markTabJoined(w http.ResponseWriter, deps *AppDeps, roomID, userName string) {
	token, err := tabtoken.Issue(roomID, userName, deps.Config.TabTokenSecret)
	if err != nil {
		logx.Error(err, "Failed to issue tab token", "room_code", roomID)
		return
	}

	tabtoken.SetCookie(w, token)
}
