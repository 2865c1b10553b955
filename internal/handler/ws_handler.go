/*
Package handler provides the HTTP handlers and routing setup for the famhub server.

This file upgrades browser connections to WebSocket and forwards room update
notifications, so open pages learn promptly when another device has synced
and can re-fetch the snapshot.
*/
package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"famhub/internal/pkg/errs"
	"famhub/internal/pkg/logx"
	"famhub/internal/pkg/resp"
)

const (
	wsWriteWait    = 10 * time.Second
	wsPingInterval = 50 * time.Second
)

// roomUpdateMessage is the JSON frame sent for each update notification.
type roomUpdateMessage struct {
	RoomID      string `json:"roomId"`
	LastUpdated int64  `json:"lastUpdated"`
}

// HandleRoomUpdates streams update notifications for the bound room over a
// WebSocket. The feed uses its own store subscription so the session's single
// subscription stays owned by the data mirror alone.
func HandleRoomUpdates(upgrader websocket.Upgrader, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := deps.Session.RoomID()
		if code == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrNoActiveSession))
			return
		}

		sub, err := deps.Store.Subscribe(r.Context(), code)
		if err != nil {
			logx.Error(err, "Failed to open update feed subscription", "room_code", code)
			resp.RespondError(w, r, errs.NewError(errs.ErrRemoteUnavailable))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			sub.Close()
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		logx.Info("Update feed connected", "room_code", code)

		done := make(chan struct{})

		// Drain the read side to observe the close handshake.
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(wsPingInterval)
		defer func() {
			ticker.Stop()
			sub.Close()
			conn.Close()
			logx.Info("Update feed disconnected", "room_code", code)
		}()

		for {
			select {
			case <-done:
				return

			case update, ok := <-sub.Updates():
				if !ok {
					return
				}

				conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				msg := roomUpdateMessage{RoomID: update.Code, LastUpdated: update.LastUpdated}
				if err := conn.WriteJSON(msg); err != nil {
					return
				}

			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}
}
