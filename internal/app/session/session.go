/*
Package session implements the device's live room session.

This file defines the Session struct: the single in-process handle binding
this device to at most one room at a time. It mirrors the room's shared data
(read-on-join, explicit push-on-mutation) and owns the one remote
subscription the binding is allowed to hold. The session object is created by
the composition root and passed to whichever layer needs it; there is no
ambient global.
*/
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"famhub/internal/app/creds"
	"famhub/internal/app/room"
	"famhub/internal/app/store"
	"famhub/internal/pkg/errs"
	"famhub/internal/pkg/logx"
	"famhub/internal/pkg/randx"
)

// JoinIntent states why a join is being performed. Each session-controller
// transition has exactly one trigger, so the intent is explicit rather than
// a set of boolean flags.
type JoinIntent int

const (
	// AutoRejoin is a join driven by stored credentials on page load.
	// It never mutates the credential store.
	AutoRejoin JoinIntent = iota

	// InteractiveJoin is a join the user requested with fresh input.
	// On success the credential triple is cached for future auto-rejoins.
	InteractiveJoin

	// Probe only checks that the room is reachable; it binds nothing and
	// leaves both the session and the credential store untouched.
	Probe
)

// Session binds this device to at most one room.
//
// The data snapshot is only valid while a room is bound; Leave clears the
// binding and the snapshot together. Writes push the full snapshot and rely
// on the store's last-write-wins semantics: there is no merge strategy, and
// concurrent pushes of stale snapshots from two devices clobber each other.
type Session struct {
	mu sync.Mutex

	store  store.RoomStore
	creds  *creds.Store
	logger zerolog.Logger

	roomID   string
	userName string
	data     room.Data
	sub      *store.Subscription
}

// NewSession constructs an unbound session on top of the given remote store
// and credential store.
func NewSession(roomStore store.RoomStore, credStore *creds.Store) *Session {
	return &Session{
		store:  roomStore,
		creds:  credStore,
		logger: logx.Logger().With().Str("component", "Session").Logger(),
		data:   room.EmptyData(),
	}
}

// CreateRoom mints a new room code, registers the creator as its first member,
// writes the room record to the remote store, caches the credential triple,
// and binds the session to the new room. Empty password or userName fails
// before any network call.
func (s *Session) CreateRoom(ctx context.Context, password, userName string) (string, *errs.CustomError) {
	if password == "" {
		return "", errs.NewError(errs.ErrPasswordRequired)
	}
	if userName == "" {
		return "", errs.NewError(errs.ErrUserNameRequired)
	}

	code, err := randx.RoomCode()
	if err != nil {
		return "", errs.NewError(errs.ErrUnknown, err)
	}

	data := room.EmptyData()
	data.Users = append(data.Users, newUser(userName))

	rec := &room.Record{
		Data:     data,
		Password: password,
	}

	if err := s.store.Create(ctx, code, rec); err != nil {
		if errors.Is(err, store.ErrRoomExists) {
			return "", errs.NewError(errs.ErrRoomCodeExists)
		}
		s.logger.Error().Err(err).Str("room_code", code).Msg("Room creation failed.")
		return "", errs.NewError(errs.ErrRemoteUnavailable)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if customErr := s.bindLocked(ctx, code, userName, rec.Data); customErr != nil {
		return "", customErr
	}

	if err := s.creds.Save(ctx, creds.Credential{RoomID: code, Password: password, UserName: userName}); err != nil {
		s.logger.Error().Err(err).Msg("Failed to cache credentials after room creation.")
	}

	s.logger.Info().Str("room_code", code).Str("user_name", userName).Msg("Room created and session bound.")
	return code, nil
}

// Join binds the session to an existing room: it performs one blocking read
// to populate the data snapshot, swaps the subscription over to the new room,
// and ensures the joining member exists. A binding to a previous room is kept
// intact when the read fails.
//
// The password parameter satisfies the credential contract but is not
// verified against the stored room password here; the room code is the real
// gate (door-knowledge model, preserved as designed).
//
// A failed join never mutates the credential store.
func (s *Session) Join(ctx context.Context, roomID, password, userName string, intent JoinIntent) *errs.CustomError {
	if !randx.IsValidRoomCode(roomID) {
		return errs.NewError(errs.ErrRoomCodeInvalid)
	}
	if password == "" {
		return errs.NewError(errs.ErrPasswordRequired)
	}
	if userName == "" {
		return errs.NewError(errs.ErrUserNameRequired)
	}

	if intent == Probe {
		if _, err := s.store.Fetch(ctx, roomID); err != nil {
			return errs.NewError(errs.ErrRoomNotFound)
		}
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.store.Fetch(ctx, roomID)
	if err != nil {
		// A missing room and a failed read are reported identically; the
		// caller cannot tell a wrong room from a transient remote fault,
		// which mirrors the observed design.
		return errs.NewError(errs.ErrRoomNotFound)
	}

	if customErr := s.bindLocked(ctx, roomID, userName, rec.Data); customErr != nil {
		return customErr
	}

	if customErr := s.ensureUserLocked(ctx, userName); customErr != nil {
		return customErr
	}

	if intent == InteractiveJoin {
		if err := s.creds.Save(ctx, creds.Credential{RoomID: roomID, Password: password, UserName: userName}); err != nil {
			s.logger.Error().Err(err).Msg("Failed to cache credentials after join.")
		}
	}

	s.logger.Info().Str("room_code", roomID).Str("user_name", userName).Msg("Joined room.")
	return nil
}

// bindLocked points the session at roomID: it drops any previous
// subscription, opens a new one, and installs the given snapshot.
func (s *Session) bindLocked(ctx context.Context, roomID, userName string, data room.Data) *errs.CustomError {
	s.releaseLocked()

	sub, err := s.store.Subscribe(ctx, roomID)
	if err != nil {
		s.logger.Error().Err(err).Str("room_code", roomID).Msg("Failed to open room subscription.")
		return errs.NewError(errs.ErrRemoteUnavailable)
	}

	s.sub = sub
	s.roomID = roomID
	s.userName = userName
	s.data = data
	return nil
}

// Push writes the current data snapshot back to the remote room record with a
// store-assigned timestamp. Pushing identical data repeatedly is safe and
// only moves lastUpdated.
func (s *Session) Push(ctx context.Context) (int64, *errs.CustomError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pushLocked(ctx)
}

func (s *Session) pushLocked(ctx context.Context) (int64, *errs.CustomError) {
	if s.roomID == "" {
		return 0, errs.NewError(errs.ErrNoActiveSession)
	}

	ts, err := s.store.Write(ctx, s.roomID, s.data)
	if err != nil {
		if errors.Is(err, store.ErrRoomMissing) {
			return 0, errs.NewError(errs.ErrRoomNotFound)
		}
		s.logger.Error().Err(err).Str("room_code", s.roomID).Msg("Push failed.")
		return 0, errs.NewError(errs.ErrRemoteUnavailable)
	}

	return ts, nil
}

// Sync replaces the session's data snapshot with the caller's and pushes it.
// This is the collaborator-facing mutation path for the UI layer.
func (s *Session) Sync(ctx context.Context, data room.Data) (int64, *errs.CustomError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.roomID == "" {
		return 0, errs.NewError(errs.ErrNoActiveSession)
	}

	s.data = data
	return s.pushLocked(ctx)
}

// EnsureUser appends a member with the given name unless one already exists
// with that exact name, then pushes so other devices see the new member
// promptly. Name comparison is case-sensitive with no normalization.
func (s *Session) EnsureUser(ctx context.Context, name string) *errs.CustomError {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.roomID == "" {
		return errs.NewError(errs.ErrNoActiveSession)
	}

	return s.ensureUserLocked(ctx, name)
}

func (s *Session) ensureUserLocked(ctx context.Context, name string) *errs.CustomError {
	if s.data.FindUser(name) == nil {
		s.data.Users = append(s.data.Users, newUser(name))
		s.logger.Info().Str("room_code", s.roomID).Str("user_name", name).Msg("New member registered in room data.")
	}

	_, customErr := s.pushLocked(ctx)
	return customErr
}

func newUser(name string) room.User {
	return room.User{
		ID:               randx.UserID(),
		Name:             name,
		FixedPayments:    []room.Payment{},
		Expenses:         []room.Payment{},
		Incomes:          []room.Payment{},
		CustomCategories: []string{},
	}
}

// Release detaches the remote subscription without unbinding the room. It is
// called before rebinding to a different room so two listeners can never
// mutate the same session.
func (s *Session) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.releaseLocked()
}

func (s *Session) releaseLocked() {
	if s.sub != nil {
		s.sub.Close()
		s.sub = nil
	}
}

// Leave detaches the subscription, resets the data snapshot to the empty-room
// default, unbinds the room, and clears the credential store. After Leave the
// device behaves exactly like one that never joined.
func (s *Session) Leave(ctx context.Context) *errs.CustomError {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.releaseLocked()

	left := s.roomID
	s.roomID = ""
	s.userName = ""
	s.data = room.EmptyData()

	if err := s.creds.Clear(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Failed to clear credential store on leave.")
		return errs.NewError(errs.ErrUnknown, err)
	}

	if left != "" {
		s.logger.Info().Str("room_code", left).Msg("Left room.")
	}
	return nil
}

// Data returns a deep copy of the current snapshot and whether a room is
// bound. Callers get a copy so UI reads never race a concurrent sync.
func (s *Session) Data() (room.Data, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.data.Clone(), s.roomID != ""
}

// RoomID returns the bound room code, or "" when unbound.
func (s *Session) RoomID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.roomID
}

// UserName returns the display name the session joined under.
func (s *Session) UserName() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.userName
}
