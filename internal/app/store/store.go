/*
Package store implements the shared remote room store.

Every household device reads and writes the same room records through a
RoomStore. Two backends exist: Redis (the default, update fan-out over
pub/sub) and PostgreSQL (durable records, update fan-out over LISTEN/NOTIFY).
Writes are full-snapshot overwrites with last-write-wins semantics; the store
provides no ordering guarantee and no merge strategy, so two devices pushing
stale snapshots can clobber each other. That limitation is part of the
contract, not an accident of a backend.
*/
package store

import (
	"context"
	"errors"
	"sync"

	"famhub/internal/app/room"
)

var (
	// ErrRoomMissing is returned when the addressed room does not exist.
	ErrRoomMissing = errors.New("store: room not found")

	// ErrRoomExists is returned when creating a room whose code is taken.
	ErrRoomExists = errors.New("store: room code already exists")
)

// RoomStore is the remote store every device synchronizes against.
//
// Fetch never authenticates the room password; it returns whatever the store
// holds for the code. Access control is door-knowledge of the room code.
type RoomStore interface {
	// Create writes a brand-new room record. The record's LastUpdated is
	// assigned by the store. Returns ErrRoomExists on a code collision.
	Create(ctx context.Context, code string, rec *room.Record) error

	// Fetch reads the full room record. Returns ErrRoomMissing when absent.
	Fetch(ctx context.Context, code string) (*room.Record, error)

	// Write overwrites the room's data payload with a store-assigned
	// timestamp and notifies subscribers. Returns the new LastUpdated.
	// Repeated writes of identical data are safe and only move LastUpdated.
	Write(ctx context.Context, code string, data room.Data) (int64, error)

	// Subscribe opens an update feed scoped to one room. The caller owns
	// the returned handle and must Close it before opening another feed
	// for a different room.
	Subscribe(ctx context.Context, code string) (*Subscription, error)

	// Close releases the backend connection.
	Close() error
}

// Update is one change notification delivered to a subscription.
type Update struct {
	// Code is the room the update belongs to.
	Code string

	// LastUpdated is the timestamp assigned to the triggering write.
	LastUpdated int64
}

// Subscription is a scoped handle on one room's update feed. It owns exactly
// one underlying listener; Close detaches it and is safe to call repeatedly.
type Subscription struct {
	updates chan Update
	stop    func()
	once    sync.Once
}

// subscriptionBuffer bounds pending notifications per subscription. The feed
// only signals "the room changed"; a dropped notification is recovered by the
// next one, so the buffer can stay small.
const subscriptionBuffer = 16

func newSubscription(stop func()) *Subscription {
	return &Subscription{
		updates: make(chan Update, subscriptionBuffer),
		stop:    stop,
	}
}

// Updates returns the channel update notifications arrive on. The channel is
// closed when the subscription ends.
func (s *Subscription) Updates() <-chan Update {
	return s.updates
}

// Close detaches the underlying listener. Idempotent.
func (s *Subscription) Close() {
	s.once.Do(s.stop)
}

// deliver pushes an update without blocking the backend's listener goroutine.
func (s *Subscription) deliver(u Update) {
	select {
	case s.updates <- u:
	default:
	}
}
