package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"famhub/internal/app/room"
	"famhub/internal/pkg/logx"
)

// RedisStore keeps each room record as a JSON value at rooms:{code} and fans
// out change notifications over the pub/sub channel rooms:{code}:updates.
type RedisStore struct {
	client *redis.Client
	logger zerolog.Logger
}

var _ RoomStore = (*RedisStore)(nil)

// NewRedisStore connects to the Redis instance at addr and verifies the
// connection with a ping.
func NewRedisStore(ctx context.Context, addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}

	return &RedisStore{
		client: client,
		logger: logx.Logger().With().Str("component", "RedisStore").Logger(),
	}, nil
}

func roomKey(code string) string {
	return "rooms:" + code
}

func roomChannel(code string) string {
	return "rooms:" + code + ":updates"
}

// Create writes a new room record, refusing to overwrite an existing code.
func (s *RedisStore) Create(ctx context.Context, code string, rec *room.Record) error {
	rec.LastUpdated = time.Now().UnixMilli()

	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal room record: %w", err)
	}

	ok, err := s.client.SetNX(ctx, roomKey(code), raw, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to create room %s: %w", code, err)
	}
	if !ok {
		return ErrRoomExists
	}

	s.logger.Info().Str("room_code", code).Msg("Room record created.")
	return nil
}

// Fetch reads the room record at the given code.
func (s *RedisStore) Fetch(ctx context.Context, code string) (*room.Record, error) {
	raw, err := s.client.Get(ctx, roomKey(code)).Bytes()
	if err == redis.Nil {
		return nil, ErrRoomMissing
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch room %s: %w", code, err)
	}

	rec := &room.Record{}
	if err := json.Unmarshal(raw, rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room %s: %w", code, err)
	}

	return rec, nil
}

// Write replaces the room's data payload and publishes an update.
//
// The read-modify-write is not transactional: a concurrent writer that read
// the record earlier simply lands second and wins. That is the documented
// last-write-wins model of the whole system.
func (s *RedisStore) Write(ctx context.Context, code string, data room.Data) (int64, error) {
	rec, err := s.Fetch(ctx, code)
	if err != nil {
		return 0, err
	}

	rec.Data = data
	rec.LastUpdated = time.Now().UnixMilli()

	raw, err := json.Marshal(rec)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal room record: %w", err)
	}

	if err := s.client.Set(ctx, roomKey(code), raw, 0).Err(); err != nil {
		return 0, fmt.Errorf("failed to write room %s: %w", code, err)
	}

	if err := s.client.Publish(ctx, roomChannel(code), strconv.FormatInt(rec.LastUpdated, 10)).Err(); err != nil {
		s.logger.Warn().Err(err).Str("room_code", code).Msg("Failed to publish room update.")
	}

	return rec.LastUpdated, nil
}

// Subscribe opens a pub/sub listener on the room's update channel and feeds
// notifications into the returned handle until it is closed.
func (s *RedisStore) Subscribe(ctx context.Context, code string) (*Subscription, error) {
	pubsub := s.client.Subscribe(ctx, roomChannel(code))

	// Force the subscription onto the wire before returning, so no update
	// published after Subscribe returns can be missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to room %s: %w", code, err)
	}

	sub := newSubscription(func() {
		pubsub.Close()
	})

	go func() {
		defer close(sub.updates)

		for msg := range pubsub.Channel() {
			ts, err := strconv.ParseInt(msg.Payload, 10, 64)
			if err != nil {
				s.logger.Warn().Str("payload", msg.Payload).Msg("Ignoring malformed room update payload.")
				continue
			}

			sub.deliver(Update{Code: code, LastUpdated: ts})
		}
	}()

	s.logger.Info().Str("room_code", code).Msg("Subscribed to room updates.")
	return sub, nil
}

// Close closes the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
