package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"famhub/internal/app/room"
	"famhub/internal/pkg/logx"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// notifyChannel is the single LISTEN/NOTIFY channel all room updates travel
// on. Payloads are "CODE:timestamp"; subscriptions filter by code.
const notifyChannel = "room_updates"

// PostgresStore keeps room records in a rooms table and fans out change
// notifications with pg_notify.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

var _ RoomStore = (*PostgresStore)(nil)

// NewPostgresStore opens a connection pool against dsn and applies pending
// migrations.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database DSN: %w", err)
	}

	config.MaxConns = 10
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute
	config.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	sqlDB := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer sqlDB.Close()

	if err := runMigrations(sqlDB); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{
		pool:   pool,
		logger: logx.Logger().With().Str("component", "PostgresStore").Logger(),
	}, nil
}

// runMigrations applies all pending migrations from the embedded file system.
func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}

// isUniqueViolation checks for a PostgreSQL unique constraint violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// Create inserts a new room record.
func (s *PostgresStore) Create(ctx context.Context, code string, rec *room.Record) error {
	raw, err := json.Marshal(rec.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal room data: %w", err)
	}

	ts := time.Now().UnixMilli()

	_, err = s.pool.Exec(ctx,
		`INSERT INTO rooms (code, password, data, last_updated) VALUES ($1, $2, $3, $4)`,
		code, rec.Password, raw, ts,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrRoomExists
		}
		return fmt.Errorf("failed to create room %s: %w", code, err)
	}

	rec.LastUpdated = ts

	s.logger.Info().Str("room_code", code).Msg("Room record created.")
	return nil
}

// Fetch reads the room record at the given code.
func (s *PostgresStore) Fetch(ctx context.Context, code string) (*room.Record, error) {
	var (
		raw []byte
		rec room.Record
	)

	err := s.pool.QueryRow(ctx,
		`SELECT password, data, last_updated FROM rooms WHERE code = $1`,
		code,
	).Scan(&rec.Password, &raw, &rec.LastUpdated)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRoomMissing
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch room %s: %w", code, err)
	}

	if err := json.Unmarshal(raw, &rec.Data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room %s: %w", code, err)
	}

	return &rec, nil
}

// Write replaces the room's data payload and notifies listeners.
func (s *PostgresStore) Write(ctx context.Context, code string, data room.Data) (int64, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal room data: %w", err)
	}

	ts := time.Now().UnixMilli()

	tag, err := s.pool.Exec(ctx,
		`UPDATE rooms SET data = $2, last_updated = $3 WHERE code = $1`,
		code, raw, ts,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to write room %s: %w", code, err)
	}
	if tag.RowsAffected() == 0 {
		return 0, ErrRoomMissing
	}

	payload := code + ":" + strconv.FormatInt(ts, 10)
	if _, err := s.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, payload); err != nil {
		s.logger.Warn().Err(err).Str("room_code", code).Msg("Failed to notify room update.")
	}

	return ts, nil
}

// Subscribe dedicates one pooled connection to LISTEN and filters
// notifications down to the requested room code.
func (s *PostgresStore) Subscribe(ctx context.Context, code string) (*Subscription, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire listener connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to listen on %s: %w", notifyChannel, err)
	}

	listenCtx, cancel := context.WithCancel(ctx)
	sub := newSubscription(cancel)

	go func() {
		defer close(sub.updates)
		defer conn.Release()

		for {
			notification, err := conn.Conn().WaitForNotification(listenCtx)
			if err != nil {
				if listenCtx.Err() == nil {
					s.logger.Warn().Err(err).Str("room_code", code).Msg("Room update listener stopped unexpectedly.")
				}
				return
			}

			notifiedCode, tsStr, found := strings.Cut(notification.Payload, ":")
			if !found || notifiedCode != code {
				continue
			}

			ts, err := strconv.ParseInt(tsStr, 10, 64)
			if err != nil {
				s.logger.Warn().Str("payload", notification.Payload).Msg("Ignoring malformed room update payload.")
				continue
			}

			sub.deliver(Update{Code: code, LastUpdated: ts})
		}
	}()

	s.logger.Info().Str("room_code", code).Msg("Subscribed to room updates.")
	return sub, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
