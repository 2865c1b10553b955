/*
Package backup exports room snapshots to S3-compatible object storage.

Rooms in the remote store are never deleted, but the store holds only the
latest snapshot; a backup preserves a point-in-time copy of the full room
record as a JSON object. Backups are optional and enabled by configuration.
*/
package backup

import (
	"context"
	"time"

	"famhub/internal/app/room"
)

// ServiceConfig holds the settings for the backup object store.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// Service is the public interface for room snapshot backups.
type Service interface {
	// Export uploads a point-in-time copy of the room record and returns
	// the object key it was stored under.
	Export(ctx context.Context, code string, rec *room.Record) (string, error)
}

// NewService constructs the backup Service for the given configuration.
// Only S3-compatible backends are supported.
func NewService(cfg ServiceConfig) (Service, error) {
	return newS3Exporter(cfg)
}

// objectKey builds the storage key for one snapshot:
// backups/{code}/{RFC3339 timestamp}.json
func objectKey(code string, now time.Time) string {
	return "backups/" + code + "/" + now.UTC().Format(time.RFC3339) + ".json"
}
