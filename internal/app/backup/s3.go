package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"famhub/internal/app/room"
	"famhub/internal/pkg/logx"
)

// s3Exporter implements Service against S3-compatible object storage.
type s3Exporter struct {
	cfg      ServiceConfig
	uploader *manager.Uploader
}

// newS3Exporter initializes the S3 client with a custom endpoint so
// S3-compatible providers work alongside AWS itself.
func newS3Exporter(cfg ServiceConfig) (*s3Exporter, error) {
	sdkCfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKeyID,
			cfg.S3SecretAccessKey,
			"",
		)),
		config.WithRegion("auto"),
	)
	if err != nil {
		logx.Error(err, "Failed to load AWS SDK config")
		return nil, errors.New("failed to initialize backup storage configuration")
	}

	client := s3.NewFromConfig(sdkCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		o.UsePathStyle = true
	})

	return &s3Exporter{
		cfg:      cfg,
		uploader: manager.NewUploader(client),
	}, nil
}

// Export serializes the room record and uploads it under a timestamped key.
func (e *s3Exporter) Export(ctx context.Context, code string, rec *room.Record) (string, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("failed to marshal room snapshot: %w", err)
	}

	key := objectKey(code, time.Now())
	contentType := "application/json"

	_, err = e.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      &e.cfg.S3BucketName,
		Key:         &key,
		Body:        bytes.NewReader(raw),
		ContentType: &contentType,
	})
	if err != nil {
		logx.Error(err, "Failed to upload room snapshot", "room_code", code, "key", key)
		return "", errors.New("failed to upload room snapshot")
	}

	logx.Info("Room snapshot exported", "room_code", code, "key", key)
	return key, nil
}
