package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/dvloznov/momo-tracker/internal/domain"
)

// GCS uploads the JSON snapshot to a Cloud Storage object.
type GCS struct {
	bucket string
	object string
	opts   []option.ClientOption
}

// NewGCS parses "bucket/path/object.json".
func NewGCS(target string, o Options) (*GCS, error) {
	bucket, object, ok := strings.Cut(target, "/")
	if !ok || bucket == "" || object == "" {
		return nil, fmt.Errorf("invalid gcs target %q, expected bucket/object", target)
	}
	return &GCS{bucket: bucket, object: object, opts: o.gcpOptions()}, nil
}

// Write implements the Sink interface.
func (g *GCS) Write(ctx context.Context, txns []*domain.Transaction) error {
	data, err := encodeSnapshot(txns)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	client, err := storage.NewClient(ctx, g.opts...)
	if err != nil {
		return fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(g.bucket).Object(g.object).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write gs://%s/%s: %w", g.bucket, g.object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close gs://%s/%s: %w", g.bucket, g.object, err)
	}

	return nil
}
