// Package archive keeps a plain-text copy of finished transcripts outside the
// database, on local disk, in an S3-compatible bucket, or both.
package archive

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Gelzieny/tube-link-scribe/internal/config"
	"github.com/Gelzieny/tube-link-scribe/internal/scribe"
)

// Store is a transcript archive backend.
type Store interface {
	scribe.Archive
	// Type returns "local", "s3" or "tiered".
	Type() string
}

// New builds the archive from config. It returns nil, nil when neither a
// directory nor a bucket is configured. A configured but unreachable bucket
// is an error.
func New(cfg config.S3Config, dir string, log zerolog.Logger) (Store, error) {
	var stores []Store
	if dir != "" {
		stores = append(stores, NewLocalStore(dir))
	}
	if cfg.Enabled() {
		s3store, err := NewS3Store(cfg, log)
		if err != nil {
			return nil, fmt.Errorf("S3 init failed: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s3store.HeadBucket(ctx); err != nil {
			return nil, fmt.Errorf("S3 startup check failed (bucket=%q endpoint=%q): %w",
				cfg.Bucket, cfg.Endpoint, err)
		}
		log.Info().Str("bucket", cfg.Bucket).Str("endpoint", cfg.Endpoint).Msg("S3 connection verified")
		stores = append(stores, s3store)
	}

	switch len(stores) {
	case 0:
		return nil, nil
	case 1:
		return stores[0], nil
	default:
		return Tiered(stores), nil
	}
}

// Tiered writes to every backend in order and reports all failures.
type Tiered []Store

func (t Tiered) Save(ctx context.Context, userID, id, title, text string) error {
	var errs []error
	for _, s := range t {
		if err := s.Save(ctx, userID, id, title, text); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Type(), err))
		}
	}
	return errors.Join(errs...)
}

func (t Tiered) Delete(ctx context.Context, userID, id string) error {
	var errs []error
	for _, s := range t {
		if err := s.Delete(ctx, userID, id); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Type(), err))
		}
	}
	return errors.Join(errs...)
}

func (t Tiered) Type() string { return "tiered" }

// key is the object path of a transcript: <user>/<id>.txt
func key(userID, id string) string {
	return userID + "/" + id + ".txt"
}

// document renders the archived file body: the title line, a blank line and
// the text.
func document(title, text string) []byte {
	var b strings.Builder
	if title != "" {
		b.WriteString(title)
		b.WriteString("\n\n")
	}
	b.WriteString(text)
	if !strings.HasSuffix(text, "\n") {
		b.WriteString("\n")
	}
	return []byte(b.String())
}
