package transcribe

import (
	"context"

	"github.com/Gelzieny/tube-link-scribe/internal/scribe"
	"github.com/Gelzieny/tube-link-scribe/internal/youtube"
)

// Transcriber produces transcript text for a video URL.
type Transcriber interface {
	Transcribe(ctx context.Context, videoURL string) (string, error)
}

// MetadataSource resolves display metadata for a video URL.
type MetadataSource interface {
	Lookup(ctx context.Context, videoURL string) (*youtube.Metadata, error)
}

// ResultWriter persists the outcome of a job. scribe.Service implements it.
type ResultWriter interface {
	StatusOf(ctx context.Context, id string) (scribe.Status, error)
	Complete(ctx context.Context, id string, res scribe.Result) (*scribe.Transcription, error)
	Fail(ctx context.Context, id, message string) (*scribe.Transcription, error)
}
