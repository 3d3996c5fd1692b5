package scribe

import (
	"context"
	"errors"
	"time"
)

// Repository is the persistent record store.
//
// Implementations return ErrNotFound for missing (or malformed) ids and
// ErrTerminal from FinishTranscription when the record has already left the
// processing state.
type Repository interface {
	InsertTranscription(ctx context.Context, t *Transcription) error
	GetTranscription(ctx context.Context, id string) (*Transcription, error)
	ListTranscriptions(ctx context.Context, userID string) ([]Transcription, error)
	UpdateTranscriptionText(ctx context.Context, id, userID, text string) (*Transcription, error)
	DeleteTranscription(ctx context.Context, id, userID string) error
	FinishTranscription(ctx context.Context, id string, status Status, res Result) (*Transcription, error)

	EnsureProfile(ctx context.Context, p *Profile) (*Profile, error)
	UpdateProfileName(ctx context.Context, userID, name string) (*Profile, error)
	CountTranscriptions(ctx context.Context, userID string) (int, error)
}

// DispatchRequest is the worker invocation payload.
type DispatchRequest struct {
	TranscriptionID string `json:"transcriptionId"`
	VideoURL        string `json:"videoUrl"`
	// Credential is the caller's bearer token, forwarded to remote workers.
	Credential string `json:"-"`
}

// ErrWorkerFailed is wrapped by dispatchers when the worker received the job
// and reported a processing failure. Anything else a Dispatcher returns is a
// dispatch failure.
var ErrWorkerFailed = errors.New("worker reported failure")

// Dispatcher hands a pending record to the transcription worker.
type Dispatcher interface {
	Dispatch(ctx context.Context, req DispatchRequest) error
}

// Event types published on record changes.
const (
	EventCreated   = "transcription.created"
	EventCompleted = "transcription.completed"
	EventFailed    = "transcription.failed"
	EventUpdated   = "transcription.updated"
	EventDeleted   = "transcription.deleted"
)

// Event describes a change to one record.
type Event struct {
	Type            string    `json:"type"`
	TranscriptionID string    `json:"transcription_id"`
	UserID          string    `json:"user_id"`
	Status          Status    `json:"status,omitempty"`
	Time            time.Time `json:"time"`
}

// Notifier receives record change events. Notify must not block.
type Notifier interface {
	Notify(e Event)
}

// Notifiers fans an event out to every notifier in the list.
type Notifiers []Notifier

func (n Notifiers) Notify(e Event) {
	for _, x := range n {
		if x != nil {
			x.Notify(e)
		}
	}
}

// Archive keeps a copy of finished transcript text outside the database.
type Archive interface {
	Save(ctx context.Context, userID, id, title, text string) error
	Delete(ctx context.Context, userID, id string) error
}
