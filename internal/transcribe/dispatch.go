package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Gelzieny/tube-link-scribe/internal/scribe"
)

var (
	// ErrQueueFull is wrapped by the DispatchError a full Pool returns.
	ErrQueueFull = errors.New("transcription queue is full")
	// ErrPoolStopped is wrapped by the DispatchError a stopped Pool returns.
	ErrPoolStopped = errors.New("transcription worker pool stopped")
)

// DispatchError means the worker never accepted the job.
type DispatchError struct {
	Reason     string
	StatusCode int // remote dispatch only
	Err        error
}

func (e *DispatchError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *DispatchError) Unwrap() error { return e.Err }

// RemoteDispatcher invokes a worker function endpoint over HTTP, forwarding
// the caller's bearer credential. It waits for the worker to finish.
type RemoteDispatcher struct {
	url    string
	client *http.Client
}

var _ scribe.Dispatcher = (*RemoteDispatcher)(nil)

// NewRemoteDispatcher creates a dispatcher for the endpoint at url.
func NewRemoteDispatcher(url string, timeout time.Duration) *RemoteDispatcher {
	return &RemoteDispatcher{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type remoteErrorBody struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// Dispatch posts the request. Transport failures and 4xx answers are
// dispatch errors; a 5xx answer wraps scribe.ErrWorkerFailed.
func (d *RemoteDispatcher) Dispatch(ctx context.Context, dr scribe.DispatchRequest) error {
	payload, err := json.Marshal(dr)
	if err != nil {
		return &DispatchError{Reason: "encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(payload))
	if err != nil {
		return &DispatchError{Reason: "create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if dr.Credential != "" {
		req.Header.Set("Authorization", "Bearer "+dr.Credential)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return &DispatchError{Reason: "worker request", Err: err}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d: %s", scribe.ErrWorkerFailed, resp.StatusCode, errorText(body))
	default:
		return &DispatchError{
			Reason:     fmt.Sprintf("worker rejected request (status %d)", resp.StatusCode),
			StatusCode: resp.StatusCode,
			Err:        errors.New(errorText(body)),
		}
	}
}

func errorText(body []byte) string {
	var eb remoteErrorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Error != "" {
		if eb.Details != "" {
			return eb.Error + ": " + eb.Details
		}
		return eb.Error
	}
	return string(bytes.TrimSpace(body))
}
