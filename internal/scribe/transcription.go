// Package scribe implements the transcription request lifecycle: submission,
// owner-scoped access, worker reconciliation and the dashboard projections.
package scribe

import (
	"errors"
	"strings"
	"time"
)

// Status is the processing state of a transcription request.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether s may move to next. The only legal moves are
// processing -> completed and processing -> failed.
func (s Status) CanTransition(next Status) bool {
	return s == StatusProcessing && next.Terminal()
}

var (
	ErrInvalidURL = errors.New("invalid URL")
	ErrNotFound   = errors.New("transcription not found")
	ErrForbidden  = errors.New("transcription belongs to another user")
	ErrDispatch   = errors.New("transcription dispatch failed")
	ErrTerminal   = errors.New("transcription already finished")
)

// Transcription is a single transcription request and its result.
type Transcription struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	VideoURL  string    `json:"video_url"`
	Title     *string   `json:"video_title"`
	Channel   *string   `json:"channel_name"`
	Text      *string   `json:"transcription_text"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OwnedBy reports whether userID owns t.
func (t *Transcription) OwnedBy(userID string) bool {
	return t.UserID == userID
}

// Profile is the per-user display profile.
type Profile struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      *string   `json:"name"`
	Email     *string   `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Result is what the worker writes back on success.
type Result struct {
	Title   string
	Channel string
	Text    string
}

// Filter returns the records whose title or channel contain query,
// case-insensitively. An empty query returns list unchanged.
func Filter(list []Transcription, query string) []Transcription {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return list
	}
	out := make([]Transcription, 0, len(list))
	for _, t := range list {
		if containsFold(t.Title, q) || containsFold(t.Channel, q) {
			out = append(out, t)
		}
	}
	return out
}

func containsFold(s *string, lowerQuery string) bool {
	return s != nil && strings.Contains(strings.ToLower(*s), lowerQuery)
}

// Summary is the dashboard projection of a user's records.
type Summary struct {
	Total      int             `json:"total"`
	Recent     int             `json:"recent"`
	InProgress int             `json:"in_progress"`
	Latest     []Transcription `json:"latest"`
}

// latestCount is how many records the dashboard shows.
const latestCount = 4

// Summarize projects a newest-first list into dashboard counts. Recent counts
// records created in the calendar month (UTC) containing now.
func Summarize(list []Transcription, now time.Time) Summary {
	now = now.UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	s := Summary{Total: len(list)}
	for _, t := range list {
		if !t.CreatedAt.Before(monthStart) {
			s.Recent++
		}
		if t.Status == StatusProcessing {
			s.InProgress++
		}
	}
	n := latestCount
	if len(list) < n {
		n = len(list)
	}
	s.Latest = append([]Transcription{}, list[:n]...)
	return s
}
