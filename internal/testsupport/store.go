// Package testsupport provides in-memory doubles shared by package tests.
package testsupport

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Gelzieny/tube-link-scribe/internal/scribe"
)

// MemoryRepo is an in-memory scribe.Repository with the same ownership and
// terminal-state semantics as the PostgreSQL store.
type MemoryRepo struct {
	mu       sync.Mutex
	records  map[string]scribe.Transcription
	profiles map[string]scribe.Profile

	// Err, when set, is returned by every call.
	Err error
}

// NewMemoryRepo returns an empty repository.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		records:  make(map[string]scribe.Transcription),
		profiles: make(map[string]scribe.Profile),
	}
}

func (m *MemoryRepo) InsertTranscription(ctx context.Context, t *scribe.Transcription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.records[t.ID] = *t
	return nil
}

func (m *MemoryRepo) GetTranscription(ctx context.Context, id string) (*scribe.Transcription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	t, ok := m.records[id]
	if !ok {
		return nil, scribe.ErrNotFound
	}
	return &t, nil
}

func (m *MemoryRepo) ListTranscriptions(ctx context.Context, userID string) ([]scribe.Transcription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	list := []scribe.Transcription{}
	for _, t := range m.records {
		if t.UserID == userID {
			list = append(list, t)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

func (m *MemoryRepo) UpdateTranscriptionText(ctx context.Context, id, userID, text string) (*scribe.Transcription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	t, ok := m.records[id]
	if !ok || t.UserID != userID {
		return nil, scribe.ErrNotFound
	}
	t.Text = &text
	t.UpdatedAt = time.Now().UTC()
	m.records[id] = t
	return &t, nil
}

func (m *MemoryRepo) DeleteTranscription(ctx context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	t, ok := m.records[id]
	if !ok || t.UserID != userID {
		return scribe.ErrNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *MemoryRepo) FinishTranscription(ctx context.Context, id string, status scribe.Status, res scribe.Result) (*scribe.Transcription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	t, ok := m.records[id]
	if !ok {
		return nil, scribe.ErrNotFound
	}
	if !t.Status.CanTransition(status) {
		return nil, scribe.ErrTerminal
	}
	t.Status = status
	t.Text = &res.Text
	if res.Title != "" {
		title := res.Title
		t.Title = &title
	}
	if res.Channel != "" {
		channel := res.Channel
		t.Channel = &channel
	}
	t.UpdatedAt = time.Now().UTC()
	m.records[id] = t
	return &t, nil
}

func (m *MemoryRepo) EnsureProfile(ctx context.Context, p *scribe.Profile) (*scribe.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if existing, ok := m.profiles[p.UserID]; ok {
		return &existing, nil
	}
	m.profiles[p.UserID] = *p
	cp := *p
	return &cp, nil
}

func (m *MemoryRepo) UpdateProfileName(ctx context.Context, userID, name string) (*scribe.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	p, ok := m.profiles[userID]
	if !ok {
		return nil, scribe.ErrNotFound
	}
	p.Name = &name
	m.profiles[userID] = p
	return &p, nil
}

func (m *MemoryRepo) CountTranscriptions(ctx context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	n := 0
	for _, t := range m.records {
		if t.UserID == userID {
			n++
		}
	}
	return n, nil
}

// Count returns the number of stored records across all users.
func (m *MemoryRepo) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// Put stores t directly, bypassing the service.
func (m *MemoryRepo) Put(t scribe.Transcription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[t.ID] = t
}
