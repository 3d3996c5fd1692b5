package scribe

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// requestCache holds recent read results keyed by owner and record id.
// Entries are dropped on mutation, never patched in place.
type requestCache struct {
	lists   *expirable.LRU[string, []Transcription]
	records *expirable.LRU[string, Transcription]
}

func newRequestCache(size int, ttl time.Duration) *requestCache {
	if size <= 0 {
		return nil
	}
	return &requestCache{
		lists:   expirable.NewLRU[string, []Transcription](size, nil, ttl),
		records: expirable.NewLRU[string, Transcription](size, nil, ttl),
	}
}

func listKey(userID string) string { return "list:" + userID }

func recordKey(userID, id string) string { return "rec:" + userID + ":" + id }

func (c *requestCache) list(userID string) ([]Transcription, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.lists.Get(listKey(userID))
	if !ok {
		return nil, false
	}
	return append([]Transcription(nil), v...), true
}

func (c *requestCache) putList(userID string, list []Transcription) {
	if c == nil {
		return
	}
	c.lists.Add(listKey(userID), append([]Transcription(nil), list...))
}

func (c *requestCache) record(userID, id string) (*Transcription, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.records.Get(recordKey(userID, id))
	if !ok {
		return nil, false
	}
	return &v, true
}

func (c *requestCache) putRecord(t *Transcription) {
	if c == nil || t == nil {
		return
	}
	c.records.Add(recordKey(t.UserID, t.ID), *t)
}

// invalidate drops the owner's list and, when id is set, the record entry.
func (c *requestCache) invalidate(userID, id string) {
	if c == nil {
		return
	}
	c.lists.Remove(listKey(userID))
	if id != "" {
		c.records.Remove(recordKey(userID, id))
	}
}
