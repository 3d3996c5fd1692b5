package scribe

import (
	"testing"
	"time"
)

func TestStatusTransitions(t *testing.T) {
	all := []Status{StatusProcessing, StatusCompleted, StatusFailed}
	for _, from := range all {
		for _, to := range all {
			want := from == StatusProcessing && to != StatusProcessing
			if got := from.CanTransition(to); got != want {
				t.Errorf("%s -> %s = %v, want %v", from, to, got, want)
			}
		}
	}
	if Status("queued").Valid() {
		t.Error("unknown status should be invalid")
	}
	if StatusProcessing.Terminal() {
		t.Error("processing is not terminal")
	}
}

func strp(s string) *string { return &s }

func TestFilter(t *testing.T) {
	list := []Transcription{
		{ID: "1", Title: strp("Go Concurrency Patterns"), Channel: strp("Google TechTalks")},
		{ID: "2", Title: strp("Receita de Bolo"), Channel: strp("Cozinha da Ana")},
		{ID: "3"}, // still processing, no title yet
	}

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"empty_returns_all", "", []string{"1", "2", "3"}},
		{"title_match", "concurrency", []string{"1"}},
		{"channel_match_case_insensitive", "COZINHA", []string{"2"}},
		{"no_match", "kubernetes", nil},
		{"whitespace_trimmed", "  bolo ", []string{"2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(list, tt.query)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d records, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("got[%d].ID = %q, want %q", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	list := []Transcription{
		{ID: "a", Status: StatusProcessing, CreatedAt: now.Add(-time.Hour)},
		{ID: "b", Status: StatusCompleted, CreatedAt: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "c", Status: StatusFailed, CreatedAt: time.Date(2026, 9, 30, 23, 59, 0, 0, time.UTC)},
		{ID: "d", Status: StatusProcessing, CreatedAt: time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)},
		{ID: "e", Status: StatusCompleted, CreatedAt: time.Date(2026, 7, 2, 0, 0, 0, 0, time.UTC)},
	}

	s := Summarize(list, now)
	if s.Total != 5 {
		t.Errorf("Total = %d, want 5", s.Total)
	}
	if s.Recent != 2 {
		t.Errorf("Recent = %d, want 2", s.Recent)
	}
	if s.InProgress != 2 {
		t.Errorf("InProgress = %d, want 2", s.InProgress)
	}
	if len(s.Latest) != 4 || s.Latest[0].ID != "a" || s.Latest[3].ID != "d" {
		t.Errorf("Latest = %v, want first four", s.Latest)
	}

	empty := Summarize(nil, now)
	if empty.Total != 0 || len(empty.Latest) != 0 {
		t.Errorf("empty summary = %+v", empty)
	}
}
