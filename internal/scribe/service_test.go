package scribe_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Gelzieny/tube-link-scribe/internal/auth"
	"github.com/Gelzieny/tube-link-scribe/internal/scribe"
	"github.com/Gelzieny/tube-link-scribe/internal/testsupport"
)

const videoURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

type fixture struct {
	repo     *testsupport.MemoryRepo
	disp     *testsupport.Dispatcher
	notifier *testsupport.Notifier
	archive  *testsupport.Archive
	svc      *scribe.Service
}

func newFixture(t *testing.T, cacheSize int) *fixture {
	t.Helper()
	f := &fixture{
		repo:     testsupport.NewMemoryRepo(),
		disp:     &testsupport.Dispatcher{},
		notifier: &testsupport.Notifier{},
		archive:  &testsupport.Archive{},
	}
	f.svc = scribe.NewService(scribe.Options{
		Repo:       f.repo,
		Dispatcher: f.disp,
		Notifier:   f.notifier,
		Archive:    f.archive,
		CacheSize:  cacheSize,
		CacheTTL:   time.Minute,
		Log:        zerolog.Nop(),
	})
	return f
}

func principal(id string) *auth.Principal {
	return &auth.Principal{ID: id, Email: id + "@example.com", Token: "tok-" + id}
}

func TestSubmit(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		f := newFixture(t, 0)
		tr, err := f.svc.Submit(context.Background(), principal("alice"), "  "+videoURL+" ")
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		if tr.Status != scribe.StatusProcessing {
			t.Errorf("status = %s, want processing", tr.Status)
		}
		if tr.VideoURL != videoURL {
			t.Errorf("video_url = %q, want trimmed", tr.VideoURL)
		}
		if tr.Text != nil || tr.Title != nil {
			t.Error("new record should have no text or title")
		}
		if f.disp.Calls() != 1 {
			t.Fatalf("dispatch calls = %d, want 1", f.disp.Calls())
		}
		req := f.disp.Requests[0]
		if req.TranscriptionID != tr.ID || req.VideoURL != videoURL || req.Credential != "tok-alice" {
			t.Errorf("dispatch request = %+v", req)
		}
		if got := f.notifier.Types(); len(got) != 1 || got[0] != scribe.EventCreated {
			t.Errorf("events = %v", got)
		}
	})

	t.Run("invalid_url_creates_nothing", func(t *testing.T) {
		f := newFixture(t, 0)
		for _, raw := range []string{"", "not a url", "https://vimeo.com/123", "https://www.youtube.com/@somechannel"} {
			_, err := f.svc.Submit(context.Background(), principal("alice"), raw)
			if !errors.Is(err, scribe.ErrInvalidURL) {
				t.Errorf("Submit(%q) err = %v, want ErrInvalidURL", raw, err)
			}
		}
		if f.repo.Count() != 0 || f.disp.Calls() != 0 {
			t.Errorf("records = %d, dispatches = %d, want 0/0", f.repo.Count(), f.disp.Calls())
		}
	})

	t.Run("dispatch_error_marks_failed", func(t *testing.T) {
		f := newFixture(t, 0)
		f.disp.Err = errors.New("connection refused")
		_, err := f.svc.Submit(context.Background(), principal("alice"), videoURL)
		if !errors.Is(err, scribe.ErrDispatch) {
			t.Fatalf("err = %v, want ErrDispatch", err)
		}
		list, _ := f.svc.List(context.Background(), "alice")
		if len(list) != 1 {
			t.Fatalf("records = %d, want 1", len(list))
		}
		got := list[0]
		if got.Status != scribe.StatusFailed {
			t.Errorf("status = %s, want failed", got.Status)
		}
		if got.Text == nil || !strings.Contains(*got.Text, "connection refused") {
			t.Errorf("text = %v, want dispatch error message", got.Text)
		}
	})

	t.Run("worker_failure_is_not_a_submit_error", func(t *testing.T) {
		f := newFixture(t, 0)
		f.disp.Err = fmt.Errorf("worker returned 500: %w", scribe.ErrWorkerFailed)
		tr, err := f.svc.Submit(context.Background(), principal("alice"), videoURL)
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		got, err := f.svc.Get(context.Background(), "alice", tr.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != scribe.StatusFailed {
			t.Errorf("status = %s, want failed", got.Status)
		}
	})

	t.Run("worker_already_finished", func(t *testing.T) {
		f := newFixture(t, 0)
		// The worker completes synchronously, then the dispatcher reports a failure.
		f.disp.OnDispatch = func(ctx context.Context, req scribe.DispatchRequest) {
			if _, err := f.svc.Complete(context.Background(), req.TranscriptionID, scribe.Result{Title: "T", Text: "hello"}); err != nil {
				t.Errorf("Complete: %v", err)
			}
		}
		f.disp.Err = fmt.Errorf("late: %w", scribe.ErrWorkerFailed)
		tr, err := f.svc.Submit(context.Background(), principal("alice"), videoURL)
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		got, _ := f.svc.Get(context.Background(), "alice", tr.ID)
		if got.Status != scribe.StatusCompleted || *got.Text != "hello" {
			t.Errorf("record = %s %q, want completed record untouched", got.Status, *got.Text)
		}
	})

	t.Run("caller_cancel_does_not_reach_dispatch", func(t *testing.T) {
		f := newFixture(t, 0)
		ctx, cancel := context.WithCancel(context.Background())
		var dispatchErr error
		f.disp.OnDispatch = func(dctx context.Context, req scribe.DispatchRequest) {
			cancel()
			dispatchErr = dctx.Err()
		}
		tr, err := f.svc.Submit(ctx, principal("alice"), videoURL)
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		if dispatchErr != nil {
			t.Errorf("dispatch context err = %v, want nil after caller cancel", dispatchErr)
		}
		got, _ := f.svc.Get(context.Background(), "alice", tr.ID)
		if got.Status != scribe.StatusProcessing {
			t.Errorf("status = %s, want processing", got.Status)
		}
	})

	t.Run("accepted_drops_cached_list", func(t *testing.T) {
		f := newFixture(t, 100)
		f.disp.OnDispatch = func(ctx context.Context, req scribe.DispatchRequest) {
			// Warm the cache while the record is still processing, then finish it
			// behind the service's back as a remote instance would.
			if _, err := f.svc.List(context.Background(), "alice"); err != nil {
				t.Errorf("List: %v", err)
			}
			if _, err := f.repo.FinishTranscription(context.Background(), req.TranscriptionID, scribe.StatusCompleted, scribe.Result{Text: "remote"}); err != nil {
				t.Errorf("FinishTranscription: %v", err)
			}
		}
		if _, err := f.svc.Submit(context.Background(), principal("alice"), videoURL); err != nil {
			t.Fatalf("Submit: %v", err)
		}
		list, _ := f.svc.List(context.Background(), "alice")
		if len(list) != 1 || list[0].Status != scribe.StatusCompleted {
			t.Errorf("list = %+v, want the completed record", list)
		}
	})

	t.Run("repository_error", func(t *testing.T) {
		f := newFixture(t, 0)
		f.repo.Err = errors.New("db down")
		if _, err := f.svc.Submit(context.Background(), principal("alice"), videoURL); err == nil {
			t.Fatal("expected error")
		}
		if f.disp.Calls() != 0 {
			t.Error("dispatcher should not run when insert fails")
		}
	})
}

func TestTerminalState(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	tr, err := f.svc.Submit(ctx, principal("alice"), videoURL)
	if err != nil {
		t.Fatal(err)
	}

	done, err := f.svc.Complete(ctx, tr.ID, scribe.Result{Title: "Title", Channel: "Chan", Text: "body"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if done.Status != scribe.StatusCompleted || *done.Title != "Title" || *done.Channel != "Chan" {
		t.Errorf("completed = %+v", done)
	}
	if !f.archive.Has("alice", tr.ID) {
		t.Error("completed text should be archived")
	}

	if _, err := f.svc.Fail(ctx, tr.ID, "boom"); !errors.Is(err, scribe.ErrTerminal) {
		t.Errorf("Fail after complete err = %v, want ErrTerminal", err)
	}
	if _, err := f.svc.Complete(ctx, tr.ID, scribe.Result{Text: "again"}); !errors.Is(err, scribe.ErrTerminal) {
		t.Errorf("second Complete err = %v, want ErrTerminal", err)
	}

	got, _ := f.svc.Get(ctx, "alice", tr.ID)
	if *got.Text != "body" {
		t.Errorf("text = %q, want body", *got.Text)
	}
}

func TestStatusOf(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()
	tr, _ := f.svc.Submit(ctx, principal("alice"), videoURL)
	if got, err := f.svc.StatusOf(ctx, tr.ID); err != nil || got != scribe.StatusProcessing {
		t.Fatalf("StatusOf = %s, %v, want processing", got, err)
	}
	if _, err := f.svc.Fail(ctx, tr.ID, "boom"); err != nil {
		t.Fatal(err)
	}
	if got, _ := f.svc.StatusOf(ctx, tr.ID); got != scribe.StatusFailed {
		t.Errorf("StatusOf = %s, want failed", got)
	}
	if _, err := f.svc.StatusOf(ctx, "missing"); !errors.Is(err, scribe.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCompleteEmptyText(t *testing.T) {
	f := newFixture(t, 0)
	tr, _ := f.svc.Submit(context.Background(), principal("alice"), videoURL)
	got, err := f.svc.Complete(context.Background(), tr.ID, scribe.Result{Text: "  "})
	if err != nil {
		t.Fatal(err)
	}
	if got.Text == nil || *got.Text != "Transcrição não disponível" {
		t.Errorf("text = %v, want placeholder", got.Text)
	}
}

func TestOwnership(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	tr, _ := f.svc.Submit(ctx, principal("alice"), videoURL)

	if _, err := f.svc.Get(ctx, "bob", tr.ID); !errors.Is(err, scribe.ErrForbidden) {
		t.Errorf("Get by other user err = %v, want ErrForbidden", err)
	}
	if _, err := f.svc.UpdateText(ctx, "bob", tr.ID, "x"); !errors.Is(err, scribe.ErrForbidden) {
		t.Errorf("UpdateText by other user err = %v, want ErrForbidden", err)
	}
	if err := f.svc.Delete(ctx, "bob", tr.ID); !errors.Is(err, scribe.ErrForbidden) {
		t.Errorf("Delete by other user err = %v, want ErrForbidden", err)
	}
	if _, err := f.svc.Get(ctx, "alice", "missing"); !errors.Is(err, scribe.ErrNotFound) {
		t.Errorf("Get missing err = %v, want ErrNotFound", err)
	}

	list, _ := f.svc.List(ctx, "bob")
	if len(list) != 0 {
		t.Errorf("bob sees %d records, want 0", len(list))
	}
}

func TestUpdateTextKeepsStatus(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	tr, _ := f.svc.Submit(ctx, principal("alice"), videoURL)

	got, err := f.svc.UpdateText(ctx, "alice", tr.ID, "draft")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != scribe.StatusProcessing || *got.Text != "draft" {
		t.Errorf("got %s %q", got.Status, *got.Text)
	}
	if f.archive.Has("alice", tr.ID) {
		t.Error("processing records are not archived")
	}
}

func TestDelete(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	tr, _ := f.svc.Submit(ctx, principal("alice"), videoURL)
	f.svc.Complete(ctx, tr.ID, scribe.Result{Text: "body"})

	if err := f.svc.Delete(ctx, "alice", tr.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Get(ctx, "alice", tr.ID); !errors.Is(err, scribe.ErrNotFound) {
		t.Errorf("Get after delete err = %v, want ErrNotFound", err)
	}
	if f.archive.Has("alice", tr.ID) {
		t.Error("archive copy should be removed")
	}
	types := f.notifier.Types()
	if types[len(types)-1] != scribe.EventDeleted {
		t.Errorf("last event = %s, want deleted", types[len(types)-1])
	}
}

func TestCacheInvalidation(t *testing.T) {
	f := newFixture(t, 16)
	ctx := context.Background()
	tr, _ := f.svc.Submit(ctx, principal("alice"), videoURL)

	// Warm both cache entries.
	if _, err := f.svc.List(ctx, "alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Get(ctx, "alice", tr.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.Complete(ctx, tr.ID, scribe.Result{Text: "done"}); err != nil {
		t.Fatal(err)
	}

	got, _ := f.svc.Get(ctx, "alice", tr.ID)
	if got.Status != scribe.StatusCompleted {
		t.Errorf("cached record status = %s, want completed", got.Status)
	}
	list, _ := f.svc.List(ctx, "alice")
	if list[0].Status != scribe.StatusCompleted {
		t.Errorf("cached list status = %s, want completed", list[0].Status)
	}
}

func TestSearchAndDashboard(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	a, _ := f.svc.Submit(ctx, principal("alice"), videoURL)
	f.svc.Submit(ctx, principal("alice"), "https://youtu.be/abcdefghijk")
	f.svc.Complete(ctx, a.ID, scribe.Result{Title: "Go Talks", Text: "x"})

	hits, err := f.svc.Search(ctx, "alice", "go")
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].ID != a.ID {
		t.Errorf("search hits = %v", hits)
	}

	sum, err := f.svc.Dashboard(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if sum.Total != 2 || sum.InProgress != 1 || sum.Recent != 2 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestProfile(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	p := &auth.Principal{ID: "alice", Email: "alice@example.com", Name: "Alice"}
	f.svc.Submit(ctx, p, videoURL)

	view, err := f.svc.Profile(ctx, p)
	if err != nil {
		t.Fatal(err)
	}
	if view.UserID != "alice" || *view.Email != "alice@example.com" || view.TranscriptionCount != 1 {
		t.Errorf("profile = %+v", view)
	}

	view, err = f.svc.UpdateProfileName(ctx, p, "  Alice B. ")
	if err != nil {
		t.Fatal(err)
	}
	if *view.Name != "Alice B." {
		t.Errorf("name = %q", *view.Name)
	}

	again, _ := f.svc.Profile(ctx, p)
	if *again.Name != "Alice B." {
		t.Error("profile should not be recreated on later access")
	}
}
