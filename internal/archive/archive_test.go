package archive

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Gelzieny/tube-link-scribe/internal/config"
)

func TestLocalStore(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStore(dir)
	ctx := context.Background()

	if err := s.Save(ctx, "u1", "t1", "My Video", "hello world"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	path := s.Path("u1", "t1")
	if path == "" {
		t.Fatal("archived file not found")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "My Video\n\nhello world\n" {
		t.Errorf("content = %q", data)
	}

	// Overwrite keeps a single file
	if err := s.Save(ctx, "u1", "t1", "", "edited\n"); err != nil {
		t.Fatal(err)
	}
	data, _ = os.ReadFile(path)
	if string(data) != "edited\n" {
		t.Errorf("content after overwrite = %q", data)
	}

	if err := s.Delete(ctx, "u1", "t1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if s.Path("u1", "t1") != "" {
		t.Error("file should be gone")
	}
	if err := s.Delete(ctx, "u1", "t1"); err != nil {
		t.Errorf("deleting a missing copy should succeed, got %v", err)
	}
}

type failingStore struct{ name string }

func (f failingStore) Save(ctx context.Context, userID, id, title, text string) error {
	return errors.New("down")
}
func (f failingStore) Delete(ctx context.Context, userID, id string) error { return errors.New("down") }
func (f failingStore) Type() string                                          { return f.name }

func TestTiered(t *testing.T) {
	local := NewLocalStore(t.TempDir())
	tiered := Tiered{local, failingStore{name: "s3"}}

	err := tiered.Save(context.Background(), "u1", "t1", "T", "body")
	if err == nil {
		t.Fatal("expected joined error from failing backend")
	}
	if local.Path("u1", "t1") == "" {
		t.Error("healthy backend should still be written")
	}
	if tiered.Type() != "tiered" {
		t.Errorf("Type = %q", tiered.Type())
	}
}

func TestNew(t *testing.T) {
	s, err := New(config.S3Config{}, "", zerolog.Nop())
	if err != nil || s != nil {
		t.Errorf("unconfigured archive = %v, %v; want nil, nil", s, err)
	}

	s, err = New(config.S3Config{}, t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if s.Type() != "local" {
		t.Errorf("Type = %q, want local", s.Type())
	}
}
