package archive

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/rs/zerolog"
)

func TestAsync(t *testing.T) {
	t.Run("drains_in_order_on_stop", func(t *testing.T) {
		local := NewLocalStore(t.TempDir())
		a := NewAsync(local, 8, zerolog.Nop())
		a.Start()
		ctx := context.Background()

		if err := a.Save(ctx, "u1", "t1", "", "first"); err != nil {
			t.Fatal(err)
		}
		if err := a.Delete(ctx, "u1", "t1"); err != nil {
			t.Fatal(err)
		}
		if err := a.Save(ctx, "u1", "t2", "", "kept"); err != nil {
			t.Fatal(err)
		}
		a.Stop()

		if local.Path("u1", "t1") != "" {
			t.Error("t1 should be deleted after its save")
		}
		data, err := os.ReadFile(local.Path("u1", "t2"))
		if err != nil || string(data) != "kept\n" {
			t.Errorf("t2 = %q, %v", data, err)
		}
		if a.Type() != "local" {
			t.Errorf("Type = %q, want local", a.Type())
		}
	})

	t.Run("full_queue_rejects", func(t *testing.T) {
		a := NewAsync(failingStore{name: "s3"}, 1, zerolog.Nop())
		ctx := context.Background()
		if err := a.Save(ctx, "u", "1", "", "x"); err != nil {
			t.Fatalf("first save: %v", err)
		}
		if err := a.Save(ctx, "u", "2", "", "x"); !errors.Is(err, ErrQueueFull) {
			t.Errorf("second save err = %v, want ErrQueueFull", err)
		}
	})

	t.Run("stopped_rejects", func(t *testing.T) {
		a := NewAsync(failingStore{name: "s3"}, 4, zerolog.Nop())
		a.Start()
		a.Stop()
		a.Stop()
		if err := a.Delete(context.Background(), "u", "1"); !errors.Is(err, ErrQueueFull) {
			t.Errorf("err = %v, want ErrQueueFull", err)
		}
	})
}
