package testsupport

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Gelzieny/tube-link-scribe/internal/scribe"
)

// Dispatcher records dispatch requests and returns Err (nil by default).
// OnDispatch, when set, runs before returning, e.g. to act as the worker.
type Dispatcher struct {
	mu         sync.Mutex
	Requests   []scribe.DispatchRequest
	Err        error
	OnDispatch func(ctx context.Context, req scribe.DispatchRequest)
}

func (d *Dispatcher) Dispatch(ctx context.Context, req scribe.DispatchRequest) error {
	d.mu.Lock()
	d.Requests = append(d.Requests, req)
	fn, err := d.OnDispatch, d.Err
	d.mu.Unlock()
	if fn != nil {
		fn(ctx, req)
	}
	return err
}

// Calls returns how many times Dispatch ran.
func (d *Dispatcher) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Requests)
}

// Notifier collects published events.
type Notifier struct {
	mu     sync.Mutex
	events []scribe.Event
}

func (n *Notifier) Notify(e scribe.Event) {
	n.mu.Lock()
	n.events = append(n.events, e)
	n.mu.Unlock()
}

// Types returns the event types seen so far, in order.
func (n *Notifier) Types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.events))
	for i, e := range n.events {
		out[i] = e.Type
	}
	return out
}

// Archive records saves and deletes in memory.
type Archive struct {
	mu    sync.Mutex
	Saved map[string]string
}

func (a *Archive) Save(ctx context.Context, userID, id, title, text string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Saved == nil {
		a.Saved = make(map[string]string)
	}
	a.Saved[userID+"/"+id] = text
	return nil
}

func (a *Archive) Delete(ctx context.Context, userID, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.Saved, userID+"/"+id)
	return nil
}

// Has reports whether a copy exists for the record.
func (a *Archive) Has(userID, id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.Saved[userID+"/"+id]
	return ok
}

// TestSecret signs tokens minted by Token.
const TestSecret = "test-secret"

// Token mints a valid HS256 session token for userID.
func Token(t testing.TB, userID string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": userID + "@example.com",
		"aud":   "authenticated",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(TestSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}
