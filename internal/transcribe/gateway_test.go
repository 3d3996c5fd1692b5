package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestGatewayClient_Transcribe(t *testing.T) {
	var mu sync.Mutex
	var tried []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("Authorization = %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		mu.Lock()
		tried = append(tried, req.Model)
		mu.Unlock()

		switch req.Model {
		case "gone":
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"not here"}`))
		case "renamed":
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"Model renamed not found"}`))
		case "broken":
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`rate limited`))
		case "empty":
			w.Write([]byte(`{"choices":[]}`))
		default:
			if len(req.Messages) != 2 || req.Messages[0].Role != "system" ||
				!strings.Contains(req.Messages[1].Content, "https://youtu.be/abc") {
				t.Errorf("unexpected messages: %+v", req.Messages)
			}
			w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  transcript  "}}]}`))
		}
	}))
	defer srv.Close()

	tests := []struct {
		name      string
		models    []string
		want      string
		wantTried []string
		wantErr   bool
	}{
		{"first_model_ok", []string{"good", "gone"}, "transcript", []string{"good"}, false},
		{"fallback_on_404", []string{"gone", "good"}, "transcript", []string{"gone", "good"}, false},
		{"fallback_on_missing_model_body", []string{"renamed", "good"}, "transcript", []string{"renamed", "good"}, false},
		{"no_fallback_on_other_error", []string{"broken", "good"}, "", []string{"broken"}, true},
		{"all_missing", []string{"gone", "renamed"}, "", []string{"gone", "renamed"}, true},
		{"empty_answer", []string{"empty"}, "", []string{"empty"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mu.Lock()
			tried = nil
			mu.Unlock()

			g := NewGatewayClient(srv.URL, "key", tt.models, 5*time.Second)
			got, err := g.Transcribe(context.Background(), "https://youtu.be/abc")
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("text = %q, want %q", got, tt.want)
			}
			mu.Lock()
			defer mu.Unlock()
			if strings.Join(tried, ",") != strings.Join(tt.wantTried, ",") {
				t.Errorf("tried %v, want %v", tried, tt.wantTried)
			}
		})
	}
}

func TestGatewayClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	g := NewGatewayClient(srv.URL, "key", []string{"m"}, 5*time.Second)
	_, err := g.Transcribe(context.Background(), "https://youtu.be/abc")
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if se.StatusCode != 500 || se.Model != "m" || se.Body != "upstream exploded" {
		t.Errorf("StatusError = %+v", se)
	}
}

func TestGatewayClient_NotConfigured(t *testing.T) {
	g := NewGatewayClient("http://127.0.0.1:1", "", []string{"m"}, time.Second)
	if _, err := g.Transcribe(context.Background(), "u"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
}
