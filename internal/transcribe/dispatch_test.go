package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Gelzieny/tube-link-scribe/internal/scribe"
)

func TestRemoteDispatcher(t *testing.T) {
	var gotAuth string
	var gotBody map[string]string

	tests := []struct {
		name       string
		status     int
		body       string
		wantNil    bool
		wantWorker bool
		wantStatus int
	}{
		{"accepted", http.StatusOK, `{"success":true,"transcriptionId":"t1"}`, true, false, 0},
		{"worker_failed", http.StatusInternalServerError, `{"error":"AI processing failed"}`, false, true, 0},
		{"rejected", http.StatusUnauthorized, `{"error":"Unauthorized"}`, false, false, 401},
		{"missing_fields", http.StatusBadRequest, `{"error":"Missing required fields"}`, false, false, 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotAuth = r.Header.Get("Authorization")
				json.NewDecoder(r.Body).Decode(&gotBody)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			d := NewRemoteDispatcher(srv.URL, 5*time.Second)
			err := d.Dispatch(context.Background(), scribe.DispatchRequest{
				TranscriptionID: "t1",
				VideoURL:        "https://youtu.be/abc",
				Credential:      "tok",
			})

			if gotAuth != "Bearer tok" {
				t.Errorf("Authorization = %q", gotAuth)
			}
			if gotBody["transcriptionId"] != "t1" || gotBody["videoUrl"] != "https://youtu.be/abc" {
				t.Errorf("body = %v", gotBody)
			}
			if tt.wantNil {
				if err != nil {
					t.Fatalf("err = %v, want nil", err)
				}
				return
			}
			if got := errors.Is(err, scribe.ErrWorkerFailed); got != tt.wantWorker {
				t.Errorf("ErrWorkerFailed = %v, want %v (err %v)", got, tt.wantWorker, err)
			}
			if tt.wantStatus != 0 {
				var de *DispatchError
				if !errors.As(err, &de) || de.StatusCode != tt.wantStatus {
					t.Errorf("err = %v, want DispatchError status %d", err, tt.wantStatus)
				}
			}
		})
	}
}

func TestRemoteDispatcher_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := NewRemoteDispatcher(url, time.Second).Dispatch(context.Background(), scribe.DispatchRequest{TranscriptionID: "t1"})
	var de *DispatchError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want *DispatchError", err)
	}
	if errors.Is(err, scribe.ErrWorkerFailed) {
		t.Error("transport failure must not look like a worker failure")
	}
}

func TestErrorText(t *testing.T) {
	if got := errorText([]byte(`{"error":"x","details":"y"}`)); got != "x: y" {
		t.Errorf("got %q", got)
	}
	if got := errorText([]byte(" plain \n")); got != "plain" {
		t.Errorf("got %q", got)
	}
}
