package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Pinger reports database reachability.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// ConnStatus reports whether an optional broker connection is up.
type ConnStatus interface {
	IsConnected() bool
}

// WorkerStatus describes the transcription dispatch path.
type WorkerStatus interface {
	// Status returns "ok", "remote" or a failure description.
	Status() string
}

type HealthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Checks        map[string]string `json:"checks"`
}

type HealthHandler struct {
	db        Pinger
	mqtt      ConnStatus
	worker    WorkerStatus
	archive   string
	version   string
	startTime time.Time
}

// NewHealthHandler creates the health handler. mqtt and worker may be nil;
// archive is the archive backend type or "".
func NewHealthHandler(db Pinger, mqtt ConnStatus, worker WorkerStatus, archive, version string, startTime time.Time) *HealthHandler {
	return &HealthHandler{
		db:        db,
		mqtt:      mqtt,
		worker:    worker,
		archive:   archive,
		version:   version,
		startTime: startTime,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	status := "healthy"
	httpStatus := http.StatusOK

	// Database check
	if h.db == nil || h.db.HealthCheck(r.Context()) != nil {
		checks["database"] = "error"
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	// MQTT check
	if h.mqtt != nil {
		if h.mqtt.IsConnected() {
			checks["mqtt"] = "ok"
		} else {
			checks["mqtt"] = "disconnected"
			if status == "healthy" {
				status = "degraded"
			}
		}
	} else {
		checks["mqtt"] = "not_configured"
	}

	// Transcription worker check
	if h.worker != nil {
		checks["worker"] = h.worker.Status()
	} else {
		checks["worker"] = "not_configured"
		if status == "healthy" {
			status = "degraded"
		}
	}

	if h.archive != "" {
		checks["archive"] = h.archive
	} else {
		checks["archive"] = "not_configured"
	}

	resp := HealthResponse{
		Status:        status,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Checks:        checks,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(resp)
}
