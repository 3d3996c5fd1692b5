package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/Gelzieny/tube-link-scribe/internal/auth"
	"github.com/Gelzieny/tube-link-scribe/internal/scribe"
	"github.com/Gelzieny/tube-link-scribe/internal/transcribe"
)

// FunctionsHandler serves the worker function endpoint. It runs the job
// synchronously and answers once the record has been reconciled, so a remote
// dispatcher pointed at another instance sees the worker's outcome.
type FunctionsHandler struct {
	svc      *scribe.Service
	worker   transcribe.Processor
	verifier *auth.Verifier
}

func NewFunctionsHandler(svc *scribe.Service, worker transcribe.Processor, verifier *auth.Verifier) *FunctionsHandler {
	return &FunctionsHandler{svc: svc, worker: worker, verifier: verifier}
}

type functionRequest struct {
	TranscriptionID string `json:"transcriptionId"`
	VideoURL        string `json:"videoUrl"`
}

type functionError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// TranscribeVideo processes one record owned by the caller.
func (h *FunctionsHandler) TranscribeVideo(w http.ResponseWriter, r *http.Request) {
	raw, ok := auth.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, functionError{Error: "Unauthorized"})
		return
	}
	p, err := h.verifier.Verify(raw)
	if err != nil {
		WriteJSON(w, http.StatusUnauthorized, functionError{Error: "Unauthorized"})
		return
	}

	var req functionRequest
	if err := DecodeJSON(r, &req); err != nil || req.TranscriptionID == "" || req.VideoURL == "" {
		WriteJSON(w, http.StatusBadRequest, functionError{Error: "Missing required fields"})
		return
	}

	log := hlog.FromRequest(r).With().
		Str("transcription_id", req.TranscriptionID).
		Str("user_id", p.ID).
		Logger()

	t, err := h.svc.Get(r.Context(), p.ID, req.TranscriptionID)
	if err != nil {
		if errors.Is(err, scribe.ErrNotFound) || errors.Is(err, scribe.ErrForbidden) {
			WriteJSON(w, http.StatusNotFound, functionError{Error: "Transcription not found"})
			return
		}
		log.Error().Err(err).Msg("load transcription failed")
		WriteJSON(w, http.StatusInternalServerError, functionError{Error: err.Error()})
		return
	}
	if t.Status.Terminal() {
		WriteJSON(w, http.StatusConflict, functionError{Error: "Transcription already finished"})
		return
	}

	// The caller hanging up does not abort a dispatched job.
	err = h.worker.Process(context.WithoutCancel(r.Context()), transcribe.Job{
		TranscriptionID: req.TranscriptionID,
		VideoURL:        req.VideoURL,
	})
	switch {
	case err == nil:
		WriteJSON(w, http.StatusOK, map[string]any{
			"success":         true,
			"transcriptionId": req.TranscriptionID,
		})
	case errors.Is(err, scribe.ErrWorkerFailed):
		WriteJSON(w, http.StatusInternalServerError, functionError{Error: "AI processing failed", Details: err.Error()})
	default:
		log.Error().Err(err).Msg("transcription function failed")
		WriteJSON(w, http.StatusInternalServerError, functionError{Error: err.Error()})
	}
}

// Routes registers function routes on the given router.
func (h *FunctionsHandler) Routes(r chi.Router) {
	r.Post("/transcribe-video", h.TranscribeVideo)
}
