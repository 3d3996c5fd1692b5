package api

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Gelzieny/tube-link-scribe/internal/auth"
	"github.com/Gelzieny/tube-link-scribe/internal/i18n"
	"github.com/Gelzieny/tube-link-scribe/internal/scribe"
	"github.com/Gelzieny/tube-link-scribe/internal/youtube"
)

type TranscriptionsHandler struct {
	svc  *scribe.Service
	msgs *i18n.Catalog
}

func NewTranscriptionsHandler(svc *scribe.Service, msgs *i18n.Catalog) *TranscriptionsHandler {
	return &TranscriptionsHandler{svc: svc, msgs: msgs}
}

// transcriptionView is a record as returned by the detail endpoint.
type transcriptionView struct {
	*scribe.Transcription
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	// Refetch tells the client the record is still processing.
	Refetch bool `json:"refetch,omitempty"`
}

func newView(t *scribe.Transcription) transcriptionView {
	return transcriptionView{
		Transcription: t,
		ThumbnailURL:  youtube.ThumbnailURL(youtube.ExtractVideoID(t.VideoURL)),
		Refetch:       t.Status == scribe.StatusProcessing,
	}
}

// ListTranscriptions returns the caller's records, optionally filtered by ?q=.
func (h *TranscriptionsHandler) ListTranscriptions(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	q, _ := QueryString(r, "q")

	list, err := h.svc.Search(r.Context(), p.ID, q)
	if err != nil {
		writeServiceError(w, r, h.msgs, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"transcriptions": list,
		"total":          len(list),
	})
}

type createRequest struct {
	VideoURL string `json:"video_url"`
}

// CreateTranscription submits a video URL for transcription.
func (h *TranscriptionsHandler) CreateTranscription(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	var req createRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, printer(h.msgs, r).Sprintf(i18n.InvalidBody), err.Error())
		return
	}

	t, err := h.svc.Submit(r.Context(), p, req.VideoURL)
	if err != nil {
		writeServiceError(w, r, h.msgs, err)
		return
	}
	WriteJSON(w, http.StatusCreated, newView(t))
}

// GetTranscription returns one of the caller's records.
func (h *TranscriptionsHandler) GetTranscription(w http.ResponseWriter, r *http.Request) {
	t, ok := h.load(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, newView(t))
}

type updateRequest struct {
	Text *string `json:"transcription_text"`
}

// UpdateTranscription replaces the transcript body.
func (h *TranscriptionsHandler) UpdateTranscription(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	id, _ := PathString(r, "id")

	var req updateRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, printer(h.msgs, r).Sprintf(i18n.InvalidBody), err.Error())
		return
	}
	if req.Text == nil {
		WriteError(w, http.StatusBadRequest, printer(h.msgs, r).Sprintf(i18n.TextRequired))
		return
	}

	t, err := h.svc.UpdateText(r.Context(), p.ID, id, *req.Text)
	if err != nil {
		writeServiceError(w, r, h.msgs, err)
		return
	}
	WriteJSON(w, http.StatusOK, newView(t))
}

// DeleteTranscription removes one of the caller's records.
func (h *TranscriptionsHandler) DeleteTranscription(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	id, _ := PathString(r, "id")

	if err := h.svc.Delete(r.Context(), p.ID, id); err != nil {
		writeServiceError(w, r, h.msgs, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DownloadTranscription serves the transcript as a text file.
func (h *TranscriptionsHandler) DownloadTranscription(w http.ResponseWriter, r *http.Request) {
	t, ok := h.load(w, r)
	if !ok {
		return
	}
	if t.Text == nil {
		WriteError(w, http.StatusNotFound, printer(h.msgs, r).Sprintf(i18n.TextUnavailable))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, downloadName(t)))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(*t.Text))
}

// Dashboard returns the summary projection shown on the home page.
func (h *TranscriptionsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	sum, err := h.svc.Dashboard(r.Context(), p.ID)
	if err != nil {
		writeServiceError(w, r, h.msgs, err)
		return
	}
	WriteJSON(w, http.StatusOK, sum)
}

func (h *TranscriptionsHandler) load(w http.ResponseWriter, r *http.Request) (*scribe.Transcription, bool) {
	p, _ := auth.FromContext(r.Context())
	id, _ := PathString(r, "id")
	t, err := h.svc.Get(r.Context(), p.ID, id)
	if err != nil {
		writeServiceError(w, r, h.msgs, err)
		return nil, false
	}
	return t, true
}

var unsafeFilename = regexp.MustCompile(`[^\p{L}\p{N}._ -]+`)

// downloadName is the attachment file name: the title with unsafe characters
// replaced, or "transcricao" when there is no title.
func downloadName(t *scribe.Transcription) string {
	name := "transcricao"
	if t.Title != nil {
		if clean := strings.TrimSpace(unsafeFilename.ReplaceAllString(*t.Title, "_")); clean != "" {
			name = clean
		}
	}
	return name + ".txt"
}

// Routes registers transcription and dashboard routes on the given router.
func (h *TranscriptionsHandler) Routes(r chi.Router) {
	r.Get("/dashboard", h.Dashboard)
	r.Get("/transcriptions", h.ListTranscriptions)
	r.Post("/transcriptions", h.CreateTranscription)
	r.Get("/transcriptions/{id}", h.GetTranscription)
	r.Patch("/transcriptions/{id}", h.UpdateTranscription)
	r.Delete("/transcriptions/{id}", h.DeleteTranscription)
	r.Get("/transcriptions/{id}/download", h.DownloadTranscription)
}
