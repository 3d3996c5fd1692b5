package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Gelzieny/tube-link-scribe/internal/auth"
	"github.com/Gelzieny/tube-link-scribe/internal/i18n"
	"github.com/Gelzieny/tube-link-scribe/internal/scribe"
)

type ProfileHandler struct {
	svc  *scribe.Service
	msgs *i18n.Catalog
}

func NewProfileHandler(svc *scribe.Service, msgs *i18n.Catalog) *ProfileHandler {
	return &ProfileHandler{svc: svc, msgs: msgs}
}

func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	view, err := h.svc.Profile(r.Context(), p)
	if err != nil {
		writeServiceError(w, r, h.msgs, err)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

type profileUpdate struct {
	Name string `json:"name"`
}

func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	var req profileUpdate
	if err := DecodeJSON(r, &req); err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, printer(h.msgs, r).Sprintf(i18n.InvalidBody), err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		WriteError(w, http.StatusBadRequest, printer(h.msgs, r).Sprintf(i18n.NameRequired))
		return
	}

	view, err := h.svc.UpdateProfileName(r.Context(), p, req.Name)
	if err != nil {
		writeServiceError(w, r, h.msgs, err)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

// Routes registers profile routes on the given router.
func (h *ProfileHandler) Routes(r chi.Router) {
	r.Get("/profile", h.GetProfile)
	r.Patch("/profile", h.UpdateProfile)
}
