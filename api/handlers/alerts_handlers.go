package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"workguard360/config"
	"workguard360/core/alerts"
	"workguard360/core/auth"
)

type AlertsHandler struct {
	cfg    *config.AppConfig
	svc    *alerts.Service
	logger zerolog.Logger
}

func NewAlertsHandler(cfg *config.AppConfig, svc *alerts.Service, logger zerolog.Logger) *AlertsHandler {
	return &AlertsHandler{cfg: cfg, svc: svc, logger: logger}
}

func (h *AlertsHandler) List(w http.ResponseWriter, r *http.Request) {
	principal := auth.FromContext(r.Context())
	q := r.URL.Query()
	filter := alerts.ListFilter{
		Status:   q.Get("status"),
		Severity: q.Get("severity"),
		Type:     q.Get("type"),
		Search:   q.Get("search"),
		Page:     parseIntDefault(q.Get("page"), 1),
		Limit:    h.cfg.Alerts.EffectivePageSize(parseIntDefault(q.Get("limit"), 0)),
	}
	result, err := h.svc.List(r.Context(), filter, principal)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *AlertsHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal := auth.FromContext(r.Context())
	alert, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"), principal)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alert": alert})
}

func (h *AlertsHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal := auth.FromContext(r.Context())
	var payload alerts.CreateInput
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}
	alert, err := h.svc.Create(r.Context(), payload, principal)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"alert": alert})
}

func (h *AlertsHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	principal := auth.FromContext(r.Context())
	alert, err := h.svc.Acknowledge(r.Context(), chi.URLParam(r, "id"), principal)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alert": alert})
}

func (h *AlertsHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	principal := auth.FromContext(r.Context())
	alert, err := h.svc.Resolve(r.Context(), chi.URLParam(r, "id"), principal)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alert": alert})
}
