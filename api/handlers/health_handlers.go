package handlers

import (
	"net/http"

	"workguard360/core/fanout"
)

type HealthHandler struct {
	hub *fanout.Hub
}

func NewHealthHandler(hub *fanout.Hub) *HealthHandler {
	return &HealthHandler{hub: hub}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"subscribers": h.hub.SubscriberCount(),
	})
}
