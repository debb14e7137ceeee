package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"workguard360/core/auth"
	"workguard360/core/fanout"
	"workguard360/core/rbac"
)

var streamRequirement = rbac.RequireCapability(rbac.Cap(rbac.ResourceAlert, rbac.ActionRead))

// StreamHandler upgrades authenticated clients to a websocket fed by the
// fan-out hub. Every connection receives global updates; clients opt in to
// per-type channels with joinAlertType/leaveAlertType control messages.
type StreamHandler struct {
	hub    *fanout.Hub
	engine *rbac.Engine
	logger zerolog.Logger
}

func NewStreamHandler(hub *fanout.Hub, engine *rbac.Engine, logger zerolog.Logger) *StreamHandler {
	return &StreamHandler{hub: hub, engine: engine, logger: logger}
}

type streamControl struct {
	Action    string `json:"action"`
	AlertType string `json:"alertType"`
}

func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	principal := auth.FromContext(r.Context())
	if err := h.engine.Authorize(principal, streamRequirement); err != nil {
		writeServiceError(w, err)
		return
	}
	ws, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	sub := h.hub.Subscribe()
	defer h.hub.Unsubscribe(sub)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go func() {
		defer cancel()
		for event := range sub.C {
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			if err := ws.Write(ctx, websocket.MessageText, data); err != nil {
				return
			}
		}
	}()

	for {
		_, msg, err := ws.Read(ctx)
		if err != nil {
			break
		}
		var ctrl streamControl
		if err := json.Unmarshal(msg, &ctrl); err != nil {
			continue
		}
		alertType := strings.TrimSpace(ctrl.AlertType)
		if alertType == "" {
			continue
		}
		switch ctrl.Action {
		case "joinAlertType":
			sub.Join(fanout.TypeTopic(alertType))
		case "leaveAlertType":
			sub.Leave(fanout.TypeTopic(alertType))
		}
	}
	_ = ws.Close(websocket.StatusNormalClosure, "")
}
