package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"workguard360/core/auth"
	"workguard360/core/fanout"
	"workguard360/core/metrics"
	"workguard360/core/rbac"
	"workguard360/core/store"
)

var validAlertType = map[string]struct{}{
	"security":   {},
	"compliance": {},
	"system":     {},
	"emergency":  {},
}

var validAlertSeverity = map[string]struct{}{
	"low":      {},
	"medium":   {},
	"high":     {},
	"critical": {},
}

var (
	transitionRequirement = rbac.RequireCapability(
		rbac.Cap(rbac.ResourceAlert, rbac.ActionUpdate),
		rbac.Cap(rbac.ResourceAlert, rbac.ActionManage),
	)
	readRequirement   = rbac.RequireCapability(rbac.Cap(rbac.ResourceAlert, rbac.ActionRead))
	createRequirement = rbac.RequireCapability(rbac.Cap(rbac.ResourceAlert, rbac.ActionCreate))
)

// Service orchestrates the alert lifecycle: authorize, transition through a
// conditional write, then broadcast. The store is the only writer of alert
// state; the service is the only caller of its transition operations.
type Service struct {
	store  store.AlertsStore
	engine *rbac.Engine
	hub    *fanout.Hub
	audits store.AuditStore
	logger zerolog.Logger
}

func NewService(alerts store.AlertsStore, engine *rbac.Engine, hub *fanout.Hub, audits store.AuditStore, logger zerolog.Logger) *Service {
	return &Service{store: alerts, engine: engine, hub: hub, audits: audits, logger: logger}
}

type CreateInput struct {
	Type        string  `json:"type" validate:"required"`
	Severity    string  `json:"severity" validate:"required"`
	Title       string  `json:"title" validate:"required"`
	Description string  `json:"description" validate:"required"`
	Location    string  `json:"location" validate:"required"`
	TriggeredBy string  `json:"triggeredBy"`
	AssignedTo  *string `json:"assignedTo,omitempty"`
}

type ListFilter struct {
	Status   string
	Severity string
	Type     string
	Search   string
	Page     int
	Limit    int
}

type Pagination struct {
	Total   int  `json:"total"`
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Pages   int  `json:"pages"`
	HasNext bool `json:"hasNext"`
	HasPrev bool `json:"hasPrev"`
}

type ListResult struct {
	Alerts     []store.Alert `json:"alerts"`
	Pagination Pagination    `json:"pagination"`
}

func (s *Service) Create(ctx context.Context, in CreateInput, principal *auth.Principal) (*store.Alert, error) {
	if err := s.engine.Authorize(principal, createRequirement); err != nil {
		return nil, err
	}
	alertType := strings.ToLower(strings.TrimSpace(in.Type))
	severity := strings.ToLower(strings.TrimSpace(in.Severity))
	if _, ok := validAlertType[alertType]; !ok {
		return nil, fmt.Errorf("%w: unknown type %q", ErrValidation, in.Type)
	}
	if _, ok := validAlertSeverity[severity]; !ok {
		return nil, fmt.Errorf("%w: unknown severity %q", ErrValidation, in.Severity)
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: empty title", ErrValidation)
	}
	triggeredBy := strings.TrimSpace(in.TriggeredBy)
	if triggeredBy == "" {
		triggeredBy = principal.Email
	}
	alert := &store.Alert{
		Type:        alertType,
		Severity:    severity,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Location:    in.Location,
		TriggeredBy: triggeredBy,
		Status:      store.AlertStatusActive,
		AssignedTo:  in.AssignedTo,
	}
	if err := s.store.CreateAlert(ctx, alert); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	s.audit(ctx, principal.UserID, "alert.create", "alert %s (%s/%s) created", alert.ID, alert.Type, alert.Severity)
	s.publish(alert)
	return alert, nil
}

func (s *Service) Get(ctx context.Context, id string, principal *auth.Principal) (*store.Alert, error) {
	if err := s.engine.Authorize(principal, readRequirement); err != nil {
		return nil, err
	}
	alert, err := s.store.GetAlert(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if alert == nil {
		return nil, ErrNotFound
	}
	return alert, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter, principal *auth.Principal) (*ListResult, error) {
	if err := s.engine.Authorize(principal, readRequirement); err != nil {
		return nil, err
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 10
	}
	items, total, err := s.store.ListAlerts(ctx, store.AlertFilter{
		Status:   strings.ToLower(strings.TrimSpace(filter.Status)),
		Severity: strings.ToLower(strings.TrimSpace(filter.Severity)),
		Type:     strings.ToLower(strings.TrimSpace(filter.Type)),
		Search:   filter.Search,
		Limit:    limit,
		Offset:   (page - 1) * limit,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if items == nil {
		items = []store.Alert{}
	}
	return &ListResult{Alerts: items, Pagination: paginate(total, page, limit)}, nil
}

// Acknowledge moves an active alert to acknowledged, attributing it to the
// principal. Exactly one of N concurrent callers wins; the rest observe
// ErrInvalidTransition.
func (s *Service) Acknowledge(ctx context.Context, id string, principal *auth.Principal) (*store.Alert, error) {
	if err := s.engine.Authorize(principal, transitionRequirement); err != nil {
		return nil, err
	}
	if err := s.ensureExists(ctx, id); err != nil {
		return nil, err
	}
	updated, err := s.store.AcknowledgeAlert(ctx, id, principal.UserID, time.Now().UTC())
	if err != nil {
		if err == store.ErrConflict {
			metrics.AlertTransitions.WithLabelValues("acknowledge", "conflict").Inc()
			return nil, ErrInvalidTransition
		}
		metrics.AlertTransitions.WithLabelValues("acknowledge", "error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	metrics.AlertTransitions.WithLabelValues("acknowledge", "ok").Inc()
	s.audit(ctx, principal.UserID, "alert.acknowledge", "alert %s acknowledged", id)
	s.logger.Info().Str("alert_id", id).Str("user_id", principal.UserID).Msg("alert acknowledged")
	s.publish(updated)
	return updated, nil
}

// Resolve moves an alert from active or acknowledged to its terminal state.
// acknowledged_by/at are never backfilled for a direct active->resolved.
func (s *Service) Resolve(ctx context.Context, id string, principal *auth.Principal) (*store.Alert, error) {
	if err := s.engine.Authorize(principal, transitionRequirement); err != nil {
		return nil, err
	}
	if err := s.ensureExists(ctx, id); err != nil {
		return nil, err
	}
	updated, err := s.store.ResolveAlert(ctx, id, principal.UserID, time.Now().UTC())
	if err != nil {
		if err == store.ErrConflict {
			metrics.AlertTransitions.WithLabelValues("resolve", "conflict").Inc()
			return nil, ErrInvalidTransition
		}
		metrics.AlertTransitions.WithLabelValues("resolve", "error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	metrics.AlertTransitions.WithLabelValues("resolve", "ok").Inc()
	s.audit(ctx, principal.UserID, "alert.resolve", "alert %s resolved", id)
	s.logger.Info().Str("alert_id", id).Str("user_id", principal.UserID).Msg("alert resolved")
	s.publish(updated)
	return updated, nil
}

func (s *Service) ensureExists(ctx context.Context, id string) error {
	existing, err := s.store.GetAlert(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if existing == nil {
		return ErrNotFound
	}
	return nil
}

// publish broadcasts the updated record on the global channel and the
// type-scoped channel. Delivery failure never surfaces to the caller: the
// transition is committed either way.
func (s *Service) publish(alert *store.Alert) {
	if s.hub == nil || alert == nil {
		return
	}
	data, err := json.Marshal(alert)
	if err != nil {
		s.logger.Error().Err(err).Str("alert_id", alert.ID).Msg("alert broadcast marshal failed")
		return
	}
	s.hub.Publish(fanout.TopicGlobal, "alertUpdated", data)
	s.hub.Publish(fanout.TypeTopic(alert.Type), "alertTypeUpdated", data)
}

func (s *Service) audit(ctx context.Context, userID, action, format string, args ...any) {
	if s.audits == nil {
		return
	}
	s.audits.AddF(ctx, userID, action, format, args...)
}

func paginate(total, page, limit int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{
		Total:   total,
		Page:    page,
		Limit:   limit,
		Pages:   pages,
		HasNext: page < pages,
		HasPrev: page > 1,
	}
}
