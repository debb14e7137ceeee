package alerts

import (
	"context"
	"encoding/json"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"workguard360/core/fanout"
	"workguard360/core/store"
)

// Escalator periodically re-broadcasts critical alerts that have stayed
// active past the configured age. It only nags: alert status is never
// modified here.
type Escalator struct {
	store      store.AlertsStore
	hub        *fanout.Hub
	audits     store.AuditStore
	logger     zerolog.Logger
	schedule   string
	staleAfter time.Duration

	cron *cron.Cron
}

func NewEscalator(alerts store.AlertsStore, hub *fanout.Hub, audits store.AuditStore, logger zerolog.Logger, schedule string, staleAfter time.Duration) *Escalator {
	if staleAfter <= 0 {
		staleAfter = 30 * time.Minute
	}
	return &Escalator{
		store:      alerts,
		hub:        hub,
		audits:     audits,
		logger:     logger,
		schedule:   schedule,
		staleAfter: staleAfter,
	}
}

func (e *Escalator) Start() error {
	if e.cron != nil {
		return nil
	}
	c := cron.New()
	_, err := c.AddFunc(e.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := e.RunOnce(ctx); err != nil {
			e.logger.Error().Err(err).Msg("escalation sweep failed")
		}
	})
	if err != nil {
		return err
	}
	c.Start()
	e.cron = c
	e.logger.Info().Str("schedule", e.schedule).Dur("stale_after", e.staleAfter).Msg("escalation sweeper started")
	return nil
}

func (e *Escalator) Stop() {
	if e.cron == nil {
		return
	}
	ctx := e.cron.Stop()
	<-ctx.Done()
	e.cron = nil
}

// RunOnce performs a single sweep. Exported so tests and the -sweep flag
// can drive it without the cron runner.
func (e *Escalator) RunOnce(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-e.staleAfter)
	stale, err := e.store.ListStaleActive(ctx, store.AlertSeverityCritical, cutoff)
	if err != nil {
		return err
	}
	for i := range stale {
		alert := &stale[i]
		data, err := json.Marshal(alert)
		if err != nil {
			e.logger.Error().Err(err).Str("alert_id", alert.ID).Msg("escalation marshal failed")
			continue
		}
		e.hub.Publish(fanout.TopicGlobal, "alertEscalated", data)
		e.hub.Publish(fanout.TypeTopic(alert.Type), "alertEscalated", data)
		if e.audits != nil {
			e.audits.AddF(ctx, "system", "alert.escalate", "critical alert %s still active after %s", alert.ID, e.staleAfter)
		}
	}
	if len(stale) > 0 {
		e.logger.Warn().Int("count", len(stale)).Msg("stale critical alerts escalated")
	}
	return nil
}
