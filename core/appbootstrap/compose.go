// Package appbootstrap wires the application together: stores, policy,
// engine, fan-out, lifecycle service, escalation sweeper and the HTTP server.
package appbootstrap

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"workguard360/api"
	"workguard360/config"
	"workguard360/core/alerts"
	"workguard360/core/auth"
	"workguard360/core/fanout"
	"workguard360/core/rbac"
	"workguard360/core/store"
)

type App struct {
	Server    *api.Server
	Escalator *alerts.Escalator

	Users  store.UsersStore
	Roles  store.RolesStore
	Alerts store.AlertsStore
	Audits store.AuditStore

	Policy *rbac.Policy
	Engine *rbac.Engine
	Hub    *fanout.Hub

	cfg    *config.AppConfig
	logger zerolog.Logger
}

// Compose builds the dependency graph. The casbin policy is compiled from
// the role store here; RefreshPolicy rebuilds it after role mutations.
func Compose(ctx context.Context, cfg *config.AppConfig, db *store.DB, logger zerolog.Logger) (*App, error) {
	users := store.NewUsersStore(db)
	roles := store.NewRolesStore(db)
	alertsStore := store.NewAlertsStore(db)
	audits := store.NewAuditStore(db)

	roleList, err := roles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}
	policy, err := rbac.NewPolicy(roleList)
	if err != nil {
		return nil, fmt.Errorf("compile policy: %w", err)
	}
	engine := rbac.NewEngine(policy)

	hub := fanout.NewHub(cfg.Stream.SendBuffer, logger)
	resolver := auth.NewResolver(users, roles)
	svc := alerts.NewService(alertsStore, engine, hub, audits, logger)
	escalator := alerts.NewEscalator(
		alertsStore, hub, audits, logger,
		cfg.Alerts.Escalation.Schedule, cfg.Alerts.Escalation.StaleAfter,
	)
	server := api.NewServer(cfg, logger, resolver, svc, engine, hub)

	return &App{
		Server:    server,
		Escalator: escalator,
		Users:     users,
		Roles:     roles,
		Alerts:    alertsStore,
		Audits:    audits,
		Policy:    policy,
		Engine:    engine,
		Hub:       hub,
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// RefreshPolicy recompiles the capability matcher from the role store so a
// role edit takes effect without a restart.
func (a *App) RefreshPolicy(ctx context.Context) error {
	roleList, err := a.Roles.List(ctx)
	if err != nil {
		return err
	}
	return a.Policy.Rebuild(roleList)
}

// Run starts the escalation sweeper (when enabled) and blocks in the HTTP
// server until the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a.cfg.Alerts.Escalation.Enabled {
		if err := a.Escalator.Start(); err != nil {
			return fmt.Errorf("start escalator: %w", err)
		}
		defer a.Escalator.Stop()
	}
	return a.Server.Run(ctx)
}
