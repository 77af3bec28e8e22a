package main

import (
	"context"

	"firmgate/internal/admin"
	adminstore "firmgate/internal/admin/store"
	"firmgate/internal/audit"
	outboxpostgres "firmgate/internal/audit/outbox/postgres"
	auditstore "firmgate/internal/audit/store"
	firmservice "firmgate/internal/firm/service"
	firmstore "firmgate/internal/firm/store"
	"firmgate/internal/platform/database"
	tokenservice "firmgate/internal/token/service"
	tokenstore "firmgate/internal/token/store"
	"firmgate/pkg/platform/tx"
)

type firmStore interface {
	firmservice.Store
	tokenservice.FirmStore
}

type txRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// stores groups the persistence the server wires: postgres when a pool is
// open, in-memory otherwise. Every service shares the one tx runner.
type stores struct {
	tx     txRunner
	firms  firmStore
	tokens tokenservice.Store
	admins admin.UserStore
	audit  audit.Store
	outbox audit.OutboxAppender
}

func newStores(pool *database.Pool, outboxEnabled bool) *stores {
	if pool == nil {
		return &stores{
			tx:     tx.NewInMemory(),
			firms:  firmstore.NewInMemory(),
			tokens: tokenstore.NewInMemory(),
			admins: adminstore.NewInMemory(),
			audit:  auditstore.NewInMemoryStore(),
		}
	}

	db := pool.DB()
	st := &stores{
		tx:     tx.NewPostgres(db),
		firms:  firmstore.NewPostgres(db),
		tokens: tokenstore.NewPostgres(db),
		admins: adminstore.NewPostgres(db),
		audit:  auditstore.NewPostgres(db),
	}
	if outboxEnabled {
		st.outbox = outboxpostgres.New(db)
	}
	return st
}
