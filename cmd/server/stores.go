package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	accountservice "github.com/CuracelDev/curacel-peoplev2-sub001/internal/account/service"
	accountstore "github.com/CuracelDev/curacel-peoplev2-sub001/internal/account/store"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/connector/resolver"
	employeestore "github.com/CuracelDev/curacel-peoplev2-sub001/internal/employee/store"
	integrationstore "github.com/CuracelDev/curacel-peoplev2-sub001/internal/integration/store"
	offboardingservice "github.com/CuracelDev/curacel-peoplev2-sub001/internal/offboarding/service"
	offboardingstore "github.com/CuracelDev/curacel-peoplev2-sub001/internal/offboarding/store"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/platform/postgres"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/platform/seed"
	provisioningstore "github.com/CuracelDev/curacel-peoplev2-sub001/internal/provisioning/store"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/audit"
	auditmemory "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/audit/store/memory"
	auditpostgres "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/audit/store/postgres"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/tx"
)

type integrationStore interface {
	accountservice.IntegrationStore
	resolver.ConnectionStore
	seed.IntegrationWriter
}

type ruleStore interface {
	accountservice.RuleStore
	seed.RuleWriter
}

type templateStore interface {
	offboardingservice.TemplateStore
	seed.TemplateWriter
}

// stores is the persistence layer chosen at startup.
type stores struct {
	employees    accountservice.EmployeeStore
	integrations integrationStore
	rules        ruleStore
	accounts     accountservice.AccountStore
	workflows    offboardingservice.WorkflowStore
	templates    templateStore
	audit        audit.Store
	tx           tx.Runner

	// Set only for Postgres.
	db     *sql.DB
	pool   *pgxpool.Pool
	outbox *auditpostgres.Store
}

func (s *stores) seedTargets() seed.Targets {
	return seed.Targets{
		Integrations: s.integrations,
		Rules:        s.rules,
		Templates:    s.templates,
		Employees:    s.employees,
	}
}

func (s *stores) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}

func newMemoryStores() *stores {
	return &stores{
		employees:    employeestore.NewInMemory(),
		integrations: integrationstore.NewInMemory(),
		rules:        provisioningstore.NewInMemory(),
		accounts:     accountstore.NewInMemory(),
		workflows:    offboardingstore.NewInMemory(),
		templates:    offboardingstore.NewInMemoryTemplates(),
		audit:        auditmemory.NewInMemoryStore(),
		tx:           tx.Nop{},
	}
}

// newPostgresStores opens both drivers against dsn and applies the schema.
// Account-side stores share database/sql transactions; the workflow store
// runs on pgx.
func newPostgresStores(ctx context.Context, dsn string, logger *slog.Logger) (*stores, error) {
	db, err := postgres.OpenDB(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	pool, err := postgres.OpenPool(ctx, dsn)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.InfoContext(ctx, "postgres connected")

	outbox := auditpostgres.New(db)
	return &stores{
		employees:    employeestore.NewPostgres(db),
		integrations: integrationstore.NewPostgres(db),
		rules:        provisioningstore.NewPostgres(db),
		accounts:     accountstore.NewPostgres(db),
		workflows:    offboardingstore.NewPgStore(pool),
		templates:    offboardingstore.NewPostgresTemplates(db),
		audit:        outbox,
		tx:           postgres.NewTxRunner(db),
		db:           db,
		pool:         pool,
		outbox:       outbox,
	}, nil
}
