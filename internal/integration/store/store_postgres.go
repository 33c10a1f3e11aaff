package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/integration/models"
	id "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/domain"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/sentinel"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/tx"
)

// PostgresStore persists integrations and connections in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectIntegration = `SELECT id, type, name, enabled, archived FROM integrations`

func scanIntegration(scan func(dest ...any) error) (*models.Integration, error) {
	var (
		in    models.Integration
		rawID uuid.UUID
	)
	if err := scan(&rawID, &in.Provider, &in.Name, &in.Enabled, &in.Archived); err != nil {
		return nil, err
	}
	in.ID = id.IntegrationID(rawID)
	return &in, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, integrationID id.IntegrationID) (*models.Integration, error) {
	in, err := scanIntegration(tx.Exec(ctx, s.db).QueryRowContext(ctx, selectIntegration+` WHERE id = $1`, uuid.UUID(integrationID)).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find integration: %w", err)
	}
	return in, nil
}

func (s *PostgresStore) FindUsableByProvider(ctx context.Context, provider models.Provider) (*models.Integration, error) {
	row := tx.Exec(ctx, s.db).QueryRowContext(ctx,
		selectIntegration+` WHERE type = $1 AND enabled AND NOT archived ORDER BY name, id LIMIT 1`, string(provider))
	in, err := scanIntegration(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find integration by provider: %w", err)
	}
	return in, nil
}

func (s *PostgresStore) ListUsable(ctx context.Context) ([]*models.Integration, error) {
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, selectIntegration+` WHERE enabled AND NOT archived ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list integrations: %w", err)
	}
	defer rows.Close()
	var out []*models.Integration
	for rows.Next() {
		in, err := scanIntegration(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan integration: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Save(ctx context.Context, in *models.Integration) error {
	query := `
		INSERT INTO integrations (id, type, name, enabled, archived)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			type = EXCLUDED.type,
			name = EXCLUDED.name,
			enabled = EXCLUDED.enabled,
			archived = EXCLUDED.archived
	`
	if _, err := tx.Exec(ctx, s.db).ExecContext(ctx, query, uuid.UUID(in.ID), string(in.Provider), in.Name, in.Enabled, in.Archived); err != nil {
		return fmt.Errorf("save integration: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindActive(ctx context.Context, integrationID id.IntegrationID) (*models.Connection, error) {
	var (
		conn           models.Connection
		rawID, rawInID uuid.UUID
	)
	err := tx.Exec(ctx, s.db).QueryRowContext(ctx, `
		SELECT id, integration_id, active, encrypted_config, created_at
		FROM integration_connections
		WHERE integration_id = $1 AND active
		ORDER BY created_at DESC
		LIMIT 1`, uuid.UUID(integrationID)).Scan(&rawID, &rawInID, &conn.Active, &conn.EncryptedConfig, &conn.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find active connection: %w", err)
	}
	conn.ID = id.ConnectionID(rawID)
	conn.IntegrationID = id.IntegrationID(rawInID)
	return &conn, nil
}

// SaveConnection stores conn. When conn is active, the integration's other
// connections are deactivated in the same statement batch; callers wanting
// atomicity run it inside tx.Runner.
func (s *PostgresStore) SaveConnection(ctx context.Context, conn *models.Connection) error {
	exec := tx.Exec(ctx, s.db)
	if conn.Active {
		if _, err := exec.ExecContext(ctx,
			`UPDATE integration_connections SET active = false WHERE integration_id = $1 AND id <> $2`,
			uuid.UUID(conn.IntegrationID), uuid.UUID(conn.ID)); err != nil {
			return fmt.Errorf("deactivate connections: %w", err)
		}
	}
	_, err := exec.ExecContext(ctx, `
		INSERT INTO integration_connections (id, integration_id, active, encrypted_config, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			active = EXCLUDED.active,
			encrypted_config = EXCLUDED.encrypted_config`,
		uuid.UUID(conn.ID), uuid.UUID(conn.IntegrationID), conn.Active, conn.EncryptedConfig, conn.CreatedAt)
	if err != nil {
		return fmt.Errorf("save connection: %w", err)
	}
	return nil
}
