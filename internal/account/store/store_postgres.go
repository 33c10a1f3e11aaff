package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/account/models"
	id "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/domain"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/sentinel"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/tx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectAccount = `
	SELECT id, employee_id, integration_id, status, external_user_id, external_email,
	       external_username, provisioned_resources, status_message, last_sync_at,
	       deprovisioned_at, created_at, updated_at
	FROM app_accounts`

func scanAccount(scan func(dest ...any) error) (*models.AppAccount, error) {
	var (
		a                         models.AppAccount
		rawID, rawEmp, rawInt     uuid.UUID
		resources                 []byte
		lastSync, deprovisionedAt sql.NullTime
	)
	err := scan(&rawID, &rawEmp, &rawInt, &a.Status, &a.ExternalUserID, &a.ExternalEmail,
		&a.ExternalUsername, &resources, &a.StatusMessage, &lastSync, &deprovisionedAt,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.ID = id.AccountID(rawID)
	a.EmployeeID = id.EmployeeID(rawEmp)
	a.IntegrationID = id.IntegrationID(rawInt)
	if len(resources) > 0 {
		a.ProvisionedResources = &models.ProvisionedResources{}
		if err := json.Unmarshal(resources, a.ProvisionedResources); err != nil {
			return nil, fmt.Errorf("decode provisioned resources: %w", err)
		}
	}
	if lastSync.Valid {
		a.LastSyncAt = &lastSync.Time
	}
	if deprovisionedAt.Valid {
		a.DeprovisionedAt = &deprovisionedAt.Time
	}
	return &a, nil
}

func (s *PostgresStore) Find(ctx context.Context, employeeID id.EmployeeID, integrationID id.IntegrationID) (*models.AppAccount, error) {
	row := tx.Exec(ctx, s.db).QueryRowContext(ctx, selectAccount+` WHERE employee_id = $1 AND integration_id = $2`,
		uuid.UUID(employeeID), uuid.UUID(integrationID))
	a, err := scanAccount(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	return a, nil
}

// Upsert writes the account keyed by (employee_id, integration_id) and
// reads back the surviving row id.
func (s *PostgresStore) Upsert(ctx context.Context, a *models.AppAccount) error {
	var resources []byte
	if a.ProvisionedResources != nil {
		encoded, err := json.Marshal(a.ProvisionedResources)
		if err != nil {
			return fmt.Errorf("encode provisioned resources: %w", err)
		}
		resources = encoded
	}
	query := `
		INSERT INTO app_accounts (id, employee_id, integration_id, status, external_user_id,
		                          external_email, external_username, provisioned_resources,
		                          status_message, last_sync_at, deprovisioned_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (employee_id, integration_id) DO UPDATE SET
			status = EXCLUDED.status,
			external_user_id = EXCLUDED.external_user_id,
			external_email = EXCLUDED.external_email,
			external_username = EXCLUDED.external_username,
			provisioned_resources = EXCLUDED.provisioned_resources,
			status_message = EXCLUDED.status_message,
			last_sync_at = EXCLUDED.last_sync_at,
			deprovisioned_at = EXCLUDED.deprovisioned_at,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`
	var rawID uuid.UUID
	err := tx.Exec(ctx, s.db).QueryRowContext(ctx, query,
		uuid.UUID(a.ID), uuid.UUID(a.EmployeeID), uuid.UUID(a.IntegrationID), string(a.Status),
		a.ExternalUserID, a.ExternalEmail, a.ExternalUsername, resources, a.StatusMessage,
		nullTime(a.LastSyncAt), nullTime(a.DeprovisionedAt), a.CreatedAt, a.UpdatedAt,
	).Scan(&rawID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert account: %w", err)
	}
	a.ID = id.AccountID(rawID)
	return nil
}

func (s *PostgresStore) ListByEmployee(ctx context.Context, employeeID id.EmployeeID) ([]*models.AppAccount, error) {
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, selectAccount+` WHERE employee_id = $1 ORDER BY created_at, id`,
		uuid.UUID(employeeID))
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()
	var out []*models.AppAccount
	for rows.Next() {
		a, err := scanAccount(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
