package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/provisioning/models"
	id "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/domain"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/tx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ListActive(ctx context.Context, integrationID id.IntegrationID) ([]*models.Rule, error) {
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, `
		SELECT id, integration_id, name, condition, provision_data, priority, active
		FROM provisioning_rules
		WHERE integration_id = $1 AND active
		ORDER BY priority DESC, id`, uuid.UUID(integrationID))
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var out []*models.Rule
	for rows.Next() {
		var (
			r               models.Rule
			rawID, rawInt   uuid.UUID
			condition, data []byte
		)
		if err := rows.Scan(&rawID, &rawInt, &r.Name, &condition, &data, &r.Priority, &r.Active); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		r.ID = id.RuleID(rawID)
		r.IntegrationID = id.IntegrationID(rawInt)
		if err := json.Unmarshal(condition, &r.Condition); err != nil {
			return nil, fmt.Errorf("decode rule %s condition: %w", r.ID, err)
		}
		r.Data = json.RawMessage(data)
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Save(ctx context.Context, r *models.Rule) error {
	condition, err := json.Marshal(r.Condition)
	if err != nil {
		return fmt.Errorf("encode rule condition: %w", err)
	}
	data := []byte(r.Data)
	if len(data) == 0 {
		data = []byte(`{}`)
	}
	_, err = tx.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO provisioning_rules (id, integration_id, name, condition, provision_data, priority, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			condition = EXCLUDED.condition,
			provision_data = EXCLUDED.provision_data,
			priority = EXCLUDED.priority,
			active = EXCLUDED.active`,
		uuid.UUID(r.ID), uuid.UUID(r.IntegrationID), r.Name, condition, data, r.Priority, r.Active)
	if err != nil {
		return fmt.Errorf("save rule: %w", err)
	}
	return nil
}
