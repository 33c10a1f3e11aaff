package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/offboarding/models"
	id "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/domain"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/tx"
)

// PostgresTemplates stores task templates through database/sql.
type PostgresTemplates struct {
	db *sql.DB
}

func NewPostgresTemplates(db *sql.DB) *PostgresTemplates {
	return &PostgresTemplates{db: db}
}

func (s *PostgresTemplates) ListActive(ctx context.Context) ([]*models.Template, error) {
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, `
		SELECT id, name, description, type, automation_kind, integration_id, provider_type, sort_order, active
		FROM offboarding_task_templates
		WHERE active
		ORDER BY sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var out []*models.Template
	for rows.Next() {
		var (
			t             models.Template
			rawID         uuid.UUID
			integrationID uuid.NullUUID
		)
		if err := rows.Scan(&rawID, &t.Name, &t.Description, &t.Type, &t.AutomationKind,
			&integrationID, &t.Provider, &t.SortOrder, &t.Active); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		t.ID = id.TemplateID(rawID)
		if integrationID.Valid {
			v := id.IntegrationID(integrationID.UUID)
			t.IntegrationID = &v
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (s *PostgresTemplates) Save(ctx context.Context, t *models.Template) error {
	var integrationID uuid.NullUUID
	if t.IntegrationID != nil {
		integrationID = uuid.NullUUID{UUID: uuid.UUID(*t.IntegrationID), Valid: true}
	}
	_, err := tx.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO offboarding_task_templates
			(id, name, description, type, automation_kind, integration_id, provider_type, sort_order, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			type = EXCLUDED.type,
			automation_kind = EXCLUDED.automation_kind,
			integration_id = EXCLUDED.integration_id,
			provider_type = EXCLUDED.provider_type,
			sort_order = EXCLUDED.sort_order,
			active = EXCLUDED.active`,
		uuid.UUID(t.ID), t.Name, t.Description, string(t.Type), string(t.AutomationKind),
		integrationID, t.Provider, t.SortOrder, t.Active)
	if err != nil {
		return fmt.Errorf("save template: %w", err)
	}
	return nil
}
