package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/employee/models"
	id "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/domain"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/sentinel"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/tx"
)

// PostgresStore persists employees in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectEmployee = `
	SELECT id, full_name, work_email, personal_email, department, location,
	       employment_type, job_title, metadata, status, exit_date, updated_at
	FROM employees`

func (s *PostgresStore) FindByID(ctx context.Context, employeeID id.EmployeeID) (*models.Employee, error) {
	row := tx.Exec(ctx, s.db).QueryRowContext(ctx, selectEmployee+` WHERE id = $1`, uuid.UUID(employeeID))
	var (
		e        models.Employee
		rawID    uuid.UUID
		metadata []byte
		exitDate sql.NullTime
	)
	err := row.Scan(&rawID, &e.FullName, &e.WorkEmail, &e.PersonalEmail, &e.Department, &e.Location,
		&e.EmploymentType, &e.JobTitle, &metadata, &e.Status, &exitDate, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find employee: %w", err)
	}
	e.ID = id.EmployeeID(rawID)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
			return nil, fmt.Errorf("decode employee metadata: %w", err)
		}
	}
	if exitDate.Valid {
		e.ExitDate = &exitDate.Time
	}
	return &e, nil
}

func (s *PostgresStore) Save(ctx context.Context, e *models.Employee) error {
	metadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("encode employee metadata: %w", err)
	}
	if e.Metadata == nil {
		metadata = []byte(`{}`)
	}
	var exitDate sql.NullTime
	if e.ExitDate != nil {
		exitDate = sql.NullTime{Time: *e.ExitDate, Valid: true}
	}
	query := `
		INSERT INTO employees (id, full_name, work_email, personal_email, department, location,
		                       employment_type, job_title, metadata, status, exit_date, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			work_email = EXCLUDED.work_email,
			personal_email = EXCLUDED.personal_email,
			department = EXCLUDED.department,
			location = EXCLUDED.location,
			employment_type = EXCLUDED.employment_type,
			job_title = EXCLUDED.job_title,
			metadata = EXCLUDED.metadata,
			status = EXCLUDED.status,
			exit_date = EXCLUDED.exit_date,
			updated_at = EXCLUDED.updated_at
	`
	_, err = tx.Exec(ctx, s.db).ExecContext(ctx, query, uuid.UUID(e.ID), e.FullName, e.WorkEmail, e.PersonalEmail,
		e.Department, e.Location, e.EmploymentType, e.JobTitle, metadata, string(e.Status), exitDate, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save employee: %w", err)
	}
	return nil
}
