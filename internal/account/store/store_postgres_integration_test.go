//go:build integration

package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/account/models"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/account/store"
	employee "github.com/CuracelDev/curacel-peoplev2-sub001/internal/employee/models"
	employeestore "github.com/CuracelDev/curacel-peoplev2-sub001/internal/employee/store"
	integration "github.com/CuracelDev/curacel-peoplev2-sub001/internal/integration/models"
	integrationstore "github.com/CuracelDev/curacel-peoplev2-sub001/internal/integration/store"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/platform/postgres"
	id "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/domain"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/sentinel"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres     *containers.PostgresContainer
	accounts     *store.PostgresStore
	employees    *employeestore.PostgresStore
	integrations *integrationstore.PostgresStore
	tx           *postgres.TxRunner

	now         time.Time
	employee    *employee.Employee
	integration *integration.Integration
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.accounts = store.NewPostgres(s.postgres.DB)
	s.employees = employeestore.NewPostgres(s.postgres.DB)
	s.integrations = integrationstore.NewPostgres(s.postgres.DB)
	s.tx = postgres.NewTxRunner(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx,
		"app_accounts", "integration_connections", "provisioning_rules", "integrations", "employees"))

	s.now = time.Now().UTC().Truncate(time.Millisecond)
	emp, err := employee.NewEmployee(id.EmployeeID(uuid.New()), "Ada Lovelace", "ada@acme.test", s.now)
	s.Require().NoError(err)
	emp.Department = "Engineering"
	s.Require().NoError(s.employees.Save(ctx, emp))
	s.employee = emp

	in, err := integration.NewIntegration(id.IntegrationID(uuid.New()), integration.ProviderSlack, "Slack")
	s.Require().NoError(err)
	s.Require().NoError(s.integrations.Save(ctx, in))
	s.integration = in
}

// =============================================================================
// Accounts
// =============================================================================

func (s *PostgresStoreSuite) TestAccountUpsert() {
	ctx := context.Background()

	_, err := s.accounts.Find(ctx, s.employee.ID, s.integration.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	acct := models.NewProvisioningAccount(id.AccountID(uuid.New()), s.employee.ID, s.integration.ID, s.now)
	s.Require().NoError(s.accounts.Upsert(ctx, acct))

	acct.ApplyProvisionOutcome(models.ProvisionOutcome{
		Success:        true,
		ExternalUserID: "U123",
		ExternalEmail:  "ada@acme.test",
		Resources:      &models.ProvisionedResources{Channels: []string{"eng", "deploys"}},
	}, s.now.Add(time.Minute))
	s.Require().NoError(s.accounts.Upsert(ctx, acct))

	got, err := s.accounts.Find(ctx, s.employee.ID, s.integration.ID)
	s.Require().NoError(err)
	s.Equal(acct.ID, got.ID)
	s.Equal(models.StatusActive, got.Status)
	s.Equal("U123", got.ExternalUserID)
	s.Require().NotNil(got.ProvisionedResources)
	s.Equal([]string{"eng", "deploys"}, got.ProvisionedResources.Channels)

	list, err := s.accounts.ListByEmployee(ctx, s.employee.ID)
	s.Require().NoError(err)
	s.Len(list, 1)
}

// =============================================================================
// Integrations and connections
// =============================================================================

func (s *PostgresStoreSuite) TestConnections() {
	ctx := context.Background()

	_, err := s.integrations.FindActive(ctx, s.integration.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	first := &integration.Connection{ID: id.ConnectionID(uuid.New()), IntegrationID: s.integration.ID,
		Active: true, EncryptedConfig: []byte(`{"botToken":"old"}`), CreatedAt: s.now}
	second := &integration.Connection{ID: id.ConnectionID(uuid.New()), IntegrationID: s.integration.ID,
		Active: true, EncryptedConfig: []byte(`{"botToken":"new"}`), CreatedAt: s.now.Add(time.Second)}
	s.Require().NoError(s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.integrations.SaveConnection(ctx, first); err != nil {
			return err
		}
		return s.integrations.SaveConnection(ctx, second)
	}))

	got, err := s.integrations.FindActive(ctx, s.integration.ID)
	s.Require().NoError(err)
	s.Equal(second.ID, got.ID)
	s.JSONEq(`{"botToken":"new"}`, string(got.EncryptedConfig))

	usable, err := s.integrations.FindUsableByProvider(ctx, integration.ProviderSlack)
	s.Require().NoError(err)
	s.Equal(s.integration.ID, usable.ID)
}

func (s *PostgresStoreSuite) TestTxRollback() {
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		acct := models.NewProvisioningAccount(id.AccountID(uuid.New()), s.employee.ID, s.integration.ID, s.now)
		if err := s.accounts.Upsert(ctx, acct); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)

	_, err = s.accounts.Find(ctx, s.employee.ID, s.integration.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
