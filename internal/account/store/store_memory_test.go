package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/account/models"
	id "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/domain"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/sentinel"
)

type AccountStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestAccountStoreSuite(t *testing.T) {
	suite.Run(t, new(AccountStoreSuite))
}

func (s *AccountStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func (s *AccountStoreSuite) TestUpsert() {
	employeeID := id.EmployeeID(uuid.New())
	integrationID := id.IntegrationID(uuid.New())
	now := time.Now()

	s.Run("second write for the same pair keeps the first id", func() {
		first := models.NewProvisioningAccount(id.AccountID(uuid.New()), employeeID, integrationID, now)
		s.Require().NoError(s.store.Upsert(s.ctx, first))

		second := models.NewProvisioningAccount(id.AccountID(uuid.New()), employeeID, integrationID, now.Add(time.Minute))
		second.Status = models.StatusActive
		s.Require().NoError(s.store.Upsert(s.ctx, second))
		s.Equal(first.ID, second.ID)

		found, err := s.store.Find(s.ctx, employeeID, integrationID)
		s.Require().NoError(err)
		s.Equal(models.StatusActive, found.Status)
		s.Equal(first.ID, found.ID)
	})

	s.Run("list is scoped to the employee", func() {
		other := models.NewProvisioningAccount(id.AccountID(uuid.New()), id.EmployeeID(uuid.New()), integrationID, now)
		s.Require().NoError(s.store.Upsert(s.ctx, other))

		accounts, err := s.store.ListByEmployee(s.ctx, employeeID)
		s.Require().NoError(err)
		s.Len(accounts, 1)
	})

	s.Run("missing pair", func() {
		_, err := s.store.Find(s.ctx, employeeID, id.IntegrationID(uuid.New()))
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}
