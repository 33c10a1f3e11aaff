package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/integration/models"
	id "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/domain"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/sentinel"
)

type IntegrationStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestIntegrationStoreSuite(t *testing.T) {
	suite.Run(t, new(IntegrationStoreSuite))
}

func (s *IntegrationStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func (s *IntegrationStoreSuite) save(p models.Provider, name string) *models.Integration {
	in, err := models.NewIntegration(id.IntegrationID(uuid.New()), p, name)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Save(s.ctx, in))
	return in
}

func (s *IntegrationStoreSuite) TestFindUsableByProvider() {
	archived := s.save(models.ProviderSlack, "A Slack")
	archived.Archived = true
	s.Require().NoError(s.store.Save(s.ctx, archived))
	live := s.save(models.ProviderSlack, "B Slack")

	found, err := s.store.FindUsableByProvider(s.ctx, models.ProviderSlack)
	s.Require().NoError(err)
	s.Equal(live.ID, found.ID)

	_, err = s.store.FindUsableByProvider(s.ctx, models.ProviderJira)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *IntegrationStoreSuite) TestConnections() {
	in := s.save(models.ProviderJira, "")

	s.Run("none active", func() {
		_, err := s.store.FindActive(s.ctx, in.ID)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("a new active connection replaces the old one", func() {
		first := &models.Connection{ID: id.ConnectionID(uuid.New()), IntegrationID: in.ID, Active: true, EncryptedConfig: []byte("one")}
		second := &models.Connection{ID: id.ConnectionID(uuid.New()), IntegrationID: in.ID, Active: true, EncryptedConfig: []byte("two")}
		s.Require().NoError(s.store.SaveConnection(s.ctx, first))
		s.Require().NoError(s.store.SaveConnection(s.ctx, second))

		active, err := s.store.FindActive(s.ctx, in.ID)
		s.Require().NoError(err)
		s.Equal(second.ID, active.ID)
	})
}
