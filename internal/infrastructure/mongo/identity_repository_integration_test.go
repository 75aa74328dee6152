//go:build integration

package mongo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/oksasatya/reach-identity/internal/domain/entity"
	"github.com/oksasatya/reach-identity/internal/domain/repository"
)

type IdentityRepositorySuite struct {
	suite.Suite
	ctx       context.Context
	container *tcmongo.MongoDBContainer
	client    *mongo.Client
	repo      *IdentityRepository
}

func TestIdentityRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(IdentityRepositorySuite))
}

func (s *IdentityRepositorySuite) SetupSuite() {
	s.ctx = context.Background()
	c, err := tcmongo.Run(s.ctx, "mongo:7")
	s.Require().NoError(err)
	s.container = c

	uri, err := c.ConnectionString(s.ctx)
	s.Require().NoError(err)
	s.client, err = Connect(s.ctx, uri)
	s.Require().NoError(err)
	s.repo = NewIdentityRepository(s.client.Database("reach_test"))
	s.Require().NoError(s.repo.EnsureIndexes(s.ctx))
}

func (s *IdentityRepositorySuite) TearDownSuite() {
	if s.client != nil {
		_ = s.client.Disconnect(s.ctx)
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *IdentityRepositorySuite) SetupTest() {
	for _, name := range collections {
		_, err := s.repo.db.Collection(name).DeleteMany(s.ctx, map[string]any{})
		s.Require().NoError(err)
	}
}

func (s *IdentityRepositorySuite) TestLifecycle() {
	h, err := s.repo.Insert(s.ctx, &entity.Identity{
		Kind: entity.KindVolunteer, Username: "vic", Password: "hash", Email: "vic@x.io",
		VerificationCode: "654321", Profile: map[string]any{"volunteer_hours": 12},
	})
	s.Require().NoError(err)

	got, err := s.repo.FindByHandle(s.ctx, entity.KindVolunteer, h)
	s.Require().NoError(err)
	s.Equal("vic@x.io", got.Email)
	s.EqualValues(12, got.Profile["volunteer_hours"])

	_, err = s.repo.FindByHandle(s.ctx, entity.KindStudent, h)
	s.ErrorIs(err, repository.ErrNotFound)

	recs, err := s.repo.ListUnverified(s.ctx, entity.KindVolunteer)
	s.Require().NoError(err)
	s.Len(recs, 1)

	s.Require().NoError(s.repo.UpdateVerified(s.ctx, entity.KindVolunteer, h, true))
	recs, err = s.repo.ListUnverified(s.ctx, entity.KindVolunteer)
	s.Require().NoError(err)
	s.Empty(recs)

	byName, err := s.repo.FindByUsername(s.ctx, entity.KindVolunteer, "vic")
	s.Require().NoError(err)
	s.Equal(h, byName.Handle)
	s.True(byName.Verified)

	s.Require().NoError(s.repo.Delete(s.ctx, entity.KindVolunteer, h))
	s.ErrorIs(s.repo.Delete(s.ctx, entity.KindVolunteer, h), repository.ErrNotFound)
	s.ErrorIs(s.repo.UpdateVerified(s.ctx, entity.KindVolunteer, "zzz", true), repository.ErrNotFound)
}
