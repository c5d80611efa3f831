//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"verichain/internal/credential/models"
	"verichain/internal/credential/store"
	"verichain/pkg/domain"
	"verichain/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *store.RedisStore
	owner domain.Address
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = store.NewRedisStore(s.redis.Client, time.Hour)
	owner, err := domain.ParseAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	s.Require().NoError(err)
	s.owner = owner
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	recorded := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.Require().NoError(s.store.Save(ctx, s.owner, store.Entry{
		ID:             12,
		Registry:       s.owner,
		ChainID:        11155111,
		Role:           store.RoleIssuer,
		Type:           models.ProjectValidation,
		Title:          "Capstone",
		TransactionRef: "0xfeed",
		RecordedAt:     recorded,
	}))
	s.Require().NoError(s.store.Save(ctx, s.owner, store.Entry{ID: 3, Role: store.RoleRecipient}))

	got, err := s.store.List(ctx, s.owner)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(domain.CredentialID(3), got[0].ID)
	s.Equal(domain.CredentialID(12), got[1].ID)
	s.Equal(models.ProjectValidation, got[1].Type)
	s.Equal(s.owner, got[1].Registry)
	s.Equal(uint64(11155111), got[1].ChainID)
	s.True(recorded.Equal(got[1].RecordedAt))

	ttl, err := s.redis.Client.TTL(ctx, "verichain:credentials:"+s.owner.String()).Result()
	s.Require().NoError(err)
	s.Greater(ttl, 59*time.Minute)
}

func (s *RedisStoreSuite) TestRemove() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, s.owner, store.Entry{ID: 1}))
	s.Require().NoError(s.store.Remove(ctx, s.owner, 1))

	got, err := s.store.List(ctx, s.owner)
	s.Require().NoError(err)
	s.Empty(got)
}
