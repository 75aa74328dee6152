package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oksasatya/reach-identity/internal/domain/entity"
	"github.com/oksasatya/reach-identity/internal/domain/repository"
)

func TestIdentityRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewIdentityRepository()

	h, err := repo.Insert(ctx, &entity.Identity{Kind: entity.KindVolunteer, Username: "vic", Password: "pw"})
	require.NoError(t, err)
	require.NotEmpty(t, h)

	got, err := repo.FindByHandle(ctx, entity.KindVolunteer, h)
	require.NoError(t, err)
	require.Equal(t, h, got.Handle)
	require.False(t, got.Verified)

	_, err = repo.FindByHandle(ctx, entity.KindStudent, h)
	require.ErrorIs(t, err, repository.ErrNotFound, "handles are scoped per kind")

	unverified, err := repo.ListUnverified(ctx, entity.KindVolunteer)
	require.NoError(t, err)
	require.Len(t, unverified, 1)

	require.NoError(t, repo.UpdateVerified(ctx, entity.KindVolunteer, h, true))
	got, err = repo.FindByUsername(ctx, entity.KindVolunteer, "vic")
	require.NoError(t, err)
	require.True(t, got.Verified)

	unverified, err = repo.ListUnverified(ctx, entity.KindVolunteer)
	require.NoError(t, err)
	require.Empty(t, unverified)

	require.NoError(t, repo.Delete(ctx, entity.KindVolunteer, h))
	require.ErrorIs(t, repo.Delete(ctx, entity.KindVolunteer, h), repository.ErrNotFound)
	require.ErrorIs(t, repo.UpdateVerified(ctx, entity.KindVolunteer, h, true), repository.ErrNotFound)
}

func TestIdentityRepository_FindByUsernamePrefersEarliest(t *testing.T) {
	ctx := context.Background()
	repo := NewIdentityRepository()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	first, err := repo.Insert(ctx, &entity.Identity{Kind: entity.KindAdmin, Username: "root", Password: "a"})
	require.NoError(t, err)
	_, err = repo.Insert(ctx, &entity.Identity{Kind: entity.KindAdmin, Username: "root", Password: "b"})
	require.NoError(t, err)

	got, err := repo.FindByUsername(ctx, entity.KindAdmin, "root")
	require.NoError(t, err)
	require.Equal(t, first, got.Handle)

	_, err = repo.FindByUsername(ctx, entity.KindAdmin, "nobody")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestIdentityRepository_FindByUsernameTieBreaksOnHandle(t *testing.T) {
	ctx := context.Background()
	repo := NewIdentityRepository()
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return at }

	var handles []string
	for i := 0; i < 8; i++ {
		h, err := repo.Insert(ctx, &entity.Identity{Kind: entity.KindStudent, Username: "ana", Password: "pw"})
		require.NoError(t, err)
		handles = append(handles, h)
	}
	lowest := handles[0]
	for _, h := range handles[1:] {
		if h < lowest {
			lowest = h
		}
	}

	for i := 0; i < 20; i++ {
		got, err := repo.FindByUsername(ctx, entity.KindStudent, "ana")
		require.NoError(t, err)
		require.Equal(t, lowest, got.Handle)
	}
}
