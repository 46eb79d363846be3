package sessions

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedisRepo(t *testing.T) (*RedisRepository, *mr.Miniredis) {
	t.Helper()
	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return NewRedisRepository(redis.NewClient(&redis.Options{Addr: m.Addr()}), ""), m
}

func TestRedisRepository_RoundTrip(t *testing.T) {
	repo, m := newRedisRepo(t)
	ctx := context.Background()
	s := &Session{
		RefreshToken: "r1",
		Sub:          "sub-1",
		Roles:        []string{"editor"},
		CreatedAt:    time.Now().UTC(),
		ExpiresAt:    time.Now().UTC().Add(time.Minute),
	}
	require.NoError(t, repo.Create(ctx, s))
	require.True(t, m.Exists("pagebuilder:session:r1"))

	got, err := repo.GetByRefresh(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, "sub-1", got.Sub)
	require.Equal(t, []string{"editor"}, got.Roles)

	require.NoError(t, repo.DeleteByRefresh(ctx, "r1"))
	got, err = repo.GetByRefresh(ctx, "r1")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestRedisRepository_TTLExpiry(t *testing.T) {
	repo, m := newRedisRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &Session{RefreshToken: "r2", Sub: "sub-2", ExpiresAt: time.Now().Add(time.Second)}))

	m.FastForward(2 * time.Second)
	got, err := repo.GetByRefresh(ctx, "r2")
	require.NoError(t, err)
	require.Nil(t, got)

	require.Error(t, repo.Create(ctx, &Session{RefreshToken: "r3", ExpiresAt: time.Now().Add(-time.Second)}))
}

func TestService_WithRedis(t *testing.T) {
	repo, _ := newRedisRepo(t)
	svc := NewService(repo)
	ctx := context.Background()
	sess, err := svc.Start(ctx, Session{Sub: "sub-3"}, time.Hour)
	require.NoError(t, err)
	next, err := svc.Rotate(ctx, sess.RefreshToken, time.Hour)
	require.NoError(t, err)
	require.Equal(t, "sub-3", next.Sub)
}
