package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredisBlacklist(t *testing.T) (*RedisTokenBlacklist, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisTokenBlacklist(client), mr
}

func TestRedisTokenBlacklist_RevokeJTI(t *testing.T) {
	bl, mr := newMiniredisBlacklist(t)
	ctx := context.Background()

	require.NoError(t, bl.Revoke(ctx, "jti-1", time.Minute))

	revoked, err := bl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = bl.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)

	mr.FastForward(2 * time.Minute)
	revoked, err = bl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisTokenBlacklist_RevokeUser(t *testing.T) {
	bl, _ := newMiniredisBlacklist(t)
	ctx := context.Background()
	issued := time.Now().Add(-time.Hour)

	revoked, err := bl.IsUserRevoked(ctx, "user-1", issued)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, bl.RevokeUser(ctx, "user-1", time.Hour))
	revoked, err = bl.IsUserRevoked(ctx, "user-1", issued)
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = bl.IsUserRevoked(ctx, "user-1", time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestInMemoryTokenBlacklist_Expiry(t *testing.T) {
	bl := NewInMemoryTokenBlacklist()
	now := time.Now()
	bl.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, bl.Revoke(ctx, "jti", time.Minute))
	revoked, _ := bl.IsRevoked(ctx, "jti")
	assert.True(t, revoked)

	now = now.Add(2 * time.Minute)
	revoked, _ = bl.IsRevoked(ctx, "jti")
	assert.False(t, revoked)
}

func TestFallbackTokenBlacklist_SurvivesRedisOutage(t *testing.T) {
	primary, mr := newMiniredisBlacklist(t)
	bl := NewFallbackTokenBlacklist(primary, nil)
	ctx := context.Background()

	require.NoError(t, bl.Revoke(ctx, "before-outage", time.Hour))
	mr.Close()

	require.NoError(t, bl.Revoke(ctx, "during-outage", time.Hour))
	for _, jti := range []string{"before-outage", "during-outage"} {
		revoked, err := bl.IsRevoked(ctx, jti)
		require.NoError(t, err)
		assert.True(t, revoked, jti)
	}

	revoked, err := bl.IsRevoked(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestFallbackTokenBlacklist_MemoryOnly(t *testing.T) {
	bl := NewFallbackTokenBlacklist(nil, nil)
	ctx := context.Background()

	require.NoError(t, bl.RevokeUser(ctx, "u", time.Hour))
	revoked, err := bl.IsUserRevoked(ctx, "u", time.Now().Add(-time.Second))
	require.NoError(t, err)
	assert.True(t, revoked)
}
