package integration

import (
	"context"
	"testing"

	identityapp "github.com/cloudpos/backend/internal/application/identity"
	"github.com/cloudpos/backend/internal/domain/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrationAndLogin(t *testing.T) {
	tdb := NewSharedTestDB(t)
	stack := newPOSStack(t, tdb)
	sh := stack.registerShop(t, "Lanka Traders")
	ctx := context.Background()

	t.Run("owner logs in with full access", func(t *testing.T) {
		res, err := stack.auth.Login(ctx, identityapp.LoginInput{
			TenantID: sh.tenantID,
			Username: sh.username,
			Password: sh.password,
			IP:       "127.0.0.1",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, res.Token.AccessToken)
		assert.NotEmpty(t, res.Token.RefreshToken)
		assert.Equal(t, sh.tenantID, res.User.TenantID)
		assert.Contains(t, res.User.Permissions, "*")
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := stack.auth.Login(ctx, identityapp.LoginInput{
			TenantID: sh.tenantID,
			Username: sh.username,
			Password: "not-the-password",
		})
		assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
	})

	t.Run("username is scoped to the tenant", func(t *testing.T) {
		other := stack.registerShop(t, "Colombo Mart")
		_, err := stack.auth.Login(ctx, identityapp.LoginInput{
			TenantID: other.tenantID,
			Username: sh.username,
			Password: sh.password,
		})
		assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
	})

	assert.NotEmpty(t, stack.events.OfType("BusinessRegistered"))
}
