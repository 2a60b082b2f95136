package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/agendauth/agendauth/internal/model"
	"github.com/agendauth/agendauth/internal/service"
	"github.com/agendauth/agendauth/internal/store"

	"gotest.tools/v3/assert"
)

func TestVerifyBearer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	accessToken := env.decide(t, service.ResponseTypeToken, []string{"agenda-read", "agenda-write"}).Get("access_token")

	token, err := env.access.VerifyBearer(ctx, accessToken)
	assert.NilError(t, err)
	assert.Equal(t, token.App, env.app.ID)
	assert.Equal(t, token.User, "user1")
	assert.Assert(t, token.Scopes["agenda-read"])
	assert.Assert(t, token.Scopes["agenda-write"])
	assert.Assert(t, !token.Scopes["agenda-share"])
	assert.Assert(t, token.Expiry.After(time.Now()))

	_, err = env.access.VerifyBearer(ctx, "never-issued")
	assert.ErrorIs(t, err, service.ErrInvalidToken)
}

func TestVerifyBearerEvictsExpired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	expiration := time.Now().Add(-time.Minute)

	grant := &model.Grant{
		User:   "user1",
		App:    env.app.ID,
		Scopes: map[string]bool{"agenda-read": true},
		Token: &model.GrantToken{
			Value:      "stale-token",
			Expiration: expiration,
		},
	}
	assert.NilError(t, env.grants.SaveGrant(ctx, grant))

	env.putRecord(t, model.TokenCollection, "stale-token", model.TokenRecord{
		App:        env.app.ID,
		User:       "user1",
		Expiration: expiration,
	})

	_, err := env.access.VerifyBearer(ctx, "stale-token")
	assert.ErrorIs(t, err, service.ErrTokenExpired)

	// The read evicted both the index row and the grant's token
	_, err = env.grants.GetToken(ctx, "stale-token")
	assert.ErrorIs(t, err, store.ErrNotFound)

	grant, err = env.grants.GetGrant(ctx, "user1", env.app.ID)
	assert.NilError(t, err)
	assert.Assert(t, grant.Token == nil)

	// A second presentation is just an unknown token
	_, err = env.access.VerifyBearer(ctx, "stale-token")
	assert.ErrorIs(t, err, service.ErrInvalidToken)
}

func TestVerifyBearerDanglingIndex(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Token row pointing at an app that no longer exists
	env.putRecord(t, model.TokenCollection, "orphan-token", model.TokenRecord{
		App:        "gone-app",
		User:       "user1",
		Expiration: time.Now().Add(time.Hour),
	})

	_, err := env.access.VerifyBearer(ctx, "orphan-token")
	assert.ErrorIs(t, err, service.ErrInvalidToken)

	// Token row whose grant was deleted out from under it
	env.putRecord(t, model.TokenCollection, "grantless-token", model.TokenRecord{
		App:        env.app.ID,
		User:       "ghost",
		Expiration: time.Now().Add(time.Hour),
	})

	_, err = env.access.VerifyBearer(ctx, "grantless-token")
	assert.ErrorIs(t, err, service.ErrInvalidToken)
}

func TestChargeAndCheck(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.freezeCycle(t)

	// MaxCalls is 5, so exactly five charges go through
	for i := int64(0); i < 5; i++ {
		snapshot, err := env.access.ChargeAndCheck(ctx, env.app.ID)
		assert.NilError(t, err)
		assert.Equal(t, snapshot.Calls, i)
		assert.Equal(t, snapshot.Max, int64(5))
	}

	_, err := env.access.ChargeAndCheck(ctx, env.app.ID)
	assert.ErrorIs(t, err, service.ErrQuotaExceeded)

	_, err = env.access.ChargeAndCheck(ctx, "nope")
	assert.ErrorIs(t, err, service.ErrAppNotFound)
}

func TestChargeAndCheckResetsCycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// An exhausted counter from a cycle that has already ended
	app, err := env.apps.GetApp(ctx, env.app.ID)
	assert.NilError(t, err)

	app.ApiCalls = 5
	app.NextCycle = time.Now().Add(-time.Hour)
	assert.NilError(t, env.apps.SaveApp(ctx, app))

	snapshot, err := env.access.ChargeAndCheck(ctx, env.app.ID)
	assert.NilError(t, err)
	assert.Equal(t, snapshot.Calls, int64(0))

	// The new boundary is midnight on the last day of the current month
	app, err = env.apps.GetApp(ctx, env.app.ID)
	assert.NilError(t, err)

	now := time.Now()
	expected := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, now.Location()).AddDate(0, 0, -1)
	assert.Equal(t, app.NextCycle.Format(time.RFC3339), expected.Format(time.RFC3339))
}
