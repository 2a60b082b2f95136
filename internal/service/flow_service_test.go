package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/agendauth/agendauth/internal/model"
	"github.com/agendauth/agendauth/internal/scopes"
	"github.com/agendauth/agendauth/internal/service"
	"github.com/agendauth/agendauth/internal/store"

	"gotest.tools/v3/assert"
)

func TestParseResponseType(t *testing.T) {
	responseType, err := service.ParseResponseType("token")
	assert.NilError(t, err)
	assert.Equal(t, responseType, service.ResponseTypeToken)

	responseType, err = service.ParseResponseType("code")
	assert.NilError(t, err)
	assert.Equal(t, responseType, service.ResponseTypeCode)

	_, err = service.ParseResponseType("id_token")
	assert.ErrorIs(t, err, service.ErrUnsupportedResponseType)
}

func TestBeginAuthorization(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	consent, err := env.flow.BeginAuthorization(ctx, env.app.ID, service.ResponseTypeToken, testRedirectURL, []string{"agenda-read", "agenda-write"}, "xyz")
	assert.NilError(t, err)
	assert.Equal(t, consent.AppName, "Agenda Pal")
	assert.Equal(t, consent.ClientID, env.app.ID)
	assert.Equal(t, consent.State, "xyz")
	assert.Equal(t, len(consent.ScopeText), 2)

	_, err = env.flow.BeginAuthorization(ctx, "nope", service.ResponseTypeToken, testRedirectURL, []string{"agenda-read"}, "")
	assert.ErrorIs(t, err, service.ErrAppNotFound)

	_, err = env.flow.BeginAuthorization(ctx, env.app.ID, service.ResponseTypeToken, "https://evil.example.com", []string{"agenda-read"}, "")
	assert.ErrorIs(t, err, service.ErrBadRedirect)

	// The code flow defers the redirect check to the exchange
	_, err = env.flow.BeginAuthorization(ctx, env.app.ID, service.ResponseTypeCode, "https://elsewhere.example.com", []string{"agenda-read"}, "")
	assert.NilError(t, err)

	_, err = env.flow.BeginAuthorization(ctx, env.app.ID, service.ResponseTypeToken, testRedirectURL, []string{"agenda-admin"}, "")
	assert.ErrorIs(t, err, scopes.ErrInvalidScope)

	_, err = env.flow.BeginAuthorization(ctx, env.app.ID, service.ResponseTypeToken, testRedirectURL, nil, "")
	assert.ErrorIs(t, err, scopes.ErrInvalidScope)
}

func TestDecideRejectsBadCredential(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.flow.Decide(context.Background(), service.DecideRequest{
		Credential:   "wrong",
		ClientID:     env.app.ID,
		RedirectURL:  testRedirectURL,
		ResponseType: service.ResponseTypeToken,
		Scopes:       []string{"agenda-read"},
	})
	assert.ErrorIs(t, err, service.ErrForbidden)
}

func TestDecideImplicitFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	query := env.decide(t, service.ResponseTypeToken, []string{"agenda-read"})

	accessToken := query.Get("access_token")
	assert.Assert(t, accessToken != "")
	assert.Equal(t, query.Get("token_type"), "bearer")
	assert.Equal(t, query.Get("state"), "some-state")
	assert.Assert(t, query.Get("expires_in") != "")

	// The grant and the reverse index row agree on the token value
	grant, err := env.grants.GetGrant(ctx, "user1", env.app.ID)
	assert.NilError(t, err)
	assert.Equal(t, grant.Token.Value, accessToken)
	assert.Assert(t, grant.Scopes["agenda-read"])

	record, err := env.grants.GetToken(ctx, accessToken)
	assert.NilError(t, err)
	assert.Equal(t, record.App, env.app.ID)
	assert.Equal(t, record.User, "user1")
}

func TestDecideReusesLiveToken(t *testing.T) {
	env := newTestEnv(t)

	first := env.decide(t, service.ResponseTypeToken, []string{"agenda-read", "agenda-write"}).Get("access_token")

	// Requesting a subset of the granted scopes keeps the live token
	second := env.decide(t, service.ResponseTypeToken, []string{"agenda-read"}).Get("access_token")
	assert.Equal(t, second, first)

	// A scope not granted before forces a new token
	third := env.decide(t, service.ResponseTypeToken, []string{"agenda-share"}).Get("access_token")
	assert.Assert(t, third != first)

	// The old reverse index row is gone
	_, err := env.grants.GetToken(context.Background(), first)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Earlier scopes survive the regeneration
	grant, err := env.grants.GetGrant(context.Background(), "user1", env.app.ID)
	assert.NilError(t, err)
	assert.Assert(t, grant.Scopes["agenda-read"])
	assert.Assert(t, grant.Scopes["agenda-write"])
	assert.Assert(t, grant.Scopes["agenda-share"])
}

func TestDecideRemintsExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.decide(t, service.ResponseTypeToken, []string{"agenda-read"}).Get("access_token")

	// Age the live token past its expiry
	grant, err := env.grants.GetGrant(ctx, "user1", env.app.ID)
	assert.NilError(t, err)
	grant.Token.Expiration = time.Now().Add(-time.Minute)
	assert.NilError(t, env.grants.SaveGrant(ctx, grant))

	second := env.decide(t, service.ResponseTypeToken, []string{"agenda-read"}).Get("access_token")
	assert.Assert(t, second != first)
}

func TestDecideCodeFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.decide(t, service.ResponseTypeCode, []string{"agenda-read"})
	assert.Assert(t, first.Get("code") != "")
	assert.Equal(t, first.Get("state"), "some-state")

	// A second decision always mints a fresh code and retires the old one
	second := env.decide(t, service.ResponseTypeCode, []string{"agenda-read"})
	assert.Assert(t, second.Get("code") != first.Get("code"))

	_, err := env.grants.GetCode(ctx, first.Get("code"))
	assert.ErrorIs(t, err, store.ErrNotFound)

	record, err := env.grants.GetCode(ctx, second.Get("code"))
	assert.NilError(t, err)
	assert.Equal(t, record.App, env.app.ID)
	assert.Equal(t, record.RedirectURL, testRedirectURL)
}

func TestRevoke(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	token := env.decide(t, service.ResponseTypeToken, []string{"agenda-read"}).Get("access_token")
	code := env.decide(t, service.ResponseTypeCode, []string{"agenda-read"}).Get("code")

	assert.NilError(t, env.grants.Revoke(ctx, "user1", env.app.ID))

	_, err := env.grants.GetToken(ctx, token)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = env.grants.GetCode(ctx, code)
	assert.ErrorIs(t, err, store.ErrNotFound)

	grant, err := env.grants.GetGrant(ctx, "user1", env.app.ID)
	assert.NilError(t, err)
	assert.Assert(t, grant.Token == nil)
	assert.Equal(t, grant.Code, "")
	assert.Equal(t, grant.Refresh, "")

	// Revoking an already-empty grant still succeeds
	assert.NilError(t, env.grants.Revoke(ctx, "user1", env.app.ID))

	// No grant at all is the only failure
	err = env.grants.Revoke(ctx, "user2", env.app.ID)
	assert.ErrorIs(t, err, service.ErrGrantNotFound)
}

func TestMintTokenKeepsIndexInStep(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	grant := &model.Grant{
		User:   "user1",
		App:    env.app.ID,
		Scopes: map[string]bool{"agenda-read": true},
	}

	first, err := env.grants.MintToken(ctx, grant)
	assert.NilError(t, err)

	second, err := env.grants.MintToken(ctx, grant)
	assert.NilError(t, err)
	assert.Assert(t, second.Value != first.Value)

	_, err = env.grants.GetToken(ctx, first.Value)
	assert.ErrorIs(t, err, store.ErrNotFound)

	record, err := env.grants.GetToken(ctx, second.Value)
	assert.NilError(t, err)
	assert.Equal(t, record.User, "user1")
}
