package service_test

import (
	"context"
	"encoding/json"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/agendauth/agendauth/internal/identity"
	"github.com/agendauth/agendauth/internal/model"
	"github.com/agendauth/agendauth/internal/service"
	"github.com/agendauth/agendauth/internal/store"

	"gotest.tools/v3/assert"
)

const testRedirectURL = "https://app.example.com/callback"

type testEnv struct {
	store    store.Store
	apps     *service.AppService
	grants   *service.GrantService
	flow     *service.FlowService
	exchange *service.ExchangeService
	access   *service.AccessService
	app      *model.App
}

var testVerifier = identity.StaticVerifier{"valid-credential": "user1"}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	backingStore, err := store.NewSqliteStore(filepath.Join(t.TempDir(), "agendauth.db"))
	assert.NilError(t, err)

	t.Cleanup(func() {
		assert.NilError(t, backingStore.Close())
	})

	apps := service.NewAppService(backingStore)
	grants := service.NewGrantService(backingStore)

	app, err := apps.CreateApp(context.Background(), "Agenda Pal", "owner1", testRedirectURL, 5)
	assert.NilError(t, err)

	return &testEnv{
		store:    backingStore,
		apps:     apps,
		grants:   grants,
		flow:     service.NewFlowService(apps, grants, testVerifier),
		exchange: service.NewExchangeService(apps, grants),
		access:   service.NewAccessService(apps, grants),
		app:      app,
	}
}

// decide runs a consent decision and returns the redirect query values.
func (env *testEnv) decide(t *testing.T, responseType service.ResponseType, requestedScopes []string) url.Values {
	t.Helper()

	redirect, err := env.flow.Decide(context.Background(), service.DecideRequest{
		Credential:   "valid-credential",
		ClientID:     env.app.ID,
		RedirectURL:  testRedirectURL,
		ResponseType: responseType,
		Scopes:       requestedScopes,
		State:        "some-state",
	})
	assert.NilError(t, err)

	parsed, err := url.Parse(redirect)
	assert.NilError(t, err)

	return parsed.Query()
}

// putRecord writes a raw record straight into the store, bypassing the
// services, to set up expired or dangling state.
func (env *testEnv) putRecord(t *testing.T, collection string, key string, record any) {
	t.Helper()

	raw, err := json.Marshal(record)
	assert.NilError(t, err)

	assert.NilError(t, env.store.Put(context.Background(), collection, key, raw))
}

// freezeCycle pins the app's quota cycle so charges in this test never hit
// the rollover path.
func (env *testEnv) freezeCycle(t *testing.T) {
	t.Helper()

	ctx := context.Background()

	app, err := env.apps.GetApp(ctx, env.app.ID)
	assert.NilError(t, err)

	app.NextCycle = time.Now().Add(time.Hour)
	assert.NilError(t, env.apps.SaveApp(ctx, app))
}
