package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agendauth/agendauth/internal/config"
	"github.com/agendauth/agendauth/internal/store"

	"github.com/rs/zerolog/log"
)

// AccessService gates every protected API call: it resolves bearer tokens
// and charges the per-app monthly quota.
type AccessService struct {
	apps   *AppService
	grants *GrantService
}

func NewAccessService(apps *AppService, grants *GrantService) *AccessService {
	return &AccessService{
		apps:   apps,
		grants: grants,
	}
}

// VerifyBearer resolves a bearer token to its app, user, scope set and
// expiry. Expired tokens are evicted on read; this is the only expiration
// mechanism for access tokens.
func (access *AccessService) VerifyBearer(ctx context.Context, value string) (*config.TokenContext, error) {
	token, err := access.grants.GetToken(ctx, value)

	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidToken
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read token record: %w", err)
	}

	if !token.Expiration.After(time.Now()) {
		access.evictToken(ctx, value, token.User, token.App)
		return nil, ErrTokenExpired
	}

	app, err := access.apps.GetApp(ctx, token.App)

	if err != nil {
		// Dangling index row, the app is gone
		log.Warn().Err(err).Str("app", token.App).Msg("Token points at missing app")
		return nil, ErrInvalidToken
	}

	grant, err := access.grants.GetGrant(ctx, token.User, token.App)

	if err != nil {
		log.Warn().Err(err).Str("app", token.App).Msg("Token points at missing grant")
		return nil, ErrInvalidToken
	}

	return &config.TokenContext{
		App:    app.ID,
		User:   token.User,
		Scopes: grant.Scopes,
		Expiry: token.Expiration,
	}, nil
}

func (access *AccessService) evictToken(ctx context.Context, value string, user string, app string) {
	if err := access.grants.DeleteToken(ctx, value); err != nil {
		log.Error().Err(err).Str("app", app).Msg("Failed to evict expired token record")
	}

	grant, err := access.grants.GetGrant(ctx, user, app)

	if err != nil {
		return
	}

	if grant.Token == nil || grant.Token.Value != value {
		// The grant moved on to a newer token in the meantime
		return
	}

	grant.Token = nil

	if err := access.grants.SaveGrant(ctx, grant); err != nil {
		log.Error().Err(err).Str("app", app).Msg("Failed to clear expired token from grant")
	}
}

// QuotaSnapshot is the pre-increment call count for the current cycle.
type QuotaSnapshot struct {
	Calls int64
	Max   int64
}

// ChargeAndCheck counts one call against the app's monthly quota. A fresh
// cycle resets the counter and moves the boundary to midnight on the last
// day of the current month. The check and the increment are separate store
// writes, so concurrent calls can race past the boundary; that window is
// accepted, not defended.
func (access *AccessService) ChargeAndCheck(ctx context.Context, appID string) (*QuotaSnapshot, error) {
	app, err := access.apps.GetApp(ctx, appID)

	if err != nil {
		return nil, err
	}

	now := time.Now()

	if app.NextCycle.IsZero() || !app.NextCycle.After(now) {
		app.ApiCalls = 0
		app.NextCycle = nextCycleBoundary(now)

		if err := access.apps.SaveApp(ctx, app); err != nil {
			return nil, fmt.Errorf("failed to reset quota cycle: %w", err)
		}

		log.Debug().Str("app", appID).Time("nextCycle", app.NextCycle).Msg("Started new quota cycle")
	}

	if app.ApiCalls >= app.MaxCalls {
		return nil, ErrQuotaExceeded
	}

	snapshot := &QuotaSnapshot{
		Calls: app.ApiCalls,
		Max:   app.MaxCalls,
	}

	// Fire and forget, the incremented count is never read back here
	app.ApiCalls++

	if err := access.apps.SaveApp(ctx, app); err != nil {
		log.Error().Err(err).Str("app", appID).Msg("Failed to record api call")
	}

	return snapshot, nil
}

// nextCycleBoundary is midnight on the last day of the month containing now.
func nextCycleBoundary(now time.Time) time.Time {
	firstOfNextMonth := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, now.Location())
	return firstOfNextMonth.AddDate(0, 0, -1)
}
