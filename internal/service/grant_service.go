package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/agendauth/agendauth/internal/config"
	"github.com/agendauth/agendauth/internal/model"
	"github.com/agendauth/agendauth/internal/store"
	"github.com/agendauth/agendauth/internal/utils"

	"github.com/rs/zerolog/log"
)

// GrantService owns the grant records and the token/code/refresh reverse
// indexes. Every mint keeps both sides in step: the credential value inside
// the grant and the reverse index row keyed by that value. The store offers
// no transactions, so the pairing is best effort; a concurrent revoke can
// leave one side dangling and readers treat that as an invalid credential.
type GrantService struct {
	store store.Store
}

func NewGrantService(store store.Store) *GrantService {
	return &GrantService{
		store: store,
	}
}

// GetGrant loads the grant for (user, app), failing with ErrGrantNotFound
// when no consent has been recorded.
func (grants *GrantService) GetGrant(ctx context.Context, user string, app string) (*model.Grant, error) {
	record, err := grants.store.Get(ctx, model.GrantCollection, model.GrantKey(user, app))

	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrGrantNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read grant: %w", err)
	}

	var grant model.Grant

	if err := json.Unmarshal(record, &grant); err != nil {
		return nil, fmt.Errorf("failed to decode grant record: %w", err)
	}

	return &grant, nil
}

func (grants *GrantService) SaveGrant(ctx context.Context, grant *model.Grant) error {
	record, err := json.Marshal(grant)

	if err != nil {
		return fmt.Errorf("failed to encode grant record: %w", err)
	}

	return grants.store.Put(ctx, model.GrantCollection, model.GrantKey(grant.User, grant.App), record)
}

// Reverse index reads

func (grants *GrantService) GetToken(ctx context.Context, value string) (*model.TokenRecord, error) {
	record, err := grants.store.Get(ctx, model.TokenCollection, value)

	if err != nil {
		return nil, err
	}

	var token model.TokenRecord

	if err := json.Unmarshal(record, &token); err != nil {
		return nil, fmt.Errorf("failed to decode token record: %w", err)
	}

	return &token, nil
}

func (grants *GrantService) GetCode(ctx context.Context, value string) (*model.CodeRecord, error) {
	record, err := grants.store.Get(ctx, model.CodeCollection, value)

	if err != nil {
		return nil, err
	}

	var code model.CodeRecord

	if err := json.Unmarshal(record, &code); err != nil {
		return nil, fmt.Errorf("failed to decode code record: %w", err)
	}

	return &code, nil
}

func (grants *GrantService) GetRefresh(ctx context.Context, value string) (*model.RefreshRecord, error) {
	record, err := grants.store.Get(ctx, model.RefreshCollection, value)

	if err != nil {
		return nil, err
	}

	var refresh model.RefreshRecord

	if err := json.Unmarshal(record, &refresh); err != nil {
		return nil, fmt.Errorf("failed to decode refresh record: %w", err)
	}

	return &refresh, nil
}

func (grants *GrantService) DeleteToken(ctx context.Context, value string) error {
	return grants.store.Delete(ctx, model.TokenCollection, value)
}

func (grants *GrantService) DeleteCode(ctx context.Context, value string) error {
	return grants.store.Delete(ctx, model.CodeCollection, value)
}

func (grants *GrantService) DeleteRefresh(ctx context.Context, value string) error {
	return grants.store.Delete(ctx, model.RefreshCollection, value)
}

// MintToken replaces the grant's access token with a fresh one and persists
// the grant together with the new reverse index row.
func (grants *GrantService) MintToken(ctx context.Context, grant *model.Grant) (*model.GrantToken, error) {
	if grant.Token != nil {
		if err := grants.DeleteToken(ctx, grant.Token.Value); err != nil {
			return nil, fmt.Errorf("failed to delete previous token: %w", err)
		}
	}

	value, err := utils.GenerateCredential(config.AccessTokenBytes)

	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	token := &model.GrantToken{
		Value:      value,
		Expiration: time.Now().Add(config.AccessTokenExpiry),
	}

	record, err := json.Marshal(model.TokenRecord{
		App:        grant.App,
		User:       grant.User,
		Expiration: token.Expiration,
	})

	if err != nil {
		return nil, fmt.Errorf("failed to encode token record: %w", err)
	}

	if err := grants.store.Put(ctx, model.TokenCollection, value, record); err != nil {
		return nil, fmt.Errorf("failed to write token record: %w", err)
	}

	grant.Token = token

	if err := grants.SaveGrant(ctx, grant); err != nil {
		return nil, err
	}

	return token, nil
}

// MintCode replaces any outstanding authorization code for the grant with a
// fresh single-use one bound to the given redirect URL.
func (grants *GrantService) MintCode(ctx context.Context, grant *model.Grant, redirectURL string) (string, error) {
	if grant.Code != "" {
		if err := grants.DeleteCode(ctx, grant.Code); err != nil {
			return "", fmt.Errorf("failed to delete previous code: %w", err)
		}
	}

	value, err := utils.GenerateCredential(config.AuthCodeBytes)

	if err != nil {
		return "", fmt.Errorf("failed to generate authorization code: %w", err)
	}

	record, err := json.Marshal(model.CodeRecord{
		App:         grant.App,
		User:        grant.User,
		RedirectURL: redirectURL,
		Expiration:  time.Now().Add(config.AuthCodeExpiry),
	})

	if err != nil {
		return "", fmt.Errorf("failed to encode code record: %w", err)
	}

	if err := grants.store.Put(ctx, model.CodeCollection, value, record); err != nil {
		return "", fmt.Errorf("failed to write code record: %w", err)
	}

	grant.Code = value

	if err := grants.SaveGrant(ctx, grant); err != nil {
		return "", err
	}

	return value, nil
}

// Rotate retires the grant's current access and refresh tokens and mints a
// fresh pair. Old reverse index rows are deleted first, so a failure midway
// can leave the grant temporarily without live credentials but never with a
// verifiable stale one.
func (grants *GrantService) Rotate(ctx context.Context, grant *model.Grant) (*model.GrantToken, string, error) {
	if grant.Token != nil {
		if err := grants.DeleteToken(ctx, grant.Token.Value); err != nil {
			return nil, "", fmt.Errorf("failed to delete previous token: %w", err)
		}
		grant.Token = nil
	}

	if grant.Refresh != "" {
		if err := grants.DeleteRefresh(ctx, grant.Refresh); err != nil {
			return nil, "", fmt.Errorf("failed to delete previous refresh token: %w", err)
		}
		grant.Refresh = ""
	}

	refresh, err := utils.GenerateCredential(config.RefreshTokenBytes)

	if err != nil {
		return nil, "", fmt.Errorf("failed to generate refresh token: %w", err)
	}

	refreshRecord, err := json.Marshal(model.RefreshRecord{
		App:  grant.App,
		User: grant.User,
	})

	if err != nil {
		return nil, "", fmt.Errorf("failed to encode refresh record: %w", err)
	}

	if err := grants.store.Put(ctx, model.RefreshCollection, refresh, refreshRecord); err != nil {
		return nil, "", fmt.Errorf("failed to write refresh record: %w", err)
	}

	grant.Refresh = refresh

	// MintToken persists the grant with both new values
	token, err := grants.MintToken(ctx, grant)

	if err != nil {
		return nil, "", err
	}

	return token, refresh, nil
}

// Revoke cascades deletion of the grant's token, code and refresh entries
// from the reverse indexes and clears the grant itself. Missing sub-records
// are skipped, so revoking an already-empty grant is a no-op that succeeds.
func (grants *GrantService) Revoke(ctx context.Context, user string, app string) error {
	grant, err := grants.GetGrant(ctx, user, app)

	if err != nil {
		return err
	}

	if grant.Token != nil {
		if err := grants.DeleteToken(ctx, grant.Token.Value); err != nil {
			log.Error().Err(err).Str("app", app).Msg("Failed to delete token record during revoke")
		}
		grant.Token = nil
	}

	if grant.Code != "" {
		if err := grants.DeleteCode(ctx, grant.Code); err != nil {
			log.Error().Err(err).Str("app", app).Msg("Failed to delete code record during revoke")
		}
		grant.Code = ""
	}

	if grant.Refresh != "" {
		if err := grants.DeleteRefresh(ctx, grant.Refresh); err != nil {
			log.Error().Err(err).Str("app", app).Msg("Failed to delete refresh record during revoke")
		}
		grant.Refresh = ""
	}

	return grants.SaveGrant(ctx, grant)
}
