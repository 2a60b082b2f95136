package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/agendauth/agendauth/internal/config"
	"github.com/agendauth/agendauth/internal/store"

	"github.com/rs/zerolog/log"
)

// GrantType selects the credential being traded for a token pair.
type GrantType string

const (
	GrantTypeAuthorizationCode GrantType = "authorization_code"
	GrantTypeRefreshToken      GrantType = "refresh_token"
)

func ParseGrantType(raw string) (GrantType, error) {
	switch GrantType(raw) {
	case GrantTypeAuthorizationCode:
		return GrantTypeAuthorizationCode, nil
	case GrantTypeRefreshToken:
		return GrantTypeRefreshToken, nil
	default:
		return "", ErrUnsupportedGrantType
	}
}

// ExchangeRequest carries the token endpoint parameters.
type ExchangeRequest struct {
	GrantType    GrantType
	Code         string
	RefreshToken string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// ExchangeService implements the token endpoint: code-for-token and
// refresh-for-token, both ending in a full token + refresh rotation.
type ExchangeService struct {
	apps   *AppService
	grants *GrantService
}

func NewExchangeService(apps *AppService, grants *GrantService) *ExchangeService {
	return &ExchangeService{
		apps:   apps,
		grants: grants,
	}
}

func (exchange *ExchangeService) Exchange(ctx context.Context, req ExchangeRequest) (*config.TokenResponse, error) {
	var app string
	var user string
	var consumedCode bool

	switch req.GrantType {
	case GrantTypeAuthorizationCode:
		code, err := exchange.grants.GetCode(ctx, req.Code)

		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidGrant
		}

		if err != nil {
			return nil, fmt.Errorf("failed to read code record: %w", err)
		}

		// Single use: the code is consumed no matter how the rest of the
		// exchange turns out
		if err := exchange.grants.DeleteCode(ctx, req.Code); err != nil {
			return nil, fmt.Errorf("failed to consume code: %w", err)
		}

		if req.RedirectURL != "" && code.RedirectURL != req.RedirectURL {
			return nil, ErrInvalidGrant
		}

		if !code.Expiration.After(time.Now()) {
			return nil, ErrInvalidGrant
		}

		app = code.App
		user = code.User
		consumedCode = true
	case GrantTypeRefreshToken:
		refresh, err := exchange.grants.GetRefresh(ctx, req.RefreshToken)

		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidGrant
		}

		if err != nil {
			return nil, fmt.Errorf("failed to read refresh record: %w", err)
		}

		app = refresh.App
		user = refresh.User
	default:
		return nil, ErrUnsupportedGrantType
	}

	if app != req.ClientID {
		return nil, ErrInvalidClient
	}

	appRecord, err := exchange.apps.GetApp(ctx, app)

	if errors.Is(err, ErrAppNotFound) {
		return nil, ErrInvalidClient
	}

	if err != nil {
		return nil, err
	}

	if subtle.ConstantTimeCompare([]byte(appRecord.Secret), []byte(req.ClientSecret)) != 1 {
		return nil, ErrInvalidClient
	}

	grant, err := exchange.grants.GetGrant(ctx, user, app)

	if errors.Is(err, ErrGrantNotFound) {
		// The credential outlived its grant, likely a revoke race
		log.Warn().Str("app", app).Msg("Dangling credential with no owning grant")
		return nil, ErrInvalidGrant
	}

	if err != nil {
		return nil, err
	}

	if consumedCode && grant.Code == req.Code {
		grant.Code = ""
	}

	token, refresh, err := exchange.grants.Rotate(ctx, grant)

	if err != nil {
		return nil, err
	}

	return &config.TokenResponse{
		AccessToken:  token.Value,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int64(config.AccessTokenExpiry.Seconds()),
	}, nil
}
