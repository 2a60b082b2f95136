package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/agendauth/agendauth/internal/config"
	"github.com/agendauth/agendauth/internal/identity"
	"github.com/agendauth/agendauth/internal/model"
	"github.com/agendauth/agendauth/internal/scopes"

	"github.com/google/go-querystring/query"
	"github.com/rs/zerolog/log"
)

// ResponseType is the authorization flow variant requested by the app.
type ResponseType string

const (
	ResponseTypeToken ResponseType = "token"
	ResponseTypeCode  ResponseType = "code"
)

// ParseResponseType rejects anything but the two supported flows.
func ParseResponseType(raw string) (ResponseType, error) {
	switch ResponseType(raw) {
	case ResponseTypeToken:
		return ResponseTypeToken, nil
	case ResponseTypeCode:
		return ResponseTypeCode, nil
	default:
		return "", ErrUnsupportedResponseType
	}
}

// FlowService implements authorization initiation and the consent decision.
type FlowService struct {
	apps     *AppService
	grants   *GrantService
	verifier identity.Verifier
}

func NewFlowService(apps *AppService, grants *GrantService, verifier identity.Verifier) *FlowService {
	return &FlowService{
		apps:     apps,
		grants:   grants,
		verifier: verifier,
	}
}

// BeginAuthorization validates an authorization request and returns the
// context needed to render the consent prompt.
func (flow *FlowService) BeginAuthorization(ctx context.Context, clientID string, responseType ResponseType, redirectURL string, requestedScopes []string, state string) (*config.ConsentContext, error) {
	app, err := flow.apps.GetApp(ctx, clientID)

	if err != nil {
		return nil, err
	}

	// The implicit flow hands out a token straight from the redirect, so the
	// redirect URL must match up front. The code flow checks it at exchange
	// time instead.
	if responseType == ResponseTypeToken && app.RedirectURL != redirectURL {
		return nil, ErrBadRedirect
	}

	if _, err := scopes.Validate(requestedScopes); err != nil {
		return nil, err
	}

	return &config.ConsentContext{
		ClientID:     clientID,
		AppName:      app.Name,
		RedirectURL:  app.RedirectURL,
		ResponseType: string(responseType),
		Scopes:       requestedScopes,
		ScopeText:    scopes.Describe(requestedScopes),
		State:        state,
	}, nil
}

// DecideRequest is a user's consent decision for an app.
type DecideRequest struct {
	Credential   string
	ClientID     string
	RedirectURL  string
	ResponseType ResponseType
	Scopes       []string
	State        string
}

// Decide records consent and produces the redirect the user agent is sent
// to: either an access token (implicit flow) or a fresh single-use code.
func (flow *FlowService) Decide(ctx context.Context, req DecideRequest) (string, error) {
	user, err := flow.verifier.Verify(req.Credential)

	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrForbidden, err)
	}

	app, err := flow.apps.GetApp(ctx, req.ClientID)

	if err != nil {
		return "", err
	}

	if req.ResponseType == ResponseTypeToken && app.RedirectURL != req.RedirectURL {
		return "", ErrBadRedirect
	}

	requested, err := scopes.Validate(req.Scopes)

	if err != nil {
		return "", err
	}

	grant, err := flow.grants.GetGrant(ctx, user, req.ClientID)

	if errors.Is(err, ErrGrantNotFound) {
		grant = &model.Grant{
			User: user,
			App:  req.ClientID,
		}
	} else if err != nil {
		return "", err
	}

	// Any newly requested scope regenerates the grant. Scopes the user
	// granted before but did not request this time are kept, never revoked.
	needsNewGrant := len(grant.Scopes) == 0

	for scope := range requested {
		if !grant.Scopes[scope] {
			needsNewGrant = true
			break
		}
	}

	if needsNewGrant {
		if grant.Scopes == nil {
			grant.Scopes = make(map[string]bool, len(requested))
		}
		for scope := range requested {
			grant.Scopes[scope] = true
		}
	}

	switch req.ResponseType {
	case ResponseTypeToken:
		token := grant.Token

		// Reuse a live token only when nothing new was asked for
		if needsNewGrant || token == nil || !token.Expiration.After(time.Now()) {
			token, err = flow.grants.MintToken(ctx, grant)
			if err != nil {
				return "", err
			}
		}

		log.Debug().Str("app", req.ClientID).Msg("Consent granted, issuing access token")

		return appendQuery(req.RedirectURL, config.TokenRedirectQuery{
			AccessToken: token.Value,
			TokenType:   "bearer",
			ExpiresIn:   int64(time.Until(token.Expiration).Seconds()),
			State:       req.State,
		})
	case ResponseTypeCode:
		// A fresh code every time, invalidating any outstanding one
		code, err := flow.grants.MintCode(ctx, grant, req.RedirectURL)

		if err != nil {
			return "", err
		}

		log.Debug().Str("app", req.ClientID).Msg("Consent granted, issuing authorization code")

		return appendQuery(req.RedirectURL, config.CodeRedirectQuery{
			Code:  code,
			State: req.State,
		})
	default:
		return "", ErrUnsupportedResponseType
	}
}

func appendQuery(redirectURL string, payload any) (string, error) {
	target, err := url.Parse(redirectURL)

	if err != nil {
		return "", fmt.Errorf("failed to parse redirect url: %w", err)
	}

	values, err := query.Values(payload)

	if err != nil {
		return "", fmt.Errorf("failed to encode redirect query: %w", err)
	}

	existing := target.Query()

	for key, entries := range values {
		for _, entry := range entries {
			existing.Add(key, entry)
		}
	}

	target.RawQuery = existing.Encode()

	return target.String(), nil
}
