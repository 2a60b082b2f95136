package config

import "time"

// TokenContext is attached to the request context once a bearer token has
// been verified and the quota gate passed.
type TokenContext struct {
	App    string
	User   string
	Scopes map[string]bool
	Expiry time.Time
	Calls  int64
	Max    int64
}

// Redirect query payloads appended to the app redirect URL by the consent
// decision

type TokenRedirectQuery struct {
	AccessToken string `url:"access_token"`
	TokenType   string `url:"token_type"`
	ExpiresIn   int64  `url:"expires_in"`
	State       string `url:"state,omitempty"`
}

type CodeRedirectQuery struct {
	Code  string `url:"code"`
	State string `url:"state,omitempty"`
}

// TokenResponse is the token endpoint success body.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// ConsentContext is everything the consent prompt needs to render.
type ConsentContext struct {
	ClientID     string   `json:"client_id"`
	AppName      string   `json:"app_name"`
	RedirectURL  string   `json:"redirect_url"`
	ResponseType string   `json:"response_type"`
	Scopes       []string `json:"scopes"`
	ScopeText    []string `json:"scope_text"`
	State        string   `json:"state,omitempty"`
}
