// Package model defines the records persisted in the backing store.
package model

import "time"

// Store collections
const (
	AppCollection     = "apps"
	GrantCollection   = "grants"
	TokenCollection   = "tokens"
	CodeCollection    = "codes"
	RefreshCollection = "refreshes"
)

// App is a registered third-party application. ApiCalls and NextCycle are
// only ever written by the quota gate.
type App struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Owner       string    `json:"owner"`
	RedirectURL string    `json:"redirect_url"`
	Secret      string    `json:"secret"`
	MaxCalls    int64     `json:"max_calls"`
	ApiCalls    int64     `json:"api_calls"`
	NextCycle   time.Time `json:"next_cycle"`
}

// GrantToken is the live access token mirrored inside a grant.
type GrantToken struct {
	Value      string    `json:"value"`
	Expiration time.Time `json:"expiration"`
}

// Grant is the scope agreement between one user and one app, together with
// the at-most-one live token, code and refresh credential.
type Grant struct {
	User    string          `json:"user"`
	App     string          `json:"app"`
	Scopes  map[string]bool `json:"scopes"`
	Token   *GrantToken     `json:"token,omitempty"`
	Code    string          `json:"code,omitempty"`
	Refresh string          `json:"refresh,omitempty"`
}

// GrantKey builds the grant collection key for a (user, app) pair.
func GrantKey(user string, app string) string {
	return user + "/" + app
}

// TokenRecord is the reverse index row for a live access token, keyed by the
// token value. A row exists iff the owning grant's token value equals the key.
type TokenRecord struct {
	App        string    `json:"app"`
	User       string    `json:"user"`
	Expiration time.Time `json:"expiration"`
}

// CodeRecord is the reverse index row for a single-use authorization code.
type CodeRecord struct {
	App         string    `json:"app"`
	User        string    `json:"user"`
	RedirectURL string    `json:"redirect_url"`
	Expiration  time.Time `json:"expiration"`
}

// RefreshRecord is the reverse index row for a refresh token. It has no
// expiration, only revocation retires it.
type RefreshRecord struct {
	App  string `json:"app"`
	User string `json:"user"`
}
