// Package identity resolves the opaque user credential presented on consent
// and revocation requests to a stable user identifier. The server does not
// manage users itself, it only trusts the verifier.
package identity

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidCredential = errors.New("invalid identity credential")

// Verifier turns an opaque bearer credential into a user id.
type Verifier interface {
	Verify(credential string) (string, error)
}

// JWTVerifier checks HS256 signed identity tokens against a shared secret.
// The subject claim is the user id.
type JWTVerifier struct {
	secret []byte
	issuer string
}

func NewJWTVerifier(secret string, issuer string) (*JWTVerifier, error) {
	if secret == "" {
		return nil, errors.New("identity secret is required")
	}

	return &JWTVerifier{
		secret: []byte(secret),
		issuer: issuer,
	}, nil
}

func (v *JWTVerifier) Verify(credential string) (string, error) {
	if credential == "" {
		return "", ErrInvalidCredential
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}

	if v.issuer != "" {
		options = append(options, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.Parse(credential, func(token *jwt.Token) (any, error) {
		return v.secret, nil
	}, options...)

	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}

	subject, err := token.Claims.GetSubject()

	if err != nil || subject == "" {
		return "", ErrInvalidCredential
	}

	return subject, nil
}

// StaticVerifier maps fixed credentials to user ids, used in tests.
type StaticVerifier map[string]string

func (v StaticVerifier) Verify(credential string) (string, error) {
	user, ok := v[credential]
	if !ok {
		return "", ErrInvalidCredential
	}
	return user, nil
}
