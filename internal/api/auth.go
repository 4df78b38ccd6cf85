package api

import (
	"errors"
	"net/http"
	"strings"
)

var errUnauthorized = errors.New("authentication required")

// TokenAuth resolves static bearer tokens to owner identities. It stands in
// for the identity collaborator; anything that can map a credential to an
// owner ID satisfies Authenticator.
type TokenAuth struct {
	tokens map[string]string // token -> owner ID
}

// NewTokenAuth builds an authenticator from a token-to-owner map.
func NewTokenAuth(tokens map[string]string) *TokenAuth {
	return &TokenAuth{tokens: tokens}
}

func (a *TokenAuth) Authenticate(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", errUnauthorized
	}
	ownerID, ok := a.tokens[token]
	if !ok {
		return "", errUnauthorized
	}
	return ownerID, nil
}
