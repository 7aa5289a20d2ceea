// Package token generates and validates the bearer JWTs used to authenticate
// requests to the cfgparse server's mutating endpoints, grounded on
// server/token.go's generateJWT/validateAndLookupJWTUser pair.
//
// The signing key is derived from the server's configured secret plus the
// subject API key's own HashedSecret and RevokedAt fields, not the secret
// alone: server/token.go does the same with a user's password hash and
// LastLogoutTime so that changing either invalidates every token already
// issued for that subject without needing a separate revocation list. Here
// that means rotating or revoking an API key immediately invalidates all
// bearer tokens issued for it.
package token

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dekarrin/cfgparse/store"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "cfgparse"

// Get extracts the bearer token from req's Authorization header.
func Get(req *http.Request) (string, error) {
	authHeader := strings.TrimSpace(req.Header.Get("Authorization"))
	if authHeader == "" {
		return "", fmt.Errorf("no authorization header present")
	}

	authParts := strings.SplitN(authHeader, " ", 2)
	if len(authParts) != 2 {
		return "", fmt.Errorf("authorization header not in Bearer format")
	}

	scheme := strings.TrimSpace(strings.ToLower(authParts[0]))
	tok := strings.TrimSpace(authParts[1])

	if scheme != "bearer" {
		return "", fmt.Errorf("authorization header not in Bearer format")
	}

	return tok, nil
}

func signKeyFor(secret []byte, key store.APIKey) []byte {
	var signKey []byte
	signKey = append(signKey, secret...)
	signKey = append(signKey, []byte(key.HashedSecret)...)
	signKey = append(signKey, []byte(fmt.Sprintf("%d", key.RevokedAt.Unix()))...)
	return signKey
}

// Generate returns a signed JWT asserting key as the authenticated subject.
func Generate(secret []byte, key store.APIKey) (string, error) {
	claims := &jwt.MapClaims{
		"iss": issuer,
		"exp": time.Now().Add(time.Hour).Unix(),
		"sub": key.ID.String(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)

	tokStr, err := tok.SignedString(signKeyFor(secret, key))
	if err != nil {
		return "", err
	}
	return tokStr, nil
}

// Validate parses and verifies tok, looking up the subject API key via repo
// to derive the expected signing key. It returns the validated API key.
func Validate(ctx context.Context, tok string, secret []byte, repo store.APIKeyRepository) (store.APIKey, error) {
	var key store.APIKey

	_, err := jwt.Parse(tok, func(t *jwt.Token) (interface{}, error) {
		subj, err := t.Claims.GetSubject()
		if err != nil {
			return nil, fmt.Errorf("cannot get subject: %w", err)
		}

		id, err := uuid.Parse(subj)
		if err != nil {
			return nil, fmt.Errorf("cannot parse subject UUID: %w", err)
		}

		key, err = repo.GetByID(ctx, id)
		if err != nil {
			if err == store.ErrNotFound {
				return nil, fmt.Errorf("subject does not exist")
			}
			return nil, fmt.Errorf("subject could not be validated")
		}
		if !key.RevokedAt.IsZero() {
			return nil, fmt.Errorf("subject has been revoked")
		}

		return signKeyFor(secret, key), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}), jwt.WithIssuer(issuer), jwt.WithLeeway(time.Minute))

	if err != nil {
		return store.APIKey{}, err
	}

	return key, nil
}
