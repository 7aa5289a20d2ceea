// Package store provides data access objects for grammars and API keys
// persisted by the cfgparse server. It is grounded on server/dao/dao.go's
// Store/repository shape, generalized from that package's user/game/session
// model to this module's grammar/API-key model.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/dekarrin/cfgparse/grammar"
	"github.com/google/uuid"
)

var (
	ErrConstraintViolation = errors.New("a uniqueness constraint was violated")
	ErrNotFound            = errors.New("the requested resource was not found")
	ErrDecodingFailure     = errors.New("field could not be decoded from storage format to model format")
)

// Store holds all the repositories needed by the server package.
type Store interface {
	Grammars() GrammarRepository
	APIKeys() APIKeyRepository
	Close() error
}

// GrammarRecord is a named grammar as persisted by a GrammarRepository.
// Normalized holds the CNF form of Source computed once at registration time
// and cached alongside it, so a caller constructing a CYK or Earley parser
// pays that cost once, at registration, rather than on every parse.
type GrammarRecord struct {
	ID         uuid.UUID
	Name       string
	Source     *grammar.Grammar
	Normalized *grammar.Grammar
	Created    time.Time
}

type GrammarRepository interface {
	Create(ctx context.Context, rec GrammarRecord) (GrammarRecord, error)
	GetByID(ctx context.Context, id uuid.UUID) (GrammarRecord, error)
	GetAll(ctx context.Context) ([]GrammarRecord, error)
	Delete(ctx context.Context, id uuid.UUID) (GrammarRecord, error)
	Close() error
}

// APIKey is a hashed service credential. The server package authenticates
// bearer tokens by validating a JWT whose signing key is derived in part
// from HashedSecret and RevokedAt (server/token.go's trick of folding a
// user's password hash and last-logout time into the JWT signing key, so
// that rotating or revoking a key invalidates every token already issued
// for it without a separate revocation list).
type APIKey struct {
	ID           uuid.UUID
	Name         string
	HashedSecret string
	Created      time.Time

	// RevokedAt is the zero time if the key has never been revoked.
	// Changing it (via Revoke) changes the JWT signing key derived from
	// this record, invalidating every token issued before the change.
	RevokedAt time.Time
}

type APIKeyRepository interface {
	Create(ctx context.Context, key APIKey) (APIKey, error)
	GetByID(ctx context.Context, id uuid.UUID) (APIKey, error)
	GetAll(ctx context.Context) ([]APIKey, error)
	Revoke(ctx context.Context, id uuid.UUID) (APIKey, error)
	Delete(ctx context.Context, id uuid.UUID) (APIKey, error)
	Close() error
}
