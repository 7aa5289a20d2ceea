package inmem

import (
	"context"
	"testing"

	"github.com/dekarrin/cfgparse/grammar"
	"github.com/dekarrin/cfgparse/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func mustGrammar(t *testing.T) *grammar.Grammar {
	g, err := grammar.New([]grammar.Production{
		grammar.NewProduction("S", grammar.SymT(grammar.MustLiteral("a"))),
	}, "S")
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func Test_grammarRepo_CreateGetDelete(t *testing.T) {
	ds := NewDatastore()
	ctx := context.Background()

	g := mustGrammar(t)
	rec, err := ds.Grammars().Create(ctx, store.GrammarRecord{Name: "letters", Source: g})
	assert.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, rec.ID)
	assert.False(t, rec.Created.IsZero())

	got, err := ds.Grammars().GetByID(ctx, rec.ID)
	assert.NoError(t, err)
	assert.Equal(t, "letters", got.Name)

	all, err := ds.Grammars().GetAll(ctx)
	assert.NoError(t, err)
	assert.Len(t, all, 1)

	deleted, err := ds.Grammars().Delete(ctx, rec.ID)
	assert.NoError(t, err)
	assert.Equal(t, rec.ID, deleted.ID)

	_, err = ds.Grammars().GetByID(ctx, rec.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func Test_apiKeyRepo_RevokeInvalidatesLookup(t *testing.T) {
	ds := NewDatastore()
	ctx := context.Background()

	key, err := ds.APIKeys().Create(ctx, store.APIKey{Name: "ci", HashedSecret: "hash"})
	assert.NoError(t, err)
	assert.True(t, key.RevokedAt.IsZero())

	revoked, err := ds.APIKeys().Revoke(ctx, key.ID)
	assert.NoError(t, err)
	assert.False(t, revoked.RevokedAt.IsZero())

	fetched, err := ds.APIKeys().GetByID(ctx, key.ID)
	assert.NoError(t, err)
	assert.False(t, fetched.RevokedAt.IsZero())
}

func Test_apiKeyRepo_GetByID_notFound(t *testing.T) {
	ds := NewDatastore()
	_, err := ds.APIKeys().GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}
