// Package inmem provides a map-backed store.Store, grounded on
// server/dao/inmem/inmem.go and server/dao/inmem/users.go: one struct per
// repository, a primary map keyed by uuid.UUID, and a secondary index map
// for any additional unique lookup a repository needs.
package inmem

import (
	"context"
	"sort"
	"time"

	"github.com/dekarrin/cfgparse/store"
	"github.com/google/uuid"
)

type datastore struct {
	grammars *grammarRepo
	keys     *apiKeyRepo
}

// NewDatastore returns a store.Store backed entirely by in-process maps. All
// data is lost when the process exits.
func NewDatastore() store.Store {
	return &datastore{
		grammars: newGrammarRepo(),
		keys:     newAPIKeyRepo(),
	}
}

func (d *datastore) Grammars() store.GrammarRepository { return d.grammars }
func (d *datastore) APIKeys() store.APIKeyRepository    { return d.keys }
func (d *datastore) Close() error                       { return nil }

type grammarRepo struct {
	byID map[uuid.UUID]store.GrammarRecord
}

func newGrammarRepo() *grammarRepo {
	return &grammarRepo{byID: make(map[uuid.UUID]store.GrammarRecord)}
}

func (r *grammarRepo) Create(ctx context.Context, rec store.GrammarRecord) (store.GrammarRecord, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return store.GrammarRecord{}, err
	}
	rec.ID = id
	rec.Created = time.Now()
	r.byID[id] = rec
	return rec, nil
}

func (r *grammarRepo) GetByID(ctx context.Context, id uuid.UUID) (store.GrammarRecord, error) {
	rec, ok := r.byID[id]
	if !ok {
		return store.GrammarRecord{}, store.ErrNotFound
	}
	return rec, nil
}

func (r *grammarRepo) GetAll(ctx context.Context) ([]store.GrammarRecord, error) {
	all := make([]store.GrammarRecord, 0, len(r.byID))
	for _, rec := range r.byID {
		all = append(all, rec)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID.String() < all[j].ID.String() })
	return all, nil
}

func (r *grammarRepo) Delete(ctx context.Context, id uuid.UUID) (store.GrammarRecord, error) {
	rec, ok := r.byID[id]
	if !ok {
		return store.GrammarRecord{}, store.ErrNotFound
	}
	delete(r.byID, id)
	return rec, nil
}

func (r *grammarRepo) Close() error { return nil }

type apiKeyRepo struct {
	byID map[uuid.UUID]store.APIKey
}

func newAPIKeyRepo() *apiKeyRepo {
	return &apiKeyRepo{byID: make(map[uuid.UUID]store.APIKey)}
}

func (r *apiKeyRepo) Create(ctx context.Context, key store.APIKey) (store.APIKey, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return store.APIKey{}, err
	}
	key.ID = id
	key.Created = time.Now()
	r.byID[id] = key
	return key, nil
}

func (r *apiKeyRepo) GetByID(ctx context.Context, id uuid.UUID) (store.APIKey, error) {
	key, ok := r.byID[id]
	if !ok {
		return store.APIKey{}, store.ErrNotFound
	}
	return key, nil
}

func (r *apiKeyRepo) GetAll(ctx context.Context) ([]store.APIKey, error) {
	all := make([]store.APIKey, 0, len(r.byID))
	for _, key := range r.byID {
		all = append(all, key)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID.String() < all[j].ID.String() })
	return all, nil
}

func (r *apiKeyRepo) Revoke(ctx context.Context, id uuid.UUID) (store.APIKey, error) {
	key, ok := r.byID[id]
	if !ok {
		return store.APIKey{}, store.ErrNotFound
	}
	key.RevokedAt = time.Now()
	r.byID[id] = key
	return key, nil
}

func (r *apiKeyRepo) Delete(ctx context.Context, id uuid.UUID) (store.APIKey, error) {
	key, ok := r.byID[id]
	if !ok {
		return store.APIKey{}, store.ErrNotFound
	}
	delete(r.byID, id)
	return key, nil
}

func (r *apiKeyRepo) Close() error { return nil }
