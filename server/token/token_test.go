package token

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dekarrin/cfgparse/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type fakeKeyRepo struct {
	keys map[uuid.UUID]store.APIKey
}

func (r fakeKeyRepo) Create(ctx context.Context, key store.APIKey) (store.APIKey, error) {
	panic("not used")
}
func (r fakeKeyRepo) GetAll(ctx context.Context) ([]store.APIKey, error) { panic("not used") }
func (r fakeKeyRepo) Revoke(ctx context.Context, id uuid.UUID) (store.APIKey, error) {
	panic("not used")
}
func (r fakeKeyRepo) Delete(ctx context.Context, id uuid.UUID) (store.APIKey, error) {
	panic("not used")
}
func (r fakeKeyRepo) Close() error { return nil }
func (r fakeKeyRepo) GetByID(ctx context.Context, id uuid.UUID) (store.APIKey, error) {
	k, ok := r.keys[id]
	if !ok {
		return store.APIKey{}, store.ErrNotFound
	}
	return k, nil
}

var testSecret = []byte("unit-test-secret-unit-test-secret!!")

func Test_Get_parsesBearerHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer abc.def.ghi")

	tok, err := Get(req)
	assert.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", tok)
}

func Test_Get_missingHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := Get(req)
	assert.Error(t, err)
}

func Test_Get_wrongScheme(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic abc.def.ghi")
	_, err := Get(req)
	assert.Error(t, err)
}

func Test_GenerateAndValidate_roundTrip(t *testing.T) {
	key := store.APIKey{ID: uuid.New(), HashedSecret: "hash"}
	repo := fakeKeyRepo{keys: map[uuid.UUID]store.APIKey{key.ID: key}}

	tok, err := Generate(testSecret, key)
	assert.NoError(t, err)

	validated, err := Validate(context.Background(), tok, testSecret, repo)
	assert.NoError(t, err)
	assert.Equal(t, key.ID, validated.ID)
}

func Test_Validate_revokedKeyInvalidatesToken(t *testing.T) {
	key := store.APIKey{ID: uuid.New(), HashedSecret: "hash"}
	tok, err := Generate(testSecret, key)
	assert.NoError(t, err)

	key.RevokedAt = time.Now()
	repo := fakeKeyRepo{keys: map[uuid.UUID]store.APIKey{key.ID: key}}

	_, err = Validate(context.Background(), tok, testSecret, repo)
	assert.Error(t, err)
}

func Test_Validate_unknownSubject(t *testing.T) {
	key := store.APIKey{ID: uuid.New(), HashedSecret: "hash"}
	tok, err := Generate(testSecret, key)
	assert.NoError(t, err)

	repo := fakeKeyRepo{keys: map[uuid.UUID]store.APIKey{}}
	_, err = Validate(context.Background(), tok, testSecret, repo)
	assert.Error(t, err)
}
