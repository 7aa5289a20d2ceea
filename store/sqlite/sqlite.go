// Package sqlite provides a store.Store backed by modernc.org/sqlite,
// grounded on server/dao/sqlite/sqlite.go: one *sql.DB per logical
// partition (here, a single grammars.db holds both tables), a small
// store/database struct embedding the per-repository types, and
// convertToDB_*/convertFromDB_* helper functions bridging model types to
// storage-column types.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dekarrin/cfgparse/grammar"
	"github.com/dekarrin/cfgparse/store"
	"github.com/dekarrin/rezi"
	"github.com/google/uuid"
	"modernc.org/sqlite"
)

type datastore struct {
	dbFilename string
	db         *sql.DB

	grammars *grammarsDB
	keys     *apiKeysDB
}

// NewDatastore opens (creating if necessary) a sqlite database under
// storageDir and returns a store.Store backed by it.
func NewDatastore(storageDir string) (store.Store, error) {
	d := &datastore{dbFilename: "cfgparse.db"}

	fileName := filepath.Join(storageDir, d.dbFilename)

	var err error
	d.db, err = sql.Open("sqlite", fileName)
	if err != nil {
		return nil, wrapDBError(err)
	}

	d.grammars = &grammarsDB{db: d.db}
	if err := d.grammars.init(); err != nil {
		return nil, err
	}

	d.keys = &apiKeysDB{db: d.db}
	if err := d.keys.init(); err != nil {
		return nil, err
	}

	return d, nil
}

func (d *datastore) Grammars() store.GrammarRepository { return d.grammars }
func (d *datastore) APIKeys() store.APIKeyRepository    { return d.keys }

func (d *datastore) Close() error {
	return d.db.Close()
}

type grammarsDB struct {
	db *sql.DB
}

func (r *grammarsDB) init() error {
	_, err := r.db.Exec(`CREATE TABLE IF NOT EXISTS grammars (
		id TEXT NOT NULL PRIMARY KEY,
		name TEXT NOT NULL,
		source TEXT NOT NULL,
		normalized TEXT NOT NULL,
		created INTEGER NOT NULL
	);`)
	if err != nil {
		return wrapDBError(err)
	}
	return nil
}

func (r *grammarsDB) Create(ctx context.Context, rec store.GrammarRecord) (store.GrammarRecord, error) {
	newUUID, err := uuid.NewRandom()
	if err != nil {
		return store.GrammarRecord{}, fmt.Errorf("could not generate ID: %w", err)
	}
	rec.ID = newUUID
	rec.Created = time.Now()

	sourceStr, err := convertToDB_Grammar(rec.Source)
	if err != nil {
		return store.GrammarRecord{}, err
	}
	normalizedStr, err := convertToDB_Grammar(rec.Normalized)
	if err != nil {
		return store.GrammarRecord{}, err
	}

	stmt, err := r.db.Prepare(`INSERT INTO grammars (id, name, source, normalized, created) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return store.GrammarRecord{}, wrapDBError(err)
	}
	_, err = stmt.ExecContext(ctx, rec.ID.String(), rec.Name, sourceStr, normalizedStr, rec.Created.Unix())
	if err != nil {
		return store.GrammarRecord{}, wrapDBError(err)
	}

	return rec, nil
}

func (r *grammarsDB) GetByID(ctx context.Context, id uuid.UUID) (store.GrammarRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, name, source, normalized, created FROM grammars WHERE id = ?;`, id.String())
	return scanGrammarRow(row.Scan)
}

func (r *grammarsDB) GetAll(ctx context.Context) ([]store.GrammarRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, source, normalized, created FROM grammars ORDER BY id;`)
	if err != nil {
		return nil, wrapDBError(err)
	}
	defer rows.Close()

	var all []store.GrammarRecord
	for rows.Next() {
		rec, err := scanGrammarRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		all = append(all, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError(err)
	}
	return all, nil
}

func (r *grammarsDB) Delete(ctx context.Context, id uuid.UUID) (store.GrammarRecord, error) {
	rec, err := r.GetByID(ctx, id)
	if err != nil {
		return store.GrammarRecord{}, err
	}
	_, err = r.db.ExecContext(ctx, `DELETE FROM grammars WHERE id = ?;`, id.String())
	if err != nil {
		return store.GrammarRecord{}, wrapDBError(err)
	}
	return rec, nil
}

func (r *grammarsDB) Close() error { return nil }

func scanGrammarRow(scan func(...interface{}) error) (store.GrammarRecord, error) {
	var rec store.GrammarRecord
	var id, sourceStr, normalizedStr string
	var created int64

	err := scan(&id, &rec.Name, &sourceStr, &normalizedStr, &created)
	if err != nil {
		return store.GrammarRecord{}, wrapDBError(err)
	}

	rec.ID, err = uuid.Parse(id)
	if err != nil {
		return store.GrammarRecord{}, fmt.Errorf("stored UUID %q is invalid: %w", id, store.ErrDecodingFailure)
	}
	rec.Created = time.Unix(created, 0)

	rec.Source, err = convertFromDB_Grammar(sourceStr)
	if err != nil {
		return store.GrammarRecord{}, err
	}
	rec.Normalized, err = convertFromDB_Grammar(normalizedStr)
	if err != nil {
		return store.GrammarRecord{}, err
	}

	return rec, nil
}

type apiKeysDB struct {
	db *sql.DB
}

func (r *apiKeysDB) init() error {
	_, err := r.db.Exec(`CREATE TABLE IF NOT EXISTS api_keys (
		id TEXT NOT NULL PRIMARY KEY,
		name TEXT NOT NULL,
		hashed_secret TEXT NOT NULL,
		created INTEGER NOT NULL,
		revoked_at INTEGER NOT NULL
	);`)
	if err != nil {
		return wrapDBError(err)
	}
	return nil
}

func (r *apiKeysDB) Create(ctx context.Context, key store.APIKey) (store.APIKey, error) {
	newUUID, err := uuid.NewRandom()
	if err != nil {
		return store.APIKey{}, fmt.Errorf("could not generate ID: %w", err)
	}
	key.ID = newUUID
	key.Created = time.Now()

	stmt, err := r.db.Prepare(`INSERT INTO api_keys (id, name, hashed_secret, created, revoked_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return store.APIKey{}, wrapDBError(err)
	}
	_, err = stmt.ExecContext(ctx, key.ID.String(), key.Name, key.HashedSecret, key.Created.Unix(), convertToDB_Time(key.RevokedAt))
	if err != nil {
		return store.APIKey{}, wrapDBError(err)
	}

	return key, nil
}

func (r *apiKeysDB) GetByID(ctx context.Context, id uuid.UUID) (store.APIKey, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, name, hashed_secret, created, revoked_at FROM api_keys WHERE id = ?;`, id.String())
	return scanAPIKeyRow(row.Scan)
}

func (r *apiKeysDB) GetAll(ctx context.Context) ([]store.APIKey, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, hashed_secret, created, revoked_at FROM api_keys ORDER BY id;`)
	if err != nil {
		return nil, wrapDBError(err)
	}
	defer rows.Close()

	var all []store.APIKey
	for rows.Next() {
		key, err := scanAPIKeyRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		all = append(all, key)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError(err)
	}
	return all, nil
}

func (r *apiKeysDB) Revoke(ctx context.Context, id uuid.UUID) (store.APIKey, error) {
	now := time.Now()
	_, err := r.db.ExecContext(ctx, `UPDATE api_keys SET revoked_at = ? WHERE id = ?;`, now.Unix(), id.String())
	if err != nil {
		return store.APIKey{}, wrapDBError(err)
	}
	return r.GetByID(ctx, id)
}

func (r *apiKeysDB) Delete(ctx context.Context, id uuid.UUID) (store.APIKey, error) {
	key, err := r.GetByID(ctx, id)
	if err != nil {
		return store.APIKey{}, err
	}
	_, err = r.db.ExecContext(ctx, `DELETE FROM api_keys WHERE id = ?;`, id.String())
	if err != nil {
		return store.APIKey{}, wrapDBError(err)
	}
	return key, nil
}

func (r *apiKeysDB) Close() error { return nil }

func scanAPIKeyRow(scan func(...interface{}) error) (store.APIKey, error) {
	var key store.APIKey
	var id string
	var created, revokedAt int64

	err := scan(&id, &key.Name, &key.HashedSecret, &created, &revokedAt)
	if err != nil {
		return store.APIKey{}, wrapDBError(err)
	}

	key.ID, err = uuid.Parse(id)
	if err != nil {
		return store.APIKey{}, fmt.Errorf("stored UUID %q is invalid: %w", id, store.ErrDecodingFailure)
	}
	key.Created = time.Unix(created, 0)
	if revokedAt != 0 {
		key.RevokedAt = time.Unix(revokedAt, 0)
	}

	return key, nil
}

// convertToDB_Time converts a time.Time to storage DB format on disk. The
// zero time (never revoked) is stored as 0.
func convertToDB_Time(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

// convertToDB_Grammar rezi-encodes g (via the json-backed encodedGrammar
// adapter) and base64-encodes the result for storage in a TEXT column, the
// same two-step encoding server/dao/sqlite/sqlite.go uses for a *game.State
// field. A nil Grammar (as when a GrammarRecord has no cached Normalized
// form yet) round-trips to the empty string.
func convertToDB_Grammar(g *grammar.Grammar) (string, error) {
	if g == nil {
		return "", nil
	}
	enc := &encodedGrammar{dto: toDTO(g)}
	data := rezi.EncBinary(enc)
	return base64.StdEncoding.EncodeToString(data), nil
}

func convertFromDB_Grammar(s string) (*grammar.Grammar, error) {
	if s == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("stored grammar is not valid base64: %w", store.ErrDecodingFailure)
	}

	enc := &encodedGrammar{}
	n, err := rezi.DecBinary(data, enc)
	if err != nil {
		return nil, fmt.Errorf("REZI decode: %w: %w", err, store.ErrDecodingFailure)
	}
	if n != len(data) {
		return nil, fmt.Errorf("REZI decoded byte count mismatch; only consumed %d/%d bytes: %w", n, len(data), store.ErrDecodingFailure)
	}

	return fromDTO(enc.dto)
}

func wrapDBError(err error) error {
	if err == nil {
		return nil
	}
	sqliteErr := &sqlite.Error{}
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code() == 19 {
			return store.ErrConstraintViolation
		}
		return fmt.Errorf("%s", sqlite.ErrorCodeString[sqliteErr.Code()])
	} else if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}
