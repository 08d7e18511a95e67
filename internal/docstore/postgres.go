package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/sirupsen/logrus"
)

// Schema of the Postgres backend. Every document is one JSONB row; collection
// holds the full path, so nested collections need no extra tables. Versions
// come from a sequence so a recreated document never reuses one.
const postgresSchema = `
CREATE SEQUENCE IF NOT EXISTS document_versions;
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       JSONB NOT NULL,
	version    BIGINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS documents_data_idx ON documents USING GIN (data jsonb_path_ops);
`

const (
	sqlGetDocument = `SELECT data, version FROM documents WHERE collection = $1 AND id = $2`
	sqlQueryByJSON = `SELECT id, data, version FROM documents WHERE collection = $1 AND data @> $2::jsonb ORDER BY id`
	sqlUpsert      = `INSERT INTO documents (collection, id, data, version) VALUES ($1, $2, $3::jsonb, nextval('document_versions'))
ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, version = EXCLUDED.version, updated_at = now()`
	sqlUpdate          = `UPDATE documents SET data = data || $3::jsonb, version = nextval('document_versions'), updated_at = now() WHERE collection = $1 AND id = $2`
	sqlUpdateIfVersion = `UPDATE documents SET data = data || $3::jsonb, version = nextval('document_versions'), updated_at = now() WHERE collection = $1 AND id = $2 AND version = $4`
	sqlDelete          = `DELETE FROM documents WHERE collection = $1 AND id = $2`
	sqlDeleteIfVersion = `DELETE FROM documents WHERE collection = $1 AND id = $2 AND version = $3`
)

// PostgresStore keeps documents in a JSONB table. A batch is one SQL
// transaction. Equality and array-containment queries both use the @>
// containment operator so they are served by the GIN index.
type PostgresStore struct {
	db     *sql.DB
	logger *logrus.Logger
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB, logger *logrus.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

// EnsureSchema creates the documents table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to create document schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	var raw []byte
	var version int64
	err := s.db.QueryRowContext(ctx, sqlGetDocument, collection, id).Scan(&raw, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s/%s: %w", collection, id, err)
	}
	fields, err := decodeFields(raw)
	if err != nil {
		return nil, err
	}
	return &Document{Collection: collection, ID: id, Fields: fields, Version: version}, nil
}

func (s *PostgresStore) Query(ctx context.Context, collection, field string, op Op, value interface{}) ([]*Document, error) {
	var filter Fields
	switch op {
	case OpEqual:
		filter = Fields{field: value}
	case OpArrayContains:
		filter = Fields{field: []interface{}{value}}
	default:
		return nil, fmt.Errorf("unsupported query operator %q", op)
	}
	rawFilter, err := sonic.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query filter: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlQueryByJSON, collection, string(rawFilter))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}
	defer rows.Close()

	var out []*Document
	for rows.Next() {
		var id string
		var raw []byte
		var version int64
		if err := rows.Scan(&id, &raw, &version); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		fields, err := decodeFields(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, &Document{Collection: collection, ID: id, Fields: fields, Version: version})
	}
	return out, rows.Err()
}

func (s *PostgresStore) Set(ctx context.Context, collection, id string, fields Fields) error {
	b := s.Batch()
	b.Set(collection, id, fields)
	return b.Commit(ctx)
}

func (s *PostgresStore) Update(ctx context.Context, collection, id string, fields Fields) error {
	b := s.Batch()
	b.Update(collection, id, fields)
	return b.Commit(ctx)
}

func (s *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	b := s.Batch()
	b.Delete(collection, id)
	return b.Commit(ctx)
}

func (s *PostgresStore) Batch() Batch {
	return &postgresBatch{store: s, writeBuffer: newWriteBuffer()}
}

type postgresBatch struct {
	store *PostgresStore
	writeBuffer
}

func (b *postgresBatch) Commit(ctx context.Context) (err error) {
	if b.err != nil {
		return b.err
	}
	writes := b.list()
	if len(writes) == 0 {
		return nil
	}
	tx, err := b.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				b.store.logger.WithField("error", rbErr.Error()).Error("Failed to roll back document batch")
			}
		}
	}()

	for _, w := range writes {
		if err = execWrite(ctx, tx, w); err != nil {
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

func execWrite(ctx context.Context, tx *sql.Tx, w *write) error {
	var (
		res sql.Result
		err error
	)
	switch w.kind {
	case writeSet:
		raw, encErr := sonic.Marshal(w.fields)
		if encErr != nil {
			return fmt.Errorf("failed to encode document %s/%s: %w", w.collection, w.id, encErr)
		}
		_, err = tx.ExecContext(ctx, sqlUpsert, w.collection, w.id, string(raw))
		if err != nil {
			return fmt.Errorf("failed to set %s/%s: %w", w.collection, w.id, err)
		}
		return nil
	case writeUpdate:
		raw, encErr := sonic.Marshal(w.fields)
		if encErr != nil {
			return fmt.Errorf("failed to encode document %s/%s: %w", w.collection, w.id, encErr)
		}
		if w.pre.hasVersion {
			res, err = tx.ExecContext(ctx, sqlUpdateIfVersion, w.collection, w.id, string(raw), w.pre.version)
		} else {
			res, err = tx.ExecContext(ctx, sqlUpdate, w.collection, w.id, string(raw))
		}
	case writeDelete:
		if w.pre.hasVersion {
			res, err = tx.ExecContext(ctx, sqlDeleteIfVersion, w.collection, w.id, w.pre.version)
		} else {
			res, err = tx.ExecContext(ctx, sqlDelete, w.collection, w.id)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", w.collection, w.id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n > 0 {
		return nil
	}
	if w.pre.hasVersion {
		return ErrVersionMismatch
	}
	if w.kind == writeUpdate {
		return ErrNotFound
	}
	return nil
}

func decodeFields(raw []byte) (Fields, error) {
	var fields Fields
	if err := sonic.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	if fields == nil {
		fields = Fields{}
	}
	return fields, nil
}
