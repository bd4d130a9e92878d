package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// PostgresStore keeps every document as a jsonb row in the documents table
// and runs each transaction at SERIALIZABLE isolation, so a racing commit
// surfaces as a serialization failure.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Begin(ctx context.Context) (DocTx, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", handleStoreError(err))
	}
	return &postgresTx{tx: tx}, nil
}

type postgresTx struct {
	tx *sql.Tx
}

func (t *postgresTx) Get(ctx context.Context, ref DocRef) (*Document, error) {
	query := `SELECT body, version FROM documents WHERE collection = $1 AND id = $2`
	doc := &Document{Ref: ref}
	var body []byte
	err := t.tx.QueryRowContext(ctx, query, ref.Collection, ref.ID).Scan(&body, &doc.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", ref, ErrNotFound)
		}
		return nil, handleStoreError(err)
	}
	doc.Data = body
	return doc, nil
}

func (t *postgresTx) List(ctx context.Context, collection string) ([]Document, error) {
	query := `SELECT id, body, version FROM documents WHERE collection = $1 ORDER BY id`
	rows, err := t.tx.QueryContext(ctx, query, collection)
	if err != nil {
		return nil, handleStoreError(err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc := Document{Ref: DocRef{Collection: collection}}
		var body []byte
		if err := rows.Scan(&doc.Ref.ID, &body, &doc.Version); err != nil {
			return nil, handleStoreError(err)
		}
		doc.Data = body
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, handleStoreError(err)
	}
	return docs, nil
}

func (t *postgresTx) Commit(ctx context.Context, mutations []Mutation) (txErr error) {
	defer func() {
		if txErr != nil {
			_ = t.tx.Rollback()
		}
	}()

	var now time.Time
	if err := t.tx.QueryRowContext(ctx, `SELECT transaction_timestamp()`).Scan(&now); err != nil {
		return handleStoreError(err)
	}
	for _, m := range mutations {
		if err := t.exec(ctx, m, now.UTC()); err != nil {
			return fmt.Errorf("%s %s: %w", m.Op, m.Ref, err)
		}
	}
	if err := t.tx.Commit(); err != nil {
		return handleStoreError(err)
	}
	return nil
}

func (t *postgresTx) exec(ctx context.Context, m Mutation, now time.Time) error {
	var err error
	switch m.Op {
	case OpSet:
		var data json.RawMessage
		if data, err = stamp(m.Data, m.Timestamps, now); err != nil {
			return err
		}
		_, err = t.tx.ExecContext(ctx, `
			INSERT INTO documents (collection, id, body, version, updated_at)
			VALUES ($1, $2, $3, 1, $4)
			ON CONFLICT (collection, id) DO UPDATE
			SET body = EXCLUDED.body, version = documents.version + 1, updated_at = EXCLUDED.updated_at`,
			m.Ref.Collection, m.Ref.ID, []byte(data), now)

	case OpAppendUnique:
		_, err = t.tx.ExecContext(ctx, `
			INSERT INTO documents (collection, id, body, version, updated_at)
			VALUES ($1, $2, jsonb_build_object($3::text, jsonb_build_array($4::jsonb)), 1, $5)
			ON CONFLICT (collection, id) DO UPDATE
			SET body = CASE
					WHEN COALESCE(documents.body -> $3::text, '[]'::jsonb) @> jsonb_build_array($4::jsonb)
					THEN documents.body
					ELSE jsonb_set(documents.body, ARRAY[$3::text],
						COALESCE(documents.body -> $3::text, '[]'::jsonb) || jsonb_build_array($4::jsonb))
				END,
				version = documents.version + 1,
				updated_at = EXCLUDED.updated_at`,
			m.Ref.Collection, m.Ref.ID, m.Field, []byte(m.Value), now)

	case OpIncrement:
		_, err = t.tx.ExecContext(ctx, `
			INSERT INTO documents (collection, id, body, version, updated_at)
			VALUES ($1, $2, jsonb_build_object($3::text, $4::bigint), 1, $5)
			ON CONFLICT (collection, id) DO UPDATE
			SET body = jsonb_set(documents.body, ARRAY[$3::text],
					to_jsonb(COALESCE((documents.body ->> $3::text)::bigint, 0) + $4::bigint)),
				version = documents.version + 1,
				updated_at = EXCLUDED.updated_at`,
			m.Ref.Collection, m.Ref.ID, m.Field, m.Delta, now)

	default:
		return fmt.Errorf("unknown mutation %q", m.Op)
	}
	return handleStoreError(err)
}

func (t *postgresTx) Rollback() error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

// handleStoreError maps serialization and deadlock failures to ErrConflict.
func handleStoreError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01":
			return fmt.Errorf("%s: %w", pqErr.Message, ErrConflict)
		}
	}
	return err
}
