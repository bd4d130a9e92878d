package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("document not found")
	ErrConflict    = errors.New("transaction conflict, safe to retry")
	ErrTxFinished  = errors.New("transaction already committed or rolled back")
	ErrReadsClosed = errors.New("read phase is closed")
)

const (
	CollectionCompetitions = "competitions"
	CollectionRatings      = "ratings"
	CollectionPlayerStats  = "player_stats"
)

// MatchesCollection is the child collection holding a competition's matches.
func MatchesCollection(competitionID string) string {
	return CollectionCompetitions + "/" + competitionID + "/matches"
}

type DocRef struct {
	Collection string
	ID         string
}

func (r DocRef) String() string { return r.Collection + "/" + r.ID }

type Document struct {
	Ref     DocRef
	Data    json.RawMessage
	Version int64
}

type MutationOp string

const (
	OpSet          MutationOp = "set"
	OpAppendUnique MutationOp = "append_unique"
	OpIncrement    MutationOp = "increment"
)

// Mutation is one buffered write. Set replaces the whole document and
// stamps Timestamps fields with the store's commit time. AppendUnique adds
// Value to the array Field unless an equal item is already present.
// Increment adds Delta to the numeric Field. The last two create the
// document when it does not exist.
type Mutation struct {
	Op         MutationOp
	Ref        DocRef
	Data       json.RawMessage
	Field      string
	Value      json.RawMessage
	Delta      int64
	Timestamps []string
}

func Set(ref DocRef, v any, timestamps ...string) (Mutation, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Mutation{}, fmt.Errorf("encode %s: %w", ref, err)
	}
	return Mutation{Op: OpSet, Ref: ref, Data: data, Timestamps: timestamps}, nil
}

func AppendUnique(ref DocRef, field string, item any) (Mutation, error) {
	value, err := json.Marshal(item)
	if err != nil {
		return Mutation{}, fmt.Errorf("encode %s.%s item: %w", ref, field, err)
	}
	return Mutation{Op: OpAppendUnique, Ref: ref, Field: field, Value: value}, nil
}

func Increment(ref DocRef, field string, delta int64) Mutation {
	return Mutation{Op: OpIncrement, Ref: ref, Field: field, Delta: delta}
}

// DocumentStore is the transactional document store the engine runs on.
type DocumentStore interface {
	Begin(ctx context.Context) (DocTx, error)
}

// DocTx reads documents and applies all buffered mutations atomically on
// Commit. A commit that raced another writer fails with ErrConflict and
// leaves no trace.
type DocTx interface {
	Get(ctx context.Context, ref DocRef) (*Document, error)
	List(ctx context.Context, collection string) ([]Document, error)
	Commit(ctx context.Context, mutations []Mutation) error
	Rollback() error
}

func decode[T any](doc *Document) (*T, error) {
	var v T
	if err := json.Unmarshal(doc.Data, &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", doc.Ref, err)
	}
	return &v, nil
}
