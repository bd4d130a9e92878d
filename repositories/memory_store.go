package repositories

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an optimistic, versioned in-process document store. Every
// document and every collection carries a version; a commit fails with
// ErrConflict when anything the transaction read has changed since.
type MemoryStore struct {
	mu           sync.Mutex
	docs         map[string]map[string]memDoc
	collVersions map[string]int64
	clock        func() time.Time
	conflicts    int
}

type memDoc struct {
	data    json.RawMessage
	version int64
}

type MemoryOption func(*MemoryStore)

// WithClock replaces the clock used for server timestamps.
func WithClock(clock func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.clock = clock }
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		docs:         make(map[string]map[string]memDoc),
		collVersions: make(map[string]int64),
		clock:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InjectConflicts makes the next n commits fail with ErrConflict.
func (s *MemoryStore) InjectConflicts(n int) {
	s.mu.Lock()
	s.conflicts = n
	s.mu.Unlock()
}

func (s *MemoryStore) Begin(ctx context.Context) (DocTx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memoryTx{
		store: s,
		reads: make(map[DocRef]int64),
		lists: make(map[string]int64),
	}, nil
}

type memoryTx struct {
	store *MemoryStore
	mu    sync.Mutex
	reads map[DocRef]int64
	lists map[string]int64
	done  bool
}

func (t *memoryTx) Get(ctx context.Context, ref DocRef) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil, ErrTxFinished
	}

	t.store.mu.Lock()
	doc, ok := t.store.docs[ref.Collection][ref.ID]
	t.store.mu.Unlock()

	t.reads[ref] = doc.version
	if !ok {
		return nil, fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	return &Document{Ref: ref, Data: bytes.Clone(doc.data), Version: doc.version}, nil
}

func (t *memoryTx) List(ctx context.Context, collection string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil, ErrTxFinished
	}

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.lists[collection] = t.store.collVersions[collection]
	out := make([]Document, 0, len(t.store.docs[collection]))
	for id, doc := range t.store.docs[collection] {
		out = append(out, Document{
			Ref:     DocRef{Collection: collection, ID: id},
			Data:    bytes.Clone(doc.data),
			Version: doc.version,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ref.ID < out[j].Ref.ID })
	return out, nil
}

func (t *memoryTx) Commit(ctx context.Context, mutations []Mutation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return ErrTxFinished
	}
	t.done = true

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conflicts > 0 {
		s.conflicts--
		return ErrConflict
	}
	for ref, version := range t.reads {
		if s.docs[ref.Collection][ref.ID].version != version {
			return fmt.Errorf("%s changed: %w", ref, ErrConflict)
		}
	}
	for collection, version := range t.lists {
		if s.collVersions[collection] != version {
			return fmt.Errorf("collection %s changed: %w", collection, ErrConflict)
		}
	}

	now := s.clock().UTC()
	staged := make(map[DocRef]memDoc)
	order := make([]DocRef, 0, len(mutations))
	for _, m := range mutations {
		cur, ok := staged[m.Ref]
		if !ok {
			cur = s.docs[m.Ref.Collection][m.Ref.ID]
			order = append(order, m.Ref)
		}
		data, err := applyMutation(cur.data, m, now)
		if err != nil {
			return err
		}
		staged[m.Ref] = memDoc{data: data, version: s.docs[m.Ref.Collection][m.Ref.ID].version + 1}
	}

	for _, ref := range order {
		if s.docs[ref.Collection] == nil {
			s.docs[ref.Collection] = make(map[string]memDoc)
		}
		s.docs[ref.Collection][ref.ID] = staged[ref]
		s.collVersions[ref.Collection]++
	}
	return nil
}

func (t *memoryTx) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done = true
	return nil
}

func applyMutation(current json.RawMessage, m Mutation, now time.Time) (json.RawMessage, error) {
	switch m.Op {
	case OpSet:
		return stamp(m.Data, m.Timestamps, now)

	case OpAppendUnique:
		body, err := object(current)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", m.Ref, err)
		}
		var items []json.RawMessage
		if raw, ok := body[m.Field]; ok && string(raw) != "null" {
			if err := json.Unmarshal(raw, &items); err != nil {
				return nil, fmt.Errorf("%s.%s is not an array: %w", m.Ref, m.Field, err)
			}
		}
		for _, item := range items {
			if sameJSON(item, m.Value) {
				return json.Marshal(body)
			}
		}
		items = append(items, m.Value)
		if body[m.Field], err = json.Marshal(items); err != nil {
			return nil, err
		}
		return json.Marshal(body)

	case OpIncrement:
		body, err := object(current)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", m.Ref, err)
		}
		var n int64
		if raw, ok := body[m.Field]; ok && string(raw) != "null" {
			if err := json.Unmarshal(raw, &n); err != nil {
				return nil, fmt.Errorf("%s.%s is not an integer: %w", m.Ref, m.Field, err)
			}
		}
		if body[m.Field], err = json.Marshal(n + m.Delta); err != nil {
			return nil, err
		}
		return json.Marshal(body)
	}
	return nil, fmt.Errorf("unknown mutation %q", m.Op)
}

func stamp(data json.RawMessage, fields []string, now time.Time) (json.RawMessage, error) {
	if len(fields) == 0 {
		return bytes.Clone(data), nil
	}
	body, err := object(data)
	if err != nil {
		return nil, err
	}
	ts, err := json.Marshal(now)
	if err != nil {
		return nil, err
	}
	for _, f := range fields {
		body[f] = ts
	}
	return json.Marshal(body)
}

func object(data json.RawMessage) (map[string]json.RawMessage, error) {
	body := make(map[string]json.RawMessage)
	if len(data) == 0 {
		return body, nil
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("document is not an object: %w", err)
	}
	return body, nil
}

func sameJSON(a, b json.RawMessage) bool {
	var va, vb any
	if json.Unmarshal(a, &va) != nil || json.Unmarshal(b, &vb) != nil {
		return bytes.Equal(a, b)
	}
	return reflect.DeepEqual(va, vb)
}
