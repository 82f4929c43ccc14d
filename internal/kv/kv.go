// Package kv is the local key-value store behind dataset, library, and
// preference persistence. Every backend offers the same transactional view.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Error variables for key-value operations.
var (
	ErrNotFound       = errors.New("key not found")
	ErrClosed         = errors.New("store is closed")
	ErrEmptyKey       = errors.New("key is empty")
	ErrUnknownBackend = errors.New("unknown backend")
)

// Tx is a read-write view of the store inside View or Update.
// Writes made through an Update Tx are visible to later reads in the same Tx
// and become durable only when the callback returns nil.
type Tx interface {
	Get(key string) ([]byte, error)
	Keys(prefix string) ([]string, error)
	Put(key string, value []byte) error
	Delete(key string) error
}

// Store is a transactional key-value store.
type Store interface {
	// View runs fn with a read-only Tx. Writes return an error.
	View(ctx context.Context, fn func(Tx) error) error
	// Update runs fn and commits its writes if it returns nil.
	Update(ctx context.Context, fn func(Tx) error) error
	Close() error
}

// Backend names.
const (
	BackendDir    = "dir"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Open opens the backend rooted in dataDir.
func Open(ctx context.Context, backend, dataDir string) (Store, error) {
	switch backend {
	case BackendDir, "":
		return OpenDir(filepath.Join(dataDir, "kv"))
	case BackendSQLite:
		return OpenSQLite(ctx, filepath.Join(dataDir, "salesdash.db"))
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// Get reads one key.
func Get(ctx context.Context, s Store, key string) ([]byte, error) {
	var out []byte

	err := s.View(ctx, func(tx Tx) error {
		v, err := tx.Get(key)
		out = v

		return err
	})

	return out, err
}

// Put writes one key.
func Put(ctx context.Context, s Store, key string, value []byte) error {
	return s.Update(ctx, func(tx Tx) error { return tx.Put(key, value) })
}

// Delete removes keys. Missing keys are ignored.
func Delete(ctx context.Context, s Store, keys ...string) error {
	return s.Update(ctx, func(tx Tx) error {
		for _, k := range keys {
			err := tx.Delete(k)
			if err != nil {
				return err
			}
		}

		return nil
	})
}

// Keys lists keys with prefix in sorted order.
func Keys(ctx context.Context, s Store, prefix string) ([]string, error) {
	var out []string

	err := s.View(ctx, func(tx Tx) error {
		k, err := tx.Keys(prefix)
		out = k

		return err
	})

	return out, err
}

// GetJSON decodes the value at key into v.
func GetJSON(tx Tx, key string, v any) error {
	data, err := tx.Get(key)
	if err != nil {
		return err
	}

	err = json.Unmarshal(data, v)
	if err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}

	return nil
}

// PutJSON encodes v and stores it at key.
func PutJSON(tx Tx, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	return tx.Put(key, data)
}

// ReadJSON is GetJSON in its own read transaction.
func ReadJSON(ctx context.Context, s Store, key string, v any) error {
	return s.View(ctx, func(tx Tx) error { return GetJSON(tx, key, v) })
}

// WriteJSON is PutJSON in its own write transaction.
func WriteJSON(ctx context.Context, s Store, key string, v any) error {
	return s.Update(ctx, func(tx Tx) error { return PutJSON(tx, key, v) })
}

// errReadOnly is returned by writes inside View.
var errReadOnly = errors.New("write in read-only transaction")

// staged layers uncommitted writes over a base reader. Backends without
// native transactions use it to give Update callbacks read-your-writes.
type staged struct {
	base     Tx
	writes   map[string][]byte
	deletes  map[string]bool
	readOnly bool
}

func newStaged(base Tx, readOnly bool) *staged {
	return &staged{base: base, writes: map[string][]byte{}, deletes: map[string]bool{}, readOnly: readOnly}
}

func (s *staged) Get(key string) ([]byte, error) {
	if s.deletes[key] {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	if v, ok := s.writes[key]; ok {
		return append([]byte(nil), v...), nil
	}

	return s.base.Get(key)
}

func (s *staged) Keys(prefix string) ([]string, error) {
	base, err := s.base.Keys(prefix)
	if err != nil {
		return nil, err
	}

	set := map[string]bool{}

	for _, k := range base {
		if !s.deletes[k] {
			set[k] = true
		}
	}

	for k := range s.writes {
		if strings.HasPrefix(k, prefix) {
			set[k] = true
		}
	}

	return sortedKeys(set), nil
}

func (s *staged) Put(key string, value []byte) error {
	if s.readOnly {
		return errReadOnly
	}

	if key == "" {
		return ErrEmptyKey
	}

	delete(s.deletes, key)
	s.writes[key] = append([]byte(nil), value...)

	return nil
}

func (s *staged) Delete(key string) error {
	if s.readOnly {
		return errReadOnly
	}

	delete(s.writes, key)
	s.deletes[key] = true

	return nil
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}

	sort.Strings(out)

	return out
}
