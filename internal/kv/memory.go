package kv

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Memory is an in-process Store. Nothing survives Close.
type Memory struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: map[string][]byte{}}
}

// View implements Store.
func (m *Memory) View(ctx context.Context, fn func(Tx) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrClosed
	}

	err := ctx.Err()
	if err != nil {
		return err
	}

	return fn(newStaged(memTx{m.data}, true))
}

// Update implements Store.
func (m *Memory) Update(ctx context.Context, fn func(Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	err := ctx.Err()
	if err != nil {
		return err
	}

	tx := newStaged(memTx{m.data}, false)

	err = fn(tx)
	if err != nil {
		return err
	}

	for k := range tx.deletes {
		delete(m.data, k)
	}

	for k, v := range tx.writes {
		m.data[k] = v
	}

	return nil
}

// Close implements Store.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true

	return nil
}

type memTx struct {
	data map[string][]byte
}

func (t memTx) Get(key string) ([]byte, error) {
	v, ok := t.data[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	return append([]byte(nil), v...), nil
}

func (t memTx) Keys(prefix string) ([]string, error) {
	set := map[string]bool{}

	for k := range t.data {
		if strings.HasPrefix(k, prefix) {
			set[k] = true
		}
	}

	return sortedKeys(set), nil
}

func (memTx) Put(string, []byte) error { return errReadOnly }

func (memTx) Delete(string) error { return errReadOnly }
