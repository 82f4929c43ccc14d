package kv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/natefinch/atomic"
)

const valueExt = ".val"

// Dir stores one file per key. Keys are path-escaped into file names and
// every write goes through an atomic rename. Transactions hold an exclusive
// flock so concurrent processes see whole updates.
type Dir struct {
	root   string
	mu     sync.Mutex
	closed bool
}

// OpenDir opens (creating if needed) a directory store at root.
func OpenDir(root string) (*Dir, error) {
	if root == "" {
		return nil, errors.New("open dir store: path is empty")
	}

	err := os.MkdirAll(root, 0o750)
	if err != nil {
		return nil, fmt.Errorf("open dir store: %w", err)
	}

	return &Dir{root: root}, nil
}

// Root returns the directory holding the value files.
func (d *Dir) Root() string { return d.root }

// View implements Store.
func (d *Dir) View(ctx context.Context, fn func(Tx) error) error {
	return d.run(ctx, true, fn)
}

// Update implements Store.
func (d *Dir) Update(ctx context.Context, fn func(Tx) error) error {
	return d.run(ctx, false, fn)
}

// Close implements Store.
func (d *Dir) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true

	return nil
}

func (d *Dir) run(ctx context.Context, readOnly bool, fn func(Tx) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}

	err := ctx.Err()
	if err != nil {
		return err
	}

	lock, err := acquireLock(d.root, "kv", LockTimeout)
	if err != nil {
		return fmt.Errorf("acquiring lock: %w", err)
	}

	defer lock.release()

	tx := newStaged(dirTx{root: d.root}, readOnly)

	err = fn(tx)
	if err != nil || readOnly {
		return err
	}

	return d.commit(tx)
}

func (d *Dir) commit(tx *staged) error {
	for k := range tx.deletes {
		err := os.Remove(d.path(k))
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("delete %s: %w", k, err)
		}
	}

	for k, v := range tx.writes {
		err := atomic.WriteFile(d.path(k), bytes.NewReader(v))
		if err != nil {
			return fmt.Errorf("write %s: %w", k, err)
		}
	}

	return nil
}

func (d *Dir) path(key string) string {
	return filepath.Join(d.root, url.PathEscape(key)+valueExt)
}

type dirTx struct {
	root string
}

func (t dirTx) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(t.root, url.PathEscape(key)+valueExt))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}

	return data, nil
}

func (t dirTx) Keys(prefix string) ([]string, error) {
	entries, err := os.ReadDir(t.root)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}

	set := map[string]bool{}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, valueExt) {
			continue
		}

		key, err := url.PathUnescape(strings.TrimSuffix(name, valueExt))
		if err != nil {
			continue
		}

		if strings.HasPrefix(key, prefix) {
			set[key] = true
		}
	}

	return sortedKeys(set), nil
}

func (dirTx) Put(string, []byte) error { return errReadOnly }

func (dirTx) Delete(string) error { return errReadOnly }
