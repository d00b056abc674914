// Package store persists a named collection of records as a single JSON
// document on disk. Every mutation runs a full load-mutate-save cycle; the
// collection mutex is held for the whole cycle so concurrent writers can
// never lose each other's updates.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// schemaVersion is written into every saved document. Bump on any
// incompatible change to the record layout.
const schemaVersion = 1

// document is the on-disk envelope around a collection.
type document[T any] struct {
	Schema  int `json:"schema"`
	Records []T `json:"records"`
}

// Collection is a JSON-file backed set of records. A missing or corrupt
// file loads as an empty collection: the service favors availability over
// preserving a file nothing can parse anyway.
type Collection[T any] struct {
	mu   sync.Mutex
	path string
	log  *logrus.Entry
}

// NewCollection binds a collection to its backing file. The file is not
// created until the first save.
func NewCollection[T any](path string) *Collection[T] {
	return &Collection[T]{
		path: path,
		log:  logrus.WithField("collection", filepath.Base(path)),
	}
}

// Load returns the current records. It never fails: an absent or
// unreadable file yields an empty collection.
func (c *Collection[T]) Load() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadLocked()
}

func (c *Collection[T]) loadLocked() []T {
	b, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.log.WithError(err).Warn("read failed, treating collection as empty")
		}
		return nil
	}

	var doc document[T]
	if err := json.Unmarshal(b, &doc); err == nil && doc.Records != nil {
		return doc.Records
	}

	// Pre-envelope files are a bare array; accept them and let the next
	// save rewrite the envelope.
	var legacy []T
	if err := json.Unmarshal(b, &legacy); err != nil {
		c.log.WithError(err).Warn("malformed collection file, treating as empty")
		return nil
	}
	return legacy
}

func (c *Collection[T]) saveLocked(records []T) error {
	b, err := json.MarshalIndent(document[T]{Schema: schemaVersion, Records: records}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal collection")
	}

	// Write-then-rename so a load never observes a partial document.
	tmp, err := os.CreateTemp(filepath.Dir(c.path), "."+filepath.Base(c.path)+".*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrap(err, "write collection")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "close temp file")
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "replace collection file")
	}
	return nil
}

// Replace overwrites the whole collection.
func (c *Collection[T]) Replace(records []T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked(records)
}

// Update runs fn against a snapshot of the collection and persists what it
// returns. The lock is held across the whole cycle, so two concurrent
// Updates are serialized and both land. fn returning an error aborts the
// save and the error comes back unchanged.
func (c *Collection[T]) Update(fn func(records []T) ([]T, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := fn(c.loadLocked())
	if err != nil {
		return err
	}
	return c.saveLocked(records)
}
