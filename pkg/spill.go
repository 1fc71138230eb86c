// Package pkg provides utilities shared by nessie commands.
package pkg

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Journal is an append-only, gob-encoded log of items of type T.
type Journal[T any] interface {
	Len() uint64
	Path() string
	Append(item T) error
	AppendBatch(items []T) error
	Get(index uint64) (T, error)
	Range(f func(index uint64, item T) error) error
	Close() error
}

type gobJournal[T any] struct {
	path    string
	file    *os.File
	encoder *gob.Encoder
	mu      sync.Mutex
	length  uint64
}

// CreateJournal truncates or creates the journal at path.
func CreateJournal[T any](path string) (Journal[T], error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		slog.Error("Failed to create journal directory", "path", path, "error", err)
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	file, err := os.Create(path) //nolint:gosec // path comes from the output configuration
	if err != nil {
		slog.Error("Failed to create journal", "path", path, "error", err)
		return nil, fmt.Errorf("failed to create journal: %w", err)
	}

	slog.Debug("Created journal", "path", path)

	return &gobJournal[T]{
		path:    path,
		file:    file,
		encoder: gob.NewEncoder(file),
	}, nil
}

// ReadJournal decodes every item of a closed journal.
func ReadJournal[T any](path string) ([]T, error) {
	file, err := os.Open(path) //nolint:gosec // path comes from the output configuration
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	defer func() {
		if err := file.Close(); err != nil {
			slog.Error("Failed to close journal", "path", path, "error", err)
		}
	}()

	var items []T

	decoder := gob.NewDecoder(file)

	for {
		var item T

		err := decoder.Decode(&item)
		if errors.Is(err, io.EOF) {
			return items, nil
		}

		if err != nil {
			return items, fmt.Errorf("failed to decode journal item %d: %w", len(items), err)
		}

		items = append(items, item)
	}
}

// Append implements Journal.
func (j *gobJournal[T]) Append(item T) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return fmt.Errorf("journal %s is closed", j.path)
	}

	if err := j.encoder.Encode(item); err != nil {
		slog.Error("Failed to encode journal item", "path", j.path, "index", j.length, "error", err)
		return fmt.Errorf("failed to encode item: %w", err)
	}

	j.length++

	return nil
}

// AppendBatch implements Journal.
func (j *gobJournal[T]) AppendBatch(items []T) error {
	for _, item := range items {
		if err := j.Append(item); err != nil {
			return err
		}
	}

	return nil
}

// Path implements Journal.
func (j *gobJournal[T]) Path() string {
	return j.path
}

// Len implements Journal.
func (j *gobJournal[T]) Len() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.length
}

// Get implements Journal.
func (j *gobJournal[T]) Get(index uint64) (T, error) {
	var found T

	err := j.Range(func(i uint64, item T) error {
		if i == index {
			found = item
			return errStopRange
		}

		return nil
	})
	if errors.Is(err, errStopRange) {
		return found, nil
	}

	if err != nil {
		return found, err
	}

	return found, fmt.Errorf("index %d out of bounds (length %d)", index, j.Len())
}

var errStopRange = errors.New("stop range")

// Range implements Journal. Items are decoded from disk in append order.
func (j *gobJournal[T]) Range(fn func(index uint64, item T) error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	file, err := os.Open(j.path)
	if err != nil {
		slog.Error("Failed to open journal for range", "path", j.path, "error", err)
		return fmt.Errorf("failed to open journal: %w", err)
	}

	defer func() {
		if err := file.Close(); err != nil {
			slog.Error("Failed to close journal", "path", j.path, "error", err)
		}
	}()

	decoder := gob.NewDecoder(file)

	for i := range j.length {
		var item T

		if err := decoder.Decode(&item); err != nil {
			slog.Error("Failed to decode journal item", "path", j.path, "index", i, "error", err)
			return fmt.Errorf("failed to decode item at index %d: %w", i, err)
		}

		if err := fn(i, item); err != nil {
			return err
		}
	}

	return nil
}

// Close implements Journal.
func (j *gobJournal[T]) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return nil
	}

	err := j.file.Close()
	j.file = nil

	if err != nil {
		slog.Error("Failed to close journal", "path", j.path, "error", err)
		return err
	}

	slog.Debug("Closed journal", "path", j.path, "length", j.length)

	return nil
}
