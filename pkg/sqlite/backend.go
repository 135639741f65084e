// Package sqlite provides the public API for the SQLite task store.
// This package exposes the factory functions for creating SQLite backends
// while keeping implementation details internal.
package sqlite

import (
	"log/slog"

	"github.com/mesh-intelligence/taskstore/internal/sqlite"
	"github.com/mesh-intelligence/taskstore/pkg/types"
)

// Backend is the SQLite implementation of types.Store.
type Backend = sqlite.Backend

// Option configures a Backend.
type Option = sqlite.Option

// WithLogger sets the structured logger used by the backend.
func WithLogger(l *slog.Logger) Option {
	return sqlite.WithLogger(l)
}

// NewBackend creates a new SQLite backend instance.
// The backend is not open; call Open with a Config to initialize.
//
// Example:
//
//	backend := sqlite.NewBackend()
//	err := backend.Open(types.Config{DataDir: "/var/lib/taskstore"})
//	defer backend.Close()
func NewBackend(opts ...Option) *Backend {
	return sqlite.NewBackend(opts...)
}

// Open creates a backend and opens it with config in one step.
func Open(config types.Config, opts ...Option) (types.Store, error) {
	b := sqlite.NewBackend(opts...)
	if err := b.Open(config); err != nil {
		return nil, err
	}
	return b, nil
}
