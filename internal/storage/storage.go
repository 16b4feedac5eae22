// Package storage persists small named blobs ("slots") on the visitor's
// machine: the local cart and the saved API session.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Get for a slot that was never written or was deleted.
var ErrNotFound = errors.New("storage: slot not found")

// Slots is a named-slot key/value store.
type Slots interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Put(ctx context.Context, name string, data []byte) error
	Delete(ctx context.Context, name string) error
	Close() error
}

// Drivers accepted by Open.
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Driver string
	DSN    string // sqlite file path
	Redis  RedisOptions
}

// Open builds the backend named by opts.Driver.
func Open(opts Options) (Slots, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", DriverSQLite:
		s, err := OpenSQLite(opts.DSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverRedis:
		return NewRedisSlots(opts.Redis), nil
	case DriverMemory:
		return NewMemorySlots(), nil
	default:
		return nil, fmt.Errorf("storage.Open: unsupported driver %q", opts.Driver)
	}
}
