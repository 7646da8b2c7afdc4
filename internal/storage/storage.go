// Package storage provides the key-value persistence backends the session
// store serializes into.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Load when nothing has been saved under a key.
var ErrNotFound = errors.New("key not found")

// Backend persists opaque values under string keys.
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Close() error
}

// Kind names a backend implementation.
type Kind string

const (
	KindFile   Kind = "file"
	KindRedis  Kind = "redis"
	KindMemory Kind = "memory"
)

// Options selects and parameterises a backend.
type Options struct {
	Kind          Kind
	Path          string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Open builds the backend named by opts.Kind.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch opts.Kind {
	case KindFile, "":
		return NewFileBackend(opts.Path)
	case KindRedis:
		return NewRedisBackend(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB)
	case KindMemory:
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", opts.Kind)
	}
}
