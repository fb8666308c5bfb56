// Package kv provides whole-document key-value storage backends.
package kv

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrNotFound is returned when a key has no stored document.
	ErrNotFound = errors.New("key not found")
	// ErrInvalidKey is returned for keys that cannot be mapped to a storage name.
	ErrInvalidKey = errors.New("invalid key")
)

// Store is a key-value store with whole-document replace semantics.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,127}$`)

// ValidKey reports whether key is safe to use as a file or object name.
func ValidKey(key string) bool {
	return keyPattern.MatchString(key) && !strings.Contains(key, "..")
}
