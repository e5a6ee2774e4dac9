// Package cache holds the response and module-info caches. Both are
// content addressed: the storage key is an md5 digest of the key parts, and
// every entry keeps its key parts next to the payload for diagnosability.
// Collisions are not detected.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
)

// ErrMiss is returned by a Store when the key has no entry.
var ErrMiss = errors.New("cache miss")

// Store persists opaque entries by hashed key.
type Store interface {
	Read(key string) ([]byte, error)
	Write(key string, data []byte) error
	Delete(key string) error
	Clear() error
	Len() int
}

// HashKey derives the storage key for the given content.
func HashKey(content string) string {
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}
