// Package storage is a small namespaced key/value store used for values
// that must survive a reboot. The API is modeled on an MCU flash-backed
// store: values are addressed by (namespace, key) and only integer and
// string types are supported. Anything else is persisted through an
// explicit encoding convention at the call site.
package storage

import "errors"

var (
	// ErrNotFound is returned when a (namespace, key) pair has never
	// been written.
	ErrNotFound = errors.New("storage: key not found")
)

// Store is the persistence primitive used by the property table.
type Store interface {
	GetU32(namespace, key string) (uint32, error)
	SetU32(namespace, key string, value uint32) error
	GetString(namespace, key string) (string, error)
	SetString(namespace, key, value string) error

	// Commit flushes pending writes to the backing medium.
	Commit() error
}
