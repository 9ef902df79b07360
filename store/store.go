// Package store defines the persistent index store the finalized state
// is built on: a set of independent ordered byte-key trees.
//
// Every Insert is durable on return, but there is no atomicity across
// keys or trees. Callers that need a multi-key update to be recoverable
// must order their writes accordingly.
package store

import "errors"

// ErrInvalidTreeName is returned for tree names a backend cannot map to
// its own namespace.
var ErrInvalidTreeName = errors.New("invalid tree name")

// Tree is one ordered key/value index.
type Tree interface {
	// Get returns the value stored under key, or nil if there is none.
	Get(key []byte) ([]byte, error)

	// Insert stores value under key and returns the value it replaced,
	// or nil.
	Insert(key, value []byte) ([]byte, error)

	// Last returns the entry with the highest key. Both are nil if the
	// tree is empty.
	Last() (key, value []byte, err error)

	// ForEach calls fn for every entry in ascending key order until fn
	// returns false. The slices passed to fn are only valid during the
	// call.
	ForEach(fn func(key, value []byte) bool) error
}

// DB hands out named trees.
type DB interface {
	Tree(name string) (Tree, error)
	Close() error
}

// ValidTreeName reports whether name only uses [a-z0-9_], which every
// backend can embed in its own keys or identifiers.
func ValidTreeName(name string) bool {
	if name == "" {
		return false
	}
	for _, c := range name {
		if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_') {
			return false
		}
	}
	return true
}
