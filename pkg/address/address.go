// Package address maps resource IRIs to stable content addresses.
//
// An address is the lowercase hex SHA-256 of the IRI string. It is used
// as a storage-path segment in environments and indexes, never shown to
// users as an identifier. Two implementations that agree on the IRI
// must agree on the address, so nothing here may depend on platform or
// library behavior.
package address

import (
	"crypto/sha256"
	"encoding/hex"
)

// Key is a hex-encoded SHA-256 content address.
type Key string

// ForIRI computes the content address of a resource IRI. Equal IRIs
// always produce equal keys; the function has no side effects.
func ForIRI(iri string) Key {
	sum := sha256.Sum256([]byte(iri))
	return Key(hex.EncodeToString(sum[:]))
}

// String returns the key as a plain string.
func (k Key) String() string { return string(k) }
