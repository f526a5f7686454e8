// Package keys implements hop-field MAC verification: the symmetric key
// slots a router signs and authenticates hop fields with, and the
// AES-128-CMAC computation itself.
package keys

import "errors"

// KeyError is the flat, comparable error taxonomy for key-slot
// operations.
type KeyError error

var (
	// ErrNoKey is returned by SetKey when the slot index is outside
	// [0, MaxSlots), so there is no key slot to set.
	ErrNoKey KeyError = errors.New("keys: no key configured for slot")

	// ErrBadKeyLength is returned by SetKey when the supplied key is not
	// 16 bytes (AES-128).
	ErrBadKeyLength KeyError = errors.New("keys: key must be 16 bytes for AES-128-CMAC")
)
