// Package wire implements zero-copy, bounds-checked views over the
// on-the-wire byte layouts this fast path needs: IPv4, IPv6, UDP, and the
// SCION common/path headers. Every accessor reads directly out of the
// backing buffer in network byte order; nothing here allocates or copies.
package wire

import "errors"

// ErrTooShort is returned by a view constructor when the backing buffer is
// shorter than the fixed-size header it is meant to cover.
var ErrTooShort = errors.New("wire: buffer too short for header")
