// Package registry implements the interface registry: the arena of
// underlay interfaces the bypass and validation stages consult to map a
// packet's underlay 4-tuple or SCION interface ID to a local slot.
package registry

import "errors"

// RegistryError is the flat, comparable error taxonomy for registry
// operations, mirroring the original plugin's VNET_API_ERROR_* values for
// scion_add_intf/scion_del_intf (intf.c).
type RegistryError error

// Sentinel RegistryError values, in the order the original add/delete
// handlers check them.
var (
	// ErrAlreadyExists is returned by AddInterface when an interface with
	// the given SCION interface ID is already registered.
	ErrAlreadyExists RegistryError = errors.New("registry: interface already exists")

	// ErrAddressInUse is returned by AddInterface when another interface
	// already owns the (local address, local port) underlay key.
	ErrAddressInUse RegistryError = errors.New("registry: underlay address already in use")

	// ErrInvalidRegistration is returned when the host framework fails to
	// hand back a forwarding slot for the new interface (e.g. it could
	// not bind the requested local address/port).
	ErrInvalidRegistration RegistryError = errors.New("registry: host framework registration failed")

	// ErrNoSuchEntry is returned by DeleteInterface when no interface
	// with the given SCION interface ID is registered.
	ErrNoSuchEntry RegistryError = errors.New("registry: no such interface")

	// ErrAddressNotInUse is returned by DeleteInterface when the supplied
	// local address/port does not match the registered interface's
	// underlay (local) key (a re-lookup against stale callers).
	ErrAddressNotInUse RegistryError = errors.New("registry: address does not match registered interface")

	// ErrMissingField names a required field absent from an interface
	// (remote address, remote port, link type, or neighbor ISD-AS once
	// the interface ID is non-zero). Registry.AddInterface does not check
	// for missing fields and never returns it; control.AddInterface
	// performs those checks and returns control.ErrMissingField.
	ErrMissingField RegistryError = errors.New("registry: missing required field")

	// ErrAddressFamilyMismatch is returned when the local and remote
	// addresses of an interface are not both IPv4 or both IPv6.
	ErrAddressFamilyMismatch RegistryError = errors.New("registry: local and remote address families differ")
)
