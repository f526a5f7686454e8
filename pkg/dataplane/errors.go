package dataplane

import "errors"

// BypassError is the flat, comparable error taxonomy for the underlay
// bypass stage, mirroring the original plugin's SCION_BYPASS_ERROR_*
// counters (bypass.c).
type BypassError error

// Sentinel BypassError values. When more than one check fails on the
// same packet, the bypass stage picks among them by priority rather than
// by whichever happened to run last.
var (
	ErrIPHeader       BypassError = errors.New("dataplane: malformed or unsupported IP header")
	ErrUDPLength      BypassError = errors.New("dataplane: IP/UDP length mismatch")
	ErrUDPChecksum    BypassError = errors.New("dataplane: bad UDP checksum")
	ErrNoIntfMatch    BypassError = errors.New("dataplane: no interface matches underlay source")
	ErrPacketTooShort BypassError = errors.New("dataplane: packet shorter than IP+UDP headers")
)

// ValidationError is the flat, comparable error taxonomy for the SCION
// header validation stage, mirroring scion_error.h's ordering.
type ValidationError error

var (
	ErrTooShort               ValidationError = errors.New("dataplane: packet shorter than SCION common header")
	ErrBadLength              ValidationError = errors.New("dataplane: SCION total length does not match packet")
	ErrBadHeaderLength        ValidationError = errors.New("dataplane: SCION header length out of bounds")
	ErrBadCurrentInfof        ValidationError = errors.New("dataplane: current info field offset out of bounds")
	ErrBadCurrentInfofHopf    ValidationError = errors.New("dataplane: current hop field does not follow current info field")
	ErrBadCurrentHopf         ValidationError = errors.New("dataplane: current hop field offset out of bounds")
	ErrVersion                ValidationError = errors.New("dataplane: unsupported SCION version")
	ErrBadPath                ValidationError = errors.New("dataplane: malformed path header")
	ErrHopfExpired            ValidationError = errors.New("dataplane: hop field expired")
	ErrHopfNotInSegment       ValidationError = errors.New("dataplane: hop field not in segment")
	ErrHopfBadIngressIntf     ValidationError = errors.New("dataplane: hop field ingress interface does not match")
	ErrHopfBadMAC             ValidationError = errors.New("dataplane: hop field MAC verification failed")
)

// RegistryError names used by the dataplane when consulting the
// interface registry; kept distinct from registry.RegistryError so the
// dataplane's error taxonomy stays self-contained.
var ErrNoSuchInterface = errors.New("dataplane: no such interface")
