package wire

import "encoding/binary"

// InfoFieldLen and HopFieldLen are both one path-header line.
const (
	InfoFieldLen = LineLen
	HopFieldLen  = LineLen
)

// Info field flag bits.
const (
	InfoFlagConsDir  = 1 << 0
	InfoFlagShortcut = 1 << 1
	InfoFlagPeer     = 1 << 2
)

// Hop field flag bits.
const (
	HopFlagXover      = 1 << 0
	HopFlagVerifyOnly = 1 << 1
)

// ExpTimeUnit is the duration, in seconds, represented by one unit of a
// hop field's 8-bit expiration time: a day's worth of seconds spread over
// the 256 representable values.
const ExpTimeUnit = 24 * 60 * 60 / 256

// InfoFieldView is a zero-copy view over an 8-byte SCION info field:
// flags(1) | timestamp(4) | isd(2) | hops(1).
type InfoFieldView struct {
	b []byte
}

// NewInfoFieldView wraps b as an info field view. b must be exactly
// InfoFieldLen bytes (use Line to slice one out of a path header).
func NewInfoFieldView(b []byte) (InfoFieldView, error) {
	if len(b) < InfoFieldLen {
		return InfoFieldView{}, ErrTooShort
	}
	return InfoFieldView{b: b[:InfoFieldLen]}, nil
}

// Flags returns the raw flag byte.
func (v InfoFieldView) Flags() uint8 { return v.b[0] }

// ConsDir reports whether the segment is traversed in construction
// direction.
func (v InfoFieldView) ConsDir() bool { return v.Flags()&InfoFlagConsDir != 0 }

// Timestamp returns the segment creation time, in seconds since the Unix
// epoch.
func (v InfoFieldView) Timestamp() uint32 { return binary.BigEndian.Uint32(v.b[1:5]) }

// ISD returns the segment's ISD.
func (v InfoFieldView) ISD() uint16 { return binary.BigEndian.Uint16(v.b[5:7]) }

// Hops returns the number of hop fields belonging to this segment.
func (v InfoFieldView) Hops() uint8 { return v.b[7] }

// Bytes returns the raw field bytes.
func (v InfoFieldView) Bytes() []byte { return v.b }

// SetSegID overwrites the ISD bytes with seg, matching the hop-by-hop
// SegID update the original code performs on successful MAC validation
// (scion_input.c: info->UpdateSegID(hop.Mac)). Present for symmetry with
// the info field's other mutation points; this fast path treats SegID as
// opaque and does not itself recompute it.
func (v InfoFieldView) SetSegID(seg uint16) { binary.BigEndian.PutUint16(v.b[5:7], seg) }

// HopFieldView is a zero-copy view over an 8-byte SCION hop field, packed
// as flags(8) | exp_time(8) | cons_ingress(12) | cons_egress(12) | mac(24).
type HopFieldView struct {
	b []byte
}

// NewHopFieldView wraps b as a hop field view. b must be exactly
// HopFieldLen bytes.
func NewHopFieldView(b []byte) (HopFieldView, error) {
	if len(b) < HopFieldLen {
		return HopFieldView{}, ErrTooShort
	}
	return HopFieldView{b: b[:HopFieldLen]}, nil
}

// Flags returns the raw flag byte.
func (v HopFieldView) Flags() uint8 { return v.b[0] }

// Xover reports whether this hop field is a path crossover point.
func (v HopFieldView) Xover() bool { return v.Flags()&HopFlagXover != 0 }

// VerifyOnly reports whether this hop field is verify-only (never used to
// forward, only to authenticate the segment it terminates).
func (v HopFieldView) VerifyOnly() bool { return v.Flags()&HopFlagVerifyOnly != 0 }

// ExpTime returns the raw 8-bit expiration time. Add one, multiply by
// ExpTimeUnit, and add to the owning info field's Timestamp to get the
// absolute expiration time in seconds since the Unix epoch.
func (v HopFieldView) ExpTime() uint8 { return v.b[1] }

// consIngress and consEgress are packed into the 3 bytes following
// exp_time as two 12-bit big-endian fields: consIngress in the high
// nibble-aligned 12 bits, consEgress in the low 12 bits.
func (v HopFieldView) consIngress() uint16 {
	return uint16(v.b[2])<<4 | uint16(v.b[3])>>4
}

func (v HopFieldView) consEgress() uint16 {
	return (uint16(v.b[3])&0x0f)<<8 | uint16(v.b[4])
}

// ConsIngress returns the hop field's ingress interface ID, in
// construction direction.
func (v HopFieldView) ConsIngress() uint16 { return v.consIngress() }

// ConsEgress returns the hop field's egress interface ID, in construction
// direction.
func (v HopFieldView) ConsEgress() uint16 { return v.consEgress() }

// Ingress returns the hop field's ingress interface ID as seen by a
// packet traveling the segment in the direction given by consDir: it is
// ConsIngress when consDir is true, ConsEgress otherwise.
func (v HopFieldView) Ingress(consDir bool) uint16 {
	if consDir {
		return v.ConsIngress()
	}
	return v.ConsEgress()
}

// Egress returns the hop field's egress interface ID as seen by a packet
// traveling the segment in the direction given by consDir: it is
// ConsEgress when consDir is true, ConsIngress otherwise.
func (v HopFieldView) Egress(consDir bool) uint16 {
	if consDir {
		return v.ConsEgress()
	}
	return v.ConsIngress()
}

// MAC returns the hop field's low 24-bit MAC.
func (v HopFieldView) MAC() uint32 {
	return uint32(v.b[5])<<16 | uint32(v.b[6])<<8 | uint32(v.b[7])
}

// SetMAC overwrites the low 24 bits of the MAC field.
func (v HopFieldView) SetMAC(mac uint32) {
	v.b[5] = byte(mac >> 16)
	v.b[6] = byte(mac >> 8)
	v.b[7] = byte(mac)
}

// Bytes returns the raw field bytes.
func (v HopFieldView) Bytes() []byte { return v.b }
