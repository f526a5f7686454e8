package wire

import "encoding/binary"

// IPv6HeaderLen is the fixed IPv6 header length. IPv6 extension headers
// are out of scope (§1 Non-goals); their presence is surfaced as an
// IP_HEADER error by the caller rather than parsed here.
const IPv6HeaderLen = 40

// IPv6View is a zero-copy view over an IPv6 header.
type IPv6View struct {
	b []byte
}

// NewIPv6View wraps b as an IPv6 header view. b must be at least
// IPv6HeaderLen bytes; the view does not copy b.
func NewIPv6View(b []byte) (IPv6View, error) {
	if len(b) < IPv6HeaderLen {
		return IPv6View{}, ErrTooShort
	}
	return IPv6View{b: b[:IPv6HeaderLen]}, nil
}

// PayloadLength returns the IPv6 payload length field.
func (v IPv6View) PayloadLength() uint16 { return binary.BigEndian.Uint16(v.b[4:6]) }

// NextHeader returns the IPv6 next-header field.
func (v IPv6View) NextHeader() uint8 { return v.b[6] }

// SrcAddr returns the source address in network byte order.
func (v IPv6View) SrcAddr() [16]byte { return [16]byte(v.b[8:24]) }

// DstAddr returns the destination address in network byte order.
func (v IPv6View) DstAddr() [16]byte { return [16]byte(v.b[24:40]) }

// Bytes returns the raw header bytes, for checksum computation.
func (v IPv6View) Bytes() []byte { return v.b }
