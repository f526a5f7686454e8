package wire

import "encoding/binary"

// IPv4HeaderLen is the fixed IPv4 header length this fast path supports.
// Packets carrying IPv4 options (see HasOptions) are rejected by the
// bypass stage as an IP header error (see scion_overlay_check_udp in the
// original plugin: "IPv4 packets with options are considered errors").
const IPv4HeaderLen = 20

// ProtocolUDP is the IPv4/IPv6 next-protocol value for UDP.
const ProtocolUDP = 17

// IPv4View is a zero-copy view over an IPv4 header.
type IPv4View struct {
	b []byte
}

// NewIPv4View wraps b as an IPv4 header view. b must be at least
// IPv4HeaderLen bytes; the view does not copy b.
func NewIPv4View(b []byte) (IPv4View, error) {
	if len(b) < IPv4HeaderLen {
		return IPv4View{}, ErrTooShort
	}
	return IPv4View{b: b[:IPv4HeaderLen]}, nil
}

// IHL returns the header length in bytes as encoded in the IHL nibble.
func (v IPv4View) IHL() int { return int(v.b[0]&0x0f) * 4 }

// HasOptions reports whether the header carries IPv4 options.
func (v IPv4View) HasOptions() bool { return v.IHL() != IPv4HeaderLen }

// TotalLength returns the IPv4 total length field (header + payload).
func (v IPv4View) TotalLength() uint16 { return binary.BigEndian.Uint16(v.b[2:4]) }

// Protocol returns the IPv4 next-protocol field.
func (v IPv4View) Protocol() uint8 { return v.b[9] }

// PayloadLength returns TotalLength minus the (option-free) header length.
func (v IPv4View) PayloadLength() uint16 { return v.TotalLength() - uint16(IPv4HeaderLen) }

// SrcAddr returns the source address in network byte order.
func (v IPv4View) SrcAddr() [4]byte { return [4]byte(v.b[12:16]) }

// DstAddr returns the destination address in network byte order.
func (v IPv4View) DstAddr() [4]byte { return [4]byte(v.b[16:20]) }

// Bytes returns the raw header bytes, for checksum computation.
func (v IPv4View) Bytes() []byte { return v.b }
