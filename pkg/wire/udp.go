package wire

import "encoding/binary"

// UDPHeaderLen is the fixed UDP header length.
const UDPHeaderLen = 8

// UDPView is a zero-copy view over a UDP header.
type UDPView struct {
	b []byte
}

// NewUDPView wraps b as a UDP header view. b must be at least
// UDPHeaderLen bytes; the view does not copy b.
func NewUDPView(b []byte) (UDPView, error) {
	if len(b) < UDPHeaderLen {
		return UDPView{}, ErrTooShort
	}
	return UDPView{b: b}, nil
}

// SrcPort returns the UDP source port.
func (v UDPView) SrcPort() uint16 { return binary.BigEndian.Uint16(v.b[0:2]) }

// DstPort returns the UDP destination port.
func (v UDPView) DstPort() uint16 { return binary.BigEndian.Uint16(v.b[2:4]) }

// Length returns the UDP length field (header + payload).
func (v UDPView) Length() uint16 { return binary.BigEndian.Uint16(v.b[4:6]) }

// Checksum returns the UDP checksum field as carried on the wire.
func (v UDPView) Checksum() uint16 { return binary.BigEndian.Uint16(v.b[6:8]) }

// Bytes returns the raw header bytes, for checksum computation. The
// returned slice typically extends past UDPHeaderLen into the payload;
// callers needing just the header use Bytes()[:UDPHeaderLen].
func (v UDPView) Bytes() []byte { return v.b }
