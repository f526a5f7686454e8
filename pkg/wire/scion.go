package wire

import (
	"encoding/binary"
	"errors"
)

// LineLen is the SCION path-header line length: every info field, hop
// field, and address-area padding unit is a multiple of this many bytes.
const LineLen = 8

// CommonHeaderLen is the fixed SCION common header length: the 8-byte
// prefix plus the 8-byte destination and source ISD-AS fields.
const CommonHeaderLen = 24

// SCIONVersion is the only common-header version this fast path accepts.
const SCIONVersion = 0

// HopByHopExtension is the next_header value that routes a packet to the
// hop-by-hop extension handler instead of path-update/internal delivery.
const HopByHopExtension = 0

// AddrType identifies a SCION host address's wire encoding.
type AddrType uint8

// Host address types, per §6.
const (
	AddrNone AddrType = 0
	AddrIPv4 AddrType = 1
	AddrIPv6 AddrType = 2
	AddrSVC  AddrType = 3
)

// ErrBadAddrType is returned when an address type has no defined wire
// length (anything but IPv4, IPv6, or SVC).
var ErrBadAddrType = errors.New("wire: unsupported SCION address type")

// addrLen returns the unpadded wire length of a single host address of
// type t, or an error if t is not a recognized, non-NONE type.
func addrLen(t AddrType) (int, error) {
	switch t {
	case AddrIPv4:
		return 4, nil
	case AddrIPv6:
		return 16, nil
	case AddrSVC:
		return 2, nil
	default:
		return 0, ErrBadAddrType
	}
}

// PaddedAddrLen returns the destination and source host address lengths
// summed and rounded up to a LineLen multiple: the size of the address
// area that follows the common header. Adding CommonHeaderLen to it
// locates the start of the path header (§4.3 check 4).
func PaddedAddrLen(dst, src AddrType) (int, error) {
	dl, err := addrLen(dst)
	if err != nil {
		return 0, err
	}
	sl, err := addrLen(src)
	if err != nil {
		return 0, err
	}
	total := dl + sl
	return (total + LineLen - 1) &^ (LineLen - 1), nil
}

// CommonHeaderView is a zero-copy view over the SCION common header
// (version, address types, lengths, path cursors, next-header, and the
// destination/source ISD-AS fields). It does not cover the variable-length
// host address area that follows.
type CommonHeaderView struct {
	b []byte
}

// NewCommonHeaderView wraps b as a SCION common header view. b must be at
// least CommonHeaderLen bytes; the view does not copy b.
func NewCommonHeaderView(b []byte) (CommonHeaderView, error) {
	if len(b) < CommonHeaderLen {
		return CommonHeaderView{}, ErrTooShort
	}
	return CommonHeaderView{b: b[:CommonHeaderLen]}, nil
}

// Version returns the 4-bit version field.
func (v CommonHeaderView) Version() uint8 {
	return uint8(binary.BigEndian.Uint16(v.b[0:2]) >> 12)
}

// DstType returns the 6-bit destination address type field.
func (v CommonHeaderView) DstType() AddrType {
	return AddrType((binary.BigEndian.Uint16(v.b[0:2]) >> 6) & 0x3f)
}

// SrcType returns the 6-bit source address type field.
func (v CommonHeaderView) SrcType() AddrType {
	return AddrType(binary.BigEndian.Uint16(v.b[0:2]) & 0x3f)
}

// TotalLen returns the total packet length field.
func (v CommonHeaderView) TotalLen() uint16 { return binary.BigEndian.Uint16(v.b[2:4]) }

// HeaderLen returns the header length in LineLen units (covers the common
// header, address area, and path header).
func (v CommonHeaderView) HeaderLen() uint8 { return v.b[4] }

// CurrInfof returns the current info field's offset, in LineLen units
// from the start of the common header.
func (v CommonHeaderView) CurrInfof() uint8 { return v.b[5] }

// CurrHopf returns the current hop field's offset, in LineLen units from
// the start of the common header.
func (v CommonHeaderView) CurrHopf() uint8 { return v.b[6] }

// NextHeader returns the next-header field.
func (v CommonHeaderView) NextHeader() uint8 { return v.b[7] }

// DstISDAS returns the destination ISD-AS field.
func (v CommonHeaderView) DstISDAS() uint64 { return binary.BigEndian.Uint64(v.b[8:16]) }

// SrcISDAS returns the source ISD-AS field.
func (v CommonHeaderView) SrcISDAS() uint64 { return binary.BigEndian.Uint64(v.b[16:24]) }

// Bytes returns the raw header bytes.
func (v CommonHeaderView) Bytes() []byte { return v.b }

// Line returns the LineLen-byte path-header line at the given line index,
// counted from the start of the common header over the buffer buf (which
// must cover at least (idx+1)*LineLen bytes).
func Line(buf []byte, idx uint8) ([]byte, error) {
	off := int(idx) * LineLen
	if off+LineLen > len(buf) {
		return nil, ErrTooShort
	}
	return buf[off : off+LineLen], nil
}
