package wire

import "encoding/binary"

// sum16 adds up b as big-endian 16-bit words (an odd trailing byte is
// padded with zero) into a 32-bit accumulator, left unfolded; fold
// reduces it. Used as the building block for both the IPv4 and IPv6 UDP
// pseudo-header checksums.
func sum16(b []byte) uint32 {
	var s uint32
	n := len(b)
	for i := 0; i+1 < n; i += 2 {
		s += uint32(binary.BigEndian.Uint16(b[i : i+2]))
	}
	if n%2 == 1 {
		s += uint32(b[n-1]) << 8
	}
	return s
}

func fold(s uint32) uint16 {
	for s>>16 != 0 {
		s = (s & 0xffff) + (s >> 16)
	}
	return ^uint16(s)
}

// UDPChecksumIPv4 computes the UDP checksum for segment (UDP header plus
// payload) riding over the given IPv4 pseudo-header. A zero result is
// renormalized to 0xffff per RFC 768 (an all-zero checksum means "no
// checksum" on IPv4, so a genuine zero must never be sent).
func UDPChecksumIPv4(ip IPv4View, segment []byte) uint16 {
	src, dst := ip.SrcAddr(), ip.DstAddr()
	var pseudo [12]byte
	copy(pseudo[0:4], src[:])
	copy(pseudo[4:8], dst[:])
	pseudo[9] = ProtocolUDP
	binary.BigEndian.PutUint16(pseudo[10:12], uint16(len(segment)))

	s := sum16(pseudo[:]) + sum16(segment)
	c := fold(s)
	if c == 0 {
		c = 0xffff
	}
	return c
}

// UDPChecksumIPv6 computes the UDP checksum for segment (UDP header plus
// payload) riding over the given IPv6 pseudo-header. IPv6 UDP checksums
// are mandatory; a zero checksum is never valid.
func UDPChecksumIPv6(ip IPv6View, segment []byte) uint16 {
	src, dst := ip.SrcAddr(), ip.DstAddr()
	var pseudo [40]byte
	copy(pseudo[0:16], src[:])
	copy(pseudo[16:32], dst[:])
	binary.BigEndian.PutUint32(pseudo[32:36], uint32(len(segment)))
	pseudo[39] = ProtocolUDP

	s := sum16(pseudo[:]) + sum16(segment)
	return fold(s)
}

// ValidateUDPChecksumIPv4 reports whether segment (the UDP header,
// including its carried checksum field, plus payload) is consistent with
// its checksum over ip's pseudo-header. A received checksum of exactly
// zero is always accepted on IPv4, since 0 there conventionally means
// "checksum not computed" (RFC 768) rather than a genuine zero.
func ValidateUDPChecksumIPv4(ip IPv4View, segment []byte) bool {
	if len(segment) >= UDPHeaderLen && binary.BigEndian.Uint16(segment[6:8]) == 0 {
		return true
	}
	src, dst := ip.SrcAddr(), ip.DstAddr()
	var pseudo [12]byte
	copy(pseudo[0:4], src[:])
	copy(pseudo[4:8], dst[:])
	pseudo[9] = ProtocolUDP
	binary.BigEndian.PutUint16(pseudo[10:12], uint16(len(segment)))

	s := sum16(pseudo[:]) + sum16(segment)
	return fold(s) == 0
}

// ValidateUDPChecksumIPv6 reports whether segment (the UDP header,
// including its carried checksum field, plus payload) is consistent with
// its checksum over ip's pseudo-header. Unlike IPv4, a zero checksum is
// never valid on IPv6: a zero checksum field is rejected outright, even
// when the rest of the segment would pass the fold check.
func ValidateUDPChecksumIPv6(ip IPv6View, segment []byte) bool {
	if len(segment) >= UDPHeaderLen && binary.BigEndian.Uint16(segment[6:8]) == 0 {
		return false
	}
	src, dst := ip.SrcAddr(), ip.DstAddr()
	var pseudo [40]byte
	copy(pseudo[0:16], src[:])
	copy(pseudo[16:32], dst[:])
	binary.BigEndian.PutUint32(pseudo[32:36], uint32(len(segment)))
	pseudo[39] = ProtocolUDP

	s := sum16(pseudo[:]) + sum16(segment)
	return fold(s) == 0
}
