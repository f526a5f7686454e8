package dataplane

import (
	"net/netip"

	"github.com/fancl20/cion-fastpath/pkg/registry"
	"github.com/fancl20/cion-fastpath/pkg/wire"
)

// afView is the small slice of an IP header view the bypass stage needs,
// implemented once for IPv4 and once for IPv6 so BypassStage's logic
// itself is written against the address family only once (§9's "single
// generic implementation instantiated twice" design note).
type afView interface {
	NextProto() uint8
	PayloadLen() uint16
	SrcAddr() netip.Addr
	DstAddr() netip.Addr
	// ValidChecksum reports whether segment (the UDP header, including
	// its carried checksum, plus payload) checksums correctly over this
	// IP header's pseudo-header.
	ValidChecksum(segment []byte) bool
}

type ipv4AF struct{ v wire.IPv4View }

func (a ipv4AF) NextProto() uint8      { return a.v.Protocol() }
func (a ipv4AF) PayloadLen() uint16    { return a.v.PayloadLength() }
func (a ipv4AF) SrcAddr() netip.Addr   { b := a.v.SrcAddr(); return netip.AddrFrom4(b) }
func (a ipv4AF) DstAddr() netip.Addr   { b := a.v.DstAddr(); return netip.AddrFrom4(b) }
func (a ipv4AF) ValidChecksum(segment []byte) bool {
	return wire.ValidateUDPChecksumIPv4(a.v, segment)
}

type ipv6AF struct{ v wire.IPv6View }

func (a ipv6AF) NextProto() uint8      { return a.v.NextHeader() }
func (a ipv6AF) PayloadLen() uint16    { return a.v.PayloadLength() }
func (a ipv6AF) SrcAddr() netip.Addr   { b := a.v.SrcAddr(); return netip.AddrFrom16(b) }
func (a ipv6AF) DstAddr() netip.Addr   { b := a.v.DstAddr(); return netip.AddrFrom16(b) }
func (a ipv6AF) ValidChecksum(segment []byte) bool {
	return wire.ValidateUDPChecksumIPv6(a.v, segment)
}

// BypassStage strips the underlay IP+UDP framing off SCION-over-UDP
// packets before the validation stage ever sees them. It is the Go
// counterpart of ip[46]_scion_bypass_inline: a feature that, once
// enabled on an interface, intercepts plain IP traffic addressed to a
// configured SCION underlay socket and hands the SCION payload onward.
type BypassStage struct {
	registry *registry.Registry
}

// NewBypassStage returns a BypassStage consulting reg to resolve
// underlay addresses to registered interfaces.
func NewBypassStage(reg *registry.Registry) *BypassStage {
	return &BypassStage{registry: reg}
}

// ProcessIPv4 runs the bypass stage over buf, which must currently be
// positioned at the start of an IPv4 header. On success it advances
// buf's cursor past the IP and UDP headers, sets buf's logical ingress
// interface to the matched registered interface, and returns that
// interface. On failure it records the highest-priority error on buf and
// returns ok=false; buf's cursor is left unchanged.
func (s *BypassStage) ProcessIPv4(buf *Buffer) (ifc registry.Interface, ok bool) {
	return process(s.registry, buf, wire.IPv4HeaderLen, func(b []byte) (ipv4AF, error) {
		v, err := wire.NewIPv4View(b)
		if err == nil && v.HasOptions() {
			err = ErrIPHeader
		}
		return ipv4AF{v}, err
	})
}

// ProcessIPv6 is ProcessIPv4's IPv6 counterpart.
func (s *BypassStage) ProcessIPv6(buf *Buffer) (ifc registry.Interface, ok bool) {
	return process(s.registry, buf, wire.IPv6HeaderLen, func(b []byte) (ipv6AF, error) {
		v, err := wire.NewIPv6View(b)
		return ipv6AF{v}, err
	})
}

// process implements the shared bypass logic for any address family T,
// parameterized only by the IP header length and a parser for that
// family's view. It mirrors scion_bypass_err_code: each check below is
// evaluated unless an earlier failure leaves it nothing to inspect (a
// bad IP header skips the rest, a bad UDP length skips the checksum),
// and the final error (if any) is picked by fixed priority — IP_HEADER,
// then UDP_LENGTH, then UDP_CHECKSUM, then NO_INTF_MATCH — rather than
// by whichever happened to be computed last.
func process[T afView](reg *registry.Registry, buf *Buffer, ipHeaderLen int, parse func([]byte) (T, error)) (registry.Interface, bool) {
	// The shortest packet the stage will look at is this family's IP
	// header plus a UDP header, mirroring scion_overlay_check_min_size.
	if buf.Len() < ipHeaderLen+wire.UDPHeaderLen {
		buf.SetErr(ErrPacketTooShort)
		return registry.Interface{}, false
	}

	raw := buf.Bytes()
	ip, ipErr := parse(raw)
	var ipHeaderBad bool
	if ipErr != nil || ip.NextProto() != wire.ProtocolUDP {
		ipHeaderBad = true
	}

	segment := raw[ipHeaderLen:]
	udp, udpErr := wire.NewUDPView(segment)

	var udpLenBad bool
	if !ipHeaderBad {
		if udpErr != nil || ip.PayloadLen() != udp.Length() {
			udpLenBad = true
		}
	}

	var checksumBad bool
	if !ipHeaderBad && !udpLenBad && udpErr == nil {
		if !buf.HasFlag(FlagL4ChecksumComputed) {
			if !ip.ValidChecksum(segment) {
				checksumBad = true
			}
		} else if !buf.HasFlag(FlagL4ChecksumCorrect) {
			checksumBad = true
		}
	}

	var matched registry.Interface
	var noIntfMatch bool
	if !ipHeaderBad {
		ifc, found := reg.LookupByUnderlay(ip.DstAddr(), udp.DstPort())
		if !found || !registry.ValidateSource(ifc, ip.SrcAddr(), udp.SrcPort()) {
			noIntfMatch = true
		} else {
			matched = ifc
		}
	}

	switch {
	case ipHeaderBad:
		buf.SetErr(ErrIPHeader)
		return registry.Interface{}, false
	case udpLenBad:
		buf.SetErr(ErrUDPLength)
		return registry.Interface{}, false
	case checksumBad:
		buf.SetErr(ErrUDPChecksum)
		return registry.Interface{}, false
	case noIntfMatch:
		buf.SetErr(ErrNoIntfMatch)
		return registry.Interface{}, false
	}

	buf.Advance(ipHeaderLen + wire.UDPHeaderLen)
	buf.SetRXInterface(matched.SWIndex)
	return matched, true
}
