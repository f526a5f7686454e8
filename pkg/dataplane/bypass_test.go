package dataplane_test

import (
	"encoding/binary"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fancl20/cion-fastpath/pkg/dataplane"
	"github.com/fancl20/cion-fastpath/pkg/registry"
	"github.com/fancl20/cion-fastpath/pkg/wire"
)

func buildIPv4UDP(t *testing.T, src, dst netip.Addr, srcPort, dstPort uint16, payload []byte, goodChecksum bool) []byte {
	t.Helper()
	udpLen := wire.UDPHeaderLen + len(payload)
	total := wire.IPv4HeaderLen + udpLen

	b := make([]byte, total)
	b[0] = 0x45
	binary.BigEndian.PutUint16(b[2:4], uint16(total))
	b[8] = 64
	b[9] = wire.ProtocolUDP
	copy(b[12:16], src.AsSlice())
	copy(b[16:20], dst.AsSlice())

	udp := b[wire.IPv4HeaderLen:]
	binary.BigEndian.PutUint16(udp[0:2], srcPort)
	binary.BigEndian.PutUint16(udp[2:4], dstPort)
	binary.BigEndian.PutUint16(udp[4:6], uint16(udpLen))
	copy(udp[8:], payload)

	ip, err := wire.NewIPv4View(b)
	require.NoError(t, err)
	cs := wire.UDPChecksumIPv4(ip, udp)
	if !goodChecksum {
		cs ^= 0xffff
	}
	binary.BigEndian.PutUint16(udp[6:8], cs)
	return b
}

func registerTestInterface(t *testing.T) (*registry.Registry, registry.Interface) {
	t.Helper()
	reg := registry.New(registry.NewMemoryFramework())
	ifc, err := reg.AddInterface(registry.Interface{
		IfID:       1,
		Local:      netip.MustParseAddr("10.0.0.1"),
		LocalPort:  50000,
		Remote:     netip.MustParseAddr("10.0.0.2"),
		RemotePort: 40000,
		LinkTo:     registry.LinkChild,
	})
	require.NoError(t, err)
	return reg, ifc
}

func TestBypassStageProcessIPv4(t *testing.T) {
	reg, ifc := registerTestInterface(t)
	stage := dataplane.NewBypassStage(reg)

	payload := []byte("scion-packet")
	pkt := buildIPv4UDP(t, ifc.Remote, ifc.Local, ifc.RemotePort, ifc.LocalPort, payload, true)

	buf := dataplane.NewBuffer(pkt, 0, 0)
	matched, ok := stage.ProcessIPv4(buf)
	require.True(t, ok)
	require.Equal(t, ifc.IfID, matched.IfID)
	require.Equal(t, payload, buf.Bytes())
	require.Nil(t, buf.Err())
}

func TestBypassStageBadChecksum(t *testing.T) {
	reg, ifc := registerTestInterface(t)
	stage := dataplane.NewBypassStage(reg)

	pkt := buildIPv4UDP(t, ifc.Remote, ifc.Local, ifc.RemotePort, ifc.LocalPort, []byte("x"), false)

	buf := dataplane.NewBuffer(pkt, 0, 0)
	_, ok := stage.ProcessIPv4(buf)
	require.False(t, ok)
	require.ErrorIs(t, buf.Err(), dataplane.ErrUDPChecksum)
}

func TestBypassStageTrustsUpstreamChecksum(t *testing.T) {
	reg, ifc := registerTestInterface(t)
	stage := dataplane.NewBypassStage(reg)

	// A bad on-wire checksum, but the framework already validated it.
	pkt := buildIPv4UDP(t, ifc.Remote, ifc.Local, ifc.RemotePort, ifc.LocalPort, []byte("x"), false)

	buf := dataplane.NewBuffer(pkt, 0, dataplane.FlagL4ChecksumComputed|dataplane.FlagL4ChecksumCorrect)
	_, ok := stage.ProcessIPv4(buf)
	require.True(t, ok)
}

func TestBypassStageNoInterfaceMatch(t *testing.T) {
	reg, ifc := registerTestInterface(t)
	stage := dataplane.NewBypassStage(reg)

	pkt := buildIPv4UDP(t, ifc.Remote, ifc.Local, ifc.RemotePort, 9999, []byte("x"), true)

	buf := dataplane.NewBuffer(pkt, 0, 0)
	_, ok := stage.ProcessIPv4(buf)
	require.False(t, ok)
	require.ErrorIs(t, buf.Err(), dataplane.ErrNoIntfMatch)
}

func TestBypassStageSourceMismatch(t *testing.T) {
	reg, ifc := registerTestInterface(t)
	stage := dataplane.NewBypassStage(reg)

	// Right local socket, wrong neighbor source address.
	pkt := buildIPv4UDP(t, netip.MustParseAddr("10.0.0.99"), ifc.Local, ifc.RemotePort, ifc.LocalPort, []byte("x"), true)

	buf := dataplane.NewBuffer(pkt, 0, 0)
	_, ok := stage.ProcessIPv4(buf)
	require.False(t, ok)
	require.ErrorIs(t, buf.Err(), dataplane.ErrNoIntfMatch)
}

func TestBypassStageWrongProtocol(t *testing.T) {
	reg, ifc := registerTestInterface(t)
	stage := dataplane.NewBypassStage(reg)

	pkt := buildIPv4UDP(t, ifc.Remote, ifc.Local, ifc.RemotePort, ifc.LocalPort, []byte("x"), true)
	pkt[9] = 6 // TCP, not UDP

	buf := dataplane.NewBuffer(pkt, 0, 0)
	_, ok := stage.ProcessIPv4(buf)
	require.False(t, ok)
	require.ErrorIs(t, buf.Err(), dataplane.ErrIPHeader)
}

func TestBypassStageLengthMismatchPriorityOverChecksum(t *testing.T) {
	reg, ifc := registerTestInterface(t)
	stage := dataplane.NewBypassStage(reg)

	// Both the UDP length field and the checksum are wrong; UDP_LENGTH
	// must win per the fixed priority ladder.
	pkt := buildIPv4UDP(t, ifc.Remote, ifc.Local, ifc.RemotePort, ifc.LocalPort, []byte("x"), false)
	binary.BigEndian.PutUint16(pkt[wire.IPv4HeaderLen+4:wire.IPv4HeaderLen+6], 0xffff)

	buf := dataplane.NewBuffer(pkt, 0, 0)
	_, ok := stage.ProcessIPv4(buf)
	require.False(t, ok)
	require.ErrorIs(t, buf.Err(), dataplane.ErrUDPLength)
}

func TestBypassStageTooShort(t *testing.T) {
	reg := registry.New(registry.NewMemoryFramework())
	stage := dataplane.NewBypassStage(reg)

	buf := dataplane.NewBuffer(make([]byte, 10), 0, 0)
	_, ok := stage.ProcessIPv4(buf)
	require.False(t, ok)
	require.ErrorIs(t, buf.Err(), dataplane.ErrPacketTooShort)
}

func TestBypassStageProcessIPv6(t *testing.T) {
	reg := registry.New(registry.NewMemoryFramework())
	ifc, err := reg.AddInterface(registry.Interface{
		IfID:       1,
		Local:      netip.MustParseAddr("2001:db8::1"),
		LocalPort:  50000,
		Remote:     netip.MustParseAddr("2001:db8::2"),
		RemotePort: 40000,
		LinkTo:     registry.LinkChild,
	})
	require.NoError(t, err)
	stage := dataplane.NewBypassStage(reg)

	payload := []byte("scion-packet")
	udpLen := wire.UDPHeaderLen + len(payload)
	b := make([]byte, wire.IPv6HeaderLen+udpLen)
	binary.BigEndian.PutUint16(b[4:6], uint16(udpLen))
	b[6] = wire.ProtocolUDP
	copy(b[8:24], ifc.Remote.AsSlice())
	copy(b[24:40], ifc.Local.AsSlice())

	udp := b[wire.IPv6HeaderLen:]
	binary.BigEndian.PutUint16(udp[0:2], ifc.RemotePort)
	binary.BigEndian.PutUint16(udp[2:4], ifc.LocalPort)
	binary.BigEndian.PutUint16(udp[4:6], uint16(udpLen))
	copy(udp[8:], payload)

	ip, err := wire.NewIPv6View(b)
	require.NoError(t, err)
	cs := wire.UDPChecksumIPv6(ip, udp)
	binary.BigEndian.PutUint16(udp[6:8], cs)

	buf := dataplane.NewBuffer(b, 0, 0)
	matched, ok := stage.ProcessIPv6(buf)
	require.True(t, ok)
	require.Equal(t, ifc.IfID, matched.IfID)
	require.Equal(t, payload, buf.Bytes())
}
