package registry_test

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fancl20/cion-fastpath/pkg/registry"
)

func newTestInterface(ifID uint64, localPort uint16) registry.Interface {
	return registry.Interface{
		IfID:          ifID,
		Local:         netip.MustParseAddr("10.0.0.1"),
		LocalPort:     localPort,
		Remote:        netip.MustParseAddr("10.0.0.2"),
		RemotePort:    40000,
		LinkTo:        registry.LinkChild,
		NeighborISDAS: 0x0001_ff0000000002,
	}
}

func TestAddAndLookupInterface(t *testing.T) {
	r := registry.New(registry.NewMemoryFramework())

	added, err := r.AddInterface(newTestInterface(1, 50000))
	require.NoError(t, err)
	require.NotZero(t, added.SWIndex)

	got, ok := r.LookupByIfID(1)
	require.True(t, ok)
	require.Equal(t, added, got)

	got, ok = r.LookupByUnderlay(netip.MustParseAddr("10.0.0.1"), 50000)
	require.True(t, ok)
	require.Equal(t, added, got)

	got, ok = r.LookupBySWIndex(added.SWIndex)
	require.True(t, ok)
	require.Equal(t, added, got)
}

func TestAddInterfaceDuplicateIfID(t *testing.T) {
	r := registry.New(registry.NewMemoryFramework())
	_, err := r.AddInterface(newTestInterface(1, 50000))
	require.NoError(t, err)

	_, err = r.AddInterface(newTestInterface(1, 50001))
	require.ErrorIs(t, err, registry.ErrAlreadyExists)
}

func TestAddInterfaceDuplicateLocalBinding(t *testing.T) {
	r := registry.New(registry.NewMemoryFramework())
	_, err := r.AddInterface(newTestInterface(1, 50000))
	require.NoError(t, err)

	_, err = r.AddInterface(newTestInterface(2, 50000))
	require.ErrorIs(t, err, registry.ErrAddressInUse)
}

func TestAddInterfaceAddressFamilyMismatch(t *testing.T) {
	r := registry.New(registry.NewMemoryFramework())
	ifc := newTestInterface(1, 50000)
	ifc.Remote = netip.MustParseAddr("2001:db8::2")

	_, err := r.AddInterface(ifc)
	require.ErrorIs(t, err, registry.ErrAddressFamilyMismatch)
}

func TestDeleteInterface(t *testing.T) {
	r := registry.New(registry.NewMemoryFramework())
	added, err := r.AddInterface(newTestInterface(1, 50000))
	require.NoError(t, err)

	err = r.DeleteInterface(1, added.Local, added.LocalPort)
	require.NoError(t, err)

	_, ok := r.LookupByIfID(1)
	require.False(t, ok)

	// The local binding and forwarding slot must be free for reuse.
	_, err = r.AddInterface(newTestInterface(2, 50000))
	require.NoError(t, err)
}

func TestDeleteInterfaceNoSuchEntry(t *testing.T) {
	r := registry.New(registry.NewMemoryFramework())
	err := r.DeleteInterface(99, netip.MustParseAddr("10.0.0.1"), 50000)
	require.ErrorIs(t, err, registry.ErrNoSuchEntry)
}

func TestDeleteInterfaceAddressMismatch(t *testing.T) {
	r := registry.New(registry.NewMemoryFramework())
	_, err := r.AddInterface(newTestInterface(1, 50000))
	require.NoError(t, err)

	err = r.DeleteInterface(1, netip.MustParseAddr("10.0.0.99"), 50000)
	require.ErrorIs(t, err, registry.ErrAddressNotInUse)
}

func TestValidateSource(t *testing.T) {
	ifc := newTestInterface(1, 50000)
	require.True(t, registry.ValidateSource(ifc, ifc.Remote, ifc.RemotePort))
	require.False(t, registry.ValidateSource(ifc, netip.MustParseAddr("10.0.0.99"), ifc.RemotePort))
	require.False(t, registry.ValidateSource(ifc, ifc.Remote, 1))

	internal := ifc
	internal.IfID = 0
	require.True(t, registry.ValidateSource(internal, netip.MustParseAddr("192.168.1.1"), 9999))
}

func TestLocalISDAS(t *testing.T) {
	r := registry.New(registry.NewMemoryFramework())
	r.SetLocalISDAS(0x0001_ff0000000001)
	require.EqualValues(t, 0x0001_ff0000000001, r.LocalISDAS())
}

func TestInterfacesSnapshot(t *testing.T) {
	r := registry.New(registry.NewMemoryFramework())
	_, err := r.AddInterface(newTestInterface(1, 50000))
	require.NoError(t, err)
	_, err = r.AddInterface(newTestInterface(2, 50001))
	require.NoError(t, err)

	ifcs := r.Interfaces()
	require.Len(t, ifcs, 2)
}
