package control_test

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fancl20/cion-fastpath/pkg/control"
	"github.com/fancl20/cion-fastpath/pkg/keys"
	"github.com/fancl20/cion-fastpath/pkg/registry"
)

func newTestController(t *testing.T) *control.Controller {
	t.Helper()
	return control.New(registry.New(registry.NewMemoryFramework()), keys.NewStore())
}

func TestAddInterfaceRequiresFieldsForExternalInterface(t *testing.T) {
	c := newTestController(t)
	_, err := c.AddInterface(control.AddInterfaceRequest{
		IfID:      1,
		Local:     netip.MustParseAddr("10.0.0.1"),
		LocalPort: 50000,
	})
	require.ErrorIs(t, err, control.ErrMissingField)
}

func TestAddInterfaceInternalSkipsNeighborFields(t *testing.T) {
	c := newTestController(t)
	_, err := c.AddInterface(control.AddInterfaceRequest{
		IfID:      0,
		Local:     netip.MustParseAddr("127.0.0.1"),
		LocalPort: 50000,
	})
	require.NoError(t, err)
}

func TestAddInterfaceFullySpecified(t *testing.T) {
	c := newTestController(t)
	ifc, err := c.AddInterface(control.AddInterfaceRequest{
		IfID:          1,
		Local:         netip.MustParseAddr("10.0.0.1"),
		LocalPort:     50000,
		Remote:        netip.MustParseAddr("10.0.0.2"),
		RemotePort:    40000,
		LinkTo:        "child",
		NeighborISDAS: 0x0001_ff0000000002,
	})
	require.NoError(t, err)
	require.Equal(t, registry.LinkChild, ifc.LinkTo)
}

func TestAddInterfaceUnknownLinkType(t *testing.T) {
	c := newTestController(t)
	_, err := c.AddInterface(control.AddInterfaceRequest{
		IfID:          1,
		Local:         netip.MustParseAddr("10.0.0.1"),
		LocalPort:     50000,
		Remote:        netip.MustParseAddr("10.0.0.2"),
		RemotePort:    40000,
		LinkTo:        "sibling",
		NeighborISDAS: 0x0001_ff0000000002,
	})
	require.ErrorIs(t, err, control.ErrUnknownLinkType)
}

func TestBypassEnabledIsIdempotentAndTracked(t *testing.T) {
	c := newTestController(t)
	ifc, err := c.AddInterface(control.AddInterfaceRequest{
		IfID:          1,
		Local:         netip.MustParseAddr("10.0.0.1"),
		LocalPort:     50000,
		Remote:        netip.MustParseAddr("10.0.0.2"),
		RemotePort:    40000,
		LinkTo:        "child",
		NeighborISDAS: 0x0001_ff0000000002,
	})
	require.NoError(t, err)

	enabled, err := c.BypassEnabled(ifc.IfID)
	require.NoError(t, err)
	require.False(t, enabled)

	require.NoError(t, c.SetBypassEnabled(ifc.IfID, true))
	enabled, err = c.BypassEnabled(ifc.IfID)
	require.NoError(t, err)
	require.True(t, enabled)

	// Calling it again with the same state must not error or flip.
	require.NoError(t, c.SetBypassEnabled(ifc.IfID, true))
	enabled, err = c.BypassEnabled(ifc.IfID)
	require.NoError(t, err)
	require.True(t, enabled)
}

func TestSetBypassEnabledNoSuchInterface(t *testing.T) {
	c := newTestController(t)
	err := c.SetBypassEnabled(99, true)
	require.ErrorIs(t, err, registry.ErrNoSuchEntry)
}

func TestApplyBootstrapConfig(t *testing.T) {
	c := newTestController(t)
	cfg, err := control.ParseBootstrapConfig([]byte(`
local_isd_as = "1-ff00:0:1"

[[keys]]
slot = 0
hex = "30313233343536373839616263646566"

[[interfaces]]
if_id = 1
local = "10.0.0.1"
local_port = 50000
remote = "10.0.0.2"
remote_port = 40000
link_to = "child"
neighbor_isd_as = "1-ff00:0:2"
bypass_enabled = true
`))
	require.NoError(t, err)

	require.NoError(t, c.Apply(cfg))

	enabled, err := c.BypassEnabled(1)
	require.NoError(t, err)
	require.True(t, enabled)
}
