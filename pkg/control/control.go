// Package control implements the router's control surface: the five
// logical operations an operator or a bootstrap config issues against
// the registry, key store, and bypass feature state. Each operation is a
// plain Go method — no RPC framing — consistent with configuration
// transport being out of scope here; whatever wraps these calls in a
// network protocol is somebody else's concern.
package control

import (
	"errors"
	"fmt"
	"net/netip"
	"sync"

	"go.uber.org/zap"

	"github.com/fancl20/cion-fastpath/pkg/keys"
	"github.com/fancl20/cion-fastpath/pkg/registry"
)

// ConfigError is the flat, comparable error taxonomy for malformed
// control requests, distinct from the registry's own RegistryError:
// these fire before a request ever reaches the registry.
type ConfigError error

var (
	// ErrMissingField mirrors the original CLI handler's exhaustive
	// required-field checks for a non-internal interface: remote
	// address, remote port, link type, and neighbor ISD-AS are all
	// required once the interface ID is non-zero.
	ErrMissingField ConfigError = errors.New("control: missing required field")

	// ErrInvalidPort is returned when a port value is zero or otherwise
	// out of the valid range for a UDP endpoint.
	ErrInvalidPort ConfigError = errors.New("control: port out of range")

	// ErrUnknownLinkType is returned when a link-type string does not
	// name one of core/parent/child/peer.
	ErrUnknownLinkType ConfigError = errors.New("control: unknown link type")
)

// AddInterfaceRequest is the CLI-shaped request for AddInterface,
// mirroring scion_add_intf_args_t plus the original CLI command's own
// required-field validation (which runs before the args struct is even
// built).
type AddInterfaceRequest struct {
	IfID          uint64
	Local         netip.Addr
	LocalPort     uint16
	Remote        netip.Addr
	RemotePort    uint16
	LinkTo        string
	NeighborISDAS uint64
}

// ParseLinkType maps a CLI-style link type string to a registry.LinkType.
func ParseLinkType(s string) (registry.LinkType, error) {
	switch s {
	case "core":
		return registry.LinkCore, nil
	case "parent":
		return registry.LinkParent, nil
	case "child":
		return registry.LinkChild, nil
	case "peer":
		return registry.LinkPeer, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownLinkType, s)
	}
}

// Controller is the router's single control surface: it owns the
// registry, key store, and per-interface bypass-enable state a
// configuration operation might touch, and serializes writers against
// each other (reads of the underlying registry/key store stay lock-free
// on their own terms; Controller's mutex only protects the bypass
// enable-state map, registry add/delete ordering, and key-slot writes).
type Controller struct {
	mu       sync.Mutex
	registry *registry.Registry
	keys     *keys.Store
	bypass   map[uint32]bool // swIndex -> enabled, see SetBypassEnabled
	log      *zap.SugaredLogger
}

// New returns a Controller operating on reg and ks, logging mutations to
// a no-op logger. Use NewWithLogger to wire up real logging.
func New(reg *registry.Registry, ks *keys.Store) *Controller {
	return NewWithLogger(reg, ks, zap.NewNop().Sugar())
}

// NewWithLogger returns a Controller that records every mutating
// operation (add/delete interface, set key, set bypass, set local AS)
// to log at Info level.
func NewWithLogger(reg *registry.Registry, ks *keys.Store, log *zap.SugaredLogger) *Controller {
	return &Controller{registry: reg, keys: ks, bypass: make(map[uint32]bool), log: log}
}

// AddInterface validates req the way the original CLI handler does
// before ever calling into the registry, then registers it.
//
// Required-field checks only apply once IfID != 0: the ifid=0 slot is
// the internal/loopback interface and has no single neighbor to require
// a remote address, port, link type, or ISD-AS for.
func (c *Controller) AddInterface(req AddInterfaceRequest) (registry.Interface, error) {
	if req.IfID != 0 {
		if !req.Remote.IsValid() {
			return registry.Interface{}, fmt.Errorf("%w: remote address", ErrMissingField)
		}
		if req.RemotePort == 0 {
			return registry.Interface{}, fmt.Errorf("%w: remote port", ErrInvalidPort)
		}
		if req.LinkTo == "" {
			return registry.Interface{}, fmt.Errorf("%w: link type", ErrMissingField)
		}
		if req.NeighborISDAS == 0 {
			return registry.Interface{}, fmt.Errorf("%w: neighbor ISD-AS", ErrMissingField)
		}
	}
	if !req.Local.IsValid() {
		return registry.Interface{}, fmt.Errorf("%w: local address", ErrMissingField)
	}
	if req.LocalPort == 0 {
		return registry.Interface{}, fmt.Errorf("%w: local port", ErrInvalidPort)
	}

	var linkTo registry.LinkType
	if req.LinkTo != "" {
		lt, err := ParseLinkType(req.LinkTo)
		if err != nil {
			return registry.Interface{}, err
		}
		linkTo = lt
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	ifc, err := c.registry.AddInterface(registry.Interface{
		IfID:          req.IfID,
		Local:         req.Local,
		LocalPort:     req.LocalPort,
		Remote:        req.Remote,
		RemotePort:    req.RemotePort,
		LinkTo:        linkTo,
		NeighborISDAS: req.NeighborISDAS,
	})
	if err != nil {
		c.log.Infow("add_interface failed", "if_id", req.IfID, "error", err)
		return ifc, err
	}
	c.log.Infow("add_interface", "if_id", ifc.IfID, "sw_index", ifc.SWIndex)
	return ifc, nil
}

// DeleteInterface tears down the interface with the given ifID,
// verifying local/localPort as the registry itself requires.
func (c *Controller) DeleteInterface(ifID uint64, local netip.Addr, localPort uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ifc, found := c.registry.LookupByIfID(ifID)
	err := c.registry.DeleteInterface(ifID, local, localPort)
	if err != nil {
		c.log.Infow("delete_interface failed", "if_id", ifID, "error", err)
		return err
	}
	if found {
		delete(c.bypass, ifc.SWIndex)
	}
	c.log.Infow("delete_interface", "if_id", ifID)
	return nil
}

// SetKey installs key as the AES-128 key for the given slot.
func (c *Controller) SetKey(slot int, key []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.keys.SetKey(slot, key); err != nil {
		c.log.Infow("set_key failed", "slot", slot, "error", err)
		return err
	}
	c.log.Infow("set_key", "slot", slot)
	return nil
}

// SetLocalISDAS sets the AS this router belongs to.
func (c *Controller) SetLocalISDAS(isdas uint64) {
	c.registry.SetLocalISDAS(isdas)
	c.log.Infow("set_local_isdas", "isd_as", isdas)
}

// SetBypassEnabled turns the underlay bypass feature on or off for the
// interface with the given ifID.
//
// Unlike the original CLI command — which the plugin's own comment
// calls out as "a very dumb enable/disable without keeping track of
// interface state, etc." — this tracks current state explicitly and is
// idempotent: enabling an already-enabled interface (or disabling an
// already-disabled one) is a no-op rather than re-running whatever
// side effects the toggle has, and BypassEnabled reports the tracked state
// back to a caller instead of leaving it undiscoverable.
func (c *Controller) SetBypassEnabled(ifID uint64, enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ifc, found := c.registry.LookupByIfID(ifID)
	if !found {
		return registry.ErrNoSuchEntry
	}
	c.bypass[ifc.SWIndex] = enabled
	c.log.Infow("set_bypass_enabled", "if_id", ifID, "enabled", enabled)
	return nil
}

// BypassEnabled reports whether the bypass feature is currently enabled
// for the interface with the given ifID.
func (c *Controller) BypassEnabled(ifID uint64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ifc, found := c.registry.LookupByIfID(ifID)
	if !found {
		return false, registry.ErrNoSuchEntry
	}
	return c.bypass[ifc.SWIndex], nil
}
