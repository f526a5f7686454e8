package registry

import (
	"net/netip"
	"sync"
)

// LinkType classifies a SCION interface's relationship to its neighbor,
// mirroring the original plugin's scion_linkto_t.
type LinkType uint8

// Link types, in the order the original enum declares them.
const (
	LinkCore LinkType = iota
	LinkParent
	LinkChild
	LinkPeer
)

// Interface is one registered SCION underlay interface: a local socket
// bound to (Local, LocalPort) that the router listens on, expecting
// traffic from a single neighbor at (Remote, RemotePort) — or the ifid=0
// internal/loopback slot used for locally-originated or -terminated
// traffic. All addresses are host-order netip.Addr values; callers at the
// wire boundary are responsible for converting to/from network byte
// order bytes.
type Interface struct {
	IfID          uint64
	Local         netip.Addr
	LocalPort     uint16
	Remote        netip.Addr
	RemotePort    uint16
	LinkTo        LinkType
	NeighborISDAS uint64

	// SWIndex is the forwarding slot the Framework handed back when this
	// interface was registered. Zero until AddInterface succeeds.
	SWIndex uint32
}

// key4 and key6 are the underlay lookup keys, packed the way the
// original plugin's scion_key4_pack/scion_key6_pack build their bihash
// keys: address bytes high, port low. They are keyed on an interface's
// LOCAL address — the socket an incoming packet is actually addressed
// to — not its remote neighbor, since two interfaces can share a
// neighbor but never a listening socket.
type key4 struct {
	addr [4]byte
	port uint16
}

type key6 struct {
	addr [16]byte
	port uint16
}

// entry is the registry's arena slot. A nil entry marks a free slot.
type entry struct {
	ifc Interface
}

// Registry is the interface arena: a pool of registered interfaces plus
// the index tables the hot path uses to go from an underlay 4-tuple or a
// SCION interface ID to a slot, without the dataplane ever holding a
// pointer into the pool directly (avoiding use-after-free/aliasing across
// concurrent rekeys of the pool itself).
type Registry struct {
	mu sync.RWMutex

	framework Framework

	pool     []*entry
	freeList []uint32

	byIfID    map[uint64]uint32
	by4       map[key4]uint32
	by6       map[key6]uint32
	bySWIndex map[uint32]uint32

	internal4 *uint32
	internal6 *uint32

	localISDAS uint64
}

// New returns an empty Registry backed by framework for slot allocation.
func New(framework Framework) *Registry {
	return &Registry{
		framework: framework,
		byIfID:    make(map[uint64]uint32),
		by4:       make(map[key4]uint32),
		by6:       make(map[key6]uint32),
		bySWIndex: make(map[uint32]uint32),
	}
}

// SetLocalISDAS sets the local AS this router belongs to, consulted by
// the validation stage to decide whether a packet has reached its
// destination AS.
func (r *Registry) SetLocalISDAS(isdas uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.localISDAS = isdas
}

// LocalISDAS returns the local AS set by SetLocalISDAS.
func (r *Registry) LocalISDAS() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.localISDAS
}

func familyOf(a netip.Addr) (is4 bool, ok bool) {
	switch {
	case a.Is4():
		return true, true
	case a.Is6():
		return false, true
	default:
		return false, false
	}
}

func packKey4(a netip.Addr, port uint16) key4 {
	return key4{addr: a.As4(), port: port}
}

func packKey6(a netip.Addr, port uint16) key6 {
	return key6{addr: a.As16(), port: port}
}

// AddInterface registers ifc, allocating a pool slot and asking the
// Framework for a forwarding slot. ifc.SWIndex is ignored on input and
// populated on success.
//
// Checks run in the same order as scion_add_intf: first reject a
// duplicate interface ID, then a duplicate local binding, then attempt
// the framework registration, rolling the pool slot back if that fails.
func (r *Registry) AddInterface(ifc Interface) (Interface, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byIfID[ifc.IfID]; exists {
		return Interface{}, ErrAlreadyExists
	}
	if ifc.IfID == 0 {
		if (ifc.Local.Is4() && r.internal4 != nil) || (ifc.Local.Is6() && r.internal6 != nil) {
			return Interface{}, ErrAlreadyExists
		}
	}

	localIs4, ok := familyOf(ifc.Local)
	if !ok {
		return Interface{}, ErrAddressFamilyMismatch
	}
	if ifc.IfID != 0 {
		if remoteIs4, ok := familyOf(ifc.Remote); !ok || remoteIs4 != localIs4 {
			return Interface{}, ErrAddressFamilyMismatch
		}
	}

	if ifc.IfID != 0 {
		if localIs4 {
			if _, exists := r.by4[packKey4(ifc.Local, ifc.LocalPort)]; exists {
				return Interface{}, ErrAddressInUse
			}
		} else {
			if _, exists := r.by6[packKey6(ifc.Local, ifc.LocalPort)]; exists {
				return Interface{}, ErrAddressInUse
			}
		}
	}

	swIndex, err := r.framework.Register(ifc)
	if err != nil {
		return Interface{}, ErrInvalidRegistration
	}
	ifc.SWIndex = swIndex

	idx := r.alloc(ifc)

	r.byIfID[ifc.IfID] = idx
	r.bySWIndex[swIndex] = idx
	if ifc.IfID != 0 {
		if localIs4 {
			r.by4[packKey4(ifc.Local, ifc.LocalPort)] = idx
		} else {
			r.by6[packKey6(ifc.Local, ifc.LocalPort)] = idx
		}
	} else if localIs4 {
		v := idx
		r.internal4 = &v
	} else {
		v := idx
		r.internal6 = &v
	}

	if err := r.framework.SetAdminState(swIndex, true); err != nil {
		r.removeLocked(ifc)
		_ = r.framework.Unregister(swIndex)
		return Interface{}, ErrInvalidRegistration
	}

	return ifc, nil
}

func (r *Registry) alloc(ifc Interface) uint32 {
	if n := len(r.freeList); n > 0 {
		idx := r.freeList[n-1]
		r.freeList = r.freeList[:n-1]
		r.pool[idx] = &entry{ifc: ifc}
		return idx
	}
	idx := uint32(len(r.pool))
	r.pool = append(r.pool, &entry{ifc: ifc})
	return idx
}

// DeleteInterface unregisters the interface with the given SCION
// interface ID, verifying local/localPort match the registered
// interface's underlay (local) table entry before tearing it down (the
// same re-lookup scion_del_intf performs against a stale caller).
func (r *Registry) DeleteInterface(ifID uint64, local netip.Addr, localPort uint16) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, exists := r.byIfID[ifID]
	if !exists {
		return ErrNoSuchEntry
	}
	ifc := r.pool[idx].ifc

	if ifc.Local != local || ifc.LocalPort != localPort {
		return ErrAddressNotInUse
	}

	_ = r.framework.SetAdminState(ifc.SWIndex, false)
	if err := r.framework.Unregister(ifc.SWIndex); err != nil {
		return err
	}

	r.removeLocked(ifc)
	return nil
}

func (r *Registry) removeLocked(ifc Interface) {
	idx, ok := r.byIfID[ifc.IfID]
	if !ok {
		return
	}
	delete(r.byIfID, ifc.IfID)
	delete(r.bySWIndex, ifc.SWIndex)

	is4, _ := familyOf(ifc.Local)
	if ifc.IfID != 0 {
		if is4 {
			delete(r.by4, packKey4(ifc.Local, ifc.LocalPort))
		} else {
			delete(r.by6, packKey6(ifc.Local, ifc.LocalPort))
		}
	} else if is4 {
		r.internal4 = nil
	} else {
		r.internal6 = nil
	}

	r.pool[idx] = nil
	r.freeList = append(r.freeList, idx)
}

// LookupByUnderlay resolves a packet's destination (local) address and
// port to its registered interface, as the bypass stage does to find
// which configured interface a packet arrived on. ok is false on a miss.
// Only external (ifid != 0) interfaces are in the underlay tables: the
// internal interface is kept in a per-family slot instead, so it is
// never returned here. Callers still need ValidateSource to check the
// packet actually came from the interface's configured neighbor.
func (r *Registry) LookupByUnderlay(addr netip.Addr, port uint16) (Interface, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var idx uint32
	var exists bool
	if addr.Is4() {
		idx, exists = r.by4[packKey4(addr, port)]
	} else {
		idx, exists = r.by6[packKey6(addr, port)]
	}
	if !exists {
		return Interface{}, false
	}
	return r.pool[idx].ifc, true
}

// ValidateSource reports whether srcAddr/srcPort is a legitimate sender
// for ifc: the internal (ifid=0) interface accepts anything, since it
// represents locally-originated or terminating traffic with no single
// neighbor; an external interface must match its configured Remote and
// RemotePort exactly, per scion_overlay_validate_src.
func ValidateSource(ifc Interface, srcAddr netip.Addr, srcPort uint16) bool {
	if ifc.IfID == 0 {
		return true
	}
	return ifc.Remote == srcAddr && ifc.RemotePort == srcPort
}

// LookupByIfID resolves a SCION interface ID to its registered interface.
func (r *Registry) LookupByIfID(ifID uint64) (Interface, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, exists := r.byIfID[ifID]
	if !exists {
		return Interface{}, false
	}
	return r.pool[idx].ifc, true
}

// LookupBySWIndex resolves a forwarding slot index back to its
// registered interface.
func (r *Registry) LookupBySWIndex(swIndex uint32) (Interface, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, exists := r.bySWIndex[swIndex]
	if !exists {
		return Interface{}, false
	}
	return r.pool[idx].ifc, true
}

// Interfaces returns a snapshot of every currently registered interface.
func (r *Registry) Interfaces() []Interface {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Interface, 0, len(r.byIfID))
	for _, idx := range r.byIfID {
		out = append(out, r.pool[idx].ifc)
	}
	return out
}

// Snapshot is an alias for Interfaces, named to match the read-only
// introspection surface the original CLI's "show scion intf" exposed.
func (r *Registry) Snapshot() []Interface { return r.Interfaces() }
