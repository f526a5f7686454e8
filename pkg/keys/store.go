package keys

import "sync/atomic"

// MaxSlots is the number of symmetric key slots a router carries. The
// original plugin only ever populates sym_keys[0] today, leaving
// additional slots as a documented TODO for key rollover; this store
// keeps the same single-slot-in-practice shape while giving rekeying a
// real home to grow into.
const MaxSlots = 16

// slotTable is the value swapped atomically on every rekey: a plain
// value type copied whole by SetKey, so concurrent readers never observe
// a partially written table.
type slotTable struct {
	keys [MaxSlots][16]byte
	set  [MaxSlots]bool
}

// Store holds the router's symmetric key slots. Reads never block: the
// hot path loads the current table with a single atomic pointer read and
// never needs a lock to compute a MAC, mirroring the original plugin's
// uncontended access to scm->sym_keys from the packet-processing thread.
// Updates copy-on-write and swap the pointer, so a rekey in flight from
// the control plane never stalls, blocks, or torn-reads against a
// concurrent dataplane lookup.
type Store struct {
	table atomic.Pointer[slotTable]
}

// NewStore returns an empty key Store.
func NewStore() *Store {
	s := &Store{}
	s.table.Store(&slotTable{})
	return s
}

// SetKey installs key as the 16-byte AES-128 key for slot. slot must be
// in [0, MaxSlots).
func (s *Store) SetKey(slot int, key []byte) error {
	if slot < 0 || slot >= MaxSlots {
		return ErrNoKey
	}
	if len(key) != 16 {
		return ErrBadKeyLength
	}
	old := s.table.Load()
	next := *old
	copy(next.keys[slot][:], key)
	next.set[slot] = true
	s.table.Store(&next)
	return nil
}

// ClearKey removes the key installed at slot, if any.
func (s *Store) ClearKey(slot int) {
	if slot < 0 || slot >= MaxSlots {
		return
	}
	old := s.table.Load()
	next := *old
	next.keys[slot] = [16]byte{}
	next.set[slot] = false
	s.table.Store(&next)
}

// Key returns the key installed at slot, and whether one is set.
func (s *Store) Key(slot int) ([16]byte, bool) {
	if slot < 0 || slot >= MaxSlots {
		return [16]byte{}, false
	}
	t := s.table.Load()
	return t.keys[slot], t.set[slot]
}
