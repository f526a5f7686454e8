// Package bbolt implements persist.Store on top of bbolt, the same
// embedded store the trust package uses for certificate chains and TRCs,
// adapted here to the registry/key-store snapshot shape instead.
package bbolt

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/netip"

	bolt "go.etcd.io/bbolt"

	"github.com/fancl20/cion-fastpath/pkg/persist"
	"github.com/fancl20/cion-fastpath/pkg/registry"
)

var (
	bucketInterfaces = []byte("interfaces")
	bucketKeys       = []byte("keys")
	bucketConfig     = []byte("config")

	keyLocalISDAS = []byte("local_isd_as")
)

type store struct {
	db *bolt.DB
}

// New opens (creating if necessary) a bbolt database at path and returns
// a persist.Store backed by it.
func New(path string, opts *bolt.Options) (persist.Store, error) {
	db, err := bolt.Open(path, 0o600, opts)
	if err != nil {
		return nil, fmt.Errorf("bbolt: opening %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketInterfaces, bucketKeys, bucketConfig} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bbolt: initializing buckets: %w", err)
	}
	return &store{db: db}, nil
}

func ifIDKey(ifID uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, ifID)
	return b
}

func slotKey(slot int) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(slot))
	return b
}

// interfaceRecord is the on-disk shape of a registry.Interface: plain
// strings for the netip.Addr fields, since bbolt's keys and values are
// both just bytes and JSON is the simplest stable encoding for them.
type interfaceRecord struct {
	IfID          uint64 `json:"if_id"`
	Local         string `json:"local"`
	LocalPort     uint16 `json:"local_port"`
	Remote        string `json:"remote"`
	RemotePort    uint16 `json:"remote_port"`
	LinkTo        uint8  `json:"link_to"`
	NeighborISDAS uint64 `json:"neighbor_isd_as"`
}

func toRecord(ifc registry.Interface) interfaceRecord {
	r := interfaceRecord{
		IfID:          ifc.IfID,
		LocalPort:     ifc.LocalPort,
		RemotePort:    ifc.RemotePort,
		LinkTo:        uint8(ifc.LinkTo),
		NeighborISDAS: ifc.NeighborISDAS,
	}
	if ifc.Local.IsValid() {
		r.Local = ifc.Local.String()
	}
	if ifc.Remote.IsValid() {
		r.Remote = ifc.Remote.String()
	}
	return r
}

func (r interfaceRecord) toInterface() (registry.Interface, error) {
	var ifc registry.Interface
	ifc.IfID = r.IfID
	ifc.LocalPort = r.LocalPort
	ifc.RemotePort = r.RemotePort
	ifc.LinkTo = registry.LinkType(r.LinkTo)
	ifc.NeighborISDAS = r.NeighborISDAS

	local, err := parseAddrOrZero(r.Local)
	if err != nil {
		return ifc, fmt.Errorf("local address: %w", err)
	}
	ifc.Local = local

	remote, err := parseAddrOrZero(r.Remote)
	if err != nil {
		return ifc, fmt.Errorf("remote address: %w", err)
	}
	ifc.Remote = remote
	return ifc, nil
}

// SaveInterface stores ifc, keyed by its SCION interface ID, replacing
// any previous entry for the same ID.
func (s *store) SaveInterface(ifc registry.Interface) error {
	data, err := json.Marshal(toRecord(ifc))
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketInterfaces).Put(ifIDKey(ifc.IfID), data)
	})
}

// DeleteInterface removes the persisted entry for ifID, if any.
func (s *store) DeleteInterface(ifID uint64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketInterfaces).Delete(ifIDKey(ifID))
	})
}

// LoadInterfaces returns every persisted interface, in ifID order
// (bbolt's cursor walks keys in byte order, and keys are big-endian
// uint64s, so this falls out for free).
func (s *store) LoadInterfaces() ([]registry.Interface, error) {
	var out []registry.Interface
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketInterfaces).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var rec interfaceRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decoding interface %x: %w", k, err)
			}
			ifc, err := rec.toInterface()
			if err != nil {
				return fmt.Errorf("decoding interface %x: %w", k, err)
			}
			out = append(out, ifc)
		}
		return nil
	})
	return out, err
}

// SaveKey stores key for slot.
func (s *store) SaveKey(slot int, key []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketKeys).Put(slotKey(slot), key)
	})
}

// LoadKeys returns every persisted key, by slot.
func (s *store) LoadKeys() (map[int][]byte, error) {
	out := make(map[int][]byte)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketKeys).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			slot := int(binary.BigEndian.Uint64(k))
			key := make([]byte, len(v))
			copy(key, v)
			out[slot] = key
		}
		return nil
	})
	return out, err
}

// SaveLocalISDAS stores the router's local AS.
func (s *store) SaveLocalISDAS(isdas uint64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, isdas)
		return tx.Bucket(bucketConfig).Put(keyLocalISDAS, b)
	})
}

// LoadLocalISDAS returns the persisted local AS, if one was ever saved.
func (s *store) LoadLocalISDAS() (uint64, bool, error) {
	var isdas uint64
	var ok bool
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketConfig).Get(keyLocalISDAS)
		if v == nil {
			return nil
		}
		isdas = binary.BigEndian.Uint64(v)
		ok = true
		return nil
	})
	return isdas, ok, err
}

// Close closes the underlying bbolt database.
func (s *store) Close() error { return s.db.Close() }

func parseAddrOrZero(s string) (netip.Addr, error) {
	if s == "" {
		return netip.Addr{}, nil
	}
	return netip.ParseAddr(s)
}
