// Package persist defines the durable-config-snapshot contract: what the
// control plane needs to save and reload across restarts so a router
// doesn't come up with an empty registry and no keys every time it's
// bounced. It mirrors the shape of the trust store's DB interface, but
// for operational router state instead of certificates and TRCs.
package persist

import "github.com/fancl20/cion-fastpath/pkg/registry"

// Store persists the pieces of router configuration control.Controller
// would otherwise only hold in memory: registered interfaces, symmetric
// keys, and the local AS.
type Store interface {
	SaveInterface(ifc registry.Interface) error
	DeleteInterface(ifID uint64) error
	LoadInterfaces() ([]registry.Interface, error)

	SaveKey(slot int, key []byte) error
	LoadKeys() (map[int][]byte, error)

	SaveLocalISDAS(isdas uint64) error
	LoadLocalISDAS() (isdas uint64, ok bool, err error)

	Close() error
}
