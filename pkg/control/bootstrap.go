package control

import (
	"fmt"
	"net/netip"

	"github.com/pelletier/go-toml/v2"
)

// BootstrapConfig is the on-disk shape of a router's startup
// configuration: the local AS, its symmetric keys, and its interfaces.
// It feeds the same typed Controller operations an operator would issue
// by hand; there is no separate code path for "config at startup" versus
// "config at runtime".
type BootstrapConfig struct {
	LocalISDAS string              `toml:"local_isd_as"`
	Keys       []BootstrapKey      `toml:"keys"`
	Interfaces []BootstrapInterface `toml:"interfaces"`
}

// BootstrapKey is one symmetric key slot, hex-encoded.
type BootstrapKey struct {
	Slot int    `toml:"slot"`
	Hex  string `toml:"hex"`
}

// BootstrapInterface is one interface entry, in the same shape as
// AddInterfaceRequest but with plain strings for the on-disk format.
type BootstrapInterface struct {
	IfID          uint64 `toml:"if_id"`
	Local         string `toml:"local"`
	LocalPort     uint16 `toml:"local_port"`
	Remote        string `toml:"remote"`
	RemotePort    uint16 `toml:"remote_port"`
	LinkTo        string `toml:"link_to"`
	NeighborISDAS string `toml:"neighbor_isd_as"`
	BypassEnabled bool   `toml:"bypass_enabled"`
}

// ParseBootstrapConfig decodes a TOML bootstrap document.
func ParseBootstrapConfig(data []byte) (*BootstrapConfig, error) {
	var cfg BootstrapConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("control: parsing bootstrap config: %w", err)
	}
	return &cfg, nil
}

// Apply drives c through every operation named in cfg: local AS, then
// keys, then interfaces (each with its bypass-enable state), in that
// order so a later step can rely on an earlier one having taken effect.
func (c *Controller) Apply(cfg *BootstrapConfig) error {
	if cfg.LocalISDAS != "" {
		isdas, err := ParseISDAS(cfg.LocalISDAS)
		if err != nil {
			return fmt.Errorf("control: local_isd_as: %w", err)
		}
		c.SetLocalISDAS(isdas)
	}

	for _, k := range cfg.Keys {
		key, err := parseHexKey(k.Hex)
		if err != nil {
			return fmt.Errorf("control: key slot %d: %w", k.Slot, err)
		}
		if err := c.SetKey(k.Slot, key); err != nil {
			return fmt.Errorf("control: key slot %d: %w", k.Slot, err)
		}
	}

	for _, ifc := range cfg.Interfaces {
		req, err := ifc.toRequest()
		if err != nil {
			return fmt.Errorf("control: interface %d: %w", ifc.IfID, err)
		}
		added, err := c.AddInterface(req)
		if err != nil {
			return fmt.Errorf("control: interface %d: %w", ifc.IfID, err)
		}
		if ifc.BypassEnabled {
			if err := c.SetBypassEnabled(added.IfID, true); err != nil {
				return fmt.Errorf("control: interface %d: %w", ifc.IfID, err)
			}
		}
	}
	return nil
}

func (ifc BootstrapInterface) toRequest() (AddInterfaceRequest, error) {
	req := AddInterfaceRequest{
		IfID:       ifc.IfID,
		LocalPort:  ifc.LocalPort,
		RemotePort: ifc.RemotePort,
		LinkTo:     ifc.LinkTo,
	}
	if ifc.Local != "" {
		addr, err := netip.ParseAddr(ifc.Local)
		if err != nil {
			return req, fmt.Errorf("local: %w", err)
		}
		req.Local = addr
	}
	if ifc.Remote != "" {
		addr, err := netip.ParseAddr(ifc.Remote)
		if err != nil {
			return req, fmt.Errorf("remote: %w", err)
		}
		req.Remote = addr
	}
	if ifc.NeighborISDAS != "" {
		isdas, err := ParseISDAS(ifc.NeighborISDAS)
		if err != nil {
			return req, fmt.Errorf("neighbor_isd_as: %w", err)
		}
		req.NeighborISDAS = isdas
	}
	return req, nil
}
