// Command fastpathd wires the registry, key store, control surface, and
// durable config store together into a runnable SCION underlay fast
// path: load a bootstrap TOML config (or a previously persisted one),
// listen on every configured external (ifID != 0) interface's underlay
// socket, and run
// packets through the bypass and validation stages.
//
// It is a demo harness, not a production dataplane: the host framework
// this fast path is meant to run inside (a VPP-style graph node) owns
// real packet I/O and forwarding; this command's polling UDP loop is a
// userspace stand-in for that, adapted from the same sequential-poll
// shape the original router used.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"net"
	"net/netip"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/fancl20/cion-fastpath/pkg/control"
	"github.com/fancl20/cion-fastpath/pkg/dataplane"
	"github.com/fancl20/cion-fastpath/pkg/keys"
	"github.com/fancl20/cion-fastpath/pkg/persist"
	"github.com/fancl20/cion-fastpath/pkg/persist/bbolt"
	"github.com/fancl20/cion-fastpath/pkg/registry"
)

func main() {
	configPath := flag.String("config", "", "bootstrap TOML config (only consulted on first run, when the database is empty)")
	dbPath := flag.String("db", "fastpathd.db", "path to the durable config snapshot database")
	traceTTL := flag.Duration("trace-ttl", 30*time.Second, "how long recently validated packets stay in the trace sink")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fastpathd: building logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Sugar()

	if err := run(*configPath, *dbPath, *traceTTL, log); err != nil {
		log.Fatalw("fastpathd exiting", "error", err)
	}
}

func run(configPath, dbPath string, traceTTL time.Duration, log *zap.SugaredLogger) error {
	store, err := bbolt.New(dbPath, nil)
	if err != nil {
		return fmt.Errorf("opening config store: %w", err)
	}
	defer store.Close()

	reg := registry.New(registry.NewMemoryFramework())
	ks := keys.NewStore()
	ctrl := control.NewWithLogger(reg, ks, log)

	if err := restoreOrBootstrap(ctrl, reg, store, configPath, log); err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	conns, err := openInterfaces(reg.Interfaces())
	if err != nil {
		return fmt.Errorf("opening interface sockets: %w", err)
	}
	defer func() {
		for _, c := range conns {
			c.Close()
		}
	}()

	bypass := dataplane.NewBypassStage(reg)
	trace := dataplane.NewTrace(traceTTL)
	validate := dataplane.NewValidateStage(reg, ks, trace)

	log.Infow("fastpathd ready", "interfaces", len(conns))
	pollLoop(conns, bypass, validate, log)
	return nil
}

// restoreOrBootstrap loads previously persisted state if the store
// already has any; otherwise it parses configPath and applies it via
// the ordinary Controller.Apply path, then persists the result so a
// later restart skips straight to the restore branch.
func restoreOrBootstrap(ctrl *control.Controller, reg *registry.Registry, store persist.Store, configPath string, log *zap.SugaredLogger) error {
	ifaces, err := store.LoadInterfaces()
	if err != nil {
		return fmt.Errorf("loading persisted interfaces: %w", err)
	}
	if len(ifaces) > 0 {
		log.Infow("restoring persisted configuration", "interfaces", len(ifaces))
		return restore(ctrl, store)
	}

	if configPath == "" {
		log.Infow("no persisted configuration and no -config given; starting empty")
		return nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", configPath, err)
	}
	cfg, err := control.ParseBootstrapConfig(data)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", configPath, err)
	}
	if err := ctrl.Apply(cfg); err != nil {
		return fmt.Errorf("applying %s: %w", configPath, err)
	}
	return persistBootstrap(reg, store, cfg)
}

func restore(ctrl *control.Controller, store persist.Store) error {
	isdas, ok, err := store.LoadLocalISDAS()
	if err != nil {
		return err
	}
	if ok {
		ctrl.SetLocalISDAS(isdas)
	}

	keySlots, err := store.LoadKeys()
	if err != nil {
		return err
	}
	for slot, key := range keySlots {
		if err := ctrl.SetKey(slot, key); err != nil {
			return fmt.Errorf("restoring key slot %d: %w", slot, err)
		}
	}

	ifaces, err := store.LoadInterfaces()
	if err != nil {
		return err
	}
	for _, ifc := range ifaces {
		req := control.AddInterfaceRequest{
			IfID:          ifc.IfID,
			Local:         ifc.Local,
			LocalPort:     ifc.LocalPort,
			Remote:        ifc.Remote,
			RemotePort:    ifc.RemotePort,
			NeighborISDAS: ifc.NeighborISDAS,
		}
		if ifc.IfID != 0 {
			req.LinkTo = linkTypeName(ifc.LinkTo)
		}
		if _, err := ctrl.AddInterface(req); err != nil {
			return fmt.Errorf("restoring interface %d: %w", ifc.IfID, err)
		}
	}
	return nil
}

// persistBootstrap mirrors the configuration cfg just applied into
// store, so a future restart finds it in the store and takes the
// restore branch instead of re-reading the bootstrap file.
func persistBootstrap(reg *registry.Registry, store persist.Store, cfg *control.BootstrapConfig) error {
	if cfg.LocalISDAS != "" {
		isdas, err := control.ParseISDAS(cfg.LocalISDAS)
		if err != nil {
			return err
		}
		if err := store.SaveLocalISDAS(isdas); err != nil {
			return err
		}
	}
	for _, k := range cfg.Keys {
		key, err := hex.DecodeString(k.Hex)
		if err != nil {
			return fmt.Errorf("key slot %d: %w", k.Slot, err)
		}
		if err := store.SaveKey(k.Slot, key); err != nil {
			return err
		}
	}
	for _, ifc := range cfg.Interfaces {
		added, found := reg.LookupByIfID(ifc.IfID)
		if !found {
			continue
		}
		if err := store.SaveInterface(added); err != nil {
			return err
		}
	}
	return nil
}

func linkTypeName(lt registry.LinkType) string {
	switch lt {
	case registry.LinkCore:
		return "core"
	case registry.LinkParent:
		return "parent"
	case registry.LinkChild:
		return "child"
	case registry.LinkPeer:
		return "peer"
	default:
		return ""
	}
}

// openInterfaces binds a UDP socket for every external (ifID != 0)
// interface's local endpoint, the underlay address the bypass stage
// expects traffic to arrive on.
func openInterfaces(ifaces []registry.Interface) (map[uint64]*net.UDPConn, error) {
	conns := make(map[uint64]*net.UDPConn, len(ifaces))
	for _, ifc := range ifaces {
		if ifc.IfID == 0 {
			continue
		}
		addr := net.UDPAddrFromAddrPort(netip.AddrPortFrom(ifc.Local, ifc.LocalPort))
		conn, err := net.ListenUDP(udpNetwork(ifc.Local), addr)
		if err != nil {
			for _, c := range conns {
				c.Close()
			}
			return nil, fmt.Errorf("listening on interface %d (%s): %w", ifc.IfID, addr, err)
		}
		conns[ifc.IfID] = conn
	}
	return conns, nil
}

func udpNetwork(a netip.Addr) string {
	if a.Is4() {
		return "udp4"
	}
	return "udp6"
}

// pollLoop is the teacher's router.Run(): poll every interface socket in
// turn with a short read deadline, so no single idle interface blocks
// the others, and run whatever arrives through the bypass and
// validation stages.
func pollLoop(conns map[uint64]*net.UDPConn, bypass *dataplane.BypassStage, validate *dataplane.ValidateStage, log *zap.SugaredLogger) {
	buf := make([]byte, 65535)
	for {
		for ifID, conn := range conns {
			conn.SetReadDeadline(time.Now().Add(time.Millisecond))
			n, _, err := conn.ReadFromUDP(buf)
			if err != nil {
				if ne, ok := err.(net.Error); ok && ne.Timeout() {
					continue
				}
				log.Debugw("read error", "if_id", ifID, "error", err)
				continue
			}
			handlePacket(buf[:n], bypass, validate, log)
		}
	}
}

func handlePacket(data []byte, bypass *dataplane.BypassStage, validate *dataplane.ValidateStage, log *zap.SugaredLogger) {
	if len(data) == 0 {
		return
	}
	version := data[0] >> 4

	b := dataplane.NewBuffer(data, 0, 0)
	var ifc registry.Interface
	var ok bool
	switch version {
	case 4:
		ifc, ok = bypass.ProcessIPv4(b)
	case 6:
		ifc, ok = bypass.ProcessIPv6(b)
	default:
		log.Debugw("dropping packet with unrecognized IP version", "version", version)
		return
	}
	if !ok {
		log.Debugw("bypass stage dropped packet", "error", b.Err())
		return
	}

	action, egressIfID, err := validate.Process(b, ifc.SWIndex)
	if err != nil {
		log.Debugw("validation stage dropped packet", "if_id", ifc.IfID, "error", err)
		return
	}

	switch action {
	case dataplane.ActionDeliverIPv4, dataplane.ActionDeliverIPv6:
		log.Debugw("packet reached destination AS", "if_id", ifc.IfID)
	case dataplane.ActionPathUpdate:
		log.Debugw("packet needs forwarding", "if_id", ifc.IfID, "egress_if_id", egressIfID)
	case dataplane.ActionExtension:
		log.Debugw("packet carries a hop-by-hop extension, routing to slow path", "if_id", ifc.IfID)
	default:
		log.Debugw("dropping packet", "if_id", ifc.IfID)
	}
}
