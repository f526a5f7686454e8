package control

import (
	"encoding/hex"
	"fmt"

	"github.com/scionproto/scion/pkg/addr"
)

// ParseISDAS parses a "<isd>-<as>" string (e.g. "1-ff00:0:110") into the
// packed uint64 ISD-AS value the registry and wire format both use.
func ParseISDAS(s string) (uint64, error) {
	ia, err := addr.ParseIA(s)
	if err != nil {
		return 0, fmt.Errorf("invalid ISD-AS %q: %w", s, err)
	}
	return uint64(ia), nil
}

func parseHexKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex key: %w", err)
	}
	return key, nil
}
