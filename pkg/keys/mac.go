package keys

import (
	"crypto/aes"

	"github.com/dchest/cmac"
)

// MACInputLen is the fixed size of the AES-CMAC input block: the owning
// info field's timestamp, a reserved zero byte, the hop field being
// authenticated, and (when present) the previous hop field on the
// segment, per scion_mac_data in the original plugin.
const MACInputLen = 16

// BuildMACInput assembles the 16-byte CMAC input for a hop field:
//
//	[0:4]  info field timestamp, as carried on the wire
//	[4]    reserved, always zero
//	[5:9]  the hop field's exp_time and packed ingress/egress bytes
//	       (its wire bytes [1:5], skipping the flags byte)
//	[9:16] the previous hop field's exp_time, ingress/egress, and MAC
//	       bytes (its wire bytes [1:8]), or all zero if there is none
//
// infoTimestamp, hopTail, and prevHopTail must be the raw wire byte
// slices described above; prevHopTail may be nil.
func BuildMACInput(infoTimestamp [4]byte, hopTail [4]byte, prevHopTail []byte) [MACInputLen]byte {
	var in [MACInputLen]byte
	copy(in[0:4], infoTimestamp[:])
	// in[4] stays zero.
	copy(in[5:9], hopTail[:])
	copy(in[9:16], prevHopTail)
	return in
}

// Sign computes the AES-128-CMAC of in under key, returning the full
// 16-byte tag.
func Sign(key [16]byte, in [MACInputLen]byte) ([16]byte, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return [16]byte{}, err
	}
	h, err := cmac.New(block)
	if err != nil {
		return [16]byte{}, err
	}
	h.Write(in[:])
	var out [16]byte
	copy(out[:], h.Sum(nil))
	return out, nil
}

// Sign24 computes the AES-128-CMAC of in under key and returns the low
// 24 bits of the tag's last 4 bytes read as a little-endian word
// (mac.as_u32[3] & 0xffffff in the original), i.e. tag bytes 12, 13, 14
// packed as the low, middle, and high byte of the result respectively;
// byte 15 is discarded by the mask. Hop field MACs are truncated this
// way on the wire; this is what the dataplane's ValidateStage.Process
// and the signing side both compare against.
func Sign24(key [16]byte, in [MACInputLen]byte) (uint32, error) {
	full, err := Sign(key, in)
	if err != nil {
		return 0, err
	}
	return uint32(full[14])<<16 | uint32(full[13])<<8 | uint32(full[12]), nil
}

// PrevHopIndex returns the index, within a segment of the given hop
// count, of the hop field that authenticates idx's MAC: idx-1 in
// construction direction, idx+1 against it. ok is false when that index
// falls outside the segment (idx is the first or last hop field on its
// segment, in the relevant direction), meaning the hop field being
// validated has no previous hop field to include in its MAC input.
func PrevHopIndex(idx int, hops uint8, consDir bool) (prev int, ok bool) {
	if consDir {
		prev = idx - 1
	} else {
		prev = idx + 1
	}
	if prev < 0 || prev >= int(hops) {
		return 0, false
	}
	return prev, true
}
