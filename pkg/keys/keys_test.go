package keys_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fancl20/cion-fastpath/pkg/keys"
)

func TestStoreSetAndGetKey(t *testing.T) {
	s := keys.NewStore()
	_, ok := s.Key(0)
	require.False(t, ok)

	key := []byte("0123456789abcdef")
	require.NoError(t, s.SetKey(0, key))

	got, ok := s.Key(0)
	require.True(t, ok)
	require.Equal(t, key, got[:])
}

func TestStoreSetKeyBadLength(t *testing.T) {
	s := keys.NewStore()
	err := s.SetKey(0, []byte("short"))
	require.ErrorIs(t, err, keys.ErrBadKeyLength)
}

func TestStoreClearKey(t *testing.T) {
	s := keys.NewStore()
	require.NoError(t, s.SetKey(1, []byte("0123456789abcdef")))
	s.ClearKey(1)
	_, ok := s.Key(1)
	require.False(t, ok)
}

func TestStoreOutOfRangeSlot(t *testing.T) {
	s := keys.NewStore()
	err := s.SetKey(keys.MaxSlots, []byte("0123456789abcdef"))
	require.Error(t, err)
	_, ok := s.Key(-1)
	require.False(t, ok)
}

func TestSignDeterministic(t *testing.T) {
	var key [16]byte
	copy(key[:], "0123456789abcdef")
	in := keys.BuildMACInput([4]byte{1, 2, 3, 4}, [4]byte{5, 6, 7, 8}, nil)

	mac1, err := keys.Sign24(key, in)
	require.NoError(t, err)
	mac2, err := keys.Sign24(key, in)
	require.NoError(t, err)
	require.Equal(t, mac1, mac2)
	require.Less(t, mac1, uint32(1<<24))
}

func TestSignDiffersWithPrevHop(t *testing.T) {
	var key [16]byte
	copy(key[:], "0123456789abcdef")
	in1 := keys.BuildMACInput([4]byte{1, 2, 3, 4}, [4]byte{5, 6, 7, 8}, nil)
	in2 := keys.BuildMACInput([4]byte{1, 2, 3, 4}, [4]byte{5, 6, 7, 8}, []byte{9, 10, 11, 12, 13, 14, 15})

	mac1, err := keys.Sign24(key, in1)
	require.NoError(t, err)
	mac2, err := keys.Sign24(key, in2)
	require.NoError(t, err)
	require.NotEqual(t, mac1, mac2)
}

func TestPrevHopIndex(t *testing.T) {
	tests := []struct {
		name     string
		idx      int
		hops     uint8
		consDir  bool
		wantPrev int
		wantOK   bool
	}{
		{"cons dir middle", 2, 4, true, 1, true},
		{"cons dir first hop has no prev", 0, 4, true, 0, false},
		{"against cons dir middle", 1, 4, false, 2, true},
		{"against cons dir last hop has no prev", 3, 4, false, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev, ok := keys.PrevHopIndex(tt.idx, tt.hops, tt.consDir)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				require.Equal(t, tt.wantPrev, prev)
			}
		})
	}
}
