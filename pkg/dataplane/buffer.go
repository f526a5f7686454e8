package dataplane

// Flags are the per-buffer metadata bits the host framework may have
// already computed before handing a buffer to this fast path, mirroring
// VNET_BUFFER_F_L4_CHECKSUM_COMPUTED / L4_CHECKSUM_CORRECT: when the NIC
// or an earlier graph node already validated the UDP checksum, the bypass
// stage trusts that result instead of recomputing it.
type Flags uint8

const (
	// FlagL4ChecksumComputed marks that something upstream already
	// computed and checked the L4 checksum for this buffer.
	FlagL4ChecksumComputed Flags = 1 << iota
	// FlagL4ChecksumCorrect is only meaningful alongside
	// FlagL4ChecksumComputed: it reports whether that upstream check
	// passed.
	FlagL4ChecksumCorrect
)

// Buffer is the thin per-packet handle the dataplane stages operate on:
// a cursor into a single contiguous byte slice, a logical ingress
// interface slot, host-framework flags, and a slot for the first error a
// stage records against it. It stands in for the framework's native
// buffer/vlib_buffer_t type: something that owns packet bytes, can be
// advanced past a header once that header has been consumed, and carries
// a few out-of-band bits alongside the bytes.
type Buffer struct {
	data   []byte
	offset int

	rxIfIndex uint32
	flags     Flags
	err       error
}

// NewBuffer wraps data as a Buffer with the cursor at the start of the
// packet and rxIfIndex as its logical ingress interface slot (the
// underlay socket or NIC queue it was read from).
func NewBuffer(data []byte, rxIfIndex uint32, flags Flags) *Buffer {
	return &Buffer{data: data, rxIfIndex: rxIfIndex, flags: flags}
}

// Bytes returns the packet bytes from the current cursor position to the
// end of the buffer.
func (b *Buffer) Bytes() []byte { return b.data[b.offset:] }

// Advance moves the cursor forward by n bytes, past a header this stage
// has finished consuming. It panics if n would move the cursor past the
// end of the buffer, the same contract as the framework's own
// vlib_buffer_advance: callers must bounds-check before advancing.
func (b *Buffer) Advance(n int) {
	if b.offset+n > len(b.data) {
		panic("dataplane: buffer advance past end")
	}
	b.offset += n
}

// Len returns the number of bytes remaining from the current cursor.
func (b *Buffer) Len() int { return len(b.data) - b.offset }

// RXInterface returns the logical ingress interface slot this buffer
// arrived on.
func (b *Buffer) RXInterface() uint32 { return b.rxIfIndex }

// SetRXInterface overwrites the logical ingress interface slot, as the
// bypass stage does once it has resolved the packet's registered
// interface (vnet_buffer(b0)->sw_if_index[VLIB_RX] = intf0->sw_if_index).
func (b *Buffer) SetRXInterface(idx uint32) { b.rxIfIndex = idx }

// HasFlag reports whether f is set.
func (b *Buffer) HasFlag(f Flags) bool { return b.flags&f != 0 }

// Err returns the first error recorded against this buffer, or nil.
func (b *Buffer) Err() error { return b.err }

// SetErr records err as this buffer's error, if one is not already set.
// Stages call this once, after picking a single error by priority; it
// never overwrites an earlier error with a later one.
func (b *Buffer) SetErr(err error) {
	if b.err == nil {
		b.err = err
	}
}
