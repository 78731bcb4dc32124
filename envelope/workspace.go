package envelope

import (
	"github.com/mathilde-trade/mathilde-binary-transport/internal/pool"
)

// EncodeWorkspace carries scratch buffers and the two opt-in encoding flags
// across repeated Encode calls. A workspace is not safe for concurrent use:
// each goroutine that encodes must hold its own instance.
type EncodeWorkspace struct {
	scratch *pool.ByteBuffer
	dict    *dictTracker
	indices []uint32

	enableDictUtf8       bool
	enableDeltaVarintI64 bool
}

// EncodeWorkspaceOption configures an EncodeWorkspace at construction time.
// There are exactly two: WithDictUtf8 and WithDeltaVarintI64.
type EncodeWorkspaceOption func(*EncodeWorkspace)

// NewEncodeWorkspace returns a workspace with both opt-in encodings
// disabled by default, then applies opts in order. Options and the
// SetEnableDictUtf8/SetEnableDeltaVarintI64 setters configure the same two
// fields; either style is equivalent.
func NewEncodeWorkspace(opts ...EncodeWorkspaceOption) *EncodeWorkspace {
	w := &EncodeWorkspace{
		scratch: pool.NewByteBuffer(pool.DefaultSize),
		dict:    newDictTracker(),
	}
	for _, opt := range opts {
		opt(w)
	}

	return w
}

// WithDictUtf8 enables the DictUtf8 opt-in encoding.
func WithDictUtf8() EncodeWorkspaceOption {
	return func(w *EncodeWorkspace) {
		w.enableDictUtf8 = true
	}
}

// WithDeltaVarintI64 enables the DeltaVarintI64 opt-in encoding.
func WithDeltaVarintI64() EncodeWorkspaceOption {
	return func(w *EncodeWorkspace) {
		w.enableDeltaVarintI64 = true
	}
}

// SetEnableDictUtf8 turns the DictUtf8 opt-in encoding on or off. When on,
// every eligible Utf8/JsonbText column is dict-encoded; there is no
// size-based heuristic.
func (w *EncodeWorkspace) SetEnableDictUtf8(enabled bool) {
	w.enableDictUtf8 = enabled
}

// SetEnableDeltaVarintI64 turns the DeltaVarintI64 opt-in encoding on or
// off. When on, every eligible I64/TimestampTzMicros column with no nulls
// is delta-encoded.
func (w *EncodeWorkspace) SetEnableDeltaVarintI64(enabled bool) {
	w.enableDeltaVarintI64 = enabled
}

func (w *EncodeWorkspace) reset() {
	w.scratch.Reset()
	w.dict.reset()
}

// growIndices returns a []uint32 of length n, reusing w.indices' backing
// array when it already has enough capacity.
func (w *EncodeWorkspace) growIndices(n int) []uint32 {
	if cap(w.indices) >= n {
		w.indices = w.indices[:n]
	} else {
		w.indices = make([]uint32, n)
	}

	return w.indices
}

// DecodeWorkspace carries reusable scratch buffers for repeated Decode /
// DecodeInto calls: an offsets buffer shared by plain-varlen and DictUtf8
// offset arrays, a byte buffer used to assemble variable-length data (and
// fixed-width delta output) before it is copied into the destination
// batch's own memory, and a dictionary-entry buffer for DictUtf8. A
// workspace is not safe for concurrent use.
type DecodeWorkspace struct {
	offsets []uint32
	values  *pool.ByteBuffer
	dict    [][]byte
}

// NewDecodeWorkspace returns an empty, ready-to-use decode workspace.
func NewDecodeWorkspace() *DecodeWorkspace {
	return &DecodeWorkspace{values: pool.NewByteBuffer(pool.DefaultSize)}
}

func (w *DecodeWorkspace) reset() {
	w.offsets = w.offsets[:0]
	w.values.Reset()
	w.dict = w.dict[:0]
}

// growOffsets returns a []uint32 of length n, reusing w.offsets' backing
// array when it already has enough capacity.
func (w *DecodeWorkspace) growOffsets(n int) []uint32 {
	if cap(w.offsets) >= n {
		w.offsets = w.offsets[:n]
	} else {
		w.offsets = make([]uint32, n)
	}

	return w.offsets
}

// growDict returns a [][]byte of length n, reusing w.dict's backing array
// when it already has enough capacity.
func (w *DecodeWorkspace) growDict(n int) [][]byte {
	if cap(w.dict) >= n {
		w.dict = w.dict[:n]
	} else {
		w.dict = make([][]byte, n)
	}

	return w.dict
}
