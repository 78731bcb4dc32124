// Package envelope implements the MATHLDBT v1 wire codec: the encoder and
// decoder that turn a batch.Batch into a self-contained byte sequence and
// back. All integers on the wire are little-endian; see doc.go for the
// full layout.
package envelope

const (
	// Magic is the 8-byte prefix every envelope begins with.
	Magic = "MATHLDBT"

	// Version is the only wire version this codec understands.
	Version uint16 = 1
)

// Encoding ids select a column payload's wire format. Existing ids never
// change meaning; new encodings get new ids.
const (
	EncodingPlain          uint8 = 1
	EncodingDictUtf8       uint8 = 2
	EncodingDeltaVarintI64 uint8 = 3
)

const maxU32 = 1<<32 - 1
