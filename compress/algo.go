// Package compress implements the C10 compression wrapper: a thin layer
// applied to already-finalized envelope bytes. The algorithm identity is
// never embedded in the envelope; callers track it out-of-band (for
// example in a transport header) and pass it back in on decompression.
package compress

import "fmt"

// Algorithm identifies a compression codec. The zero value is None.
type Algorithm uint8

const (
	None Algorithm = iota
	Gzip
	Zstd
	S2
	LZ4
)

func (a Algorithm) String() string {
	switch a {
	case None:
		return "none"
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	case S2:
		return "s2"
	case LZ4:
		return "lz4"
	default:
		return fmt.Sprintf("Algorithm(%d)", uint8(a))
	}
}
