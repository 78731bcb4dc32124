package compress

import (
	"fmt"

	"github.com/mathilde-trade/mathilde-binary-transport/errs"
)

// Compressor compresses already-encoded envelope bytes.
type Compressor interface {
	Compress(data []byte, level int) ([]byte, error)
}

// Decompressor decompresses bytes produced by the matching Compressor.
// maxUncompressedLen is mandatory: implementations must abort with
// ErrDecompressTooLarge before allocating a buffer larger than that bound.
type Decompressor interface {
	Decompress(data []byte, maxUncompressedLen int) ([]byte, error)
}

// Codec combines Compressor and Decompressor.
type Codec interface {
	Compressor
	Decompressor
}

// CreateCodec returns the built-in Codec for algo.
func CreateCodec(algo Algorithm) (Codec, error) {
	switch algo {
	case None:
		return noopCodec{}, nil
	case Gzip:
		return gzipCodec{}, nil
	case Zstd:
		return zstdCodec{}, nil
	case S2:
		return s2Codec{}, nil
	case LZ4:
		return lz4Codec{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", errs.ErrFeatureDisabled, algo)
	}
}
