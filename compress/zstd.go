package compress

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// zstdCodec wraps klauspost/compress/zstd. Encoding uses the level-oriented
// one-shot API; decoding streams through a Decoder so a bound can be
// enforced without first materializing the whole output.
type zstdCodec struct{}

var _ Codec = zstdCodec{}

func zstdLevel(level int) zstd.EncoderLevel {
	switch {
	case level <= 0:
		return zstd.SpeedDefault
	case level == 1:
		return zstd.SpeedFastest
	case level >= 3:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedBetterCompression
	}
}

func (zstdCodec) Compress(data []byte, level int) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstdLevel(level)))
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	defer enc.Close()

	return enc.EncodeAll(data, nil), nil
}

func (zstdCodec) Decompress(data []byte, maxUncompressedLen int) ([]byte, error) {
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	defer dec.Close()

	if err := dec.Reset(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}

	return readBounded(dec, maxUncompressedLen)
}
