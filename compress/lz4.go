package compress

import (
	"bytes"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// lz4Codec wraps pierrec/lz4/v4's streaming frame API rather than the
// block API the block-oriented callers in the corpus use: the streaming
// reader lets Decompress enforce a byte bound without a growing retry
// buffer.
type lz4Codec struct{}

var _ Codec = lz4Codec{}

func (lz4Codec) Compress(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if level > 0 {
		if err := w.Apply(lz4.CompressionLevelOption(lz4.CompressionLevel(level))); err != nil {
			return nil, fmt.Errorf("lz4: %w", err)
		}
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("lz4: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("lz4: %w", err)
	}

	return buf.Bytes(), nil
}

func (lz4Codec) Decompress(data []byte, maxUncompressedLen int) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(data))

	return readBounded(r, maxUncompressedLen)
}
