package compress

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/s2"
)

// s2Codec wraps klauspost/compress/s2, a Snappy-compatible format tuned for
// throughput over ratio.
type s2Codec struct{}

var _ Codec = s2Codec{}

func (s2Codec) Compress(data []byte, level int) ([]byte, error) {
	var opts []s2.WriterOption
	if level >= 2 {
		opts = append(opts, s2.WriterBetterCompression())
	}

	var buf bytes.Buffer
	w := s2.NewWriter(&buf, opts...)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("s2: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("s2: %w", err)
	}

	return buf.Bytes(), nil
}

func (s2Codec) Decompress(data []byte, maxUncompressedLen int) ([]byte, error) {
	r := s2.NewReader(bytes.NewReader(data))

	return readBounded(r, maxUncompressedLen)
}
