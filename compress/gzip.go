package compress

import (
	"bytes"
	"compress/gzip"
	"fmt"
)

// gzipCodec wraps the standard library's gzip implementation. The corpus
// reaches for klauspost/compress for zstd and s2 but has no third-party
// gzip-compatible writer; gzip is a named format in its own right (RFC
// 1952), not an ambient concern the corpus delegates elsewhere, so the
// standard library implementation is used directly.
type gzipCodec struct{}

var _ Codec = gzipCodec{}

func (gzipCodec) Compress(data []byte, level int) ([]byte, error) {
	if level == 0 {
		level = gzip.DefaultCompression
	}

	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}

	return buf.Bytes(), nil
}

func (gzipCodec) Decompress(data []byte, maxUncompressedLen int) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	defer r.Close()

	return readBounded(r, maxUncompressedLen)
}
