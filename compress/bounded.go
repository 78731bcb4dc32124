package compress

import (
	"fmt"
	"io"

	"github.com/mathilde-trade/mathilde-binary-transport/errs"
)

// readBounded drains r into a buffer, aborting with ErrDecompressTooLarge
// before the buffer would grow past maxLen. It never allocates more than
// maxLen+1 bytes for the read itself.
func readBounded(r io.Reader, maxLen int) ([]byte, error) {
	if maxLen < 0 {
		return nil, fmt.Errorf("%w: negative bound", errs.ErrDecompressTooLarge)
	}

	limited := io.LimitReader(r, int64(maxLen)+1)
	buf := make([]byte, 0, min(maxLen, 512)+1)
	var err error
	for err == nil {
		if len(buf) == cap(buf) && len(buf) <= maxLen {
			buf = append(make([]byte, 0, min(2*cap(buf), maxLen)+1), buf...)
		}
		var n int
		n, err = limited.Read(buf[len(buf):cap(buf)])
		buf = buf[:len(buf)+n]
	}
	if err != io.EOF {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	if len(buf) > maxLen {
		return nil, fmt.Errorf("%w: exceeds %d bytes", errs.ErrDecompressTooLarge, maxLen)
	}

	return buf, nil
}
