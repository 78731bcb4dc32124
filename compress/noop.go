package compress

import (
	"fmt"

	"github.com/mathilde-trade/mathilde-binary-transport/errs"
)

// noopCodec bypasses compression entirely. Its main use is testing the
// envelope/decompress plumbing without pulling in a real codec.
type noopCodec struct{}

var _ Codec = noopCodec{}

func (noopCodec) Compress(data []byte, _ int) ([]byte, error) {
	return data, nil
}

func (noopCodec) Decompress(data []byte, maxUncompressedLen int) ([]byte, error) {
	if len(data) > maxUncompressedLen {
		return nil, fmt.Errorf("%w: exceeds %d bytes", errs.ErrDecompressTooLarge, maxUncompressedLen)
	}

	return data, nil
}
