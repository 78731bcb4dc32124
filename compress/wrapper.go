package compress

import (
	"fmt"

	"github.com/mathilde-trade/mathilde-binary-transport/batch"
	"github.com/mathilde-trade/mathilde-binary-transport/envelope"
)

// CompressEncode is compress(encode(batch)): it encodes b to an envelope
// with ws (nil for defaults) and compresses the result with algo at level.
// The compression algorithm identity is not embedded anywhere in the
// returned bytes; the caller must track it out-of-band.
func CompressEncode(b batch.Batch, dst []byte, ws *envelope.EncodeWorkspace, algo Algorithm, level int) ([]byte, error) {
	codec, err := CreateCodec(algo)
	if err != nil {
		return dst, err
	}

	encoded, err := envelope.EncodeOpt(b, nil, ws)
	if err != nil {
		return dst, err
	}

	compressed, err := codec.Compress(encoded, level)
	if err != nil {
		return dst, fmt.Errorf("compress: %w", err)
	}

	return append(dst, compressed...), nil
}

// DecompressDecode is decode(decompress(bytes, max_uncompressed_len)): it
// decompresses src with algo, aborting with ErrDecompressTooLarge before
// allocating past maxUncompressedLen, then decodes the recovered envelope.
func DecompressDecode(src []byte, ws *envelope.DecodeWorkspace, algo Algorithm, maxUncompressedLen int) (batch.Batch, error) {
	codec, err := CreateCodec(algo)
	if err != nil {
		return batch.Batch{}, err
	}

	decompressed, err := codec.Decompress(src, maxUncompressedLen)
	if err != nil {
		return batch.Batch{}, fmt.Errorf("decompress: %w", err)
	}

	return envelope.DecodeOpt(decompressed, ws)
}
