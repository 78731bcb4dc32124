// Package varint implements the zigzag + LEB128 varint encoding used by the
// DeltaVarintI64 column encoding: signed deltas are mapped to unsigned
// values with zigzag, then written as base-128 varints.
package varint

import (
	"encoding/binary"

	"github.com/mathilde-trade/mathilde-binary-transport/errs"
)

// maxLen is the longest a LEB128 encoding of a 64-bit value can be.
const maxLen = binary.MaxVarintLen64

// ZigzagEncode maps a signed value to an unsigned one so small-magnitude
// negative and non-negative values both encode to few varint bytes.
func ZigzagEncode(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}

// ZigzagDecode reverses ZigzagEncode.
func ZigzagDecode(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}

// AppendSigned zigzag-encodes v and appends its varint bytes to dst.
func AppendSigned(dst []byte, v int64) []byte {
	return binary.AppendUvarint(dst, ZigzagEncode(v))
}

// ReadSigned reads one zigzag-encoded varint from data starting at offset.
// It returns the decoded value, the offset immediately after the varint's
// bytes, and an error if data is truncated or the varint exceeds 10 bytes.
func ReadSigned(data []byte, offset int) (int64, int, error) {
	u, next, err := ReadUnsigned(data, offset)
	if err != nil {
		return 0, offset, err
	}

	return ZigzagDecode(u), next, nil
}

// ReadUnsigned reads one LEB128 varint from data starting at offset, never
// reading past len(data) and never accepting more than maxLen continuation
// bytes.
func ReadUnsigned(data []byte, offset int) (uint64, int, error) {
	var value uint64
	var shift uint

	cur := offset
	for i := 0; i < maxLen; i++ {
		if cur >= len(data) {
			return 0, offset, errs.ErrTruncated
		}

		b := data[cur]
		cur++

		if i == maxLen-1 && b > 1 {
			return 0, offset, errs.ErrMalformed
		}

		value |= uint64(b&0x7F) << shift
		if b < 0x80 {
			return value, cur, nil
		}
		shift += 7
	}

	return 0, offset, errs.ErrMalformed
}
