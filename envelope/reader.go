package envelope

import (
	"encoding/binary"
	"fmt"

	"github.com/mathilde-trade/mathilde-binary-transport/errs"
	"github.com/mathilde-trade/mathilde-binary-transport/internal/varint"
)

// reader is a bounds-checked cursor over an untrusted byte slice. Every
// read method fails with ErrTruncated rather than panicking or slicing out
// of bounds.
type reader struct {
	data []byte
	off  int
}

func newReader(data []byte) *reader {
	return &reader{data: data}
}

func (r *reader) remaining() int {
	return len(r.data) - r.off
}

func (r *reader) readBytes(n int) ([]byte, error) {
	if n < 0 || n > r.remaining() {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", errs.ErrTruncated, n, r.remaining())
	}
	b := r.data[r.off : r.off+n]
	r.off += n

	return b, nil
}

func (r *reader) readU8() (uint8, error) {
	b, err := r.readBytes(1)
	if err != nil {
		return 0, err
	}

	return b[0], nil
}

func (r *reader) readU16() (uint16, error) {
	b, err := r.readBytes(2)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint16(b), nil
}

func (r *reader) readU32() (uint32, error) {
	b, err := r.readBytes(4)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) readUvarint() (uint64, error) {
	u, next, err := varint.ReadUnsigned(r.data, r.off)
	if err != nil {
		return 0, err
	}
	r.off = next

	return u, nil
}

func (r *reader) readSignedVarint() (int64, error) {
	v, next, err := varint.ReadSigned(r.data, r.off)
	if err != nil {
		return 0, err
	}
	r.off = next

	return v, nil
}
