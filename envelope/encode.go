package envelope

import (
	"encoding/binary"
	"fmt"

	"github.com/mathilde-trade/mathilde-binary-transport/batch"
	"github.com/mathilde-trade/mathilde-binary-transport/errs"
	"github.com/mathilde-trade/mathilde-binary-transport/internal/pool"
	"github.com/mathilde-trade/mathilde-binary-transport/internal/varint"
	"github.com/mathilde-trade/mathilde-binary-transport/schema"
)

// Encode appends a complete envelope for b to dst using the default
// encoding flags (both opt-in encodings disabled) and returns the grown
// slice. On error dst is returned unmodified.
func Encode(b batch.Batch, dst []byte) ([]byte, error) {
	return EncodeOpt(b, dst, nil)
}

// EncodeOpt appends a complete envelope for b to dst, honoring the flags
// set on ws. A nil ws behaves like Encode. On error dst is returned
// unmodified.
func EncodeOpt(b batch.Batch, dst []byte, ws *EncodeWorkspace) ([]byte, error) {
	if err := b.Validate(); err != nil {
		return dst, err
	}

	return encodeColumns(b.Schema, b.RowCount, b.Columns, dst, ws)
}

// EncodeFastPath appends a complete envelope for v to dst using the default
// encoding flags. It never mutates v's buffers and produces bytes
// byte-identical to Encode on an equivalent owned batch.
func EncodeFastPath(v batch.View, dst []byte) ([]byte, error) {
	return EncodeFastPathOpt(v, dst, nil)
}

// EncodeFastPathOpt appends a complete envelope for v to dst, honoring the
// flags set on ws.
func EncodeFastPathOpt(v batch.View, dst []byte, ws *EncodeWorkspace) ([]byte, error) {
	if err := v.Validate(); err != nil {
		return dst, err
	}

	return encodeColumns(v.Schema, v.RowCount, v.Columns, dst, ws)
}

func encodeColumns(sch schema.Schema, rowCount int, columns []batch.Column, dst []byte, ws *EncodeWorkspace) ([]byte, error) {
	if rowCount < 0 || uint64(rowCount) > maxU32 {
		return dst, fmt.Errorf("%w: row count %d does not fit u32", errs.ErrInvalidBatch, rowCount)
	}
	fields := sch.Fields()
	if uint64(len(fields)) > maxU32 {
		return dst, fmt.Errorf("%w: column count %d does not fit u32", errs.ErrInvalidBatch, len(fields))
	}

	if ws == nil {
		ws = NewEncodeWorkspace()
	}
	ws.reset()

	out := dst
	out = append(out, Magic...)
	out = binary.LittleEndian.AppendUint16(out, Version)
	out = binary.LittleEndian.AppendUint16(out, 0)
	out = binary.LittleEndian.AppendUint32(out, uint32(rowCount))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(fields)))

	for i, f := range fields {
		var err error
		out, err = encodeColumn(out, f, columns[i], rowCount, ws)
		if err != nil {
			return dst, fmt.Errorf("column %d (%q): %w", i, f.Name, err)
		}
	}

	return out, nil
}

func encodeColumn(dst []byte, f schema.Field, col batch.Column, rowCount int, ws *EncodeWorkspace) ([]byte, error) {
	if uint64(len(f.Name)) > maxU32 {
		return dst, fmt.Errorf("%w: field name too long", errs.ErrBadSchema)
	}

	encodingID, payload, err := buildPayload(f, col, rowCount, ws)
	if err != nil {
		return dst, err
	}
	if uint64(len(payload)) > maxU32 {
		return dst, fmt.Errorf("%w: payload too large", errs.ErrInvalidBatch)
	}

	out := dst
	out = binary.LittleEndian.AppendUint32(out, uint32(len(f.Name)))
	out = append(out, f.Name...)
	out = append(out, uint8(f.Type))
	if f.Nullable {
		out = append(out, 1)
	} else {
		out = append(out, 0)
	}
	out = append(out, encodingID)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(payload)))
	out = append(out, payload...)

	return out, nil
}

// buildPayload chooses a column's wire encoding and builds its payload into
// ws's scratch buffer, returning the encoding id and the built payload. The
// returned payload slice aliases ws's scratch buffer and is only valid
// until the next buildPayload call on the same workspace.
func buildPayload(f schema.Field, col batch.Column, rowCount int, ws *EncodeWorkspace) (uint8, []byte, error) {
	ws.scratch.Reset()

	switch {
	case eligibleForDelta(f, col, rowCount, ws):
		buildDeltaVarintI64Payload(col, rowCount, ws.scratch)

		return EncodingDeltaVarintI64, ws.scratch.Bytes(), nil
	case eligibleForDict(f, ws):
		if err := buildDictUtf8Payload(col, rowCount, ws); err != nil {
			return 0, nil, err
		}

		return EncodingDictUtf8, ws.scratch.Bytes(), nil
	case f.Type.IsFixedWidth():
		buildPlainFixedPayload(col, ws.scratch)

		return EncodingPlain, ws.scratch.Bytes(), nil
	default:
		buildPlainVarlenPayload(col, ws.scratch)

		return EncodingPlain, ws.scratch.Bytes(), nil
	}
}

func eligibleForDelta(f schema.Field, col batch.Column, rowCount int, ws *EncodeWorkspace) bool {
	if !ws.enableDeltaVarintI64 {
		return false
	}
	if f.Type != schema.I64 && f.Type != schema.TimestampTzMicros {
		return false
	}

	return isAllValid(col.Validity, rowCount)
}

func eligibleForDict(f schema.Field, ws *EncodeWorkspace) bool {
	return ws.enableDictUtf8 && f.Type.IsText()
}

func isAllValid(v batch.Validity, rowCount int) bool {
	for i := 0; i < rowCount; i++ {
		if !v.IsValid(i) {
			return false
		}
	}

	return true
}

func buildPlainFixedPayload(col batch.Column, scratch *pool.ByteBuffer) {
	scratch.MustWrite(col.Validity)
	scratch.MustWrite(col.Values)
}

func buildPlainVarlenPayload(col batch.Column, scratch *pool.ByteBuffer) {
	scratch.MustWrite(col.Validity)
	for _, off := range col.Offsets {
		scratch.B = binary.LittleEndian.AppendUint32(scratch.B, off)
	}
	scratch.MustWrite(col.Data)
}

func buildDictUtf8Payload(col batch.Column, rowCount int, ws *EncodeWorkspace) error {
	scratch := ws.scratch
	dict := ws.dict
	dict.reset()

	indices := ws.growIndices(rowCount)
	for i := 0; i < rowCount; i++ {
		if !col.Validity.IsValid(i) {
			indices[i] = 0

			continue
		}
		value := col.Data[col.Offsets[i]:col.Offsets[i+1]]
		indices[i] = dict.indexOf(string(value))
	}

	if uint64(dict.count()) > maxU32 {
		return errs.ErrDictTooLarge
	}

	scratch.MustWrite(col.Validity)
	scratch.B = binary.LittleEndian.AppendUint32(scratch.B, uint32(dict.count()))

	var blockOffset uint32
	scratch.B = binary.LittleEndian.AppendUint32(scratch.B, blockOffset)
	for _, v := range dict.values {
		if uint64(blockOffset)+uint64(len(v)) > maxU32 {
			return errs.ErrDictTooLarge
		}
		blockOffset += uint32(len(v))
		scratch.B = binary.LittleEndian.AppendUint32(scratch.B, blockOffset)
	}
	for _, v := range dict.values {
		scratch.MustWrite([]byte(v))
	}

	for _, idx := range indices {
		scratch.B = binary.AppendUvarint(scratch.B, uint64(idx))
	}

	return nil
}

func buildDeltaVarintI64Payload(col batch.Column, rowCount int, scratch *pool.ByteBuffer) {
	scratch.B = append(scratch.B, 0x01)

	var prev int64
	for i := 0; i < rowCount; i++ {
		v := int64(binary.LittleEndian.Uint64(col.Values[i*8 : i*8+8]))
		var toEncode int64
		if i == 0 {
			toEncode = v
		} else {
			toEncode = v - prev
		}
		scratch.B = varint.AppendSigned(scratch.B, toEncode)
		prev = v
	}
}
