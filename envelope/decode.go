package envelope

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/mathilde-trade/mathilde-binary-transport/batch"
	"github.com/mathilde-trade/mathilde-binary-transport/errs"
	"github.com/mathilde-trade/mathilde-binary-transport/schema"
)

// Decode parses src into a freshly allocated Batch. The returned batch
// never aliases src.
func Decode(src []byte) (batch.Batch, error) {
	return DecodeOpt(src, nil)
}

// DecodeOpt parses src into a freshly allocated Batch, using ws for
// scratch space. A nil ws behaves like Decode.
func DecodeOpt(src []byte, ws *DecodeWorkspace) (batch.Batch, error) {
	if ws == nil {
		ws = NewDecodeWorkspace()
	}
	ws.reset()

	sch, rowCount, columns, err := decodeEnvelope(src, ws)
	if err != nil {
		return batch.Batch{}, err
	}

	return batch.New(sch, rowCount, columns)
}

// DecodeInto parses src and populates dst in place, reusing dst's existing
// column buffer capacity where possible. dst's contents after the call are
// semantically identical to what Decode(src) would return.
func DecodeInto(src []byte, dst *batch.Batch) error {
	return DecodeIntoOpt(src, dst, nil)
}

// DecodeIntoOpt is DecodeInto with an explicit decode workspace.
func DecodeIntoOpt(src []byte, dst *batch.Batch, ws *DecodeWorkspace) error {
	if ws == nil {
		ws = NewDecodeWorkspace()
	}
	ws.reset()

	sch, rowCount, columns, err := decodeEnvelope(src, ws)
	if err != nil {
		return err
	}

	if len(dst.Columns) != len(columns) {
		dst.Columns = make([]batch.Column, len(columns))
	}
	for i, c := range columns {
		dst.Columns[i] = batch.Column{
			Type:     c.Type,
			Validity: reuseBytes(dst.Columns[i].Validity, c.Validity),
			Values:   reuseBytes(dst.Columns[i].Values, c.Values),
			Offsets:  reuseU32(dst.Columns[i].Offsets, c.Offsets),
			Data:     reuseBytes(dst.Columns[i].Data, c.Data),
		}
	}
	dst.Schema = sch
	dst.RowCount = rowCount

	return dst.Validate()
}

func reuseBytes(dst []byte, src []byte) []byte {
	if src == nil {
		return dst[:0]
	}
	if cap(dst) >= len(src) {
		dst = dst[:len(src)]
	} else {
		dst = make([]byte, len(src))
	}
	copy(dst, src)

	return dst
}

func reuseU32(dst []uint32, src []uint32) []uint32 {
	if src == nil {
		return dst[:0]
	}
	if cap(dst) >= len(src) {
		dst = dst[:len(src)]
	} else {
		dst = make([]uint32, len(src))
	}
	copy(dst, src)

	return dst
}

func decodeEnvelope(src []byte, ws *DecodeWorkspace) (schema.Schema, int, []batch.Column, error) {
	r := newReader(src)

	magic, err := r.readBytes(8)
	if err != nil {
		return schema.Schema{}, 0, nil, err
	}
	if string(magic) != Magic {
		return schema.Schema{}, 0, nil, fmt.Errorf("%w: got %q", errs.ErrBadMagic, magic)
	}

	version, err := r.readU16()
	if err != nil {
		return schema.Schema{}, 0, nil, err
	}
	if version != Version {
		return schema.Schema{}, 0, nil, fmt.Errorf("%w: version %d", errs.ErrUnsupportedVersion, version)
	}

	reserved, err := r.readU16()
	if err != nil {
		return schema.Schema{}, 0, nil, err
	}
	if reserved != 0 {
		return schema.Schema{}, 0, nil, fmt.Errorf("%w: reserved field is non-zero", errs.ErrMalformed)
	}

	rowCountU32, err := r.readU32()
	if err != nil {
		return schema.Schema{}, 0, nil, err
	}
	colCountU32, err := r.readU32()
	if err != nil {
		return schema.Schema{}, 0, nil, err
	}
	rowCount := int(rowCountU32)
	colCount := int(colCountU32)

	prealloc := colCount
	if prealloc > 64 {
		prealloc = 64
	}
	fields := make([]schema.Field, 0, prealloc)
	columns := make([]batch.Column, 0, prealloc)
	seen := make(map[string]struct{}, prealloc)

	for i := 0; i < colCount; i++ {
		f, col, err := decodeColumnDescriptor(r, rowCount, seen, ws)
		if err != nil {
			return schema.Schema{}, 0, nil, fmt.Errorf("column %d: %w", i, err)
		}
		fields = append(fields, f)
		columns = append(columns, col)
	}

	if r.remaining() != 0 {
		return schema.Schema{}, 0, nil, fmt.Errorf("%w: %d trailing bytes after last column", errs.ErrMalformed, r.remaining())
	}

	sch, err := schema.New(fields)
	if err != nil {
		return schema.Schema{}, 0, nil, err
	}

	return sch, rowCount, columns, nil
}

func decodeColumnDescriptor(r *reader, rowCount int, seen map[string]struct{}, ws *DecodeWorkspace) (schema.Field, batch.Column, error) {
	nameLen, err := r.readU32()
	if err != nil {
		return schema.Field{}, batch.Column{}, err
	}
	nameBytes, err := r.readBytes(int(nameLen))
	if err != nil {
		return schema.Field{}, batch.Column{}, err
	}
	if len(nameBytes) == 0 {
		return schema.Field{}, batch.Column{}, fmt.Errorf("%w: empty field name", errs.ErrBadSchema)
	}
	if !utf8.Valid(nameBytes) {
		return schema.Field{}, batch.Column{}, fmt.Errorf("%w: field name is not valid UTF-8", errs.ErrBadSchema)
	}
	name := string(nameBytes)
	if _, dup := seen[name]; dup {
		return schema.Field{}, batch.Column{}, fmt.Errorf("%w: duplicate field name %q", errs.ErrBadSchema, name)
	}
	seen[name] = struct{}{}

	typeTag, err := r.readU8()
	if err != nil {
		return schema.Field{}, batch.Column{}, err
	}
	lt, err := schema.ParseLogicalType(typeTag)
	if err != nil {
		return schema.Field{}, batch.Column{}, err
	}

	nullableByte, err := r.readU8()
	if err != nil {
		return schema.Field{}, batch.Column{}, err
	}
	if nullableByte > 1 {
		return schema.Field{}, batch.Column{}, fmt.Errorf("%w: nullable byte %d is not 0/1", errs.ErrMalformed, nullableByte)
	}

	encodingID, err := r.readU8()
	if err != nil {
		return schema.Field{}, batch.Column{}, err
	}

	payloadLen, err := r.readU32()
	if err != nil {
		return schema.Field{}, batch.Column{}, err
	}
	payload, err := r.readBytes(int(payloadLen))
	if err != nil {
		return schema.Field{}, batch.Column{}, err
	}

	col, err := decodeColumnPayload(ws, lt, encodingID, payload, rowCount)
	if err != nil {
		return schema.Field{}, batch.Column{}, err
	}

	return schema.Field{Name: name, Type: lt, Nullable: nullableByte == 1}, col, nil
}

func decodeColumnPayload(ws *DecodeWorkspace, lt schema.LogicalType, encodingID uint8, payload []byte, rowCount int) (batch.Column, error) {
	switch encodingID {
	case EncodingPlain:
		if lt.IsFixedWidth() {
			return decodePlainFixed(lt, payload, rowCount)
		}

		return decodePlainVarlen(ws, lt, payload, rowCount)
	case EncodingDictUtf8:
		if !lt.IsText() {
			return batch.Column{}, fmt.Errorf("%w: DictUtf8 on non-text type %s", errs.ErrMalformed, lt)
		}

		return decodeDictUtf8(ws, lt, payload, rowCount)
	case EncodingDeltaVarintI64:
		if lt != schema.I64 && lt != schema.TimestampTzMicros {
			return batch.Column{}, fmt.Errorf("%w: DeltaVarintI64 on type %s", errs.ErrMalformed, lt)
		}

		return decodeDeltaVarintI64(ws, lt, payload, rowCount)
	default:
		return batch.Column{}, fmt.Errorf("%w: encoding id %d", errs.ErrUnsupportedEncoding, encodingID)
	}
}

func decodeValidity(pr *reader, rowCount int) ([]byte, error) {
	n := (rowCount + 7) / 8
	v, err := pr.readBytes(n)
	if err != nil {
		return nil, err
	}
	if rem := rowCount % 8; rem != 0 && n > 0 {
		mask := byte(1<<uint(rem)) - 1
		if v[n-1]&^mask != 0 {
			return nil, fmt.Errorf("%w: validity bitmap has non-zero trailing bits", errs.ErrMalformed)
		}
	}

	return v, nil
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)

	return out
}

func decodePlainFixed(lt schema.LogicalType, payload []byte, rowCount int) (batch.Column, error) {
	pr := newReader(payload)
	validity, err := decodeValidity(pr, rowCount)
	if err != nil {
		return batch.Column{}, err
	}
	values, err := pr.readBytes(rowCount * lt.Width())
	if err != nil {
		return batch.Column{}, err
	}
	if pr.remaining() != 0 {
		return batch.Column{}, fmt.Errorf("%w: trailing bytes in fixed column payload", errs.ErrMalformed)
	}

	return batch.NewFixedColumn(lt, copyBytes(validity), copyBytes(values)), nil
}

func decodeOffsets(ws *DecodeWorkspace, pr *reader, count int) ([]uint32, error) {
	if count < 0 || count > pr.remaining()/4 {
		return nil, fmt.Errorf("%w: offsets count %d exceeds remaining payload bytes", errs.ErrTruncated, count)
	}

	offsets := ws.growOffsets(count)
	for i := range offsets {
		u, err := pr.readU32()
		if err != nil {
			return nil, err
		}
		offsets[i] = u
	}
	if len(offsets) > 0 && offsets[0] != 0 {
		return nil, fmt.Errorf("%w: offsets[0] must be 0", errs.ErrMalformed)
	}
	for i := 1; i < len(offsets); i++ {
		if offsets[i] < offsets[i-1] {
			return nil, fmt.Errorf("%w: offsets are not monotonically non-decreasing", errs.ErrMalformed)
		}
	}

	return offsets, nil
}

func decodePlainVarlen(ws *DecodeWorkspace, lt schema.LogicalType, payload []byte, rowCount int) (batch.Column, error) {
	pr := newReader(payload)
	validity, err := decodeValidity(pr, rowCount)
	if err != nil {
		return batch.Column{}, err
	}
	offsets, err := decodeOffsets(ws, pr, rowCount+1)
	if err != nil {
		return batch.Column{}, err
	}
	data, err := pr.readBytes(int(offsets[rowCount]))
	if err != nil {
		return batch.Column{}, err
	}
	if pr.remaining() != 0 {
		return batch.Column{}, fmt.Errorf("%w: trailing bytes in varlen column payload", errs.ErrMalformed)
	}
	if lt == schema.Utf8 && !utf8.Valid(data) {
		return batch.Column{}, fmt.Errorf("%w: column data is not valid UTF-8", errs.ErrBadUtf8)
	}

	return batch.NewVarColumn(lt, copyBytes(validity), append([]uint32(nil), offsets...), copyBytes(data)), nil
}

func decodeDictUtf8(ws *DecodeWorkspace, lt schema.LogicalType, payload []byte, rowCount int) (batch.Column, error) {
	pr := newReader(payload)
	validity, err := decodeValidity(pr, rowCount)
	if err != nil {
		return batch.Column{}, err
	}

	dictLenU32, err := pr.readU32()
	if err != nil {
		return batch.Column{}, err
	}
	dictLen := int(dictLenU32)

	dictOffsets, err := decodeOffsets(ws, pr, dictLen+1)
	if err != nil {
		return batch.Column{}, err
	}
	block, err := pr.readBytes(int(dictOffsets[dictLen]))
	if err != nil {
		return batch.Column{}, err
	}
	if lt == schema.Utf8 && !utf8.Valid(block) {
		return batch.Column{}, fmt.Errorf("%w: dictionary block is not valid UTF-8", errs.ErrBadUtf8)
	}

	// Materialize dictionary entries into ws.dict before dictOffsets (which
	// aliases ws.offsets) is overwritten by the row-offsets grow below.
	dict := ws.growDict(dictLen)
	for i := 0; i < dictLen; i++ {
		dict[i] = block[dictOffsets[i]:dictOffsets[i+1]]
	}

	// Each row's index costs at least one varint byte, so rowCount can never
	// legitimately exceed the bytes left in the payload; reject before
	// allocating the offsets slice below.
	if rowCount > pr.remaining() {
		return batch.Column{}, fmt.Errorf("%w: row count %d exceeds remaining payload bytes", errs.ErrTruncated, rowCount)
	}

	offsets := ws.growOffsets(rowCount + 1)
	offsets[0] = 0
	ws.values.Reset()
	for i := 0; i < rowCount; i++ {
		idx, err := pr.readUvarint()
		if err != nil {
			return batch.Column{}, err
		}

		if batch.Validity(validity).IsValid(i) {
			if idx >= uint64(dictLen) {
				return batch.Column{}, fmt.Errorf("%w: dictionary index %d out of range", errs.ErrMalformed, idx)
			}
			ws.values.MustWrite(dict[idx])
		}
		offsets[i+1] = uint32(ws.values.Len())
	}
	if pr.remaining() != 0 {
		return batch.Column{}, fmt.Errorf("%w: trailing bytes in DictUtf8 column payload", errs.ErrMalformed)
	}

	return batch.NewVarColumn(lt, copyBytes(validity), append([]uint32(nil), offsets...), copyBytes(ws.values.Bytes())), nil
}

func decodeDeltaVarintI64(ws *DecodeWorkspace, lt schema.LogicalType, payload []byte, rowCount int) (batch.Column, error) {
	pr := newReader(payload)
	marker, err := pr.readU8()
	if err != nil {
		return batch.Column{}, err
	}
	if marker != 0x01 {
		return batch.Column{}, fmt.Errorf("%w: DeltaVarintI64 missing all-valid marker", errs.ErrMalformed)
	}
	if rowCount > pr.remaining() {
		return batch.Column{}, fmt.Errorf("%w: row count %d exceeds remaining payload bytes", errs.ErrTruncated, rowCount)
	}

	ws.values.Reset()
	ws.values.ExtendOrGrow(rowCount * 8)
	values := ws.values.Bytes()

	var prev int64
	for i := 0; i < rowCount; i++ {
		delta, err := pr.readSignedVarint()
		if err != nil {
			return batch.Column{}, err
		}

		v := delta
		if i > 0 {
			v = prev + delta
		}
		binary.LittleEndian.PutUint64(values[i*8:i*8+8], uint64(v))
		prev = v
	}
	if pr.remaining() != 0 {
		return batch.Column{}, fmt.Errorf("%w: trailing bytes in DeltaVarintI64 column payload", errs.ErrMalformed)
	}

	return batch.NewFixedColumn(lt, batch.NewValidityAllValid(rowCount), copyBytes(values)), nil
}
