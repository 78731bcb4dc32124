package envelope

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathilde-trade/mathilde-binary-transport/batch"
	"github.com/mathilde-trade/mathilde-binary-transport/errs"
	"github.com/mathilde-trade/mathilde-binary-transport/schema"
)

func mustSchema(t *testing.T, fields ...schema.Field) schema.Schema {
	t.Helper()
	sch, err := schema.New(fields)
	require.NoError(t, err)

	return sch
}

// TestEncodeDecodeEmptyBatch checks an empty batch (row_count=0) encodes
// to a fixed header prefix and round-trips cleanly.
func TestEncodeDecodeEmptyBatch(t *testing.T) {
	sch := mustSchema(t, schema.Field{Name: "a", Type: schema.I32, Nullable: true})
	b, err := batch.New(sch, 0, []batch.Column{
		batch.NewFixedColumn(schema.I32, batch.NewValidityAllValid(0), nil),
	})
	require.NoError(t, err)

	out, err := Encode(b, nil)
	require.NoError(t, err)

	want := []byte("MATHLDBT")
	want = binary.LittleEndian.AppendUint16(want, 1)
	want = binary.LittleEndian.AppendUint16(want, 0)
	want = binary.LittleEndian.AppendUint32(want, 0)
	want = binary.LittleEndian.AppendUint32(want, 1)
	// descriptor: name_len=1, "a", type=I32, nullable=1, encoding=plain, payload_len=0
	want = binary.LittleEndian.AppendUint32(want, 1)
	want = append(want, 'a', uint8(schema.I32), 1, EncodingPlain)
	want = binary.LittleEndian.AppendUint32(want, 0)
	assert.Equal(t, want, out)

	decoded, err := Decode(out)
	require.NoError(t, err)
	assert.Equal(t, 0, decoded.RowCount)
	assert.True(t, sch.Equal(decoded.Schema))
}

// TestEncodeDecodeThreeRowI32WithNull checks a plain fixed column with one
// null in the middle round-trips its values and validity bitmap.
func TestEncodeDecodeThreeRowI32WithNull(t *testing.T) {
	sch := mustSchema(t, schema.Field{Name: "a", Type: schema.I32, Nullable: true})
	values := make([]byte, 12)
	var v7, vNeg5 int32 = 7, -5
	binary.LittleEndian.PutUint32(values[0:4], uint32(v7))
	binary.LittleEndian.PutUint32(values[8:12], uint32(vNeg5))
	validity := batch.NewValidityAllInvalid(3)
	validity.Set(0, true)
	validity.Set(2, true)
	col := batch.NewFixedColumn(schema.I32, validity, values)

	b, err := batch.New(sch, 3, []batch.Column{col})
	require.NoError(t, err)

	out, err := Encode(b, nil)
	require.NoError(t, err)

	decoded, err := Decode(out)
	require.NoError(t, err)
	assert.True(t, decoded.Columns[0].Validity.IsValid(0))
	assert.False(t, decoded.Columns[0].Validity.IsValid(1))
	assert.True(t, decoded.Columns[0].Validity.IsValid(2))
	assert.Equal(t, int32(7), int32(binary.LittleEndian.Uint32(decoded.Columns[0].Values[0:4])))
	assert.Equal(t, int32(-5), int32(binary.LittleEndian.Uint32(decoded.Columns[0].Values[8:12])))
}

func repeatedUtf8Batch(t *testing.T, values []string) (schema.Schema, batch.Batch) {
	t.Helper()
	sch := mustSchema(t, schema.Field{Name: "s", Type: schema.Utf8})
	offsets := make([]uint32, len(values)+1)
	var data []byte
	for i, v := range values {
		data = append(data, v...)
		offsets[i+1] = uint32(len(data))
	}
	col := batch.NewVarColumn(schema.Utf8, batch.NewValidityAllValid(len(values)), offsets, data)
	b, err := batch.New(sch, len(values), []batch.Column{col})
	require.NoError(t, err)

	return sch, b
}

// TestDictUtf8DictionaryDeterminism checks the dictionary is built in
// first-appearance order and that two independent encoder instances
// produce byte-identical output for the same input.
func TestDictUtf8DictionaryDeterminism(t *testing.T) {
	_, b := repeatedUtf8Batch(t, []string{"alpha", "beta", "alpha", "alpha", "beta"})

	ws1 := NewEncodeWorkspace(WithDictUtf8())
	out1, err := EncodeOpt(b, nil, ws1)
	require.NoError(t, err)

	ws2 := NewEncodeWorkspace()
	ws2.SetEnableDictUtf8(true)
	out2, err := EncodeOpt(b, nil, ws2)
	require.NoError(t, err)

	assert.Equal(t, out1, out2)

	decoded, err := Decode(out1)
	require.NoError(t, err)
	got := []string{}
	col := decoded.Columns[0]
	for i := 0; i < decoded.RowCount; i++ {
		got = append(got, string(col.Data[col.Offsets[i]:col.Offsets[i+1]]))
	}
	assert.Equal(t, []string{"alpha", "beta", "alpha", "alpha", "beta"}, got)
}

func i64Batch(t *testing.T, values []int64) (schema.Schema, batch.Batch) {
	t.Helper()
	sch := mustSchema(t, schema.Field{Name: "v", Type: schema.I64})
	buf := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[i*8:i*8+8], uint64(v))
	}
	col := batch.NewFixedColumn(schema.I64, batch.NewValidityAllValid(len(values)), buf)
	b, err := batch.New(sch, len(values), []batch.Column{col})
	require.NoError(t, err)

	return sch, b
}

// TestDeltaVarintI64Selection checks that enabling the flag selects
// encoding id 3 and produces a smaller payload, while disabling it falls
// back to plain fixed; both round-trip to the same values.
func TestDeltaVarintI64Selection(t *testing.T) {
	_, b := i64Batch(t, []int64{1000, 1005, 1002, 2_000_000_000})

	plain, err := Encode(b, nil)
	require.NoError(t, err)

	ws := NewEncodeWorkspace(WithDeltaVarintI64())
	delta, err := EncodeOpt(b, nil, ws)
	require.NoError(t, err)

	assert.NotEqual(t, plain, delta)
	assert.Less(t, len(delta), len(plain))

	for _, encoded := range [][]byte{plain, delta} {
		decoded, err := Decode(encoded)
		require.NoError(t, err)
		got := make([]int64, decoded.RowCount)
		for i := range got {
			got[i] = int64(binary.LittleEndian.Uint64(decoded.Columns[0].Values[i*8 : i*8+8]))
		}
		assert.Equal(t, []int64{1000, 1005, 1002, 2_000_000_000}, got)
	}
}

// TestDeltaVarintI64IneligibleWithNulls verifies delta eligibility requires
// an all-valid column even when the flag is enabled.
func TestDeltaVarintI64IneligibleWithNulls(t *testing.T) {
	sch := mustSchema(t, schema.Field{Name: "v", Type: schema.I64, Nullable: true})
	buf := make([]byte, 16)
	validity := batch.NewValidityAllValid(2)
	validity.Set(1, false)
	col := batch.NewFixedColumn(schema.I64, validity, buf)
	b, err := batch.New(sch, 2, []batch.Column{col})
	require.NoError(t, err)

	ws := NewEncodeWorkspace(WithDeltaVarintI64())
	out, err := EncodeOpt(b, nil, ws)
	require.NoError(t, err)

	// The descriptor's encoding_id byte is fixed at a known offset for this
	// single-column schema: 8 (magic) + 2 + 2 + 4 + 4 (header) + 4 (name_len)
	// + 1 ("v") + 1 (type) + 1 (nullable) = 27.
	assert.Equal(t, EncodingPlain, out[27])
}

// TestAdversarialTruncation checks that removing the last byte of a valid
// envelope yields ErrTruncated.
func TestAdversarialTruncation(t *testing.T) {
	_, b := i64Batch(t, []int64{1, 2, 3})
	out, err := Encode(b, nil)
	require.NoError(t, err)

	_, err = Decode(out[:len(out)-1])
	require.ErrorIs(t, err, errs.ErrTruncated)
}

// TestAdversarialOffsets checks a non-monotonic offsets array yields
// ErrMalformed.
func TestAdversarialOffsets(t *testing.T) {
	// Bypass batch.New's own validation (which would already reject a
	// non-monotonic offsets array) by building the column payload bytes
	// directly, mirroring how a corrupted envelope on the wire would look
	// to the decoder.
	validity := batch.NewValidityAllValid(2)
	var payload []byte
	payload = append(payload, validity...)
	payload = binary.LittleEndian.AppendUint32(payload, 0)
	payload = binary.LittleEndian.AppendUint32(payload, 3)
	payload = binary.LittleEndian.AppendUint32(payload, 2)
	payload = append(payload, "ab"...)

	var out []byte
	out = append(out, "MATHLDBT"...)
	out = binary.LittleEndian.AppendUint16(out, 1)
	out = binary.LittleEndian.AppendUint16(out, 0)
	out = binary.LittleEndian.AppendUint32(out, 2)
	out = binary.LittleEndian.AppendUint32(out, 1)
	out = binary.LittleEndian.AppendUint32(out, uint32(len("s")))
	out = append(out, "s"...)
	out = append(out, uint8(schema.Utf8), 0, EncodingPlain)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(payload)))
	out = append(out, payload...)

	_, err := Decode(out)
	require.ErrorIs(t, err, errs.ErrMalformed)
}

func TestDecodeRejectsBadMagicVersionAndReserved(t *testing.T) {
	_, b := i64Batch(t, []int64{1})
	out, err := Encode(b, nil)
	require.NoError(t, err)

	bad := append([]byte(nil), out...)
	bad[0] = 'X'
	_, err = Decode(bad)
	require.ErrorIs(t, err, errs.ErrBadMagic)

	bad = append([]byte(nil), out...)
	binary.LittleEndian.PutUint16(bad[8:10], 2)
	_, err = Decode(bad)
	require.ErrorIs(t, err, errs.ErrUnsupportedVersion)

	bad = append([]byte(nil), out...)
	binary.LittleEndian.PutUint16(bad[10:12], 1)
	_, err = Decode(bad)
	require.ErrorIs(t, err, errs.ErrMalformed)
}

func TestDecodeRejectsTrailingBytes(t *testing.T) {
	_, b := i64Batch(t, []int64{1})
	out, err := Encode(b, nil)
	require.NoError(t, err)

	_, err = Decode(append(out, 0x00))
	require.ErrorIs(t, err, errs.ErrMalformed)
}

// TestDeterminismFreshVsReusedWorkspace checks encoding the same batch with
// a fresh workspace, a reused workspace, and a workspace that encoded an
// unrelated batch first all produce identical bytes.
func TestDeterminismFreshVsReusedWorkspace(t *testing.T) {
	_, b := repeatedUtf8Batch(t, []string{"x", "y", "x"})

	ws := NewEncodeWorkspace(WithDictUtf8())
	first, err := EncodeOpt(b, nil, ws)
	require.NoError(t, err)

	// Reuse the same workspace for an unrelated encode in between.
	_, other := repeatedUtf8Batch(t, []string{"p", "q"})
	_, err = EncodeOpt(other, nil, ws)
	require.NoError(t, err)

	second, err := EncodeOpt(b, nil, ws)
	require.NoError(t, err)

	fresh := NewEncodeWorkspace(WithDictUtf8())
	third, err := EncodeOpt(b, nil, fresh)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, first, third)
}

// TestFastPathByteEquivalence checks the fast path over a batch view
// produces bytes identical to the owned-batch path.
func TestFastPathByteEquivalence(t *testing.T) {
	_, b := i64Batch(t, []int64{10, 20, 30})
	ws := NewEncodeWorkspace(WithDeltaVarintI64())

	owned, err := EncodeOpt(b, nil, ws)
	require.NoError(t, err)

	ws.reset()
	fast, err := EncodeFastPathOpt(b.View(), nil, ws)
	require.NoError(t, err)

	assert.Equal(t, owned, fast)
}

// TestDecodeIntoEquivalence checks DecodeInto produces a batch semantically
// equal to Decode, for a batch with one DictUtf8-encoded column, and that
// reusing the destination's existing buffers on a second call still
// converges to the same result.
func TestDecodeIntoEquivalence(t *testing.T) {
	_, b := repeatedUtf8Batch(t, []string{"alpha", "beta", "alpha"})
	ws := NewEncodeWorkspace(WithDictUtf8())
	out, err := EncodeOpt(b, nil, ws)
	require.NoError(t, err)

	want, err := Decode(out)
	require.NoError(t, err)

	var dst batch.Batch
	require.NoError(t, DecodeInto(out, &dst))

	assert.Equal(t, want.RowCount, dst.RowCount)
	assert.True(t, want.Schema.Equal(dst.Schema))
	assert.Equal(t, want.Columns, dst.Columns)

	// Reusing dst's existing buffers on a second call must still converge.
	require.NoError(t, DecodeInto(out, &dst))
	assert.Equal(t, want.Columns, dst.Columns)
}

// TestDecodeWorkspaceReuseAcrossVaryingShapes checks that reusing one
// DecodeWorkspace across a DictUtf8 batch, a larger plain-varlen batch, a
// DeltaVarintI64 batch, and back to a smaller DictUtf8 batch never leaks
// stale scratch contents into the decoded result.
func TestDecodeWorkspaceReuseAcrossVaryingShapes(t *testing.T) {
	_, dictBatch := repeatedUtf8Batch(t, []string{"alpha", "beta", "alpha"})
	ews := NewEncodeWorkspace(WithDictUtf8())
	dictOut, err := EncodeOpt(dictBatch, nil, ews)
	require.NoError(t, err)

	_, plainBatch := repeatedUtf8Batch(t, []string{"one", "two", "three", "four", "five", "six"})
	plainOut, err := Encode(plainBatch, nil)
	require.NoError(t, err)

	_, deltaBatch := i64Batch(t, []int64{5, 6, 7, 100, 4})
	ews2 := NewEncodeWorkspace(WithDeltaVarintI64())
	deltaOut, err := EncodeOpt(deltaBatch, nil, ews2)
	require.NoError(t, err)

	_, smallDictBatch := repeatedUtf8Batch(t, []string{"x"})
	smallDictOut, err := EncodeOpt(smallDictBatch, nil, ews)
	require.NoError(t, err)

	dws := NewDecodeWorkspace()

	decodedDict, err := DecodeOpt(dictOut, dws)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta", "alpha"}, utf8Values(decodedDict.Columns[0]))

	decodedPlain, err := DecodeOpt(plainOut, dws)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "three", "four", "five", "six"}, utf8Values(decodedPlain.Columns[0]))

	decodedDelta, err := DecodeOpt(deltaOut, dws)
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 6, 7, 100, 4}, i64Values(decodedDelta.Columns[0]))

	decodedSmallDict, err := DecodeOpt(smallDictOut, dws)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, utf8Values(decodedSmallDict.Columns[0]))

	// A completely fresh workspace must produce the same decoded values.
	fresh, err := Decode(smallDictOut)
	require.NoError(t, err)
	assert.Equal(t, decodedSmallDict.Columns, fresh.Columns)
}

func utf8Values(col batch.Column) []string {
	out := make([]string, len(col.Offsets)-1)
	for i := range out {
		out[i] = string(col.Data[col.Offsets[i]:col.Offsets[i+1]])
	}

	return out
}

func i64Values(col batch.Column) []int64 {
	out := make([]int64, len(col.Values)/8)
	for i := range out {
		out[i] = int64(binary.LittleEndian.Uint64(col.Values[i*8 : i*8+8]))
	}

	return out
}

func TestDecodeDictUtf8RejectsOutOfRangeIndex(t *testing.T) {
	_, b := repeatedUtf8Batch(t, []string{"alpha", "beta"})
	ws := NewEncodeWorkspace(WithDictUtf8())
	out, err := EncodeOpt(b, nil, ws)
	require.NoError(t, err)

	// Corrupt the last index byte (a single-byte varint since dict_len=2)
	// to point past the dictionary.
	out[len(out)-1] = 0x09
	_, err = Decode(out)
	require.ErrorIs(t, err, errs.ErrMalformed)
}

func boolColumn(vals ...bool) batch.Column {
	values := make([]byte, len(vals))
	for i, v := range vals {
		if v {
			values[i] = 1
		}
	}

	return batch.NewFixedColumn(schema.Bool, batch.NewValidityAllValid(len(vals)), values)
}

func f32Column(bits ...uint32) batch.Column {
	values := make([]byte, len(bits)*4)
	for i, b := range bits {
		binary.LittleEndian.PutUint32(values[i*4:i*4+4], b)
	}

	return batch.NewFixedColumn(schema.F32, batch.NewValidityAllValid(len(bits)), values)
}

func f64Column(bits ...uint64) batch.Column {
	values := make([]byte, len(bits)*8)
	for i, b := range bits {
		binary.LittleEndian.PutUint64(values[i*8:i*8+8], b)
	}

	return batch.NewFixedColumn(schema.F64, batch.NewValidityAllValid(len(bits)), values)
}

func i64FixedColumn(lt schema.LogicalType, vals ...int64) batch.Column {
	values := make([]byte, len(vals)*8)
	for i, v := range vals {
		binary.LittleEndian.PutUint64(values[i*8:i*8+8], uint64(v))
	}

	return batch.NewFixedColumn(lt, batch.NewValidityAllValid(len(vals)), values)
}

func varlenColumn(lt schema.LogicalType, vals ...string) batch.Column {
	offsets := make([]uint32, len(vals)+1)
	var data []byte
	for i, v := range vals {
		data = append(data, v...)
		offsets[i+1] = uint32(len(data))
	}

	return batch.NewVarColumn(lt, batch.NewValidityAllValid(len(vals)), offsets, data)
}

// TestRoundTripAllLogicalTypes checks every one of the eight logical types
// round-trips through Encode/Decode unchanged, one column per type.
func TestRoundTripAllLogicalTypes(t *testing.T) {
	sch := mustSchema(t,
		schema.Field{Name: "b", Type: schema.Bool},
		schema.Field{Name: "i32", Type: schema.I32},
		schema.Field{Name: "i64", Type: schema.I64},
		schema.Field{Name: "f32", Type: schema.F32},
		schema.Field{Name: "f64", Type: schema.F64},
		schema.Field{Name: "ts", Type: schema.TimestampTzMicros},
		schema.Field{Name: "s", Type: schema.Utf8},
		schema.Field{Name: "j", Type: schema.JsonbText},
	)

	i32Values := make([]byte, 12)
	var i32Neg1, i32Zero, i32FortyTwo int32 = -1, 0, 42
	binary.LittleEndian.PutUint32(i32Values[0:4], uint32(i32Neg1))
	binary.LittleEndian.PutUint32(i32Values[4:8], uint32(i32Zero))
	binary.LittleEndian.PutUint32(i32Values[8:12], uint32(i32FortyTwo))

	columns := []batch.Column{
		boolColumn(true, false, true),
		batch.NewFixedColumn(schema.I32, batch.NewValidityAllValid(3), i32Values),
		i64FixedColumn(schema.I64, -1, 0, math.MaxInt32+1),
		f32Column(math.Float32bits(3.5), math.Float32bits(-0.0), math.Float32bits(0)),
		f64Column(math.Float64bits(2.5), math.Float64bits(-0.0), math.Float64bits(0)),
		i64FixedColumn(schema.TimestampTzMicros, 1_700_000_000_000_000, 0, -1),
		varlenColumn(schema.Utf8, "hello", "", "wörld"),
		varlenColumn(schema.JsonbText, `{"a":1}`, `[]`, `null`),
	}

	b, err := batch.New(sch, 3, columns)
	require.NoError(t, err)

	out, err := Encode(b, nil)
	require.NoError(t, err)

	decoded, err := Decode(out)
	require.NoError(t, err)
	require.True(t, sch.Equal(decoded.Schema))
	require.Equal(t, 3, decoded.RowCount)

	for i, want := range columns {
		got := decoded.Columns[i]
		assert.Equalf(t, want.Validity, got.Validity, "column %d validity", i)
		switch sch.Fields()[i].Type {
		case schema.Utf8, schema.JsonbText:
			assert.Equalf(t, want.Offsets, got.Offsets, "column %d offsets", i)
			assert.Equalf(t, want.Data, got.Data, "column %d data", i)
		default:
			assert.Equalf(t, want.Values, got.Values, "column %d values", i)
		}
	}
}

// TestRoundTripFloatNaNBitPatterns checks that F32/F64 NaN payloads survive
// Encode/Decode bit-for-bit, not merely as "some NaN": different NaN bit
// patterns compare equal under IEEE754 float equality but must not be
// collapsed to a single canonical NaN by the codec.
func TestRoundTripFloatNaNBitPatterns(t *testing.T) {
	sch := mustSchema(t,
		schema.Field{Name: "f32", Type: schema.F32},
		schema.Field{Name: "f64", Type: schema.F64},
	)

	const (
		f32QuietNaN    = 0x7fc00001
		f32SignalNaN   = 0xffa00001
		f64QuietNaN    = 0x7ff8000000000001
		f64NegativeNaN = 0xfff0000000000001
	)

	columns := []batch.Column{
		f32Column(f32QuietNaN, f32SignalNaN),
		f64Column(f64QuietNaN, f64NegativeNaN),
	}

	b, err := batch.New(sch, 2, columns)
	require.NoError(t, err)

	out, err := Encode(b, nil)
	require.NoError(t, err)

	decoded, err := Decode(out)
	require.NoError(t, err)

	assert.Equal(t, columns[0].Values, decoded.Columns[0].Values, "f32 NaN bit patterns must be preserved exactly")
	assert.Equal(t, columns[1].Values, decoded.Columns[1].Values, "f64 NaN bit patterns must be preserved exactly")

	gotF32a := math.Float32frombits(binary.LittleEndian.Uint32(decoded.Columns[0].Values[0:4]))
	gotF32b := math.Float32frombits(binary.LittleEndian.Uint32(decoded.Columns[0].Values[4:8]))
	assert.True(t, math.IsNaN(float64(gotF32a)))
	assert.True(t, math.IsNaN(float64(gotF32b)))

	gotF64a := math.Float64frombits(binary.LittleEndian.Uint64(decoded.Columns[1].Values[0:8]))
	gotF64b := math.Float64frombits(binary.LittleEndian.Uint64(decoded.Columns[1].Values[8:16]))
	assert.True(t, math.IsNaN(gotF64a))
	assert.True(t, math.IsNaN(gotF64b))
}
