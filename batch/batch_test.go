package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathilde-trade/mathilde-binary-transport/errs"
	"github.com/mathilde-trade/mathilde-binary-transport/schema"
)

func TestValidityAllValidAndAllInvalid(t *testing.T) {
	v := NewValidityAllValid(10)
	require.Len(t, v, 2)
	for i := 0; i < 10; i++ {
		assert.True(t, v.IsValid(i))
	}
	// trailing 6 bits of the second byte must be zero
	assert.Equal(t, byte(0x03), v[1])

	inv := NewValidityAllInvalid(10)
	for i := 0; i < 10; i++ {
		assert.False(t, inv.IsValid(i))
	}
}

func TestValiditySet(t *testing.T) {
	v := NewValidityAllValid(3)
	v.Set(1, false)
	assert.True(t, v.IsValid(0))
	assert.False(t, v.IsValid(1))
	assert.True(t, v.IsValid(2))
}

func schemaWith(t *testing.T, fields ...schema.Field) schema.Schema {
	t.Helper()
	sch, err := schema.New(fields)
	require.NoError(t, err)

	return sch
}

func TestBatchNewValidatesColumnCount(t *testing.T) {
	sch := schemaWith(t, schema.Field{Name: "a", Type: schema.I32})
	_, err := New(sch, 1, nil)
	require.ErrorIs(t, err, errs.ErrInvalidBatch)
}

func TestBatchNewFixedColumnRoundTrip(t *testing.T) {
	sch := schemaWith(t, schema.Field{Name: "a", Type: schema.I32, Nullable: true})
	values := []byte{7, 0, 0, 0, 0, 0, 0, 0, 251, 255, 255, 255}
	col := NewFixedColumn(schema.I32, NewValidityAllValid(3), values)
	col.Validity.Set(1, false)

	b, err := New(sch, 3, []Column{col})
	require.NoError(t, err)
	assert.Equal(t, 3, b.RowCount)
	assert.True(t, b.Columns[0].Validity.IsValid(0))
	assert.False(t, b.Columns[0].Validity.IsValid(1))
}

func TestBatchNewRejectsWrongFixedWidthLength(t *testing.T) {
	sch := schemaWith(t, schema.Field{Name: "a", Type: schema.I32})
	col := NewFixedColumn(schema.I32, NewValidityAllValid(3), make([]byte, 4))
	_, err := New(sch, 3, []Column{col})
	require.ErrorIs(t, err, errs.ErrInvalidBatch)
}

func TestBatchNewValidatesVarlenOffsets(t *testing.T) {
	sch := schemaWith(t, schema.Field{Name: "s", Type: schema.Utf8})

	good := NewVarColumn(schema.Utf8, NewValidityAllValid(2), []uint32{0, 2, 4}, []byte("abcd"))
	_, err := New(sch, 2, []Column{good})
	require.NoError(t, err)

	badFirst := NewVarColumn(schema.Utf8, NewValidityAllValid(2), []uint32{1, 2, 4}, []byte("abcd"))
	_, err = New(sch, 2, []Column{badFirst})
	require.ErrorIs(t, err, errs.ErrInvalidBatch)

	nonMonotonic := NewVarColumn(schema.Utf8, NewValidityAllValid(2), []uint32{0, 3, 2}, []byte("abcd"))
	_, err = New(sch, 2, []Column{nonMonotonic})
	require.ErrorIs(t, err, errs.ErrInvalidBatch)

	badLast := NewVarColumn(schema.Utf8, NewValidityAllValid(2), []uint32{0, 2, 3}, []byte("abcd"))
	_, err = New(sch, 2, []Column{badLast})
	require.ErrorIs(t, err, errs.ErrInvalidBatch)
}

func TestBatchNewRejectsInvalidUtf8(t *testing.T) {
	sch := schemaWith(t, schema.Field{Name: "s", Type: schema.Utf8})
	col := NewVarColumn(schema.Utf8, NewValidityAllValid(1), []uint32{0, 2}, []byte{0xff, 0xfe})
	_, err := New(sch, 1, []Column{col})
	require.ErrorIs(t, err, errs.ErrInvalidBatch)
}

func TestBatchViewAndClone(t *testing.T) {
	sch := schemaWith(t, schema.Field{Name: "a", Type: schema.I32})
	col := NewFixedColumn(schema.I32, NewValidityAllValid(1), []byte{1, 0, 0, 0})
	b, err := New(sch, 1, []Column{col})
	require.NoError(t, err)

	v := b.View()
	assert.NoError(t, v.Validate())

	clone := b.Clone()
	clone.Columns[0].Values[0] = 9
	assert.Equal(t, byte(1), b.Columns[0].Values[0])
}
