// Package batch implements the in-memory ColumnarBatch data model: a schema
// plus a row count plus one column buffer (with its own validity bitmap)
// per schema field.
//
// A Column always stores its fixed-width values pre-encoded as little-endian
// bytes and its variable-length values as an offsets array plus a flat data
// buffer. This mirrors the MATHLDBT wire payload shape directly, so the
// envelope writer can bulk-copy a Column's buffers instead of re-encoding
// them value by value.
package batch

import (
	"fmt"
	"unicode/utf8"

	"github.com/mathilde-trade/mathilde-binary-transport/errs"
	"github.com/mathilde-trade/mathilde-binary-transport/schema"
)

// Validity is a validity bitmap: bit i set means row i is present. Byte
// length is always ceil(rowCount/8) and unused trailing bits in the final
// byte must be zero.
type Validity []byte

// NewValidityAllValid returns a validity bitmap with every row marked
// present.
func NewValidityAllValid(rowCount int) Validity {
	n := ceilDiv8(rowCount)
	v := make(Validity, n)
	for i := range v {
		v[i] = 0xFF
	}
	if rem := rowCount % 8; rem != 0 && n > 0 {
		v[n-1] = byte(1<<uint(rem)) - 1
	}

	return v
}

// NewValidityAllInvalid returns a validity bitmap with every row marked
// absent.
func NewValidityAllInvalid(rowCount int) Validity {
	return make(Validity, ceilDiv8(rowCount))
}

func ceilDiv8(n int) int {
	return (n + 7) / 8
}

// IsValid reports whether row is present.
func (v Validity) IsValid(row int) bool {
	byteIdx := row / 8
	if byteIdx >= len(v) {
		return false
	}

	return v[byteIdx]&(1<<uint(row%8)) != 0
}

// Set marks row present or absent.
func (v Validity) Set(row int, present bool) {
	byteIdx := row / 8
	mask := byte(1 << uint(row%8))
	if present {
		v[byteIdx] |= mask
	} else {
		v[byteIdx] &^= mask
	}
}

// validate checks the bitmap's length and trailing-bit invariants for the
// given row count.
func (v Validity) validate(rowCount int) error {
	want := ceilDiv8(rowCount)
	if len(v) != want {
		return fmt.Errorf("%w: validity bitmap length %d, want %d", errs.ErrInvalidBatch, len(v), want)
	}
	if want == 0 {
		return nil
	}
	if rem := rowCount % 8; rem != 0 {
		mask := byte(1<<uint(rem)) - 1
		if v[want-1]&^mask != 0 {
			return fmt.Errorf("%w: validity bitmap has non-zero trailing bits", errs.ErrInvalidBatch)
		}
	}

	return nil
}

// Column holds one field's data: a validity bitmap plus either a fixed-width
// value buffer or a variable-length offsets+data buffer, depending on the
// field's logical type.
type Column struct {
	Type     schema.LogicalType
	Validity Validity

	// Values holds n*Type.Width() little-endian bytes for fixed-width
	// types. Unused for variable-length types.
	Values []byte

	// Offsets holds n+1 monotonically non-decreasing byte offsets into
	// Data, for variable-length types. Unused for fixed-width types.
	Offsets []uint32
	// Data holds the concatenated bytes of every value in offset order,
	// for variable-length types. Unused for fixed-width types.
	Data []byte
}

// NewFixedColumn builds a fixed-width Column from a validity bitmap and a
// pre-encoded little-endian value buffer.
func NewFixedColumn(t schema.LogicalType, validity Validity, values []byte) Column {
	return Column{Type: t, Validity: validity, Values: values}
}

// NewVarColumn builds a variable-length Column from a validity bitmap, an
// offsets array, and a flat data buffer.
func NewVarColumn(t schema.LogicalType, validity Validity, offsets []uint32, data []byte) Column {
	return Column{Type: t, Validity: validity, Offsets: offsets, Data: data}
}

// validate checks a single column against its declared schema type and the
// batch's row count, per the invariants in the data model.
func (c Column) validate(fieldType schema.LogicalType, rowCount int) error {
	if c.Type != fieldType {
		return fmt.Errorf("%w: column type %s does not match schema type %s", errs.ErrInvalidBatch, c.Type, fieldType)
	}
	if err := c.Validity.validate(rowCount); err != nil {
		return err
	}

	if fieldType.IsFixedWidth() {
		want := rowCount * fieldType.Width()
		if len(c.Values) != want {
			return fmt.Errorf("%w: fixed column buffer length %d, want %d", errs.ErrInvalidBatch, len(c.Values), want)
		}

		return nil
	}

	wantOffsets := rowCount + 1
	if len(c.Offsets) != wantOffsets {
		return fmt.Errorf("%w: offsets length %d, want %d", errs.ErrInvalidBatch, len(c.Offsets), wantOffsets)
	}
	if rowCount == 0 {
		if len(c.Offsets) == 1 && c.Offsets[0] != 0 {
			return fmt.Errorf("%w: offsets[0] must be 0", errs.ErrInvalidBatch)
		}
		if len(c.Data) != 0 {
			return fmt.Errorf("%w: offsets[n]=0 does not match data buffer length %d", errs.ErrInvalidBatch, len(c.Data))
		}

		return nil
	}
	if c.Offsets[0] != 0 {
		return fmt.Errorf("%w: offsets[0] must be 0", errs.ErrInvalidBatch)
	}
	for i := 1; i < len(c.Offsets); i++ {
		if c.Offsets[i] < c.Offsets[i-1] {
			return fmt.Errorf("%w: offsets must be non-decreasing at index %d", errs.ErrInvalidBatch, i)
		}
	}
	if int(c.Offsets[rowCount]) != len(c.Data) {
		return fmt.Errorf("%w: offsets[n]=%d does not match data buffer length %d", errs.ErrInvalidBatch, c.Offsets[rowCount], len(c.Data))
	}

	if fieldType == schema.Utf8 {
		if !utf8.Valid(c.Data) {
			return fmt.Errorf("%w: Utf8 column data is not valid UTF-8", errs.ErrInvalidBatch)
		}
	}

	return nil
}

// Batch is a schema plus a row count plus one Column per field, in schema
// order. Batch exclusively owns its column buffers.
type Batch struct {
	Schema   schema.Schema
	RowCount int
	Columns  []Column
}

// New validates and constructs a Batch. The column slice is used directly
// (not copied); callers must not mutate it afterward.
func New(sch schema.Schema, rowCount int, columns []Column) (Batch, error) {
	b := Batch{Schema: sch, RowCount: rowCount, Columns: columns}
	if err := b.Validate(); err != nil {
		return Batch{}, err
	}

	return b, nil
}

// Validate checks every invariant in the data model: column count, per-column
// type/shape agreement with the schema, and (for Utf8) full-buffer UTF-8
// validity.
func (b Batch) Validate() error {
	fields := b.Schema.Fields()
	if len(b.Columns) != len(fields) {
		return fmt.Errorf("%w: %d columns, schema has %d fields", errs.ErrInvalidBatch, len(b.Columns), len(fields))
	}
	for i, f := range fields {
		if err := b.Columns[i].validate(f.Type, b.RowCount); err != nil {
			return fmt.Errorf("column %d (%q): %w", i, f.Name, err)
		}
	}

	return nil
}

// View returns a non-owning View over this batch's buffers, suitable for
// the fast-path encoder. The view aliases the batch's memory; the caller
// must not mutate the batch while a view derived from it is in use.
func (b Batch) View() View {
	return View{Schema: b.Schema, RowCount: b.RowCount, Columns: b.Columns}
}

// Clone deep-copies a Batch so it owns memory independent of its source.
func (b Batch) Clone() Batch {
	cols := make([]Column, len(b.Columns))
	for i, c := range b.Columns {
		nc := Column{Type: c.Type}
		if c.Validity != nil {
			nc.Validity = append(Validity(nil), c.Validity...)
		}
		if c.Values != nil {
			nc.Values = append([]byte(nil), c.Values...)
		}
		if c.Offsets != nil {
			nc.Offsets = append([]uint32(nil), c.Offsets...)
		}
		if c.Data != nil {
			nc.Data = append([]byte(nil), c.Data...)
		}
		cols[i] = nc
	}

	return Batch{Schema: b.Schema, RowCount: b.RowCount, Columns: cols}
}
