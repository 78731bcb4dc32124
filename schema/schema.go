// Package schema defines the closed set of logical column types and the
// ordered field list that describes a ColumnarBatch.
//
// Logical types are a closed tagged variant: dispatch throughout the codec
// is a switch on the LogicalType tag, never an open interface hierarchy.
package schema

import (
	"fmt"

	"github.com/mathilde-trade/mathilde-binary-transport/errs"
)

// LogicalType enumerates every column type the MATHLDBT wire format can
// carry. The numeric value is the on-wire tag written by the envelope
// writer; existing tags never change meaning.
type LogicalType uint8

const (
	Bool LogicalType = iota + 1
	I32
	I64
	F32
	F64
	TimestampTzMicros
	Utf8
	JsonbText
)

func (t LogicalType) String() string {
	switch t {
	case Bool:
		return "Bool"
	case I32:
		return "I32"
	case I64:
		return "I64"
	case F32:
		return "F32"
	case F64:
		return "F64"
	case TimestampTzMicros:
		return "TimestampTzMicros"
	case Utf8:
		return "Utf8"
	case JsonbText:
		return "JsonbText"
	default:
		return "Unknown"
	}
}

// IsFixedWidth reports whether the type is encoded as a fixed number of
// bytes per value (Width returns that count) or as a variable-length
// offsets+data payload.
func (t LogicalType) IsFixedWidth() bool {
	switch t {
	case Bool, I32, I64, F32, F64, TimestampTzMicros:
		return true
	default:
		return false
	}
}

// Width returns the per-value byte width of a fixed-width logical type.
// Calling Width on a variable-length type panics; callers must check
// IsFixedWidth first.
func (t LogicalType) Width() int {
	switch t {
	case Bool:
		return 1
	case I32, F32:
		return 4
	case I64, F64, TimestampTzMicros:
		return 8
	default:
		panic(fmt.Sprintf("schema: Width called on variable-length type %s", t))
	}
}

// IsText reports whether the type stores UTF-8 text, which is a
// prerequisite for the DictUtf8 opt-in encoding.
func (t LogicalType) IsText() bool {
	return t == Utf8 || t == JsonbText
}

// ParseLogicalType decodes a wire-format logical_type tag byte. Unknown tags
// return ErrUnsupportedEncoding.
func ParseLogicalType(tag uint8) (LogicalType, error) {
	t := LogicalType(tag)
	switch t {
	case Bool, I32, I64, F32, F64, TimestampTzMicros, Utf8, JsonbText:
		return t, nil
	default:
		return 0, fmt.Errorf("%w: logical type tag %d", errs.ErrUnsupportedEncoding, tag)
	}
}

// Field describes one column of a schema: its name, logical type, and
// whether it may contain absent (null) values.
type Field struct {
	Name     string
	Type     LogicalType
	Nullable bool
}

// Schema is an ordered, immutable sequence of fields. Field names must be
// non-empty and unique within the schema.
type Schema struct {
	fields []Field
}

// New validates and constructs a Schema from an ordered field list.
func New(fields []Field) (Schema, error) {
	if len(fields) == 0 {
		return Schema{}, fmt.Errorf("%w: schema must have at least one field", errs.ErrBadSchema)
	}
	if len(fields) > 0xFFFFFFFF {
		return Schema{}, fmt.Errorf("%w: field count exceeds u32", errs.ErrBadSchema)
	}

	seen := make(map[string]struct{}, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			return Schema{}, fmt.Errorf("%w: field %d has empty name", errs.ErrBadSchema, i)
		}
		if _, dup := seen[f.Name]; dup {
			return Schema{}, fmt.Errorf("%w: duplicate field name %q", errs.ErrBadSchema, f.Name)
		}
		seen[f.Name] = struct{}{}
	}

	out := make([]Field, len(fields))
	copy(out, fields)

	return Schema{fields: out}, nil
}

// Fields returns the ordered field list. The returned slice must not be
// mutated by the caller.
func (s Schema) Fields() []Field {
	return s.fields
}

// Len returns the number of fields in the schema.
func (s Schema) Len() int {
	return len(s.fields)
}

// Equal reports whether two schemas have the same fields in the same order.
func (s Schema) Equal(other Schema) bool {
	if len(s.fields) != len(other.fields) {
		return false
	}
	for i, f := range s.fields {
		g := other.fields[i]
		if f.Name != g.Name || f.Type != g.Type || f.Nullable != g.Nullable {
			return false
		}
	}

	return true
}
