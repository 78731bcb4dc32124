// Package mathldbt provides the MATHLDBT v1 codec: a versioned, lossless,
// deterministic binary envelope for transporting in-memory columnar record
// batches. It wraps the schema, batch, and envelope packages with the
// convenience constructors most callers need; for fine-grained control
// (custom workspaces, the fast path, compression) use those packages
// directly.
//
// Basic usage:
//
//	sch, _ := mathldbt.NewSchema(
//	    schema.Field{Name: "id", Type: schema.I32, Nullable: false},
//	    schema.Field{Name: "name", Type: schema.Utf8, Nullable: true},
//	)
//	b, _ := batch.New(sch, rowCount, columns)
//	encoded, err := mathldbt.Encode(b)
//	decoded, err := mathldbt.Decode(encoded)
package mathldbt

import (
	"github.com/mathilde-trade/mathilde-binary-transport/batch"
	"github.com/mathilde-trade/mathilde-binary-transport/envelope"
	"github.com/mathilde-trade/mathilde-binary-transport/schema"
)

// NewSchema validates and constructs a Schema from an ordered field list.
func NewSchema(fields ...schema.Field) (schema.Schema, error) {
	return schema.New(fields)
}

// Encode appends a complete envelope for b to a fresh byte slice using the
// default encoding flags.
func Encode(b batch.Batch) ([]byte, error) {
	return envelope.Encode(b, nil)
}

// EncodeWithWorkspace is Encode using a caller-owned, reusable workspace.
func EncodeWithWorkspace(b batch.Batch, ws *envelope.EncodeWorkspace) ([]byte, error) {
	return envelope.EncodeOpt(b, nil, ws)
}

// Decode parses src into a freshly allocated Batch.
func Decode(src []byte) (batch.Batch, error) {
	return envelope.Decode(src)
}

// DecodeWithWorkspace is Decode using a caller-owned, reusable workspace.
func DecodeWithWorkspace(src []byte, ws *envelope.DecodeWorkspace) (batch.Batch, error) {
	return envelope.DecodeOpt(src, ws)
}

// NewEncodeWorkspace returns a workspace with both opt-in encodings
// disabled.
func NewEncodeWorkspace() *envelope.EncodeWorkspace {
	return envelope.NewEncodeWorkspace()
}

// NewDecodeWorkspace returns an empty, ready-to-use decode workspace.
func NewDecodeWorkspace() *envelope.DecodeWorkspace {
	return envelope.NewDecodeWorkspace()
}
