package batch

import "github.com/mathilde-trade/mathilde-binary-transport/schema"

// View is a non-owning mirror of Batch with an identical column shape. It
// exists so the fast-path encoder can accept caller-owned buffers directly
// (for example bytes already produced by an upstream system) without a
// Batch copy in between. A View never allocates or mutates the memory it
// points into.
type View struct {
	Schema   schema.Schema
	RowCount int
	Columns  []Column
}

// NewView validates and constructs a View over caller-supplied column
// buffers. The buffers are used directly; the caller retains ownership and
// must not mutate them while the View is in use.
func NewView(sch schema.Schema, rowCount int, columns []Column) (View, error) {
	b, err := New(sch, rowCount, columns)
	if err != nil {
		return View{}, err
	}

	return b.View(), nil
}

// Validate checks the same invariants as Batch.Validate.
func (v View) Validate() error {
	return Batch(v).Validate()
}

// Owned copies a View into a fully owned Batch.
func (v View) Owned() Batch {
	return Batch(v).Clone()
}
