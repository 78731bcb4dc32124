package mathldbt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mathilde-trade/mathilde-binary-transport/batch"
	"github.com/mathilde-trade/mathilde-binary-transport/schema"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	sch, err := NewSchema(schema.Field{Name: "id", Type: schema.I32, Nullable: false})
	require.NoError(t, err)

	col := batch.NewFixedColumn(schema.I32, batch.NewValidityAllValid(2), make([]byte, 8))
	b, err := batch.New(sch, 2, []batch.Column{col})
	require.NoError(t, err)

	encoded, err := Encode(b)
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, b.RowCount, decoded.RowCount)
}

func TestEncodeDecodeWithWorkspace(t *testing.T) {
	sch, err := NewSchema(schema.Field{Name: "id", Type: schema.I32})
	require.NoError(t, err)
	col := batch.NewFixedColumn(schema.I32, batch.NewValidityAllValid(1), make([]byte, 4))
	b, err := batch.New(sch, 1, []batch.Column{col})
	require.NoError(t, err)

	ews := NewEncodeWorkspace()
	encoded, err := EncodeWithWorkspace(b, ews)
	require.NoError(t, err)

	dws := NewDecodeWorkspace()
	decoded, err := DecodeWithWorkspace(encoded, dws)
	require.NoError(t, err)
	require.Equal(t, 1, decoded.RowCount)
}
