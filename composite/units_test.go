package composite

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRVP6ToDBZ(t *testing.T) {
	assert.InDelta(t, -32.5, RVP6ToDBZ(0), 1e-9)
	assert.InDelta(t, 0, RVP6ToDBZ(65), 1e-9)
	assert.InDelta(t, 92.0, RVP6ToDBZ(249), 1e-9)
}

func TestGrid_Physical(t *testing.T) {
	t.Run("flagged uses precision", func(t *testing.T) {
		data := buildComposite("RW", 1, 3, 6, "", words(12, 0x2005, 7))
		grid, meta, err := Decode(bytes.NewReader(data), -1, true)
		require.NoError(t, err)

		out, err := grid.Physical(meta, -9999)
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float64{1.2, -9999, 0.7}, out, 1e-9)
	})

	t.Run("bytes use rvp6", func(t *testing.T) {
		data := buildComposite("RX", 1, 3, 3, "", []byte{65, 250, 0})
		grid, meta, err := Decode(bytes.NewReader(data), -1, true)
		require.NoError(t, err)

		out, err := grid.Physical(meta, -9999)
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float64{0, -9999, -32.5}, out, 1e-9)
	})
}

func TestGrid_Scaled(t *testing.T) {
	g := &Grid{Rows: 1, Cols: 2, Data: []int32{10, -3}}
	assert.InDeltaSlice(t, []float64{1, -0.3}, g.Scaled(0.1), 1e-9)
	assert.Equal(t, int32(-3), g.At(0, 1))
}
