package nn

import (
	"testing"

	"github.com/born-ml/spacetodepth/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBlockGeometry(t *testing.T) {
	g, err := NewBlockGeometry(tensor.Shape{6, 4, 3}, 2)
	require.NoError(t, err)

	assert.Equal(t, 3, g.BlockHeight)
	assert.Equal(t, 2, g.BlockWidth)
	assert.Equal(t, 8, g.BlockRowSurface)
	assert.Equal(t, 12, g.BlockChannels())
	assert.Equal(t, tensor.Shape{6, 4, 3}, g.InputShape())
	assert.Equal(t, tensor.Shape{3, 2, 12}, g.OutputShape())
}

func TestNewBlockGeometry_ShapeLaw(t *testing.T) {
	for _, shape := range []tensor.Shape{{2, 2, 1}, {4, 8, 3}, {12, 6, 5}} {
		for _, b := range []int{1, 2} {
			g, err := NewBlockGeometry(shape, b)
			require.NoError(t, err)
			out := g.OutputShape()
			assert.Equal(t, shape[0]/b, out[0])
			assert.Equal(t, shape[1]/b, out[1])
			assert.Equal(t, shape[2]*b*b, out[2])
			assert.Equal(t, shape.NumElements(), out.NumElements())
		}
	}
}

func TestNewBlockGeometry_Errors(t *testing.T) {
	tests := []struct {
		name  string
		shape tensor.Shape
		b     int
	}{
		{"zero block", tensor.Shape{4, 4, 1}, 0},
		{"negative block", tensor.Shape{4, 4, 1}, -2},
		{"height", tensor.Shape{5, 4, 1}, 2},
		{"width", tensor.Shape{4, 6, 1}, 4},
		{"rank", tensor.Shape{4, 4}, 2},
		{"zero dim", tensor.Shape{4, 0, 1}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBlockGeometry(tt.shape, tt.b)
			assert.Error(t, err)
		})
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{
		"":              ChannelMajor,
		"CRD":           ChannelMajor,
		"channel_major": ChannelMajor,
		"dcr":           BlockMajor,
		" DCR ":         BlockMajor,
		"block_major":   BlockMajor,
	} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseMode("diagonal")
	assert.Error(t, err)
	assert.Equal(t, "CRD", ChannelMajor.String())
	assert.Equal(t, "DCR", BlockMajor.String())
}
