package nn

import (
	"errors"
	"testing"

	"github.com/born-ml/spacetodepth/internal/backend/cpu"
	"github.com/born-ml/spacetodepth/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDepthToSpace_Example(t *testing.T) {
	acc := cpu.New()
	layer, err := NewDepthToSpace(Config{BlockSize: 2}, acc)
	require.NoError(t, err)
	defer layer.Release()

	x, err := tensor.FromSlice([]float32{0, 1, 4, 5, 2, 3, 6, 7, 8, 9, 12, 13, 10, 11, 14, 15}, tensor.Shape{2, 2, 4})
	require.NoError(t, err)
	defer x.Release()

	y, err := layer.Call(x)
	require.NoError(t, err)
	defer y.Release()

	assert.Equal(t, tensor.Shape{4, 4, 1}, y.Shape())
	want := make([]float32, 16)
	for i := range want {
		want[i] = float32(i)
	}
	assert.Equal(t, want, values(t, y))
}

func TestDepthToSpace_InvertsSpaceToDepth(t *testing.T) {
	tests := []struct {
		shape tensor.Shape
		b     int
		mode  Mode
	}{
		{tensor.Shape{4, 4, 1}, 2, ChannelMajor},
		{tensor.Shape{6, 4, 3}, 2, ChannelMajor},
		{tensor.Shape{6, 4, 3}, 2, BlockMajor},
		{tensor.Shape{9, 3, 2}, 3, BlockMajor},
	}
	for _, tt := range tests {
		s2d := newS2D(t, Config{BlockSize: tt.b, Mode: tt.mode, HostFallback: true}, nil)
		d2s, err := NewDepthToSpace(Config{BlockSize: tt.b, Mode: tt.mode, HostFallback: true}, nil)
		require.NoError(t, err)

		x := arange(t, tt.shape)
		y, err := s2d.CallHost(x)
		require.NoError(t, err)
		z, err := d2s.CallHost(y)
		require.NoError(t, err)

		assert.Equal(t, tt.shape, z.Shape())
		assert.Equal(t, values(t, x), values(t, z), "%v b=%d %s", tt.shape, tt.b, tt.mode)

		m := d2s.IndexMap()
		require.NotNil(t, m)
		assert.True(t, m.IsPermutation())
	}
}

func TestDepthToSpace_ChannelGuard(t *testing.T) {
	layer, err := NewDepthToSpace(Config{BlockSize: 2}, cpu.New())
	require.NoError(t, err)
	defer layer.Release()

	x := arange(t, tensor.Shape{2, 2, 6})
	defer x.Release()

	_, err = layer.Call(x)
	assert.True(t, errors.Is(err, ErrConfiguration))
	assert.Nil(t, layer.IndexMap())

	shape, err := layer.OutputShape(tensor.Shape{1, 3, 2, 8})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 6, 4, 2}, shape)
}
