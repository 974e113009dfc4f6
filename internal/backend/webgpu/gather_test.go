//go:build windows

package webgpu

import (
	"testing"

	"github.com/born-ml/spacetodepth/internal/nn"
	"github.com/born-ml/spacetodepth/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSpaceToDepthOnGPU runs the layout layers end to end on the GPU.
func TestSpaceToDepthOnGPU(t *testing.T) {
	backend := newTestBackend(t)

	s2d, err := nn.NewSpaceToDepth(nn.Config{BlockSize: 2}, backend)
	require.NoError(t, err)
	d2s, err := nn.NewDepthToSpace(nn.Config{BlockSize: 2}, backend)
	require.NoError(t, err)
	model := nn.NewSequential(s2d, d2s)
	defer model.Release()

	x, err := tensor.Arange(tensor.Shape{4, 4, 1})
	require.NoError(t, err)
	defer x.Release()

	host, err := nn.NewSpaceToDepth(nn.Config{BlockSize: 2, HostFallback: true}, nil)
	require.NoError(t, err)
	want, err := host.CallHost(x)
	require.NoError(t, err)
	defer want.Release()

	y, err := model.Call(x)
	require.NoError(t, err)
	defer y.Release()

	got, err := tensor.ToSlice[float32](y)
	require.NoError(t, err)
	in, err := tensor.ToSlice[float32](x)
	require.NoError(t, err)
	assert.Equal(t, in, got)

	// The intermediate result is still in s2d's output texture.
	mid, err := s2d.Call(x)
	require.NoError(t, err)
	midHost, err := mid.Download(backend)
	require.NoError(t, err)
	defer midHost.Release()
	wantValues, err := tensor.ToSlice[float32](want)
	require.NoError(t, err)
	midValues, err := tensor.ToSlice[float32](midHost)
	require.NoError(t, err)
	assert.Equal(t, wantValues, midValues)
}
