// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn_test

import (
	"errors"
	"testing"

	"github.com/born-ml/spacetodepth/backend/cpu"
	"github.com/born-ml/spacetodepth/nn"
	"github.com/born-ml/spacetodepth/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLayerInterface verifies that the exported layers implement Layer.
func TestLayerInterface(t *testing.T) {
	acc := cpu.New()

	s2d, err := nn.NewSpaceToDepth(nn.Config{BlockSize: 2}, acc)
	require.NoError(t, err)
	d2s, err := nn.NewDepthToSpace(nn.Config{BlockSize: 2}, acc)
	require.NoError(t, err)

	tests := []struct {
		name  string
		layer nn.Layer
		in    tensor.Shape
		out   tensor.Shape
	}{
		{"SpaceToDepth", s2d, tensor.Shape{4, 4, 1}, tensor.Shape{2, 2, 4}},
		{"DepthToSpace", d2s, tensor.Shape{2, 2, 4}, tensor.Shape{4, 4, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer tt.layer.Release()

			x, err := tensor.Arange(tt.in)
			require.NoError(t, err)
			defer x.Release()

			y, err := tt.layer.Call(x)
			require.NoError(t, err)
			defer y.Release()
			assert.Equal(t, tt.out, y.Shape())
		})
	}
}

func TestRoundTrip(t *testing.T) {
	acc := cpu.New()
	s2d, err := nn.NewSpaceToDepth(nn.Config{BlockSize: 2, Mode: nn.BlockMajor}, acc)
	require.NoError(t, err)
	d2s, err := nn.NewDepthToSpace(nn.Config{BlockSize: 2, Mode: nn.BlockMajor}, acc)
	require.NoError(t, err)
	model := nn.NewSequential(s2d, d2s)
	defer model.Release()

	x, err := tensor.Arange(tensor.Shape{1, 8, 6, 3})
	require.NoError(t, err)
	defer x.Release()

	y, err := model.Call(x)
	require.NoError(t, err)
	defer y.Release()

	want, err := tensor.ToSlice[float32](x)
	require.NoError(t, err)
	got, err := tensor.ToSlice[float32](y)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 8, 6, 3}, y.Shape())
	assert.Equal(t, want, got)
}

func TestErrorKinds(t *testing.T) {
	layer, err := nn.NewSpaceToDepth(nn.DefaultConfig(), nil)
	require.NoError(t, err)

	x, err := tensor.Arange(tensor.Shape{5, 4, 1})
	require.NoError(t, err)

	_, err = layer.Call(x)
	assert.True(t, errors.Is(err, nn.ErrUnsupportedPath))

	var lerr *nn.Error
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, layer.Name(), lerr.Layer)
}
