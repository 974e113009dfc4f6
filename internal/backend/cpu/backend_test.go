package cpu

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/born-ml/spacetodepth/internal/parallel"
	"github.com/born-ml/spacetodepth/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reverseKernel writes input texels to the output in reverse order, shifted by offset.
var reverseKernel = &tensor.Kernel{
	Name:     "reverse",
	Inputs:   []string{"input"},
	Uniforms: []string{"offset"},
	Host: func(inv *tensor.HostInvocation) error {
		in := inv.Inputs["input"]
		n := inv.Output.Texels()
		offset := inv.Uniforms["offset"]
		return inv.For(n, func(i int) error {
			v := int32(binary.LittleEndian.Uint32(in.Data[(n-1-i)*4:])) //nolint:gosec // G115: texel bits
			binary.LittleEndian.PutUint32(inv.Output.Data[i*4:], uint32(v+offset))
			return nil
		})
	},
}

func int32Bytes(v ...int32) []byte {
	out := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(out[i*4:], uint32(x)) //nolint:gosec // G115: texel bits
	}
	return out
}

func TestNew(t *testing.T) {
	b := New()
	assert.Equal(t, "CPU", b.Name())
	assert.Equal(t, DefaultMaxTextureDim, b.MaxTextureDim())

	b = NewWithConfig(Config{})
	assert.Equal(t, DefaultMaxTextureDim, b.MaxTextureDim(), "zero limit falls back to the default")

	b = NewWithConfig(Config{MaxTextureDim: 16})
	assert.Equal(t, 16, b.MaxTextureDim())
}

func TestTextureRoundTrip(t *testing.T) {
	b := New()
	data := int32Bytes(1, 2, 3, 4, 5, 6)

	tex, err := b.CreateTexture(data, 2, 3, tensor.FormatInt32)
	require.NoError(t, err)
	assert.Equal(t, 2, tex.Rows())
	assert.Equal(t, 3, tex.Cols())
	assert.Equal(t, tensor.FormatInt32, tex.Format())

	// The device owns a copy.
	data[0] = 99
	got, err := b.ReadTexture(tex)
	require.NoError(t, err)
	assert.Equal(t, int32Bytes(1, 2, 3, 4, 5, 6), got)

	stats := b.Stats()
	assert.Equal(t, 1, stats.Uploads)
	assert.Equal(t, 1, stats.Readbacks)
	assert.Equal(t, 1, stats.LiveTextures)
	assert.Equal(t, uint64(24), stats.LiveBytes)

	tex.Release()
	tex.Release()
	stats = b.Stats()
	assert.Equal(t, 0, stats.LiveTextures)
	assert.Equal(t, uint64(0), stats.LiveBytes)
	assert.Equal(t, uint64(24), stats.PeakBytes)

	_, err = b.ReadTexture(tex)
	assert.True(t, errors.Is(err, tensor.ErrTextureReleased))
}

func TestAllocateTexture(t *testing.T) {
	b := New()
	tex, err := b.AllocateTexture(4, 4, tensor.FormatFloat16)
	require.NoError(t, err)
	defer tex.Release()

	got, err := b.ReadTexture(tex)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 32), got)
	assert.Equal(t, 1, b.Stats().Allocations)
	assert.Equal(t, 0, b.Stats().Uploads)
}

func TestTextureLimits(t *testing.T) {
	b := NewWithConfig(Config{MaxTextureDim: 8})

	_, err := b.AllocateTexture(9, 1, tensor.FormatFloat32)
	assert.True(t, errors.Is(err, tensor.ErrTextureTooLarge))
	_, err = b.CreateTexture(make([]byte, 4*9), 1, 9, tensor.FormatFloat32)
	assert.True(t, errors.Is(err, tensor.ErrTextureTooLarge))

	_, err = b.AllocateTexture(0, 4, tensor.FormatFloat32)
	assert.Error(t, err)
	_, err = b.CreateTexture(make([]byte, 3), 1, 1, tensor.FormatFloat32)
	assert.Error(t, err, "size mismatch")

	tex, err := b.AllocateTexture(8, 8, tensor.FormatFloat32)
	require.NoError(t, err)
	tex.Release()
	assert.Equal(t, 0, b.Stats().LiveTextures)
}

func TestForeignTexture(t *testing.T) {
	a, b := New(), New()
	tex, err := a.AllocateTexture(1, 1, tensor.FormatFloat32)
	require.NoError(t, err)
	defer tex.Release()

	_, err = b.ReadTexture(tex)
	assert.True(t, errors.Is(err, tensor.ErrForeignTexture))
}

func TestCompileKernel(t *testing.T) {
	b := New()

	p1, err := b.CompileKernel(reverseKernel)
	require.NoError(t, err)
	p2, err := b.CompileKernel(reverseKernel)
	require.NoError(t, err)
	assert.Same(t, p1, p2)
	assert.Equal(t, "reverse", p1.Name())
	assert.Equal(t, 1, b.Stats().Compiles)

	_, err = b.CompileKernel(&tensor.Kernel{Name: "wgsl-only", Source: "@compute fn main() {}"})
	assert.Error(t, err)
	_, err = b.CompileKernel(&tensor.Kernel{})
	assert.Error(t, err)

	b.Release()
	_, err = b.CompileKernel(reverseKernel)
	require.NoError(t, err)
	assert.Equal(t, 2, b.Stats().Compiles)
}

func TestDispatch(t *testing.T) {
	for _, cfg := range []parallel.Config{
		{Enabled: false},
		{Enabled: true, NumWorkers: 4, MinChunkSize: 2},
	} {
		b := NewWithConfig(Config{Parallel: cfg})

		in, err := b.CreateTexture(int32Bytes(0, 1, 2, 3, 4, 5, 6, 7), 2, 4, tensor.FormatInt32)
		require.NoError(t, err)
		out, err := b.AllocateTexture(2, 4, tensor.FormatInt32)
		require.NoError(t, err)

		p, err := b.CompileKernel(reverseKernel)
		require.NoError(t, err)
		err = b.Dispatch(p, out,
			[]tensor.Binding{{Name: "input", Texture: in}},
			[]tensor.Uniform{{Name: "offset", Value: 10}})
		require.NoError(t, err)

		got, err := b.ReadTexture(out)
		require.NoError(t, err)
		assert.Equal(t, int32Bytes(17, 16, 15, 14, 13, 12, 11, 10), got)
		assert.Equal(t, 1, b.Stats().Dispatches)

		in.Release()
		out.Release()
	}
}

func TestDispatch_Errors(t *testing.T) {
	b := New()
	p, err := b.CompileKernel(reverseKernel)
	require.NoError(t, err)

	in, err := b.CreateTexture(int32Bytes(1, 2), 1, 2, tensor.FormatInt32)
	require.NoError(t, err)
	defer in.Release()
	out, err := b.AllocateTexture(1, 2, tensor.FormatInt32)
	require.NoError(t, err)

	inputs := []tensor.Binding{{Name: "input", Texture: in}}
	uniforms := []tensor.Uniform{{Name: "offset", Value: 0}}

	assert.Error(t, b.Dispatch(p, out, nil, uniforms), "missing input")
	assert.Error(t, b.Dispatch(p, out, inputs, nil), "missing uniform")

	other := New()
	foreign, err := other.CompileKernel(reverseKernel)
	require.NoError(t, err)
	assert.Error(t, b.Dispatch(foreign, out, inputs, uniforms), "program from another device")

	out.Release()
	err = b.Dispatch(p, out, inputs, uniforms)
	assert.True(t, errors.Is(err, tensor.ErrTextureReleased))
	assert.Equal(t, 0, b.Stats().Dispatches)
}

func TestDispatch_KernelError(t *testing.T) {
	b := New()
	failing := &tensor.Kernel{
		Name: "failing",
		Host: func(inv *tensor.HostInvocation) error {
			return inv.For(inv.Output.Texels(), func(i int) error {
				if i == 3 {
					return errors.New("bad texel")
				}
				return nil
			})
		},
	}
	p, err := b.CompileKernel(failing)
	require.NoError(t, err)
	out, err := b.AllocateTexture(2, 2, tensor.FormatFloat32)
	require.NoError(t, err)
	defer out.Release()

	err = b.Dispatch(p, out, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad texel")
	assert.Equal(t, 0, b.Stats().Dispatches)
}
