//go:build windows

package webgpu

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/born-ml/spacetodepth/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	if !IsAvailable() {
		t.Skip("WebGPU not available")
	}
	backend, err := New()
	require.NoError(t, err)
	t.Cleanup(backend.Release)
	return backend
}

func float32Bytes(values ...float32) []byte {
	out := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(v))
	}
	return out
}

func int32Bytes(values ...int32) []byte {
	out := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[4*i:], uint32(v)) //nolint:gosec // G115: bit-preserving
	}
	return out
}

func TestIsAvailable(t *testing.T) {
	t.Logf("WebGPU available: %v", IsAvailable())
}

func TestListAdapters(t *testing.T) {
	adapters, err := ListAdapters()
	if err != nil {
		t.Skipf("WebGPU not available: %v", err)
	}
	for i, a := range adapters {
		t.Logf("Adapter %d: %s", i, a)
	}
}

func TestNewWithConfig(t *testing.T) {
	if !IsAvailable() {
		t.Skip("WebGPU not available")
	}
	backend, err := NewWithConfig(Config{MaxTextureDim: 4, LowPower: true})
	require.NoError(t, err)
	defer backend.Release()
	assert.Equal(t, 4, backend.MaxTextureDim())

	_, err = backend.AllocateTexture(5, 1, tensor.FormatFloat32)
	assert.True(t, errors.Is(err, tensor.ErrTextureTooLarge))

	// No pooling: released textures are freed, not kept.
	tex, err := backend.AllocateTexture(2, 2, tensor.FormatFloat32)
	require.NoError(t, err)
	tex.Release()
	assert.Equal(t, 0, backend.MemoryStats().Pool.Pooled)
	assert.Equal(t, uint64(1), backend.MemoryStats().Pool.Dropped)
}

func TestNew(t *testing.T) {
	backend := newTestBackend(t)
	assert.Contains(t, backend.Name(), "WebGPU")
	assert.Equal(t, DefaultMaxTextureDim, backend.MaxTextureDim())
}

func TestTextureRoundTrip(t *testing.T) {
	backend := newTestBackend(t)

	data := float32Bytes(1, 2, 3, 4, 5, 6)
	tex, err := backend.CreateTexture(data, 2, 3, tensor.FormatFloat32)
	require.NoError(t, err)
	defer tex.Release()

	assert.Equal(t, 2, tex.Rows())
	assert.Equal(t, 3, tex.Cols())
	got, err := backend.ReadTexture(tex)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	stats := backend.MemoryStats()
	assert.Equal(t, int64(1), stats.ActiveBuffers)
	tex.Release()
	tex.Release()
	assert.Equal(t, int64(0), backend.MemoryStats().ActiveBuffers)

	_, err = backend.ReadTexture(tex)
	assert.True(t, errors.Is(err, tensor.ErrTextureReleased))
}

func TestTextureLimits(t *testing.T) {
	backend := newTestBackend(t)

	_, err := backend.AllocateTexture(1, DefaultMaxTextureDim+1, tensor.FormatFloat32)
	assert.True(t, errors.Is(err, tensor.ErrTextureTooLarge))

	_, err = backend.AllocateTexture(4, 4, tensor.FormatFloat16)
	assert.True(t, errors.Is(err, tensor.ErrUnsupportedFormat))

	_, err = backend.CreateTexture(make([]byte, 3), 1, 1, tensor.FormatInt32)
	assert.Error(t, err)
}

const reverseShader = `
@group(0) @binding(0) var<storage, read> input: array<u32>;
@group(0) @binding(1) var<storage, read_write> result: array<u32>;

struct Params {
    texels: u32,
    last: i32,
}
@group(0) @binding(2) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>,
        @builtin(num_workgroups) groups: vec3<u32>) {
    let idx = global_id.y * groups.x * 256u + global_id.x;
    if (idx >= params.texels) {
        return;
    }
    result[idx] = input[u32(params.last) - idx];
}
`

func TestDispatch(t *testing.T) {
	backend := newTestBackend(t)

	kernel := &tensor.Kernel{
		Name:     "reverse",
		Source:   reverseShader,
		Inputs:   []string{"input"},
		Uniforms: []string{"last"},
	}
	prog, err := backend.CompileKernel(kernel)
	require.NoError(t, err)
	again, err := backend.CompileKernel(kernel)
	require.NoError(t, err)
	assert.Same(t, prog, again)

	in, err := backend.CreateTexture(int32Bytes(10, 20, 30, 40), 2, 2, tensor.FormatInt32)
	require.NoError(t, err)
	defer in.Release()
	out, err := backend.AllocateTexture(2, 2, tensor.FormatInt32)
	require.NoError(t, err)
	defer out.Release()

	err = backend.Dispatch(prog, out, []tensor.Binding{{Name: "input", Texture: in}}, []tensor.Uniform{{Name: "last", Value: 3}})
	require.NoError(t, err)

	got, err := backend.ReadTexture(out)
	require.NoError(t, err)
	assert.Equal(t, int32Bytes(40, 30, 20, 10), got)

	err = backend.Dispatch(prog, out, nil, []tensor.Uniform{{Name: "last", Value: 3}})
	assert.Error(t, err, "missing input binding")
}

func TestPackUniforms(t *testing.T) {
	params := packUniforms(300, []int32{-1, 7})
	require.Len(t, params, 16)
	assert.Equal(t, uint32(300), binary.LittleEndian.Uint32(params[0:]))
	assert.Equal(t, uint32(0xFFFFFFFF), binary.LittleEndian.Uint32(params[4:]))
	assert.Equal(t, uint32(7), binary.LittleEndian.Uint32(params[8:]))

	assert.Len(t, packUniforms(1, []int32{1, 2, 3, 4}), 32)
}

func TestWorkgroupGrid(t *testing.T) {
	x, y := workgroupGrid(1)
	assert.Equal(t, uint32(1), x)
	assert.Equal(t, uint32(1), y)

	x, y = workgroupGrid(workgroupSize * maxWorkgroupsPerDim)
	assert.Equal(t, uint32(maxWorkgroupsPerDim), x)
	assert.Equal(t, uint32(1), y)

	x, y = workgroupGrid(workgroupSize*maxWorkgroupsPerDim + 1)
	assert.Equal(t, uint32(maxWorkgroupsPerDim), x)
	assert.Equal(t, uint32(2), y)
}
