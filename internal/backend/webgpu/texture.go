//go:build windows

package webgpu

import (
	"github.com/born-ml/spacetodepth/internal/tensor"
	"github.com/go-webgpu/webgpu/wgpu"
)

// texture is a storage buffer with 2-D texel metadata.
type texture struct {
	backend  *Backend
	buffer   *wgpu.Buffer
	size     uint64 // Bytes bound to kernels.
	capacity uint64 // Bytes allocated; pooled buffers may be larger than size.
	rows     int
	cols     int
	format   tensor.TextureFormat
	pooled   bool
	released bool
}

func (t *texture) Rows() int                    { return t.rows }
func (t *texture) Cols() int                    { return t.cols }
func (t *texture) Format() tensor.TextureFormat { return t.format }

// Release returns pooled buffers to the pool and frees the rest.
func (t *texture) Release() {
	if t.released {
		return
	}
	t.released = true
	t.backend.trackBufferRelease(t.size)

	if t.pooled && t.backend.pool != nil {
		t.backend.pool.put(t.buffer, t.capacity)
	} else {
		t.buffer.Release()
	}
	t.buffer = nil
}
