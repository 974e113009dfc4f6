//go:build windows

package webgpu

import (
	"math/bits"
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"
)

const minSizeClass = 256 // Smallest pooled capacity in bytes.

// PoolStats counts texture pool activity.
type PoolStats struct {
	Allocated uint64 // Buffers created by the pool.
	Reused    uint64 // Acquires served from the free lists.
	Returned  uint64 // Buffers put back for reuse.
	Dropped   uint64 // Buffers freed because their class was full.
	Pooled    int    // Buffers currently on the free lists.
}

// texturePool recycles output storage buffers.
//
// Buffers are grouped by capacity rounded up to a power of two, so an
// output of any size in a class can reuse a buffer freed by another.
// Layers reallocate outputs whenever an input shape or type changes, which
// makes reuse the common case.
type texturePool struct {
	device   *wgpu.Device
	perClass int

	mu    sync.Mutex
	free  map[uint64][]*wgpu.Buffer
	stats PoolStats
}

func newTexturePool(device *wgpu.Device, perClass int) *texturePool {
	return &texturePool{
		device:   device,
		perClass: perClass,
		free:     make(map[uint64][]*wgpu.Buffer),
	}
}

// sizeClass rounds size up to the next power of two, at least minSizeClass.
func sizeClass(size uint64) uint64 {
	if size <= minSizeClass {
		return minSizeClass
	}
	return 1 << bits.Len64(size-1)
}

// acquire returns a buffer holding at least size bytes and its capacity.
func (p *texturePool) acquire(size uint64) (*wgpu.Buffer, uint64) {
	class := sizeClass(size)

	p.mu.Lock()
	defer p.mu.Unlock()

	if list := p.free[class]; len(list) > 0 {
		buffer := list[len(list)-1]
		p.free[class] = list[:len(list)-1]
		p.stats.Reused++
		p.stats.Pooled--
		return buffer, class
	}

	p.stats.Allocated++
	buffer := p.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: textureUsage,
		Size:  class,
	})
	return buffer, class
}

// put returns a buffer of the given capacity for reuse.
func (p *texturePool) put(buffer *wgpu.Buffer, capacity uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.free[capacity]) >= p.perClass {
		p.stats.Dropped++
		buffer.Release()
		return
	}
	p.free[capacity] = append(p.free[capacity], buffer)
	p.stats.Returned++
	p.stats.Pooled++
}

// clear frees every pooled buffer.
func (p *texturePool) clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for class, list := range p.free {
		for _, buffer := range list {
			buffer.Release()
		}
		delete(p.free, class)
	}
	p.stats.Pooled = 0
}

// Stats returns a snapshot of the pool counters.
func (p *texturePool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}
