//go:build windows

// Package webgpu implements the WebGPU accelerator.
// Uses go-webgpu (github.com/go-webgpu/webgpu) for zero-CGO WebGPU bindings.
//
// Textures are storage buffers holding row-major texels; kernels are WGSL
// compute shaders following the binding convention of tensor.Kernel.
package webgpu

import (
	"fmt"
	"slices"
	"sync"

	"github.com/born-ml/spacetodepth/internal/tensor"
	"github.com/go-webgpu/webgpu/wgpu"
)

// maxStorageBinding is the WebGPU default maxStorageBufferBindingSize (128 MiB).
const maxStorageBinding = 128 << 20

// Backend implements tensor.Accelerator on a GPU using WebGPU.
type Backend struct {
	cfg Config

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	info     wgpu.AdapterInfo

	programs map[string]*program // Compiled kernels by name.
	mu       sync.RWMutex

	pool *texturePool

	memoryStats struct {
		totalAllocatedBytes uint64
		peakMemoryBytes     uint64
		activeBuffers       int64
		mu                  sync.RWMutex
	}
}

// Compile-time check that Backend implements tensor.Accelerator.
var _ tensor.Accelerator = (*Backend)(nil)

// openAdapter creates an instance and requests an adapter from it.
// A missing native library panics inside wgpu; the panic is returned as
// ErrUnavailable.
func openAdapter(lowPower bool) (instance *wgpu.Instance, adapter *wgpu.Adapter, err error) {
	defer func() {
		if r := recover(); r != nil {
			instance, adapter = nil, nil
			err = fmt.Errorf("%w: native library not available: %v", ErrUnavailable, r)
		}
	}()

	power := wgpu.PowerPreferenceHighPerformance
	if lowPower {
		power = wgpu.PowerPreferenceLowPower
	}
	instance = wgpu.CreateInstance(nil)
	adapter, err = instance.RequestAdapter(&wgpu.RequestAdapterOptions{PowerPreference: power})
	if err != nil {
		instance.Release()
		return nil, nil, fmt.Errorf("%w: no adapter: %w", ErrUnavailable, err)
	}
	return instance, adapter, nil
}

// New creates a WebGPU backend with DefaultConfig.
func New() (*Backend, error) {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a WebGPU backend.
// Returns an error wrapping ErrUnavailable if no device can be opened.
func NewWithConfig(cfg Config) (*Backend, error) {
	if cfg.MaxTextureDim <= 0 {
		cfg.MaxTextureDim = DefaultMaxTextureDim
	}
	if cfg.PoolPerClass < 0 {
		cfg.PoolPerClass = 0
	}

	instance, adapter, err := openAdapter(cfg.LowPower)
	if err != nil {
		return nil, err
	}
	device, err := adapter.RequestDevice(nil)
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("%w: failed to request device: %w", ErrUnavailable, err)
	}
	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("%w: failed to get queue", ErrUnavailable)
	}

	return &Backend{
		cfg:      cfg,
		instance: instance,
		adapter:  adapter,
		device:   device,
		queue:    queue,
		info:     adapter.GetInfo(),
		programs: make(map[string]*program),
		pool:     newTexturePool(device, cfg.PoolPerClass),
	}, nil
}

// Release releases all WebGPU resources.
// Must be called when the backend is no longer needed.
func (b *Backend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pool != nil {
		b.pool.clear()
		b.pool = nil
	}

	for _, p := range b.programs {
		p.release()
	}
	b.programs = nil

	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

// Name returns the backend name.
func (b *Backend) Name() string {
	if b.info.Device != "" {
		return fmt.Sprintf("WebGPU (%s %s)", b.info.Device, b.info.Vendor)
	}
	return "WebGPU"
}

// MaxTextureDim returns the largest texture row/column count.
func (b *Backend) MaxTextureDim() int {
	return b.cfg.MaxTextureDim
}

// AdapterInfo returns information about the GPU adapter.
func (b *Backend) AdapterInfo() wgpu.AdapterInfo {
	return b.info
}

// IsAvailable reports whether a WebGPU adapter can be opened.
func IsAvailable() bool {
	instance, adapter, err := openAdapter(false)
	if err != nil {
		return false
	}
	adapter.Release()
	instance.Release()
	return true
}

// ListAdapters describes the high-performance and low-power adapters.
// WebGPU has no portable way to enumerate every adapter, so the two
// preferences may name the same one; duplicates are dropped.
func ListAdapters() ([]string, error) {
	var adapters []string
	var firstErr error
	for _, lowPower := range []bool{false, true} {
		instance, adapter, err := openAdapter(lowPower)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		info := adapter.GetInfo()
		adapter.Release()
		instance.Release()

		desc := fmt.Sprintf("%s (%s) %s", info.Device, info.Vendor, info.Description)
		if !slices.Contains(adapters, desc) {
			adapters = append(adapters, desc)
		}
	}
	if len(adapters) == 0 {
		return nil, firstErr
	}
	return adapters, nil
}

// MemoryStats represents GPU memory usage statistics.
type MemoryStats struct {
	TotalAllocatedBytes uint64
	PeakMemoryBytes     uint64
	ActiveBuffers       int64
	Pool                PoolStats
}

// MemoryStats returns current GPU memory usage statistics.
func (b *Backend) MemoryStats() MemoryStats {
	b.memoryStats.mu.RLock()
	stats := MemoryStats{
		TotalAllocatedBytes: b.memoryStats.totalAllocatedBytes,
		PeakMemoryBytes:     b.memoryStats.peakMemoryBytes,
		ActiveBuffers:       b.memoryStats.activeBuffers,
	}
	b.memoryStats.mu.RUnlock()

	b.mu.RLock()
	if b.pool != nil {
		stats.Pool = b.pool.Stats()
	}
	b.mu.RUnlock()
	return stats
}

func (b *Backend) trackBufferAllocation(size uint64) {
	b.memoryStats.mu.Lock()
	defer b.memoryStats.mu.Unlock()

	b.memoryStats.totalAllocatedBytes += size
	b.memoryStats.activeBuffers++
	if b.memoryStats.totalAllocatedBytes > b.memoryStats.peakMemoryBytes {
		b.memoryStats.peakMemoryBytes = b.memoryStats.totalAllocatedBytes
	}
}

func (b *Backend) trackBufferRelease(size uint64) {
	b.memoryStats.mu.Lock()
	defer b.memoryStats.mu.Unlock()

	if b.memoryStats.totalAllocatedBytes >= size {
		b.memoryStats.totalAllocatedBytes -= size
	}
	b.memoryStats.activeBuffers--
}
