// Package cpu implements the host reference accelerator.
//
// Textures live in host memory and kernels run their host implementation,
// so the full texture pipeline (upload, flattening, dispatch, readback) can be
// exercised without a GPU.
package cpu

import (
	"fmt"
	"sync"

	"github.com/born-ml/spacetodepth/internal/parallel"
	"github.com/born-ml/spacetodepth/internal/tensor"
)

// DefaultMaxTextureDim matches the common WebGL2/WebGPU 2-D texture limit.
const DefaultMaxTextureDim = 8192

// Config controls the host device.
type Config struct {
	MaxTextureDim int             // Largest texture row/column count.
	Parallel      parallel.Config // Parallelism for kernel texel loops.
}

// DefaultConfig returns the default host device configuration.
func DefaultConfig() Config {
	return Config{
		MaxTextureDim: DefaultMaxTextureDim,
		Parallel:      parallel.DefaultConfig(),
	}
}

// Stats counts device operations.
type Stats struct {
	Uploads      int    // CreateTexture calls.
	Allocations  int    // AllocateTexture calls.
	Readbacks    int    // ReadTexture calls.
	Compiles     int    // Kernels compiled (cache misses).
	Dispatches   int    // Kernel runs.
	LiveTextures int    // Textures not yet released.
	LiveBytes    uint64 // Bytes held by live textures.
	PeakBytes    uint64 // Highest LiveBytes seen.
}

// CPUBackend is a host-memory implementation of tensor.Accelerator.
type CPUBackend struct {
	cfg Config

	mu       sync.Mutex
	programs map[string]*program
	stats    Stats
}

// Compile-time check that CPUBackend implements tensor.Accelerator.
var _ tensor.Accelerator = (*CPUBackend)(nil)

// New creates a host device with DefaultConfig.
func New() *CPUBackend {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a host device.
func NewWithConfig(cfg Config) *CPUBackend {
	if cfg.MaxTextureDim <= 0 {
		cfg.MaxTextureDim = DefaultMaxTextureDim
	}
	return &CPUBackend{
		cfg:      cfg,
		programs: make(map[string]*program),
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// MaxTextureDim returns the largest texture row/column count.
func (cpu *CPUBackend) MaxTextureDim() int {
	return cpu.cfg.MaxTextureDim
}

// Stats returns a snapshot of the operation counters.
func (cpu *CPUBackend) Stats() Stats {
	cpu.mu.Lock()
	defer cpu.mu.Unlock()
	return cpu.stats
}

// Release drops compiled programs. Textures are owned by their tensors and
// must be released by them.
func (cpu *CPUBackend) Release() {
	cpu.mu.Lock()
	defer cpu.mu.Unlock()
	cpu.programs = make(map[string]*program)
}

func (cpu *CPUBackend) checkDims(rows, cols int) error {
	if rows <= 0 || cols <= 0 {
		return fmt.Errorf("cpu: invalid texture size %dx%d", rows, cols)
	}
	if rows > cpu.cfg.MaxTextureDim || cols > cpu.cfg.MaxTextureDim {
		return fmt.Errorf("cpu: %dx%d: %w (max %d)", rows, cols, tensor.ErrTextureTooLarge, cpu.cfg.MaxTextureDim)
	}
	return nil
}

// CreateTexture allocates a texture and uploads data.
func (cpu *CPUBackend) CreateTexture(data []byte, rows, cols int, format tensor.TextureFormat) (tensor.Texture, error) {
	if err := cpu.checkDims(rows, cols); err != nil {
		return nil, err
	}
	size := rows * cols * format.Size()
	if len(data) != size {
		return nil, fmt.Errorf("cpu: upload of %d bytes into %dx%d %s texture (%d bytes)", len(data), rows, cols, format, size)
	}

	tex := cpu.newTexture(rows, cols, format)
	copy(tex.data, data)

	cpu.mu.Lock()
	cpu.stats.Uploads++
	cpu.mu.Unlock()
	return tex, nil
}

// AllocateTexture allocates a zeroed texture.
func (cpu *CPUBackend) AllocateTexture(rows, cols int, format tensor.TextureFormat) (tensor.Texture, error) {
	if err := cpu.checkDims(rows, cols); err != nil {
		return nil, err
	}
	tex := cpu.newTexture(rows, cols, format)

	cpu.mu.Lock()
	cpu.stats.Allocations++
	cpu.mu.Unlock()
	return tex, nil
}

// ReadTexture copies a texture to a new host slice.
func (cpu *CPUBackend) ReadTexture(t tensor.Texture) ([]byte, error) {
	tex, err := cpu.own(t)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(tex.data))
	copy(out, tex.data)

	cpu.mu.Lock()
	cpu.stats.Readbacks++
	cpu.mu.Unlock()
	return out, nil
}

// own checks that t is a live texture of this device.
func (cpu *CPUBackend) own(t tensor.Texture) (*texture, error) {
	tex, ok := t.(*texture)
	if !ok || tex.backend != cpu {
		return nil, tensor.ErrForeignTexture
	}
	if tex.released {
		return nil, tensor.ErrTextureReleased
	}
	return tex, nil
}

func (cpu *CPUBackend) newTexture(rows, cols int, format tensor.TextureFormat) *texture {
	size := rows * cols * format.Size()
	tex := &texture{
		backend: cpu,
		data:    make([]byte, size),
		rows:    rows,
		cols:    cols,
		format:  format,
	}

	cpu.mu.Lock()
	defer cpu.mu.Unlock()
	cpu.stats.LiveTextures++
	cpu.stats.LiveBytes += uint64(size) //nolint:gosec // G115: size is non-negative
	if cpu.stats.LiveBytes > cpu.stats.PeakBytes {
		cpu.stats.PeakBytes = cpu.stats.LiveBytes
	}
	return tex
}

func (cpu *CPUBackend) trackRelease(size int) {
	cpu.mu.Lock()
	defer cpu.mu.Unlock()
	cpu.stats.LiveTextures--
	cpu.stats.LiveBytes -= uint64(size) //nolint:gosec // G115: size is non-negative
}
