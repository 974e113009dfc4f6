//go:build !windows

package webgpu

import "github.com/born-ml/spacetodepth/internal/tensor"

// Backend is unavailable on this platform; New always fails.
type Backend struct{}

// Compile-time check that Backend implements tensor.Accelerator.
var _ tensor.Accelerator = (*Backend)(nil)

// New reports that WebGPU is not available on this platform.
func New() (*Backend, error) {
	return nil, ErrUnavailable
}

// NewWithConfig reports that WebGPU is not available on this platform.
func NewWithConfig(Config) (*Backend, error) {
	return nil, ErrUnavailable
}

// IsAvailable reports false on this platform.
func IsAvailable() bool {
	return false
}

// ListAdapters reports that WebGPU is not available on this platform.
func ListAdapters() ([]string, error) {
	return nil, ErrUnavailable
}

func (b *Backend) Name() string       { return "WebGPU (unavailable)" }
func (b *Backend) MaxTextureDim() int { return DefaultMaxTextureDim }
func (b *Backend) Release()           {}

func (b *Backend) CreateTexture([]byte, int, int, tensor.TextureFormat) (tensor.Texture, error) {
	return nil, ErrUnavailable
}

func (b *Backend) AllocateTexture(int, int, tensor.TextureFormat) (tensor.Texture, error) {
	return nil, ErrUnavailable
}

func (b *Backend) ReadTexture(tensor.Texture) ([]byte, error) {
	return nil, ErrUnavailable
}

func (b *Backend) CompileKernel(*tensor.Kernel) (tensor.Program, error) {
	return nil, ErrUnavailable
}

func (b *Backend) Dispatch(tensor.Program, tensor.Texture, []tensor.Binding, []tensor.Uniform) error {
	return ErrUnavailable
}
