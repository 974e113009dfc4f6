package tensor

import (
	"errors"
	"fmt"
)

// Errors reported by accelerators.
var (
	ErrUnsupportedFormat = errors.New("unsupported texture format")
	ErrTextureTooLarge   = errors.New("texture exceeds device limits")
	ErrForeignTexture    = errors.New("texture belongs to another device")
	ErrTextureReleased   = errors.New("texture already released")
)

// TextureFormat is the element format of a device texture.
type TextureFormat int

// Supported texture formats.
const (
	FormatFloat32 TextureFormat = iota
	FormatFloat16
	FormatInt32
)

// Size returns the byte size of one texel.
func (f TextureFormat) Size() int {
	switch f {
	case FormatFloat32, FormatInt32:
		return 4
	case FormatFloat16:
		return 2
	default:
		panic("unknown texture format")
	}
}

// String returns a human-readable format name.
func (f TextureFormat) String() string {
	switch f {
	case FormatFloat32:
		return "float"
	case FormatFloat16:
		return "half"
	case FormatInt32:
		return "int"
	default:
		return "unknown"
	}
}

// FormatFor returns the texture format that stores dt without loss.
func FormatFor(dt DataType) (TextureFormat, error) {
	switch dt {
	case Float32:
		return FormatFloat32, nil
	case Float16:
		return FormatFloat16, nil
	case Int32:
		return FormatInt32, nil
	default:
		return 0, fmt.Errorf("%w: no texture format for %s", ErrUnsupportedFormat, dt)
	}
}

// Texture is a 2-D device-resident array of texels.
type Texture interface {
	Rows() int
	Cols() int
	Format() TextureFormat
	// Release frees the device memory. Calling it twice is a no-op.
	Release()
}

// Program is a compiled kernel, ready for dispatch.
type Program interface {
	Name() string
}

// Binding binds a texture to a named kernel input.
type Binding struct {
	Name    string
	Texture Texture
}

// Uniform is a scalar kernel parameter.
type Uniform struct {
	Name  string
	Value int32
}

// Accelerator executes texture-based compute kernels.
//
// Implementations:
//   - backend/cpu: host reference device that emulates texture compute
//   - backend/webgpu: GPU compute via WebGPU
type Accelerator interface {
	// Name returns a human-readable device name.
	Name() string

	// MaxTextureDim returns the largest row or column count of a texture.
	MaxTextureDim() int

	// CreateTexture allocates a texture and uploads data (row-major texels).
	CreateTexture(data []byte, rows, cols int, format TextureFormat) (Texture, error)

	// AllocateTexture allocates an uninitialized texture.
	AllocateTexture(rows, cols int, format TextureFormat) (Texture, error)

	// ReadTexture copies a texture back to host memory.
	ReadTexture(tex Texture) ([]byte, error)

	// CompileKernel compiles k. Compiling the same kernel name twice returns the cached program.
	CompileKernel(k *Kernel) (Program, error)

	// Dispatch runs p once per output texel and returns when the results are visible to ReadTexture.
	Dispatch(p Program, output Texture, inputs []Binding, uniforms []Uniform) error

	// Release frees every device resource.
	Release()
}

// HostView is a host-memory view of a texture handed to host kernels.
type HostView struct {
	Data   []byte
	Rows   int
	Cols   int
	Format TextureFormat
}

// Texels returns the number of texels in the view.
func (v HostView) Texels() int {
	return v.Rows * v.Cols
}

// HostInvocation carries the arguments of one host kernel run.
type HostInvocation struct {
	Output   HostView
	Inputs   map[string]HostView
	Uniforms map[string]int32

	// For runs f(i) for i in [0, n) and returns the first error.
	// Devices may run iterations concurrently.
	For func(n int, f func(i int) error) error
}

// HostKernel is the host-side implementation of a kernel.
type HostKernel func(inv *HostInvocation) error

// Kernel describes a compute kernel.
//
// Binding convention shared by all devices: Inputs are bound in order at
// bindings 0..len(Inputs)-1, the output follows at len(Inputs) and a uniform
// block at len(Inputs)+1. The uniform block starts with the output texel
// count (u32, named texels) followed by Uniforms in order, each as i32.
type Kernel struct {
	Name     string
	Source   string // WGSL
	Inputs   []string
	Uniforms []string
	Host     HostKernel
}

// Bind orders bindings by k.Inputs and checks that every input is present.
func (k *Kernel) Bind(inputs []Binding) ([]Texture, error) {
	byName := make(map[string]Texture, len(inputs))
	for _, b := range inputs {
		byName[b.Name] = b.Texture
	}
	ordered := make([]Texture, len(k.Inputs))
	for i, name := range k.Inputs {
		tex, ok := byName[name]
		if !ok || tex == nil {
			return nil, fmt.Errorf("kernel %s: missing input %q", k.Name, name)
		}
		ordered[i] = tex
	}
	return ordered, nil
}

// UniformValues orders uniforms by k.Uniforms and checks that every uniform is present.
func (k *Kernel) UniformValues(uniforms []Uniform) ([]int32, error) {
	byName := make(map[string]int32, len(uniforms))
	for _, u := range uniforms {
		byName[u.Name] = u.Value
	}
	values := make([]int32, len(k.Uniforms))
	for i, name := range k.Uniforms {
		v, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("kernel %s: missing uniform %q", k.Name, name)
		}
		values[i] = v
	}
	return values, nil
}
