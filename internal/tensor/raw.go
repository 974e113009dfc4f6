package tensor

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/x448/float16"
)

// Device identifies where a tensor's authoritative data lives.
type Device int

// Supported devices.
const (
	CPU Device = iota
	Accelerated
)

// String returns a human-readable device name.
func (d Device) String() string {
	switch d {
	case CPU:
		return "CPU"
	case Accelerated:
		return "Accelerated"
	default:
		return "Unknown"
	}
}

// tensorBuffer is a reference-counted shared buffer for Copy-on-Write semantics.
type tensorBuffer struct {
	data     []byte
	refCount atomic.Int32
	mu       sync.Mutex // For safe deallocation
}

// newTensorBuffer creates a new reference-counted buffer with refCount = 1.
func newTensorBuffer(size int) *tensorBuffer {
	buf := &tensorBuffer{
		data: make([]byte, size),
	}
	buf.refCount.Store(1)
	return buf
}

func (tb *tensorBuffer) addRef() {
	tb.refCount.Add(1)
}

// release decrements the reference count and deallocates if it reaches 0.
func (tb *tensorBuffer) release() {
	if tb.refCount.Add(-1) == 0 {
		tb.mu.Lock()
		defer tb.mu.Unlock()
		tb.data = nil
	}
}

// RawTensor is the low-level tensor representation.
//
// The host buffer always holds the physical layout: for a flattened tensor
// that is the 2-D shape (including square padding), and OriginalShape keeps
// the logical shape it came from. A tensor may additionally own a device
// texture holding the same physical layout.
type RawTensor struct {
	buffer *tensorBuffer // Shared reference-counted buffer
	shape  Shape         // Physical dimensions
	stride []int         // Memory strides (row-major)
	dtype  DataType      // Runtime type information
	device Device        // Where the authoritative copy lives

	layout   Layout
	original Shape
	texture  Texture
}

// NewRaw creates a new RawTensor with the given shape and type.
// Memory is allocated and zeroed.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}

	return &RawTensor{
		buffer: newTensorBuffer(shape.NumElements() * dtype.Size()),
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  dtype,
		device: device,
		layout: Native,
	}, nil
}

// Shape returns the physical shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// LogicalShape returns the shape the tensor represents, undoing any flattening.
func (r *RawTensor) LogicalShape() Shape {
	return LogicalShapeOf(r.layout, r.shape, r.original)
}

// Layout returns the physical layout tag.
func (r *RawTensor) Layout() Layout {
	return r.layout
}

// OriginalShape returns the pre-flattening shape, or nil for native tensors.
func (r *RawTensor) OriginalShape() Shape {
	return r.original
}

// Is2DReshaped reports whether the tensor uses the row-folding layout.
func (r *RawTensor) Is2DReshaped() bool {
	return r.layout == Flattened2D
}

// Is2DSquareReshaped reports whether the tensor uses the square layout.
func (r *RawTensor) Is2DSquareReshaped() bool {
	return r.layout == FlattenedSquare2D
}

// Strides returns the tensor's memory strides.
func (r *RawTensor) Strides() []int {
	return r.stride
}

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// Device returns where the authoritative copy of the data lives.
func (r *RawTensor) Device() Device {
	return r.device
}

// NumElements returns the number of logical elements.
func (r *RawTensor) NumElements() int {
	return r.LogicalShape().NumElements()
}

// ByteSize returns the physical buffer size in bytes.
func (r *RawTensor) ByteSize() int {
	return r.shape.NumElements() * r.dtype.Size()
}

// Data returns the raw byte slice in physical layout.
// WARNING: Direct access to underlying memory. Use with caution.
func (r *RawTensor) Data() []byte {
	return r.buffer.data
}

// AsFloat32 interprets the physical data as []float32.
// Panics if the tensor's dtype is not Float32.
func (r *RawTensor) AsFloat32() []float32 {
	if r.dtype != Float32 {
		panic(fmt.Sprintf("tensor dtype is %s, not float32", r.dtype))
	}
	data := r.buffer.data
	//nolint:gosec // unsafe.Slice for zero-copy performance, bounds checked by shape
	return unsafe.Slice((*float32)(unsafe.Pointer(&data[0])), r.shape.NumElements())
}

// AsFloat16 interprets the physical data as []float16.Float16.
// Panics if the tensor's dtype is not Float16.
func (r *RawTensor) AsFloat16() []float16.Float16 {
	if r.dtype != Float16 {
		panic(fmt.Sprintf("tensor dtype is %s, not float16", r.dtype))
	}
	data := r.buffer.data
	//nolint:gosec // unsafe.Slice for zero-copy performance, bounds checked by shape
	return unsafe.Slice((*float16.Float16)(unsafe.Pointer(&data[0])), r.shape.NumElements())
}

// AsInt32 interprets the physical data as []int32.
// Panics if the tensor's dtype is not Int32.
func (r *RawTensor) AsInt32() []int32 {
	if r.dtype != Int32 {
		panic(fmt.Sprintf("tensor dtype is %s, not int32", r.dtype))
	}
	data := r.buffer.data
	//nolint:gosec // unsafe.Slice for zero-copy performance, bounds checked by shape
	return unsafe.Slice((*int32)(unsafe.Pointer(&data[0])), r.shape.NumElements())
}

// Clone creates a shallow copy that shares the host buffer.
// The clone has no texture: device memory is never shared between tensors.
func (r *RawTensor) Clone() *RawTensor {
	r.buffer.addRef()
	return &RawTensor{
		buffer:   r.buffer,
		shape:    r.shape.Clone(),
		stride:   append([]int(nil), r.stride...),
		dtype:    r.dtype,
		device:   CPU,
		layout:   r.layout,
		original: r.original.Clone(),
	}
}

// Release drops the host buffer reference and frees the texture, if any.
func (r *RawTensor) Release() {
	r.ReleaseTexture()
	r.buffer.release()
}

// ReshapeTo2D flattens the tensor for texture storage (see Flatten2D).
// The tensor must not already be flattened or resident on a device.
func (r *RawTensor) ReshapeTo2D(maxDim int) error {
	if r.layout != Native {
		return fmt.Errorf("reshape to 2D: tensor is already %s", r.layout)
	}
	if r.texture != nil {
		return fmt.Errorf("reshape to 2D: tensor already has a texture")
	}

	layout, physical, err := Flatten2D(r.shape, maxDim)
	if err != nil {
		return fmt.Errorf("reshape to 2D: %w", err)
	}

	if layout == FlattenedSquare2D {
		padded := newTensorBuffer(physical.NumElements() * r.dtype.Size())
		copy(padded.data, r.buffer.data[:r.ByteSize()])
		r.buffer.release()
		r.buffer = padded
	}

	r.original = r.shape
	r.shape = physical
	r.stride = physical.ComputeStrides()
	r.layout = layout
	return nil
}

// ReshapeFrom2D restores the logical shape of a flattened tensor.
// Square padding is dropped. Native tensors are left untouched.
func (r *RawTensor) ReshapeFrom2D() error {
	if r.layout == Native {
		return nil
	}
	if r.texture != nil {
		return fmt.Errorf("reshape from 2D: tensor still has a texture")
	}

	if r.layout == FlattenedSquare2D {
		size := r.original.NumElements() * r.dtype.Size()
		trimmed := newTensorBuffer(size)
		copy(trimmed.data, r.buffer.data[:size])
		r.buffer.release()
		r.buffer = trimmed
	}

	r.shape = r.original
	r.stride = r.shape.ComputeStrides()
	r.original = nil
	r.layout = Native
	return nil
}
