package tensor

import (
	"fmt"
	"unsafe"
)

// FromSlice creates a host tensor holding a copy of data.
//
// Example:
//
//	x, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2, 1})
func FromSlice[T DType](data []T, shape Shape) (*RawTensor, error) {
	if len(data) != shape.NumElements() {
		return nil, fmt.Errorf("data length %d does not match shape %v (%d elements)", len(data), shape, shape.NumElements())
	}
	raw, err := NewRaw(shape, dataTypeOf[T](), CPU)
	if err != nil {
		return nil, err
	}
	copy(hostSlice[T](raw), data)
	return raw, nil
}

// ToSlice returns a copy of the logical elements of a host tensor.
// Square padding, if any, is not included.
func ToSlice[T DType](r *RawTensor) ([]T, error) {
	if dt := dataTypeOf[T](); dt != r.dtype {
		return nil, fmt.Errorf("tensor dtype is %s, not %s", r.dtype, dt)
	}
	out := make([]T, r.NumElements())
	copy(out, hostSlice[T](r))
	return out, nil
}

// Arange creates a float32 tensor of the given shape holding 0, 1, 2, ...
// in row-major order. Useful to trace where elements end up after a layout transform.
func Arange(shape Shape) (*RawTensor, error) {
	raw, err := NewRaw(shape, Float32, CPU)
	if err != nil {
		return nil, err
	}
	data := raw.AsFloat32()
	for i := range data {
		data[i] = float32(i)
	}
	return raw, nil
}

// hostSlice views the physical buffer as []T. The caller guarantees T matches dtype.
func hostSlice[T DType](r *RawTensor) []T {
	n := r.shape.NumElements()
	if n == 0 || len(r.buffer.data) == 0 {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy performance, bounds checked by shape
	return unsafe.Slice((*T)(unsafe.Pointer(&r.buffer.data[0])), n)
}
