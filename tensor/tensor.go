// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/spacetodepth/internal/tensor"
)

// Shape represents the dimensions of a tensor.
type Shape = tensor.Shape

// DataType is the runtime element type of a tensor.
type DataType = tensor.DataType

// DType is the constraint for tensor element types.
type DType = tensor.DType

// RawTensor is a tensor with host data and an optional device texture.
type RawTensor = tensor.RawTensor

// Device identifies where the authoritative copy of a tensor lives.
type Device = tensor.Device

// Layout records how a tensor was laid out for 2-D texture storage.
type Layout = tensor.Layout

// Supported data types.
const (
	Float32 = tensor.Float32
	Float16 = tensor.Float16
	Int32   = tensor.Int32
)

// Devices.
const (
	CPU         = tensor.CPU
	Accelerated = tensor.Accelerated
)

// Layouts.
const (
	Native            = tensor.Native
	Flattened2D       = tensor.Flattened2D
	FlattenedSquare2D = tensor.FlattenedSquare2D
)

// NewRaw creates a zeroed host tensor.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, tensor.CPU)
}

// FromSlice creates a host tensor holding a copy of data.
func FromSlice[T DType](data []T, shape Shape) (*RawTensor, error) {
	return tensor.FromSlice(data, shape)
}

// ToSlice returns a copy of the logical elements of a host tensor.
func ToSlice[T DType](r *RawTensor) ([]T, error) {
	return tensor.ToSlice[T](r)
}

// Arange creates a float32 tensor holding 0, 1, 2, ... in row-major order.
func Arange(shape Shape) (*RawTensor, error) {
	return tensor.Arange(shape)
}

// Flatten2D chooses the 2-D layout and physical shape for a logical shape.
func Flatten2D(shape Shape, maxDim int) (Layout, Shape, error) {
	return tensor.Flatten2D(shape, maxDim)
}

// LogicalShapeOf maps a layout and its shapes back to the logical shape.
func LogicalShapeOf(layout Layout, physical, original Shape) Shape {
	return tensor.LogicalShapeOf(layout, physical, original)
}
