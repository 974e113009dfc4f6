// Package tensor provides the tensor and texture types shared by layers and devices.
package tensor

import "github.com/x448/float16"

// DType is the constraint for Go element types a tensor can hold.
// Each maps to exactly one texture format.
type DType interface {
	~float32 | ~int32 | float16.Float16
}

// DataType is the runtime element type of a tensor.
type DataType int

// Supported data types.
const (
	Float32 DataType = iota
	Float16
	Int32
)

var dataTypes = [...]struct {
	name string
	size int
}{
	Float32: {"float32", 4},
	Float16: {"float16", 2},
	Int32:   {"int32", 4},
}

func (dt DataType) valid() bool {
	return dt >= 0 && int(dt) < len(dataTypes)
}

// Size returns the byte size of one element. Panics on an unknown type.
func (dt DataType) Size() int {
	if !dt.valid() {
		panic("unknown data type")
	}
	return dataTypes[dt].size
}

// String returns the element type name.
func (dt DataType) String() string {
	if !dt.valid() {
		return "unknown"
	}
	return dataTypes[dt].name
}

// dataTypeOf returns the DataType of T. Named types such as
// `type Celsius float32` are not tensor element types and panic.
func dataTypeOf[T DType]() DataType {
	var zero T
	switch any(zero).(type) {
	case float32:
		return Float32
	case float16.Float16:
		return Float16
	case int32:
		return Int32
	default:
		panic("unsupported element type")
	}
}
