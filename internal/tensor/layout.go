package tensor

import (
	"fmt"
	"math"
)

// Layout records how a tensor's logical shape was laid out for 2-D texture storage.
type Layout int

// Supported layouts.
const (
	// Native means the physical shape is the logical shape.
	Native Layout = iota
	// Flattened2D folds every leading dimension into rows: [prod(shape[:-1]), shape[-1]].
	Flattened2D
	// FlattenedSquare2D packs all elements row-major into the smallest
	// square that holds them, zero padded at the end.
	FlattenedSquare2D
)

// String returns a human-readable layout name.
func (l Layout) String() string {
	switch l {
	case Native:
		return "native"
	case Flattened2D:
		return "flattened-2d"
	case FlattenedSquare2D:
		return "flattened-square-2d"
	default:
		return "unknown"
	}
}

// Flatten2D chooses the 2-D physical layout for a logical shape.
//
// The row-folding layout is preferred. It is replaced by the square layout
// when either side would exceed maxDim. An error is returned when even the
// square does not fit. maxDim <= 0 disables the limit.
//
// Both layouts keep the row-major element order, so a linear offset into the
// logical tensor is also a linear offset into the physical texture.
func Flatten2D(shape Shape, maxDim int) (Layout, Shape, error) {
	if err := shape.Validate(); err != nil {
		return Native, nil, err
	}
	if len(shape) == 0 {
		return Native, nil, fmt.Errorf("cannot flatten a scalar")
	}

	rows, cols := shape.Rows2D()
	if maxDim <= 0 || (rows <= maxDim && cols <= maxDim) {
		return Flattened2D, Shape{rows, cols}, nil
	}

	side := SquareSide(shape.NumElements())
	if side > maxDim {
		return Native, nil, fmt.Errorf("%d elements do not fit a %dx%d texture", shape.NumElements(), maxDim, maxDim)
	}
	return FlattenedSquare2D, Shape{side, side}, nil
}

// SquareSide returns the side of the smallest square holding n elements.
func SquareSide(n int) int {
	side := int(math.Ceil(math.Sqrt(float64(n))))
	// Guard against float rounding on large n.
	for side*side < n {
		side++
	}
	for side > 1 && (side-1)*(side-1) >= n {
		side--
	}
	return side
}

// LogicalShapeOf maps a layout back to the logical shape it encodes.
// Native tensors report their physical shape; flattened tensors report the
// shape they had before flattening.
func LogicalShapeOf(layout Layout, physical, original Shape) Shape {
	switch layout {
	case Flattened2D, FlattenedSquare2D:
		return original.Clone()
	default:
		return physical.Clone()
	}
}
