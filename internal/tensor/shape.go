package tensor

import (
	"fmt"
	"slices"
)

// Shape lists the dimensions of a tensor, outermost first.
type Shape []int

// NumElements returns the product of the dimensions. A scalar has one element.
func (s Shape) NumElements() int {
	n := 1
	for _, d := range s {
		n *= d
	}
	return n
}

// Validate checks that every dimension is positive.
func (s Shape) Validate() error {
	if i := slices.IndexFunc(s, func(d int) bool { return d <= 0 }); i >= 0 {
		return fmt.Errorf("dimension %d of %v is %d, must be > 0", i, []int(s), s[i])
	}
	return nil
}

// Equal reports whether both shapes have the same dimensions.
func (s Shape) Equal(other Shape) bool {
	return slices.Equal(s, other)
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	if s == nil {
		return nil
	}
	return slices.Clone(s)
}

// Rows2D folds every leading dimension into rows: [prod(s[:-1]), s[-1]].
// The shape must have rank >= 1.
func (s Shape) Rows2D() (rows, cols int) {
	cols = s[len(s)-1]
	return s[:len(s)-1].NumElements(), cols
}

// ComputeStrides returns row-major strides: stride[i] is the product of the
// dimensions after i.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	step := 1
	for i := len(s) - 1; i >= 0; i-- {
		strides[i] = step
		step *= s[i]
	}
	return strides
}
