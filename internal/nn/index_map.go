package nn

import (
	"errors"
	"fmt"
	"math"

	"github.com/born-ml/spacetodepth/internal/tensor"
)

// ErrOffsetOverflow is returned when input offsets do not fit an int32 texture.
var ErrOffsetOverflow = errors.New("input offsets exceed int32 texture range")

// IndexMap holds, for every output element, the row-major offset of its
// source element in the input.
type IndexMap struct {
	Shape   tensor.Shape // Logical output shape.
	Offsets []int32      // Row-major over Shape.
}

// BuildSpaceToDepthMap computes the space-to-depth index map for g.
//
// A template of b²*C offsets relative to a block's top-left input element
// is built once and then stamped into every block with that block's base
// offset added.
func BuildSpaceToDepthMap(g BlockGeometry, mode Mode) (*IndexMap, error) {
	inputElements := g.InputShape().NumElements()
	if inputElements-1 > math.MaxInt32 {
		return nil, fmt.Errorf("%w: %d elements", ErrOffsetOverflow, inputElements)
	}

	b, c, w := g.BlockSize, g.Channels, g.Width
	template := make([]int32, g.BlockChannels())
	for k := 0; k < c; k++ {
		for i := 0; i < b; i++ {
			for j := 0; j < b; j++ {
				var pos int
				switch mode {
				case BlockMajor:
					pos = (i*b+j)*c + k
				default:
					pos = i*b + j + k*b*b
				}
				template[pos] = int32(k + j*c + i*w*c) //nolint:gosec // G115: bounded by inputElements
			}
		}
	}

	m := &IndexMap{
		Shape:   g.OutputShape(),
		Offsets: make([]int32, inputElements),
	}
	n := len(template)
	for j := 0; j < g.BlockHeight; j++ {
		for k := 0; k < g.BlockWidth; k++ {
			base := int32(j*g.BlockRowSurface*c + k*b*c) //nolint:gosec // G115: bounded by inputElements
			dst := m.Offsets[(j*g.BlockWidth+k)*n : (j*g.BlockWidth+k+1)*n]
			for t, off := range template {
				dst[t] = off + base
			}
		}
	}
	return m, nil
}

// Len returns the number of entries.
func (m *IndexMap) Len() int {
	return len(m.Offsets)
}

// IsPermutation reports whether Offsets is a permutation of [0, Len()).
func (m *IndexMap) IsPermutation() bool {
	seen := make([]bool, len(m.Offsets))
	for _, off := range m.Offsets {
		if off < 0 || int(off) >= len(seen) || seen[off] {
			return false
		}
		seen[off] = true
	}
	return true
}

// Invert returns the inverse permutation, laid out over shape.
// The result maps each element of m's input to its position in m's output.
func (m *IndexMap) Invert(shape tensor.Shape) (*IndexMap, error) {
	if shape.NumElements() != len(m.Offsets) {
		return nil, fmt.Errorf("invert: shape %v holds %d elements, map has %d", shape, shape.NumElements(), len(m.Offsets))
	}
	if !m.IsPermutation() {
		return nil, errors.New("invert: index map is not a permutation")
	}
	inv := &IndexMap{
		Shape:   shape.Clone(),
		Offsets: make([]int32, len(m.Offsets)),
	}
	for pos, off := range m.Offsets {
		inv.Offsets[off] = int32(pos) //nolint:gosec // G115: pos < len(Offsets) <= MaxInt32+1
	}
	return inv, nil
}

// Equal reports whether two maps have the same shape and offsets.
func (m *IndexMap) Equal(other *IndexMap) bool {
	if other == nil || !m.Shape.Equal(other.Shape) || len(m.Offsets) != len(other.Offsets) {
		return false
	}
	for i := range m.Offsets {
		if m.Offsets[i] != other.Offsets[i] {
			return false
		}
	}
	return true
}

// Tensor returns the map as an int32 host tensor of logical shape Shape.
func (m *IndexMap) Tensor() (*tensor.RawTensor, error) {
	return tensor.FromSlice(m.Offsets, m.Shape)
}

// Apply gathers src (row-major, len == Len()) through the map on the host.
func Apply[T any](m *IndexMap, src []T) ([]T, error) {
	if len(src) < len(m.Offsets) {
		return nil, fmt.Errorf("apply: source has %d elements, map needs %d", len(src), len(m.Offsets))
	}
	out := make([]T, len(m.Offsets))
	for i, off := range m.Offsets {
		out[i] = src[off]
	}
	return out, nil
}
