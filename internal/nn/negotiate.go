package nn

import (
	"fmt"

	"github.com/born-ml/spacetodepth/internal/tensor"
)

// InputLogicalShape returns the shape x represents, whatever its current
// storage: a host tensor reports its own shape, a flattened texture reports
// the shape it had before flattening, and a native texture reports its
// physical shape.
func InputLogicalShape(x *tensor.RawTensor) tensor.Shape {
	if x.HasTexture() && x.Layout() != tensor.Native {
		return x.OriginalShape().Clone()
	}
	return x.LogicalShape()
}

// spatialShape normalizes a logical shape to (H, W, C).
// Rank 2 is read as a single-channel image and rank 4 needs a batch of 1.
func spatialShape(logical tensor.Shape) (tensor.Shape, error) {
	switch len(logical) {
	case 2:
		return tensor.Shape{logical[0], logical[1], 1}, nil
	case 3:
		return logical.Clone(), nil
	case 4:
		if logical[0] != 1 {
			return nil, fmt.Errorf("batch size %d not supported, want 1", logical[0])
		}
		return logical[1:].Clone(), nil
	default:
		return nil, fmt.Errorf("expected (height, width, channels), got rank %d shape %v", len(logical), logical)
	}
}

// withBatch restores the leading batch dimension when the input had one.
func withBatch(logical, spatial tensor.Shape) tensor.Shape {
	if len(logical) == 4 {
		return append(tensor.Shape{1}, spatial...)
	}
	return spatial
}

// prepareInput gives x a texture on acc.
// Rank <= 2 tensors are uploaded as they are; higher ranks are flattened to
// 2-D first. Tensors that already own a texture are left untouched.
func prepareInput(x *tensor.RawTensor, acc tensor.Accelerator) error {
	if x.HasTexture() {
		return nil
	}
	flattened := false
	if len(x.Shape()) > 2 && x.Layout() == tensor.Native {
		if err := x.ReshapeTo2D(acc.MaxTextureDim()); err != nil {
			return err
		}
		flattened = true
	}
	if err := x.CreateTexture(acc); err != nil {
		if flattened {
			_ = x.ReshapeFrom2D() // no texture, cannot fail
		}
		return err
	}
	return nil
}

// newDeviceTensor builds a host tensor of logical shape, flattens it when
// its rank exceeds 2 and gives it a texture. When fill is set it writes the
// host data, which is then uploaded; otherwise the texture is only
// allocated. Nothing is left allocated on failure.
func newDeviceTensor(acc tensor.Accelerator, shape tensor.Shape, dtype tensor.DataType, fill func(*tensor.RawTensor)) (*tensor.RawTensor, error) {
	t, err := tensor.NewRaw(shape, dtype, tensor.CPU)
	if err != nil {
		return nil, err
	}
	if fill != nil {
		fill(t)
	}
	if len(shape) > 2 {
		if err := t.ReshapeTo2D(acc.MaxTextureDim()); err != nil {
			t.Release()
			return nil, err
		}
	}
	if fill != nil {
		err = t.CreateTexture(acc)
	} else {
		err = t.AllocateTexture(acc)
	}
	if err != nil {
		t.Release()
		return nil, err
	}
	return t, nil
}
