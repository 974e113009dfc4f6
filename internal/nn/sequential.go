package nn

import (
	"fmt"

	"github.com/born-ml/spacetodepth/internal/tensor"
)

// Sequential chains layers so each layer's output becomes the next layer's input.
//
// Every layer but the last is wired to its successor, so intermediate
// results stay in device textures and only the last layer transfers back
// to the host.
//
// Example:
//
//	s2d, _ := nn.NewSpaceToDepth(nn.Config{BlockSize: 2}, acc)
//	d2s, _ := nn.NewDepthToSpace(nn.Config{BlockSize: 2}, acc)
//	model := nn.NewSequential(s2d, d2s)
//	defer model.Release()
//
//	output, err := model.Call(input) // output == input
type Sequential struct {
	layers []Layer
}

// NewSequential creates a Sequential container and wires its layers.
func NewSequential(layers ...Layer) *Sequential {
	s := &Sequential{}
	for _, l := range layers {
		s.Add(l)
	}
	return s
}

// Add appends a layer and makes it the new terminal layer.
func (s *Sequential) Add(layer Layer) {
	if n := len(s.layers); n > 0 {
		s.layers[n-1].SetOutbound(layer.Name())
	}
	layer.SetOutbound()
	s.layers = append(s.layers, layer)
}

// Len returns the number of layers.
func (s *Sequential) Len() int {
	return len(s.layers)
}

// Layer returns the layer at index.
//
// Panics if index is out of bounds.
func (s *Sequential) Layer(index int) Layer {
	if index < 0 || index >= len(s.layers) {
		panic("Sequential.Layer: index out of bounds")
	}
	return s.layers[index]
}

// Call runs every layer on its accelerator.
func (s *Sequential) Call(input *tensor.RawTensor) (*tensor.RawTensor, error) {
	return s.run(input, Layer.Call)
}

// CallHost runs every layer on the host.
func (s *Sequential) CallHost(input *tensor.RawTensor) (*tensor.RawTensor, error) {
	return s.run(input, Layer.CallHost)
}

func (s *Sequential) run(input *tensor.RawTensor, call func(Layer, *tensor.RawTensor) (*tensor.RawTensor, error)) (*tensor.RawTensor, error) {
	output := input
	owned := false
	for i, l := range s.layers {
		next, err := call(l, output)
		if owned {
			output.Release()
		}
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		// Outputs returned with a texture belong to the layer that made them.
		owned = !next.HasTexture()
		output = next
	}
	return output, nil
}

// OutputShape folds OutputShape over the layers.
func (s *Sequential) OutputShape(input tensor.Shape) (tensor.Shape, error) {
	shape := input
	for i, l := range s.layers {
		out, err := l.OutputShape(shape)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		shape = out
	}
	return shape, nil
}

// Release releases every layer.
func (s *Sequential) Release() {
	for _, l := range s.layers {
		l.Release()
	}
}
