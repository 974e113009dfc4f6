package nn

import (
	"fmt"

	"github.com/born-ml/spacetodepth/internal/tensor"
)

// DepthToSpace is the inverse of SpaceToDepth: (H, W, C·b²) becomes
// (H·b, W·b, C). With the same block size and mode it undoes SpaceToDepth exactly.
type DepthToSpace struct {
	*layoutLayer
}

// NewDepthToSpace creates a depth-to-space layer on acc.
// acc may be nil, in which case only the host path is available.
func NewDepthToSpace(cfg Config, acc tensor.Accelerator) (*DepthToSpace, error) {
	l, err := newLayoutLayer(cfg, depthToSpace{blockSize: cfg.BlockSize, mode: cfg.Mode}, acc)
	if err != nil {
		return nil, err
	}
	return &DepthToSpace{layoutLayer: l}, nil
}

// Compile-time check that DepthToSpace implements Layer.
var _ Layer = (*DepthToSpace)(nil)

type depthToSpace struct {
	blockSize int
	mode      Mode
}

func (depthToSpace) kind() string { return "depth_to_space" }

// spatialOutput returns (H·b, W·b, C/b²) for an (H, W, C) input.
func (p depthToSpace) spatialOutput(spatial tensor.Shape) (tensor.Shape, error) {
	b := p.blockSize
	if spatial[2]%(b*b) != 0 {
		return nil, fmt.Errorf("block size %d: channels %d not divisible by %d", b, spatial[2], b*b)
	}
	return tensor.Shape{spatial[0] * b, spatial[1] * b, spatial[2] / (b * b)}, nil
}

func (p depthToSpace) plan(spatial tensor.Shape) (CacheKey, tensor.Shape, error) {
	out, err := p.spatialOutput(spatial)
	if err != nil {
		return CacheKey{}, nil, err
	}
	return newCacheKey(spatial, p.blockSize, p.mode), out, nil
}

// build inverts the space-to-depth map whose output is this layer's input.
func (p depthToSpace) build(key CacheKey) (*IndexMap, error) {
	out, err := p.spatialOutput(tensor.Shape{key.Height, key.Width, key.Channels})
	if err != nil {
		return nil, err
	}
	g, err := NewBlockGeometry(out, key.BlockSize)
	if err != nil {
		return nil, err
	}
	forward, err := BuildSpaceToDepthMap(g, key.Mode)
	if err != nil {
		return nil, err
	}
	return forward.Invert(g.InputShape())
}
