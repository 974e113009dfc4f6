package nn

import (
	"github.com/born-ml/spacetodepth/internal/tensor"
)

// SpaceToDepth moves each b×b spatial block of an (H, W, C) tensor into
// b²·C channels of a single output location, giving (H/b, W/b, C·b²).
//
// Example:
//
//	acc := cpu.New()
//	layer, err := nn.NewSpaceToDepth(nn.Config{BlockSize: 2}, acc)
//	if err != nil { ... }
//	defer layer.Release()
//	y, err := layer.Call(x) // x: (4, 4, 1) -> y: (2, 2, 4)
type SpaceToDepth struct {
	*layoutLayer
}

// NewSpaceToDepth creates a space-to-depth layer on acc.
// acc may be nil, in which case only the host path is available.
func NewSpaceToDepth(cfg Config, acc tensor.Accelerator) (*SpaceToDepth, error) {
	l, err := newLayoutLayer(cfg, spaceToDepth{blockSize: cfg.BlockSize, mode: cfg.Mode}, acc)
	if err != nil {
		return nil, err
	}
	return &SpaceToDepth{layoutLayer: l}, nil
}

// Compile-time check that SpaceToDepth implements Layer.
var _ Layer = (*SpaceToDepth)(nil)

type spaceToDepth struct {
	blockSize int
	mode      Mode
}

func (spaceToDepth) kind() string { return "space_to_depth" }

func (p spaceToDepth) plan(spatial tensor.Shape) (CacheKey, tensor.Shape, error) {
	g, err := NewBlockGeometry(spatial, p.blockSize)
	if err != nil {
		return CacheKey{}, nil, err
	}
	return newCacheKey(spatial, p.blockSize, p.mode), g.OutputShape(), nil
}

func (p spaceToDepth) build(key CacheKey) (*IndexMap, error) {
	g, err := NewBlockGeometry(tensor.Shape{key.Height, key.Width, key.Channels}, key.BlockSize)
	if err != nil {
		return nil, err
	}
	return BuildSpaceToDepthMap(g, key.Mode)
}
