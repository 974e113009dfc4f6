package nn

import (
	"fmt"
	"strings"

	"github.com/born-ml/spacetodepth/internal/tensor"
)

// Mode selects the channel order inside a block.
type Mode int

const (
	// ChannelMajor places input channel k of block pixel (i, j) at output
	// channel k*b² + i*b + j. This is the ONNX DepthToSpace "CRD" order.
	ChannelMajor Mode = iota
	// BlockMajor places it at (i*b + j)*C + k, the TensorFlow and ONNX
	// SpaceToDepth order ("DCR").
	BlockMajor
)

// String returns the ONNX name of the mode.
func (m Mode) String() string {
	switch m {
	case ChannelMajor:
		return "CRD"
	case BlockMajor:
		return "DCR"
	default:
		return "unknown"
	}
}

// ParseMode parses "CRD"/"channel_major" or "DCR"/"block_major".
// The empty string selects ChannelMajor.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "crd", "channel_major":
		return ChannelMajor, nil
	case "dcr", "block_major":
		return BlockMajor, nil
	default:
		return 0, fmt.Errorf("unknown mode %q", s)
	}
}

// BlockGeometry holds the constants derived from an (H, W, C) input and a block size.
type BlockGeometry struct {
	Height    int
	Width     int
	Channels  int
	BlockSize int

	BlockHeight     int // Height / BlockSize: output rows.
	BlockWidth      int // Width / BlockSize: output columns.
	BlockRowSurface int // Input pixels spanned by one row of blocks: BlockSize * Width.
}

// NewBlockGeometry validates in = (H, W, C) against blockSize.
// H and W must be exact multiples of blockSize.
func NewBlockGeometry(in tensor.Shape, blockSize int) (BlockGeometry, error) {
	if blockSize <= 0 {
		return BlockGeometry{}, fmt.Errorf("block size must be positive, got %d", blockSize)
	}
	if len(in) != 3 {
		return BlockGeometry{}, fmt.Errorf("expected (height, width, channels), got %v", in)
	}
	if err := in.Validate(); err != nil {
		return BlockGeometry{}, err
	}
	h, w, c := in[0], in[1], in[2]
	if h%blockSize != 0 {
		return BlockGeometry{}, fmt.Errorf("block size %d does not divide height %d", blockSize, h)
	}
	if w%blockSize != 0 {
		return BlockGeometry{}, fmt.Errorf("block size %d does not divide width %d", blockSize, w)
	}

	return BlockGeometry{
		Height:          h,
		Width:           w,
		Channels:        c,
		BlockSize:       blockSize,
		BlockHeight:     h / blockSize,
		BlockWidth:      w / blockSize,
		BlockRowSurface: blockSize * w,
	}, nil
}

// InputShape returns (H, W, C).
func (g BlockGeometry) InputShape() tensor.Shape {
	return tensor.Shape{g.Height, g.Width, g.Channels}
}

// OutputShape returns (H/b, W/b, C*b²).
func (g BlockGeometry) OutputShape() tensor.Shape {
	return tensor.Shape{g.BlockHeight, g.BlockWidth, g.Channels * g.BlockSize * g.BlockSize}
}

// BlockChannels returns the number of output channels per block, C*b².
func (g BlockGeometry) BlockChannels() int {
	return g.Channels * g.BlockSize * g.BlockSize
}
