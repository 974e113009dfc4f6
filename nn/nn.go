// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/spacetodepth/internal/nn"
	"github.com/born-ml/spacetodepth/internal/tensor"
)

// Layer is a tensor layout transform that runs on an accelerator.
type Layer = nn.Layer

// Config configures a layout layer.
type Config = nn.Config

// Mode selects the channel order inside a block.
type Mode = nn.Mode

// Channel orders.
const (
	ChannelMajor = nn.ChannelMajor
	BlockMajor   = nn.BlockMajor
)

// DefaultConfig returns block size 2 in ChannelMajor order.
func DefaultConfig() Config {
	return nn.DefaultConfig()
}

// ParseMode parses "CRD"/"channel_major" or "DCR"/"block_major".
func ParseMode(s string) (Mode, error) {
	return nn.ParseMode(s)
}

// Layers

// SpaceToDepth turns (H, W, C) into (H/b, W/b, C·b²).
type SpaceToDepth = nn.SpaceToDepth

// NewSpaceToDepth creates a space-to-depth layer. acc may be nil for host-only use.
//
// Example:
//
//	acc := cpu.New()
//	layer, err := nn.NewSpaceToDepth(nn.Config{BlockSize: 2, Mode: nn.BlockMajor}, acc)
func NewSpaceToDepth(cfg Config, acc tensor.Accelerator) (*SpaceToDepth, error) {
	return nn.NewSpaceToDepth(cfg, acc)
}

// DepthToSpace turns (H, W, C·b²) into (H·b, W·b, C).
type DepthToSpace = nn.DepthToSpace

// NewDepthToSpace creates a depth-to-space layer. acc may be nil for host-only use.
func NewDepthToSpace(cfg Config, acc tensor.Accelerator) (*DepthToSpace, error) {
	return nn.NewDepthToSpace(cfg, acc)
}

// Sequential chains layers, keeping intermediate results on the device.
type Sequential = nn.Sequential

// NewSequential creates a Sequential container and wires its layers.
func NewSequential(layers ...Layer) *Sequential {
	return nn.NewSequential(layers...)
}

// Index maps

// IndexMap holds the source offset of every output element.
type IndexMap = nn.IndexMap

// BlockGeometry holds the constants derived from an input shape and block size.
type BlockGeometry = nn.BlockGeometry

// NewBlockGeometry validates an (H, W, C) shape against a block size.
func NewBlockGeometry(in tensor.Shape, blockSize int) (BlockGeometry, error) {
	return nn.NewBlockGeometry(in, blockSize)
}

// BuildSpaceToDepthMap computes the space-to-depth index map.
func BuildSpaceToDepthMap(g BlockGeometry, mode Mode) (*IndexMap, error) {
	return nn.BuildSpaceToDepthMap(g, mode)
}

// Errors

// Error describes a failed layer call.
type Error = nn.Error

// Error kinds.
var (
	ErrConfiguration   = nn.ErrConfiguration
	ErrUnsupportedPath = nn.ErrUnsupportedPath
	ErrResource        = nn.ErrResource
)
