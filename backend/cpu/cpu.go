// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the host reference accelerator.
//
// Textures live in host memory and kernels run their Go implementation, so
// every layer can run and be tested without a GPU.
//
// Example:
//
//	acc := cpu.New()
//	layer, err := nn.NewSpaceToDepth(nn.Config{BlockSize: 2}, acc)
package cpu

import (
	internalcpu "github.com/born-ml/spacetodepth/internal/backend/cpu"
	"github.com/born-ml/spacetodepth/tensor"
)

// DefaultMaxTextureDim is the default texture side limit.
const DefaultMaxTextureDim = internalcpu.DefaultMaxTextureDim

// Backend is the host reference accelerator.
type Backend = internalcpu.CPUBackend

// Config controls the host device.
type Config = internalcpu.Config

// Stats counts device operations.
type Stats = internalcpu.Stats

// Compile-time check that Backend implements tensor.Accelerator.
var _ tensor.Accelerator = (*Backend)(nil)

// New creates a host accelerator with the default configuration.
func New() *Backend {
	return internalcpu.New()
}

// NewWithConfig creates a host accelerator.
func NewWithConfig(cfg Config) *Backend {
	return internalcpu.NewWithConfig(cfg)
}

// DefaultConfig returns the default host device configuration.
func DefaultConfig() Config {
	return internalcpu.DefaultConfig()
}
