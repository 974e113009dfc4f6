// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the WebGPU accelerator.
//
// Textures are GPU storage buffers and kernels are WGSL compute shaders.
// The device is built on Windows; elsewhere New returns ErrUnavailable.
//
// Example:
//
//	var acc tensor.Accelerator = cpu.New()
//	if webgpu.IsAvailable() {
//	    gpu, err := webgpu.New()
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer gpu.Release()
//	    acc = gpu
//	}
package webgpu

import (
	internalwebgpu "github.com/born-ml/spacetodepth/internal/backend/webgpu"
	"github.com/born-ml/spacetodepth/tensor"
)

// Backend is the WebGPU accelerator.
type Backend = internalwebgpu.Backend

// Compile-time check that Backend implements tensor.Accelerator.
var _ tensor.Accelerator = (*Backend)(nil)

// ErrUnavailable is returned when no WebGPU adapter or native library is present.
var ErrUnavailable = internalwebgpu.ErrUnavailable

// Config controls the WebGPU device.
type Config = internalwebgpu.Config

// DefaultConfig returns the default WebGPU device configuration.
func DefaultConfig() Config {
	return internalwebgpu.DefaultConfig()
}

// New creates a WebGPU accelerator. Call Release when done.
func New() (*Backend, error) {
	return internalwebgpu.New()
}

// NewWithConfig creates a WebGPU accelerator with cfg.
func NewWithConfig(cfg Config) (*Backend, error) {
	return internalwebgpu.NewWithConfig(cfg)
}

// IsAvailable reports whether a WebGPU adapter can be created.
func IsAvailable() bool {
	return internalwebgpu.IsAvailable()
}

// ListAdapters describes the available adapters.
func ListAdapters() ([]string, error) {
	return internalwebgpu.ListAdapters()
}
