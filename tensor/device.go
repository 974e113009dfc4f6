// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/born-ml/spacetodepth/internal/tensor"

// Accelerator executes texture-based compute kernels.
//
// Implementations:
//   - backend/cpu: host reference device that emulates texture compute
//   - backend/webgpu: GPU compute via WebGPU
type Accelerator = tensor.Accelerator

// Texture is a 2-D device-resident array of texels.
type Texture = tensor.Texture

// TextureFormat is the element format of a texture.
type TextureFormat = tensor.TextureFormat

// Kernel describes a compute kernel with WGSL source and a host implementation.
type Kernel = tensor.Kernel

// Texture formats.
const (
	FormatFloat32 = tensor.FormatFloat32
	FormatFloat16 = tensor.FormatFloat16
	FormatInt32   = tensor.FormatInt32
)

// Device errors.
var (
	ErrUnsupportedFormat = tensor.ErrUnsupportedFormat
	ErrTextureTooLarge   = tensor.ErrTextureTooLarge
	ErrForeignTexture    = tensor.ErrForeignTexture
	ErrTextureReleased   = tensor.ErrTextureReleased
)
