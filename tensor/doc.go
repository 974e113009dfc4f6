// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the tensors and device textures used by the layout layers.
//
// # Overview
//
// A RawTensor holds row-major host data and, optionally, a device texture.
// Devices store 2-D textures only, so tensors of rank above 2 are flattened
// before upload:
//   - Flattened2D folds leading dimensions into rows: [prod(shape[:-1]), shape[-1]]
//   - FlattenedSquare2D packs elements into the smallest square when a side
//     would exceed the device limit
//
// Both keep row-major element order and remember the logical shape, so
// LogicalShape always reports what the tensor represents.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/spacetodepth/backend/cpu"
//	    "github.com/born-ml/spacetodepth/tensor"
//	)
//
//	func main() {
//	    acc := cpu.New()
//
//	    x, _ := tensor.Arange(tensor.Shape{4, 4, 3})
//	    _ = x.ReshapeTo2D(acc.MaxTextureDim()) // [16, 3]
//	    _ = x.CreateTexture(acc)
//	    defer x.Release()
//	}
//
// # Supported Data Types
//
//   - float32 (FormatFloat32 textures)
//   - float16 via github.com/x448/float16 (FormatFloat16 textures)
//   - int32 (FormatInt32 textures, used for index maps)
package tensor
