// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the space-to-depth layer and its companions.
//
// SpaceToDepth moves every b×b spatial block of an (H, W, C) tensor into
// the channel dimension, giving (H/b, W/b, C·b²). Nothing is lost or
// duplicated: the layer is a fixed permutation of the input elements,
// computed once per input shape as an index map and applied on the device
// by a gather kernel.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/spacetodepth/backend/cpu"
//	    "github.com/born-ml/spacetodepth/nn"
//	    "github.com/born-ml/spacetodepth/tensor"
//	)
//
//	func main() {
//	    acc := cpu.New()
//	    layer, err := nn.NewSpaceToDepth(nn.Config{BlockSize: 2}, acc)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer layer.Release()
//
//	    x, _ := tensor.Arange(tensor.Shape{4, 4, 1})
//	    y, err := layer.Call(x) // (2, 2, 4)
//	}
//
// # Errors
//
// Failures are *Error values. Match the kind with errors.Is:
//   - ErrConfiguration: block size or input shape the layer cannot handle
//   - ErrUnsupportedPath: host execution requested without HostFallback
//   - ErrResource: device allocation, transfer or dispatch failed
package nn
