package webgpu

import "errors"

// ErrUnavailable is returned when no WebGPU adapter or native library is present.
var ErrUnavailable = errors.New("webgpu: not available")
