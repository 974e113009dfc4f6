package webgpu

const (
	// DefaultMaxTextureDim bounds texture rows and columns.
	DefaultMaxTextureDim = 8192

	defaultPoolPerClass = 16
)

// Config controls the WebGPU device.
type Config struct {
	MaxTextureDim int  // Largest texture row/column count.
	LowPower      bool // Prefer an integrated adapter over a discrete one.
	PoolPerClass  int  // Free output buffers kept per size class; 0 disables pooling.
}

// DefaultConfig returns the default WebGPU device configuration.
func DefaultConfig() Config {
	return Config{
		MaxTextureDim: DefaultMaxTextureDim,
		PoolPerClass:  defaultPoolPerClass,
	}
}
