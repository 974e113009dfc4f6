package nn

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/born-ml/spacetodepth/internal/tensor"
	"github.com/google/uuid"
	"github.com/x448/float16"
)

// Layer is a tensor layout transform that runs on an accelerator.
//
// A layer owns the device memory it allocates (index map and output
// textures) until Release is called. Outputs returned by a non-terminal
// layer are that device memory: they stay valid until the next Call or
// Release and must not be released by the caller.
type Layer interface {
	// Name returns the layer name.
	Name() string

	// Call runs the layer on its accelerator.
	Call(x *tensor.RawTensor) (*tensor.RawTensor, error)

	// CallHost runs the layer on the host. It fails with ErrUnsupportedPath
	// unless host fallback is enabled.
	CallHost(x *tensor.RawTensor) (*tensor.RawTensor, error)

	// OutputShape returns the logical output shape for a logical input shape.
	OutputShape(input tensor.Shape) (tensor.Shape, error)

	// SetOutbound records the layers consuming this layer's output.
	// A layer without outbound layers is terminal and hands its result back
	// to the host.
	SetOutbound(names ...string)

	// IsTerminal reports whether the layer has no outbound layers.
	IsTerminal() bool

	// Release frees the device memory held by the layer.
	Release()
}

// Config configures a layout layer.
type Config struct {
	Name         string       // Layer name; generated when empty.
	BlockSize    int          // Spatial block edge b.
	Mode         Mode         // Channel order inside a block.
	HostFallback bool         // Allow CallHost and host execution when no accelerator is attached.
	Logger       *slog.Logger // Defaults to slog.Default().
}

// DefaultConfig returns a configuration with block size 2 in ChannelMajor order.
func DefaultConfig() Config {
	return Config{
		BlockSize: 2,
		Mode:      ChannelMajor,
	}
}

// permutation is the shape algebra of one layout transform.
type permutation interface {
	// kind names the transform, e.g. "space_to_depth".
	kind() string
	// plan validates a spatial (H, W, C) input and returns its cache key and
	// spatial output shape.
	plan(spatial tensor.Shape) (CacheKey, tensor.Shape, error)
	// build computes the index map for key.
	build(key CacheKey) (*IndexMap, error)
}

// layoutLayer runs a permutation through the gather kernel.
type layoutLayer struct {
	name   string
	cfg    Config
	perm   permutation
	acc    tensor.Accelerator
	exec   *gatherExecutor
	logger *slog.Logger

	mu       sync.Mutex
	cache    gatherCache
	outbound []string
}

func newLayoutLayer(cfg Config, perm permutation, acc tensor.Accelerator) (*layoutLayer, error) {
	name := cfg.Name
	if name == "" {
		name = fmt.Sprintf("%s_%s", perm.kind(), uuid.NewString()[:8])
	}
	if cfg.BlockSize <= 0 {
		return nil, configError(name, "config", "block size must be positive, got %d", cfg.BlockSize)
	}
	if cfg.Mode != ChannelMajor && cfg.Mode != BlockMajor {
		return nil, configError(name, "config", "unknown mode %d", cfg.Mode)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	l := &layoutLayer{
		name:   name,
		cfg:    cfg,
		perm:   perm,
		acc:    acc,
		logger: logger.With("layer", name),
	}
	if acc != nil {
		l.exec = newGatherExecutor(acc)
	}
	return l, nil
}

// Name returns the layer name.
func (l *layoutLayer) Name() string {
	return l.name
}

// BlockSize returns the configured block size.
func (l *layoutLayer) BlockSize() int {
	return l.cfg.BlockSize
}

// Mode returns the configured channel order.
func (l *layoutLayer) Mode() Mode {
	return l.cfg.Mode
}

// SetOutbound records the consumers of the layer output.
func (l *layoutLayer) SetOutbound(names ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.outbound = append([]string(nil), names...)
}

// Outbound returns the consumers of the layer output.
func (l *layoutLayer) Outbound() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.outbound...)
}

// IsTerminal reports whether the layer has no consumers.
func (l *layoutLayer) IsTerminal() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.outbound) == 0
}

// CacheStats returns the index map cache hit and miss counts.
func (l *layoutLayer) CacheStats() (hits, misses int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cache.hits, l.cache.misses
}

// IndexMap returns the cached index map, or nil before the first call.
func (l *layoutLayer) IndexMap() *IndexMap {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cache.indexMap
}

// OutputShape derives the logical output shape from a logical input shape.
func (l *layoutLayer) OutputShape(input tensor.Shape) (tensor.Shape, error) {
	_, out, err := l.negotiate(input)
	return out, err
}

// Release frees the cached textures. The layer stays usable.
func (l *layoutLayer) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache.release()
}

// negotiate maps a logical input shape to its cache key and logical output shape.
func (l *layoutLayer) negotiate(logical tensor.Shape) (CacheKey, tensor.Shape, error) {
	if err := logical.Validate(); err != nil {
		return CacheKey{}, nil, configError(l.name, "negotiate", "%v", err)
	}
	spatial, err := spatialShape(logical)
	if err != nil {
		return CacheKey{}, nil, configError(l.name, "negotiate", "%v", err)
	}
	key, out, err := l.perm.plan(spatial)
	if err != nil {
		return CacheKey{}, nil, configError(l.name, "negotiate", "%v", err)
	}
	return key, withBatch(logical, out), nil
}

// ensureIndexMap makes the cache hold the index map for key.
// On failure the previous state is kept.
func (l *layoutLayer) ensureIndexMap(key CacheKey) error {
	if l.cache.lookup(key) {
		l.logger.Debug("index map cache hit", "key", key)
		return nil
	}
	m, err := l.perm.build(key)
	if err != nil {
		return resourceError(l.name, "index map", err)
	}
	l.cache.store(key, m)
	l.logger.Debug("index map built", "key", key, "elements", m.Len())
	return nil
}

// ensureTextures uploads the index map and allocates an output of the given
// logical shape and type, reusing cached textures where they still fit.
func (l *layoutLayer) ensureTextures(outShape tensor.Shape, dtype tensor.DataType) error {
	if l.cache.indices == nil {
		m := l.cache.indexMap
		indices, err := newDeviceTensor(l.acc, m.Shape, tensor.Int32, func(t *tensor.RawTensor) {
			copy(t.AsInt32(), m.Offsets)
		})
		if err != nil {
			return resourceError(l.name, "upload index map", err)
		}
		l.cache.indices = indices
		l.logger.Debug("index map uploaded", "physical", indices.Shape(), "layout", indices.Layout())
	}

	if out := l.cache.output; out != nil && (out.DType() != dtype || !out.LogicalShape().Equal(outShape)) {
		l.cache.dropOutput()
	}
	if l.cache.output == nil {
		output, err := newDeviceTensor(l.acc, outShape, dtype, nil)
		if err != nil {
			return resourceError(l.name, "allocate output", err)
		}
		l.cache.output = output
		l.logger.Debug("output allocated", "shape", outShape, "physical", output.Shape(), "layout", output.Layout())
	}
	return nil
}

// Call runs the layer on the accelerator. Without one it falls back to
// the host when allowed and fails with ErrUnsupportedPath otherwise.
func (l *layoutLayer) Call(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	if x == nil {
		return nil, configError(l.name, "call", "nil input")
	}
	if l.acc == nil {
		if l.cfg.HostFallback {
			return l.CallHost(x)
		}
		return nil, &Error{Layer: l.name, Op: "call", Kind: ErrUnsupportedPath, Err: errors.New("no accelerator attached")}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	logical := InputLogicalShape(x)
	key, outShape, err := l.negotiate(logical)
	if err != nil {
		return nil, err
	}
	if err := l.ensureIndexMap(key); err != nil {
		return nil, err
	}
	if err := prepareInput(x, l.acc); err != nil {
		return nil, resourceError(l.name, "upload input", err)
	}
	if err := l.ensureTextures(outShape, x.DType()); err != nil {
		return nil, err
	}
	if err := l.exec.run(x, l.cache.indices, l.cache.output); err != nil {
		return nil, resourceError(l.name, "dispatch", err)
	}

	if len(l.outbound) > 0 {
		return l.cache.output, nil
	}
	host, err := l.cache.output.Download(l.acc)
	if err != nil {
		return nil, resourceError(l.name, "transfer", err)
	}
	l.logger.Debug("terminal transfer", "shape", host.Shape())
	return host, nil
}

// CallHost runs the permutation on the host through the same index map.
func (l *layoutLayer) CallHost(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	if !l.cfg.HostFallback {
		return nil, &Error{Layer: l.name, Op: "call host", Kind: ErrUnsupportedPath, Err: errors.New("host fallback disabled")}
	}
	if x == nil {
		return nil, configError(l.name, "call host", "nil input")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	logical := InputLogicalShape(x)
	key, outShape, err := l.negotiate(logical)
	if err != nil {
		return nil, err
	}
	if err := l.ensureIndexMap(key); err != nil {
		return nil, err
	}

	src := x
	if x.Device() == tensor.Accelerated {
		if l.acc == nil {
			return nil, resourceError(l.name, "transfer", errors.New("input is device resident and no accelerator is attached"))
		}
		if src, err = x.Download(l.acc); err != nil {
			return nil, resourceError(l.name, "transfer", err)
		}
		defer src.Release()
	}

	var out *tensor.RawTensor
	switch src.DType() {
	case tensor.Float32:
		out, err = permuteHost[float32](src, l.cache.indexMap, outShape)
	case tensor.Float16:
		out, err = permuteHost[float16.Float16](src, l.cache.indexMap, outShape)
	case tensor.Int32:
		out, err = permuteHost[int32](src, l.cache.indexMap, outShape)
	default:
		err = fmt.Errorf("unsupported dtype %s", src.DType())
	}
	if err != nil {
		return nil, configError(l.name, "call host", "%v", err)
	}
	return out, nil
}

func permuteHost[T tensor.DType](x *tensor.RawTensor, m *IndexMap, shape tensor.Shape) (*tensor.RawTensor, error) {
	src, err := tensor.ToSlice[T](x)
	if err != nil {
		return nil, err
	}
	dst, err := Apply(m, src)
	if err != nil {
		return nil, err
	}
	return tensor.FromSlice(dst, shape)
}
