package layers

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/born-ml/spacetodepth/internal/nn"
	"github.com/born-ml/spacetodepth/internal/tensor"
)

// Constructor builds a layer from a node.
type Constructor func(ctx *Context, node *Node) (nn.Layer, error)

// Context provides the device and shared settings for built layers.
type Context struct {
	Accelerator  tensor.Accelerator // May be nil for host-only layers.
	HostFallback bool
	Logger       *slog.Logger
}

// Registry maps layer classes to constructors.
type Registry struct {
	constructors map[string]Constructor
}

// NewRegistry creates a registry with the layout layers registered.
func NewRegistry() *Registry {
	r := &Registry{
		constructors: make(map[string]Constructor),
	}
	r.Register("SpaceToDepth", func(ctx *Context, node *Node) (nn.Layer, error) {
		cfg, err := layerConfig(ctx, node)
		if err != nil {
			return nil, err
		}
		return nn.NewSpaceToDepth(cfg, ctx.Accelerator)
	})
	r.Register("DepthToSpace", func(ctx *Context, node *Node) (nn.Layer, error) {
		cfg, err := layerConfig(ctx, node)
		if err != nil {
			return nil, err
		}
		return nn.NewDepthToSpace(cfg, ctx.Accelerator)
	})
	return r
}

// Register adds or replaces a layer class.
func (r *Registry) Register(class string, c Constructor) {
	r.constructors[class] = c
}

// Get returns the constructor for a layer class.
func (r *Registry) Get(class string) (Constructor, bool) {
	c, ok := r.constructors[class]
	return c, ok
}

// Classes returns the registered layer classes, sorted.
func (r *Registry) Classes() []string {
	classes := make([]string, 0, len(r.constructors))
	for class := range r.constructors {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	return classes
}

// Build constructs the layer described by node and wires its outbound layers.
func (r *Registry) Build(ctx *Context, node *Node) (nn.Layer, error) {
	c, ok := r.constructors[node.Class]
	if !ok {
		return nil, &nn.Error{Layer: node.Name, Op: "build", Kind: nn.ErrConfiguration, Err: fmt.Errorf("unknown layer class %q", node.Class)}
	}
	if ctx == nil {
		ctx = &Context{}
	}
	layer, err := c(ctx, node)
	if err != nil {
		return nil, err
	}
	layer.SetOutbound(node.Outbound...)
	return layer, nil
}

// BuildSequential builds nodes in order and chains them.
// Outbound lists on the nodes are replaced by the chain wiring.
// Layers built before a failure are released.
func (r *Registry) BuildSequential(ctx *Context, nodes []Node) (*nn.Sequential, error) {
	built := make([]nn.Layer, 0, len(nodes))
	for i := range nodes {
		layer, err := r.Build(ctx, &nodes[i])
		if err != nil {
			for _, l := range built {
				l.Release()
			}
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		built = append(built, layer)
	}
	return nn.NewSequential(built...), nil
}

// layerConfig reads block_size (or ONNX blocksize), mode and name.
func layerConfig(ctx *Context, node *Node) (nn.Config, error) {
	cfg := nn.DefaultConfig()
	cfg.Name = node.Name
	cfg.HostFallback = ctx.HostFallback
	cfg.Logger = ctx.Logger

	attr, ok := node.lookup("block_size", "blocksize")
	if !ok {
		return cfg, &nn.Error{Layer: node.Name, Op: "build", Kind: nn.ErrConfiguration, Err: fmt.Errorf("%s: missing block_size", node.Class)}
	}
	if attr.Type != AttrInt || attr.I <= 0 {
		return cfg, &nn.Error{Layer: node.Name, Op: "build", Kind: nn.ErrConfiguration, Err: fmt.Errorf("%s: block_size must be a positive integer", node.Class)}
	}
	cfg.BlockSize = int(attr.I)

	mode, err := nn.ParseMode(GetAttrString(node, "mode", ""))
	if err != nil {
		return cfg, &nn.Error{Layer: node.Name, Op: "build", Kind: nn.ErrConfiguration, Err: err}
	}
	cfg.Mode = mode
	return cfg, nil
}
