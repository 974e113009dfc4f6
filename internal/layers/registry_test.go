package layers

import (
	"errors"
	"testing"

	"github.com/born-ml/spacetodepth/internal/backend/cpu"
	"github.com/born-ml/spacetodepth/internal/nn"
	"github.com/born-ml/spacetodepth/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()

	assert.Equal(t, []string{"DepthToSpace", "SpaceToDepth"}, r.Classes())
	for _, class := range r.Classes() {
		_, ok := r.Get(class)
		assert.True(t, ok, class)
	}
	_, ok := r.Get("Conv")
	assert.False(t, ok)
}

func TestBuild(t *testing.T) {
	r := NewRegistry()
	ctx := &Context{Accelerator: cpu.New()}

	layer, err := r.Build(ctx, &Node{
		Name:       "s2d",
		Class:      "SpaceToDepth",
		Attributes: []Attribute{IntAttr("blocksize", 3), StringAttr("mode", "DCR")},
		Outbound:   []string{"head"},
	})
	require.NoError(t, err)
	defer layer.Release()

	s2d, ok := layer.(*nn.SpaceToDepth)
	require.True(t, ok)
	assert.Equal(t, "s2d", s2d.Name())
	assert.Equal(t, 3, s2d.BlockSize())
	assert.Equal(t, nn.BlockMajor, s2d.Mode())
	assert.False(t, s2d.IsTerminal())

	shape, err := layer.OutputShape(tensor.Shape{6, 3, 2})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 1, 18}, shape)
}

func TestBuild_Errors(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name string
		node Node
	}{
		{"unknown class", Node{Class: "Conv", Attributes: []Attribute{IntAttr("block_size", 2)}}},
		{"missing block size", Node{Class: "SpaceToDepth"}},
		{"zero block size", Node{Class: "SpaceToDepth", Attributes: []Attribute{IntAttr("block_size", 0)}}},
		{"string block size", Node{Class: "DepthToSpace", Attributes: []Attribute{StringAttr("block_size", "two")}}},
		{"bad mode", Node{Class: "DepthToSpace", Attributes: []Attribute{IntAttr("block_size", 2), StringAttr("mode", "XYZ")}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Build(nil, &tt.node)
			require.Error(t, err)
			assert.True(t, errors.Is(err, nn.ErrConfiguration), err.Error())
		})
	}
}

func TestBuildSequential(t *testing.T) {
	r := NewRegistry()
	acc := cpu.New()
	ctx := &Context{Accelerator: acc}

	attrs, err := ParseAttributes("block_size=2, mode=CRD")
	require.NoError(t, err)

	model, err := r.BuildSequential(ctx, []Node{
		{Name: "down", Class: "SpaceToDepth", Attributes: attrs},
		{Name: "up", Class: "DepthToSpace", Attributes: attrs},
	})
	require.NoError(t, err)
	defer model.Release()

	x, err := tensor.Arange(tensor.Shape{4, 6, 2})
	require.NoError(t, err)
	defer x.Release()

	y, err := model.Call(x)
	require.NoError(t, err)
	defer y.Release()

	want, err := tensor.ToSlice[float32](x)
	require.NoError(t, err)
	got, err := tensor.ToSlice[float32](y)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 1, acc.Stats().Readbacks)
}

func TestBuildSequential_ReleasesOnFailure(t *testing.T) {
	r := NewRegistry()
	_, err := r.BuildSequential(&Context{}, []Node{
		{Class: "SpaceToDepth", Attributes: []Attribute{IntAttr("block_size", 2)}},
		{Class: "Pad"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node 1")
}

func TestParseAttributes(t *testing.T) {
	attrs, err := ParseAttributes("block_size=4,mode=dcr,,name = x")
	require.NoError(t, err)
	assert.Equal(t, []Attribute{
		IntAttr("block_size", 4),
		StringAttr("mode", "dcr"),
		StringAttr("name", "x"),
	}, attrs)

	node := &Node{Attributes: attrs}
	assert.Equal(t, int64(4), GetAttrInt(node, "block_size", 0))
	assert.Equal(t, int64(9), GetAttrInt(node, "missing", 9))
	assert.Equal(t, "dcr", GetAttrString(node, "mode", ""))

	_, err = ParseAttributes("block_size")
	assert.Error(t, err)
	_, err = ParseAttributes("=2")
	assert.Error(t, err)
}
