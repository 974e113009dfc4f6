package nn

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/born-ml/spacetodepth/internal/tensor"
)

// gatherShader copies input[indices[t]] to result[t] for every output texel t.
// Texels are moved as raw 32-bit words so float and int data pass through unchanged.
const gatherShader = `
@group(0) @binding(0) var<storage, read> input: array<u32>;
@group(0) @binding(1) var<storage, read> indices: array<i32>;
@group(0) @binding(2) var<storage, read_write> result: array<u32>;

struct Params {
    texels: u32,
    inputCols: i32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>,
        @builtin(num_workgroups) groups: vec3<u32>) {
    let idx = global_id.y * groups.x * 256u + global_id.x;
    if (idx >= params.texels) {
        return;
    }
    let offset = indices[idx];
    let row = offset / params.inputCols;
    let col = offset % params.inputCols;
    result[idx] = input[u32(row * params.inputCols + col)];
}
`

// GatherKernel is the texture gather used by every layout layer.
var GatherKernel = &tensor.Kernel{
	Name:     "gather",
	Source:   gatherShader,
	Inputs:   []string{"input", "indices"},
	Uniforms: []string{"inputCols"},
	Host:     hostGather,
}

var errIndexOutOfRange = errors.New("gather: index outside input texture")

// hostGather is the host implementation of GatherKernel.
func hostGather(inv *tensor.HostInvocation) error {
	input, ok := inv.Inputs["input"]
	if !ok {
		return errors.New("gather: missing input")
	}
	indices, ok := inv.Inputs["indices"]
	if !ok {
		return errors.New("gather: missing indices")
	}
	if indices.Format != tensor.FormatInt32 {
		return fmt.Errorf("gather: indices must be %s, got %s", tensor.FormatInt32, indices.Format)
	}
	if input.Format != inv.Output.Format {
		return fmt.Errorf("gather: input is %s, output is %s", input.Format, inv.Output.Format)
	}
	inputCols := int(inv.Uniforms["inputCols"])
	if inputCols <= 0 {
		return fmt.Errorf("gather: invalid inputCols %d", inputCols)
	}

	texels := inv.Output.Texels()
	if indices.Texels() < texels {
		return fmt.Errorf("gather: %d indices for %d output texels", indices.Texels(), texels)
	}
	size := inv.Output.Format.Size()
	inputTexels := input.Texels()

	return inv.For(texels, func(t int) error {
		offset := int(int32(binary.LittleEndian.Uint32(indices.Data[4*t:]))) //nolint:gosec // G115: bit-preserving u32 -> i32
		row, col := offset/inputCols, offset%inputCols
		src := row*inputCols + col
		if offset < 0 || src >= inputTexels {
			return fmt.Errorf("%w: offset %d, %d texels", errIndexOutOfRange, offset, inputTexels)
		}
		copy(inv.Output.Data[t*size:(t+1)*size], input.Data[src*size:(src+1)*size])
		return nil
	})
}

// gatherExecutor dispatches GatherKernel on one accelerator.
type gatherExecutor struct {
	acc  tensor.Accelerator
	prog tensor.Program
}

func newGatherExecutor(acc tensor.Accelerator) *gatherExecutor {
	return &gatherExecutor{acc: acc}
}

// run gathers input through indices into output. All three must own textures.
func (e *gatherExecutor) run(input, indices, output *tensor.RawTensor) error {
	if !input.HasTexture() || !indices.HasTexture() || !output.HasTexture() {
		return errors.New("gather: input, indices and output need textures")
	}
	if e.prog == nil {
		prog, err := e.acc.CompileKernel(GatherKernel)
		if err != nil {
			return fmt.Errorf("compile gather: %w", err)
		}
		e.prog = prog
	}

	inputCols := input.Texture().Cols()
	err := e.acc.Dispatch(e.prog, output.Texture(),
		[]tensor.Binding{
			{Name: "input", Texture: input.Texture()},
			{Name: "indices", Texture: indices.Texture()},
		},
		[]tensor.Uniform{
			{Name: "inputCols", Value: int32(inputCols)}, //nolint:gosec // G115: bounded by MaxTextureDim
		},
	)
	if err != nil {
		return err
	}
	output.MarkDeviceResident()
	return nil
}
