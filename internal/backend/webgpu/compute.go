//go:build windows

package webgpu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unsafe"

	"github.com/born-ml/spacetodepth/internal/tensor"
	"github.com/go-webgpu/webgpu/wgpu"
)

// workgroupSize is the number of threads per workgroup every kernel declares.
const workgroupSize = 256

// maxWorkgroupsPerDim is the WebGPU default maxComputeWorkgroupsPerDimension.
const maxWorkgroupsPerDim = 65535

// textureUsage is the usage of every texture buffer.
const textureUsage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst

// program is a compiled WGSL kernel.
type program struct {
	kernel   *tensor.Kernel
	shader   *wgpu.ShaderModule
	pipeline *wgpu.ComputePipeline
}

func (p *program) release() {
	p.pipeline.Release()
	p.shader.Release()
}

func (p *program) Name() string { return p.kernel.Name }

// guard turns a panic raised by the native library into an error.
func guard(op string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("webgpu: %s: %v", op, r)
	}
}

// checkTexture validates a texture request against device limits.
func (b *Backend) checkTexture(rows, cols int, format tensor.TextureFormat) (uint64, error) {
	if format != tensor.FormatFloat32 && format != tensor.FormatInt32 {
		return 0, fmt.Errorf("webgpu: %s: %w", format, tensor.ErrUnsupportedFormat)
	}
	if rows <= 0 || cols <= 0 {
		return 0, fmt.Errorf("webgpu: invalid texture size %dx%d", rows, cols)
	}
	if rows > b.cfg.MaxTextureDim || cols > b.cfg.MaxTextureDim {
		return 0, fmt.Errorf("webgpu: %dx%d: %w (max %d)", rows, cols, tensor.ErrTextureTooLarge, b.cfg.MaxTextureDim)
	}
	size := uint64(rows) * uint64(cols) * uint64(format.Size()) //nolint:gosec // G115: checked positive above
	if size > maxStorageBinding {
		return 0, fmt.Errorf("webgpu: %d bytes: %w", size, tensor.ErrTextureTooLarge)
	}
	return size, nil
}

// CreateTexture creates a storage buffer and uploads data.
func (b *Backend) CreateTexture(data []byte, rows, cols int, format tensor.TextureFormat) (tex tensor.Texture, err error) {
	size, err := b.checkTexture(rows, cols, format)
	if err != nil {
		return nil, err
	}
	if uint64(len(data)) != size {
		return nil, fmt.Errorf("webgpu: upload of %d bytes into %dx%d %s texture (%d bytes)", len(data), rows, cols, format, size)
	}
	defer guard("create texture", &err)

	buffer := b.createBuffer(data, textureUsage)
	b.trackBufferAllocation(size)
	return &texture{backend: b, buffer: buffer, size: size, rows: rows, cols: cols, format: format}, nil
}

// AllocateTexture takes an uninitialized storage buffer from the pool.
func (b *Backend) AllocateTexture(rows, cols int, format tensor.TextureFormat) (tex tensor.Texture, err error) {
	size, err := b.checkTexture(rows, cols, format)
	if err != nil {
		return nil, err
	}
	defer guard("allocate texture", &err)

	buffer, capacity := b.pool.acquire(size)
	b.trackBufferAllocation(size)
	return &texture{backend: b, buffer: buffer, size: size, capacity: capacity, rows: rows, cols: cols, format: format, pooled: true}, nil
}

// ReadTexture reads a texture back to host memory.
func (b *Backend) ReadTexture(t tensor.Texture) (data []byte, err error) {
	tex, err := b.own(t)
	if err != nil {
		return nil, err
	}
	defer guard("read texture", &err)
	return b.readBuffer(tex.buffer, tex.size)
}

// own checks that t is a live texture of this device.
func (b *Backend) own(t tensor.Texture) (*texture, error) {
	tex, ok := t.(*texture)
	if !ok || tex.backend != b {
		return nil, tensor.ErrForeignTexture
	}
	if tex.released {
		return nil, tensor.ErrTextureReleased
	}
	return tex, nil
}

// CompileKernel compiles the WGSL source of k into a compute pipeline.
// Results are cached by kernel name.
func (b *Backend) CompileKernel(k *tensor.Kernel) (p tensor.Program, err error) {
	if k == nil || k.Name == "" {
		return nil, errors.New("webgpu: kernel has no name")
	}
	if k.Source == "" {
		return nil, fmt.Errorf("webgpu: kernel %s has no WGSL source", k.Name)
	}

	b.mu.RLock()
	cached, ok := b.programs[k.Name]
	b.mu.RUnlock()
	if ok {
		return cached, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	// Another goroutine may have compiled it while we waited.
	if cached, ok := b.programs[k.Name]; ok {
		return cached, nil
	}

	defer guard("compile "+k.Name, &err)
	shader := b.device.CreateShaderModuleWGSL(k.Source)
	prog := &program{
		kernel: k,
		shader: shader,
		// Auto layout: bindings are derived from the shader.
		pipeline: b.device.CreateComputePipelineSimple(nil, shader, "main"),
	}
	b.programs[k.Name] = prog
	return prog, nil
}

// Dispatch runs p once per output texel and waits for the queue to accept it.
// Queue ordering makes the result visible to a following ReadTexture.
func (b *Backend) Dispatch(p tensor.Program, output tensor.Texture, inputs []tensor.Binding, uniforms []tensor.Uniform) (err error) {
	prog, ok := p.(*program)
	if !ok {
		return errors.New("webgpu: program was not compiled by this device")
	}
	k := prog.kernel

	out, err := b.own(output)
	if err != nil {
		return fmt.Errorf("webgpu: %s output: %w", k.Name, err)
	}
	bound, err := k.Bind(inputs)
	if err != nil {
		return fmt.Errorf("webgpu: %w", err)
	}
	values, err := k.UniformValues(uniforms)
	if err != nil {
		return fmt.Errorf("webgpu: %w", err)
	}

	texels := out.rows * out.cols
	entries := make([]wgpu.BindGroupEntry, 0, len(bound)+2)
	for i, t := range bound {
		in, err := b.own(t)
		if err != nil {
			return fmt.Errorf("webgpu: %s input %q: %w", k.Name, k.Inputs[i], err)
		}
		entries = append(entries, wgpu.BufferBindingEntry(uint32(i), in.buffer, 0, in.size)) //nolint:gosec // G115: binding index is small
	}

	defer guard("dispatch "+k.Name, &err)

	entries = append(entries, wgpu.BufferBindingEntry(uint32(len(bound)), out.buffer, 0, out.size)) //nolint:gosec // G115: binding index is small

	params := packUniforms(texels, values)
	bufferParams := b.createUniformBuffer(params)
	defer bufferParams.Release()
	entries = append(entries, wgpu.BufferBindingEntry(uint32(len(bound)+1), bufferParams, 0, uint64(len(params)))) //nolint:gosec // G115: binding index is small

	bindGroupLayout := prog.pipeline.GetBindGroupLayout(0)
	bindGroup := b.device.CreateBindGroupSimple(bindGroupLayout, entries)
	defer bindGroup.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	computePass := encoder.BeginComputePass(nil)
	computePass.SetPipeline(prog.pipeline)
	computePass.SetBindGroup(0, bindGroup, nil)
	x, y := workgroupGrid(texels)
	computePass.DispatchWorkgroups(x, y, 1)
	computePass.End()

	cmdBuffer := encoder.Finish(nil)
	b.queue.Submit(cmdBuffer)
	return nil
}

// workgroupGrid spreads ceil(texels/workgroupSize) workgroups over x and y
// so large textures stay within the per-dimension limit. Kernels linearize
// with global_id.y * num_workgroups.x * workgroupSize + global_id.x.
func workgroupGrid(texels int) (x, y uint32) {
	groups := (texels + workgroupSize - 1) / workgroupSize
	if groups <= maxWorkgroupsPerDim {
		return uint32(groups), 1 //nolint:gosec // G115: bounded by maxWorkgroupsPerDim
	}
	rows := (groups + maxWorkgroupsPerDim - 1) / maxWorkgroupsPerDim
	return maxWorkgroupsPerDim, uint32(rows) //nolint:gosec // G115: bounded by texture limits
}

// packUniforms lays out the uniform block: texel count (u32) then each uniform (i32),
// padded to 16 bytes.
func packUniforms(texels int, values []int32) []byte {
	size := 4 * (1 + len(values))
	params := make([]byte, (size+15)&^15)
	binary.LittleEndian.PutUint32(params[0:4], uint32(texels)) //nolint:gosec // G115: texel count bounded by texture limits
	for i, v := range values {
		binary.LittleEndian.PutUint32(params[4+4*i:8+4*i], uint32(v)) //nolint:gosec // G115: bit-preserving i32 -> u32
	}
	return params
}

// createBuffer creates a GPU buffer and uploads initial data.
func (b *Backend) createBuffer(data []byte, usage wgpu.BufferUsage) *wgpu.Buffer {
	size := uint64(len(data))

	buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            usage,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})

	mappedPtr := buffer.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mappedSlice := unsafe.Slice((*byte)(mappedPtr), size)
	copy(mappedSlice, data)
	buffer.Unmap()

	return buffer
}

// createUniformBuffer creates a uniform buffer with 16-byte alignment.
func (b *Backend) createUniformBuffer(data []byte) *wgpu.Buffer {
	size := uint64(len(data))
	alignedSize := (size + 15) &^ 15

	buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		Size:             alignedSize,
		MappedAtCreation: wgpu.True,
	})

	mappedPtr := buffer.GetMappedRange(0, alignedSize)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mappedSlice := unsafe.Slice((*byte)(mappedPtr), alignedSize)
	copy(mappedSlice, data)
	buffer.Unmap()

	return buffer
}

// readBuffer reads data back from a GPU buffer to CPU memory.
// Uses a staging buffer since storage buffers can't be mapped directly.
func (b *Backend) readBuffer(srcBuffer *wgpu.Buffer, size uint64) ([]byte, error) {
	stagingBuffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	defer stagingBuffer.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(srcBuffer, 0, stagingBuffer, 0, size)
	cmdBuffer := encoder.Finish(nil)
	b.queue.Submit(cmdBuffer)

	err := stagingBuffer.MapAsync(b.device, wgpu.MapModeRead, 0, size)
	if err != nil {
		return nil, fmt.Errorf("failed to map staging buffer: %w", err)
	}

	mappedPtr := stagingBuffer.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mappedSlice := unsafe.Slice((*byte)(mappedPtr), size)
	result := make([]byte, size)
	copy(result, mappedSlice)

	stagingBuffer.Unmap()

	return result, nil
}
