package tensor

import (
	"errors"
	"fmt"
)

// Texture returns the device texture, or nil.
func (r *RawTensor) Texture() Texture {
	return r.texture
}

// HasTexture reports whether the tensor owns a device texture.
func (r *RawTensor) HasTexture() bool {
	return r.texture != nil
}

// TextureDims returns the texture rows and columns the physical shape maps to.
// Only tensors of physical rank <= 2 can be stored as textures.
func TextureDims(physical Shape) (rows, cols int, err error) {
	switch len(physical) {
	case 0:
		return 1, 1, nil
	case 1:
		return 1, physical[0], nil
	case 2:
		return physical[0], physical[1], nil
	default:
		return 0, 0, fmt.Errorf("rank %d tensor must be reshaped to 2D before texture creation", len(physical))
	}
}

// CreateTexture uploads the physical data to acc.
// On failure the tensor is left without a texture.
func (r *RawTensor) CreateTexture(acc Accelerator) error {
	if r.texture != nil {
		return errors.New("create texture: tensor already has a texture")
	}
	rows, cols, err := TextureDims(r.shape)
	if err != nil {
		return fmt.Errorf("create texture: %w", err)
	}
	format, err := FormatFor(r.dtype)
	if err != nil {
		return fmt.Errorf("create texture: %w", err)
	}

	tex, err := acc.CreateTexture(r.buffer.data[:r.ByteSize()], rows, cols, format)
	if err != nil {
		return fmt.Errorf("create texture: %w", err)
	}
	r.texture = tex
	return nil
}

// AllocateTexture allocates an uninitialized texture sized for the physical shape.
// The device copy becomes authoritative.
func (r *RawTensor) AllocateTexture(acc Accelerator) error {
	if r.texture != nil {
		return errors.New("allocate texture: tensor already has a texture")
	}
	rows, cols, err := TextureDims(r.shape)
	if err != nil {
		return fmt.Errorf("allocate texture: %w", err)
	}
	format, err := FormatFor(r.dtype)
	if err != nil {
		return fmt.Errorf("allocate texture: %w", err)
	}

	tex, err := acc.AllocateTexture(rows, cols, format)
	if err != nil {
		return fmt.Errorf("allocate texture: %w", err)
	}
	r.texture = tex
	r.device = Accelerated
	return nil
}

// MarkDeviceResident records that the texture holds newer data than the host buffer.
func (r *RawTensor) MarkDeviceResident() {
	if r.texture != nil {
		r.device = Accelerated
	}
}

// TransferFromTexture copies the texture contents into the host buffer.
// The texture is kept.
func (r *RawTensor) TransferFromTexture(acc Accelerator) error {
	if r.texture == nil {
		return errors.New("transfer from texture: tensor has no texture")
	}
	data, err := acc.ReadTexture(r.texture)
	if err != nil {
		return fmt.Errorf("transfer from texture: %w", err)
	}
	if len(data) < r.ByteSize() {
		return fmt.Errorf("transfer from texture: read %d bytes, want %d", len(data), r.ByteSize())
	}
	copy(r.buffer.data, data[:r.ByteSize()])
	r.device = CPU
	return nil
}

// Download reads the texture into a new host tensor with the logical shape
// restored. The receiver keeps its texture.
func (r *RawTensor) Download(acc Accelerator) (*RawTensor, error) {
	if err := r.TransferFromTexture(acc); err != nil {
		return nil, err
	}
	host := &RawTensor{
		buffer:   newTensorBuffer(r.ByteSize()),
		shape:    r.shape.Clone(),
		stride:   r.shape.ComputeStrides(),
		dtype:    r.dtype,
		device:   CPU,
		layout:   r.layout,
		original: r.original.Clone(),
	}
	copy(host.buffer.data, r.buffer.data[:r.ByteSize()])
	if err := host.ReshapeFrom2D(); err != nil {
		return nil, err
	}
	return host, nil
}

// ReleaseTexture frees the device texture, if any.
func (r *RawTensor) ReleaseTexture() {
	if r.texture != nil {
		r.texture.Release()
		r.texture = nil
	}
}
