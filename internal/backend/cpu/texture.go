package cpu

import "github.com/born-ml/spacetodepth/internal/tensor"

// texture is a host-memory texture.
type texture struct {
	backend  *CPUBackend
	data     []byte
	rows     int
	cols     int
	format   tensor.TextureFormat
	released bool
}

func (t *texture) Rows() int                    { return t.rows }
func (t *texture) Cols() int                    { return t.cols }
func (t *texture) Format() tensor.TextureFormat { return t.format }

// Release frees the texture memory.
func (t *texture) Release() {
	if t.released {
		return
	}
	t.released = true
	t.backend.trackRelease(len(t.data))
	t.data = nil
}

func (t *texture) view() tensor.HostView {
	return tensor.HostView{Data: t.data, Rows: t.rows, Cols: t.cols, Format: t.format}
}
