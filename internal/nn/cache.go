package nn

import "github.com/born-ml/spacetodepth/internal/tensor"

// CacheKey identifies everything an index map depends on.
type CacheKey struct {
	Height    int
	Width     int
	Channels  int
	BlockSize int
	Mode      Mode
}

func newCacheKey(spatial tensor.Shape, blockSize int, mode Mode) CacheKey {
	return CacheKey{
		Height:    spatial[0],
		Width:     spatial[1],
		Channels:  spatial[2],
		BlockSize: blockSize,
		Mode:      mode,
	}
}

// gatherCache is the per-layer state reused across calls with the same key.
//
// The index map is built once per key. Its texture and the output texture
// are created on the first accelerated call and live until the key changes
// or the layer is released.
type gatherCache struct {
	key      CacheKey
	valid    bool
	indexMap *IndexMap

	indices *tensor.RawTensor // Index map texture, flattened like the output.
	output  *tensor.RawTensor // Output texture.

	hits   int
	misses int
}

// lookup reports whether the cache holds state for key.
func (c *gatherCache) lookup(key CacheKey) bool {
	if c.valid && c.key == key {
		c.hits++
		return true
	}
	c.misses++
	return false
}

// store replaces the cached state with a new index map for key.
// Textures built for the previous key are released.
func (c *gatherCache) store(key CacheKey, m *IndexMap) {
	c.release()
	c.key = key
	c.indexMap = m
	c.valid = true
}

// dropOutput releases the output texture, e.g. when the element type changes.
func (c *gatherCache) dropOutput() {
	if c.output != nil {
		c.output.Release()
		c.output = nil
	}
}

// release frees every texture and forgets the index map.
func (c *gatherCache) release() {
	if c.indices != nil {
		c.indices.Release()
		c.indices = nil
	}
	c.dropOutput()
	c.indexMap = nil
	c.valid = false
}
