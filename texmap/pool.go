package texmap

import (
	"sync"

	"github.com/gogpu/arbor/internal/metrics"
)

type poolKey struct {
	width, height int
	format        Format
}

// TexturePool recycles device textures by size and format.
// It is safe for concurrent use.
type TexturePool struct {
	mu     sync.Mutex
	dev    Device
	free   map[poolKey][]Texture
	leased map[Texture]poolKey
}

// NewTexturePool returns an empty pool over dev.
func NewTexturePool(dev Device) *TexturePool {
	return &TexturePool{
		dev:    dev,
		free:   make(map[poolKey][]Texture),
		leased: make(map[Texture]poolKey),
	}
}

// Acquire returns a free texture matching desc or creates one. Contents of a
// recycled texture are undefined.
func (p *TexturePool) Acquire(desc TextureDesc) (Texture, error) {
	key := poolKey{desc.Width, desc.Height, desc.Format}
	p.mu.Lock()
	defer p.mu.Unlock()
	if list := p.free[key]; len(list) > 0 {
		t := list[len(list)-1]
		p.free[key] = list[:len(list)-1]
		p.leased[t] = key
		return t, nil
	}
	t, err := p.dev.CreateTexture(desc)
	if err != nil {
		return nil, err
	}
	p.leased[t] = key
	metrics.PoolTextures.Inc()
	return t, nil
}

// Release returns t to the pool. Releasing nil or an unknown texture is a
// no-op.
func (p *TexturePool) Release(t Texture) {
	if t == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	key, ok := p.leased[t]
	if !ok {
		return
	}
	delete(p.leased, t)
	p.free[key] = append(p.free[key], t)
}

// Leased returns the number of textures acquired and not yet released.
func (p *TexturePool) Leased() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.leased)
}

// Free returns the number of idle textures.
func (p *TexturePool) Free() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, l := range p.free {
		n += len(l)
	}
	return n
}

// Close destroys every texture, leased or free.
func (p *TexturePool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, l := range p.free {
		for _, t := range l {
			p.dev.DestroyTexture(t)
			n++
		}
	}
	for t := range p.leased {
		p.dev.DestroyTexture(t)
		n++
	}
	clear(p.free)
	clear(p.leased)
	metrics.PoolTextures.Sub(float64(n))
}
