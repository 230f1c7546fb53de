package texmap

import (
	"context"
	"fmt"
	"math/bits"
	"sync"
	"time"

	"github.com/gogpu/arbor"
	"github.com/gogpu/arbor/graph"
	"github.com/gogpu/arbor/internal/metrics"
)

// JumpSteps returns the JFA step sizes for an n-pixel dimension:
// 2^(k-1), ..., 2, 1 with k = ceil(log2 n). The first step is n/2 rounded
// up to a power of two, so the pass count is still ceil(log2 n).
func JumpSteps(n int) []int {
	if n <= 1 {
		return nil
	}
	k := bits.Len(uint(n - 1))
	steps := make([]int, 0, k)
	for s := 1 << (k - 1); s >= 1; s >>= 1 {
		steps = append(steps, s)
	}
	return steps
}

// Pipeline bakes graphs into maps on one device. Programs are compiled once
// in NewPipeline and textures are pooled across calls. Rasterize calls are
// serialized.
type Pipeline struct {
	mu     sync.Mutex
	dev    Device
	pool   *TexturePool
	progs  map[string]Program
	closed bool
}

// NewPipeline compiles the pipeline's programs on dev. A compile or link
// failure is returned as *ShaderError and nothing is leaked.
func NewPipeline(dev Device) (*Pipeline, error) {
	p := &Pipeline{dev: dev, pool: NewTexturePool(dev), progs: make(map[string]Program)}
	for _, desc := range Programs() {
		prog, err := dev.CreateProgram(desc)
		if err != nil {
			p.destroyPrograms()
			arbor.Logger().Error("texmap: program creation failed", "device", dev.Name(), "program", desc.Name, "err", err)
			return nil, err
		}
		p.progs[desc.Name] = prog
	}
	arbor.Logger().Debug("texmap: pipeline ready", "device", dev.Name(), "programs", len(p.progs))
	return p, nil
}

// Device returns the pipeline's device.
func (p *Pipeline) Device() Device { return p.dev }

// Pool returns the pipeline's texture pool.
func (p *Pipeline) Pool() *TexturePool { return p.pool }

// Close releases pooled textures and programs. It does not close the
// device. Close is idempotent.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.pool.Close()
	p.destroyPrograms()
	return nil
}

func (p *Pipeline) destroyPrograms() {
	for name, prog := range p.progs {
		p.dev.DestroyProgram(prog)
		delete(p.progs, name)
	}
}

// frame tracks per-call resources so every exit path releases them.
type frame struct {
	p   *Pipeline
	tex []Texture
	fbs []Framebuffer
}

func (f *frame) texture(label string, w, h int, format Format) (Texture, error) {
	t, err := f.p.pool.Acquire(TextureDesc{Label: label, Width: w, Height: h, Format: format})
	if err != nil {
		return nil, fmt.Errorf("texmap: acquire %s texture: %w", label, err)
	}
	f.tex = append(f.tex, t)
	return t, nil
}

func (f *frame) framebuffer(att ...Texture) (Framebuffer, error) {
	fb, err := f.p.dev.CreateFramebuffer(att...)
	if err != nil {
		return nil, err
	}
	f.fbs = append(f.fbs, fb)
	return fb, nil
}

func (f *frame) release() {
	for _, fb := range f.fbs {
		f.p.dev.DestroyFramebuffer(fb)
	}
	for _, t := range f.tex {
		f.p.pool.Release(t)
	}
}

// Rasterize bakes g into the maps selected by s. An empty graph yields
// background maps: distance 1, direction 0.5, everything else 0.
// ctx is checked between passes.
func (p *Pipeline) Rasterize(ctx context.Context, g *graph.Graph, s Settings) (*Output, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}
	s, err := s.normalize()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	log := arbor.Logger()
	w, h := s.Width, s.Height
	u := Uniforms{Width: uint32(w), Height: uint32(h), MaxDistance: float32(s.MaxDistance)}

	fr := &frame{p: p}
	defer fr.release()

	seed, err := fr.texture("seed", w, h, FormatRGBA32F)
	if err != nil {
		return nil, err
	}
	thick, err := fr.texture("thickness", w, h, FormatR32F)
	if err != nil {
		return nil, err
	}
	ids, err := fr.texture("id", w, h, FormatRGBA8)
	if err != nil {
		return nil, err
	}
	depth, err := fr.texture("depth", w, h, FormatR32F)
	if err != nil {
		return nil, err
	}
	mrt, err := fr.framebuffer(seed, thick, ids, depth)
	if err != nil {
		return nil, err
	}
	if err := p.dev.Clear(mrt); err != nil {
		return nil, fmt.Errorf("texmap: clear: %w", err)
	}

	tr := Fit(g.Bounds, w, h)
	mesh := BuildGeometry(g, tr, s.LineScale)
	if mesh.Triangles() > 0 {
		if err := p.draw(mrt, mesh, u); err != nil {
			return nil, err
		}
	}
	log.Debug("texmap: seeds drawn", "segments", mesh.Segments, "triangles", mesh.Triangles(), "scale", tr.Scale)

	// Jump flood between seed and pong; cur indexes the latest result.
	pong, err := fr.texture("seed-pong", w, h, FormatRGBA32F)
	if err != nil {
		return nil, err
	}
	bufs := [2]Texture{seed, pong}
	var fbs [2]Framebuffer
	for i, t := range bufs {
		if fbs[i], err = fr.framebuffer(t); err != nil {
			return nil, err
		}
	}
	cur := 0
	steps := JumpSteps(max(w, h))
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("texmap: jump flood: %w", err)
		}
		u.Step = int32(step)
		if err := p.dev.DrawFullscreen(fbs[1-cur], p.progs[ProgramNameJFA], []Texture{bufs[cur]}, u); err != nil {
			return nil, fmt.Errorf("texmap: jump flood step %d: %w", step, err)
		}
		cur = 1 - cur
	}
	metrics.JFAPasses.WithLabelValues(p.dev.Name()).Add(float64(len(steps)))

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("texmap: derive: %w", err)
	}
	dist, err := fr.texture("distance", w, h, FormatR32F)
	if err != nil {
		return nil, err
	}
	dir, err := fr.texture("direction", w, h, FormatRGBA32F)
	if err != nil {
		return nil, err
	}
	dfb, err := fr.framebuffer(dist, dir)
	if err != nil {
		return nil, err
	}
	u.Step = 0
	if err := p.dev.DrawFullscreen(dfb, p.progs[ProgramNameDerive], []Texture{bufs[cur]}, u); err != nil {
		return nil, fmt.Errorf("texmap: derive: %w", err)
	}

	out := &Output{Width: w, Height: h, Transform: tr, Passes: len(steps), Maps: make(map[MapKind]*Map)}
	sources := map[MapKind]Texture{
		MapDistance:  dist,
		MapDirection: dir,
		MapThickness: thick,
		MapID:        ids,
		MapDepth:     depth,
	}
	for _, k := range s.Maps.Kinds() {
		t := sources[k]
		ch := t.Desc().Format.Channels()
		m := &Map{Kind: k, Width: w, Height: h, Channels: ch, Data: make([]float32, w*h*ch)}
		if err := p.dev.ReadTexture(t, m.Data); err != nil {
			return nil, fmt.Errorf("texmap: read %s: %w", k, err)
		}
		out.Maps[k] = m
	}

	elapsed := time.Since(start)
	metrics.RasterSeconds.WithLabelValues(p.dev.Name()).Observe(elapsed.Seconds())
	log.Info("texmap: rasterized",
		"device", p.dev.Name(), "size", fmt.Sprintf("%dx%d", w, h),
		"passes", len(steps), "maps", len(out.Maps), "elapsed", elapsed)
	return out, nil
}

func (p *Pipeline) draw(fb Framebuffer, mesh *Mesh, u Uniforms) error {
	vb, err := p.dev.CreateBuffer(mesh.Vertices, VertexStride)
	if err != nil {
		return fmt.Errorf("texmap: vertex buffer: %w", err)
	}
	defer p.dev.DestroyBuffer(vb)
	if err := p.dev.Draw(fb, p.progs[ProgramNameRaster], vb, u); err != nil {
		return fmt.Errorf("texmap: draw: %w", err)
	}
	return nil
}
