package texmap

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/gogpu/arbor/internal/parallel"
)

// SoftwareDevice executes programs with Go kernels. Texels are float32;
// RGBA8 textures are quantized to 1/255 on write.
type SoftwareDevice struct {
	mu     sync.Mutex
	pool   *parallel.WorkerPool
	closed bool
	live   map[*softTexture]struct{}
}

var _ Device = (*SoftwareDevice)(nil)

// NewSoftwareDevice returns a device running texel kernels on pool, or on
// the shared pool when pool is nil.
func NewSoftwareDevice(pool *parallel.WorkerPool) *SoftwareDevice {
	if pool == nil {
		pool = parallel.Shared()
	}
	return &SoftwareDevice{pool: pool, live: make(map[*softTexture]struct{})}
}

// Name implements Device.
func (d *SoftwareDevice) Name() string { return "software" }

type softTexture struct {
	desc TextureDesc
	data []float32
}

func (t *softTexture) Desc() TextureDesc { return t.desc }

type softProgram struct {
	desc   ProgramDesc
	kernel texelKernel
}

func (p *softProgram) Desc() ProgramDesc { return p.desc }

type softFramebuffer struct {
	attachments []Texture
}

func (f *softFramebuffer) Attachments() []Texture { return f.attachments }

type softBuffer struct {
	data   []float32
	stride int
}

func (b *softBuffer) Len() int    { return len(b.data) }
func (b *softBuffer) Stride() int { return b.stride }

// texelKernel computes texel (x, y) of every output from the inputs.
type texelKernel func(x, y int, in, out []*softTexture, u Uniforms)

var kernels = map[string]texelKernel{
	ProgramNameJFA:    jfaKernel,
	ProgramNameDerive: deriveKernel,
}

func (d *SoftwareDevice) check() error {
	if d.closed {
		return ErrClosed
	}
	return nil
}

// CreateTexture implements Device.
func (d *SoftwareDevice) CreateTexture(desc TextureDesc) (Texture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(); err != nil {
		return nil, err
	}
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("texmap: texture %q has invalid size %dx%d", desc.Label, desc.Width, desc.Height)
	}
	t := &softTexture{desc: desc, data: make([]float32, desc.Width*desc.Height*desc.Format.Channels())}
	d.live[t] = struct{}{}
	return t, nil
}

// DestroyTexture implements Device.
func (d *SoftwareDevice) DestroyTexture(t Texture) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if st, ok := t.(*softTexture); ok {
		delete(d.live, st)
		st.data = nil
	}
}

// LiveTextures returns the number of textures not yet destroyed.
func (d *SoftwareDevice) LiveTextures() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.live)
}

// CreateProgram implements Device. Raster programs use the built-in scan
// converter; fullscreen programs need a kernel registered under their name.
// The source must declare the entry point.
func (d *SoftwareDevice) CreateProgram(desc ProgramDesc) (Program, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(); err != nil {
		return nil, err
	}
	if !strings.Contains(desc.Source, "fn "+desc.Entry+"(") {
		return nil, &ShaderError{Program: desc.Name, Stage: "compile", Log: fmt.Sprintf("entry point %q not found", desc.Entry)}
	}
	p := &softProgram{desc: desc}
	switch desc.Kind {
	case ProgramRaster:
		if desc.Outputs != 4 {
			return nil, &ShaderError{Program: desc.Name, Stage: "link", Log: fmt.Sprintf("raster program writes 4 outputs, declared %d", desc.Outputs)}
		}
	case ProgramFullscreen:
		k, ok := kernels[desc.Name]
		if !ok {
			return nil, &ShaderError{Program: desc.Name, Stage: "link", Log: "no software kernel"}
		}
		p.kernel = k
	default:
		return nil, &ShaderError{Program: desc.Name, Stage: "compile", Log: fmt.Sprintf("unknown program kind %d", desc.Kind)}
	}
	return p, nil
}

// DestroyProgram implements Device.
func (d *SoftwareDevice) DestroyProgram(Program) {}

// CreateFramebuffer implements Device.
func (d *SoftwareDevice) CreateFramebuffer(attachments ...Texture) (Framebuffer, error) {
	if err := CheckAttachments(attachments...); err != nil {
		return nil, err
	}
	for i, t := range attachments {
		if _, ok := t.(*softTexture); !ok {
			return nil, &FramebufferError{Reason: fmt.Sprintf("attachment %d belongs to another device", i)}
		}
	}
	return &softFramebuffer{attachments: append([]Texture(nil), attachments...)}, nil
}

// DestroyFramebuffer implements Device.
func (d *SoftwareDevice) DestroyFramebuffer(Framebuffer) {}

// CreateBuffer implements Device.
func (d *SoftwareDevice) CreateBuffer(data []float32, stride int) (Buffer, error) {
	if stride <= 0 || len(data)%stride != 0 {
		return nil, fmt.Errorf("texmap: buffer of %d values does not divide into stride %d", len(data), stride)
	}
	return &softBuffer{data: append([]float32(nil), data...), stride: stride}, nil
}

// DestroyBuffer implements Device.
func (d *SoftwareDevice) DestroyBuffer(b Buffer) {
	if sb, ok := b.(*softBuffer); ok {
		sb.data = nil
	}
}

// Clear implements Device.
func (d *SoftwareDevice) Clear(fb Framebuffer) error {
	for _, t := range fb.Attachments() {
		clear(t.(*softTexture).data)
	}
	return nil
}

// Draw implements Device.
func (d *SoftwareDevice) Draw(fb Framebuffer, prog Program, vb Buffer, _ Uniforms) error {
	if err := d.check(); err != nil {
		return err
	}
	p, ok := prog.(*softProgram)
	if !ok || p.desc.Kind != ProgramRaster {
		return fmt.Errorf("texmap: draw needs a raster program")
	}
	b, ok := vb.(*softBuffer)
	if !ok || b.stride != VertexStride {
		return fmt.Errorf("texmap: draw needs a vertex buffer with stride %d", VertexStride)
	}
	att := fb.Attachments()
	if len(att) != p.desc.Outputs {
		return &FramebufferError{Reason: fmt.Sprintf("program %q writes %d outputs, framebuffer has %d", p.desc.Name, p.desc.Outputs, len(att))}
	}
	targets := make([]*softTexture, len(att))
	for i, t := range att {
		targets[i] = t.(*softTexture)
	}
	desc := targets[0].desc
	RasterizeMesh(b.data, desc.Width, desc.Height, RasterTargets{
		Seed:      planeFor(targets[0], 4),
		Thickness: planeFor(targets[1], 1),
		ID:        planeFor(targets[2], 4),
		Depth:     planeFor(targets[3], 1),
	})
	for _, t := range targets {
		quantize(t)
	}
	return nil
}

// planeFor returns t's data when it has the channel count the raster
// program writes for that attachment.
func planeFor(t *softTexture, channels int) []float32 {
	if t.desc.Format.Channels() != channels {
		return nil
	}
	return t.data
}

// DrawFullscreen implements Device.
func (d *SoftwareDevice) DrawFullscreen(fb Framebuffer, prog Program, inputs []Texture, u Uniforms) error {
	if err := d.check(); err != nil {
		return err
	}
	p, ok := prog.(*softProgram)
	if !ok || p.desc.Kind != ProgramFullscreen {
		return fmt.Errorf("texmap: fullscreen pass needs a fullscreen program")
	}
	att := fb.Attachments()
	if len(att) != p.desc.Outputs || len(inputs) != p.desc.Inputs {
		return fmt.Errorf("texmap: program %q takes %d inputs and %d outputs, got %d and %d",
			p.desc.Name, p.desc.Inputs, p.desc.Outputs, len(inputs), len(att))
	}
	in := make([]*softTexture, len(inputs))
	for i, t := range inputs {
		st, ok := t.(*softTexture)
		if !ok {
			return fmt.Errorf("texmap: input %d belongs to another device", i)
		}
		in[i] = st
	}
	out := make([]*softTexture, len(att))
	for i, t := range att {
		out[i] = t.(*softTexture)
	}
	w, h := out[0].desc.Width, out[0].desc.Height
	d.pool.ForRange(h, rowGrain, func(lo, hi int) {
		for y := lo; y < hi; y++ {
			for x := range w {
				p.kernel(x, y, in, out, u)
			}
		}
	})
	for _, t := range out {
		quantize(t)
	}
	return nil
}

// ReadTexture implements Device.
func (d *SoftwareDevice) ReadTexture(t Texture, dst []float32) error {
	st, ok := t.(*softTexture)
	if !ok {
		return fmt.Errorf("texmap: texture belongs to another device")
	}
	if len(dst) < len(st.data) {
		return fmt.Errorf("texmap: read %q: destination holds %d values, need %d", st.desc.Label, len(dst), len(st.data))
	}
	copy(dst, st.data)
	return nil
}

// Close implements Device. Textures still alive are released.
func (d *SoftwareDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	clear(d.live)
	return nil
}

func quantize(t *softTexture) {
	if t.desc.Format != FormatRGBA8 {
		return
	}
	for i, v := range t.data {
		t.data[i] = float32(math.Round(float64(min(max(v, 0), 1))*255)) / 255
	}
}

// jfaKernel keeps the closest valid seed among self and the eight
// neighbours at ±step, scanning row-major so ties resolve identically on
// every device.
func jfaKernel(x, y int, in, out []*softTexture, u Uniforms) {
	src, dst := in[0], out[0]
	w, h := int(u.Width), int(u.Height)
	px, py := float32(x)+0.5, float32(y)+0.5
	k := int(u.Step)

	i := (y*w + x) * 4
	best := [4]float32{}
	bestD := float32(math.MaxFloat32)
	if src.data[i+3] >= 0.5 {
		copy(best[:], src.data[i:i+4])
		bestD = dist2(px, py, best[0], best[1])
	}
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			qx, qy := x+dx*k, y+dy*k
			if qx < 0 || qy < 0 || qx >= w || qy >= h {
				continue
			}
			j := (qy*w + qx) * 4
			if src.data[j+3] < 0.5 {
				continue
			}
			if d := dist2(px, py, src.data[j], src.data[j+1]); d < bestD {
				copy(best[:], src.data[j:j+4])
				bestD = d
			}
		}
	}
	copy(dst.data[i:i+4], best[:])
}

func deriveKernel(x, y int, in, out []*softTexture, u Uniforms) {
	seeds, distance, direction := in[0], out[0], out[1]
	w := int(u.Width)
	i := y*w + x
	s := seeds.data[i*4 : i*4+4]

	dir := direction.data[i*4 : i*4+4]
	dir[0], dir[1], dir[2], dir[3] = 0.5, 0.5, 0, 1
	if s[3] < 0.5 {
		distance.data[i] = 1
		return
	}
	px, py := float32(x)+0.5, float32(y)+0.5
	dx, dy := s[0]-px, s[1]-py
	l := float32(math.Sqrt(float64(dx*dx + dy*dy)))
	distance.data[i] = min(max(l/u.MaxDistance, 0), 1)
	if l < 1e-6 {
		return
	}
	dir[0], dir[1] = dx/l*0.5+0.5, dy/l*0.5+0.5
}

func dist2(px, py, sx, sy float32) float32 {
	dx, dy := px-sx, py-sy
	return dx*dx + dy*dy
}
