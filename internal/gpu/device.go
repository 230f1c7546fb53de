//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/arbor/texmap"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// waitTimeout bounds every fence wait.
const waitTimeout = 5 * time.Second

// Device runs texmap programs on a wgpu/hal device. Fullscreen programs
// are WGSL compute shaders dispatched in 8x8 workgroups over storage
// buffers; triangle setup for raster programs runs on the CPU and the
// result is uploaded into the attachments.
type Device struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	ready          bool
	externalDevice bool // shared device from a provider, not destroyed on Close
	adapter        string
}

var _ texmap.Device = (*Device)(nil)
var _ texmap.DeviceProviderAware = (*Device)(nil)

// Name implements texmap.Device.
func (d *Device) Name() string { return "wgpu" }

// Adapter returns the name of the adapter in use.
func (d *Device) Adapter() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.adapter
}

// Ready reports whether a GPU device is open.
func (d *Device) Ready() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ready
}

// Init opens the first discrete or integrated Vulkan adapter, falling back
// to whatever adapter is enumerated first.
func (d *Device) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ready {
		return nil
	}
	if err := d.initGPU(); err != nil {
		d.release()
		return fmt.Errorf("gpu: %w", err)
	}
	return nil
}

func (d *Device) initGPU() error {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	d.instance = instance
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return fmt.Errorf("no GPU adapters found")
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}
	d.device = openDev.Device
	d.queue = openDev.Queue
	d.adapter = selected.Info.Name
	d.ready = true
	slogger().Info("gpu: device opened", "adapter", d.adapter)
	return nil
}

// SetDeviceProvider switches to a shared device. The provider must expose
// HalDevice() any and HalQueue() any returning hal.Device and hal.Queue.
// Programs and textures created on the previous device must not be used
// afterwards.
func (d *Device) SetDeviceProvider(provider any) error {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return fmt.Errorf("gpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return fmt.Errorf("gpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return fmt.Errorf("gpu: provider HalQueue is not hal.Queue")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.release()
	d.device = device
	d.queue = queue
	d.externalDevice = true
	d.adapter = "shared"
	d.ready = true
	slogger().Info("gpu: switched to shared device")
	return nil
}

// Close implements texmap.Device.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.release()
	return nil
}

func (d *Device) release() {
	if !d.externalDevice {
		if d.device != nil {
			d.device.Destroy()
		}
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
	d.device = nil
	d.instance = nil
	d.queue = nil
	d.ready = false
	d.externalDevice = false
}

func (d *Device) check() error {
	if !d.ready {
		return texmap.ErrClosed
	}
	return nil
}

type texture struct {
	desc texmap.TextureDesc
	buf  hal.Buffer
	size uint64
}

func (t *texture) Desc() texmap.TextureDesc { return t.desc }

func texelBytes(desc texmap.TextureDesc) uint64 {
	return uint64(desc.Width) * uint64(desc.Height) * uint64(desc.Format.Channels()) * 4 //nolint:gosec // sizes are positive
}

// CreateTexture implements texmap.Device. Textures are storage buffers of
// float32 texels.
func (d *Device) CreateTexture(desc texmap.TextureDesc) (texmap.Texture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(); err != nil {
		return nil, err
	}
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("gpu: texture %q has invalid size %dx%d", desc.Label, desc.Width, desc.Height)
	}
	size := texelBytes(desc)
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "texmap_" + desc.Label, Size: size,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create texture %q: %w", desc.Label, err)
	}
	return &texture{desc: desc, buf: buf, size: size}, nil
}

// DestroyTexture implements texmap.Device.
func (d *Device) DestroyTexture(t texmap.Texture) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if tx, ok := t.(*texture); ok && tx.buf != nil && d.device != nil {
		d.device.DestroyBuffer(tx.buf)
		tx.buf = nil
	}
}

type program struct {
	desc       texmap.ProgramDesc
	module     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline
}

func (p *program) Desc() texmap.ProgramDesc { return p.desc }

// CreateProgram implements texmap.Device. Every source is validated with
// naga first; fullscreen programs are then built into compute pipelines.
func (d *Device) CreateProgram(desc texmap.ProgramDesc) (texmap.Program, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(); err != nil {
		return nil, err
	}
	if _, err := naga.Compile(desc.Source); err != nil {
		return nil, &texmap.ShaderError{Program: desc.Name, Stage: "compile", Log: err.Error()}
	}
	p := &program{desc: desc}
	if desc.Kind == texmap.ProgramRaster {
		return p, nil
	}
	if err := d.createPipeline(p); err != nil {
		d.destroyProgram(p)
		return nil, err
	}
	return p, nil
}

func (d *Device) createPipeline(p *program) error {
	desc := p.desc
	module, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  desc.Name,
		Source: hal.ShaderSource{WGSL: desc.Source},
	})
	if err != nil {
		return &texmap.ShaderError{Program: desc.Name, Stage: "compile", Log: err.Error()}
	}
	p.module = module

	entries := []gputypes.BindGroupLayoutEntry{
		{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
	}
	for i := range desc.Inputs {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding: uint32(1 + i), Visibility: gputypes.ShaderStageCompute, //nolint:gosec // small index
			Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage},
		})
	}
	for i := range desc.Outputs {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding: uint32(1 + desc.Inputs + i), Visibility: gputypes.ShaderStageCompute, //nolint:gosec // small index
			Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage},
		})
	}
	bindLayout, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: desc.Name + "_bind_layout", Entries: entries,
	})
	if err != nil {
		return &texmap.ShaderError{Program: desc.Name, Stage: "link", Log: err.Error()}
	}
	p.bindLayout = bindLayout

	pipeLayout, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: desc.Name + "_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{bindLayout},
	})
	if err != nil {
		return &texmap.ShaderError{Program: desc.Name, Stage: "link", Log: err.Error()}
	}
	p.pipeLayout = pipeLayout

	pipeline, err := d.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: desc.Name + "_pipeline", Layout: pipeLayout,
		Compute: hal.ComputeState{Module: module, EntryPoint: desc.Entry},
	})
	if err != nil {
		return &texmap.ShaderError{Program: desc.Name, Stage: "link", Log: err.Error()}
	}
	p.pipeline = pipeline
	return nil
}

// DestroyProgram implements texmap.Device.
func (d *Device) DestroyProgram(p texmap.Program) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if hp, ok := p.(*program); ok {
		d.destroyProgram(hp)
	}
}

func (d *Device) destroyProgram(p *program) {
	if d.device == nil {
		return
	}
	if p.pipeline != nil {
		d.device.DestroyComputePipeline(p.pipeline)
	}
	if p.pipeLayout != nil {
		d.device.DestroyPipelineLayout(p.pipeLayout)
	}
	if p.bindLayout != nil {
		d.device.DestroyBindGroupLayout(p.bindLayout)
	}
	if p.module != nil {
		d.device.DestroyShaderModule(p.module)
	}
	*p = program{desc: p.desc}
}

type framebuffer struct {
	attachments []texmap.Texture
}

func (f *framebuffer) Attachments() []texmap.Texture { return f.attachments }

// CreateFramebuffer implements texmap.Device.
func (d *Device) CreateFramebuffer(attachments ...texmap.Texture) (texmap.Framebuffer, error) {
	if err := texmap.CheckAttachments(attachments...); err != nil {
		return nil, err
	}
	for i, t := range attachments {
		if _, ok := t.(*texture); !ok {
			return nil, &texmap.FramebufferError{Reason: fmt.Sprintf("attachment %d belongs to another device", i)}
		}
	}
	return &framebuffer{attachments: append([]texmap.Texture(nil), attachments...)}, nil
}

// DestroyFramebuffer implements texmap.Device.
func (d *Device) DestroyFramebuffer(texmap.Framebuffer) {}

type vertexBuffer struct {
	data   []float32
	stride int
}

func (b *vertexBuffer) Len() int    { return len(b.data) }
func (b *vertexBuffer) Stride() int { return b.stride }

// CreateBuffer implements texmap.Device. Vertex data stays host side for
// triangle setup.
func (d *Device) CreateBuffer(data []float32, stride int) (texmap.Buffer, error) {
	if stride <= 0 || len(data)%stride != 0 {
		return nil, fmt.Errorf("gpu: buffer of %d values does not divide into stride %d", len(data), stride)
	}
	return &vertexBuffer{data: append([]float32(nil), data...), stride: stride}, nil
}

// DestroyBuffer implements texmap.Device.
func (d *Device) DestroyBuffer(texmap.Buffer) {}

// Clear implements texmap.Device.
func (d *Device) Clear(fb texmap.Framebuffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(); err != nil {
		return err
	}
	for _, t := range fb.Attachments() {
		tx := t.(*texture)
		d.queue.WriteBuffer(tx.buf, 0, make([]byte, tx.size))
	}
	return nil
}

// Draw implements texmap.Device.
func (d *Device) Draw(fb texmap.Framebuffer, prog texmap.Program, vb texmap.Buffer, _ texmap.Uniforms) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(); err != nil {
		return err
	}
	p, ok := prog.(*program)
	if !ok || p.desc.Kind != texmap.ProgramRaster {
		return fmt.Errorf("gpu: draw needs a raster program")
	}
	b, ok := vb.(*vertexBuffer)
	if !ok || b.stride != texmap.VertexStride {
		return fmt.Errorf("gpu: draw needs a vertex buffer with stride %d", texmap.VertexStride)
	}
	att := fb.Attachments()
	if len(att) != 4 {
		return &texmap.FramebufferError{Reason: fmt.Sprintf("raster program writes 4 outputs, framebuffer has %d", len(att))}
	}

	desc := att[0].Desc()
	planes := make([][]float32, len(att))
	for i, t := range att {
		planes[i] = make([]float32, desc.Width*desc.Height*t.Desc().Format.Channels())
	}
	texmap.RasterizeMesh(b.data, desc.Width, desc.Height, texmap.RasterTargets{
		Seed: planes[0], Thickness: planes[1], ID: planes[2], Depth: planes[3],
	})
	for i, t := range att {
		tx := t.(*texture)
		if tx.desc.Format == texmap.FormatRGBA8 {
			quantize8(planes[i])
		}
		d.queue.WriteBuffer(tx.buf, 0, floatsToBytes(planes[i]))
	}
	return nil
}

// DrawFullscreen implements texmap.Device with one compute dispatch.
func (d *Device) DrawFullscreen(fb texmap.Framebuffer, prog texmap.Program, inputs []texmap.Texture, u texmap.Uniforms) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(); err != nil {
		return err
	}
	p, ok := prog.(*program)
	if !ok || p.pipeline == nil {
		return fmt.Errorf("gpu: fullscreen pass needs a compute program")
	}
	att := fb.Attachments()
	if len(att) != p.desc.Outputs || len(inputs) != p.desc.Inputs {
		return fmt.Errorf("gpu: program %q takes %d inputs and %d outputs, got %d and %d",
			p.desc.Name, p.desc.Inputs, p.desc.Outputs, len(inputs), len(att))
	}

	params := uniformBytes(u)
	ub, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: p.desc.Name + "_params", Size: uint64(len(params)),
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("gpu: create uniform buffer: %w", err)
	}
	defer d.device.DestroyBuffer(ub)
	d.queue.WriteBuffer(ub, 0, params)

	entries := []gputypes.BindGroupEntry{
		{Binding: 0, Resource: gputypes.BufferBinding{Buffer: ub.NativeHandle(), Offset: 0, Size: uint64(len(params))}},
	}
	for i, t := range append(append([]texmap.Texture(nil), inputs...), att...) {
		tx, ok := t.(*texture)
		if !ok {
			return fmt.Errorf("gpu: binding %d belongs to another device", i+1)
		}
		entries = append(entries, gputypes.BindGroupEntry{
			Binding:  uint32(i + 1), //nolint:gosec // small index
			Resource: gputypes.BufferBinding{Buffer: tx.buf.NativeHandle(), Offset: 0, Size: tx.size},
		})
	}
	bg, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label: p.desc.Name + "_bind", Layout: p.bindLayout, Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("gpu: create bind group: %w", err)
	}
	defer d.device.DestroyBindGroup(bg)

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: p.desc.Name + "_encoder"})
	if err != nil {
		return fmt.Errorf("gpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(p.desc.Name); err != nil {
		return fmt.Errorf("gpu: begin encoding: %w", err)
	}
	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: p.desc.Name + "_pass"})
	pass.SetPipeline(p.pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.Dispatch((u.Width+7)/8, (u.Height+7)/8, 1)
	pass.End()
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("gpu: end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	if err := d.submit(cmdBuf); err != nil {
		return err
	}
	slogger().Debug("gpu: dispatched", "program", p.desc.Name, "step", u.Step)
	return nil
}

func (d *Device) submit(cmdBuf hal.CommandBuffer) error {
	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("gpu: create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)
	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("gpu: submit: %w", err)
	}
	ok, err := d.device.Wait(fence, 1, waitTimeout)
	if err != nil || !ok {
		return fmt.Errorf("gpu: wait for GPU: ok=%v err=%w", ok, err)
	}
	return nil
}

// ReadTexture implements texmap.Device through a staging buffer.
func (d *Device) ReadTexture(t texmap.Texture, dst []float32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(); err != nil {
		return err
	}
	tx, ok := t.(*texture)
	if !ok {
		return fmt.Errorf("gpu: texture belongs to another device")
	}
	n := int(tx.size / 4) //nolint:gosec // bounded by texture size
	if len(dst) < n {
		return fmt.Errorf("gpu: read %q: destination holds %d values, need %d", tx.desc.Label, len(dst), n)
	}

	staging, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "texmap_staging", Size: tx.size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("gpu: create staging buffer: %w", err)
	}
	defer d.device.DestroyBuffer(staging)

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "texmap_readback"})
	if err != nil {
		return fmt.Errorf("gpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("texmap_readback"); err != nil {
		return fmt.Errorf("gpu: begin encoding: %w", err)
	}
	encoder.CopyBufferToBuffer(tx.buf, staging, []hal.BufferCopy{{SrcOffset: 0, DstOffset: 0, Size: tx.size}})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("gpu: end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)
	if err := d.submit(cmdBuf); err != nil {
		return err
	}

	raw := make([]byte, tx.size)
	if err := d.queue.ReadBuffer(staging, 0, raw); err != nil {
		return fmt.Errorf("gpu: readback: %w", err)
	}
	bytesToFloats(raw, dst[:n])
	return nil
}

// uniformBytes packs u in the layout of the WGSL Params struct.
func uniformBytes(u texmap.Uniforms) []byte {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint32(b[0:], u.Width)
	binary.LittleEndian.PutUint32(b[4:], u.Height)
	binary.LittleEndian.PutUint32(b[8:], uint32(u.Step)) //nolint:gosec // two's complement round trip
	binary.LittleEndian.PutUint32(b[12:], math.Float32bits(u.MaxDistance))
	return b
}

func floatsToBytes(src []float32) []byte {
	out := make([]byte, len(src)*4)
	for i, v := range src {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

func bytesToFloats(src []byte, dst []float32) {
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:]))
	}
}

func quantize8(plane []float32) {
	for i, v := range plane {
		plane[i] = float32(math.Round(float64(min(max(v, 0), 1))*255)) / 255
	}
}
