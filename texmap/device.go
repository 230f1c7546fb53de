package texmap

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/arbor"
)

// ErrClosed is returned by operations on a closed pipeline or device.
var ErrClosed = errors.New("texmap: closed")

// Format is a texture storage format.
type Format uint8

const (
	FormatRGBA32F Format = iota + 1
	FormatR32F
	FormatRGBA8
)

// Channels returns the number of components per texel.
func (f Format) Channels() int {
	if f == FormatR32F {
		return 1
	}
	return 4
}

func (f Format) String() string {
	switch f {
	case FormatRGBA32F:
		return "rgba32f"
	case FormatR32F:
		return "r32f"
	case FormatRGBA8:
		return "rgba8"
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

// TextureDesc describes a 2D texture.
type TextureDesc struct {
	Label  string
	Width  int
	Height int
	Format Format
}

// Texture is a device texture handle.
type Texture interface {
	Desc() TextureDesc
}

// ProgramKind distinguishes triangle programs from per-texel passes.
type ProgramKind uint8

const (
	// ProgramRaster draws triangles from a vertex buffer.
	ProgramRaster ProgramKind = iota + 1

	// ProgramFullscreen runs once per texel of its target.
	ProgramFullscreen
)

// ProgramDesc describes a shader program.
type ProgramDesc struct {
	Name   string
	Kind   ProgramKind
	Source string // WGSL
	Entry  string

	// Inputs is the number of sampled textures, Outputs the number of
	// colour attachments written.
	Inputs  int
	Outputs int
}

// Program is a compiled, linked shader program.
type Program interface {
	Desc() ProgramDesc
}

// Framebuffer is a set of colour attachments of equal size.
type Framebuffer interface {
	Attachments() []Texture
}

// Buffer holds interleaved float32 vertex data.
type Buffer interface {
	Len() int
	Stride() int
}

// Uniforms are the per-pass shader constants. The layout matches the
// Params struct in the WGSL sources.
type Uniforms struct {
	Width       uint32
	Height      uint32
	Step        int32
	MaxDistance float32
}

// Device is the GPU command API the pipeline is written against.
// Calls on one Device are issued from a single goroutine at a time.
type Device interface {
	Name() string

	CreateTexture(desc TextureDesc) (Texture, error)
	DestroyTexture(t Texture)

	// CreateProgram compiles and links a program. Failures are *ShaderError.
	CreateProgram(desc ProgramDesc) (Program, error)
	DestroyProgram(p Program)

	// CreateFramebuffer checks completeness. Failures are *FramebufferError.
	CreateFramebuffer(attachments ...Texture) (Framebuffer, error)
	DestroyFramebuffer(fb Framebuffer)

	CreateBuffer(data []float32, stride int) (Buffer, error)
	DestroyBuffer(b Buffer)

	// Clear zeroes every attachment of fb.
	Clear(fb Framebuffer) error

	// Draw rasterizes the triangles in vb into fb. Later triangles
	// overwrite earlier ones.
	Draw(fb Framebuffer, prog Program, vb Buffer, u Uniforms) error

	// DrawFullscreen runs prog once per texel of fb reading inputs.
	DrawFullscreen(fb Framebuffer, prog Program, inputs []Texture, u Uniforms) error

	// ReadTexture copies texels into dst, which must hold
	// width*height*channels values.
	ReadTexture(t Texture, dst []float32) error

	Close() error
}

// ShaderError reports a program that failed to compile or link.
type ShaderError struct {
	Program string
	Stage   string
	Log     string
}

func (e *ShaderError) Error() string {
	return fmt.Sprintf("texmap: %s program %q failed: %s", e.Stage, e.Program, e.Log)
}

// FramebufferError reports an incomplete framebuffer.
type FramebufferError struct {
	Reason string
}

func (e *FramebufferError) Error() string {
	return "texmap: incomplete framebuffer: " + e.Reason
}

// DeviceProviderAware is implemented by devices that can adopt a shared
// GPU device from a host application.
type DeviceProviderAware interface {
	SetDeviceProvider(provider any) error
}

var (
	deviceMu sync.RWMutex
	device   Device
)

// RegisterDevice makes d the default device, closing the one it replaces.
func RegisterDevice(d Device) error {
	if d == nil {
		return errors.New("texmap: device must not be nil")
	}
	deviceMu.Lock()
	old := device
	device = d
	deviceMu.Unlock()
	if old != nil && old != d {
		if err := old.Close(); err != nil {
			arbor.Logger().Warn("texmap: closing replaced device", "device", old.Name(), "err", err)
		}
	}
	arbor.Logger().Info("texmap: device registered", "device", d.Name())
	return nil
}

// DefaultDevice returns the registered device, or a new software device.
func DefaultDevice() Device {
	deviceMu.RLock()
	d := device
	deviceMu.RUnlock()
	if d != nil {
		return d
	}
	return NewSoftwareDevice(nil)
}

// SetDeviceProvider forwards a shared GPU device to the registered device.
// It is a no-op when the device cannot adopt one.
func SetDeviceProvider(provider any) error {
	deviceMu.RLock()
	d := device
	deviceMu.RUnlock()
	if dpa, ok := d.(DeviceProviderAware); ok {
		return dpa.SetDeviceProvider(provider)
	}
	return nil
}

// CheckAttachments validates framebuffer completeness: one to eight
// non-nil attachments of equal, non-zero size.
func CheckAttachments(attachments ...Texture) error {
	if len(attachments) == 0 {
		return &FramebufferError{Reason: "no attachments"}
	}
	if len(attachments) > 8 {
		return &FramebufferError{Reason: fmt.Sprintf("%d attachments exceeds 8", len(attachments))}
	}
	var w, h int
	for i, t := range attachments {
		if t == nil {
			return &FramebufferError{Reason: fmt.Sprintf("attachment %d is nil", i)}
		}
		d := t.Desc()
		if d.Width <= 0 || d.Height <= 0 {
			return &FramebufferError{Reason: fmt.Sprintf("attachment %d has zero size", i)}
		}
		if i == 0 {
			w, h = d.Width, d.Height
		} else if d.Width != w || d.Height != h {
			return &FramebufferError{Reason: fmt.Sprintf("attachment %d is %dx%d, want %dx%d", i, d.Width, d.Height, w, h)}
		}
	}
	return nil
}
