//go:build !nogpu

// Package gpu registers the wgpu/hal texture device with texmap.
//
// Import it for its side effect to bake maps on the GPU:
//
//	import _ "github.com/gogpu/arbor/gpu"
//
// If no Vulkan adapter can be opened the registration is skipped and
// texmap keeps using the software device. Build with -tags nogpu to leave
// the GPU stack out entirely.
package gpu

import (
	"github.com/gogpu/gpucontext"

	"github.com/gogpu/arbor"
	gpuimpl "github.com/gogpu/arbor/internal/gpu"
	"github.com/gogpu/arbor/texmap"
)

var device = &gpuimpl.Device{}

func init() {
	arbor.OnLoggerChange(gpuimpl.SetLogger)

	if err := device.Init(); err != nil {
		arbor.Logger().Warn("gpu: device not available, using software", "err", err)
		return
	}
	if err := texmap.RegisterDevice(device); err != nil {
		arbor.Logger().Warn("gpu: register device", "err", err)
	}
}

// SetDeviceProvider makes the texture device share a GPU device owned by
// the host application (for example a gogpu window) instead of opening its
// own. The provider must also expose HalDevice() and HalQueue().
//
// Pipelines created before the switch must be closed and recreated.
func SetDeviceProvider(provider gpucontext.DeviceProvider) error {
	if err := device.SetDeviceProvider(provider); err != nil {
		return err
	}
	return texmap.RegisterDevice(device)
}

// Available reports whether the GPU device is open.
func Available() bool { return device.Ready() }
