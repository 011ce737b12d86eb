package renderer

// WGPURenderDeviceBuilderOption configures a WGPURenderDevice.
type WGPURenderDeviceBuilderOption func(*wgpuRenderDeviceImpl)

// WithPresentMode sets how frames are delivered to the display. The default is PresentModeVSync.
//
// Parameters:
//   - mode: the PresentMode to use
//
// Returns:
//   - WGPURenderDeviceBuilderOption: a function that sets the present mode
func WithPresentMode(mode PresentMode) WGPURenderDeviceBuilderOption {
	return func(d *wgpuRenderDeviceImpl) {
		d.presentMode = mode
	}
}

// WithForceFallbackAdapter requests the software adapter, for machines without a usable GPU.
func WithForceFallbackAdapter(force bool) WGPURenderDeviceBuilderOption {
	return func(d *wgpuRenderDeviceImpl) {
		d.fallback = force
	}
}
