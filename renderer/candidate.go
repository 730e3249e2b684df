package renderer

import (
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

// Unresolved marks a queue family role no family could fill.
const Unresolved = -1

// QueueFamily is one entry of a physical device's queue family table.
type QueueFamily struct {
	Flags          core1_0.QueueFlags
	Count          int
	PresentSupport bool
}

// SurfaceSupport is the snapshot of what a device can do with the target surface.
type SurfaceSupport struct {
	Capabilities *khr_surface.SurfaceCapabilities
	Formats      []khr_surface.SurfaceFormat
	PresentModes []khr_surface.PresentMode
}

// RequiredCapabilities is what a candidate must offer to be accepted.
type RequiredCapabilities struct {
	Extensions []string
	// Swapchain requires at least one surface format and one present mode.
	Swapchain bool
}

// DeviceCandidate is one physical device with everything the evaluator needs
// already read out of the driver.
type DeviceCandidate struct {
	DeviceDetails

	Device        core1_0.PhysicalDevice
	QueueFamilies []QueueFamily
	Extensions    ExtensionSet
	Surface       SurfaceSupport

	GraphicsFamily int
	PresentFamily  int
}

// ResolveQueueFamilies scans the table in order and returns the graphics and
// present family indices. Later families overwrite earlier matches; families
// with no queues are skipped.
func ResolveQueueFamilies(families []QueueFamily) (graphics, present int) {
	graphics, present = Unresolved, Unresolved
	for idx, family := range families {
		if family.Count == 0 {
			continue
		}
		if family.Flags&core1_0.QueueGraphics != 0 {
			graphics = idx
		}
		if family.PresentSupport {
			present = idx
		}
	}
	return graphics, present
}

// Enumerate builds one candidate per physical device reported for the instance,
// evaluated against the given surface.
func Enumerate(api InstanceAPI, surface khr_surface.Surface) ([]*DeviceCandidate, error) {
	devices, err := api.EnumeratePhysicalDevices()
	if err != nil {
		return nil, stageError(err, ErrEnumeration, "vkEnumeratePhysicalDevices")
	}
	if len(devices) == 0 {
		return nil, ErrEnumeration
	}

	candidates := make([]*DeviceCandidate, 0, len(devices))
	for _, device := range devices {
		candidate, err := newCandidate(api, device, surface)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}

func newCandidate(api InstanceAPI, device core1_0.PhysicalDevice, surface khr_surface.Surface) (*DeviceCandidate, error) {
	details, err := api.DeviceDetails(device)
	if err != nil {
		return nil, stageError(err, ErrEnumeration, "vkGetPhysicalDeviceProperties")
	}

	c := &DeviceCandidate{
		DeviceDetails: details,
		Device:        device,
		QueueFamilies: api.QueueFamilies(device),
	}

	for idx := range c.QueueFamilies {
		supported, err := api.SurfaceSupport(device, surface, idx)
		if err != nil {
			return nil, stageError(err, ErrEnumeration, "vkGetPhysicalDeviceSurfaceSupportKHR")
		}
		c.QueueFamilies[idx].PresentSupport = supported
	}
	c.GraphicsFamily, c.PresentFamily = ResolveQueueFamilies(c.QueueFamilies)

	if c.Extensions, err = api.DeviceExtensions(device); err != nil {
		return nil, stageError(err, ErrEnumeration, "vkEnumerateDeviceExtensionProperties")
	}

	if c.Surface.Capabilities, err = api.SurfaceCapabilities(device, surface); err != nil {
		return nil, stageError(err, ErrEnumeration, "vkGetPhysicalDeviceSurfaceCapabilitiesKHR")
	}
	if c.Surface.Formats, err = api.SurfaceFormats(device, surface); err != nil {
		return nil, stageError(err, ErrEnumeration, "vkGetPhysicalDeviceSurfaceFormatsKHR")
	}
	if c.Surface.PresentModes, err = api.SurfacePresentModes(device, surface); err != nil {
		return nil, stageError(err, ErrEnumeration, "vkGetPhysicalDeviceSurfacePresentModesKHR")
	}

	return c, nil
}

// QueuesComplete reports whether both the graphics and present roles resolved.
func (c *DeviceCandidate) QueuesComplete() bool {
	return c.GraphicsFamily >= 0 && c.PresentFamily >= 0
}

// SupportsExtensions reports whether every required extension is available.
// Extra extensions are ignored.
func (c *DeviceCandidate) SupportsExtensions(required []string) bool {
	return len(c.Extensions.Missing(required)) == 0
}

func (c *DeviceCandidate) SwapchainAdequate() bool {
	return len(c.Surface.Formats) > 0 && len(c.Surface.PresentModes) > 0
}

func (c *DeviceCandidate) IsAcceptable(req RequiredCapabilities) bool {
	if !c.QueuesComplete() || !c.SupportsExtensions(req.Extensions) {
		return false
	}
	return !req.Swapchain || c.SwapchainAdequate()
}

func (c *DeviceCandidate) HasDiscreteGPU() bool {
	return c.Type == core1_0.PhysicalDeviceTypeDiscreteGPU
}

func (c *DeviceCandidate) HasGeometryShader() bool {
	return c.GeometryShader
}

// Score ranks a candidate for reporting. Selection does not use it.
func (c *DeviceCandidate) Score() int {
	score := 0
	switch c.Type {
	case core1_0.PhysicalDeviceTypeDiscreteGPU:
		score += 1000
	case core1_0.PhysicalDeviceTypeIntegratedGPU:
		score += 100
	}
	if c.HasGeometryShader() {
		score += 10
	}
	return score
}

// SelectDevice returns the first acceptable candidate in enumeration order.
func SelectDevice(candidates []*DeviceCandidate, req RequiredCapabilities) (*DeviceCandidate, error) {
	for _, c := range candidates {
		if c.IsAcceptable(req) {
			return c, nil
		}
	}
	return nil, stageErrorf(ErrNoAcceptableDevice, "%d candidates rejected", len(candidates))
}

// DeviceReport is the printable summary of a candidate.
type DeviceReport struct {
	Name            string   `json:"name"`
	Type            string   `json:"type"`
	VendorID        uint32   `json:"vendorId"`
	DeviceID        uint32   `json:"deviceId"`
	PipelineCacheID string   `json:"pipelineCacheId"`
	GraphicsFamily  int      `json:"graphicsFamily"`
	PresentFamily   int      `json:"presentFamily"`
	MissingExts     []string `json:"missingExtensions,omitempty"`
	Formats         int      `json:"surfaceFormats"`
	PresentModes    int      `json:"presentModes"`
	Score           int      `json:"score"`
	Acceptable      bool     `json:"acceptable"`
}

func (c *DeviceCandidate) Report(req RequiredCapabilities) DeviceReport {
	return DeviceReport{
		Name:            c.Name,
		Type:            deviceTypeName(c.Type),
		VendorID:        c.VendorID,
		DeviceID:        c.DeviceID,
		PipelineCacheID: c.PipelineCacheID.String(),
		GraphicsFamily:  c.GraphicsFamily,
		PresentFamily:   c.PresentFamily,
		MissingExts:     c.Extensions.Missing(req.Extensions),
		Formats:         len(c.Surface.Formats),
		PresentModes:    len(c.Surface.PresentModes),
		Score:           c.Score(),
		Acceptable:      c.IsAcceptable(req),
	}
}

func deviceTypeName(t core1_0.PhysicalDeviceType) string {
	switch t {
	case core1_0.PhysicalDeviceTypeDiscreteGPU:
		return "discrete"
	case core1_0.PhysicalDeviceTypeIntegratedGPU:
		return "integrated"
	case core1_0.PhysicalDeviceTypeVirtualGPU:
		return "virtual"
	case core1_0.PhysicalDeviceTypeCPU:
		return "cpu"
	default:
		return "other"
	}
}
