package renderer

import (
	"sort"

	"github.com/google/uuid"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

// ExtensionSet is a set of extension or layer names.
type ExtensionSet map[string]struct{}

// NewExtensionSet builds a set from a list of names.
func NewExtensionSet(names ...string) ExtensionSet {
	set := make(ExtensionSet, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

func extensionSetOf[V any](m map[string]V) ExtensionSet {
	set := make(ExtensionSet, len(m))
	for name := range m {
		set[name] = struct{}{}
	}
	return set
}

func (s ExtensionSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Missing returns the names from required that are not in the set, in the order given.
func (s ExtensionSet) Missing(required []string) []string {
	var missing []string
	for _, name := range required {
		if !s.Has(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// Names returns the set contents sorted.
func (s ExtensionSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DeviceDetails is the subset of physical device properties and features the
// evaluator looks at.
type DeviceDetails struct {
	Name            string
	Type            core1_0.PhysicalDeviceType
	VendorID        uint32
	DeviceID        uint32
	PipelineCacheID uuid.UUID
	GeometryShader  bool
}

// InstanceAPI is the instance-level driver surface used by device selection
// and logical device creation.
type InstanceAPI interface {
	EnumeratePhysicalDevices() ([]core1_0.PhysicalDevice, error)
	DeviceDetails(device core1_0.PhysicalDevice) (DeviceDetails, error)
	QueueFamilies(device core1_0.PhysicalDevice) []QueueFamily
	DeviceExtensions(device core1_0.PhysicalDevice) (ExtensionSet, error)

	SurfaceSupport(device core1_0.PhysicalDevice, surface khr_surface.Surface, family int) (bool, error)
	SurfaceCapabilities(device core1_0.PhysicalDevice, surface khr_surface.Surface) (*khr_surface.SurfaceCapabilities, error)
	SurfaceFormats(device core1_0.PhysicalDevice, surface khr_surface.Surface) ([]khr_surface.SurfaceFormat, error)
	SurfacePresentModes(device core1_0.PhysicalDevice, surface khr_surface.Surface) ([]khr_surface.PresentMode, error)

	CreateDevice(device core1_0.PhysicalDevice, info core1_0.DeviceCreateInfo) (DeviceAPI, error)
}

// DeviceAPI is the device-level driver surface used by every stage after
// logical device creation. Create calls pass no allocation callbacks.
type DeviceAPI interface {
	GetQueue(family int) core1_0.Queue
	WaitIdle() error
	QueueWaitIdle(queue core1_0.Queue) error
	Destroy()

	CreateSwapchain(info khr_swapchain.SwapchainCreateInfo) (khr_swapchain.Swapchain, error)
	SwapchainImages(swapchain khr_swapchain.Swapchain) ([]core1_0.Image, error)
	DestroySwapchain(swapchain khr_swapchain.Swapchain)

	CreateImageView(info core1_0.ImageViewCreateInfo) (core1_0.ImageView, error)
	DestroyImageView(view core1_0.ImageView)
	CreateFramebuffer(info core1_0.FramebufferCreateInfo) (core1_0.Framebuffer, error)
	DestroyFramebuffer(framebuffer core1_0.Framebuffer)

	CreateRenderPass(info core1_0.RenderPassCreateInfo) (core1_0.RenderPass, error)
	DestroyRenderPass(renderPass core1_0.RenderPass)
	CreateShaderModule(info core1_0.ShaderModuleCreateInfo) (core1_0.ShaderModule, error)
	DestroyShaderModule(module core1_0.ShaderModule)
	CreatePipelineLayout(info core1_0.PipelineLayoutCreateInfo) (core1_0.PipelineLayout, error)
	DestroyPipelineLayout(layout core1_0.PipelineLayout)
	CreateGraphicsPipeline(info core1_0.GraphicsPipelineCreateInfo) (core1_0.Pipeline, error)
	DestroyPipeline(pipeline core1_0.Pipeline)

	CreateCommandPool(info core1_0.CommandPoolCreateInfo) (core1_0.CommandPool, error)
	DestroyCommandPool(pool core1_0.CommandPool)
	AllocateCommandBuffers(info core1_0.CommandBufferAllocateInfo) ([]core1_0.CommandBuffer, error)
	FreeCommandBuffers(buffers []core1_0.CommandBuffer)

	BeginCommandBuffer(buffer core1_0.CommandBuffer, info core1_0.CommandBufferBeginInfo) error
	CmdBeginRenderPass(buffer core1_0.CommandBuffer, info core1_0.RenderPassBeginInfo) error
	CmdBindPipeline(buffer core1_0.CommandBuffer, pipeline core1_0.Pipeline)
	CmdDraw(buffer core1_0.CommandBuffer, vertexCount, instanceCount int)
	CmdEndRenderPass(buffer core1_0.CommandBuffer)
	EndCommandBuffer(buffer core1_0.CommandBuffer) error

	CreateSemaphore() (core1_0.Semaphore, error)
	DestroySemaphore(semaphore core1_0.Semaphore)

	// AcquireNextImage blocks without timeout until an image is available and
	// signals the semaphore when it is ready to be rendered to.
	AcquireNextImage(swapchain khr_swapchain.Swapchain, signal core1_0.Semaphore) (int, error)
	QueueSubmit(queue core1_0.Queue, info core1_0.SubmitInfo) error
	QueuePresent(queue core1_0.Queue, info khr_swapchain.PresentInfo) error
}

type vkInstance struct {
	driver  core1_0.CoreInstanceDriver
	surface khr_surface.ExtensionDriver
}

var _ InstanceAPI = (*vkInstance)(nil)

func (i *vkInstance) EnumeratePhysicalDevices() ([]core1_0.PhysicalDevice, error) {
	devices, _, err := i.driver.EnumeratePhysicalDevices()
	return devices, err
}

func (i *vkInstance) DeviceDetails(device core1_0.PhysicalDevice) (DeviceDetails, error) {
	props, err := i.driver.GetPhysicalDeviceProperties(device)
	if err != nil {
		return DeviceDetails{}, err
	}
	features := i.driver.GetPhysicalDeviceFeatures(device)

	return DeviceDetails{
		Name:            props.DriverName,
		Type:            props.DriverType,
		VendorID:        uint32(props.VendorID),
		DeviceID:        uint32(props.DeviceID),
		PipelineCacheID: props.PipelineCacheUUID,
		GeometryShader:  features.GeometryShader,
	}, nil
}

func (i *vkInstance) QueueFamilies(device core1_0.PhysicalDevice) []QueueFamily {
	props := i.driver.GetPhysicalDeviceQueueFamilyProperties(device)
	families := make([]QueueFamily, 0, len(props))
	for _, family := range props {
		families = append(families, QueueFamily{Flags: family.QueueFlags, Count: family.QueueCount})
	}
	return families
}

func (i *vkInstance) DeviceExtensions(device core1_0.PhysicalDevice) (ExtensionSet, error) {
	extensions, _, err := i.driver.EnumerateDeviceExtensionProperties(device)
	if err != nil {
		return nil, err
	}
	return extensionSetOf(extensions), nil
}

func (i *vkInstance) SurfaceSupport(device core1_0.PhysicalDevice, surface khr_surface.Surface, family int) (bool, error) {
	supported, _, err := i.surface.GetPhysicalDeviceSurfaceSupport(surface, device, family)
	return supported, err
}

func (i *vkInstance) SurfaceCapabilities(device core1_0.PhysicalDevice, surface khr_surface.Surface) (*khr_surface.SurfaceCapabilities, error) {
	caps, _, err := i.surface.GetPhysicalDeviceSurfaceCapabilities(surface, device)
	return caps, err
}

func (i *vkInstance) SurfaceFormats(device core1_0.PhysicalDevice, surface khr_surface.Surface) ([]khr_surface.SurfaceFormat, error) {
	formats, _, err := i.surface.GetPhysicalDeviceSurfaceFormats(surface, device)
	return formats, err
}

func (i *vkInstance) SurfacePresentModes(device core1_0.PhysicalDevice, surface khr_surface.Surface) ([]khr_surface.PresentMode, error) {
	modes, _, err := i.surface.GetPhysicalDeviceSurfacePresentModes(surface, device)
	return modes, err
}

func (i *vkInstance) CreateDevice(device core1_0.PhysicalDevice, info core1_0.DeviceCreateInfo) (DeviceAPI, error) {
	handle, _, err := i.driver.CreateDevice(device, nil, info)
	if err != nil {
		return nil, err
	}
	driver, err := i.driver.BuildDeviceDriver(handle)
	if err != nil {
		return nil, err
	}
	return &vkDevice{
		driver:    driver,
		swapchain: khr_swapchain.CreateExtensionDriverFromCoreDriver(driver),
	}, nil
}

type vkDevice struct {
	driver    core1_0.CoreDeviceDriver
	swapchain khr_swapchain.ExtensionDriver
}

var _ DeviceAPI = (*vkDevice)(nil)

func (d *vkDevice) GetQueue(family int) core1_0.Queue {
	return d.driver.GetQueue(family, 0)
}

func (d *vkDevice) WaitIdle() error {
	_, err := d.driver.DeviceWaitIdle()
	return err
}

func (d *vkDevice) QueueWaitIdle(queue core1_0.Queue) error {
	_, err := d.driver.QueueWaitIdle(queue)
	return err
}

func (d *vkDevice) Destroy() {
	d.driver.DestroyDevice(nil)
}

func (d *vkDevice) CreateSwapchain(info khr_swapchain.SwapchainCreateInfo) (khr_swapchain.Swapchain, error) {
	swapchain, _, err := d.swapchain.CreateSwapchain(nil, info)
	return swapchain, err
}

func (d *vkDevice) SwapchainImages(swapchain khr_swapchain.Swapchain) ([]core1_0.Image, error) {
	images, _, err := d.swapchain.GetSwapchainImages(swapchain)
	return images, err
}

func (d *vkDevice) DestroySwapchain(swapchain khr_swapchain.Swapchain) {
	d.swapchain.DestroySwapchain(swapchain, nil)
}

func (d *vkDevice) CreateImageView(info core1_0.ImageViewCreateInfo) (core1_0.ImageView, error) {
	view, _, err := d.driver.CreateImageView(nil, info)
	return view, err
}

func (d *vkDevice) DestroyImageView(view core1_0.ImageView) {
	d.driver.DestroyImageView(view, nil)
}

func (d *vkDevice) CreateFramebuffer(info core1_0.FramebufferCreateInfo) (core1_0.Framebuffer, error) {
	framebuffer, _, err := d.driver.CreateFramebuffer(nil, info)
	return framebuffer, err
}

func (d *vkDevice) DestroyFramebuffer(framebuffer core1_0.Framebuffer) {
	d.driver.DestroyFramebuffer(framebuffer, nil)
}

func (d *vkDevice) CreateRenderPass(info core1_0.RenderPassCreateInfo) (core1_0.RenderPass, error) {
	renderPass, _, err := d.driver.CreateRenderPass(nil, info)
	return renderPass, err
}

func (d *vkDevice) DestroyRenderPass(renderPass core1_0.RenderPass) {
	d.driver.DestroyRenderPass(renderPass, nil)
}

func (d *vkDevice) CreateShaderModule(info core1_0.ShaderModuleCreateInfo) (core1_0.ShaderModule, error) {
	module, _, err := d.driver.CreateShaderModule(nil, info)
	return module, err
}

func (d *vkDevice) DestroyShaderModule(module core1_0.ShaderModule) {
	d.driver.DestroyShaderModule(module, nil)
}

func (d *vkDevice) CreatePipelineLayout(info core1_0.PipelineLayoutCreateInfo) (core1_0.PipelineLayout, error) {
	layout, _, err := d.driver.CreatePipelineLayout(nil, info)
	return layout, err
}

func (d *vkDevice) DestroyPipelineLayout(layout core1_0.PipelineLayout) {
	d.driver.DestroyPipelineLayout(layout, nil)
}

func (d *vkDevice) CreateGraphicsPipeline(info core1_0.GraphicsPipelineCreateInfo) (core1_0.Pipeline, error) {
	pipelines, _, err := d.driver.CreateGraphicsPipelines(nil, nil, info)
	if err != nil {
		return core1_0.Pipeline{}, err
	}
	return pipelines[0], nil
}

func (d *vkDevice) DestroyPipeline(pipeline core1_0.Pipeline) {
	d.driver.DestroyPipeline(pipeline, nil)
}

func (d *vkDevice) CreateCommandPool(info core1_0.CommandPoolCreateInfo) (core1_0.CommandPool, error) {
	pool, _, err := d.driver.CreateCommandPool(nil, info)
	return pool, err
}

func (d *vkDevice) DestroyCommandPool(pool core1_0.CommandPool) {
	d.driver.DestroyCommandPool(pool, nil)
}

func (d *vkDevice) AllocateCommandBuffers(info core1_0.CommandBufferAllocateInfo) ([]core1_0.CommandBuffer, error) {
	buffers, _, err := d.driver.AllocateCommandBuffers(info)
	return buffers, err
}

func (d *vkDevice) FreeCommandBuffers(buffers []core1_0.CommandBuffer) {
	d.driver.FreeCommandBuffers(buffers...)
}

func (d *vkDevice) BeginCommandBuffer(buffer core1_0.CommandBuffer, info core1_0.CommandBufferBeginInfo) error {
	_, err := d.driver.BeginCommandBuffer(buffer, info)
	return err
}

func (d *vkDevice) CmdBeginRenderPass(buffer core1_0.CommandBuffer, info core1_0.RenderPassBeginInfo) error {
	return d.driver.CmdBeginRenderPass(buffer, core1_0.SubpassContentsInline, info)
}

func (d *vkDevice) CmdBindPipeline(buffer core1_0.CommandBuffer, pipeline core1_0.Pipeline) {
	d.driver.CmdBindPipeline(buffer, core1_0.PipelineBindPointGraphics, pipeline)
}

func (d *vkDevice) CmdDraw(buffer core1_0.CommandBuffer, vertexCount, instanceCount int) {
	d.driver.CmdDraw(buffer, vertexCount, instanceCount, 0, 0)
}

func (d *vkDevice) CmdEndRenderPass(buffer core1_0.CommandBuffer) {
	d.driver.CmdEndRenderPass(buffer)
}

func (d *vkDevice) EndCommandBuffer(buffer core1_0.CommandBuffer) error {
	_, err := d.driver.EndCommandBuffer(buffer)
	return err
}

func (d *vkDevice) CreateSemaphore() (core1_0.Semaphore, error) {
	semaphore, _, err := d.driver.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
	return semaphore, err
}

func (d *vkDevice) DestroySemaphore(semaphore core1_0.Semaphore) {
	d.driver.DestroySemaphore(semaphore, nil)
}

func (d *vkDevice) AcquireNextImage(swapchain khr_swapchain.Swapchain, signal core1_0.Semaphore) (int, error) {
	index, _, err := d.swapchain.AcquireNextImage(swapchain, common.NoTimeout, &signal, nil)
	return index, err
}

func (d *vkDevice) QueueSubmit(queue core1_0.Queue, info core1_0.SubmitInfo) error {
	_, err := d.driver.QueueSubmit(queue, nil, info)
	return err
}

func (d *vkDevice) QueuePresent(queue core1_0.Queue, info khr_swapchain.PresentInfo) error {
	_, err := d.swapchain.QueuePresent(queue, info)
	return err
}
