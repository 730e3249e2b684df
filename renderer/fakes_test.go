package renderer

import (
	"encoding/binary"
	"math"
	"os"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

var errRejected = errors.New("VK_ERROR_INITIALIZATION_FAILED")

func testLogger(t *testing.T) (*logrus.Logger, *test.Hook) {
	t.Helper()
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	return log, hook
}

func hasEntry(hook *test.Hook, level logrus.Level, msg string) bool {
	for _, entry := range hook.AllEntries() {
		if entry.Level == level && entry.Message == msg {
			return true
		}
	}
	return false
}

// spirv returns a minimal buffer that passes bytecode validation.
func spirv(words ...uint32) []byte {
	words = append([]uint32{spirvMagic, 0x00010000}, words...)
	b := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(b[4*i:], w)
	}
	return b
}

type fakeShaders map[string][]byte

func (s fakeShaders) ReadShader(name string) ([]byte, error) {
	b, ok := s[name]
	if !ok {
		return nil, os.ErrNotExist
	}
	return b, nil
}

func triangleShaders() fakeShaders {
	return fakeShaders{"vert.spv": spirv(1, 2), "frag.spv": spirv(3)}
}

// fakePhysical describes one physical device as the driver would report it.
type fakePhysical struct {
	details      DeviceDetails
	families     []QueueFamily
	present      map[int]bool
	extensions   []string
	caps         khr_surface.SurfaceCapabilities
	formats      []khr_surface.SurfaceFormat
	presentModes []khr_surface.PresentMode
}

func capableDevice(name string) fakePhysical {
	return fakePhysical{
		details:    DeviceDetails{Name: name, Type: core1_0.PhysicalDeviceTypeDiscreteGPU},
		families:   []QueueFamily{{Flags: core1_0.QueueGraphics, Count: 1}},
		present:    map[int]bool{0: true},
		extensions: []string{khr_swapchain.ExtensionName},
		caps: khr_surface.SurfaceCapabilities{
			MinImageCount:  2,
			MaxImageCount:  8,
			CurrentExtent:  core1_0.Extent2D{Width: int(uint32(math.MaxUint32)), Height: int(uint32(math.MaxUint32))},
			MinImageExtent: core1_0.Extent2D{Width: 1, Height: 1},
			MaxImageExtent: core1_0.Extent2D{Width: 4096, Height: 4096},
		},
		formats:      []khr_surface.SurfaceFormat{PreferredSurfaceFormat},
		presentModes: []khr_surface.PresentMode{khr_surface.PresentModeFIFO},
	}
}

// fakeInstance serves fakePhysical entries. Physical device handles carry no
// identity outside a real driver, so queries answer for the device whose
// details were read last, matching the evaluator's one-device-at-a-time order.
type fakeInstance struct {
	physical     []fakePhysical
	enumerateErr error
	createErr    error

	current int
	created []core1_0.DeviceCreateInfo
	device  *fakeDevice
}

func (i *fakeInstance) EnumeratePhysicalDevices() ([]core1_0.PhysicalDevice, error) {
	if i.enumerateErr != nil {
		return nil, i.enumerateErr
	}
	i.current = -1
	return make([]core1_0.PhysicalDevice, len(i.physical)), nil
}

func (i *fakeInstance) DeviceDetails(core1_0.PhysicalDevice) (DeviceDetails, error) {
	i.current++
	return i.physical[i.current].details, nil
}

func (i *fakeInstance) QueueFamilies(core1_0.PhysicalDevice) []QueueFamily {
	return append([]QueueFamily(nil), i.physical[i.current].families...)
}

func (i *fakeInstance) DeviceExtensions(core1_0.PhysicalDevice) (ExtensionSet, error) {
	return NewExtensionSet(i.physical[i.current].extensions...), nil
}

func (i *fakeInstance) SurfaceSupport(_ core1_0.PhysicalDevice, _ khr_surface.Surface, family int) (bool, error) {
	return i.physical[i.current].present[family], nil
}

func (i *fakeInstance) SurfaceCapabilities(core1_0.PhysicalDevice, khr_surface.Surface) (*khr_surface.SurfaceCapabilities, error) {
	caps := i.physical[i.current].caps
	return &caps, nil
}

func (i *fakeInstance) SurfaceFormats(core1_0.PhysicalDevice, khr_surface.Surface) ([]khr_surface.SurfaceFormat, error) {
	return i.physical[i.current].formats, nil
}

func (i *fakeInstance) SurfacePresentModes(core1_0.PhysicalDevice, khr_surface.Surface) ([]khr_surface.PresentMode, error) {
	return i.physical[i.current].presentModes, nil
}

func (i *fakeInstance) CreateDevice(_ core1_0.PhysicalDevice, info core1_0.DeviceCreateInfo) (DeviceAPI, error) {
	i.created = append(i.created, info)
	if i.createErr != nil {
		return nil, i.createErr
	}
	if i.device == nil {
		i.device = newFakeDevice()
	}
	i.device.created["device"]++
	return i.device, nil
}

// fakeDevice records every call by its Vulkan entry point name and fails the
// ones listed in fail.
type fakeDevice struct {
	calls     []string
	fail      map[string]error
	created   map[string]int
	destroyed map[string]int

	swapchainInfo    khr_swapchain.SwapchainCreateInfo
	viewInfos        []core1_0.ImageViewCreateInfo
	framebufferInfos []core1_0.FramebufferCreateInfo
	renderPassInfo   core1_0.RenderPassCreateInfo
	shaderInfos      []core1_0.ShaderModuleCreateInfo
	pipelineInfo     core1_0.GraphicsPipelineCreateInfo
	poolInfo         core1_0.CommandPoolCreateInfo
	allocateInfo     core1_0.CommandBufferAllocateInfo
	beginInfos       []core1_0.CommandBufferBeginInfo
	passBegins       []core1_0.RenderPassBeginInfo
	draws            [][2]int
	submits          []core1_0.SubmitInfo
	presents         []khr_swapchain.PresentInfo
	freed            int

	acquireIndex int
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		fail:      map[string]error{},
		created:   map[string]int{},
		destroyed: map[string]int{},
	}
}

func (d *fakeDevice) call(name string) error {
	d.calls = append(d.calls, name)
	return d.fail[name]
}

func (d *fakeDevice) create(kind, name string) error {
	if err := d.call(name); err != nil {
		return err
	}
	d.created[kind]++
	return nil
}

func (d *fakeDevice) destroy(kind, name string) {
	d.calls = append(d.calls, name)
	d.destroyed[kind]++
}

// live reports how many objects of kind were created and not yet destroyed.
func (d *fakeDevice) live(kind string) int {
	return d.created[kind] - d.destroyed[kind]
}

func (d *fakeDevice) GetQueue(int) core1_0.Queue {
	d.calls = append(d.calls, "vkGetDeviceQueue")
	return core1_0.Queue{}
}

func (d *fakeDevice) WaitIdle() error {
	return d.call("vkDeviceWaitIdle")
}

func (d *fakeDevice) QueueWaitIdle(core1_0.Queue) error {
	return d.call("vkQueueWaitIdle")
}

func (d *fakeDevice) Destroy() {
	d.destroy("device", "vkDestroyDevice")
}

func (d *fakeDevice) CreateSwapchain(info khr_swapchain.SwapchainCreateInfo) (khr_swapchain.Swapchain, error) {
	d.swapchainInfo = info
	return khr_swapchain.Swapchain{}, d.create("swapchain", "vkCreateSwapchainKHR")
}

func (d *fakeDevice) SwapchainImages(khr_swapchain.Swapchain) ([]core1_0.Image, error) {
	if err := d.call("vkGetSwapchainImagesKHR"); err != nil {
		return nil, err
	}
	return make([]core1_0.Image, d.swapchainInfo.MinImageCount), nil
}

func (d *fakeDevice) DestroySwapchain(khr_swapchain.Swapchain) {
	d.destroy("swapchain", "vkDestroySwapchainKHR")
}

func (d *fakeDevice) CreateImageView(info core1_0.ImageViewCreateInfo) (core1_0.ImageView, error) {
	d.viewInfos = append(d.viewInfos, info)
	return core1_0.ImageView{}, d.create("view", "vkCreateImageView")
}

func (d *fakeDevice) DestroyImageView(core1_0.ImageView) {
	d.destroy("view", "vkDestroyImageView")
}

func (d *fakeDevice) CreateFramebuffer(info core1_0.FramebufferCreateInfo) (core1_0.Framebuffer, error) {
	d.framebufferInfos = append(d.framebufferInfos, info)
	return core1_0.Framebuffer{}, d.create("framebuffer", "vkCreateFramebuffer")
}

func (d *fakeDevice) DestroyFramebuffer(core1_0.Framebuffer) {
	d.destroy("framebuffer", "vkDestroyFramebuffer")
}

func (d *fakeDevice) CreateRenderPass(info core1_0.RenderPassCreateInfo) (core1_0.RenderPass, error) {
	d.renderPassInfo = info
	return core1_0.RenderPass{}, d.create("renderPass", "vkCreateRenderPass")
}

func (d *fakeDevice) DestroyRenderPass(core1_0.RenderPass) {
	d.destroy("renderPass", "vkDestroyRenderPass")
}

func (d *fakeDevice) CreateShaderModule(info core1_0.ShaderModuleCreateInfo) (core1_0.ShaderModule, error) {
	d.shaderInfos = append(d.shaderInfos, info)
	return core1_0.ShaderModule{}, d.create("shader", "vkCreateShaderModule")
}

func (d *fakeDevice) DestroyShaderModule(core1_0.ShaderModule) {
	d.destroy("shader", "vkDestroyShaderModule")
}

func (d *fakeDevice) CreatePipelineLayout(core1_0.PipelineLayoutCreateInfo) (core1_0.PipelineLayout, error) {
	return core1_0.PipelineLayout{}, d.create("layout", "vkCreatePipelineLayout")
}

func (d *fakeDevice) DestroyPipelineLayout(core1_0.PipelineLayout) {
	d.destroy("layout", "vkDestroyPipelineLayout")
}

func (d *fakeDevice) CreateGraphicsPipeline(info core1_0.GraphicsPipelineCreateInfo) (core1_0.Pipeline, error) {
	d.pipelineInfo = info
	return core1_0.Pipeline{}, d.create("pipeline", "vkCreateGraphicsPipelines")
}

func (d *fakeDevice) DestroyPipeline(core1_0.Pipeline) {
	d.destroy("pipeline", "vkDestroyPipeline")
}

func (d *fakeDevice) CreateCommandPool(info core1_0.CommandPoolCreateInfo) (core1_0.CommandPool, error) {
	d.poolInfo = info
	return core1_0.CommandPool{}, d.create("pool", "vkCreateCommandPool")
}

func (d *fakeDevice) DestroyCommandPool(core1_0.CommandPool) {
	d.destroy("pool", "vkDestroyCommandPool")
}

func (d *fakeDevice) AllocateCommandBuffers(info core1_0.CommandBufferAllocateInfo) ([]core1_0.CommandBuffer, error) {
	d.allocateInfo = info
	if err := d.call("vkAllocateCommandBuffers"); err != nil {
		return nil, err
	}
	return make([]core1_0.CommandBuffer, info.CommandBufferCount), nil
}

func (d *fakeDevice) FreeCommandBuffers(buffers []core1_0.CommandBuffer) {
	d.calls = append(d.calls, "vkFreeCommandBuffers")
	d.freed += len(buffers)
}

func (d *fakeDevice) BeginCommandBuffer(_ core1_0.CommandBuffer, info core1_0.CommandBufferBeginInfo) error {
	d.beginInfos = append(d.beginInfos, info)
	return d.call("vkBeginCommandBuffer")
}

func (d *fakeDevice) CmdBeginRenderPass(_ core1_0.CommandBuffer, info core1_0.RenderPassBeginInfo) error {
	d.passBegins = append(d.passBegins, info)
	return d.call("vkCmdBeginRenderPass")
}

func (d *fakeDevice) CmdBindPipeline(core1_0.CommandBuffer, core1_0.Pipeline) {
	d.calls = append(d.calls, "vkCmdBindPipeline")
}

func (d *fakeDevice) CmdDraw(_ core1_0.CommandBuffer, vertexCount, instanceCount int) {
	d.calls = append(d.calls, "vkCmdDraw")
	d.draws = append(d.draws, [2]int{vertexCount, instanceCount})
}

func (d *fakeDevice) CmdEndRenderPass(core1_0.CommandBuffer) {
	d.calls = append(d.calls, "vkCmdEndRenderPass")
}

func (d *fakeDevice) EndCommandBuffer(core1_0.CommandBuffer) error {
	return d.call("vkEndCommandBuffer")
}

func (d *fakeDevice) CreateSemaphore() (core1_0.Semaphore, error) {
	return core1_0.Semaphore{}, d.create("semaphore", "vkCreateSemaphore")
}

func (d *fakeDevice) DestroySemaphore(core1_0.Semaphore) {
	d.destroy("semaphore", "vkDestroySemaphore")
}

func (d *fakeDevice) AcquireNextImage(khr_swapchain.Swapchain, core1_0.Semaphore) (int, error) {
	return d.acquireIndex, d.call("vkAcquireNextImageKHR")
}

func (d *fakeDevice) QueueSubmit(_ core1_0.Queue, info core1_0.SubmitInfo) error {
	d.submits = append(d.submits, info)
	return d.call("vkQueueSubmit")
}

func (d *fakeDevice) QueuePresent(_ core1_0.Queue, info khr_swapchain.PresentInfo) error {
	d.presents = append(d.presents, info)
	return d.call("vkQueuePresentKHR")
}

// since returns the calls recorded after the first n.
func (d *fakeDevice) since(n int) []string {
	return append([]string(nil), d.calls[n:]...)
}
