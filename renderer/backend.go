package renderer

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

// Backend is the fully initialized rendering chain for one window: device,
// swapchain, pipeline, recorded commands and frame synchronization.
type Backend struct {
	Candidate *DeviceCandidate
	Device    *LogicalDevice
	Swapchain *Swapchain
	Pipeline  *Pipeline
	Commands  *CommandBufferSet
	Sync      *FrameSync

	frames *frameLoop
	td     teardown
	log    logrus.FieldLogger
}

// New brings up the whole chain against win. Any failure releases everything
// created so far and returns an error marked with the failing stage.
func New(win Window, cfg Config, log logrus.FieldLogger) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b := &Backend{td: teardown{log: log}, log: log}

	inst, err := CreateInstance(win, cfg, log)
	if err != nil {
		return nil, err
	}
	b.td.push("instance", inst.Destroy)

	if err := inst.CreateSurface(win); err != nil {
		b.td.run()
		return nil, err
	}
	b.td.push("surface", inst.DestroySurface)

	shaders := FSShaders{FS: os.DirFS(cfg.ShaderDir)}
	if err := b.build(inst.API(), inst.Surface, shaders, requestedExtent(win, cfg), cfg); err != nil {
		b.td.run()
		return nil, err
	}
	return b, nil
}

func requestedExtent(win Window, cfg Config) core1_0.Extent2D {
	if width, height := win.DrawableSize(); width > 0 && height > 0 {
		return core1_0.Extent2D{Width: width, Height: height}
	}
	return core1_0.Extent2D{Width: cfg.Width, Height: cfg.Height}
}

func (b *Backend) build(api InstanceAPI, surface khr_surface.Surface, shaders ShaderSource, requested core1_0.Extent2D, cfg Config) error {
	candidates, err := Enumerate(api, surface)
	if err != nil {
		return err
	}

	req := cfg.RequiredCapabilities()
	for _, c := range candidates {
		b.log.WithFields(logrus.Fields{
			"device":     c.Name,
			"acceptable": c.IsAcceptable(req),
			"score":      c.Score(),
		}).Debug("Evaluated device")
	}

	chosen, err := SelectDevice(candidates, req)
	if err != nil {
		return err
	}
	b.Candidate = chosen
	b.log.WithFields(logrus.Fields{
		"device":        chosen.Name,
		"type":          deviceTypeName(chosen.Type),
		"pipelineCache": chosen.PipelineCacheID,
	}).Info("Selected device")

	if b.Device, err = CreateLogicalDevice(api, chosen, cfg, b.log); err != nil {
		return err
	}
	b.td.push("device", b.Device.Destroy)

	if b.Swapchain, err = CreateSwapchain(b.Device, chosen, surface, requested, b.log); err != nil {
		return err
	}
	b.td.push("swapchain", b.Swapchain.Destroy)

	if b.Pipeline, err = CreatePipeline(b.Device.API, shaders, b.Swapchain.Extent, b.Swapchain.Format.Format, cfg, b.log); err != nil {
		return err
	}
	b.td.push("pipeline", b.Pipeline.Destroy)

	if err = b.Swapchain.CreateFramebuffers(b.Pipeline.RenderPass); err != nil {
		return err
	}
	b.td.push("framebuffers", b.Swapchain.DestroyFramebuffers)

	if b.Commands, err = RecordCommands(b.Device.API, b.Swapchain, b.Pipeline, b.Device.GraphicsFamily, cfg.ClearColor, b.log); err != nil {
		return err
	}
	b.td.push("commands", b.Commands.Destroy)

	if b.Sync, err = NewFrameSync(b.Device.API); err != nil {
		return err
	}
	b.td.push("semaphores", b.Sync.Destroy)
	b.log.Debug("Created frame semaphores")

	b.frames = &frameLoop{
		device:    b.Device.API,
		graphics:  b.Device.Graphics,
		present:   b.Device.Present,
		swapchain: b.Swapchain.Handle,
		buffers:   b.Commands.Buffers,
		sync:      b.Sync,
		log:       b.log,
	}
	return nil
}

// DrawFrame waits for the previous frame to be presented, then acquires,
// submits and presents the next image. Errors are not recoverable.
func (b *Backend) DrawFrame() error {
	if b.frames == nil {
		return stageErrorf(ErrFrameSubmission, "backend closed")
	}
	return b.frames.draw()
}

func (b *Backend) State() FrameState {
	if b.frames == nil {
		return FrameIdle
	}
	return b.frames.state
}

func (b *Backend) Stats() FrameStats {
	if b.frames == nil {
		return FrameStats{}
	}
	return b.frames.stats
}

// Close waits for the device to go idle and releases everything in reverse
// creation order. It is safe to call more than once.
func (b *Backend) Close() {
	b.frames = nil
	if b.td.len() == 0 {
		return
	}
	if b.Device != nil {
		if err := b.Device.API.WaitIdle(); err != nil {
			b.log.WithError(err).Warn("vkDeviceWaitIdle failed before teardown")
		}
	}
	b.td.run()
	b.log.Info("Backend closed")
}

// ListDevices reports every physical device as seen against the window's
// surface, without creating a logical device.
func ListDevices(win Window, cfg Config, log logrus.FieldLogger) ([]DeviceReport, error) {
	inst, err := CreateInstance(win, cfg, log)
	if err != nil {
		return nil, err
	}
	defer inst.Destroy()

	if err := inst.CreateSurface(win); err != nil {
		return nil, err
	}
	defer inst.DestroySurface()

	candidates, err := Enumerate(inst.API(), inst.Surface)
	if err != nil {
		return nil, err
	}

	req := cfg.RequiredCapabilities()
	reports := make([]DeviceReport, 0, len(candidates))
	for _, c := range candidates {
		reports = append(reports, c.Report(req))
	}
	return reports, nil
}
