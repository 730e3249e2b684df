package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/sirupsen/logrus"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// CommandBufferSet holds one pre-recorded primary buffer per framebuffer,
// index-aligned with the swapchain.
type CommandBufferSet struct {
	Pool    core1_0.CommandPool
	Buffers []core1_0.CommandBuffer

	device DeviceAPI
	pool   Owned[core1_0.CommandPool]
	log    logrus.FieldLogger
}

// RecordCommands allocates a buffer per swapchain framebuffer and records the
// clear, bind and 3-vertex draw into each. The buffers are never re-recorded.
func RecordCommands(device DeviceAPI, sc *Swapchain, p *Pipeline, graphicsFamily int, clear mgl32.Vec4, log logrus.FieldLogger) (*CommandBufferSet, error) {
	pool, err := device.CreateCommandPool(core1_0.CommandPoolCreateInfo{
		QueueFamilyIndex: graphicsFamily,
	})
	if err != nil {
		return nil, stageError(err, ErrCommandRecording, "vkCreateCommandPool")
	}
	set := &CommandBufferSet{Pool: pool, device: device, pool: Own(pool), log: log}
	log.WithField("family", graphicsFamily).Debug("Created command pool")

	buffers, err := device.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        pool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: len(sc.Framebuffers),
	})
	if err != nil {
		set.Destroy()
		return nil, stageError(err, ErrCommandRecording, "vkAllocateCommandBuffers")
	}
	set.Buffers = buffers

	for idx, buffer := range buffers {
		if err := record(device, buffer, sc.Framebuffers[idx], sc.Extent, p, clear); err != nil {
			set.Destroy()
			return nil, errors.Wrapf(err, "command buffer %d", idx)
		}
	}

	log.WithField("count", len(buffers)).Debug("Recorded command buffers")
	return set, nil
}

func record(device DeviceAPI, buffer core1_0.CommandBuffer, framebuffer core1_0.Framebuffer, extent core1_0.Extent2D, p *Pipeline, clear mgl32.Vec4) error {
	err := device.BeginCommandBuffer(buffer, core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageSimultaneousUse,
	})
	if err != nil {
		return stageError(err, ErrCommandRecording, "vkBeginCommandBuffer")
	}

	err = device.CmdBeginRenderPass(buffer, core1_0.RenderPassBeginInfo{
		RenderPass:  p.RenderPass,
		Framebuffer: framebuffer,
		RenderArea: core1_0.Rect2D{
			Offset: core1_0.Offset2D{X: 0, Y: 0},
			Extent: extent,
		},
		ClearValues: []core1_0.ClearValue{
			core1_0.ClearValueFloat(clear),
		},
	})
	if err != nil {
		return stageError(err, ErrCommandRecording, "vkCmdBeginRenderPass")
	}

	device.CmdBindPipeline(buffer, p.Handle)
	device.CmdDraw(buffer, 3, 1)
	device.CmdEndRenderPass(buffer)

	if err := device.EndCommandBuffer(buffer); err != nil {
		return stageError(err, ErrCommandRecording, "vkEndCommandBuffer")
	}
	return nil
}

// Destroy frees the buffers and then the pool.
func (s *CommandBufferSet) Destroy() {
	if len(s.Buffers) > 0 {
		s.device.FreeCommandBuffers(s.Buffers)
		s.Buffers = nil
	}
	s.pool.Release(s.device.DestroyCommandPool)
	s.log.Debug("Destroyed command pool")
}
