package renderer

import (
	"time"

	"github.com/loov/hrtime"
	"github.com/sirupsen/logrus"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

// FrameState is where the orchestrator is within a frame. After a failed
// frame it stays at the step that failed.
type FrameState int

const (
	FrameIdle FrameState = iota
	FrameAcquiring
	FrameSubmitted
	FramePresenting
)

func (s FrameState) String() string {
	switch s {
	case FrameIdle:
		return "idle"
	case FrameAcquiring:
		return "acquiring"
	case FrameSubmitted:
		return "submitted"
	case FramePresenting:
		return "presenting"
	}
	return "unknown"
}

// FrameSync is the single pair of semaphores reused by every frame.
type FrameSync struct {
	ImageAvailable core1_0.Semaphore
	RenderFinished core1_0.Semaphore

	device         DeviceAPI
	imageAvailable Owned[core1_0.Semaphore]
	renderFinished Owned[core1_0.Semaphore]
}

func NewFrameSync(device DeviceAPI) (*FrameSync, error) {
	s := &FrameSync{device: device}

	available, err := device.CreateSemaphore()
	if err != nil {
		return nil, stageError(err, ErrFrameSubmission, "vkCreateSemaphore")
	}
	s.ImageAvailable, s.imageAvailable = available, Own(available)

	finished, err := device.CreateSemaphore()
	if err != nil {
		s.Destroy()
		return nil, stageError(err, ErrFrameSubmission, "vkCreateSemaphore")
	}
	s.RenderFinished, s.renderFinished = finished, Own(finished)

	return s, nil
}

func (s *FrameSync) Destroy() {
	s.renderFinished.Release(s.device.DestroySemaphore)
	s.imageAvailable.Release(s.device.DestroySemaphore)
}

// FrameStats is CPU-side timing of DrawFrame calls.
type FrameStats struct {
	Frames int
	Min    time.Duration
	Max    time.Duration
	Total  time.Duration
}

func (s FrameStats) Average() time.Duration {
	if s.Frames == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Frames)
}

func (s *FrameStats) add(d time.Duration) {
	if s.Frames == 0 || d < s.Min {
		s.Min = d
	}
	if d > s.Max {
		s.Max = d
	}
	s.Frames++
	s.Total += d
}

// frameLoop replays the recorded command buffers with one frame resident on
// the GPU at a time. The present queue must drain before the semaphores are
// signalled again.
type frameLoop struct {
	device    DeviceAPI
	graphics  core1_0.Queue
	present   core1_0.Queue
	swapchain khr_swapchain.Swapchain
	buffers   []core1_0.CommandBuffer
	sync      *FrameSync

	state FrameState
	stats FrameStats
	log   logrus.FieldLogger
}

func (f *frameLoop) draw() error {
	start := hrtime.Now()

	if err := f.device.QueueWaitIdle(f.present); err != nil {
		return stageError(err, ErrFrameSubmission, "vkQueueWaitIdle")
	}

	f.state = FrameAcquiring
	imageIndex, err := f.device.AcquireNextImage(f.swapchain, f.sync.ImageAvailable)
	if err != nil {
		return stageError(err, ErrFrameSubmission, "vkAcquireNextImageKHR")
	}
	if imageIndex < 0 || imageIndex >= len(f.buffers) {
		return stageErrorf(ErrFrameSubmission, "acquired image %d outside %d recorded buffers", imageIndex, len(f.buffers))
	}

	f.state = FrameSubmitted
	err = f.device.QueueSubmit(f.graphics, core1_0.SubmitInfo{
		WaitSemaphores:   []core1_0.Semaphore{f.sync.ImageAvailable},
		WaitDstStageMask: []core1_0.PipelineStageFlags{core1_0.PipelineStageColorAttachmentOutput},
		CommandBuffers:   []core1_0.CommandBuffer{f.buffers[imageIndex]},
		SignalSemaphores: []core1_0.Semaphore{f.sync.RenderFinished},
	})
	if err != nil {
		return stageError(err, ErrFrameSubmission, "vkQueueSubmit")
	}

	f.state = FramePresenting
	err = f.device.QueuePresent(f.present, khr_swapchain.PresentInfo{
		WaitSemaphores: []core1_0.Semaphore{f.sync.RenderFinished},
		Swapchains:     []khr_swapchain.Swapchain{f.swapchain},
		ImageIndices:   []int{imageIndex},
	})
	if err != nil {
		return stageError(err, ErrFrameSubmission, "vkQueuePresentKHR")
	}

	f.state = FrameIdle
	f.stats.add(hrtime.Since(start))
	if f.stats.Frames == 1 {
		f.log.WithField("image", imageIndex).Debug("Presented first frame")
	}
	return nil
}
