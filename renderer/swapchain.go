package renderer

import (
	"math"

	"github.com/sirupsen/logrus"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

// PreferredSurfaceFormat is used whenever the surface leaves the choice to us.
var PreferredSurfaceFormat = khr_surface.SurfaceFormat{
	Format:     core1_0.FormatB8G8R8A8UnsignedNormalized,
	ColorSpace: khr_surface.ColorSpaceSRGBNonlinear,
}

// ChooseSurfaceFormat picks PreferredSurfaceFormat when the surface reports a
// single undefined format or lists the preferred pair, else the first format.
func ChooseSurfaceFormat(formats []khr_surface.SurfaceFormat) khr_surface.SurfaceFormat {
	if len(formats) == 0 {
		return PreferredSurfaceFormat
	}
	if len(formats) == 1 && formats[0].Format == core1_0.FormatUndefined {
		return PreferredSurfaceFormat
	}
	for _, format := range formats {
		if format == PreferredSurfaceFormat {
			return format
		}
	}
	return formats[0]
}

// ChoosePresentMode prefers mailbox, then immediate, then FIFO.
func ChoosePresentMode(modes []khr_surface.PresentMode) khr_surface.PresentMode {
	best := khr_surface.PresentModeFIFO
	for _, mode := range modes {
		switch mode {
		case khr_surface.PresentModeMailbox:
			return mode
		case khr_surface.PresentModeImmediate:
			best = mode
		}
	}
	return best
}

// windowSizedExtent reports whether the surface leaves the extent to the
// application. The driver signals that with a width of 0xFFFFFFFF, which
// arrives either sign-extended or zero-extended depending on the binding.
func windowSizedExtent(extent core1_0.Extent2D) bool {
	return uint32(extent.Width) == math.MaxUint32
}

// ChooseExtent uses the surface's current extent when it has one, else clamps
// the requested extent per axis into the supported range.
func ChooseExtent(caps *khr_surface.SurfaceCapabilities, requested core1_0.Extent2D) core1_0.Extent2D {
	if !windowSizedExtent(caps.CurrentExtent) {
		return caps.CurrentExtent
	}
	return core1_0.Extent2D{
		Width:  clamp(requested.Width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clamp(requested.Height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// ChooseImageCount asks for one image over the minimum, bounded by the maximum
// when the surface reports one.
func ChooseImageCount(caps *khr_surface.SurfaceCapabilities) int {
	count := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

// ChooseSharingMode shares images concurrently between the two families when
// they differ.
func ChooseSharingMode(graphics, present int) (core1_0.SharingMode, []int) {
	if graphics == present {
		return core1_0.SharingModeExclusive, nil
	}
	return core1_0.SharingModeConcurrent, []int{graphics, present}
}

// Swapchain owns the presentable image chain and the per-image views and
// framebuffers. Views and framebuffers are index-aligned with Images.
type Swapchain struct {
	Handle      khr_swapchain.Swapchain
	Format      khr_surface.SurfaceFormat
	PresentMode khr_surface.PresentMode
	Extent      core1_0.Extent2D

	Images       []core1_0.Image
	Views        []core1_0.ImageView
	Framebuffers []core1_0.Framebuffer

	device DeviceAPI
	handle Owned[khr_swapchain.Swapchain]
	log    logrus.FieldLogger
}

// CreateSwapchain creates the image chain for the candidate's surface support
// and one view per image.
func CreateSwapchain(device *LogicalDevice, c *DeviceCandidate, surface khr_surface.Surface, requested core1_0.Extent2D, log logrus.FieldLogger) (*Swapchain, error) {
	caps := c.Surface.Capabilities
	if caps == nil {
		return nil, stageErrorf(ErrSwapchainCreation, "no surface capabilities for %q", c.Name)
	}

	format := ChooseSurfaceFormat(c.Surface.Formats)
	presentMode := ChoosePresentMode(c.Surface.PresentModes)
	extent := ChooseExtent(caps, requested)
	sharing, families := ChooseSharingMode(device.GraphicsFamily, device.PresentFamily)

	handle, err := device.API.CreateSwapchain(khr_swapchain.SwapchainCreateInfo{
		Surface: surface,

		MinImageCount:    ChooseImageCount(caps),
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       core1_0.ImageUsageColorAttachment,

		ImageSharingMode:   sharing,
		QueueFamilyIndices: families,

		PreTransform:   caps.CurrentTransform,
		CompositeAlpha: khr_surface.CompositeAlphaOpaque,
		PresentMode:    presentMode,
		Clipped:        true,
	})
	if err != nil {
		return nil, stageError(err, ErrSwapchainCreation, "vkCreateSwapchainKHR")
	}

	s := &Swapchain{
		Handle:      handle,
		Format:      format,
		PresentMode: presentMode,
		Extent:      extent,
		device:      device.API,
		handle:      Own(handle),
		log:         log,
	}

	if s.Images, err = device.API.SwapchainImages(handle); err != nil {
		s.Destroy()
		return nil, stageError(err, ErrSwapchainCreation, "vkGetSwapchainImagesKHR")
	}

	for _, image := range s.Images {
		view, err := device.API.CreateImageView(core1_0.ImageViewCreateInfo{
			Image:    image,
			ViewType: core1_0.ImageViewType2D,
			Format:   format.Format,
			SubresourceRange: core1_0.ImageSubresourceRange{
				AspectMask:     core1_0.ImageAspectColor,
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		})
		if err != nil {
			s.Destroy()
			return nil, stageError(err, ErrSwapchainCreation, "vkCreateImageView")
		}
		s.Views = append(s.Views, view)
	}

	log.WithFields(logrus.Fields{
		"images":      len(s.Images),
		"width":       extent.Width,
		"height":      extent.Height,
		"format":      format.Format,
		"presentMode": presentMode,
		"sharing":     sharing,
	}).Info("Created swapchain")
	log.WithField("count", len(s.Views)).Debug("Created swapchain image views")
	return s, nil
}

func (s *Swapchain) ImageCount() int {
	return len(s.Images)
}

// CreateFramebuffers builds one framebuffer per view for the render pass.
func (s *Swapchain) CreateFramebuffers(renderPass core1_0.RenderPass) error {
	for _, view := range s.Views {
		framebuffer, err := s.device.CreateFramebuffer(core1_0.FramebufferCreateInfo{
			RenderPass:  renderPass,
			Attachments: []core1_0.ImageView{view},
			Width:       s.Extent.Width,
			Height:      s.Extent.Height,
			Layers:      1,
		})
		if err != nil {
			s.DestroyFramebuffers()
			return stageError(err, ErrSwapchainCreation, "vkCreateFramebuffer")
		}
		s.Framebuffers = append(s.Framebuffers, framebuffer)
	}
	s.log.WithField("count", len(s.Framebuffers)).Debug("Created framebuffers")
	return nil
}

func (s *Swapchain) DestroyFramebuffers() {
	for _, framebuffer := range s.Framebuffers {
		s.device.DestroyFramebuffer(framebuffer)
	}
	s.Framebuffers = nil
}

// Destroy releases framebuffers, views and the chain, in that order.
func (s *Swapchain) Destroy() {
	s.DestroyFramebuffers()
	for _, view := range s.Views {
		s.device.DestroyImageView(view)
	}
	s.Views = nil
	s.Images = nil
	s.handle.Release(s.device.DestroySwapchain)
	s.log.Debug("Destroyed swapchain")
}
