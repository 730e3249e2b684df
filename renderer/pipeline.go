package renderer

import (
	"github.com/sirupsen/logrus"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

// Pipeline owns the render pass and the graphics pipeline built against one
// swapchain format and extent. A different format or extent needs a new Pipeline.
type Pipeline struct {
	RenderPass core1_0.RenderPass
	Layout     core1_0.PipelineLayout
	Handle     core1_0.Pipeline

	device     DeviceAPI
	renderPass Owned[core1_0.RenderPass]
	layout     Owned[core1_0.PipelineLayout]
	pipeline   Owned[core1_0.Pipeline]
	log        logrus.FieldLogger
}

func renderPassInfo(format core1_0.Format) core1_0.RenderPassCreateInfo {
	return core1_0.RenderPassCreateInfo{
		Attachments: []core1_0.AttachmentDescription{
			{
				Format:         format,
				Samples:        core1_0.Samples1,
				LoadOp:         core1_0.AttachmentLoadOpClear,
				StoreOp:        core1_0.AttachmentStoreOpStore,
				StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
				StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
				InitialLayout:  core1_0.ImageLayoutUndefined,
				FinalLayout:    khr_swapchain.ImageLayoutPresentSrc,
			},
		},
		Subpasses: []core1_0.SubpassDescription{
			{
				PipelineBindPoint: core1_0.PipelineBindPointGraphics,
				ColorAttachments: []core1_0.AttachmentReference{
					{
						Attachment: 0,
						Layout:     core1_0.ImageLayoutColorAttachmentOptimal,
					},
				},
			},
		},
		SubpassDependencies: []core1_0.SubpassDependency{
			{
				SrcSubpass: core1_0.SubpassExternal,
				DstSubpass: 0,

				SrcStageMask:  core1_0.PipelineStageColorAttachmentOutput,
				SrcAccessMask: 0,

				DstStageMask:  core1_0.PipelineStageColorAttachmentOutput,
				DstAccessMask: core1_0.AccessColorAttachmentWrite,
			},
		},
	}
}

// graphicsPipelineInfo describes the fixed triangle pipeline: no vertex input,
// a static viewport covering extent, back-face culling with clockwise front
// faces and no blending.
func graphicsPipelineInfo(vert, frag core1_0.ShaderModule, extent core1_0.Extent2D, layout core1_0.PipelineLayout, renderPass core1_0.RenderPass) core1_0.GraphicsPipelineCreateInfo {
	return core1_0.GraphicsPipelineCreateInfo{
		Stages: []core1_0.PipelineShaderStageCreateInfo{
			{
				Stage:  core1_0.StageVertex,
				Module: vert,
				Name:   "main",
			},
			{
				Stage:  core1_0.StageFragment,
				Module: frag,
				Name:   "main",
			},
		},
		VertexInputState: &core1_0.PipelineVertexInputStateCreateInfo{},
		InputAssemblyState: &core1_0.PipelineInputAssemblyStateCreateInfo{
			Topology:               core1_0.PrimitiveTopologyTriangleList,
			PrimitiveRestartEnable: false,
		},
		ViewportState: &core1_0.PipelineViewportStateCreateInfo{
			Viewports: []core1_0.Viewport{
				{
					X:        0,
					Y:        0,
					Width:    float32(extent.Width),
					Height:   float32(extent.Height),
					MinDepth: 0,
					MaxDepth: 1,
				},
			},
			Scissors: []core1_0.Rect2D{
				{
					Offset: core1_0.Offset2D{X: 0, Y: 0},
					Extent: extent,
				},
			},
		},
		RasterizationState: &core1_0.PipelineRasterizationStateCreateInfo{
			DepthClampEnable:        false,
			RasterizerDiscardEnable: false,

			PolygonMode: core1_0.PolygonModeFill,
			CullMode:    core1_0.CullModeBack,
			FrontFace:   core1_0.FrontFaceClockwise,

			DepthBiasEnable: false,

			LineWidth: 1.0,
		},
		MultisampleState: &core1_0.PipelineMultisampleStateCreateInfo{
			SampleShadingEnable:  false,
			RasterizationSamples: core1_0.Samples1,
			MinSampleShading:     1.0,
		},
		ColorBlendState: &core1_0.PipelineColorBlendStateCreateInfo{
			LogicOpEnabled: false,
			LogicOp:        core1_0.LogicOpCopy,

			BlendConstants: [4]float32{0, 0, 0, 0},
			Attachments: []core1_0.PipelineColorBlendAttachmentState{
				{
					BlendEnabled:   false,
					ColorWriteMask: core1_0.ColorComponentRed | core1_0.ColorComponentGreen | core1_0.ColorComponentBlue | core1_0.ColorComponentAlpha,
				},
			},
		},
		Layout:            layout,
		RenderPass:        renderPass,
		Subpass:           0,
		BasePipelineIndex: -1,
	}
}

// CreatePipeline builds the render pass, an empty pipeline layout and the
// graphics pipeline for the given swapchain format and extent. Shader modules
// live only as long as pipeline creation.
func CreatePipeline(device DeviceAPI, shaders ShaderSource, extent core1_0.Extent2D, format core1_0.Format, cfg Config, log logrus.FieldLogger) (*Pipeline, error) {
	p := &Pipeline{device: device, log: log}

	renderPass, err := device.CreateRenderPass(renderPassInfo(format))
	if err != nil {
		return nil, stageError(err, ErrPipelineCreation, "vkCreateRenderPass")
	}
	p.RenderPass, p.renderPass = renderPass, Own(renderPass)
	log.Debug("Created render pass")

	vert, err := createShaderModule(device, shaders, cfg.VertexShader)
	if err != nil {
		p.Destroy()
		return nil, err
	}
	defer device.DestroyShaderModule(vert)

	frag, err := createShaderModule(device, shaders, cfg.FragmentShader)
	if err != nil {
		p.Destroy()
		return nil, err
	}
	defer device.DestroyShaderModule(frag)

	layout, err := device.CreatePipelineLayout(core1_0.PipelineLayoutCreateInfo{})
	if err != nil {
		p.Destroy()
		return nil, stageError(err, ErrPipelineCreation, "vkCreatePipelineLayout")
	}
	p.Layout, p.layout = layout, Own(layout)

	pipeline, err := device.CreateGraphicsPipeline(graphicsPipelineInfo(vert, frag, extent, layout, renderPass))
	if err != nil {
		p.Destroy()
		return nil, stageError(err, ErrPipelineCreation, "vkCreateGraphicsPipelines")
	}
	p.Handle, p.pipeline = pipeline, Own(pipeline)

	log.WithFields(logrus.Fields{
		"vertex":   cfg.VertexShader,
		"fragment": cfg.FragmentShader,
	}).Info("Created graphics pipeline")
	return p, nil
}

func createShaderModule(device DeviceAPI, shaders ShaderSource, name string) (core1_0.ShaderModule, error) {
	code, err := loadShaderCode(shaders, name)
	if err != nil {
		return core1_0.ShaderModule{}, err
	}
	module, err := device.CreateShaderModule(core1_0.ShaderModuleCreateInfo{Code: code})
	if err != nil {
		return core1_0.ShaderModule{}, stageError(err, ErrShaderLoad, "vkCreateShaderModule "+name)
	}
	return module, nil
}

// Destroy releases the pipeline, its layout and the render pass, in that order.
func (p *Pipeline) Destroy() {
	p.pipeline.Release(p.device.DestroyPipeline)
	p.layout.Release(p.device.DestroyPipelineLayout)
	p.renderPass.Release(p.device.DestroyRenderPass)
	p.log.Debug("Destroyed graphics pipeline")
}
