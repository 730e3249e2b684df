package renderer

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

var testExtent = core1_0.Extent2D{Width: 800, Height: 600}

func TestCreatePipeline(t *testing.T) {
	log, _ := testLogger(t)
	device := newFakeDevice()

	p, err := CreatePipeline(device, triangleShaders(), testExtent, PreferredSurfaceFormat.Format, DefaultConfig(), log)
	require.NoError(t, err)

	rp := device.renderPassInfo
	require.Len(t, rp.Attachments, 1)
	attachment := rp.Attachments[0]
	assert.Equal(t, PreferredSurfaceFormat.Format, attachment.Format)
	assert.Equal(t, core1_0.AttachmentLoadOpClear, attachment.LoadOp)
	assert.Equal(t, core1_0.AttachmentStoreOpStore, attachment.StoreOp)
	assert.Equal(t, core1_0.ImageLayoutUndefined, attachment.InitialLayout)
	assert.Equal(t, khr_swapchain.ImageLayoutPresentSrc, attachment.FinalLayout)
	require.Len(t, rp.Subpasses, 1)
	assert.Len(t, rp.Subpasses[0].ColorAttachments, 1)

	require.Len(t, device.shaderInfos, 2)
	assert.Equal(t, []uint32{spirvMagic, 0x00010000, 1, 2}, device.shaderInfos[0].Code)
	assert.Equal(t, []uint32{spirvMagic, 0x00010000, 3}, device.shaderInfos[1].Code)

	info := device.pipelineInfo
	require.Len(t, info.Stages, 2)
	assert.Equal(t, core1_0.StageVertex, info.Stages[0].Stage)
	assert.Equal(t, core1_0.StageFragment, info.Stages[1].Stage)
	assert.Equal(t, "main", info.Stages[0].Name)

	assert.Empty(t, info.VertexInputState.VertexBindingDescriptions)
	assert.Empty(t, info.VertexInputState.VertexAttributeDescriptions)
	assert.Equal(t, core1_0.PrimitiveTopologyTriangleList, info.InputAssemblyState.Topology)

	require.Len(t, info.ViewportState.Viewports, 1)
	assert.Equal(t, float32(800), info.ViewportState.Viewports[0].Width)
	assert.Equal(t, float32(600), info.ViewportState.Viewports[0].Height)
	require.Len(t, info.ViewportState.Scissors, 1)
	assert.Equal(t, testExtent, info.ViewportState.Scissors[0].Extent)

	assert.Equal(t, core1_0.CullModeBack, info.RasterizationState.CullMode)
	assert.Equal(t, core1_0.FrontFaceClockwise, info.RasterizationState.FrontFace)
	assert.Equal(t, core1_0.Samples1, info.MultisampleState.RasterizationSamples)

	require.Len(t, info.ColorBlendState.Attachments, 1)
	blend := info.ColorBlendState.Attachments[0]
	assert.False(t, blend.BlendEnabled)
	assert.Equal(t, core1_0.ColorComponentRed|core1_0.ColorComponentGreen|core1_0.ColorComponentBlue|core1_0.ColorComponentAlpha, blend.ColorWriteMask)

	assert.Zero(t, device.live("shader"))
	assert.Equal(t, 1, device.live("pipeline"))

	start := len(device.calls)
	p.Destroy()
	assert.Equal(t, []string{"vkDestroyPipeline", "vkDestroyPipelineLayout", "vkDestroyRenderPass"}, device.since(start))
}

func TestCreatePipeline_MissingShader(t *testing.T) {
	log, _ := testLogger(t)
	device := newFakeDevice()
	shaders := triangleShaders()
	delete(shaders, "frag.spv")

	_, err := CreatePipeline(device, shaders, testExtent, PreferredSurfaceFormat.Format, DefaultConfig(), log)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrShaderLoad))
	assert.Contains(t, err.Error(), "frag.spv")

	assert.Zero(t, device.live("renderPass"))
	assert.Zero(t, device.live("shader"))
}

func TestCreatePipeline_ShaderRejected(t *testing.T) {
	log, _ := testLogger(t)
	device := newFakeDevice()
	device.fail["vkCreateShaderModule"] = errRejected

	_, err := CreatePipeline(device, triangleShaders(), testExtent, PreferredSurfaceFormat.Format, DefaultConfig(), log)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrShaderLoad))
	assert.Zero(t, device.live("renderPass"))
}

func TestCreatePipeline_PipelineRejected(t *testing.T) {
	log, _ := testLogger(t)
	device := newFakeDevice()
	device.fail["vkCreateGraphicsPipelines"] = errRejected

	_, err := CreatePipeline(device, triangleShaders(), testExtent, PreferredSurfaceFormat.Format, DefaultConfig(), log)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPipelineCreation))
	assert.False(t, errors.Is(err, ErrShaderLoad))

	for _, kind := range []string{"renderPass", "layout", "shader", "pipeline"} {
		assert.Zero(t, device.live(kind), kind)
	}
}

func TestCreatePipeline_RenderPassRejected(t *testing.T) {
	log, _ := testLogger(t)
	device := newFakeDevice()
	device.fail["vkCreateRenderPass"] = errRejected

	_, err := CreatePipeline(device, triangleShaders(), testExtent, PreferredSurfaceFormat.Format, DefaultConfig(), log)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPipelineCreation))
	assert.Empty(t, device.shaderInfos)
}
