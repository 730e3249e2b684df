// Package window is the SDL2 window the triangle backend renders into.
package window

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	vkng_sdl2 "github.com/vkngwrapper/integrations/sdl2/v3"
)

// Window is a Vulkan-capable SDL2 window. All methods must be called from the
// thread that created it.
type Window struct {
	win  *sdl.Window
	quit bool
}

// Open initializes SDL video, loads the Vulkan loader and opens a window of
// the given size.
func Open(title string, width, height int) (*Window, error) {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return nil, errors.Wrap(err, "sdl init")
	}

	if err := sdl.VulkanLoadLibrary(""); err != nil {
		sdl.Quit()
		return nil, errors.Wrap(err, "load vulkan library")
	}

	win, err := sdl.CreateWindow(title,
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		int32(width),
		int32(height),
		sdl.WINDOW_SHOWN|sdl.WINDOW_VULKAN)
	if err != nil {
		sdl.VulkanUnloadLibrary()
		sdl.Quit()
		return nil, errors.Wrap(err, "create window")
	}

	return &Window{win: win}, nil
}

func (w *Window) ProcAddr() unsafe.Pointer {
	return sdl.VulkanGetVkGetInstanceProcAddr()
}

func (w *Window) RequiredExtensions() []string {
	return w.win.VulkanGetInstanceExtensions()
}

func (w *Window) CreateSurface(instance core1_0.Instance, surfaces khr_surface.ExtensionDriver) (khr_surface.Surface, error) {
	return vkng_sdl2.CreateSurface(instance, surfaces, w.win)
}

func (w *Window) DrawableSize() (int, int) {
	width, height := w.win.VulkanGetDrawableSize()
	return int(width), int(height)
}

// PumpEvents drains the event queue. A quit request or Escape makes
// ShouldClose report true.
func (w *Window) PumpEvents() {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			w.quit = true
		case *sdl.KeyboardEvent:
			if e.Type == sdl.KEYDOWN && e.Keysym.Sym == sdl.K_ESCAPE {
				w.quit = true
			}
		}
	}
}

func (w *Window) ShouldClose() bool {
	return w.quit
}

// Close destroys the window and shuts SDL down. The backend must be closed first.
func (w *Window) Close() {
	if w.win != nil {
		w.win.Destroy()
		w.win = nil
	}
	sdl.VulkanUnloadLibrary()
	sdl.Quit()
}
