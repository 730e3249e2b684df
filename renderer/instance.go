package renderer

import (
	"unsafe"

	"github.com/sirupsen/logrus"
	"github.com/vkngwrapper/core/v3"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

// Window is what the backend needs from the windowing system.
type Window interface {
	// ProcAddr returns the loader's vkGetInstanceProcAddr.
	ProcAddr() unsafe.Pointer
	RequiredExtensions() []string
	CreateSurface(instance core1_0.Instance, surfaces khr_surface.ExtensionDriver) (khr_surface.Surface, error)
	// DrawableSize is the window size in pixels.
	DrawableSize() (width, height int)
}

// Instance owns the Vulkan instance, the optional diagnostic messenger and
// the window surface.
type Instance struct {
	Surface khr_surface.Surface

	driver    core1_0.CoreInstanceDriver
	surfaces  khr_surface.ExtensionDriver
	debug     ext_debug_utils.ExtensionDriver
	messenger Owned[ext_debug_utils.DebugUtilsMessenger]
	surface   Owned[khr_surface.Surface]
	log       logrus.FieldLogger
}

// CreateInstance loads the driver through the window's loader and creates the
// instance with the extensions and layers the config asks for.
func CreateInstance(win Window, cfg Config, log logrus.FieldLogger) (*Instance, error) {
	global, err := core.CreateDriverFromProcAddr(win.ProcAddr())
	if err != nil {
		return nil, stageError(err, ErrInstanceCreation, "load vulkan driver")
	}

	available, _, err := global.AvailableExtensions()
	if err != nil {
		return nil, stageError(err, ErrInstanceCreation, "vkEnumerateInstanceExtensionProperties")
	}
	extensions := extensionSetOf(available)
	log.WithField("extensions", extensions.Names()).Debug("Available instance extensions")

	enabled, flags, err := RequiredInstanceExtensions(win.RequiredExtensions(), extensions, cfg)
	if err != nil {
		return nil, err
	}

	availableLayers, _, err := global.AvailableLayers()
	if err != nil {
		return nil, stageError(err, ErrInstanceCreation, "vkEnumerateInstanceLayerProperties")
	}
	layers, err := CheckValidationLayers(extensionSetOf(availableLayers), cfg)
	if err != nil {
		return nil, err
	}

	options := core1_0.InstanceCreateInfo{
		ApplicationName:       cfg.ApplicationName,
		ApplicationVersion:    common.CreateVersion(1, 0, 0),
		EngineName:            "No Engine",
		EngineVersion:         common.CreateVersion(1, 0, 0),
		APIVersion:            common.Vulkan1_2,
		EnabledExtensionNames: enabled,
		EnabledLayerNames:     layers,
		Flags:                 flags,
	}
	if cfg.EnableValidation {
		options.Next = messengerInfo(log)
	}

	instance, _, err := global.CreateInstance(nil, options)
	if err != nil {
		return nil, stageError(err, ErrInstanceCreation, "vkCreateInstance")
	}
	driver, err := global.BuildInstanceDriver(instance)
	if err != nil {
		return nil, stageError(err, ErrInstanceCreation, "build instance driver")
	}

	i := &Instance{
		driver:   driver,
		surfaces: khr_surface.CreateExtensionDriverFromCoreDriver(driver),
		log:      log,
	}
	log.WithFields(logrus.Fields{
		"application": cfg.ApplicationName,
		"extensions":  enabled,
		"layers":      layers,
	}).Info("Created instance")

	if cfg.EnableValidation {
		i.debug = ext_debug_utils.CreateExtensionDriverFromCoreDriver(driver)
		messenger, _, err := i.debug.CreateDebugUtilsMessenger(nil, messengerInfo(log))
		if err != nil {
			i.Destroy()
			return nil, stageError(err, ErrInstanceCreation, "vkCreateDebugUtilsMessengerEXT")
		}
		i.messenger = Own(messenger)
		log.Debug("Registered diagnostic messenger")
	}

	return i, nil
}

func messengerInfo(log logrus.FieldLogger) ext_debug_utils.DebugUtilsMessengerCreateInfo {
	return ext_debug_utils.DebugUtilsMessengerCreateInfo{
		MessageSeverity: ext_debug_utils.SeverityError | ext_debug_utils.SeverityWarning,
		MessageType:     ext_debug_utils.TypeGeneral | ext_debug_utils.TypeValidation | ext_debug_utils.TypePerformance,
		UserCallback:    diagnosticLogger(log),
	}
}

// diagnosticLogger forwards driver diagnostics to log. Returning false lets
// the triggering call proceed.
func diagnosticLogger(log logrus.FieldLogger) func(ext_debug_utils.DebugUtilsMessageTypeFlags, ext_debug_utils.DebugUtilsMessageSeverityFlags, *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
	return func(msgType ext_debug_utils.DebugUtilsMessageTypeFlags, severity ext_debug_utils.DebugUtilsMessageSeverityFlags, data *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
		entry := log.WithField("type", msgType)
		if severity&ext_debug_utils.SeverityError != 0 {
			entry.Error(data.Message)
		} else {
			entry.Warn(data.Message)
		}
		return false
	}
}

// CreateSurface binds the window to the instance.
func (i *Instance) CreateSurface(win Window) error {
	surface, err := win.CreateSurface(i.driver.Instance(), i.surfaces)
	if err != nil {
		return stageError(err, ErrSurfaceCreation, "create window surface")
	}
	i.Surface, i.surface = surface, Own(surface)
	i.log.Debug("Created window surface")
	return nil
}

// API exposes the instance to device selection and logical device creation.
func (i *Instance) API() InstanceAPI {
	return &vkInstance{driver: i.driver, surface: i.surfaces}
}

func (i *Instance) DestroySurface() {
	i.surface.Release(func(s khr_surface.Surface) {
		i.surfaces.DestroySurface(s, nil)
	})
}

// Destroy releases the messenger and the instance. The surface must already be gone.
func (i *Instance) Destroy() {
	i.messenger.Release(func(m ext_debug_utils.DebugUtilsMessenger) {
		i.debug.DestroyDebugUtilsMessenger(m, nil)
	})
	i.driver.DestroyInstance(nil)
	i.log.Debug("Destroyed instance")
}
