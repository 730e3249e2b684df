package renderer

import (
	"github.com/sirupsen/logrus"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_portability_subset"
)

// LogicalDevice owns the device and the queues resolved for the graphics and
// present roles. The two queues are the same queue when the families coincide.
type LogicalDevice struct {
	API DeviceAPI

	Graphics       core1_0.Queue
	Present        core1_0.Queue
	GraphicsFamily int
	PresentFamily  int

	log logrus.FieldLogger
}

// UniqueQueueFamilies returns the distinct families among graphics and present,
// graphics first.
func UniqueQueueFamilies(graphics, present int) []int {
	if graphics == present {
		return []int{graphics}
	}
	return []int{graphics, present}
}

func deviceCreateInfo(c *DeviceCandidate, cfg Config) core1_0.DeviceCreateInfo {
	var queues []core1_0.DeviceQueueCreateInfo
	for _, family := range UniqueQueueFamilies(c.GraphicsFamily, c.PresentFamily) {
		queues = append(queues, core1_0.DeviceQueueCreateInfo{
			QueueFamilyIndex: family,
			QueuePriorities:  []float32{1.0},
		})
	}

	extensions := append([]string(nil), cfg.DeviceExtensions...)
	if c.Extensions.Has(khr_portability_subset.ExtensionName) {
		extensions = append(extensions, khr_portability_subset.ExtensionName)
	}

	return core1_0.DeviceCreateInfo{
		QueueCreateInfos:      queues,
		EnabledFeatures:       &core1_0.PhysicalDeviceFeatures{},
		EnabledExtensionNames: extensions,
	}
}

// CreateLogicalDevice creates the device for an accepted candidate and fetches
// queue 0 of the graphics and present families.
func CreateLogicalDevice(api InstanceAPI, c *DeviceCandidate, cfg Config, log logrus.FieldLogger) (*LogicalDevice, error) {
	if !c.QueuesComplete() {
		return nil, stageErrorf(ErrDeviceCreation, "device %q has unresolved queue families", c.Name)
	}

	info := deviceCreateInfo(c, cfg)
	device, err := api.CreateDevice(c.Device, info)
	if err != nil {
		return nil, stageError(err, ErrDeviceCreation, "vkCreateDevice")
	}

	d := &LogicalDevice{
		API:            device,
		Graphics:       device.GetQueue(c.GraphicsFamily),
		Present:        device.GetQueue(c.PresentFamily),
		GraphicsFamily: c.GraphicsFamily,
		PresentFamily:  c.PresentFamily,
		log:            log,
	}

	log.WithFields(logrus.Fields{
		"graphicsFamily": d.GraphicsFamily,
		"presentFamily":  d.PresentFamily,
		"extensions":     info.EnabledExtensionNames,
	}).Info("Created logical device")
	return d, nil
}

// Destroy waits for the device to go idle and destroys it.
func (d *LogicalDevice) Destroy() {
	if err := d.API.WaitIdle(); err != nil {
		d.log.WithError(err).Warn("vkDeviceWaitIdle failed before device destruction")
	}
	d.API.Destroy()
	d.log.Debug("Destroyed logical device")
}
