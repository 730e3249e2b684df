package renderer

import (
	"strings"

	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v3/khr_portability_enumeration"
)

// RequiredInstanceExtensions lists the instance extensions to enable: everything
// the window integration needs, the debug utils extension when validation is
// on, and portability enumeration when the loader offers it.
func RequiredInstanceExtensions(windowExts []string, available ExtensionSet, cfg Config) ([]string, core1_0.InstanceCreateFlags, error) {
	if missing := available.Missing(windowExts); len(missing) > 0 {
		return nil, 0, stageErrorf(ErrInstanceCreation, "window integration needs missing extensions %s", strings.Join(missing, ", "))
	}

	extensions := append([]string(nil), windowExts...)
	if cfg.EnableValidation {
		if !available.Has(ext_debug_utils.ExtensionName) {
			return nil, 0, stageErrorf(ErrValidationLayerUnavailable, "extension %s not available", ext_debug_utils.ExtensionName)
		}
		extensions = append(extensions, ext_debug_utils.ExtensionName)
	}

	var flags core1_0.InstanceCreateFlags
	if available.Has(khr_portability_enumeration.ExtensionName) {
		extensions = append(extensions, khr_portability_enumeration.ExtensionName)
		flags |= khr_portability_enumeration.InstanceCreateEnumeratePortability
	}

	return extensions, flags, nil
}

// CheckValidationLayers returns the layers to enable. With validation off it
// returns nothing; with it on every configured layer must be available.
func CheckValidationLayers(available ExtensionSet, cfg Config) ([]string, error) {
	if !cfg.EnableValidation {
		return nil, nil
	}
	if missing := available.Missing(cfg.ValidationLayers); len(missing) > 0 {
		return nil, stageErrorf(ErrValidationLayerUnavailable, "layers %s not available, install the Vulkan SDK", strings.Join(missing, ", "))
	}
	return append([]string(nil), cfg.ValidationLayers...), nil
}
