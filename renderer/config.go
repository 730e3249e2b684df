package renderer

import (
	"os"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/joho/godotenv"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

// Config is the immutable set of tables and knobs the backend is built from.
// It is passed by value into every stage; nothing in this package reads
// process-wide state.
type Config struct {
	ApplicationName string

	// DeviceExtensions must all be reported by a physical device for it to be accepted.
	DeviceExtensions []string
	// ValidationLayers are enabled on the instance (and device) when EnableValidation is set.
	ValidationLayers []string
	EnableValidation bool

	// Width and Height are used when the surface leaves the extent to the application.
	Width  int
	Height int

	ShaderDir      string
	VertexShader   string
	FragmentShader string

	ClearColor mgl32.Vec4
}

// DefaultConfig returns the configuration the triangle backend runs with out of the box.
func DefaultConfig() Config {
	return Config{
		ApplicationName:  "Hello Triangle",
		DeviceExtensions: []string{khr_swapchain.ExtensionName},
		ValidationLayers: []string{"VK_LAYER_KHRONOS_validation"},
		EnableValidation: validationDefault,
		Width:            800,
		Height:           600,
		ShaderDir:        "shaders",
		VertexShader:     "vert.spv",
		FragmentShader:   "frag.spv",
		ClearColor:       mgl32.Vec4{0, 0, 0, 1},
	}
}

// Validate reports configuration values no stage could work with.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return errors.Newf("config: extent must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.VertexShader == "" || c.FragmentShader == "" {
		return errors.New("config: both shader filenames are required")
	}
	return nil
}

// RequiredCapabilities derives the device acceptance requirements from the config.
func (c Config) RequiredCapabilities() RequiredCapabilities {
	return RequiredCapabilities{
		Extensions: append([]string(nil), c.DeviceExtensions...),
		Swapchain:  true,
	}
}

// Configuration keys understood by LoadConfig.
const (
	EnvAppName    = "TRIANGLE_APP_NAME"
	EnvWidth      = "TRIANGLE_WIDTH"
	EnvHeight     = "TRIANGLE_HEIGHT"
	EnvShaderDir  = "TRIANGLE_SHADER_DIR"
	EnvValidation = "TRIANGLE_VALIDATION"
)

// LoadConfig overlays DefaultConfig with values read from a dotenv file.
// A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	values, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	} else if err != nil {
		return cfg, errors.Wrapf(err, "config: read %s", path)
	}

	return cfg.apply(values)
}

func (c Config) apply(values map[string]string) (Config, error) {
	if name, ok := values[EnvAppName]; ok {
		c.ApplicationName = name
	}
	if dir, ok := values[EnvShaderDir]; ok {
		c.ShaderDir = dir
	}

	for key, dst := range map[string]*int{EnvWidth: &c.Width, EnvHeight: &c.Height} {
		raw, ok := values[key]
		if !ok {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return c, errors.Wrapf(err, "config: %s", key)
		}
		*dst = v
	}

	if raw, ok := values[EnvValidation]; ok {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return c, errors.Wrapf(err, "config: %s", EnvValidation)
		}
		c.EnableValidation = v
	}

	return c, c.Validate()
}
