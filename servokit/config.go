package servokit

import (
	"encoding/json"
	"os"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/servokit/components/board/pca9685"
)

// Backends that can drive the PCA9685.
const (
	BackendNative = "native"
	BackendPeriph = "periph"
)

// DefaultFrequency is the PWM frequency, in Hz, hobby servos expect.
const DefaultFrequency = 50.0

// Config describes a servo kit.
type Config struct {
	// Channels is the number of servo channels on the kit. The FeatherWing has 8; the Shield,
	// HAT and Bonnet have 16.
	Channels int `json:"channels"`
	// I2CBus names the bus to open when no bus is handed to New. Empty picks the default bus.
	I2CBus string `json:"i2c_bus,omitempty"`
	// Address is the I2C address of the PCA9685, 0x40 when unset.
	Address int `json:"address,omitempty"`
	// ReferenceClockSpeed is the PCA9685 oscillator frequency in Hz, 25000000 when unset. Measure
	// the output pulse widths to calibrate it for a particular chip.
	ReferenceClockSpeed int `json:"reference_clock_speed_hz,omitempty"`
	// Frequency is the PWM frequency in Hz, 50 when unset.
	Frequency float64 `json:"frequency_hz,omitempty"`
	// Backend selects the PCA9685 driver, "native" when unset.
	Backend string `json:"backend,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	if conf.Channels == 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "channels")
	}
	if conf.Channels != 8 && conf.Channels != 16 {
		return utils.NewConfigValidationError(path, errors.Errorf("channels must be 8 or 16, got %d", conf.Channels))
	}
	if conf.Address < 0 || conf.Address > 0x7F {
		return utils.NewConfigValidationError(path, errors.Errorf("address must be a 7-bit i2c address, got %#x", conf.Address))
	}
	if conf.ReferenceClockSpeed < 0 {
		return utils.NewConfigValidationError(path, errors.New("reference_clock_speed_hz cannot be negative"))
	}
	if conf.Frequency < 0 {
		return utils.NewConfigValidationError(path, errors.New("frequency_hz cannot be negative"))
	}
	switch conf.Backend {
	case "", BackendNative, BackendPeriph:
	default:
		return utils.NewConfigValidationError(path, errors.Errorf("unknown backend %q", conf.Backend))
	}
	return nil
}

// withDefaults returns a copy of conf with unset fields filled in.
func (conf Config) withDefaults() Config {
	if conf.Address == 0 {
		conf.Address = int(pca9685.DefaultAddress)
	}
	if conf.ReferenceClockSpeed == 0 {
		conf.ReferenceClockSpeed = pca9685.DefaultReferenceClockSpeed
	}
	if conf.Frequency == 0 {
		conf.Frequency = DefaultFrequency
	}
	if conf.Backend == "" {
		conf.Backend = BackendNative
	}
	return conf
}

// ConfigFromAttributes decodes a loosely typed attribute map, such as one read from JSON, into
// a Config. Numbers may be given as strings, including hex like "0x41".
func ConfigFromAttributes(attributes map[string]interface{}) (*Config, error) {
	var conf Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &conf,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return nil, errors.Wrap(err, "failed to decode servo kit attributes")
	}
	return &conf, nil
}

// ConfigFromFile reads a JSON config file.
func ConfigFromFile(path string) (*Config, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config %q", path)
	}
	var attributes map[string]interface{}
	if err := json.Unmarshal(data, &attributes); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config %q", path)
	}
	return ConfigFromAttributes(attributes)
}
