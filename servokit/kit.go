// Package servokit drives the servo channels of Adafruit's PCA9685 based servo kits: the 8
// channel FeatherWing and the 16 channel Shield, HAT and Bonnet.
//
// A Kit hands out servos through two views, Servo for standard servos and ContinuousServo for
// continuous rotation servos. Servos are created on first use and a channel keeps the kind it
// was first used as until the kit is closed.
package servokit

import (
	"context"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/servokit/components/board"
	"go.viam.com/servokit/components/board/genericlinux"
	"go.viam.com/servokit/components/board/pca9685"
	"go.viam.com/servokit/components/servo"
	"go.viam.com/servokit/logging"
)

// Driver is the PWM controller behind a kit.
type Driver interface {
	// SetFrequency sets the PWM frequency of every channel.
	SetFrequency(ctx context.Context, hz float64) error
	// Frequency returns the PWM frequency the controller is producing, 0 if unset.
	Frequency() float64
	// Channel returns the output of a single channel.
	Channel(index int) (board.PWMOutput, error)
	Close(ctx context.Context) error
}

type slotKind int

const (
	slotEmpty slotKind = iota
	slotStandard
	slotContinuous
)

func (k slotKind) String() string {
	switch k {
	case slotStandard:
		return "standard"
	case slotContinuous:
		return "continuous"
	default:
		return "empty"
	}
}

// slot is one channel of the kit. Once populated it never changes kind.
type slot struct {
	kind       slotKind
	standard   *servo.Standard
	continuous *servo.Continuous
}

type options struct {
	bus    board.I2C
	driver Driver
	clock  clock.Clock
}

// Option configures how New reaches the hardware.
type Option func(*options)

// WithBus builds the driver on bus instead of opening the configured bus.
func WithBus(bus board.I2C) Option {
	return func(o *options) {
		o.bus = bus
	}
}

// WithDriver uses driver as is, skipping the bus and backend entirely.
func WithDriver(driver Driver) Option {
	return func(o *options) {
		o.driver = driver
	}
}

// WithClock sets the clock the native driver waits on while the oscillator restarts.
func WithClock(clk clock.Clock) Option {
	return func(o *options) {
		o.clock = clk
	}
}

// Kit is a servo kit: a PCA9685 and the servos on its channels.
type Kit struct {
	logger   logging.Logger
	channels int
	address  byte
	driver   Driver
	closeBus func() error

	servo           *StandardServos
	continuousServo *ContinuousServos

	mu     sync.Mutex
	slots  []slot
	closed bool
}

// New builds a kit from conf. The channel count is checked before any hardware is touched.
func New(ctx context.Context, conf *Config, logger logging.Logger, opts ...Option) (*Kit, error) {
	if conf == nil {
		return nil, errors.Wrap(ErrInvalidConfiguration, "servo kit config is required")
	}
	if err := conf.Validate("servokit"); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	resolved := conf.withDefaults()

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	driver, closeBus, err := openDriver(ctx, resolved, o, logger)
	if err != nil {
		return nil, err
	}
	if err := driver.SetFrequency(ctx, resolved.Frequency); err != nil {
		err = errors.Wrapf(err, "failed to set pwm frequency to %vHz", resolved.Frequency)
		err = multierr.Combine(err, driver.Close(ctx))
		if closeBus != nil {
			err = multierr.Combine(err, closeBus())
		}
		return nil, err
	}

	kit := &Kit{
		logger:   logger,
		channels: resolved.Channels,
		address:  byte(resolved.Address),
		driver:   driver,
		closeBus: closeBus,
		slots:    make([]slot, resolved.Channels),
	}
	kit.servo = &StandardServos{kit: kit}
	kit.continuousServo = &ContinuousServos{kit: kit}

	logger.Infow("servo kit ready",
		"channels", kit.channels,
		"address", fmt.Sprintf("%#x", kit.address),
		"frequency_hz", driver.Frequency(),
	)
	return kit, nil
}

// openDriver picks the driver in order: an injected driver, then the configured backend on
// the given bus, then the configured backend on the named bus. The returned close function is
// non-nil only when the bus was opened here.
func openDriver(ctx context.Context, conf Config, o options, logger logging.Logger) (Driver, func() error, error) {
	if o.driver != nil {
		return o.driver, nil, nil
	}

	var closeBus func() error
	bus := o.bus
	if bus == nil {
		linuxBus, err := genericlinux.NewI2CBus(conf.I2CBus)
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to open i2c bus for servo kit")
		}
		bus = linuxBus
		closeBus = linuxBus.Close
	}
	closeOnErr := func(err error) (Driver, func() error, error) {
		if closeBus != nil {
			err = multierr.Combine(err, closeBus())
		}
		return nil, nil, err
	}

	pcaConf := pca9685.Config{Address: byte(conf.Address), ReferenceClockSpeed: conf.ReferenceClockSpeed}
	switch conf.Backend {
	case BackendPeriph:
		linuxBus, ok := bus.(*genericlinux.I2CBus)
		if !ok {
			return closeOnErr(errors.Errorf("the %s backend requires a linux i2c bus, got %T", BackendPeriph, bus))
		}
		driver, err := pca9685.NewPeriph(linuxBus.Periph(), pcaConf, logger.Sublogger("pca9685"))
		if err != nil {
			return closeOnErr(err)
		}
		return driver, closeBus, nil
	default:
		var pcaOpts []pca9685.Option
		if o.clock != nil {
			pcaOpts = append(pcaOpts, pca9685.WithClock(o.clock))
		}
		driver, err := pca9685.New(ctx, bus, pcaConf, logger.Sublogger("pca9685"), pcaOpts...)
		if err != nil {
			return closeOnErr(err)
		}
		return driver, closeBus, nil
	}
}

// Servo returns the view that hands out standard servos.
func (kit *Kit) Servo() *StandardServos {
	return kit.servo
}

// ContinuousServo returns the view that hands out continuous rotation servos.
func (kit *Kit) ContinuousServo() *ContinuousServos {
	return kit.continuousServo
}

// Channels returns the number of servo channels on the kit.
func (kit *Kit) Channels() int {
	return kit.channels
}

// Frequency returns the PWM frequency the driver is producing.
func (kit *Kit) Frequency() float64 {
	return kit.driver.Frequency()
}

// Address returns the I2C address of the PCA9685.
func (kit *Kit) Address() byte {
	return kit.address
}

// get returns the slot at index, populating it with a servo of kind if it is empty.
func (kit *Kit) get(index int, kind slotKind) (slot, error) {
	if index < 0 || index >= kit.channels {
		return slot{}, newIndexOutOfRangeError(index, kit.channels)
	}

	kit.mu.Lock()
	defer kit.mu.Unlock()
	if kit.closed {
		return slot{}, errors.New("servo kit is closed")
	}

	s := &kit.slots[index]
	switch s.kind {
	case kind:
		return *s, nil
	case slotEmpty:
	default:
		return slot{}, newChannelKindConflictError(index, s.kind)
	}

	pwm, err := kit.driver.Channel(index)
	if err != nil {
		return slot{}, errors.Wrapf(err, "failed to get pwm output for channel %d", index)
	}
	switch kind {
	case slotStandard:
		s.standard = servo.NewStandard(pwm)
	case slotContinuous:
		s.continuous = servo.NewContinuous(pwm)
	case slotEmpty:
		return slot{}, errors.New("cannot populate a channel with an empty slot")
	}
	s.kind = kind
	kit.logger.Debugw("servo created", "channel", index, "kind", kind.String())
	return *s, nil
}

// Close releases every servo that was handed out and shuts the driver down. Closing twice is a
// no-op.
func (kit *Kit) Close(ctx context.Context) error {
	kit.mu.Lock()
	defer kit.mu.Unlock()
	if kit.closed {
		return nil
	}
	kit.closed = true

	var err error
	for i, s := range kit.slots {
		switch s.kind {
		case slotStandard:
			err = multierr.Combine(err, errors.Wrapf(s.standard.Release(ctx), "failed to release channel %d", i))
		case slotContinuous:
			err = multierr.Combine(err, errors.Wrapf(s.continuous.Release(ctx), "failed to release channel %d", i))
		case slotEmpty:
		}
	}
	err = multierr.Combine(err, kit.driver.Close(ctx))
	if kit.closeBus != nil {
		err = multierr.Combine(err, kit.closeBus())
	}
	return err
}
