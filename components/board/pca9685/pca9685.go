// Package pca9685 implements the PCA9685 16-channel, 12-bit PWM controller used on servo
// FeatherWings, Shields, HATs and Bonnets.
// datasheet can be found at: https://cdn-shop.adafruit.com/datasheets/PCA9685.pdf
package pca9685

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/servokit/components/board"
	"go.viam.com/servokit/logging"
)

const (
	// DefaultAddress is the I2C address of a PCA9685 with no address jumpers bridged.
	DefaultAddress byte = 0x40
	// DefaultReferenceClockSpeed is the frequency, in Hz, of the internal oscillator.
	DefaultReferenceClockSpeed = 25000000
	// NumChannels is the number of PWM outputs on the chip.
	NumChannels = 16

	// Prescale limits from the datasheet; the chip clamps writes below 3.
	minPrescale = 3
	maxPrescale = 255

	// Waiting period for the oscillator to stabilize after leaving sleep.
	oscillatorSettle = 5 * time.Millisecond
)

// Register map.
const (
	mode1Reg    byte = 0x00
	led0OnLReg  byte = 0x06
	prescaleReg byte = 0xFE
)

// MODE1 bits.
const (
	mode1Sleep         byte = 0x10
	mode1AutoIncrement byte = 0x20
	mode1Restart       byte = 0x80
)

// Setting bit 12 of an ON or OFF count forces the output fully on or fully off.
const fullOnOff uint16 = 0x1000

// Config describes how to reach a PCA9685.
type Config struct {
	Address             byte
	ReferenceClockSpeed int
}

// An Option customizes a PCA9685.
type Option func(*PCA9685)

// WithClock replaces the clock used to wait for the oscillator.
func WithClock(clk clock.Clock) Option {
	return func(pca *PCA9685) {
		pca.clock = clk
	}
}

// PCA9685 drives a PCA9685 over a board.I2C bus.
type PCA9685 struct {
	mu                  sync.Mutex
	bus                 board.I2C
	addr                byte
	referenceClockSpeed float64
	frequency           float64
	clock               clock.Clock
	logger              logging.Logger
}

// New resets the chip at conf.Address on bus and returns a driver for it. Zero fields of conf
// take the chip defaults.
func New(ctx context.Context, bus board.I2C, conf Config, logger logging.Logger, opts ...Option) (*PCA9685, error) {
	if bus == nil {
		return nil, errors.New("pca9685 requires an i2c bus")
	}
	if conf.Address == 0 {
		conf.Address = DefaultAddress
	}
	if conf.ReferenceClockSpeed == 0 {
		conf.ReferenceClockSpeed = DefaultReferenceClockSpeed
	}
	if conf.ReferenceClockSpeed < 0 {
		return nil, errors.Errorf("reference clock speed must be positive, got %d", conf.ReferenceClockSpeed)
	}

	pca := &PCA9685{
		bus:                 bus,
		addr:                conf.Address,
		referenceClockSpeed: float64(conf.ReferenceClockSpeed),
		clock:               clock.New(),
		logger:              logger,
	}
	for _, opt := range opts {
		opt(pca)
	}

	if err := pca.Reset(ctx); err != nil {
		return nil, errors.Wrapf(err, "failed to reset pca9685 at %#x", conf.Address)
	}
	logger.CDebugw(ctx, "pca9685 reset", "address", conf.Address, "reference_clock_hz", conf.ReferenceClockSpeed)
	return pca, nil
}

// Address returns the I2C address of the chip.
func (pca *PCA9685) Address() byte {
	return pca.addr
}

// Reset clears MODE1, which wakes the chip and leaves every output as last programmed.
func (pca *PCA9685) Reset(ctx context.Context) error {
	handle, err := pca.bus.OpenHandle(pca.addr)
	if err != nil {
		return err
	}
	return multierr.Combine(handle.WriteByteData(ctx, mode1Reg, 0x00), handle.Close())
}

// SetFrequency programs the prescaler so every channel runs at close to hz.
func (pca *PCA9685) SetFrequency(ctx context.Context, hz float64) error {
	if hz <= 0 {
		return errors.Errorf("pwm frequency must be positive, got %.2fHz", hz)
	}
	prescale := int(pca.referenceClockSpeed/4096.0/hz+0.5) - 1
	if prescale < minPrescale || prescale > maxPrescale {
		return errors.Errorf("pca9685 cannot output at %.2fHz with a %.0fHz reference clock", hz, pca.referenceClockSpeed)
	}

	pca.mu.Lock()
	defer pca.mu.Unlock()

	handle, err := pca.bus.OpenHandle(pca.addr)
	if err != nil {
		return err
	}
	err = pca.writePrescale(ctx, handle, byte(prescale))
	if err = multierr.Combine(err, handle.Close()); err != nil {
		return errors.Wrap(err, "failed to set pca9685 frequency")
	}

	pca.frequency = pca.referenceClockSpeed / 4096.0 / float64(prescale+1)
	pca.logger.CDebugw(ctx, "pca9685 frequency set", "requested_hz", hz, "actual_hz", pca.frequency, "prescale", prescale)
	return nil
}

// The prescaler can only be written while the oscillator is asleep.
func (pca *PCA9685) writePrescale(ctx context.Context, handle board.I2CHandle, prescale byte) error {
	oldMode, err := handle.ReadByteData(ctx, mode1Reg)
	if err != nil {
		return err
	}
	if err := handle.WriteByteData(ctx, mode1Reg, (oldMode&^mode1Restart)|mode1Sleep); err != nil {
		return err
	}
	if err := handle.WriteByteData(ctx, prescaleReg, prescale); err != nil {
		return err
	}
	if err := handle.WriteByteData(ctx, mode1Reg, oldMode); err != nil {
		return err
	}
	pca.clock.Sleep(oscillatorSettle)
	return handle.WriteByteData(ctx, mode1Reg, oldMode|mode1Restart|mode1AutoIncrement)
}

// Frequency returns the output frequency last programmed with SetFrequency, or 0 if it was
// never set through this driver.
func (pca *PCA9685) Frequency() float64 {
	pca.mu.Lock()
	defer pca.mu.Unlock()
	return pca.frequency
}

// ReadFrequency computes the output frequency from the prescale register.
func (pca *PCA9685) ReadFrequency(ctx context.Context) (float64, error) {
	handle, err := pca.bus.OpenHandle(pca.addr)
	if err != nil {
		return 0, err
	}
	prescale, err := handle.ReadByteData(ctx, prescaleReg)
	if err = multierr.Combine(err, handle.Close()); err != nil {
		return 0, err
	}
	if prescale < minPrescale {
		return 0, errors.Errorf("pca9685 prescale register returned %d, expected at least %d", prescale, minPrescale)
	}
	return pca.referenceClockSpeed / 4096.0 / float64(int(prescale)+1), nil
}

// Channel returns the PWM output for one of the 16 channels.
func (pca *PCA9685) Channel(index int) (board.PWMOutput, error) {
	if index < 0 || index >= NumChannels {
		return nil, errors.Errorf("pca9685 channel must be 0-%d, got %d", NumChannels-1, index)
	}
	return &channel{pca: pca, index: index}, nil
}

// Close resets MODE1 like Reset. Channel outputs are left as last programmed.
func (pca *PCA9685) Close(ctx context.Context) error {
	return pca.Reset(ctx)
}

func (pca *PCA9685) writeChannel(ctx context.Context, index int, on, off uint16) error {
	handle, err := pca.bus.OpenHandle(pca.addr)
	if err != nil {
		return err
	}
	data := []byte{byte(on), byte(on >> 8), byte(off), byte(off >> 8)}
	return multierr.Combine(handle.WriteBlockData(ctx, led0OnLReg+byte(4*index), data), handle.Close())
}

func (pca *PCA9685) readChannel(ctx context.Context, index int) (on, off uint16, err error) {
	handle, err := pca.bus.OpenHandle(pca.addr)
	if err != nil {
		return 0, 0, err
	}
	data, err := handle.ReadBlockData(ctx, led0OnLReg+byte(4*index), 4)
	if err = multierr.Combine(err, handle.Close()); err != nil {
		return 0, 0, err
	}
	return uint16(data[0]) | uint16(data[1])<<8, uint16(data[2]) | uint16(data[3])<<8, nil
}

type channel struct {
	pca   *PCA9685
	index int
}

func (c *channel) SetDutyCycle(ctx context.Context, duty uint16) error {
	on, off := dutyToCounts(duty)
	if err := c.pca.writeChannel(ctx, c.index, on, off); err != nil {
		return errors.Wrapf(err, "failed to set duty cycle on channel %d", c.index)
	}
	return nil
}

func (c *channel) DutyCycle(ctx context.Context) (uint16, error) {
	on, off, err := c.pca.readChannel(ctx, c.index)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to read duty cycle on channel %d", c.index)
	}
	return countsToDuty(on, off), nil
}

func (c *channel) Frequency() float64 {
	return c.pca.Frequency()
}

// dutyToCounts maps a 16-bit duty cycle onto the chip's 12-bit ON/OFF counts.
func dutyToCounts(duty uint16) (on, off uint16) {
	if duty == board.DutyCycleMax {
		return fullOnOff, 0
	}
	return 0, uint16((uint32(duty) + 1) >> 4)
}

func countsToDuty(on, off uint16) uint16 {
	if on&fullOnOff != 0 {
		return board.DutyCycleMax
	}
	if off&fullOnOff != 0 {
		return 0
	}
	return off << 4
}
