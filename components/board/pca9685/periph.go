package pca9685

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	periphpca "periph.io/x/devices/v3/pca9685"

	"go.viam.com/servokit/components/board"
	"go.viam.com/servokit/logging"
)

// Periph drives a PCA9685 through periph.io's device driver. periph always assumes the 25MHz
// internal oscillator and offers no register reads, so duty cycles are served from the counts
// last written.
type Periph struct {
	mu        sync.Mutex
	dev       *periphpca.Dev
	addr      byte
	frequency float64
	duty      [NumChannels]uint16
	logger    logging.Logger
}

// NewPeriph opens the chip at conf.Address on a periph bus.
func NewPeriph(bus i2c.Bus, conf Config, logger logging.Logger) (*Periph, error) {
	if conf.Address == 0 {
		conf.Address = DefaultAddress
	}
	if conf.ReferenceClockSpeed != 0 && conf.ReferenceClockSpeed != DefaultReferenceClockSpeed {
		return nil, errors.Errorf("the periph pca9685 driver only supports a %dHz reference clock, got %d",
			DefaultReferenceClockSpeed, conf.ReferenceClockSpeed)
	}
	dev, err := periphpca.NewI2C(bus, uint16(conf.Address))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open pca9685 at %#x", conf.Address)
	}
	logger.Debugw("periph pca9685 opened", "address", conf.Address)
	return &Periph{dev: dev, addr: conf.Address, logger: logger}, nil
}

// Address returns the I2C address of the chip.
func (p *Periph) Address() byte {
	return p.addr
}

// SetFrequency sets the output frequency of every channel.
func (p *Periph) SetFrequency(ctx context.Context, hz float64) error {
	if hz <= 0 {
		return errors.Errorf("pwm frequency must be positive, got %.2fHz", hz)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.dev.SetPwmFreq(physic.Frequency(hz * float64(physic.Hertz))); err != nil {
		return errors.Wrap(err, "failed to set pca9685 frequency")
	}
	p.frequency = hz
	return nil
}

// Frequency returns the output frequency last set.
func (p *Periph) Frequency() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frequency
}

// Channel returns the PWM output for one of the 16 channels.
func (p *Periph) Channel(index int) (board.PWMOutput, error) {
	if index < 0 || index >= NumChannels {
		return nil, errors.Errorf("pca9685 channel must be 0-%d, got %d", NumChannels-1, index)
	}
	return &periphChannel{p: p, index: index}, nil
}

// Close turns every channel off.
func (p *Periph) Close(ctx context.Context) error {
	var errs error
	for i := 0; i < NumChannels; i++ {
		errs = multierr.Combine(errs, p.setDuty(i, 0))
	}
	return errs
}

func (p *Periph) setDuty(index int, duty uint16) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	on, off := dutyToCounts(duty)
	if err := p.dev.SetPwm(index, gpio.Duty(on), gpio.Duty(off)); err != nil {
		return errors.Wrapf(err, "failed to set duty cycle on channel %d", index)
	}
	p.duty[index] = countsToDuty(on, off)
	return nil
}

type periphChannel struct {
	p     *Periph
	index int
}

func (c *periphChannel) SetDutyCycle(ctx context.Context, duty uint16) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.p.setDuty(c.index, duty)
}

func (c *periphChannel) DutyCycle(ctx context.Context) (uint16, error) {
	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	return c.p.duty[c.index], nil
}

func (c *periphChannel) Frequency() float64 {
	return c.p.Frequency()
}
