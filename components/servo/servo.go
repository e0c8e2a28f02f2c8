// Package servo converts servo positions and throttles into PWM duty cycles.
//
// Hobby servos read the width of a pulse repeated at the PWM frequency. A standard servo maps
// the pulse width onto an angle within its actuation range; a continuous rotation servo maps it
// onto a signed speed.
package servo

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"go.viam.com/servokit/components/board"
)

const (
	// DefaultActuationRange is the travel, in degrees, of a typical standard servo.
	DefaultActuationRange = 180.0
	// DefaultMinPulseUs is the pulse width, in microseconds, of the 0 fraction.
	DefaultMinPulseUs uint = 750
	// DefaultMaxPulseUs is the pulse width, in microseconds, of the 1 fraction.
	DefaultMaxPulseUs uint = 2250
)

// base holds what both servo kinds share: the output and the pulse width range. A zero duty
// cycle means the output is released and the servo holds no position.
type base struct {
	pwm board.PWMOutput

	mu         sync.Mutex
	minPulseUs uint
	maxPulseUs uint
}

func (b *base) attach(pwm board.PWMOutput) {
	b.pwm = pwm
	b.minPulseUs = DefaultMinPulseUs
	b.maxPulseUs = DefaultMaxPulseUs
}

// SetPulseWidthRange changes the pulse widths, in microseconds, at the two ends of travel.
func (b *base) SetPulseWidthRange(minUs, maxUs uint) error {
	if minUs >= maxUs {
		return errors.Errorf("min pulse width (%dus) must be lower than max pulse width (%dus)", minUs, maxUs)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.minPulseUs = minUs
	b.maxPulseUs = maxUs
	return nil
}

// PulseWidthRange returns the pulse widths, in microseconds, at the two ends of travel.
func (b *base) PulseWidthRange() (minUs, maxUs uint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.minPulseUs, b.maxPulseUs
}

// dutyRange converts the pulse width range into duty cycles at the output's current frequency.
func (b *base) dutyRange() (minDuty, dutySpan int, err error) {
	minUs, maxUs := b.PulseWidthRange()
	frequency := b.pwm.Frequency()
	if frequency <= 0 {
		return 0, 0, errors.New("pwm output has no frequency set")
	}
	minDuty = int(float64(minUs) * frequency / 1e6 * float64(board.DutyCycleMax))
	maxDuty := float64(maxUs) * frequency / 1e6 * float64(board.DutyCycleMax)
	if maxDuty > float64(board.DutyCycleMax) {
		return 0, 0, errors.Errorf("a %dus pulse does not fit in a %.2fHz period", maxUs, frequency)
	}
	return minDuty, int(maxDuty - float64(minDuty)), nil
}

// SetFraction moves to a point in the range of travel, 0 being the min pulse width and 1 the max.
func (b *base) SetFraction(ctx context.Context, fraction float64) error {
	if !(fraction >= 0 && fraction <= 1) {
		return errors.Errorf("fraction must be 0.0 to 1.0, got %v", fraction)
	}
	minDuty, dutySpan, err := b.dutyRange()
	if err != nil {
		return err
	}
	return b.pwm.SetDutyCycle(ctx, uint16(minDuty+int(fraction*float64(dutySpan))))
}

// Fraction returns the point in the range of travel the output is driving. The bool is false
// when the output is released.
func (b *base) Fraction(ctx context.Context) (float64, bool, error) {
	duty, err := b.pwm.DutyCycle(ctx)
	if err != nil {
		return 0, false, err
	}
	if duty == 0 {
		return 0, false, nil
	}
	minDuty, dutySpan, err := b.dutyRange()
	if err != nil {
		return 0, false, err
	}
	return float64(int(duty)-minDuty) / float64(dutySpan), true, nil
}

// Release stops sending pulses, letting the servo go limp.
func (b *base) Release(ctx context.Context) error {
	return b.pwm.SetDutyCycle(ctx, 0)
}
