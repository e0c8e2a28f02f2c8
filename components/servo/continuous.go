package servo

import (
	"context"
	"math"

	"github.com/pkg/errors"

	"go.viam.com/servokit/components/board"
)

// Continuous is a continuous rotation servo, driven by a throttle from -1 (full reverse) to 1
// (full forward).
type Continuous struct {
	base
}

// NewContinuous returns a continuous rotation servo on pwm with a 750-2250us pulse width range.
func NewContinuous(pwm board.PWMOutput) *Continuous {
	c := &Continuous{}
	c.attach(pwm)
	return c
}

// throttleTolerance is how far past full speed a throttle may go and still be clamped.
const throttleTolerance = 0.1

// SetThrottle sets the rotation speed and direction. 0 stops the servo, provided its neutral
// point sits at the middle of the pulse width range. Throttles within 0.1 past either end are
// clamped to full speed.
func (c *Continuous) SetThrottle(ctx context.Context, throttle float64) error {
	if !(throttle >= -1-throttleTolerance && throttle <= 1+throttleTolerance) {
		return errors.Errorf("throttle must be between -1.0 and 1.0, got %v", throttle)
	}
	throttle = math.Max(-1, math.Min(1, throttle))
	return c.SetFraction(ctx, (throttle+1)/2)
}

// Throttle returns the throttle the servo is being driven at. The bool is false when the servo
// is released.
func (c *Continuous) Throttle(ctx context.Context) (float64, bool, error) {
	fraction, ok, err := c.Fraction(ctx)
	if err != nil || !ok {
		return 0, false, err
	}
	return fraction*2 - 1, true, nil
}
