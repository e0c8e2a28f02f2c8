package servo

import (
	"context"
	"math"

	"github.com/pkg/errors"

	"go.viam.com/servokit/components/board"
)

// Standard is a servo positioned by absolute angle.
type Standard struct {
	base
	actuationRange float64
}

// NewStandard returns a standard servo on pwm with a 180 degree actuation range and a
// 750-2250us pulse width range.
func NewStandard(pwm board.PWMOutput) *Standard {
	s := &Standard{actuationRange: DefaultActuationRange}
	s.attach(pwm)
	return s
}

// ActuationRange returns the angle, in degrees, reached at the max pulse width.
func (s *Standard) ActuationRange() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.actuationRange
}

// SetActuationRange changes the angle, in degrees, reached at the max pulse width. It does not
// move the servo.
func (s *Standard) SetActuationRange(degrees float64) error {
	if !(degrees > 0) || math.IsInf(degrees, 1) {
		return errors.Errorf("actuation range must be a positive number of degrees, got %v", degrees)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actuationRange = degrees
	return nil
}

// SetAngle moves the servo to degrees, which must be within the actuation range.
func (s *Standard) SetAngle(ctx context.Context, degrees float64) error {
	actuationRange := s.ActuationRange()
	if !(degrees >= 0 && degrees <= actuationRange) {
		return errors.Errorf("angle %v out of range 0-%v", degrees, actuationRange)
	}
	return s.SetFraction(ctx, degrees/actuationRange)
}

// Angle returns the angle the servo is being driven to. The bool is false when the servo is
// released.
func (s *Standard) Angle(ctx context.Context) (float64, bool, error) {
	fraction, ok, err := s.Fraction(ctx)
	if err != nil || !ok {
		return 0, false, err
	}
	return s.ActuationRange() * fraction, true, nil
}
