package servokit

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"go.viam.com/servokit/logging"
)

// SweepConfig describes a sweep across the kit's standard servos.
type SweepConfig struct {
	// Count is the number of channels to sweep, starting at 0. 0 sweeps every channel.
	Count int
	// High and Low are the two angles each servo is moved to, in that order.
	High float64
	Low  float64
	// Dwell is how long to hold each angle.
	Dwell time.Duration
	// Clock times the dwell, the wall clock when nil.
	Clock clock.Clock
}

// DefaultSweepConfig moves every servo to 180 degrees and back to 0, holding each for a second.
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{High: 180, Low: 0, Dwell: time.Second}
}

// Sweep moves each standard servo in turn to conf.High and then conf.Low. It stops at the
// first error or when ctx is done.
func Sweep(ctx context.Context, kit *Kit, conf SweepConfig, logger logging.Logger) error {
	count := conf.Count
	if count == 0 {
		count = kit.Servo().Len()
	}
	if count < 0 || count > kit.Servo().Len() {
		return errors.Errorf("cannot sweep %d channels on a %d channel kit", count, kit.Servo().Len())
	}
	clk := conf.Clock
	if clk == nil {
		clk = clock.New()
	}

	for i := 0; i < count; i++ {
		s, err := kit.Servo().Get(i)
		if err != nil {
			return err
		}
		for _, angle := range []float64{conf.High, conf.Low} {
			logger.CDebugw(ctx, "sweeping", "channel", i, "angle", angle)
			if err := s.SetAngle(ctx, angle); err != nil {
				return errors.Wrapf(err, "failed to move channel %d", i)
			}
			if err := dwell(ctx, clk, conf.Dwell); err != nil {
				return err
			}
		}
	}
	return nil
}

func dwell(ctx context.Context, clk clock.Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := clk.Timer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
