package main

import (
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/servokit/components/board/fake"
	"go.viam.com/servokit/logging"
	"go.viam.com/servokit/servokit"
)

// kitConfig builds the kit config from the config file, if any, and the global flags.
func kitConfig(c *cli.Context) (*servokit.Config, error) {
	conf := &servokit.Config{}
	if path := c.String(flagConfig); path != "" {
		fromFile, err := servokit.ConfigFromFile(path)
		if err != nil {
			return nil, err
		}
		conf = fromFile
	}
	if c.IsSet(flagChannels) || conf.Channels == 0 {
		conf.Channels = c.Int(flagChannels)
	}
	if c.IsSet(flagBus) {
		conf.I2CBus = c.String(flagBus)
	}
	if c.IsSet(flagAddress) {
		conf.Address = c.Int(flagAddress)
	}
	if c.IsSet(flagReferenceClock) {
		conf.ReferenceClockSpeed = c.Int(flagReferenceClock)
	}
	if c.IsSet(flagFrequency) {
		conf.Frequency = c.Float64(flagFrequency)
	}
	if c.IsSet(flagBackend) && c.String(flagBackend) != backendFake {
		conf.Backend = c.String(flagBackend)
	}
	return conf, nil
}

// openKit opens the kit described by the flags. The fake backend runs the native driver
// against an in-memory bus, which is useful for trying commands without hardware.
func openKit(c *cli.Context, logger logging.Logger) (*servokit.Kit, error) {
	conf, err := kitConfig(c)
	if err != nil {
		return nil, err
	}
	var opts []servokit.Option
	if c.String(flagBackend) == backendFake {
		opts = append(opts, servokit.WithBus(fake.NewI2C()))
	}
	return servokit.New(c.Context, conf, logger, opts...)
}

func sweepAction(c *cli.Context, logger logging.Logger) (err error) {
	kit, err := openKit(c, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, kit.Close(c.Context))
	}()

	conf := servokit.SweepConfig{
		Count: c.Int(flagCount),
		High:  c.Float64(flagHigh),
		Low:   c.Float64(flagLow),
		Dwell: c.Duration(flagDwell),
	}
	return servokit.Sweep(c.Context, kit, conf, logger)
}

// closeKit closes kit only when asked to. Closing releases the servo the command just drove, so
// by default the kit is left open and the output keeps running after the command exits.
func closeKit(c *cli.Context, kit *servokit.Kit) error {
	if !c.Bool(flagRelease) {
		return nil
	}
	return kit.Close(c.Context)
}

func angleAction(c *cli.Context, logger logging.Logger) (err error) {
	kit, err := openKit(c, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, closeKit(c, kit))
	}()

	s, err := kit.Servo().Get(c.Int(flagChannel))
	if err != nil {
		return err
	}
	if err := s.SetPulseWidthRange(c.Uint(flagMinPulse), c.Uint(flagMaxPulse)); err != nil {
		return err
	}
	if err := s.SetActuationRange(c.Float64(flagActuationRange)); err != nil {
		return err
	}
	if err := s.SetAngle(c.Context, c.Float64(flagDegrees)); err != nil {
		return errors.Wrapf(err, "failed to move channel %d", c.Int(flagChannel))
	}
	angle, _, err := s.Angle(c.Context)
	if err != nil {
		return err
	}
	logger.Infow("servo moved", "channel", c.Int(flagChannel), "angle", angle)
	return nil
}

func throttleAction(c *cli.Context, logger logging.Logger) (err error) {
	kit, err := openKit(c, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, closeKit(c, kit))
	}()

	s, err := kit.ContinuousServo().Get(c.Int(flagChannel))
	if err != nil {
		return err
	}
	if err := s.SetPulseWidthRange(c.Uint(flagMinPulse), c.Uint(flagMaxPulse)); err != nil {
		return err
	}
	if err := s.SetThrottle(c.Context, c.Float64(flagThrottle)); err != nil {
		return errors.Wrapf(err, "failed to set throttle on channel %d", c.Int(flagChannel))
	}
	logger.Infow("servo throttle set", "channel", c.Int(flagChannel), "throttle", c.Float64(flagThrottle))
	return nil
}

func releaseAction(c *cli.Context, logger logging.Logger) (err error) {
	kit, err := openKit(c, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, closeKit(c, kit))
	}()

	s, err := kit.Servo().Get(c.Int(flagChannel))
	if err != nil {
		return err
	}
	return s.Release(c.Context)
}
