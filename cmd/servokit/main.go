// Package main is the servokit command, for moving the servos on a kit by hand.
package main

import (
	"os"

	"github.com/urfave/cli/v2"
	"go.viam.com/utils"

	"go.viam.com/servokit/components/servo"
	"go.viam.com/servokit/logging"
	"go.viam.com/servokit/servokit"
)

const (
	// Global flags.
	flagConfig         = "config"
	flagChannels       = "channels"
	flagBus            = "bus"
	flagAddress        = "address"
	flagReferenceClock = "reference-clock"
	flagFrequency      = "frequency"
	flagBackend        = "backend"
	flagDebug          = "debug"

	// Command flags.
	flagChannel        = "channel"
	flagCount          = "count"
	flagDwell          = "dwell"
	flagHigh           = "high"
	flagLow            = "low"
	flagDegrees        = "degrees"
	flagActuationRange = "actuation-range"
	flagMinPulse       = "min-pulse"
	flagMaxPulse       = "max-pulse"
	flagThrottle       = "throttle"
	flagRelease        = "release"

	backendFake = "fake"
)

func main() {
	var logger logging.Logger
	if err := newApp(&logger).Run(os.Args); err != nil {
		if logger == nil {
			logger = logging.NewLogger("servokit")
		}
		logger.Error(err)
		utils.UncheckedError(logger.Sync())
		os.Exit(1)
	}
}

// newApp builds the command line app. The logger is created once the global flags are parsed.
func newApp(loggerOut *logging.Logger) *cli.App {
	var logger logging.Logger

	channelFlag := &cli.IntFlag{
		Name:     flagChannel,
		Aliases:  []string{"n"},
		Required: true,
		Usage:    "servo channel to drive",
	}
	pulseFlags := []cli.Flag{
		&cli.UintFlag{
			Name:  flagMinPulse,
			Value: servo.DefaultMinPulseUs,
			Usage: "pulse width in microseconds at one end of travel",
		},
		&cli.UintFlag{
			Name:  flagMaxPulse,
			Value: servo.DefaultMaxPulseUs,
			Usage: "pulse width in microseconds at the other end of travel",
		},
	}
	releaseFlag := &cli.BoolFlag{
		Name:  flagRelease,
		Usage: "release the servo when the command exits",
	}

	return &cli.App{
		Name:  "servokit",
		Usage: "drive the servos on an Adafruit PCA9685 servo kit",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load kit configuration from `FILE`, flags override it",
			},
			&cli.IntFlag{
				Name:  flagChannels,
				Value: 16,
				Usage: "number of channels on the kit, 8 or 16",
			},
			&cli.StringFlag{
				Name:  flagBus,
				Usage: "name of the i2c bus, the first bus found when empty",
			},
			&cli.IntFlag{
				Name:  flagAddress,
				Usage: "i2c address of the PCA9685, 0x40 when unset",
			},
			&cli.IntFlag{
				Name:  flagReferenceClock,
				Usage: "PCA9685 reference clock in Hz, 25000000 when unset",
			},
			&cli.Float64Flag{
				Name:  flagFrequency,
				Usage: "PWM frequency in Hz, 50 when unset",
			},
			&cli.StringFlag{
				Name:  flagBackend,
				Usage: "PCA9685 driver: native, periph or fake",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool(flagDebug) {
				logger = logging.NewDebugLogger("servokit")
				c.Context = logging.WithDebug(c.Context, "")
			} else {
				logger = logging.NewLogger("servokit")
			}
			*loggerOut = logger
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "sweep",
				Usage: "move each standard servo to the high angle and back to the low angle",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  flagCount,
						Usage: "number of channels to sweep, all when 0",
					},
					&cli.DurationFlag{
						Name:  flagDwell,
						Value: servokit.DefaultSweepConfig().Dwell,
						Usage: "how long to hold each angle",
					},
					&cli.Float64Flag{
						Name:  flagHigh,
						Value: servokit.DefaultSweepConfig().High,
						Usage: "first angle in degrees",
					},
					&cli.Float64Flag{
						Name:  flagLow,
						Value: servokit.DefaultSweepConfig().Low,
						Usage: "second angle in degrees",
					},
				},
				Action: func(c *cli.Context) error {
					return sweepAction(c, logger)
				},
			},
			{
				Name:  "angle",
				Usage: "move a standard servo to an angle",
				Flags: append([]cli.Flag{
					channelFlag,
					&cli.Float64Flag{
						Name:     flagDegrees,
						Aliases:  []string{"d"},
						Required: true,
						Usage:    "angle in degrees",
					},
					&cli.Float64Flag{
						Name:  flagActuationRange,
						Value: servo.DefaultActuationRange,
						Usage: "travel of the servo in degrees",
					},
					releaseFlag,
				}, pulseFlags...),
				Action: func(c *cli.Context) error {
					return angleAction(c, logger)
				},
			},
			{
				Name:  "throttle",
				Usage: "spin a continuous rotation servo",
				Flags: append([]cli.Flag{
					channelFlag,
					&cli.Float64Flag{
						Name:     flagThrottle,
						Aliases:  []string{"t"},
						Required: true,
						Usage:    "speed from -1 (full reverse) to 1 (full forward)",
					},
					releaseFlag,
				}, pulseFlags...),
				Action: func(c *cli.Context) error {
					return throttleAction(c, logger)
				},
			},
			{
				Name:  "release",
				Usage: "stop sending pulses to a servo so it goes limp",
				Flags: []cli.Flag{channelFlag},
				Action: func(c *cli.Context) error {
					return releaseAction(c, logger)
				},
			},
		},
	}
}
