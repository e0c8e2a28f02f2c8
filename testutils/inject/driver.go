package inject

import (
	"context"

	"go.viam.com/servokit/components/board"
	"go.viam.com/servokit/servokit"
)

// Driver is an injected servokit.Driver.
type Driver struct {
	servokit.Driver
	SetFrequencyFunc func(ctx context.Context, hz float64) error
	FrequencyFunc    func() float64
	ChannelFunc      func(index int) (board.PWMOutput, error)
	CloseFunc        func(ctx context.Context) error
}

// SetFrequency calls the injected SetFrequency or the real version.
func (d *Driver) SetFrequency(ctx context.Context, hz float64) error {
	if d.SetFrequencyFunc == nil {
		return d.Driver.SetFrequency(ctx, hz)
	}
	return d.SetFrequencyFunc(ctx, hz)
}

// Frequency calls the injected Frequency or the real version.
func (d *Driver) Frequency() float64 {
	if d.FrequencyFunc == nil {
		return d.Driver.Frequency()
	}
	return d.FrequencyFunc()
}

// Channel calls the injected Channel or the real version.
func (d *Driver) Channel(index int) (board.PWMOutput, error) {
	if d.ChannelFunc == nil {
		return d.Driver.Channel(index)
	}
	return d.ChannelFunc(index)
}

// Close calls the injected Close or the real version.
func (d *Driver) Close(ctx context.Context) error {
	if d.CloseFunc == nil {
		return d.Driver.Close(ctx)
	}
	return d.CloseFunc(ctx)
}
