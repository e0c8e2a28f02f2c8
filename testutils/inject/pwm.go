package inject

import (
	"context"

	"go.viam.com/servokit/components/board"
)

// PWMOutput is an injected PWMOutput.
type PWMOutput struct {
	board.PWMOutput
	SetDutyCycleFunc func(ctx context.Context, duty uint16) error
	DutyCycleFunc    func(ctx context.Context) (uint16, error)
	FrequencyFunc    func() float64
}

// SetDutyCycle calls the injected SetDutyCycle or the real version.
func (p *PWMOutput) SetDutyCycle(ctx context.Context, duty uint16) error {
	if p.SetDutyCycleFunc == nil {
		return p.PWMOutput.SetDutyCycle(ctx, duty)
	}
	return p.SetDutyCycleFunc(ctx, duty)
}

// DutyCycle calls the injected DutyCycle or the real version.
func (p *PWMOutput) DutyCycle(ctx context.Context) (uint16, error) {
	if p.DutyCycleFunc == nil {
		return p.PWMOutput.DutyCycle(ctx)
	}
	return p.DutyCycleFunc(ctx)
}

// Frequency calls the injected Frequency or the real version.
func (p *PWMOutput) Frequency() float64 {
	if p.FrequencyFunc == nil {
		return p.PWMOutput.Frequency()
	}
	return p.FrequencyFunc()
}
