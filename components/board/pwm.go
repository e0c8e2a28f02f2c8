package board

import "context"

// DutyCycleMax is the 16-bit duty cycle that keeps an output fully on.
const DutyCycleMax uint16 = 0xFFFF

// A PWMOutput is a single PWM line whose duty cycle is expressed on a 16-bit scale,
// 0 being always off and DutyCycleMax always on.
type PWMOutput interface {
	SetDutyCycle(ctx context.Context, duty uint16) error
	DutyCycle(ctx context.Context) (uint16, error)

	// Frequency is the output frequency, in Hz, the line is currently driven at.
	Frequency() float64
}
