package servokit

import (
	"go.viam.com/servokit/components/servo"
)

// StandardServos hands out the kit's channels as standard servos.
type StandardServos struct {
	kit *Kit
}

// Get returns the standard servo on channel index, creating it on first use. Asking for the
// same channel again returns the same servo.
func (v *StandardServos) Get(index int) (*servo.Standard, error) {
	s, err := v.kit.get(index, slotStandard)
	if err != nil {
		return nil, err
	}
	return s.standard, nil
}

// Len returns the number of channels on the kit.
func (v *StandardServos) Len() int {
	return v.kit.channels
}

// ContinuousServos hands out the kit's channels as continuous rotation servos.
type ContinuousServos struct {
	kit *Kit
}

// Get returns the continuous rotation servo on channel index, creating it on first use.
func (v *ContinuousServos) Get(index int) (*servo.Continuous, error) {
	s, err := v.kit.get(index, slotContinuous)
	if err != nil {
		return nil, err
	}
	return s.continuous, nil
}

// Len returns the number of channels on the kit.
func (v *ContinuousServos) Len() int {
	return v.kit.channels
}
