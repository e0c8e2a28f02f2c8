package servokit

import (
	"github.com/pkg/errors"
)

var (
	// ErrInvalidConfiguration is returned by New when the kit cannot be built from its config.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrIndexOutOfRange is returned when a servo is requested outside [0, channels).
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrChannelKindConflict is returned when a channel already holds the other kind of servo.
	ErrChannelKindConflict = errors.New("channel kind conflict")
)

func newIndexOutOfRangeError(index, channels int) error {
	return errors.Wrapf(ErrIndexOutOfRange, "servo must be 0-%d, got %d", channels-1, index)
}

func newChannelKindConflictError(index int, held slotKind) error {
	return errors.Wrapf(ErrChannelKindConflict, "channel %d is already in use as a %s servo", index, held)
}
