package ticktimer

import (
	"errors"
)

// Standard errors.
var (
	// ErrTimerRunning is returned when Run is called on a Timer whose driver
	// is already running.
	ErrTimerRunning = errors.New("ticktimer: timer is already running")

	// ErrInvalidFrequency is returned for a tick frequency outside the
	// supported [19, 1000] Hz range.
	ErrInvalidFrequency = errors.New("ticktimer: frequency must be within [19, 1000]")
)
