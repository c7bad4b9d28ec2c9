// Package gpio provides the power button input and power latch output with
// hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Button reads the power push-button.
type Button interface {
	// Pressed returns the logical button state with polarity already applied.
	Pressed() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Latch drives the output that keeps the board's power rail alive.
type Latch interface {
	// Set drives the latch to its logical on/off level.
	Set(on bool) error

	// Close releases GPIO resources without changing the latch level.
	Close() error
}

// Config selects the lines and their active levels.
type Config struct {
	Chip            string
	ButtonPin       int
	LatchPin        int
	ButtonActiveLow bool // button pulls the line low when pressed
	LatchActiveHigh bool // drive high to hold power
}

// DefaultConfig matches the reference panel wiring.
func DefaultConfig() Config {
	return Config{
		Chip:            "gpiochip0",
		ButtonPin:       6,
		LatchPin:        7,
		ButtonActiveLow: true,
		LatchActiveHigh: true,
	}
}
