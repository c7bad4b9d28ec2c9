//go:build !linux

package gpio

import "errors"

// RealPins is not available on non-Linux platforms.
type RealPins struct{}

// NewRealPins returns an error on non-Linux platforms.
func NewRealPins(cfg Config) (*RealPins, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Pressed is not implemented on non-Linux platforms.
func (p *RealPins) Pressed() (bool, error) {
	return false, errors.New("gpio: not supported")
}

// Set is not implemented on non-Linux platforms.
func (p *RealPins) Set(on bool) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (p *RealPins) Close() error {
	return nil
}

// ReadButton returns an error on non-Linux platforms.
func ReadButton(cfg Config) (bool, error) {
	return false, errors.New("gpio: not supported on this platform (requires Linux)")
}
