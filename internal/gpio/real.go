//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

const consumer = "panel-power"

// RealPins drives the button and latch lines on actual hardware using the
// Linux GPIO character device. Polarity is handled by the kernel's active-low
// flag so Value/SetValue work in logical levels.
type RealPins struct {
	chip   *gpiocdev.Chip
	button *gpiocdev.Line
	latch  *gpiocdev.Line
}

// NewRealPins requests both lines. The latch starts released; the caller
// decides when to assert it.
func NewRealPins(cfg Config) (*RealPins, error) {
	chip, err := gpiocdev.NewChip(cfg.Chip, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", cfg.Chip, err)
	}

	button, err := chip.RequestLine(cfg.ButtonPin, buttonOptions(cfg)...)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request button pin %d: %w", cfg.ButtonPin, err)
	}

	latchOpts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(0)}
	if !cfg.LatchActiveHigh {
		latchOpts = append(latchOpts, gpiocdev.AsActiveLow)
	}
	latch, err := chip.RequestLine(cfg.LatchPin, latchOpts...)
	if err != nil {
		button.Close()
		chip.Close()
		return nil, fmt.Errorf("request latch pin %d: %w", cfg.LatchPin, err)
	}

	return &RealPins{
		chip:   chip,
		button: button,
		latch:  latch,
	}, nil
}

func buttonOptions(cfg Config) []gpiocdev.LineReqOption {
	// Pull toward the released level so a floating line reads as not pressed.
	if cfg.ButtonActiveLow {
		return []gpiocdev.LineReqOption{gpiocdev.AsInput, gpiocdev.WithPullUp, gpiocdev.AsActiveLow}
	}
	return []gpiocdev.LineReqOption{gpiocdev.AsInput, gpiocdev.WithPullDown}
}

// ReadButton samples the button once without touching the latch line.
func ReadButton(cfg Config) (bool, error) {
	opts := append(buttonOptions(cfg), gpiocdev.WithConsumer(consumer))
	line, err := gpiocdev.RequestLine(cfg.Chip, cfg.ButtonPin, opts...)
	if err != nil {
		return false, fmt.Errorf("request button pin %d: %w", cfg.ButtonPin, err)
	}
	defer line.Close()

	v, err := line.Value()
	if err != nil {
		return false, fmt.Errorf("read button: %w", err)
	}
	return v == 1, nil
}

// Pressed returns the logical button state.
func (p *RealPins) Pressed() (bool, error) {
	v, err := p.button.Value()
	if err != nil {
		return false, fmt.Errorf("read button: %w", err)
	}
	return v == 1, nil
}

// Set drives the latch.
func (p *RealPins) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := p.latch.SetValue(v); err != nil {
		return fmt.Errorf("set latch: %w", err)
	}
	return nil
}

// Close releases GPIO resources.
// The latch line is released as-is: reconfiguring it to an input here could
// drop the power rail while the system is still shutting down.
func (p *RealPins) Close() error {
	var errs []error

	if p.button != nil {
		if err := p.button.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close button pin: %w", err))
		}
	}
	if p.latch != nil {
		if err := p.latch.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close latch pin: %w", err))
		}
	}
	if p.chip != nil {
		if err := p.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
