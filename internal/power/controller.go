// Package power drives the power latch from the button sequencer and carries
// out the actions it requests.
package power

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sweeney/panel-power/internal/gpio"
	"github.com/sweeney/panel-power/internal/logic"
	"github.com/sweeney/panel-power/internal/platform"
)

// Config holds the controller's timing and backlight levels.
type Config struct {
	Sequencer logic.PowerConfig

	// InitSettle is the pause between releasing the latch and sampling the
	// button at power-on.
	InitSettle time.Duration
	// HaltSettle is the pause between releasing the latch and halting.
	HaltSettle time.Duration

	SleepBacklight uint8
	WakeBacklight  uint8
	OffBacklight   uint8
}

// DefaultConfig returns the reference panel's timings.
func DefaultConfig() Config {
	return Config{
		Sequencer:      logic.DefaultPowerConfig(),
		InitSettle:     10 * time.Millisecond,
		HaltSettle:     50 * time.Millisecond,
		SleepBacklight: 5,
		WakeBacklight:  80,
		OffBacklight:   0,
	}
}

// Validate checks the sequencer thresholds and backlight levels.
func (c Config) Validate() error {
	if err := c.Sequencer.Validate(); err != nil {
		return err
	}
	if c.InitSettle < 0 || c.HaltSettle < 0 {
		return errors.New("power: settle times must not be negative")
	}
	for _, l := range []uint8{c.SleepBacklight, c.WakeBacklight, c.OffBacklight} {
		if l > 100 {
			return fmt.Errorf("power: backlight level %d out of range 0..100", l)
		}
	}
	return nil
}

// ActionFunc is called with each non-None action before its side effects run.
// pressTicks is the length of the hold that produced it.
type ActionFunc func(action logic.Action, pressTicks uint16)

// Controller owns the button, the latch and the sequencer.
type Controller struct {
	cfg       Config
	seq       *logic.Sequencer
	button    gpio.Button
	latch     gpio.Latch
	platform  platform.Platform
	backlight platform.Backlight
	log       logrus.FieldLogger

	// OnAction, if set, is called before an action is carried out.
	OnAction ActionFunc

	sleep func(time.Duration)
}

// NewController wires a controller. A nil backlight means NoBacklight.
func NewController(cfg Config, button gpio.Button, latch gpio.Latch, p platform.Platform, bl platform.Backlight, log logrus.FieldLogger) *Controller {
	if bl == nil {
		bl = platform.NoBacklight{}
	}
	return &Controller{
		cfg:       cfg,
		seq:       logic.NewSequencer(cfg.Sequencer),
		button:    button,
		latch:     latch,
		platform:  p,
		backlight: bl,
		log:       log,
		sleep:     time.Sleep,
	}
}

// Init runs the power-on sequence and asserts the latch. A latch failure is
// returned: without the latch the device cannot stay on.
func (c *Controller) Init() (logic.PowerState, error) {
	if err := c.latch.Set(false); err != nil {
		return c.seq.State(), fmt.Errorf("release latch: %w", err)
	}
	c.sleep(c.cfg.InitSettle)

	pressed := c.pressed()
	state := c.seq.Boot(pressed)

	if err := c.latch.Set(true); err != nil {
		return state, fmt.Errorf("assert latch: %w", err)
	}
	c.log.Infof("power latched, boot state %s (button held=%t)", state, pressed)
	return state, nil
}

func (c *Controller) pressed() bool {
	pressed, err := c.button.Pressed()
	if err != nil {
		c.log.Warnf("button read failed, treating as released: %v", err)
		return false
	}
	return pressed
}

// Tick samples the button once, advances the sequencer and performs any
// resulting action. Sleep blocks until the system wakes.
func (c *Controller) Tick(ctx context.Context) (logic.Action, error) {
	held := c.seq.PressTicks()
	action := c.seq.Tick(c.pressed())
	if action == logic.ActionNone {
		return action, nil
	}

	ticks := held
	if action == logic.ActionShutdown {
		ticks = c.seq.PressTicks()
	}
	c.log.Infof("power action %s after %d ticks", action, ticks)
	if c.OnAction != nil {
		c.OnAction(action, ticks)
	}

	switch action {
	case logic.ActionSleep:
		return action, c.doSleep(ctx)
	case logic.ActionRestart:
		if err := c.platform.Restart(); err != nil {
			return action, fmt.Errorf("restart: %w", err)
		}
	case logic.ActionShutdown:
		return action, c.doShutdown()
	}
	return action, nil
}

func (c *Controller) doSleep(ctx context.Context) error {
	c.backlight.SetBacklight(c.cfg.SleepBacklight)
	err := c.platform.Sleep(ctx)
	c.backlight.SetBacklight(c.cfg.WakeBacklight)
	if err != nil {
		return fmt.Errorf("sleep: %w", err)
	}
	return nil
}

// doShutdown halts even if the latch cannot be released.
func (c *Controller) doShutdown() error {
	c.backlight.SetBacklight(c.cfg.OffBacklight)

	var errs []error
	if err := c.latch.Set(false); err != nil {
		errs = append(errs, fmt.Errorf("release latch: %w", err))
	}
	c.sleep(c.cfg.HaltSettle)
	if err := c.platform.Halt(); err != nil {
		errs = append(errs, fmt.Errorf("halt: %w", err))
	}
	return errors.Join(errs...)
}

// State returns the sequencer state.
func (c *Controller) State() logic.PowerState {
	return c.seq.State()
}

// Pending returns the action armed by the current hold.
func (c *Controller) Pending() logic.PendingAction {
	return c.seq.Pending()
}

// PressTicks returns the current hold length.
func (c *Controller) PressTicks() uint16 {
	return c.seq.PressTicks()
}

// Latched reports whether the latch should be asserted.
func (c *Controller) Latched() bool {
	return c.seq.Latched()
}
