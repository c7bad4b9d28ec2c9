// Package config loads the daemon's TOML configuration file. Every section has
// defaults; a missing file is not an error.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/sweeney/panel-power/internal/adc"
	"github.com/sweeney/panel-power/internal/gpio"
	"github.com/sweeney/panel-power/internal/logic"
	"github.com/sweeney/panel-power/internal/power"
)

// DefaultPath is where the daemon looks when --config is not given.
const DefaultPath = "/etc/panel-power.toml"

// Config is the on-disk layout.
type Config struct {
	GPIO      GPIO      `toml:"gpio"`
	Power     Power     `toml:"power"`
	ADC       ADC       `toml:"adc"`
	Battery   Battery   `toml:"battery"`
	Backlight Backlight `toml:"backlight"`
}

// GPIO selects the button and latch lines.
type GPIO struct {
	Chip            string `toml:"chip"`
	ButtonPin       int    `toml:"button_pin"`
	LatchPin        int    `toml:"latch_pin"`
	ButtonActiveLow bool   `toml:"button_active_low"`
	LatchActiveHigh bool   `toml:"latch_active_high"`
}

// Power holds the press thresholds (in ticks) and timings.
type Power struct {
	TickMS        int    `toml:"tick_ms"`
	SleepTicks    uint16 `toml:"sleep_ticks"`
	RestartTicks  uint16 `toml:"restart_ticks"`
	ShutdownTicks uint16 `toml:"shutdown_ticks"`
	CountBootHold bool   `toml:"count_boot_hold"`
	InitSettleMS  int    `toml:"init_settle_ms"`
	HaltSettleMS  int    `toml:"halt_settle_ms"`
}

// ADC describes the converter and the sense chain.
type ADC struct {
	Bus         string      `toml:"bus"`
	Address     uint16      `toml:"address"`
	Channel     int         `toml:"channel"`
	MaxVolt     float64     `toml:"max_volt"`
	Samples     int         `toml:"samples"`
	FullScaleMV int         `toml:"full_scale_mv"`
	MaxRaw      int         `toml:"max_raw"`
	DividerK    float64     `toml:"divider_k"`
	Offset      float64     `toml:"offset"`
	Calibration []adc.Point `toml:"calibration"`
}

// Battery tunes the trend estimator and the percentage smoother.
type Battery struct {
	TickMS            int     `toml:"tick_ms"`
	Alpha             float64 `toml:"alpha"`
	WindowMS          int     `toml:"window_ms"`
	PlugMV            float64 `toml:"plug_mv"`
	UnplugMV          float64 `toml:"unplug_mv"`
	LockMS            int     `toml:"lock_ms"`
	MinValidVolts     float64 `toml:"min_valid_volts"`
	EmptyVolts        float64 `toml:"empty_volts"`
	ChargingFullVolts float64 `toml:"charging_full_volts"`
	RestingFullVolts  float64 `toml:"resting_full_volts"`
	RelaxMS           int     `toml:"relax_ms"`
	DecrementMS       int     `toml:"decrement_ms"`
	RiseCap           int     `toml:"rise_cap"`
	DropCap           int     `toml:"drop_cap"`
}

// Backlight selects the sysfs device and the levels used around power actions.
// An empty Dir disables backlight control.
type Backlight struct {
	Dir   string `toml:"dir"`
	Sleep uint8  `toml:"sleep"`
	Wake  uint8  `toml:"wake"`
	Off   uint8  `toml:"off"`
}

func ms(d time.Duration) int {
	return int(d / time.Millisecond)
}

func dur(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

// Default returns the reference panel configuration.
func Default() Config {
	g := gpio.DefaultConfig()
	p := power.DefaultConfig()
	a := adc.DefaultConfig()
	t := logic.DefaultTrendConfig()
	d := logic.DefaultDisplayConfig()

	return Config{
		GPIO: GPIO{
			Chip:            g.Chip,
			ButtonPin:       g.ButtonPin,
			LatchPin:        g.LatchPin,
			ButtonActiveLow: g.ButtonActiveLow,
			LatchActiveHigh: g.LatchActiveHigh,
		},
		Power: Power{
			TickMS:        100,
			SleepTicks:    p.Sequencer.SleepAt,
			RestartTicks:  p.Sequencer.RestartAt,
			ShutdownTicks: p.Sequencer.ShutdownAt,
			CountBootHold: p.Sequencer.CountBootHold,
			InitSettleMS:  ms(p.InitSettle),
			HaltSettleMS:  ms(p.HaltSettle),
		},
		// ADS1115 single-ended at the 4.096V range: 32767 counts full scale.
		ADC: ADC{
			Address:     0x48,
			Channel:     0,
			MaxVolt:     4.096,
			Samples:     a.Samples,
			FullScaleMV: 4096,
			MaxRaw:      32767,
			DividerK:    a.DividerK,
			Offset:      a.Offset,
		},
		Battery: Battery{
			TickMS:            1000,
			Alpha:             t.Alpha,
			WindowMS:          ms(t.Window),
			PlugMV:            t.PlugMillivolts,
			UnplugMV:          t.UnplugMillivolts,
			LockMS:            ms(t.Lock),
			MinValidVolts:     t.MinValidVolts,
			EmptyVolts:        d.EmptyVolts,
			ChargingFullVolts: d.ChargingFullVolts,
			RestingFullVolts:  d.RestingFullVolts,
			RelaxMS:           ms(d.Relax),
			DecrementMS:       ms(d.DecrementInterval),
			RiseCap:           d.RiseCap,
			DropCap:           d.DropCap,
		},
		Backlight: Backlight{
			Sleep: p.SleepBacklight,
			Wake:  p.WakeBacklight,
			Off:   p.OffBacklight,
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults;
// unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := Parse(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML into cfg, keeping values absent from data, then
// validates the result.
func Parse(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return errors.New(strict.String())
		}
		return err
	}
	return cfg.Validate()
}

// Marshal renders cfg as TOML.
func Marshal(cfg Config) ([]byte, error) {
	return toml.Marshal(cfg)
}

// Validate checks every section.
func (c Config) Validate() error {
	if c.Power.TickMS <= 0 {
		return errors.New("power: tick_ms must be > 0")
	}
	if c.Battery.TickMS <= 0 {
		return errors.New("battery: tick_ms must be > 0")
	}
	if c.GPIO.Chip == "" {
		return errors.New("gpio: chip must be set")
	}
	if c.GPIO.ButtonPin < 0 || c.GPIO.LatchPin < 0 || c.GPIO.ButtonPin == c.GPIO.LatchPin {
		return fmt.Errorf("gpio: bad pins (button=%d latch=%d)", c.GPIO.ButtonPin, c.GPIO.LatchPin)
	}
	if c.ADC.Channel < 0 || c.ADC.Channel > 3 {
		return fmt.Errorf("adc: channel %d out of range 0..3", c.ADC.Channel)
	}
	if c.ADC.MaxVolt <= 0 {
		return errors.New("adc: max_volt must be > 0")
	}
	if err := c.PowerConfig().Validate(); err != nil {
		return err
	}
	if err := c.SamplerConfig().Validate(); err != nil {
		return err
	}
	if err := c.TrendConfig().Validate(); err != nil {
		return err
	}
	return c.DisplayConfig().Validate()
}

// PowerTick is the button polling period.
func (c Config) PowerTick() time.Duration {
	return dur(c.Power.TickMS)
}

// BatteryTick is the battery sampling period.
func (c Config) BatteryTick() time.Duration {
	return dur(c.Battery.TickMS)
}

// GPIOConfig converts the gpio section.
func (c Config) GPIOConfig() gpio.Config {
	return gpio.Config{
		Chip:            c.GPIO.Chip,
		ButtonPin:       c.GPIO.ButtonPin,
		LatchPin:        c.GPIO.LatchPin,
		ButtonActiveLow: c.GPIO.ButtonActiveLow,
		LatchActiveHigh: c.GPIO.LatchActiveHigh,
	}
}

// PowerConfig converts the power and backlight sections.
func (c Config) PowerConfig() power.Config {
	return power.Config{
		Sequencer: logic.PowerConfig{
			SleepAt:       c.Power.SleepTicks,
			RestartAt:     c.Power.RestartTicks,
			ShutdownAt:    c.Power.ShutdownTicks,
			CountBootHold: c.Power.CountBootHold,
		},
		InitSettle:     dur(c.Power.InitSettleMS),
		HaltSettle:     dur(c.Power.HaltSettleMS),
		SleepBacklight: c.Backlight.Sleep,
		WakeBacklight:  c.Backlight.Wake,
		OffBacklight:   c.Backlight.Off,
	}
}

// SamplerConfig converts the sense chain part of the adc section.
func (c Config) SamplerConfig() adc.Config {
	return adc.Config{
		Samples:             c.ADC.Samples,
		FullScaleMillivolts: c.ADC.FullScaleMV,
		MaxRaw:              c.ADC.MaxRaw,
		DividerK:            c.ADC.DividerK,
		Offset:              c.ADC.Offset,
		Calibration:         c.ADC.Calibration,
	}
}

// ADS1115Config converts the converter part of the adc section.
func (c Config) ADS1115Config() adc.ADS1115Config {
	return adc.ADS1115Config{
		Bus:     c.ADC.Bus,
		Address: c.ADC.Address,
		Channel: c.ADC.Channel,
		MaxVolt: c.ADC.MaxVolt,
	}
}

// TrendConfig converts the estimator part of the battery section.
func (c Config) TrendConfig() logic.TrendConfig {
	return logic.TrendConfig{
		Alpha:            c.Battery.Alpha,
		Window:           dur(c.Battery.WindowMS),
		PlugMillivolts:   c.Battery.PlugMV,
		UnplugMillivolts: c.Battery.UnplugMV,
		Lock:             dur(c.Battery.LockMS),
		MinValidVolts:    c.Battery.MinValidVolts,
	}
}

// DisplayConfig converts the smoother part of the battery section.
func (c Config) DisplayConfig() logic.DisplayConfig {
	return logic.DisplayConfig{
		EmptyVolts:        c.Battery.EmptyVolts,
		ChargingFullVolts: c.Battery.ChargingFullVolts,
		RestingFullVolts:  c.Battery.RestingFullVolts,
		Relax:             dur(c.Battery.RelaxMS),
		DecrementInterval: dur(c.Battery.DecrementMS),
		RiseCap:           c.Battery.RiseCap,
		DropCap:           c.Battery.DropCap,
	}
}
