// Package adc turns raw ADC conversions into a battery voltage.
package adc

import (
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// RawReader performs one raw ADC conversion.
type RawReader interface {
	ReadRaw() (int, error)
}

// Source produces one battery voltage reading per call.
type Source interface {
	Volts() (float64, error)
}

// Config describes the sense chain from ADC counts to battery volts.
type Config struct {
	// Samples is how many conversions are averaged per reading.
	Samples int

	// Linear fallback used when no calibration curve is available.
	FullScaleMillivolts int
	MaxRaw              int

	// Vbat = Vpin * DividerK / Offset.
	DividerK float64
	Offset   float64

	// Calibration maps raw counts to pin millivolts. Optional.
	Calibration []Point
}

// DefaultConfig matches a 12-bit converter at ~3.3V full scale behind a 1:3
// divider.
func DefaultConfig() Config {
	return Config{
		Samples:             8,
		FullScaleMillivolts: 3300,
		MaxRaw:              4095,
		DividerK:            3.051,
		Offset:              1.0,
	}
}

// Validate checks the sense chain parameters. The calibration curve is not
// checked here: a bad curve degrades to the linear fallback instead.
func (c Config) Validate() error {
	if c.Samples <= 0 {
		return errors.New("adc: samples must be > 0")
	}
	if c.MaxRaw <= 0 || c.FullScaleMillivolts <= 0 {
		return errors.New("adc: full scale and max raw must be > 0")
	}
	if c.DividerK <= 0 || c.Offset <= 0 {
		return errors.New("adc: divider and offset must be > 0")
	}
	return nil
}

// Sampler produces one averaged, calibrated battery voltage per call.
// Not safe for concurrent use.
type Sampler struct {
	cfg    Config
	reader RawReader
	cal    *Calibration
	log    logrus.FieldLogger

	lastRaw int
	lastMV  int
}

// NewSampler creates a sampler. If the calibration curve is missing or
// invalid the sampler logs a warning once and uses the linear fallback.
func NewSampler(cfg Config, reader RawReader, log logrus.FieldLogger) *Sampler {
	s := &Sampler{cfg: cfg, reader: reader, log: log}

	switch cal, err := NewCalibration(cfg.Calibration); {
	case err == nil:
		s.cal = cal
		log.Infof("ADC calibration: OK (%d points)", len(cfg.Calibration))
	case len(cfg.Calibration) == 0:
		log.Warn("ADC calibration not configured; using uncalibrated fallback")
	default:
		log.Warnf("ADC calibration rejected (%v); using uncalibrated fallback", err)
	}
	return s
}

// Calibrated reports whether a calibration curve is in use.
func (s *Sampler) Calibrated() bool {
	return s.cal != nil
}

// Volts reads Samples conversions and returns the battery voltage. Failed
// conversions are left out of the average; if all of them fail an error is
// returned and no voltage is produced.
func (s *Sampler) Volts() (float64, error) {
	sum, n := 0, 0
	var lastErr error
	for i := 0; i < s.cfg.Samples; i++ {
		raw, err := s.reader.ReadRaw()
		if err != nil {
			lastErr = err
			continue
		}
		sum += raw
		n++
	}
	if n == 0 {
		return 0, fmt.Errorf("adc: no successful conversions: %w", lastErr)
	}
	if n < s.cfg.Samples {
		s.log.Debugf("adc: %d of %d conversions failed: %v", s.cfg.Samples-n, s.cfg.Samples, lastErr)
	}

	s.lastRaw = sum / n
	s.lastMV = s.toMillivolts(s.lastRaw)

	vPin := float64(s.lastMV) / 1000
	return vPin * s.cfg.DividerK / s.cfg.Offset, nil
}

func (s *Sampler) toMillivolts(raw int) int {
	if s.cal != nil {
		return s.cal.Millivolts(raw)
	}
	return int(math.Floor(float64(raw)*float64(s.cfg.FullScaleMillivolts)/float64(s.cfg.MaxRaw) + 0.5))
}

// LastRaw returns the averaged raw value from the last reading.
func (s *Sampler) LastRaw() int {
	return s.lastRaw
}

// LastPinMillivolts returns the pin voltage from the last reading.
func (s *Sampler) LastPinMillivolts() int {
	return s.lastMV
}
