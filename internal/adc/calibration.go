package adc

import (
	"errors"
	"fmt"
	"math"
)

// Point is one calibration measurement: a raw count and the pin voltage it
// corresponds to.
type Point struct {
	Raw        int `toml:"raw"`
	Millivolts int `toml:"mv"`
}

// Calibration is a piecewise-linear raw → millivolt curve.
type Calibration struct {
	points []Point
}

// NewCalibration validates the curve: at least two points with strictly
// ascending raw values.
func NewCalibration(points []Point) (*Calibration, error) {
	if len(points) < 2 {
		return nil, errors.New("need at least two points")
	}
	for i := 1; i < len(points); i++ {
		if points[i].Raw <= points[i-1].Raw {
			return nil, fmt.Errorf("raw values must ascend (point %d: %d after %d)",
				i, points[i].Raw, points[i-1].Raw)
		}
	}
	cp := make([]Point, len(points))
	copy(cp, points)
	return &Calibration{points: cp}, nil
}

// Millivolts interpolates raw onto the curve. Values outside the measured
// range are extrapolated from the nearest segment.
func (c *Calibration) Millivolts(raw int) int {
	p := c.points
	i := 1
	for i < len(p)-1 && raw > p[i].Raw {
		i++
	}
	a, b := p[i-1], p[i]
	mv := float64(a.Millivolts) + float64(raw-a.Raw)*float64(b.Millivolts-a.Millivolts)/float64(b.Raw-a.Raw)
	return int(math.Floor(mv + 0.5))
}
