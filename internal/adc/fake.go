package adc

import "errors"

// FakeReader is a test double that returns scripted raw conversions.
type FakeReader struct {
	// Values contains scripted raw values; the last one repeats.
	Values []int

	// Errors, if non-nil, is consulted per call: a non-nil entry is returned
	// instead of a value. Calls beyond its length succeed.
	Errors []error

	index int
	calls int
}

// NewFakeReader creates a FakeReader with the given values.
func NewFakeReader(values ...int) *FakeReader {
	return &FakeReader{Values: values}
}

// ReadRaw returns the next scripted value.
func (f *FakeReader) ReadRaw() (int, error) {
	call := f.calls
	f.calls++
	if call < len(f.Errors) && f.Errors[call] != nil {
		return 0, f.Errors[call]
	}

	if len(f.Values) == 0 {
		return 0, errors.New("no values configured")
	}

	v := f.Values[f.index]
	if f.index < len(f.Values)-1 {
		f.index++
	}
	return v, nil
}

// Calls returns how many conversions were requested.
func (f *FakeReader) Calls() int {
	return f.calls
}

// FakeSource returns scripted battery voltages in place of a Sampler.
type FakeSource struct {
	Readings []float64
	Err      error
	index    int
}

// NewFakeSource creates a FakeSource; the last value repeats.
func NewFakeSource(volts ...float64) *FakeSource {
	return &FakeSource{Readings: volts}
}

// Volts returns the next scripted voltage.
func (f *FakeSource) Volts() (float64, error) {
	if f.Err != nil {
		return 0, f.Err
	}
	if len(f.Readings) == 0 {
		return 0, errors.New("no voltages configured")
	}
	v := f.Readings[f.index]
	if f.index < len(f.Readings)-1 {
		f.index++
	}
	return v, nil
}
