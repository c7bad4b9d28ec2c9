package gpio

import "errors"

// FakeButton is a test double that returns scripted button states.
type FakeButton struct {
	// Samples contains scripted pressed values to return.
	// Each call to Pressed() consumes the next sample.
	Samples []bool

	// index tracks current position in Samples
	index int

	// Reads counts calls to Pressed.
	Reads int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Pressed()
	ReadError error
}

// NewFakeButton creates a FakeButton with the given samples.
func NewFakeButton(samples ...bool) *FakeButton {
	return &FakeButton{Samples: samples}
}

// Pressed returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeButton) Pressed() (bool, error) {
	f.Reads++
	if f.ReadError != nil {
		return false, f.ReadError
	}

	if len(f.Samples) == 0 {
		return false, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}

	return sample, nil
}

// Close marks the button as closed.
func (f *FakeButton) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds to the first sample.
func (f *FakeButton) Reset() {
	f.index = 0
	f.Reads = 0
	f.Closed = false
}

// FakeLatch records every level it is driven to.
type FakeLatch struct {
	// History contains every value passed to Set, in order.
	History []bool

	// On is the current level.
	On bool

	// SetError, if set, will be returned by Set() and the level is left unchanged.
	SetError error

	Closed bool
}

// NewFakeLatch creates a released FakeLatch.
func NewFakeLatch() *FakeLatch {
	return &FakeLatch{}
}

// Set records the level.
func (f *FakeLatch) Set(on bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.History = append(f.History, on)
	f.On = on
	return nil
}

// Close marks the latch as closed.
func (f *FakeLatch) Close() error {
	f.Closed = true
	return nil
}
