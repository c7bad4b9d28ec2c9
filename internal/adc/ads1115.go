package adc

import (
	"fmt"

	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/host/v3"
)

// ADS1115Config selects the converter and its input.
type ADS1115Config struct {
	Bus     string  // I2C bus name, "" for the first available
	Address uint16  // 0x48..0x4B
	Channel int     // single-ended input 0..3
	MaxVolt float64 // full-scale range of the programmable gain amplifier
}

// ADS1115 reads raw conversions from a TI ADS1115 over I2C.
type ADS1115 struct {
	bus i2c.BusCloser
	pin analog.PinADC
}

// NewADS1115 initialises the host drivers, opens the bus and configures the
// input pin.
func NewADS1115(cfg ADS1115Config) (*ADS1115, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}

	ch, err := singleEnded(cfg.Channel)
	if err != nil {
		return nil, err
	}

	bus, err := i2creg.Open(cfg.Bus)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", cfg.Bus, err)
	}

	dev, err := ads1x15.NewADS1115(bus, &ads1x15.Opts{I2cAddress: cfg.Address})
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("ads1115 at %#x: %w", cfg.Address, err)
	}

	maxV := physic.ElectricPotential(cfg.MaxVolt * float64(physic.Volt))
	pin, err := dev.PinForChannel(ch, maxV, 128*physic.Hertz, ads1x15.BestQuality)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("ads1115 channel %d: %w", cfg.Channel, err)
	}

	return &ADS1115{bus: bus, pin: pin}, nil
}

func singleEnded(n int) (ads1x15.Channel, error) {
	switch n {
	case 0:
		return ads1x15.Channel0, nil
	case 1:
		return ads1x15.Channel1, nil
	case 2:
		return ads1x15.Channel2, nil
	case 3:
		return ads1x15.Channel3, nil
	}
	return 0, fmt.Errorf("ads1115: channel %d out of range 0..3", n)
}

// ReadRaw performs a single-shot conversion.
func (a *ADS1115) ReadRaw() (int, error) {
	s, err := a.pin.Read()
	if err != nil {
		return 0, fmt.Errorf("ads1115 read: %w", err)
	}
	return int(s.Raw), nil
}

// Close halts the converter and releases the bus.
func (a *ADS1115) Close() error {
	if err := a.pin.Halt(); err != nil {
		a.bus.Close()
		return fmt.Errorf("halt ads1115: %w", err)
	}
	return a.bus.Close()
}
