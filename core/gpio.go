// Port output over individual GPIO pins
// Boards without a byte-wide output register expose each port bit on its own pin
package core

// PinMap assigns a GPIO pin to each bit of an 8-bit port, bit 0 first.
// Bits mapped to NoPin are not driven.
type PinMap [8]GPIOPin

// UnusedPins returns a map with every bit unassigned
func UnusedPins() PinMap {
	var m PinMap
	for i := range m {
		m[i] = NoPin
	}
	return m
}

// PinPort implements PortDriver on top of a GPIODriver
type PinPort struct {
	gpio  GPIODriver
	ports map[Port]PinMap
	last  map[Port]uint8
}

// NewPinPort creates a pin-backed port driver
func NewPinPort(gpio GPIODriver) *PinPort {
	return &PinPort{
		gpio:  gpio,
		ports: make(map[Port]PinMap),
		last:  make(map[Port]uint8),
	}
}

// Attach configures the mapped pins as outputs, driven low, and binds them to port
func (p *PinPort) Attach(port Port, pins PinMap) error {
	for _, pin := range pins {
		if pin == NoPin {
			continue
		}
		if err := p.gpio.ConfigureOutput(pin); err != nil {
			return err
		}
		if err := p.gpio.SetPin(pin, false); err != nil {
			return err
		}
	}
	p.ports[port] = pins
	p.last[port] = 0
	return nil
}

// WritePort drives each mapped pin to the matching bit of value
func (p *PinPort) WritePort(port Port, value uint8) error {
	pins, ok := p.ports[port]
	if !ok {
		return ErrUnknownPort
	}

	for bit, pin := range pins {
		if pin == NoPin {
			continue
		}
		if err := p.gpio.SetPin(pin, value&(1<<uint(bit)) != 0); err != nil {
			return err
		}
	}
	p.last[port] = value
	return nil
}

// Value returns the last value written to port
func (p *PinPort) Value(port Port) uint8 {
	return p.last[port]
}

// Shutdown drives every attached pin low
func (p *PinPort) Shutdown() {
	for port := range p.ports {
		_ = p.WritePort(port, 0)
	}
}
