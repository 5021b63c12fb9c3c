package core

// displayPatterns is the bit pattern shown on PORTB for 0..10 seconds
var displayPatterns = [...]uint8{
	0:  0x00,
	1:  0x80,
	2:  0x40,
	3:  0xC0,
	4:  0x20,
	5:  0xA0,
	6:  0x60,
	7:  0xE0,
	8:  0x10,
	9:  0x90,
	10: 0x08,
}

// MaxDisplaySeconds is the largest value the display can show
const MaxDisplaySeconds = len(displayPatterns) - 1

// DisplayPattern returns the output pattern for seconds. ok is false outside 0..10.
func DisplayPattern(seconds int) (pattern uint8, ok bool) {
	if seconds < 0 || seconds > MaxDisplaySeconds {
		return 0, false
	}
	return displayPatterns[seconds], true
}

// NumberDisplay is an auxiliary numeric display that mirrors the port output
type NumberDisplay interface {
	ShowNumber(n int) error
}

// Display drives the elapsed-seconds pattern onto PORTB
type Display struct {
	port   PortDriver
	mirror NumberDisplay
}

// NewDisplay creates a display writing to port. mirror may be nil.
func NewDisplay(port PortDriver, mirror NumberDisplay) *Display {
	return &Display{port: port, mirror: mirror}
}

// Render shows seconds. Values outside 0..10 leave the output unchanged.
func (d *Display) Render(seconds int) error {
	pattern, ok := DisplayPattern(seconds)
	if !ok {
		return nil
	}
	if err := d.port.WritePort(PortB, pattern); err != nil {
		return err
	}
	if d.mirror != nil {
		return d.mirror.ShowNumber(seconds)
	}
	return nil
}
