package core

// IndicatorPattern is a PORTD value lighting one phase lamp
type IndicatorPattern uint8

const (
	IndicatorOff     IndicatorPattern = 0x00
	IndicatorFilling IndicatorPattern = 0x20
	IndicatorWashing IndicatorPattern = 0x10
	IndicatorRinsing IndicatorPattern = 0x08
	IndicatorDrying  IndicatorPattern = 0x04
)

func (p IndicatorPattern) String() string {
	switch p {
	case IndicatorFilling:
		return "filling"
	case IndicatorWashing:
		return "washing"
	case IndicatorRinsing:
		return "rinsing"
	case IndicatorDrying:
		return "drying"
	case IndicatorOff:
		return "off"
	default:
		return "invalid"
	}
}

// Indicator drives the phase lamps on PORTD
type Indicator struct {
	port PortDriver
}

// NewIndicator creates an indicator writing to port
func NewIndicator(port PortDriver) *Indicator {
	return &Indicator{port: port}
}

// Show lights the lamp for pattern
func (i *Indicator) Show(pattern IndicatorPattern) error {
	return i.port.WritePort(PortD, uint8(pattern))
}
