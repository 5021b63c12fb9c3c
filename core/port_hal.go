package core

import (
	"errors"
	"sync"
)

// Port identifies an 8-bit output port
type Port uint8

const (
	// PortB carries the elapsed-seconds display pattern
	PortB Port = iota + 1
	// PortD carries the phase indicator
	PortD
)

func (p Port) String() string {
	switch p {
	case PortB:
		return "PORTB"
	case PortD:
		return "PORTD"
	default:
		return "PORT?"
	}
}

var ErrUnknownPort = errors.New("unknown port")

// PortDriver is the abstract output interface used by the display and the
// phase indicator. Platform code provides the implementation.
type PortDriver interface {
	// WritePort latches value onto every bit of port
	WritePort(port Port, value uint8) error
}

// PortWrite is one recorded port write
type PortWrite struct {
	Port  Port
	Value uint8
}

// MemoryPort is a PortDriver that keeps port values in memory. The simulator
// and the tests use it in place of real output registers.
type MemoryPort struct {
	mu      sync.Mutex
	values  map[Port]uint8
	history []PortWrite
	limit   int
}

// NewMemoryPort creates a memory port keeping at most limit history entries.
// limit <= 0 keeps everything.
func NewMemoryPort(limit int) *MemoryPort {
	return &MemoryPort{
		values: make(map[Port]uint8),
		limit:  limit,
	}
}

// WritePort records the write
func (m *MemoryPort) WritePort(port Port, value uint8) error {
	if port != PortB && port != PortD {
		return ErrUnknownPort
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[port] = value
	m.history = append(m.history, PortWrite{Port: port, Value: value})
	if m.limit > 0 && len(m.history) > m.limit {
		m.history = m.history[len(m.history)-m.limit:]
	}
	return nil
}

// Value returns the last value written to port
func (m *MemoryPort) Value(port Port) uint8 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[port]
}

// History returns a copy of the writes made to port, oldest first
func (m *MemoryPort) History(port Port) []uint8 {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []uint8
	for _, w := range m.history {
		if w.Port == port {
			out = append(out, w.Value)
		}
	}
	return out
}

// Reset forgets all values and history
func (m *MemoryPort) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = make(map[Port]uint8)
	m.history = nil
}
