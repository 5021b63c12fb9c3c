// Package mcu is the host-side client of a washer controller's service link.
package mcu

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"washctl/core"
	"washctl/host/serial"
	"washctl/protocol"
)

// ErrNotConnected is returned by commands issued before Connect
var ErrNotConnected = errors.New("mcu: not connected")

// TransitionHandler receives transitions pushed by the controller
type TransitionHandler func(tr protocol.Transition)

// MCU represents a connection to a washer controller
type MCU struct {
	transport *protocol.HostTransport
	port      serial.Port

	statusChan chan protocol.Status

	mu           sync.Mutex
	onTransition TransitionHandler
}

// NewMCU creates a new MCU instance (not yet connected)
func NewMCU() *MCU {
	return &MCU{
		statusChan: make(chan protocol.Status, 1),
	}
}

// Connect opens the serial device and attaches to it
func (m *MCU) Connect(cfg *serial.Config) error {
	port, err := serial.Open(cfg)
	if err != nil {
		return err
	}
	m.Attach(port)

	// give a controller that just reset time to come up
	time.Sleep(100 * time.Millisecond)
	return nil
}

// Attach uses an already open port
func (m *MCU) Attach(port serial.Port) {
	m.port = port
	m.transport = protocol.NewHostTransport(port)
	m.transport.SetResponseHandler(m.handleResponse)
}

// Close closes the connection
func (m *MCU) Close() error {
	if m.transport == nil {
		return nil
	}
	err := m.transport.Close()
	m.transport = nil
	return err
}

// OnTransition sets the handler for pushed transitions
func (m *MCU) OnTransition(h TransitionHandler) {
	m.mu.Lock()
	m.onTransition = h
	m.mu.Unlock()
}

// ToggleStartPause presses the start/pause button remotely
func (m *MCU) ToggleStartPause() error {
	if m.transport == nil {
		return ErrNotConnected
	}
	return errors.Wrap(m.transport.SendCommand(protocol.MsgToggleStartPause, nil), "toggle_start_pause")
}

// SetWaterLevel sets the water selector remotely
func (m *MCU) SetWaterLevel(level core.WaterLevel) error {
	if m.transport == nil {
		return ErrNotConnected
	}
	err := m.transport.SendCommand(protocol.MsgSetLevel, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(level))
	})
	return errors.Wrap(err, "set_water_level")
}

// GetStatus requests and waits for a status report
func (m *MCU) GetStatus(timeout time.Duration) (protocol.Status, error) {
	if m.transport == nil {
		return protocol.Status{}, ErrNotConnected
	}

	// drop a report nobody collected
	select {
	case <-m.statusChan:
	default:
	}

	if err := m.transport.SendCommandWithTimeout(protocol.MsgGetStatus, nil, timeout); err != nil {
		return protocol.Status{}, errors.Wrap(err, "get_status")
	}

	select {
	case st := <-m.statusChan:
		return st, nil
	case <-time.After(timeout):
		return protocol.Status{}, errors.Errorf("get_status: no report after %v", timeout)
	}
}

// handleResponse runs on the transport's read loop
func (m *MCU) handleResponse(cmdID uint16, data *[]byte) error {
	switch cmdID {
	case protocol.MsgStatus:
		st, err := protocol.DecodeStatus(data)
		if err != nil {
			return err
		}
		select {
		case m.statusChan <- st:
		default:
		}
	case protocol.MsgTransition:
		tr, err := protocol.DecodeTransition(data)
		if err != nil {
			return err
		}
		m.mu.Lock()
		h := m.onTransition
		m.mu.Unlock()
		if h != nil {
			h(tr)
		}
	}
	return nil
}
