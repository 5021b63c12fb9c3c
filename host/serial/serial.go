// Package serial opens the service link to a controller.
package serial

import (
	"io"
	"time"

	"washctl/config"
)

// Port is an open service link
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate; USB CDC ignores it
	Baud int

	// ReadTimeout bounds a single read (0 = blocking)
	ReadTimeout time.Duration
}

// FromConfig converts the serial section of the controller configuration
func FromConfig(s config.Serial) *Config {
	return &Config{
		Device:      s.Device,
		Baud:        s.Baud,
		ReadTimeout: s.ReadTimeout(),
	}
}
