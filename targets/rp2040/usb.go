//go:build rp2040

package main

import (
	"machine"
	"time"
)

// InitUSB configures machine.Serial, which is USB CDC on the RP2040
func InitUSB() {
	_ = machine.Serial.Configure(machine.UARTConfig{})
}

// usbWriter writes service link replies to USB, retrying partial writes
type usbWriter struct {
	failures uint32
}

func (w *usbWriter) Write(data []byte) (int, error) {
	written := 0
	for written < len(data) {
		n, err := machine.Serial.Write(data[written:])
		if err != nil {
			w.failures++
			return written, err
		}
		if n == 0 {
			// host not reading; drop the rest
			w.failures++
			return written, nil
		}
		written += n
	}
	w.failures = 0
	return written, nil
}

// usbReaderLoop feeds received bytes to the service link
func usbReaderLoop(feed func([]byte) error) {
	buf := make([]byte, 64)
	for {
		n := 0
		for n < len(buf) && machine.Serial.Buffered() > 0 {
			b, err := machine.Serial.ReadByte()
			if err != nil {
				break
			}
			buf[n] = b
			n++
		}
		if n > 0 {
			_ = feed(buf[:n])
		}
		time.Sleep(100 * time.Microsecond)
	}
}
