//go:build rp2040

package main

import (
	"machine"

	"tinygo.org/x/drivers/tm1637"
)

// tm1637Mirror repeats the elapsed seconds on a 4-digit TM1637 module
type tm1637Mirror struct {
	dev tm1637.Device
}

func newTM1637Mirror(clk, dio machine.Pin, brightness uint8) *tm1637Mirror {
	m := &tm1637Mirror{dev: tm1637.New(clk, dio, brightness)}
	m.dev.Configure()
	m.dev.ClearDisplay()
	return m
}

func (m *tm1637Mirror) ShowNumber(n int) error {
	m.dev.DisplayNumber(int16(n))
	return nil
}
