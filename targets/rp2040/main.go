//go:build rp2040

package main

import (
	"context"
	"machine"
	"time"

	"washctl/core"
	"washctl/cycle"
)

// Panel wiring. Display and indicator entries are indexed by port bit.
var (
	selectorPins = [3]core.GPIOPin{2, 3, 4}
	startPause   = core.GPIOPin(5)

	displayPins   = core.PinMap{6, 7, 8, 9, 10, 11, 12, 13}
	indicatorPins = core.PinMap{core.NoPin, core.NoPin, 14, 15, 16, 17, core.NoPin, core.NoPin}

	// set tm1637Enabled to drive a TM1637 module with the same count
	tm1637Enabled    = false
	tm1637CLK        = machine.GPIO26
	tm1637DIO        = machine.GPIO27
	tm1637Brightness = uint8(5)
)

var (
	latch *core.InputLatch
	gpio  *RPGPIODriver
	trace *core.TraceRing

	errorCount uint32
)

func main() {
	// Disable a watchdog left running by a previous image
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	InitUSB()

	gpio = NewRPGPIODriver()
	latch = core.NewInputLatch()
	trace = core.NewTraceRing(func(s string) { println(s) })

	initInputs()

	ports := core.NewPinPort(gpio)
	if err := ports.Attach(core.PortB, displayPins); err != nil {
		println("display:", err.Error())
	}
	if err := ports.Attach(core.PortD, indicatorPins); err != nil {
		println("indicator:", err.Error())
	}

	var mirror core.NumberDisplay
	if tm1637Enabled {
		mirror = newTM1637Mirror(tm1637CLK, tm1637DIO, tm1637Brightness)
	}

	m, err := cycle.New(cycle.Options{
		Inputs:    latch,
		Ticks:     core.NewTickSource(core.SystemClock{}, core.OverflowsPerSecond),
		Display:   core.NewDisplay(ports, mirror),
		Indicator: core.NewIndicator(ports),
		OnError:   func(error) { errorCount++ },
	})
	if err != nil {
		println("cycle:", err.Error())
		return
	}

	svc := core.NewService(latch, m, &usbWriter{})
	go usbReaderLoop(svc.Feed)

	m.SetObserver(cycle.Observers{
		cycle.TraceObserver{Ring: trace},
		cycle.LinkObserver{Sink: svc, OnError: func(error) { errorCount++ }},
	})

	for {
		// Recover from panics so the panel stays responsive
		func() {
			defer func() {
				if r := recover(); r != nil {
					errorCount++
					for _, ev := range trace.Entries() {
						println(ev.Kind.String(), ev.From, ev.To, ev.Seconds)
					}
				}
			}()
			if err := m.Run(context.Background()); err != nil {
				errorCount++
				time.Sleep(10 * time.Millisecond)
			}
		}()
	}
}

// initInputs configures the panel inputs and their pin-change interrupts.
// The handlers only touch the latch.
func initInputs() {
	for _, p := range selectorPins {
		gpio.ConfigureInputPullDown(p)
		gpio.OnChange(p, machine.PinRising|machine.PinFalling, func(machine.Pin) {
			latch.SetSelector(core.ReadSelector(gpio, selectorPins[0], selectorPins[1], selectorPins[2]))
		})
	}
	// sample the selector once; it may already be set at power-up
	latch.SetSelector(core.ReadSelector(gpio, selectorPins[0], selectorPins[1], selectorPins[2]))

	gpio.ConfigureInputPullUp(startPause)
	gpio.OnChange(startPause, machine.PinFalling, func(machine.Pin) {
		latch.ToggleStartPause()
	})
}
