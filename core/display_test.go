package core

import (
	"errors"
	"testing"
)

func TestDisplayPatternTable(t *testing.T) {
	want := []uint8{0x00, 0x80, 0x40, 0xC0, 0x20, 0xA0, 0x60, 0xE0, 0x10, 0x90, 0x08}
	for seconds, pattern := range want {
		got, ok := DisplayPattern(seconds)
		if !ok || got != pattern {
			t.Errorf("DisplayPattern(%d) = 0x%02X,%v want 0x%02X", seconds, got, ok, pattern)
		}
	}

	for _, s := range []int{-1, 11, 100} {
		if _, ok := DisplayPattern(s); ok {
			t.Errorf("DisplayPattern(%d) should be out of range", s)
		}
	}
}

func TestDisplayPatternsAreDistinct(t *testing.T) {
	seen := make(map[uint8]int)
	for s := 0; s <= MaxDisplaySeconds; s++ {
		p, _ := DisplayPattern(s)
		if prev, dup := seen[p]; dup {
			t.Errorf("pattern 0x%02X used by %d and %d", p, prev, s)
		}
		seen[p] = s
	}
}

type recordingNumber struct {
	shown []int
	err   error
}

func (r *recordingNumber) ShowNumber(n int) error {
	r.shown = append(r.shown, n)
	return r.err
}

func TestDisplayRender(t *testing.T) {
	port := NewMemoryPort(0)
	mirror := &recordingNumber{}
	d := NewDisplay(port, mirror)

	if err := d.Render(3); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if port.Value(PortB) != 0xC0 {
		t.Errorf("PORTB = 0x%02X, want 0xC0", port.Value(PortB))
	}

	// out of range leaves the port untouched
	if err := d.Render(11); err != nil {
		t.Fatalf("Render(11): %v", err)
	}
	if got := port.History(PortB); len(got) != 1 {
		t.Errorf("PORTB writes = %v, want one", got)
	}
	if len(mirror.shown) != 1 || mirror.shown[0] != 3 {
		t.Errorf("mirror shown %v", mirror.shown)
	}

	mirror.err = errors.New("bus error")
	if err := d.Render(4); err == nil {
		t.Error("mirror error not reported")
	}
}

func TestIndicatorShow(t *testing.T) {
	port := NewMemoryPort(0)
	ind := NewIndicator(port)

	for _, p := range []IndicatorPattern{IndicatorFilling, IndicatorWashing, IndicatorRinsing, IndicatorDrying} {
		if err := ind.Show(p); err != nil {
			t.Fatalf("Show(%v): %v", p, err)
		}
	}
	want := []uint8{0x20, 0x10, 0x08, 0x04}
	got := port.History(PortD)
	if len(got) != len(want) {
		t.Fatalf("PORTD history = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("write %d = 0x%02X, want 0x%02X", i, got[i], want[i])
		}
	}
}

func TestMemoryPortHistoryLimit(t *testing.T) {
	port := NewMemoryPort(2)
	for v := uint8(1); v <= 4; v++ {
		_ = port.WritePort(PortB, v)
	}
	got := port.History(PortB)
	if len(got) != 2 || got[0] != 3 || got[1] != 4 {
		t.Errorf("history = %v, want [3 4]", got)
	}
	if err := port.WritePort(Port(9), 1); err != ErrUnknownPort {
		t.Errorf("got %v, want ErrUnknownPort", err)
	}
}
