package core

import (
	"bytes"
	"testing"

	"washctl/protocol"
)

type fixedStatus protocol.Status

func (f fixedStatus) Status() protocol.Status { return protocol.Status(f) }

func frame(t *testing.T, seq uint8, cmdID uint16, args ...uint32) []byte {
	t.Helper()
	out := protocol.NewScratchOutput()
	protocol.EncodeVLQUint(out, uint32(cmdID))
	for _, a := range args {
		protocol.EncodeVLQUint(out, a)
	}
	f, err := protocol.BuildFrame(seq, out.Result())
	if err != nil {
		t.Fatal(err)
	}
	return f
}

// decodeFrames splits controller output into payloads, dropping acks
func decodeFrames(t *testing.T, b []byte) [][]byte {
	t.Helper()
	var payloads [][]byte
	for len(b) > 0 {
		n := int(b[0])
		if n < protocol.MessageLengthMin || n > len(b) {
			t.Fatalf("bad frame length %d in %x", n, b)
		}
		if p := b[protocol.MessageHeaderSize : n-protocol.MessageTrailerSize]; len(p) > 0 {
			payloads = append(payloads, append([]byte(nil), p...))
		}
		b = b[n:]
	}
	return payloads
}

func TestServiceRegistryMatchesWireIDs(t *testing.T) {
	s := NewService(NewInputLatch(), fixedStatus{}, &bytes.Buffer{})
	for id, name := range protocol.MessageNames {
		got, ok := s.Registry().Lookup(name)
		if !ok || got != id {
			t.Errorf("%s registered as %d,%v want %d", name, got, ok, id)
		}
	}
}

func TestServiceDrivesInputLatch(t *testing.T) {
	latch := NewInputLatch()
	var w bytes.Buffer
	s := NewService(latch, fixedStatus{}, &w)

	in := append(frame(t, 0x10, protocol.MsgSetLevel, 3), frame(t, 0x11, protocol.MsgToggleStartPause)...)
	if err := s.Feed(in); err != nil {
		t.Fatalf("Feed: %v", err)
	}

	if got := latch.Snapshot(); got != (Inputs{StartPause: true, Level: LevelHigh}) {
		t.Errorf("latch = %+v", got)
	}

	ack1, _ := protocol.BuildFrame(0x11, nil)
	ack2, _ := protocol.BuildFrame(0x12, nil)
	if !bytes.Equal(w.Bytes(), append(ack1, ack2...)) {
		t.Errorf("output = %x", w.Bytes())
	}

	// out-of-range level clears the selection
	w.Reset()
	if err := s.Feed(frame(t, 0x12, protocol.MsgSetLevel, 9)); err != nil {
		t.Fatal(err)
	}
	if latch.Level() != LevelNone {
		t.Errorf("level = %v", latch.Level())
	}
}

func TestServiceGetStatus(t *testing.T) {
	want := protocol.Status{State: 2, Pending: 2, Level: 1, StartPause: true, Elapsed: 1}
	var w bytes.Buffer
	s := NewService(NewInputLatch(), fixedStatus(want), &w)

	if err := s.Feed(frame(t, 0x10, protocol.MsgGetStatus)); err != nil {
		t.Fatal(err)
	}

	payloads := decodeFrames(t, w.Bytes())
	if len(payloads) != 1 {
		t.Fatalf("got %d payloads", len(payloads))
	}
	p := payloads[0]
	id, _ := protocol.DecodeVLQUint(&p)
	if uint16(id) != protocol.MsgStatus {
		t.Fatalf("id = %d", id)
	}
	got, err := protocol.DecodeStatus(&p)
	if err != nil || got != want {
		t.Errorf("status = %+v, %v", got, err)
	}
}

func TestServiceSendTransition(t *testing.T) {
	var w bytes.Buffer
	s := NewService(NewInputLatch(), fixedStatus{}, &w)

	if err := s.SendTransition(protocol.Transition{From: 0, To: 1}); err != nil {
		t.Fatal(err)
	}
	payloads := decodeFrames(t, w.Bytes())
	if len(payloads) != 1 {
		t.Fatalf("got %d payloads", len(payloads))
	}
	p := payloads[0]
	id, _ := protocol.DecodeVLQUint(&p)
	tr, err := protocol.DecodeTransition(&p)
	if uint16(id) != protocol.MsgTransition || err != nil || tr.To != 1 {
		t.Errorf("id=%d transition=%+v err=%v", id, tr, err)
	}
}

func TestServiceServe(t *testing.T) {
	latch := NewInputLatch()
	s := NewService(latch, fixedStatus{}, &bytes.Buffer{})

	r := bytes.NewReader(frame(t, 0x10, protocol.MsgToggleStartPause))
	if err := s.Serve(t.Context(), r); err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if !latch.StartPause() {
		t.Error("toggle not applied")
	}
}
