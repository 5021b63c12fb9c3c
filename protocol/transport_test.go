package protocol

import (
	"bytes"
	"io"
	"testing"
	"time"
)

func commandFrame(t *testing.T, seq uint8, cmdID uint16, args ...uint32) []byte {
	t.Helper()
	payload := NewScratchOutput()
	EncodeVLQUint(payload, uint32(cmdID))
	for _, a := range args {
		EncodeVLQUint(payload, a)
	}
	frame, err := BuildFrame(seq, payload.Result())
	if err != nil {
		t.Fatalf("BuildFrame: %v", err)
	}
	return frame
}

func TestTransportDispatchesAndAcks(t *testing.T) {
	out := NewScratchOutput()
	var got []uint32
	tr := NewTransport(out, func(cmdID uint16, data *[]byte) error {
		if cmdID != MsgSetLevel {
			t.Errorf("cmdID = %d, want %d", cmdID, MsgSetLevel)
		}
		v, err := DecodeVLQUint(data)
		if err != nil {
			return err
		}
		got = append(got, v)
		return nil
	})

	in := NewSliceInputBuffer(commandFrame(t, MessageDest, MsgSetLevel, 2))
	tr.Receive(in)

	if len(got) != 1 || got[0] != 2 {
		t.Fatalf("handler args = %v, want [2]", got)
	}
	if in.Available() != 0 {
		t.Errorf("%d bytes left unconsumed", in.Available())
	}

	ack, _ := BuildFrame(MessageDest+1, nil)
	if !bytes.Equal(out.Result(), ack) {
		t.Errorf("ack = %x, want %x", out.Result(), ack)
	}
	if tr.Sequence() != MessageDest+1 {
		t.Errorf("sequence = 0x%02x", tr.Sequence())
	}
}

func TestTransportWaitsForPartialFrame(t *testing.T) {
	calls := 0
	tr := NewTransport(NewScratchOutput(), func(uint16, *[]byte) error {
		calls++
		return nil
	})

	frame := commandFrame(t, MessageDest, MsgGetStatus)
	in := NewSliceInputBuffer(frame[:3])
	tr.Receive(in)
	if calls != 0 || in.Available() != 3 {
		t.Fatalf("partial frame: calls=%d available=%d", calls, in.Available())
	}

	tr.Receive(NewSliceInputBuffer(frame))
	if calls != 1 {
		t.Errorf("calls = %d after full frame", calls)
	}
}

func TestTransportResyncsAfterCorruption(t *testing.T) {
	calls := 0
	tr := NewTransport(NewScratchOutput(), func(uint16, *[]byte) error {
		calls++
		return nil
	})

	bad := commandFrame(t, MessageDest, MsgGetStatus)
	bad[2] ^= 0xFF // breaks the CRC
	good := commandFrame(t, MessageDest, MsgGetStatus)

	tr.Receive(NewSliceInputBuffer(append(bad, good...)))
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if !tr.Synchronized() {
		t.Error("transport should be synchronized again")
	}
}

func TestTransportIgnoresRepeatedSequence(t *testing.T) {
	calls := 0
	tr := NewTransport(NewScratchOutput(), func(uint16, *[]byte) error {
		calls++
		return nil
	})

	tr.Receive(NewSliceInputBuffer(commandFrame(t, MessageDest+1, MsgGetStatus)))
	if calls != 0 {
		t.Errorf("out-of-sequence frame dispatched")
	}
}

func TestTransportEncodeFrame(t *testing.T) {
	out := NewScratchOutput()
	tr := NewTransport(out, nil)

	tr.SendCommand(MsgTransition, func(o OutputBuffer) {
		EncodeTransition(o, Transition{From: 1, To: 2, Elapsed: 7})
	})

	var sc scanner
	sc.synced = true
	res, msg, rest := sc.next(out.Result(), false)
	if res != scanFrame || len(rest) != 0 {
		t.Fatalf("encoded frame did not scan: res=%d rest=%d", res, len(rest))
	}
	payload := msg.Payload
	id, _ := DecodeVLQUint(&payload)
	if uint16(id) != MsgTransition {
		t.Fatalf("id = %d", id)
	}
	tt, err := DecodeTransition(&payload)
	if err != nil || tt != (Transition{From: 1, To: 2, Elapsed: 7}) {
		t.Errorf("transition = %+v, %v", tt, err)
	}
}

// pipeConn joins two pipe ends into a serial-port stand-in
type pipeConn struct {
	io.Reader
	io.Writer
	closers []io.Closer
}

func (p pipeConn) Close() error {
	for _, c := range p.closers {
		c.Close()
	}
	return nil
}

func TestHostTransportRoundTrip(t *testing.T) {
	hostToCtrlR, hostToCtrlW := io.Pipe()
	ctrlToHostR, ctrlToHostW := io.Pipe()

	hostPort := pipeConn{Reader: ctrlToHostR, Writer: hostToCtrlW, closers: []io.Closer{ctrlToHostR, hostToCtrlW}}

	out := NewScratchOutput()
	var ctrl *Transport
	ctrl = NewTransport(out, func(cmdID uint16, data *[]byte) error {
		if cmdID == MsgGetStatus {
			ctrl.SendCommand(MsgStatus, func(o OutputBuffer) {
				EncodeStatus(o, Status{State: 3, Level: 2, StartPause: true, Elapsed: 4, Flags: FlagTankFull})
			})
		}
		return nil
	})

	go func() {
		buf := make([]byte, 64)
		fifo := NewFifoBuffer(256)
		for {
			n, err := hostToCtrlR.Read(buf)
			if err != nil {
				return
			}
			fifo.Write(buf[:n])
			ctrl.Receive(fifo)
			pending := append([]byte(nil), out.Result()...)
			out.Reset()
			if _, err := ctrlToHostW.Write(pending); err != nil {
				return
			}
		}
	}()

	host := NewHostTransport(hostPort)
	defer host.Close()

	if err := host.SendCommandWithTimeout(MsgGetStatus, nil, time.Second); err != nil {
		t.Fatalf("SendCommand: %v", err)
	}

	resp, err := host.ReceiveResponse(time.Second)
	if err != nil {
		t.Fatalf("ReceiveResponse: %v", err)
	}
	payload := resp.Payload
	id, _ := DecodeVLQUint(&payload)
	if uint16(id) != MsgStatus {
		t.Fatalf("response id = %d", id)
	}
	st, err := DecodeStatus(&payload)
	if err != nil {
		t.Fatalf("DecodeStatus: %v", err)
	}
	if st.State != 3 || st.Level != 2 || !st.StartPause || st.Elapsed != 4 || st.Flags != FlagTankFull {
		t.Errorf("status = %+v", st)
	}
	if host.Sequence() != MessageDest+1 {
		t.Errorf("host sequence = 0x%02x", host.Sequence())
	}
}
