package protocol

import "sync/atomic"

// CommandHandler handles one decoded command. The handler decodes its own
// arguments from data.
type CommandHandler func(cmdID uint16, data *[]byte) error

// Transport is the controller side of the service link. It validates
// incoming frames, dispatches their commands in order, acknowledges every
// frame and encodes outgoing messages into the output buffer.
type Transport struct {
	scan          scanner
	nextSequence  atomic.Uint32
	output        OutputBuffer
	handler       CommandHandler
	resetCallback func()
	flushCallback func()
}

// NewTransport creates a controller-side transport
func NewTransport(output OutputBuffer, handler CommandHandler) *Transport {
	t := &Transport{
		scan:    scanner{synced: true},
		output:  output,
		handler: handler,
	}
	t.nextSequence.Store(MessageDest)
	return t
}

// Receive consumes complete frames from input. Partial frames are left in
// the buffer for the next call.
func (t *Transport) Receive(input InputBuffer) {
	data := input.Data()
	before := len(data)

	for len(data) > 0 {
		res, msg, rest := t.scan.next(data, true)
		data = rest
		if res == scanNeedMore {
			break
		}
		if res == scanResync {
			t.encodeAckNak()
			continue
		}

		expected := uint8(t.nextSequence.Load())
		if msg.Sequence == MessageDest && expected != MessageDest {
			// host restarted its sequence
			t.nextSequence.Store(MessageDest)
			expected = MessageDest
			if t.resetCallback != nil {
				t.resetCallback()
			}
		}
		if msg.Sequence == expected {
			t.nextSequence.Store(uint32(NextSequence(expected)))
			_ = t.parseFrame(msg.Payload)
		}
		// a mismatched sequence gets the ack too; it acts as a NAK
		t.encodeAckNak()
	}

	if consumed := before - len(data); consumed > 0 {
		input.Pop(consumed)
	}
}

// parseFrame dispatches every command in a frame
func (t *Transport) parseFrame(frame []byte) error {
	defer func() {
		if r := recover(); r != nil {
			t.scan.synced = false
		}
	}()

	for len(frame) > 0 {
		cmdID, err := DecodeVLQUint(&frame)
		if err != nil {
			t.scan.synced = false
			return err
		}
		if t.handler == nil {
			continue
		}
		if err := t.handler(uint16(cmdID), &frame); err != nil {
			return err
		}
	}
	return nil
}

// encodeAckNak emits an empty frame carrying the next expected sequence
func (t *Transport) encodeAckNak() {
	ack, _ := BuildFrame(uint8(t.nextSequence.Load()), nil)
	t.output.Output(ack)
	if t.flushCallback != nil {
		t.flushCallback()
	}
}

// EncodeFrame writes one frame whose payload is produced by frameData
func (t *Transport) EncodeFrame(frameData func(output OutputBuffer)) {
	start := t.output.CurPosition()
	t.output.Output([]byte{0, uint8(t.nextSequence.Load())})

	frameData(t.output)

	t.output.Update(start, uint8(len(t.output.DataSince(start))+MessageTrailerSize))
	crc := CRC16(t.output.DataSince(start))
	t.output.Output([]byte{uint8(crc >> 8), uint8(crc), MessageValueSync})
}

// SendCommand encodes a message with the given ID and arguments
func (t *Transport) SendCommand(cmdID uint16, args func(output OutputBuffer)) {
	t.EncodeFrame(func(output OutputBuffer) {
		EncodeVLQUint(output, uint32(cmdID))
		if args != nil {
			args(output)
		}
	})
}

// Reset returns the transport to its power-on state
func (t *Transport) Reset() {
	t.scan.synced = true
	t.nextSequence.Store(MessageDest)
	if t.resetCallback != nil {
		t.resetCallback()
	}
}

// SetResetCallback sets the function called when the host restarts its sequence
func (t *Transport) SetResetCallback(callback func()) {
	t.resetCallback = callback
}

// SetFlushCallback sets the function called right after an ack is encoded
func (t *Transport) SetFlushCallback(callback func()) {
	t.flushCallback = callback
}

// Synchronized reports whether the receiver is aligned on frame boundaries
func (t *Transport) Synchronized() bool {
	return t.scan.synced
}

// Sequence returns the next expected host sequence
func (t *Transport) Sequence() uint8 {
	return uint8(t.nextSequence.Load())
}
