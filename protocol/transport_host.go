package protocol

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// ResponseHandler handles a message sent by the controller
type ResponseHandler func(cmdID uint16, data *[]byte) error

// HostTransport is the host side of the service link: it sends commands,
// waits for their acks and delivers controller messages.
type HostTransport struct {
	port io.ReadWriteCloser

	currentSeq atomic.Uint32

	scan  scanner
	input *FifoBuffer

	ackChan      chan *Message
	responseChan chan *Message

	handlerMu       sync.RWMutex
	responseHandler ResponseHandler

	writeMu sync.Mutex
	readMu  sync.Mutex

	stopOnce sync.Once
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewHostTransport starts a host transport reading from port
func NewHostTransport(port io.ReadWriteCloser) *HostTransport {
	t := &HostTransport{
		port:         port,
		scan:         scanner{synced: true},
		input:        NewFifoBuffer(512),
		ackChan:      make(chan *Message, 1),
		responseChan: make(chan *Message, 16),
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
	t.currentSeq.Store(MessageDest)

	go t.readLoop()

	return t
}

// SendCommand sends a command and waits up to two seconds for its ack
func (t *HostTransport) SendCommand(cmdID uint16, args func(output OutputBuffer)) error {
	return t.SendCommandWithTimeout(cmdID, args, 2*time.Second)
}

// SendCommandWithTimeout sends a command and waits for its ack
func (t *HostTransport) SendCommandWithTimeout(cmdID uint16, args func(output OutputBuffer), timeout time.Duration) error {
	payload := NewScratchOutput()
	EncodeVLQUint(payload, uint32(cmdID))
	if args != nil {
		args(payload)
	}

	msg, err := BuildFrame(uint8(t.currentSeq.Load()), payload.Result())
	if err != nil {
		return fmt.Errorf("build command %d: %w", cmdID, err)
	}
	if err := t.writeMessage(msg); err != nil {
		return fmt.Errorf("write command %d: %w", cmdID, err)
	}
	if err := t.waitForAck(timeout); err != nil {
		return fmt.Errorf("command %d: %w", cmdID, err)
	}
	return nil
}

func (t *HostTransport) writeMessage(msg []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	n, err := t.port.Write(msg)
	if err != nil {
		return err
	}
	if n != len(msg) {
		return fmt.Errorf("incomplete write: %d/%d bytes", n, len(msg))
	}
	return nil
}

// waitForAck waits for the ack of the frame just sent. The ack carries the
// next sequence the controller expects.
func (t *HostTransport) waitForAck(timeout time.Duration) error {
	sent := uint8(t.currentSeq.Load())
	want := NextSequence(sent)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ack := <-t.ackChan:
			if ack.Sequence != want {
				// stale ack or NAK for an earlier frame
				continue
			}
			t.currentSeq.Store(uint32(want))
			return nil
		case <-timer.C:
			return fmt.Errorf("ack timeout after %v", timeout)
		case <-t.stopChan:
			return fmt.Errorf("transport stopped")
		}
	}
}

// ReceiveResponse returns the next controller message
func (t *HostTransport) ReceiveResponse(timeout time.Duration) (*Message, error) {
	select {
	case resp := <-t.responseChan:
		return resp, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("response timeout after %v", timeout)
	case <-t.stopChan:
		return nil, fmt.Errorf("transport stopped")
	}
}

// SetResponseHandler sets a callback invoked for every controller message
func (t *HostTransport) SetResponseHandler(handler ResponseHandler) {
	t.handlerMu.Lock()
	t.responseHandler = handler
	t.handlerMu.Unlock()
}

func (t *HostTransport) readLoop() {
	defer close(t.doneChan)

	buf := make([]byte, 256)
	for {
		select {
		case <-t.stopChan:
			return
		default:
		}

		n, err := t.port.Read(buf)
		if n > 0 {
			t.feed(buf[:n])
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// feed appends received bytes and dispatches every complete frame
func (t *HostTransport) feed(b []byte) {
	t.readMu.Lock()
	defer t.readMu.Unlock()

	for len(b) > 0 {
		n := t.input.Write(b)
		b = b[n:]
		t.processMessages()
		if n == 0 && len(b) > 0 {
			// buffer full of garbage; drop it
			t.input.Reset()
		}
	}
}

func (t *HostTransport) processMessages() {
	data := t.input.Data()
	before := len(data)

	for len(data) > 0 {
		res, msg, rest := t.scan.next(data, false)
		data = rest
		if res == scanNeedMore {
			break
		}
		if res == scanFrame {
			t.dispatchMessage(msg)
		}
	}

	if consumed := before - len(data); consumed > 0 {
		t.input.Pop(consumed)
	}
}

// dispatchMessage routes acks and controller messages to their channels
func (t *HostTransport) dispatchMessage(msg *Message) {
	if len(msg.Payload) == 0 {
		select {
		case t.ackChan <- msg:
		default:
			// replace the unread ack with the newer one
			select {
			case <-t.ackChan:
			default:
			}
			t.ackChan <- msg
		}
		return
	}

	t.handlerMu.RLock()
	handler := t.responseHandler
	t.handlerMu.RUnlock()
	if handler != nil {
		payload := append([]byte(nil), msg.Payload...)
		if cmdID, err := DecodeVLQUint(&payload); err == nil {
			_ = handler(uint16(cmdID), &payload)
		}
	}

	select {
	case t.responseChan <- msg:
	default:
		select {
		case <-t.responseChan:
		default:
		}
		t.responseChan <- msg
	}
}

// Close stops the reader and closes the port
func (t *HostTransport) Close() error {
	var err error
	t.stopOnce.Do(func() {
		close(t.stopChan)
		if t.port != nil {
			err = t.port.Close()
		}
		<-t.doneChan
	})
	return err
}

// Sequence returns the sequence of the next command to send
func (t *HostTransport) Sequence() uint8 {
	return uint8(t.currentSeq.Load())
}
