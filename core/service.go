package core

import (
	"context"
	"io"
	"sync"

	"washctl/protocol"
)

// StatusSource provides the controller status reported by get_status
type StatusSource interface {
	Status() protocol.Status
}

// Service is the controller end of the service link. Remote commands feed
// the same InputLatch as the physical inputs; get_status and transition
// messages report the control loop back to the host.
type Service struct {
	mu        sync.Mutex
	registry  *CommandRegistry
	latch     *InputLatch
	status    StatusSource
	transport *protocol.Transport
	in        *protocol.FifoBuffer
	out       *protocol.ScratchOutput
	w         io.Writer
	writeErr  error
}

// NewService creates a service link writing its replies to w
func NewService(latch *InputLatch, status StatusSource, w io.Writer) *Service {
	s := &Service{
		registry: NewCommandRegistry(),
		latch:    latch,
		status:   status,
		in:       protocol.NewFifoBuffer(256),
		out:      protocol.NewScratchOutput(),
		w:        w,
	}

	// registration order defines the wire IDs in protocol/messages.go
	s.registry.Register("toggle_start_pause", "", s.handleToggleStartPause)
	s.registry.Register("set_water_level", "level=%c", s.handleSetWaterLevel)
	s.registry.Register("get_status", "", s.handleGetStatus)
	s.registry.Register("status", "state=%c pending=%c resume=%c level=%c start=%c elapsed=%u flags=%c", nil)
	s.registry.Register("transition", "from=%c to=%c elapsed=%u", nil)

	s.transport = protocol.NewTransport(s.out, func(cmdID uint16, data *[]byte) error {
		return s.registry.Dispatch(cmdID, data)
	})
	s.transport.SetFlushCallback(s.flushLocked)
	s.transport.SetResetCallback(func() {
		s.in.Reset()
	})

	return s
}

// Registry returns the command registry
func (s *Service) Registry() *CommandRegistry {
	return s.registry
}

// Feed processes received bytes and writes any replies
func (s *Service) Feed(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(data) > 0 {
		n := s.in.Write(data)
		data = data[n:]
		s.transport.Receive(s.in)
		if n == 0 {
			// receive buffer full without a valid frame
			s.in.Reset()
		}
	}
	s.flushLocked()

	err := s.writeErr
	s.writeErr = nil
	return err
}

// Serve reads from r until EOF, a read error or ctx is done. Closing r is
// the way to unblock a pending read.
func (s *Service) Serve(ctx context.Context, r io.Reader) error {
	buf := make([]byte, 64)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.Read(buf)
		if n > 0 {
			if ferr := s.Feed(buf[:n]); ferr != nil {
				return ferr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// SendTransition pushes a transition message to the host
func (s *Service) SendTransition(tr protocol.Transition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transport.SendCommand(protocol.MsgTransition, func(o protocol.OutputBuffer) {
		protocol.EncodeTransition(o, tr)
	})
	s.flushLocked()

	err := s.writeErr
	s.writeErr = nil
	return err
}

// flushLocked writes pending output. Must be called with s.mu held.
func (s *Service) flushLocked() {
	pending := s.out.Result()
	if len(pending) == 0 {
		return
	}
	if _, err := s.w.Write(pending); err != nil && s.writeErr == nil {
		s.writeErr = err
	}
	s.out.Reset()
}

func (s *Service) handleToggleStartPause(data *[]byte) error {
	s.latch.ToggleStartPause()
	return nil
}

func (s *Service) handleSetWaterLevel(data *[]byte) error {
	v, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	level := LevelNone
	if v <= uint32(LevelHigh) {
		level = WaterLevel(v)
	}
	s.latch.SetLevel(level)
	return nil
}

func (s *Service) handleGetStatus(data *[]byte) error {
	st := s.status.Status()
	s.transport.SendCommand(protocol.MsgStatus, func(o protocol.OutputBuffer) {
		protocol.EncodeStatus(o, st)
	})
	return nil
}
