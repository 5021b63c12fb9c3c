// Package telemetry publishes control-loop events on a NATS bus.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/go-nats"
	"github.com/pkg/errors"
	"github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"

	"washctl/cycle"
	wlog "washctl/log"
)

// Event types, also the last token of the subject.
const (
	EventTransition = "transition"
	EventPhaseDone  = "phase_done"
)

// Event is the JSON payload of every published message.
type Event struct {
	EventID string      `json:"event_id"`
	CycleID string      `json:"cycle_id,omitempty"`
	Type    string      `json:"type"`
	From    cycle.State `json:"from"`
	To      cycle.State `json:"to"`
	Elapsed uint32      `json:"elapsed"`
	Time    time.Time   `json:"time"`
}

// Conn is the part of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
	Close()
}

// Dialer opens a connection to url.
type Dialer func(url string) (Conn, error)

// DialNATS connects to a NATS server.
func DialNATS(url string) (Conn, error) {
	nc, err := nats.Connect(url, nats.Name("washctl"))
	if err != nil {
		return nil, err
	}
	return nc, nil
}

type (
	Cfg struct {
		URL           string
		Subject       string
		Log           logrus.FieldLogger
		RetryTimeout  time.Duration
		RetryAttempts uint32
		// Buffer is the number of events queued while publishing; 0 selects 64
		Buffer int
		// Dial defaults to DialNATS
		Dial Dialer
	}

	// Publisher is a cycle.Observer. Events are queued and published from
	// its own goroutine; when the queue is full they are dropped.
	Publisher struct {
		url           string
		subject       string
		log           logrus.FieldLogger
		retryTimeout  time.Duration
		retryAttempts uint32
		dial          Dialer
		now           func() time.Time

		events  chan Event
		dropped atomic.Uint64
		wg      sync.WaitGroup

		mu      sync.Mutex
		cycleID string
	}
)

// New creates a publisher. Start must be called before events are sent.
func New(c *Cfg) *Publisher {
	buffer := c.Buffer
	if buffer <= 0 {
		buffer = 64
	}
	p := &Publisher{
		url:           c.URL,
		subject:       c.Subject,
		log:           c.Log,
		retryTimeout:  c.RetryTimeout,
		retryAttempts: c.RetryAttempts,
		dial:          c.Dial,
		now:           time.Now,
		events:        make(chan Event, buffer),
	}
	if p.dial == nil {
		p.dial = DialNATS
	}
	if p.log == nil {
		l := logrus.New()
		l.Out = io.Discard
		p.log = l
	}
	return p
}

// Start connects, retrying up to RetryAttempts times, and starts publishing
// queued events until ctx is done.
func (p *Publisher) Start(ctx context.Context) error {
	conn, err := p.connect(ctx)
	if err != nil {
		return err
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer conn.Close()
		p.publishLoop(ctx, conn)
	}()
	return nil
}

// Wait blocks until the publishing goroutine has stopped.
func (p *Publisher) Wait() {
	p.wg.Wait()
}

// Dropped returns the number of events lost to a full queue.
func (p *Publisher) Dropped() uint64 {
	return p.dropped.Load()
}

func (p *Publisher) connect(ctx context.Context) (Conn, error) {
	var retryAttempt uint32
	for {
		conn, err := p.dial(p.url)
		if err == nil {
			return conn, nil
		}
		if retryAttempt >= p.retryAttempts {
			return nil, errors.Wrapf(err, "telemetry: connect %s", p.url)
		}
		p.log.WithFields(logrus.Fields{
			"func":  "connect",
			"event": wlog.EventPublishFailed,
		}).Errorf("nats connectivity status is DISCONNECTED: %s", err)
		retryAttempt++

		wait := p.retryTimeout
		if wait > 0 {
			wait = time.Duration(rand.Int63n(int64(wait))) + time.Millisecond
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (p *Publisher) publishLoop(ctx context.Context, conn Conn) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-p.events:
			if err := p.publish(conn, e); err != nil {
				p.log.WithFields(logrus.Fields{
					"func":  "publish",
					"event": wlog.EventPublishFailed,
				}).Error(err)
			}
		}
	}
}

func (p *Publisher) publish(conn Conn, e Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "Marshal()")
	}
	topic := fmt.Sprintf("%s.%s", p.subject, e.Type)
	return errors.Wrapf(conn.Publish(topic, b), "Publish(%s)", topic)
}

func (p *Publisher) enqueue(e Event) {
	e.EventID = uuid.NewV4().String()
	e.Time = p.now()
	select {
	case p.events <- e:
	default:
		p.dropped.Add(1)
	}
}

func (p *Publisher) Transition(from, to cycle.State, c cycle.Context) {
	p.mu.Lock()
	if from == cycle.Config && to == cycle.Fill {
		p.cycleID = uuid.NewV4().String()
	}
	id := p.cycleID
	if from == cycle.Dry && to == cycle.Idle {
		p.cycleID = ""
	}
	p.mu.Unlock()

	p.enqueue(Event{
		CycleID: id,
		Type:    EventTransition,
		From:    from,
		To:      to,
		Elapsed: c.ElapsedSeconds,
	})
}

func (p *Publisher) Second(cycle.State, uint32) {}

func (p *Publisher) PhaseDone(phase cycle.State, elapsed uint32) {
	p.mu.Lock()
	id := p.cycleID
	p.mu.Unlock()

	p.enqueue(Event{
		CycleID: id,
		Type:    EventPhaseDone,
		From:    phase,
		To:      phase,
		Elapsed: elapsed,
	})
}
