package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"washctl/cycle"
)

type message struct {
	subject string
	event   Event
}

type fakeConn struct {
	mu     sync.Mutex
	msgs   chan message
	closed bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{msgs: make(chan message, 16)}
}

func (c *fakeConn) Publish(subject string, data []byte) error {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return err
	}
	c.msgs <- message{subject, e}
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) next(t *testing.T) message {
	t.Helper()
	select {
	case m := <-c.msgs:
		return m
	case <-time.After(time.Second):
		t.Fatal("no message published")
		return message{}
	}
}

func TestPublishesCycleEvents(t *testing.T) {
	conn := newFakeConn()
	p := New(&Cfg{
		URL:     "nats://test",
		Subject: "washctl.cycle",
		Dial:    func(string) (Conn, error) { return conn, nil },
	})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, p.Start(ctx))

	p.Transition(cycle.Config, cycle.Fill, cycle.Context{})
	p.PhaseDone(cycle.Fill, 1)
	p.Transition(cycle.Dry, cycle.Idle, cycle.Context{})
	p.Transition(cycle.Idle, cycle.Config, cycle.Context{})

	start := conn.next(t)
	assert.Equal(t, "washctl.cycle.transition", start.subject)
	assert.Equal(t, cycle.Config, start.event.From)
	assert.Equal(t, cycle.Fill, start.event.To)
	assert.NotEmpty(t, start.event.EventID)
	assert.NotEmpty(t, start.event.CycleID)

	done := conn.next(t)
	assert.Equal(t, "washctl.cycle.phase_done", done.subject)
	assert.Equal(t, start.event.CycleID, done.event.CycleID)
	assert.EqualValues(t, 1, done.event.Elapsed)
	assert.NotEqual(t, start.event.EventID, done.event.EventID)

	finish := conn.next(t)
	assert.Equal(t, start.event.CycleID, finish.event.CycleID)

	// outside a cycle there is no cycle id
	idle := conn.next(t)
	assert.Empty(t, idle.event.CycleID)

	cancel()
	p.Wait()
	conn.mu.Lock()
	assert.True(t, conn.closed)
	conn.mu.Unlock()
}

func TestEventJSONRoundTrip(t *testing.T) {
	in := Event{EventID: "e1", CycleID: "c1", Type: EventTransition, From: cycle.Config, To: cycle.Fill, Elapsed: 0}
	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"from":"config"`)

	var out Event
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, in.From, out.From)
	assert.Equal(t, in.To, out.To)
	assert.Equal(t, in.CycleID, out.CycleID)
}

func TestConnectRetries(t *testing.T) {
	conn := newFakeConn()
	attempts := 0
	p := New(&Cfg{
		RetryAttempts: 3,
		RetryTimeout:  time.Millisecond,
		Dial: func(string) (Conn, error) {
			attempts++
			if attempts < 3 {
				return nil, errors.New("refused")
			}
			return conn, nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, p.Start(ctx))
	assert.Equal(t, 3, attempts)
}

func TestConnectGivesUp(t *testing.T) {
	p := New(&Cfg{
		URL:           "nats://nowhere",
		RetryAttempts: 1,
		Dial:          func(string) (Conn, error) { return nil, errors.New("refused") },
	})
	err := p.Start(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "nats://nowhere")
}

func TestFullQueueDrops(t *testing.T) {
	p := New(&Cfg{Buffer: 1})
	p.Transition(cycle.Idle, cycle.Config, cycle.Context{})
	p.Transition(cycle.Config, cycle.Fill, cycle.Context{})
	assert.EqualValues(t, 1, p.Dropped())
}
