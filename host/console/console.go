// Package console reads operator commands for the washer panel and the
// simulator. Lines are split shell-style, so "level 2" and "level '2'" are
// the same command.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"github.com/pkg/errors"

	"washctl/core"
)

// Kind identifies an operator command
type Kind int

const (
	KindNone Kind = iota
	KindToggle
	KindLevel
	KindStatus
	KindHelp
	KindQuit
)

// ErrQuit is returned by Run when the operator asked to leave
var ErrQuit = errors.New("console: quit")

// Command is a parsed operator line
type Command struct {
	Kind  Kind
	Level core.WaterLevel
}

// Handler carries out operator commands
type Handler interface {
	Toggle() error
	SetLevel(level core.WaterLevel) error
	Status() error
}

var aliases = map[string]Kind{
	"toggle": KindToggle,
	"t":      KindToggle,
	"start":  KindToggle,
	"pause":  KindToggle,
	"level":  KindLevel,
	"l":      KindLevel,
	"status": KindStatus,
	"s":      KindStatus,
	"help":   KindHelp,
	"?":      KindHelp,
	"quit":   KindQuit,
	"exit":   KindQuit,
	"q":      KindQuit,
}

// Usage lists the accepted commands
const Usage = `commands:
  toggle        press the start/pause button
  level N       set the water selector (0 none, 1 low, 2 medium, 3 high)
  status        show the controller state
  quit          leave`

// Parse parses one operator line. Empty lines and comments give KindNone.
func Parse(line string) (Command, error) {
	words, err := shlex.Split(line)
	if err != nil {
		return Command{}, errors.Wrap(err, "console: split")
	}
	if len(words) == 0 {
		return Command{Kind: KindNone}, nil
	}

	kind, ok := aliases[strings.ToLower(words[0])]
	if !ok {
		return Command{}, errors.Errorf("console: unknown command %q", words[0])
	}

	switch kind {
	case KindLevel:
		if len(words) != 2 {
			return Command{}, errors.New("console: level takes one argument")
		}
		n, err := strconv.Atoi(words[1])
		if err != nil || n < 0 || n > int(core.LevelHigh) {
			return Command{}, errors.Errorf("console: bad level %q", words[1])
		}
		return Command{Kind: kind, Level: core.WaterLevel(n)}, nil
	default:
		if len(words) != 1 {
			return Command{}, errors.Errorf("console: %s takes no arguments", words[0])
		}
		return Command{Kind: kind}, nil
	}
}

// Console feeds operator lines to a Handler
type Console struct {
	handler Handler
	out     io.Writer
}

// New creates a console writing prompts and errors to out
func New(handler Handler, out io.Writer) *Console {
	return &Console{handler: handler, out: out}
}

// Exec parses and executes one line
func (c *Console) Exec(line string) error {
	cmd, err := Parse(line)
	if err != nil {
		return err
	}

	switch cmd.Kind {
	case KindToggle:
		return c.handler.Toggle()
	case KindLevel:
		return c.handler.SetLevel(cmd.Level)
	case KindStatus:
		return c.handler.Status()
	case KindHelp:
		_, err := fmt.Fprintln(c.out, Usage)
		return err
	case KindQuit:
		return ErrQuit
	}
	return nil
}

// Run executes lines from r until EOF, quit or ctx is done. Command errors
// are reported on out and do not stop the console.
func (c *Console) Run(ctx context.Context, r io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	readErr := make(chan error, 1)

	go func() {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			return err
		case line := <-lines:
			err := c.Exec(line)
			if err == ErrQuit {
				return err
			}
			if err != nil {
				fmt.Fprintln(c.out, err)
			}
		}
	}
}

// Events turns console commands into Input Latch events
type Events struct {
	C chan core.InputEvent

	// OnStatus handles the status command
	OnStatus func() error
}

// NewEvents creates an event handler with a small buffer
func NewEvents(onStatus func() error) *Events {
	return &Events{C: make(chan core.InputEvent, 8), OnStatus: onStatus}
}

func (e *Events) Toggle() error {
	e.C <- core.InputEvent{Kind: core.EventStartPause}
	return nil
}

func (e *Events) SetLevel(level core.WaterLevel) error {
	e.C <- core.InputEvent{Kind: core.EventSelector, Lines: LinesFor(level)}
	return nil
}

func (e *Events) Status() error {
	if e.OnStatus == nil {
		return nil
	}
	return e.OnStatus()
}

// LinesFor returns selector lines that encode level
func LinesFor(level core.WaterLevel) core.SelectorLines {
	switch level {
	case core.LevelLow:
		return core.SelectorLines{A: true}
	case core.LevelMedium:
		return core.SelectorLines{B: true}
	case core.LevelHigh:
		return core.SelectorLines{C: true}
	default:
		return core.SelectorLines{}
	}
}
