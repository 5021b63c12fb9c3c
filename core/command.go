package core

import (
	"errors"
	"sync"
)

var ErrUnknownCommand = errors.New("unknown command")

// CommandHandler handles one service-link command. The handler decodes its
// own arguments from data.
type CommandHandler func(data *[]byte) error

// Command is a registered service-link command or response
type Command struct {
	ID      uint16
	Name    string
	Format  string // argument format, e.g. "level=%c"
	Handler CommandHandler
}

// CommandRegistry assigns sequential IDs to commands in registration order
type CommandRegistry struct {
	mu       sync.RWMutex
	commands map[uint16]*Command
	nameToID map[string]uint16
	nextID   uint16
}

// NewCommandRegistry creates an empty registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[uint16]*Command),
		nameToID: make(map[string]uint16),
	}
}

// Register adds a command and returns its ID. Registering a name twice
// returns the existing ID. A nil handler registers a response.
func (r *CommandRegistry) Register(name string, format string, handler CommandHandler) uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, exists := r.nameToID[name]; exists {
		return id
	}

	id := r.nextID
	r.nextID++

	r.commands[id] = &Command{
		ID:      id,
		Name:    name,
		Format:  format,
		Handler: handler,
	}
	r.nameToID[name] = id

	return id
}

// GetCommand retrieves a command by ID
func (r *CommandRegistry) GetCommand(id uint16) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[id]
	return cmd, ok
}

// Lookup returns the ID registered for name
func (r *CommandRegistry) Lookup(name string) (uint16, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.nameToID[name]
	return id, ok
}

// Count returns the number of registered commands and responses
func (r *CommandRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Dispatch calls the handler registered for cmdID. Responses cannot be dispatched.
func (r *CommandRegistry) Dispatch(cmdID uint16, data *[]byte) error {
	cmd, ok := r.GetCommand(cmdID)
	if !ok || cmd.Handler == nil {
		return unknownCommandError(cmdID)
	}
	return cmd.Handler(data)
}

// unknownCommandError matches ErrUnknownCommand and keeps the offending ID
type unknownCommandError uint16

func (e unknownCommandError) Error() string {
	return "unknown command ID: " + itoa(int(e))
}

func (e unknownCommandError) Is(target error) bool {
	return target == ErrUnknownCommand
}

// Dictionary lists "name format" lines in ID order
func (r *CommandRegistry) Dictionary() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dict := ""
	for i := uint16(0); i < r.nextID; i++ {
		cmd, ok := r.commands[i]
		if !ok {
			continue
		}
		dict += cmd.Name
		if cmd.Format != "" {
			dict += " " + cmd.Format
		}
		dict += "\n"
	}
	return dict
}
