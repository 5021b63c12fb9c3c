package core

import (
	"errors"
	"testing"

	"washctl/protocol"
)

func TestCommandRegistry(t *testing.T) {
	registry := NewCommandRegistry()

	var called bool
	id := registry.Register("toggle", "", func(data *[]byte) error {
		called = true
		return nil
	})
	if id != 0 {
		t.Errorf("first command ID = %d, want 0", id)
	}

	if again := registry.Register("toggle", "", nil); again != id {
		t.Errorf("re-registering returned %d, want %d", again, id)
	}

	var data []byte
	if err := registry.Dispatch(id, &data); err != nil {
		t.Errorf("Dispatch failed: %v", err)
	}
	if !called {
		t.Error("handler was not called")
	}

	err := registry.Dispatch(999, &data)
	if !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("Dispatch(999) = %v, want ErrUnknownCommand", err)
	}
	if err != nil && err.Error() != "unknown command ID: 999" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestCommandRegistryResponsesNotDispatched(t *testing.T) {
	registry := NewCommandRegistry()
	id := registry.Register("status", "state=%c", nil)

	var data []byte
	if err := registry.Dispatch(id, &data); err == nil {
		t.Error("dispatching a response should fail")
	}
}

func TestCommandWithArguments(t *testing.T) {
	registry := NewCommandRegistry()

	var received uint32
	id := registry.Register("set_value", "value=%u", func(data *[]byte) error {
		v, err := protocol.DecodeVLQUint(data)
		received = v
		return err
	})

	out := protocol.NewScratchOutput()
	protocol.EncodeVLQUint(out, 12345)
	data := out.Result()

	if err := registry.Dispatch(id, &data); err != nil {
		t.Errorf("Dispatch failed: %v", err)
	}
	if received != 12345 {
		t.Errorf("received %d, want 12345", received)
	}
}

func TestCommandRegistryDictionary(t *testing.T) {
	registry := NewCommandRegistry()
	registry.Register("get_status", "", func(*[]byte) error { return nil })
	registry.Register("set_water_level", "level=%c", func(*[]byte) error { return nil })

	want := "get_status\nset_water_level level=%c\n"
	if got := registry.Dictionary(); got != want {
		t.Errorf("Dictionary() = %q, want %q", got, want)
	}
}
