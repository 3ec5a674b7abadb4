package commandstructure

import (
	"reflect"
	"testing"
)

func passThroughFactory(name string) CommandFactory {
	return func(params map[string]any) (Command, error) {
		return newMockCommand(name), nil
	}
}

func TestCommandRegistry_Register(t *testing.T) {
	registry := NewCommandRegistry()

	if err := registry.Register("TestCommand", passThroughFactory("TestCommand")); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if err := registry.Register("TestCommand", passThroughFactory("TestCommand")); err == nil {
		t.Error("Expected error for duplicate registration")
	}
	if err := registry.Register("", passThroughFactory("")); err == nil {
		t.Error("Expected error for empty name")
	}
	if err := registry.Register("NilFactory", nil); err == nil {
		t.Error("Expected error for nil factory")
	}
}

func TestCommandRegistry_Create(t *testing.T) {
	registry := NewCommandRegistry()
	if err := registry.Register("TestCommand", passThroughFactory("TestCommand")); err != nil {
		t.Fatalf("Failed to register command: %v", err)
	}

	command, err := registry.Create("TestCommand", nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if command.Name() != "TestCommand" {
		t.Errorf("Expected name 'TestCommand', got '%s'", command.Name())
	}

	if _, err := registry.Create("Missing", nil); err == nil {
		t.Error("Expected error for unregistered command")
	}
}

func TestCommandRegistry_Names(t *testing.T) {
	registry := NewCommandRegistry()
	for _, name := range []string{"b", "a", "c"} {
		if err := registry.Register(name, passThroughFactory(name)); err != nil {
			t.Fatalf("Register(%s) error: %v", name, err)
		}
	}

	if !registry.IsRegistered("a") || registry.IsRegistered("z") {
		t.Error("IsRegistered returned unexpected result")
	}
	if got := registry.GetRegisteredNames(); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("Expected sorted names, got %v", got)
	}
}
