package commandstructure

import (
	"fmt"
	"image"
	"log/slog"
	"time"
)

// CommandInvoker executes a sequence of commands on a decoded image
type CommandInvoker struct {
	commands []Command
}

// NewCommandInvoker creates a new command invoker
func NewCommandInvoker(commands []Command) *CommandInvoker {
	return &CommandInvoker{
		commands: commands,
	}
}

// Execute applies all commands in sequence
func (i *CommandInvoker) Execute(img image.Image) (image.Image, error) {
	if len(i.commands) == 0 {
		return img, nil
	}

	start := time.Now()
	current := img

	for idx, command := range i.commands {
		commandStart := time.Now()
		bounds := current.Bounds()

		processed, err := command.Execute(current)
		if err != nil {
			slog.Error("preprocessing command failed",
				"index", idx,
				"command_name", command.Name(),
				"error", err)
			return nil, fmt.Errorf("command %s (index %d) failed: %w", command.Name(), idx, err)
		}

		slog.Debug("preprocessing command completed",
			"index", idx,
			"command_name", command.Name(),
			"duration_ms", time.Since(commandStart).Milliseconds(),
			"input_width", bounds.Dx(),
			"input_height", bounds.Dy(),
			"output_width", processed.Bounds().Dx(),
			"output_height", processed.Bounds().Dy())

		current = processed
	}

	slog.Debug("preprocessing pipeline completed",
		"total_duration_ms", time.Since(start).Milliseconds(),
		"command_count", len(i.commands))

	return current, nil
}

// BuildCommands creates commands for the given configurations from DefaultRegistry
func BuildCommands(configs []CommandConfig) ([]Command, error) {
	commands := make([]Command, 0, len(configs))
	for idx, cfg := range configs {
		command, err := DefaultRegistry.Create(cfg.Name, cfg.Params)
		if err != nil {
			return nil, fmt.Errorf("command at index %d: %w", idx, err)
		}
		commands = append(commands, command)
	}
	return commands, nil
}

// ExecuteCommands builds the configured commands and applies them in order
func ExecuteCommands(img image.Image, configs []CommandConfig) (image.Image, error) {
	commands, err := BuildCommands(configs)
	if err != nil {
		return nil, err
	}
	return NewCommandInvoker(commands).Execute(img)
}
