package commandstructure

import "image"

// Command transforms a decoded image before it is handed to the segmentation model.
type Command interface {
	Name() string
	Execute(img image.Image) (image.Image, error)
}

// CommandFactory creates a command from configuration parameters
type CommandFactory func(params map[string]any) (Command, error)

// CommandConfig names a registered command and carries its parameters
type CommandConfig struct {
	Name   string
	Params map[string]any
}
