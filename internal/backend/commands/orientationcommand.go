package commands

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/jo-hoe/wallscan/internal/backend/commandstructure"
)

// OrientationParams represents typed parameters for orientation command
type OrientationParams struct {
	Orientation string
}

// NewOrientationParamsFromMap creates OrientationParams from a generic map
func NewOrientationParamsFromMap(params map[string]any) (*OrientationParams, error) {
	orientation := commandstructure.GetStringParam(params, "orientation", "portrait")

	validOrientations := map[string]bool{
		"portrait":  true,
		"landscape": true,
	}
	if !validOrientations[orientation] {
		return nil, fmt.Errorf("invalid orientation: %s (must be 'portrait' or 'landscape')", orientation)
	}

	return &OrientationParams{Orientation: orientation}, nil
}

// OrientationCommand rotates images by 90 degrees clockwise when they do not
// match the configured orientation. Square images count as portrait.
type OrientationCommand struct {
	name   string
	params *OrientationParams
}

// NewOrientationCommand creates a new orientation command from configuration parameters
func NewOrientationCommand(params map[string]any) (commandstructure.Command, error) {
	typedParams, err := NewOrientationParamsFromMap(params)
	if err != nil {
		return nil, err
	}
	return &OrientationCommand{name: "OrientationCommand", params: typedParams}, nil
}

// Name returns the command name
func (c *OrientationCommand) Name() string {
	return c.name
}

// Execute rotates img if needed
func (c *OrientationCommand) Execute(img image.Image) (image.Image, error) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	isCurrentlyPortrait := height >= width
	needsPortrait := c.params.Orientation == "portrait"
	if isCurrentlyPortrait == needsPortrait {
		slog.Debug("OrientationCommand: already in correct orientation, no rotation needed",
			"width", width,
			"height", height)
		return img, nil
	}

	slog.Debug("OrientationCommand: rotating image 90 degrees clockwise",
		"width", width,
		"height", height)

	// (x, y) -> (height-1-y, x)
	rotated := image.NewRGBA(image.Rect(0, 0, height, width))
	parallelFor(height, func(y int) {
		for x := 0; x < width; x++ {
			rotated.Set(height-1-y, x, img.At(bounds.Min.X+x, bounds.Min.Y+y))
		}
	})
	return rotated, nil
}

func init() {
	if err := commandstructure.DefaultRegistry.Register("OrientationCommand", NewOrientationCommand); err != nil {
		panic(fmt.Sprintf("failed to register OrientationCommand: %v", err))
	}
}
