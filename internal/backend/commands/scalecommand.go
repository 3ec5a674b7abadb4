package commands

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/jo-hoe/wallscan/internal/backend/commandstructure"
	"golang.org/x/image/draw"
)

// ScaleParams bounds the image handed to the model
type ScaleParams struct {
	Height int
	Width  int
}

// NewScaleParamsFromMap creates ScaleParams from a generic map
func NewScaleParamsFromMap(params map[string]any) (*ScaleParams, error) {
	if err := commandstructure.ValidateRequiredParams(params, []string{"height", "width"}); err != nil {
		return nil, err
	}

	height := commandstructure.GetIntParam(params, "height", 0)
	width := commandstructure.GetIntParam(params, "width", 0)

	if height <= 0 {
		return nil, fmt.Errorf("height must be positive, got %d", height)
	}
	if width <= 0 {
		return nil, fmt.Errorf("width must be positive, got %d", width)
	}

	return &ScaleParams{Height: height, Width: width}, nil
}

// ScaleCommand downscales images that exceed a bounding box, preserving aspect ratio.
// Images already inside the box are returned untouched.
type ScaleCommand struct {
	name   string
	params *ScaleParams
}

// NewScaleCommand creates a new scale command from configuration parameters
func NewScaleCommand(params map[string]any) (commandstructure.Command, error) {
	typedParams, err := NewScaleParamsFromMap(params)
	if err != nil {
		return nil, err
	}
	return &ScaleCommand{name: "ScaleCommand", params: typedParams}, nil
}

// Name returns the command name
func (c *ScaleCommand) Name() string {
	return c.name
}

// Execute fits img into the configured width x height box
func (c *ScaleCommand) Execute(img image.Image) (image.Image, error) {
	bounds := img.Bounds()
	originalWidth := bounds.Dx()
	originalHeight := bounds.Dy()
	if originalWidth <= 0 || originalHeight <= 0 {
		return nil, fmt.Errorf("cannot scale empty image %dx%d", originalWidth, originalHeight)
	}

	if originalWidth <= c.params.Width && originalHeight <= c.params.Height {
		slog.Debug("ScaleCommand: image within bounds; skipping scaling",
			"width", originalWidth,
			"height", originalHeight)
		return img, nil
	}

	scaledWidth, scaledHeight := computeScaledDimensions(originalWidth, originalHeight, c.params.Width, c.params.Height)
	slog.Debug("ScaleCommand: scaling image",
		"original_width", originalWidth,
		"original_height", originalHeight,
		"scaled_width", scaledWidth,
		"scaled_height", scaledHeight)

	dst := image.NewRGBA(image.Rect(0, 0, scaledWidth, scaledHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst, nil
}

// computeScaledDimensions fits the original size into the target box, never below 1px
func computeScaledDimensions(originalWidth, originalHeight, targetWidth, targetHeight int) (int, int) {
	originalAspect := float64(originalWidth) / float64(originalHeight)
	targetAspect := float64(targetWidth) / float64(targetHeight)

	var scaledWidth, scaledHeight int
	if originalAspect > targetAspect {
		scaledWidth = targetWidth
		scaledHeight = int(float64(targetWidth) / originalAspect)
	} else {
		scaledHeight = targetHeight
		scaledWidth = int(float64(targetHeight) * originalAspect)
	}
	return max(scaledWidth, 1), max(scaledHeight, 1)
}

func init() {
	if err := commandstructure.DefaultRegistry.Register("ScaleCommand", NewScaleCommand); err != nil {
		panic(fmt.Sprintf("failed to register ScaleCommand: %v", err))
	}
}
