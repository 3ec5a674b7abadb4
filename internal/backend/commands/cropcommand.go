package commands

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/jo-hoe/wallscan/internal/backend/commandstructure"
	"golang.org/x/image/draw"
)

// CropParams represents typed parameters for crop command
type CropParams struct {
	Height int
	Width  int
}

// NewCropParamsFromMap creates CropParams from a generic map
func NewCropParamsFromMap(params map[string]any) (*CropParams, error) {
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

	return &CropParams{Height: height, Width: width}, nil
}

// CropCommand center-crops images larger than the configured size
type CropCommand struct {
	name   string
	params *CropParams
}

// NewCropCommand creates a new crop command from configuration parameters
func NewCropCommand(params map[string]any) (commandstructure.Command, error) {
	typedParams, err := NewCropParamsFromMap(params)
	if err != nil {
		return nil, err
	}
	return &CropCommand{name: "CropCommand", params: typedParams}, nil
}

// Name returns the command name
func (c *CropCommand) Name() string {
	return c.name
}

// Execute cuts the centered width x height region out of img; each side is
// limited to the original size.
func (c *CropCommand) Execute(img image.Image) (image.Image, error) {
	bounds := img.Bounds()
	originalWidth := bounds.Dx()
	originalHeight := bounds.Dy()

	cropWidth := min(c.params.Width, originalWidth)
	cropHeight := min(c.params.Height, originalHeight)
	if cropWidth == originalWidth && cropHeight == originalHeight {
		slog.Debug("CropCommand: no crop needed",
			"width", originalWidth,
			"height", originalHeight)
		return img, nil
	}

	x0 := bounds.Min.X + (originalWidth-cropWidth)/2
	y0 := bounds.Min.Y + (originalHeight-cropHeight)/2

	slog.Debug("CropCommand: performing center crop",
		"crop_x", x0,
		"crop_y", y0,
		"crop_width", cropWidth,
		"crop_height", cropHeight)

	dst := image.NewRGBA(image.Rect(0, 0, cropWidth, cropHeight))
	draw.Copy(dst, image.Point{}, img, image.Rect(x0, y0, x0+cropWidth, y0+cropHeight), draw.Src, nil)
	return dst, nil
}

func init() {
	if err := commandstructure.DefaultRegistry.Register("CropCommand", NewCropCommand); err != nil {
		panic(fmt.Sprintf("failed to register CropCommand: %v", err))
	}
}
