package commands

import (
	"fmt"
	"image"
	"image/color"

	"github.com/jo-hoe/wallscan/internal/backend/commandstructure"
)

// GrayscaleCommand removes color while keeping three identical channels,
// so the model still receives an RGB image.
type GrayscaleCommand struct {
	name string
}

// NewGrayscaleCommand creates a grayscale command; it takes no parameters
func NewGrayscaleCommand(params map[string]any) (commandstructure.Command, error) {
	return &GrayscaleCommand{name: "GrayscaleCommand"}, nil
}

// Name returns the command name
func (c *GrayscaleCommand) Name() string {
	return c.name
}

// Execute converts img using Rec. 709 luma weights
func (c *GrayscaleCommand) Execute(img image.Image) (image.Image, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))

	parallelFor(h, func(y int) {
		for x := 0; x < w; x++ {
			c := color.RGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.RGBA)
			l := uint8(0.2126*float64(c.R) + 0.7152*float64(c.G) + 0.0722*float64(c.B) + 0.5)
			dst.SetRGBA(x, y, color.RGBA{l, l, l, c.A})
		}
	})
	return dst, nil
}

func init() {
	if err := commandstructure.DefaultRegistry.Register("GrayscaleCommand", NewGrayscaleCommand); err != nil {
		panic(fmt.Sprintf("failed to register GrayscaleCommand: %v", err))
	}
}
