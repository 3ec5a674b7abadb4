package commands

import (
	"image"
	"image/color"
	"testing"

	"github.com/jo-hoe/wallscan/internal/backend/commandstructure"
)

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestNewScaleCommand_InvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
	}{
		{name: "missing width", params: map[string]any{"height": 10}},
		{name: "missing height", params: map[string]any{"width": 10}},
		{name: "zero width", params: map[string]any{"width": 0, "height": 10}},
		{name: "negative height", params: map[string]any{"width": 10, "height": -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewScaleCommand(tt.params); err == nil {
				t.Fatal("Expected error, got nil")
			}
		})
	}
}

func TestScaleCommand_Execute(t *testing.T) {
	tests := []struct {
		name       string
		srcW, srcH int
		boxW, boxH int
		wantW      int
		wantH      int
	}{
		{name: "within bounds untouched", srcW: 100, srcH: 50, boxW: 200, boxH: 200, wantW: 100, wantH: 50},
		{name: "wide image limited by width", srcW: 400, srcH: 100, boxW: 200, boxH: 200, wantW: 200, wantH: 50},
		{name: "tall image limited by height", srcW: 100, srcH: 400, boxW: 200, boxH: 200, wantW: 50, wantH: 200},
		{name: "extreme aspect keeps one pixel", srcW: 1000, srcH: 1, boxW: 10, boxH: 10, wantW: 10, wantH: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			command, err := NewScaleCommand(map[string]any{"width": tt.boxW, "height": tt.boxH})
			if err != nil {
				t.Fatalf("NewScaleCommand error: %v", err)
			}
			src := solidImage(tt.srcW, tt.srcH, color.RGBA{10, 120, 230, 255})
			out, err := command.Execute(src)
			if err != nil {
				t.Fatalf("Execute error: %v", err)
			}
			if out.Bounds().Dx() != tt.wantW || out.Bounds().Dy() != tt.wantH {
				t.Fatalf("Expected %dx%d, got %v", tt.wantW, tt.wantH, out.Bounds())
			}
		})
	}
}

func TestScaleCommand_PreservesColor(t *testing.T) {
	command, err := NewScaleCommand(map[string]any{"width": 20, "height": 20})
	if err != nil {
		t.Fatalf("NewScaleCommand error: %v", err)
	}
	out, err := command.Execute(solidImage(80, 80, color.RGBA{10, 120, 230, 255}))
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	r, g, b, _ := out.At(10, 10).RGBA()
	near := func(got uint32, want int) bool {
		d := int(got>>8) - want
		return d >= -1 && d <= 1
	}
	if !near(r, 10) || !near(g, 120) || !near(b, 230) {
		t.Errorf("Unexpected color after scaling: %d,%d,%d", r>>8, g>>8, b>>8)
	}
}

func TestScaleCommand_Registered(t *testing.T) {
	if !commandstructure.DefaultRegistry.IsRegistered("ScaleCommand") {
		t.Fatal("ScaleCommand should be registered in DefaultRegistry")
	}
}
