package inference

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"time"

	"github.com/jo-hoe/wallscan/internal/backend/imagecodec"
)

// ErrInference marks failures of the segmentation model or its transport.
var ErrInference = errors.New("inference failed")

// PanopticMap assigns every pixel the id of the segment it belongs to (0 = unlabeled).
type PanopticMap struct {
	Width  int
	Height int
	Labels []int32
}

// At returns the segment id at x, y.
func (p *PanopticMap) At(x, y int) int32 {
	return p.Labels[y*p.Width+x]
}

// Result is everything the model returns for one image.
type Result struct {
	Segments   []Segment
	Visualized image.Image
	Metadata   Metadata
	// PanopticPNG is the raw grayscale PNG of segment ids, nil when the model sent none.
	PanopticPNG []byte
}

// PanopticMap decodes PanopticPNG; it returns nil, nil when the model sent no map.
func (r *Result) PanopticMap() (*PanopticMap, error) {
	if len(r.PanopticPNG) == 0 {
		return nil, nil
	}
	return decodePanopticMap(r.PanopticPNG)
}

// decodePanopticMap reads a grayscale PNG whose pixel values are segment ids.
func decodePanopticMap(data []byte) (*PanopticMap, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("panoptic_seg: %w", err)
	}
	if err := imagecodec.CheckDimensions(cfg.Width, cfg.Height, imagecodec.DefaultMaxPixels); err != nil {
		return nil, fmt.Errorf("panoptic_seg: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("panoptic_seg: %w", err)
	}

	b := img.Bounds()
	m := &PanopticMap{Width: b.Dx(), Height: b.Dy(), Labels: make([]int32, b.Dx()*b.Dy())}
	switch g := img.(type) {
	case *image.Gray16:
		for y := 0; y < m.Height; y++ {
			for x := 0; x < m.Width; x++ {
				m.Labels[y*m.Width+x] = int32(g.Gray16At(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
	case *image.Gray:
		for y := 0; y < m.Height; y++ {
			for x := 0; x < m.Width; x++ {
				m.Labels[y*m.Width+x] = int32(g.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
	default:
		return nil, fmt.Errorf("panoptic_seg: expected grayscale PNG, got %T", img)
	}
	return m, nil
}

// Adapter runs a pretrained panoptic segmentation model.
type Adapter interface {
	Predict(ctx context.Context, img image.Image) (*Result, error)
	Close() error
}

// NewAdapter creates the adapter for the configured type
func NewAdapter(adapterType, url string, timeout time.Duration) (Adapter, error) {
	switch adapterType {
	case "http":
		if url == "" {
			return nil, fmt.Errorf("inference url must be set for adapter type %q", adapterType)
		}
		return NewHTTPAdapter(url, timeout), nil
	default:
		return nil, fmt.Errorf("unsupported inference adapter: %s", adapterType)
	}
}
