package inference

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/jo-hoe/wallscan/internal/backend/imagecodec"
)

const (
	predictPath          = "/predict"
	maxErrorBodyBytes    = 4096
	maxResponseBodyBytes = 256 << 20
)

// HTTPAdapter calls a model server that wraps the pretrained segmentation network.
type HTTPAdapter struct {
	baseURL string
	client  *http.Client
}

// predictResponse is the JSON document returned by the model server
type predictResponse struct {
	SegmentsInfo    []Segment `json:"segments_info"`
	VisualizedImage string    `json:"visualized_image"`
	Metadata        Metadata  `json:"metadata"`
	PanopticSeg     string    `json:"panoptic_seg"`
}

// NewHTTPAdapter creates an adapter for the model server at baseURL; a zero timeout waits indefinitely.
func NewHTTPAdapter(baseURL string, timeout time.Duration) *HTTPAdapter {
	return &HTTPAdapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Predict uploads img as PNG and decodes the model's answer.
func (a *HTTPAdapter) Predict(ctx context.Context, img image.Image) (*Result, error) {
	start := time.Now()

	body, contentType, err := encodeUpload(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInference, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+predictPath, body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrInference, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request to model server failed: %w", ErrInference, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, fmt.Errorf("%w: model server returned status %d: %s", ErrInference, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed predictResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBodyBytes)).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to parse model response: %v", ErrInference, err)
	}

	result, err := parsed.toResult()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInference, err)
	}

	slog.Debug("inference completed",
		"duration_ms", time.Since(start).Milliseconds(),
		"segment_count", len(result.Segments),
		"visualized_width", result.Visualized.Bounds().Dx(),
		"visualized_height", result.Visualized.Bounds().Dy())

	return result, nil
}

// Close releases idle connections to the model server.
func (a *HTTPAdapter) Close() error {
	a.client.CloseIdleConnections()
	return nil
}

func encodeUpload(img image.Image) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("image", "image.png")
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if err := png.Encode(part, img); err != nil {
		return nil, "", fmt.Errorf("failed to encode upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish multipart body: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

func (r *predictResponse) toResult() (*Result, error) {
	if r.VisualizedImage == "" {
		return nil, fmt.Errorf("model response has no visualized_image")
	}
	visualBytes, err := decodeBase64Payload(r.VisualizedImage)
	if err != nil {
		return nil, fmt.Errorf("visualized_image: %w", err)
	}
	visualized, err := imagecodec.DecodeMultipart(visualBytes)
	if err != nil {
		return nil, fmt.Errorf("visualized_image: %w", err)
	}

	result := &Result{
		Segments:   r.SegmentsInfo,
		Visualized: visualized,
		Metadata:   r.Metadata,
	}
	if result.Segments == nil {
		result.Segments = []Segment{}
	}

	if r.PanopticSeg != "" {
		result.PanopticPNG, err = decodeBase64Payload(r.PanopticSeg)
		if err != nil {
			return nil, fmt.Errorf("panoptic_seg: %w", err)
		}
	}
	return result, nil
}

// decodeBase64Payload accepts plain base64 or any "data:<mime>;base64," URI
func decodeBase64Payload(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		idx := strings.Index(s, ";base64,")
		if idx < 0 {
			return nil, fmt.Errorf("unsupported data uri")
		}
		s = s[idx+len(";base64,"):]
	}
	return base64.StdEncoding.DecodeString(s)
}
