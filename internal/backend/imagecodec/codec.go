package imagecodec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"log/slog"
	"strings"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DataURIPrefix is the only data URI header accepted for uploaded and returned images.
const DataURIPrefix = "data:image/jpeg;base64,"

// DefaultJPEGQuality is used when no explicit quality is configured.
const DefaultJPEGQuality = 90

// DefaultMaxPixels bounds decoded images to roughly 160 MiB of RGBA.
const DefaultMaxPixels int64 = 40_000_000

var (
	// ErrDecode is returned when bytes are not a decodable, non-empty image.
	ErrDecode = errors.New("invalid image data")
	// ErrFormat is returned when a data URI is missing the expected prefix or carries invalid base64.
	ErrFormat = errors.New("invalid image data uri")
)

// DecodeMultipart decodes with the DefaultMaxPixels limit.
func DecodeMultipart(data []byte) (*image.RGBA, error) {
	return DecodeMultipartLimit(data, DefaultMaxPixels)
}

// DecodeMultipartLimit decodes an encoded image container into an opaque RGBA image
// anchored at the origin. Transparent pixels are flattened onto white. Images
// declaring more than maxPixels pixels are rejected before any pixel buffer is allocated.
func DecodeMultipartLimit(data []byte, maxPixels int64) (*image.RGBA, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrDecode)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err == nil {
		if err := CheckDimensions(cfg.Width, cfg.Height, maxPixels); err != nil {
			return nil, err
		}
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if !errors.Is(err, image.ErrFormat) || !isSVGData(data) {
			slog.Debug("imagecodec: failed to decode image", "input_size_bytes", len(data), "error", err)
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		img, err = rasterizeSVG(data, maxPixels)
		if err != nil {
			if errors.Is(err, ErrDecode) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		format = "svg"
	}

	bounds := img.Bounds()
	if err := CheckDimensions(bounds.Dx(), bounds.Dy(), maxPixels); err != nil {
		return nil, err
	}

	slog.Debug("imagecodec: decoded image",
		"format", format,
		"width", bounds.Dx(),
		"height", bounds.Dy())

	return normalize(img), nil
}

// CheckDimensions returns ErrDecode for empty images and for images above maxPixels.
func CheckDimensions(width, height int, maxPixels int64) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: image has zero area (%dx%d)", ErrDecode, width, height)
	}
	if maxPixels > 0 && int64(width)*int64(height) > maxPixels {
		return fmt.Errorf("%w: image of %dx%d exceeds the limit of %d pixels", ErrDecode, width, height, maxPixels)
	}
	return nil
}

// StripDataURI validates the data URI header and returns the decoded payload bytes.
func StripDataURI(uri string) ([]byte, error) {
	if !strings.HasPrefix(uri, DataURIPrefix) {
		return nil, fmt.Errorf("%w: expected prefix %q", ErrFormat, DataURIPrefix)
	}
	payload, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, DataURIPrefix))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return payload, nil
}

// DecodeDataURI decodes a "data:image/jpeg;base64," URI into an RGBA image.
func DecodeDataURI(uri string) (*image.RGBA, error) {
	payload, err := StripDataURI(uri)
	if err != nil {
		return nil, err
	}
	return DecodeMultipart(payload)
}

// EncodeJPEG renders img as JPEG with the default quality and returns its base64 text.
func EncodeJPEG(img image.Image) (string, error) {
	return EncodeJPEGQuality(img, DefaultJPEGQuality)
}

// EncodeJPEGQuality renders img as JPEG and returns its base64 text without a data URI prefix.
func EncodeJPEGQuality(img image.Image, quality int) (string, error) {
	if img == nil {
		return "", fmt.Errorf("%w: nil image", ErrDecode)
	}
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	var buf bytes.Buffer
	bb := img.Bounds()
	buf.Grow(bb.Dx() * bb.Dy() / 4)
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return "", fmt.Errorf("failed to encode image to JPEG: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DataURI prefixes base64 JPEG text so browsers can render it directly.
func DataURI(b64 string) string {
	return DataURIPrefix + b64
}

// normalize copies src onto a white RGBA canvas with bounds starting at 0,0.
func normalize(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	return dst
}
