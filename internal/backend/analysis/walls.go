// Package analysis turns raw model segments into the wall coverage metric stored per entry.
package analysis

import (
	"errors"
	"fmt"

	"github.com/jo-hoe/wallscan/internal/backend/inference"
)

// coverageFactor is the share of the frame a fully covered wall is expected to fill.
const coverageFactor = 0.8

var (
	// ErrEmptyImage is returned when the percentage denominator would be zero.
	ErrEmptyImage = errors.New("image has zero area")
	// ErrUnknownCategory is returned when a segment's category id is not in the metadata.
	ErrUnknownCategory = errors.New("unknown segment category")
)

var wallCategories = map[string]struct{}{
	"wall":          {},
	"wall-brick":    {},
	"wall-concrete": {},
	"wall-stone":    {},
	"wall-wood":     {},
}

// IsWall reports whether name is one of the wall category names.
func IsWall(name string) bool {
	_, ok := wallCategories[name]
	return ok
}

// Score is the annotated segment list plus the derived metrics.
type Score struct {
	Segments            []inference.Segment
	Percentage          int
	MostSignificant     *string
	MostSignificantArea int
}

// AnnotateAndScore names every segment, picks the largest wall segment and computes
// the wall coverage percentage for a width x height image. A non-nil override is
// used as the percentage without validation.
//
// Ties keep the earlier segment: only a strictly larger area replaces the current maximum.
func AnnotateAndScore(segments []inference.Segment, metadata inference.Metadata, width, height int, override *int) (*Score, error) {
	annotated := make([]inference.Segment, len(segments))
	score := &Score{Segments: annotated}

	for i, seg := range segments {
		name, ok := metadata.Name(seg)
		if !ok {
			return nil, fmt.Errorf("%w: id %d (background=%t)", ErrUnknownCategory, seg.CategoryID, seg.IsBackgroundClass)
		}
		seg.CategoryTitle = name
		annotated[i] = seg

		if !IsWall(name) {
			continue
		}
		if seg.Area > score.MostSignificantArea {
			title := name
			score.MostSignificant = &title
			score.MostSignificantArea = seg.Area
		}
	}

	if override != nil {
		score.Percentage = *override
		return score, nil
	}

	percentage, err := CoveragePercentage(score.MostSignificantArea, width, height)
	if err != nil {
		return nil, err
	}
	score.Percentage = percentage
	return score, nil
}

// CoveragePercentage returns floor(area / (width*height*0.8) * 100).
func CoveragePercentage(area, width, height int) (int, error) {
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("%w: %dx%d", ErrEmptyImage, width, height)
	}
	return int(float64(area) / (float64(width*height) * coverageFactor) * 100), nil
}
