package database

import "time"

// Entry is one stored prediction.
type Entry struct {
	ID                       int64
	SessionID                string
	Image                    string // base64 JPEG of the rendered segmentation
	Segments                 string // JSON array of segment descriptors
	Percentage               *int
	MostSignificantDetection *string
	MostSignificantArea      int
	DateCreated              time.Time
}

// NewEntry carries the caller-supplied columns of an entry.
type NewEntry struct {
	SessionID                string
	Image                    string
	Segments                 string
	Percentage               *int
	MostSignificantDetection *string
	MostSignificantArea      int
}
