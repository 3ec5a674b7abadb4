// Package cache stores model output keyed by the digest of the uploaded image so
// repeated uploads of the same picture skip inference.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/jo-hoe/wallscan/internal/backend/inference"
)

const keyPrefix = "prediction:"

// Prediction is the cacheable part of an inference result.
type Prediction struct {
	Segments []inference.Segment `json:"segments"`
	Image    string              `json:"image"`
	Width    int                 `json:"width"`
	Height   int                 `json:"height"`
	Metadata inference.Metadata  `json:"metadata"`
}

// PredictionCache returns (nil, nil) from Get on a miss.
type PredictionCache interface {
	Get(ctx context.Context, key string) (*Prediction, error)
	Set(ctx context.Context, key string, prediction *Prediction) error
	Close() error
}

// Key derives the cache key from the raw image bytes and a variant string
// describing how the image was preprocessed.
func Key(raw []byte, variant string) string {
	h := sha256.New()
	h.Write(raw)
	h.Write([]byte{0})
	h.Write([]byte(variant))
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

// NewCache creates the cache for the configured type
func NewCache(cacheType, addr, password string, db int, ttl time.Duration) (PredictionCache, error) {
	switch cacheType {
	case "", "none":
		return NoopCache{}, nil
	case "redis":
		return NewRedisCache(addr, password, db, ttl), nil
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cacheType)
	}
}

// NoopCache never stores anything.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) (*Prediction, error) { return nil, nil }

func (NoopCache) Set(context.Context, string, *Prediction) error { return nil }

func (NoopCache) Close() error { return nil }
