package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jo-hoe/wallscan/internal/backend/analysis"
	"github.com/jo-hoe/wallscan/internal/backend/cache"
	"github.com/jo-hoe/wallscan/internal/backend/commandstructure"
	"github.com/jo-hoe/wallscan/internal/backend/database"
	"github.com/jo-hoe/wallscan/internal/backend/imagecodec"
	"github.com/jo-hoe/wallscan/internal/backend/inference"
	"github.com/jo-hoe/wallscan/internal/common"

	_ "github.com/jo-hoe/wallscan/internal/backend/commands"
)

const cacheStartupTimeout = 5 * time.Second

// ErrMissingImage is returned when a prediction request carries no image.
var ErrMissingImage = errors.New("no image provided")

type CoreService struct {
	config          *ServiceConfig
	databaseService database.DatabaseService
	adapter         inference.Adapter
	cache           cache.PredictionCache
	invoker         *commandstructure.CommandInvoker
	cacheVariant    string
}

// PredictRequest holds one upload. Image takes precedence over DataURI.
type PredictRequest struct {
	Image      []byte
	DataURI    string
	SessionID  string
	Percentage *int
}

type PredictResult struct {
	Image    string
	Segments []inference.Segment
	Entries  []*database.Entry
}

// NewCoreService wires the service from already constructed collaborators.
func NewCoreService(config *ServiceConfig, databaseService database.DatabaseService, adapter inference.Adapter, predictionCache cache.PredictionCache) (*CoreService, error) {
	if predictionCache == nil {
		predictionCache = cache.NoopCache{}
	}

	commandConfigs := config.CommandConfigs()
	commands, err := commandstructure.BuildCommands(commandConfigs)
	if err != nil {
		return nil, fmt.Errorf("failed to build preprocessing pipeline: %w", err)
	}

	return &CoreService{
		config:          config,
		databaseService: databaseService,
		adapter:         adapter,
		cache:           predictionCache,
		invoker:         commandstructure.NewCommandInvoker(commands),
		cacheVariant:    fmt.Sprintf("q=%d;%v", config.JPEGQuality, commandConfigs),
	}, nil
}

// NewCoreServiceFromConfig builds database, inference adapter and cache from the config.
func NewCoreServiceFromConfig(config *ServiceConfig) (*CoreService, error) {
	databaseService, err := database.NewDatabase(config.Database.Type, config.Database.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("could not create database: %w", err)
	}

	adapter, err := inference.NewAdapter(config.Inference.Type, config.Inference.URL, config.Inference.Timeout)
	if err != nil {
		_ = databaseService.Close()
		return nil, fmt.Errorf("could not create inference adapter: %w", err)
	}

	predictionCache, err := cache.NewCache(config.Cache.Type, config.Cache.Addr, config.Cache.Password, config.Cache.DB, config.Cache.TTL)
	if err != nil {
		_ = databaseService.Close()
		_ = adapter.Close()
		return nil, fmt.Errorf("could not create cache: %w", err)
	}

	if err := pingCache(predictionCache); err != nil {
		_ = databaseService.Close()
		_ = adapter.Close()
		_ = predictionCache.Close()
		return nil, err
	}

	service, err := NewCoreService(config, databaseService, adapter, predictionCache)
	if err != nil {
		_ = databaseService.Close()
		_ = adapter.Close()
		_ = predictionCache.Close()
		return nil, err
	}
	return service, nil
}

// pingCache fails startup when a networked cache is configured but unreachable.
func pingCache(predictionCache cache.PredictionCache) error {
	pinger, ok := predictionCache.(interface{ Ping(context.Context) error })
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), cacheStartupTimeout)
	defer cancel()
	if err := pinger.Ping(ctx); err != nil {
		return fmt.Errorf("cache is unreachable: %w", err)
	}
	return nil
}

func (service *CoreService) NewSessionID() (string, error) {
	return common.GenerateSessionID()
}

// Predict segments the uploaded image, stores the outcome under the session id
// and returns it together with all entries of that session.
func (service *CoreService) Predict(ctx context.Context, request PredictRequest) (*PredictResult, error) {
	raw := request.Image
	if len(raw) == 0 && request.DataURI != "" {
		stripped, err := imagecodec.StripDataURI(request.DataURI)
		if err != nil {
			return nil, err
		}
		raw = stripped
	}
	if len(raw) == 0 {
		return nil, ErrMissingImage
	}

	prediction, err := service.predict(ctx, raw)
	if err != nil {
		return nil, err
	}

	score, err := analysis.AnnotateAndScore(prediction.Segments, prediction.Metadata, prediction.Width, prediction.Height, request.Percentage)
	if err != nil {
		return nil, err
	}

	segmentsJSON, err := json.Marshal(score.Segments)
	if err != nil {
		return nil, fmt.Errorf("could not serialize segments: %w", err)
	}

	percentage := score.Percentage
	entry, err := service.databaseService.CreateEntry(ctx, database.NewEntry{
		SessionID:                request.SessionID,
		Image:                    prediction.Image,
		Segments:                 string(segmentsJSON),
		Percentage:               &percentage,
		MostSignificantDetection: score.MostSignificant,
		MostSignificantArea:      score.MostSignificantArea,
	})
	if err != nil {
		return nil, err
	}
	slog.Info("stored prediction", "id", entry.ID, "uuid", entry.SessionID, "percentage", percentage)

	entries, err := service.databaseService.GetEntriesBySession(ctx, request.SessionID)
	if err != nil {
		return nil, err
	}

	return &PredictResult{
		Image:    prediction.Image,
		Segments: score.Segments,
		Entries:  entries,
	}, nil
}

// predict returns the cached model output for raw or runs the pipeline and the model.
func (service *CoreService) predict(ctx context.Context, raw []byte) (*cache.Prediction, error) {
	key := cache.Key(raw, service.cacheVariant)
	cached, err := service.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("prediction cache lookup failed", "error", err)
	} else if cached != nil {
		slog.Debug("prediction cache hit", "key", key)
		return cached, nil
	}

	img, err := imagecodec.DecodeMultipartLimit(raw, service.config.MaxPixels)
	if err != nil {
		return nil, err
	}

	processed, err := service.invoker.Execute(img)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := service.adapter.Predict(ctx, processed)
	if err != nil {
		return nil, err
	}
	slog.Debug("inference finished", "segments", len(result.Segments), "duration_ms", time.Since(start).Milliseconds())

	if result.Visualized == nil {
		return nil, fmt.Errorf("%w: model returned no visualization", inference.ErrInference)
	}
	encoded, err := imagecodec.EncodeJPEGQuality(result.Visualized, service.config.JPEGQuality)
	if err != nil {
		return nil, err
	}

	bounds := result.Visualized.Bounds()
	prediction := &cache.Prediction{
		Segments: result.Segments,
		Image:    encoded,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		Metadata: result.Metadata,
	}
	if err := service.cache.Set(ctx, key, prediction); err != nil {
		slog.Warn("could not cache prediction", "error", err)
	}
	return prediction, nil
}

func (service *CoreService) Entries(ctx context.Context, sessionID string) ([]*database.Entry, error) {
	return service.databaseService.GetEntriesBySession(ctx, sessionID)
}

// Entry returns nil, nil when the session has no entry with that id.
func (service *CoreService) Entry(ctx context.Context, sessionID string, id int64) (*database.Entry, error) {
	return service.databaseService.GetEntry(ctx, sessionID, id)
}

func (service *CoreService) HasEntries(ctx context.Context, sessionID string) (bool, error) {
	return service.databaseService.HasEntries(ctx, sessionID)
}

func (service *CoreService) Close() error {
	return errors.Join(
		service.databaseService.Close(),
		service.adapter.Close(),
		service.cache.Close(),
	)
}
