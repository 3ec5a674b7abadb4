package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/jo-hoe/wallscan/internal/backend/analysis"
	"github.com/jo-hoe/wallscan/internal/backend/database"
	"github.com/jo-hoe/wallscan/internal/backend/imagecodec"
	"github.com/jo-hoe/wallscan/internal/backend/inference"
	"github.com/jo-hoe/wallscan/internal/core"
	"github.com/labstack/echo/v4"
)

const listDateLayout = "2006-01-02 15:04:05"

// ErrInvalidPercentage is returned when a percentage override is not numeric.
var ErrInvalidPercentage = errors.New("percentage must be numeric")

type APIService struct {
	coreService *core.CoreService
	config      *core.ServiceConfig
}

// PredictBody is the JSON variant of an upload.
type PredictBody struct {
	Image      string          `json:"image" validate:"required"`
	Percentage json.RawMessage `json:"percentage"`
	UUID       string          `json:"uuid"`
}

type entryFields struct {
	ID                       int64   `json:"id"`
	UUID                     string  `json:"uuid"`
	Percentage               *int    `json:"percentage"`
	MostSignificantDetection *string `json:"most_significant_detection"`
	MostSignificantArea      int     `json:"most_significant_area"`
}

// EntryResponse is an entry as returned alongside a prediction.
type EntryResponse struct {
	entryFields
	DateCreated int64 `json:"date_created"`
}

// EntryListItem is an entry as returned by the session listing.
type EntryListItem struct {
	entryFields
	DateCreated string `json:"date_created"`
}

// EntryDetail is a single entry including its image and segments.
type EntryDetail struct {
	entryFields
	DateCreated int64           `json:"date_created"`
	Image       string          `json:"image"`
	Segments    json.RawMessage `json:"segments"`
}

type PredictResponse struct {
	Image    string              `json:"image"`
	Segments []inference.Segment `json:"segments"`
	Entries  []EntryResponse     `json:"entries"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func NewAPIService(config *core.ServiceConfig, coreService *core.CoreService) *APIService {
	return &APIService{
		coreService: coreService,
		config:      config,
	}
}

func (service *APIService) SetRoutes(e *echo.Echo) {
	e.GET("/probe", service.probeHandler)
	e.GET("/uuid", service.uuidHandler)
	e.POST("/", service.predictHandler)

	e.GET("/entities/:uuid", service.listEntriesHandler)
	e.GET("/entities/:uuid/check", service.checkEntriesHandler)
	e.GET("/entities/:uuid/:id", service.getEntryHandler)
}

func (service *APIService) probeHandler(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "API Service is running")
}

func (service *APIService) uuidHandler(ctx echo.Context) error {
	id, err := service.coreService.NewSessionID()
	if err != nil {
		slog.Error("uuidHandler: failed to generate session id",
			"status", http.StatusInternalServerError, "error", err)
		return ctx.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to generate session id"})
	}
	return ctx.String(http.StatusOK, id)
}

func (service *APIService) predictHandler(ctx echo.Context) error {
	request, err := service.readPredictRequest(ctx)
	if err != nil {
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			slog.Error("predictHandler: rejected request", "status", httpErr.Code, "error", err)
			return httpErr
		}
		status := statusForError(err)
		slog.Error("predictHandler: invalid request", "status", status, "error", err)
		return ctx.JSON(status, ErrorResponse{Error: err.Error()})
	}

	result, err := service.coreService.Predict(ctx.Request().Context(), *request)
	if err != nil {
		status := statusForError(err)
		slog.Error("predictHandler: prediction failed", "status", status, "error", err, "uuid", request.SessionID)
		return ctx.JSON(status, ErrorResponse{Error: err.Error()})
	}

	entries := make([]EntryResponse, 0, len(result.Entries))
	for _, entry := range result.Entries {
		entries = append(entries, EntryResponse{
			entryFields: toEntryFields(entry),
			DateCreated: entry.DateCreated.Unix(),
		})
	}

	return ctx.JSON(http.StatusOK, PredictResponse{
		Image:    result.Image,
		Segments: result.Segments,
		Entries:  entries,
	})
}

// readPredictRequest accepts a multipart upload with an "image" file or a JSON body with a data URI.
func (service *APIService) readPredictRequest(ctx echo.Context) (*core.PredictRequest, error) {
	contentType := ctx.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(contentType, echo.MIMEMultipartForm) {
		return readMultipartRequest(ctx)
	}

	var body PredictBody
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	if err := ctx.Validate(&body); err != nil {
		return nil, err
	}

	percentage, err := parsePercentage(body.Percentage)
	if err != nil {
		return nil, err
	}
	return &core.PredictRequest{
		DataURI:    body.Image,
		SessionID:  body.UUID,
		Percentage: percentage,
	}, nil
}

func readMultipartRequest(ctx echo.Context) (*core.PredictRequest, error) {
	file, err := ctx.FormFile("image")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMissingImage, err)
	}

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			slog.Error("readMultipartRequest: failed to close uploaded file reader", "error", cerr, "filename", file.Filename)
		}
	}()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}

	percentage, err := parsePercentageString(ctx.FormValue("percentage"))
	if err != nil {
		return nil, err
	}
	return &core.PredictRequest{
		Image:      data,
		SessionID:  ctx.FormValue("uuid"),
		Percentage: percentage,
	}, nil
}

// parsePercentage accepts a JSON number or a numeric string. null, "" and the
// number 0 mean no override.
func parsePercentage(raw json.RawMessage) (*int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		if number == 0 {
			return nil, nil
		}
		return truncatePercentage(number, string(raw))
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPercentage, raw)
	}
	return parsePercentageString(text)
}

func parsePercentageString(text string) (*int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	number, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPercentage, text)
	}
	return truncatePercentage(number, text)
}

// truncatePercentage drops the fraction; NaN, infinities and values outside the
// int32 range are rejected.
func truncatePercentage(number float64, input string) (*int, error) {
	if math.IsNaN(number) || math.IsInf(number, 0) || number <= math.MinInt32-1 || number >= math.MaxInt32+1 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPercentage, input)
	}
	value := int(number)
	return &value, nil
}

func (service *APIService) listEntriesHandler(ctx echo.Context) error {
	sessionID := ctx.Param("uuid")
	entries, err := service.coreService.Entries(ctx.Request().Context(), sessionID)
	if err != nil {
		slog.Error("listEntriesHandler: failed to list entries",
			"status", http.StatusInternalServerError, "error", err, "uuid", sessionID)
		return ctx.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to list entries"})
	}

	items := make([]EntryListItem, 0, len(entries))
	for _, entry := range entries {
		items = append(items, EntryListItem{
			entryFields: toEntryFields(entry),
			DateCreated: entry.DateCreated.Format(listDateLayout),
		})
	}
	return ctx.JSON(http.StatusOK, items)
}

func (service *APIService) checkEntriesHandler(ctx echo.Context) error {
	sessionID := ctx.Param("uuid")
	exists, err := service.coreService.HasEntries(ctx.Request().Context(), sessionID)
	if err != nil {
		slog.Error("checkEntriesHandler: failed to check entries",
			"status", http.StatusInternalServerError, "error", err, "uuid", sessionID)
		return ctx.NoContent(http.StatusInternalServerError)
	}
	if !exists {
		return ctx.NoContent(http.StatusNotFound)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (service *APIService) getEntryHandler(ctx echo.Context) error {
	sessionID := ctx.Param("uuid")
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		return ctx.NoContent(http.StatusNotFound)
	}

	entry, err := service.coreService.Entry(ctx.Request().Context(), sessionID, id)
	if err != nil {
		slog.Error("getEntryHandler: failed to get entry",
			"status", http.StatusInternalServerError, "error", err, "uuid", sessionID, "id", id)
		return ctx.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to get entry"})
	}
	if entry == nil {
		return ctx.NoContent(http.StatusNotFound)
	}

	segments := json.RawMessage(entry.Segments)
	if !json.Valid(segments) {
		slog.Error("getEntryHandler: stored segments are not valid JSON",
			"status", http.StatusInternalServerError, "uuid", sessionID, "id", id)
		return ctx.JSON(http.StatusInternalServerError, ErrorResponse{Error: "stored segments are corrupt"})
	}

	return ctx.JSON(http.StatusOK, EntryDetail{
		entryFields: toEntryFields(entry),
		DateCreated: entry.DateCreated.Unix(),
		Image:       imagecodec.DataURI(entry.Image),
		Segments:    segments,
	})
}

func toEntryFields(entry *database.Entry) entryFields {
	return entryFields{
		ID:                       entry.ID,
		UUID:                     entry.SessionID,
		Percentage:               entry.Percentage,
		MostSignificantDetection: entry.MostSignificantDetection,
		MostSignificantArea:      entry.MostSignificantArea,
	}
}

// statusForError maps domain errors to HTTP status codes
func statusForError(err error) int {
	switch {
	case errors.Is(err, imagecodec.ErrDecode),
		errors.Is(err, imagecodec.ErrFormat),
		errors.Is(err, core.ErrMissingImage),
		errors.Is(err, ErrInvalidPercentage):
		return http.StatusBadRequest
	case errors.Is(err, inference.ErrInference),
		errors.Is(err, analysis.ErrEmptyImage),
		errors.Is(err, analysis.ErrUnknownCategory):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
