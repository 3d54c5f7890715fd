// pkg/predict/predict.go

// Package predict proxies forecasting requests to the external machine
// learning service.
package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/greenview/ingress/pkg/config"
)

// Request asks the forecasting service for a metric projection.
type Request struct {
	Metric       string   `json:"metric"`
	ForecastDays int      `json:"forecast_days"`
	Models       []string `json:"models,omitempty"`
}

// defaultModels are used when the caller does not pick any.
var defaultModels = []string{"xgboost", "lightgbm"}

// Point is one forecasted value.
type Point struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// Response is the forecasting service's reply: per-model prediction
// series plus the latest projected value for each model.
type Response struct {
	Metric              string             `json:"metric"`
	ForecastDays        int                `json:"forecast_days"`
	CurrentValue        float64            `json:"current_value"`
	SustainabilityScore float64            `json:"sustainability_score"`
	Predictions         map[string][]Point `json:"predictions"`
	LatestPredictions   map[string]float64 `json:"latest_predictions"`
}

// Forecaster produces metric forecasts.
type Forecaster interface {
	Forecast(ctx context.Context, req Request) (*Response, error)
}

// HTTPForecaster implements Forecaster against the ML service's REST API.
type HTTPForecaster struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPForecaster creates a forecaster from configuration.
func NewHTTPForecaster(cfg *config.MLServiceConfig, logger *zap.Logger) (*HTTPForecaster, error) {
	if cfg == nil || cfg.BaseURL == "" {
		return nil, errors.New("ML service URL not configured")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	return &HTTPForecaster{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}, nil
}

// Forecast posts the request to the forecasting endpoint and decodes the
// reply.
func (f *HTTPForecaster) Forecast(ctx context.Context, req Request) (*Response, error) {
	if req.Metric == "" {
		return nil, errors.New("metric is required")
	}
	if req.ForecastDays <= 0 {
		return nil, errors.New("forecast days must be positive")
	}
	if len(req.Models) == 0 {
		req.Models = defaultModels
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode forecast request: %w", err)
	}

	url := f.baseURL + "/api/v1/ml-predictions/forecast"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build forecast request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	f.logger.Debug("Requesting forecast",
		zap.String("metric", req.Metric),
		zap.Int("forecast_days", req.ForecastDays),
		zap.Strings("models", req.Models))

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("forecast request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("forecast service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode forecast response: %w", err)
	}

	return &out, nil
}
