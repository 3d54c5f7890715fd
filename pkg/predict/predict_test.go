// pkg/predict/predict_test.go
package predict

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/greenview/ingress/pkg/config"
)

func newTestForecaster(t *testing.T, handler http.HandlerFunc) (*HTTPForecaster, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	f, err := NewHTTPForecaster(&config.MLServiceConfig{
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
	}, zap.NewNop())
	require.NoError(t, err)
	return f, srv
}

func TestForecast(t *testing.T) {
	f, _ := newTestForecaster(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/ml-predictions/forecast", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "CO2_Emissions_kg", req.Metric)
		assert.Equal(t, 730, req.ForecastDays)
		assert.Equal(t, []string{"xgboost", "lightgbm"}, req.Models, "models default when omitted")

		json.NewEncoder(w).Encode(Response{
			Metric:       req.Metric,
			ForecastDays: req.ForecastDays,
			CurrentValue: 150.0,
			Predictions: map[string][]Point{
				"xgboost": {{Date: "2026-09-02", Value: 148.2}},
			},
			LatestPredictions: map[string]float64{"xgboost": 148.2},
		})
	})

	resp, err := f.Forecast(context.Background(), Request{
		Metric:       "CO2_Emissions_kg",
		ForecastDays: 730,
	})
	require.NoError(t, err)

	assert.Equal(t, "CO2_Emissions_kg", resp.Metric)
	assert.InDelta(t, 150.0, resp.CurrentValue, 1e-9)
	require.Len(t, resp.Predictions["xgboost"], 1)
	assert.InDelta(t, 148.2, resp.LatestPredictions["xgboost"], 1e-9)
}

func TestForecastServiceError(t *testing.T) {
	f, _ := newTestForecaster(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail": "'Timestamp' column missing in dataset"}`, http.StatusBadRequest)
	})

	_, err := f.Forecast(context.Background(), Request{Metric: "CO2_Emissions_kg", ForecastDays: 30})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "Timestamp")
}

func TestForecastValidation(t *testing.T) {
	f, _ := newTestForecaster(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request should be sent for invalid input")
	})

	_, err := f.Forecast(context.Background(), Request{ForecastDays: 30})
	require.Error(t, err)

	_, err = f.Forecast(context.Background(), Request{Metric: "CO2_Emissions_kg"})
	require.Error(t, err)
}

func TestNewHTTPForecasterRequiresURL(t *testing.T) {
	_, err := NewHTTPForecaster(&config.MLServiceConfig{}, zap.NewNop())
	require.Error(t, err)
}
