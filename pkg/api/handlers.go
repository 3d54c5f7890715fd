// pkg/api/handlers.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/greenview/ingress/pkg/ingest"
	"github.com/greenview/ingress/pkg/insight"
	"github.com/greenview/ingress/pkg/metrics"
	"github.com/greenview/ingress/pkg/predict"
)

const defaultListLimit = 50

// uploadAccepted is the per-file acknowledgement for an upload request.
type uploadAccepted struct {
	UploadID string `json:"upload_id"`
	Filename string `json:"filename"`
}

// handleUpload accepts one or more files in a multipart form and runs
// each through the pipeline on its own goroutine. The response carries a
// tracking id per file; clients poll /api/uploads/{id} for progress and
// errors, duplicate rejections included.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart form: %v", err)
		return
	}

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		s.writeError(w, http.StatusBadRequest, "no files provided in field %q", "file")
		return
	}

	force := r.URL.Query().Get("force") == "true"

	accepted := make([]uploadAccepted, 0, len(files))
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "failed to open %s: %v", header.Filename, err)
			return
		}

		content, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "failed to read %s: %v", header.Filename, err)
			return
		}

		uploadID := s.tracker.Begin(header.Filename)
		accepted = append(accepted, uploadAccepted{UploadID: uploadID, Filename: header.Filename})

		go s.runIngestion(uploadID, header.Filename, content, force)
	}

	s.writeJSON(w, http.StatusAccepted, map[string]interface{}{"uploads": accepted})
}

// runIngestion executes the pipeline for one file, feeding progress into
// the tracker. It runs detached from the request context so a closed
// connection cannot abandon a half-written dataset.
func (s *Server) runIngestion(uploadID, filename string, content []byte, force bool) {
	ctx := context.Background()

	result, err := s.pipeline.Ingest(ctx, ingest.Upload{
		Filename: filename,
		Size:     int64(len(content)),
		Content:  bytes.NewReader(content),
	}, ingest.Options{
		Force: force,
		OnProgress: func(state ingest.UploadState, progress int) {
			s.tracker.SetProgress(uploadID, state, progress)
		},
	})
	if err != nil {
		s.logger.Warn("Ingestion failed",
			zap.String("upload_id", uploadID),
			zap.String("filename", filename),
			zap.Error(err))
		s.tracker.Fail(uploadID, err.Error())
		return
	}

	s.tracker.Complete(uploadID, result.Dataset.ID)
}

func (s *Server) handleListUploads(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"uploads": s.tracker.List()})
}

func (s *Server) handleGetUpload(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	status, ok := s.tracker.Get(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "upload %s not found", id)
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultListLimit)
	datasets, err := s.store.ListDatasets(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list datasets", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to list datasets")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"datasets": datasets})
}

func (s *Server) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ds, err := s.store.GetDataset(r.Context(), id)
	if err != nil {
		s.logger.Error("Failed to get dataset", zap.String("dataset_id", id), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to get dataset")
		return
	}
	if ds == nil {
		s.writeError(w, http.StatusNotFound, "dataset %s not found", id)
		return
	}
	s.writeJSON(w, http.StatusOK, ds)
}

// handleDeleteDataset removes a dataset and everything derived from it,
// children first.
func (s *Server) handleDeleteDataset(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ctx := r.Context()

	ds, err := s.store.GetDataset(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get dataset for deletion", zap.String("dataset_id", id), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to delete dataset")
		return
	}
	if ds == nil {
		s.writeError(w, http.StatusNotFound, "dataset %s not found", id)
		return
	}

	steps := []func(context.Context, string) error{
		s.store.DeleteDatasetRows,
		s.store.DeleteMetrics,
		s.store.DeleteNormalizedRows,
		s.store.DeleteDataset,
	}
	for _, step := range steps {
		if err := step(ctx, id); err != nil {
			s.logger.Error("Dataset deletion failed", zap.String("dataset_id", id), zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, "failed to delete dataset")
			return
		}
	}

	s.logger.Info("Dataset deleted", zap.String("dataset_id", id))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetDatasetRows(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	rows, err := s.store.GetDatasetRows(r.Context(), id)
	if err != nil {
		s.logger.Error("Failed to get dataset rows", zap.String("dataset_id", id), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to get dataset rows")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"rows": rows})
}

func (s *Server) handleGetDatasetMetrics(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	snapshot, err := s.store.GetMetrics(r.Context(), id)
	if err != nil {
		s.logger.Error("Failed to get metrics", zap.String("dataset_id", id), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to get metrics")
		return
	}
	if snapshot == nil {
		s.writeError(w, http.StatusNotFound, "no metrics for dataset %s", id)
		return
	}
	s.writeJSON(w, http.StatusOK, snapshot)
}

// handleDashboard recomputes the live aggregate view over the most
// recent normalized rows.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 1000)
	rows, err := s.store.GetNormalizedRows(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to get normalized rows", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to compute dashboard metrics")
		return
	}
	s.writeJSON(w, http.StatusOK, metrics.Dashboard(rows))
}

// handleScenario projects a what-if score. Nothing is persisted.
func (s *Server) handleScenario(w http.ResponseWriter, r *http.Request) {
	var scenario metrics.Scenario
	if err := decodeJSON(r, &scenario); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid scenario: %v", err)
		return
	}
	s.writeJSON(w, http.StatusOK, metrics.ProjectScore(scenario))
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	if s.insights == nil {
		s.writeError(w, http.StatusServiceUnavailable, "insight generation is not configured")
		return
	}

	var req insight.Request
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid insight request: %v", err)
		return
	}

	text, err := s.insights.Generate(r.Context(), req)
	if err != nil {
		s.logger.Error("Insight generation failed", zap.String("type", string(req.Type)), zap.Error(err))
		s.writeError(w, http.StatusBadGateway, "insight generation failed")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"insight": text})
}

func (s *Server) handlePredictions(w http.ResponseWriter, r *http.Request) {
	if s.forecaster == nil {
		s.writeError(w, http.StatusServiceUnavailable, "forecasting is not configured")
		return
	}

	var req predict.Request
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid prediction request: %v", err)
		return
	}

	resp, err := s.forecaster.Forecast(r.Context(), req)
	if err != nil {
		s.logger.Error("Forecast failed", zap.String("metric", req.Metric), zap.Error(err))
		s.writeError(w, http.StatusBadGateway, "forecast failed")
		return
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func decodeJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected trailing data")
	}
	return nil
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
