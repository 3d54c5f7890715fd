// pkg/ingest/pipeline_test.go
package ingest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/greenview/ingress/pkg/model"
)

// fakeStore is an in-memory Store with per-method failure injection.
type fakeStore struct {
	mu sync.Mutex

	datasets       map[string]*model.Dataset
	rawRows        map[string][]model.DatasetRow
	normalizedRows map[string][]model.Row
	snapshots      map[string]*model.MetricsSnapshot

	failInsertRows       bool
	failMarkProcessed    bool
	failInsertNormalized bool
	failInsertMetrics    bool
	failDuplicateLookups bool

	rawInsertCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		datasets:       make(map[string]*model.Dataset),
		rawRows:        make(map[string][]model.DatasetRow),
		normalizedRows: make(map[string][]model.Row),
		snapshots:      make(map[string]*model.MetricsSnapshot),
	}
}

func (f *fakeStore) CreateDataset(_ context.Context, ds *model.Dataset) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ds.ID == "" {
		ds.ID = "ds-" + ds.OriginalFilename
	}
	cp := *ds
	f.datasets[ds.ID] = &cp
	return ds.ID, nil
}

func (f *fakeStore) MarkDatasetProcessed(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failMarkProcessed {
		return errors.New("injected finalize failure")
	}
	ds, ok := f.datasets[id]
	if !ok {
		return errors.New("dataset not found")
	}
	ds.Status = model.StatusProcessed
	ds.ProcessedAt = &at
	return nil
}

func (f *fakeStore) GetDataset(_ context.Context, id string) (*model.Dataset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ds, ok := f.datasets[id]
	if !ok {
		return nil, nil
	}
	cp := *ds
	return &cp, nil
}

func (f *fakeStore) ListDatasets(_ context.Context, limit int) ([]model.Dataset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Dataset
	for _, ds := range f.datasets {
		if ds.Status == model.StatusProcessed && len(out) < limit {
			out = append(out, *ds)
		}
	}
	return out, nil
}

func (f *fakeStore) FindDatasetByOriginalFilename(_ context.Context, name string) (*model.Dataset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDuplicateLookups {
		return nil, errors.New("injected lookup failure")
	}
	for _, ds := range f.datasets {
		if ds.OriginalFilename == name && ds.Status == model.StatusProcessed {
			cp := *ds
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) FindSimilarDatasets(_ context.Context, rowCount int, minSizeMB, maxSizeMB float64) ([]model.Dataset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDuplicateLookups {
		return nil, errors.New("injected lookup failure")
	}
	var out []model.Dataset
	for _, ds := range f.datasets {
		if ds.Status == model.StatusProcessed && ds.RowsCount == rowCount &&
			ds.FileSizeMB >= minSizeMB && ds.FileSizeMB <= maxSizeMB {
			out = append(out, *ds)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertDatasetRows(_ context.Context, rows []model.DatasetRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rawInsertCalls++
	if f.failInsertRows {
		return errors.New("injected raw insert failure")
	}
	for _, r := range rows {
		f.rawRows[r.DatasetID] = append(f.rawRows[r.DatasetID], r)
	}
	return nil
}

func (f *fakeStore) GetDatasetRows(_ context.Context, datasetID string) ([]model.DatasetRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rawRows[datasetID], nil
}

func (f *fakeStore) InsertNormalizedRows(_ context.Context, datasetID string, rows []model.Row) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInsertNormalized {
		return errors.New("injected normalized insert failure")
	}
	f.normalizedRows[datasetID] = append(f.normalizedRows[datasetID], rows...)
	return nil
}

func (f *fakeStore) GetNormalizedRows(_ context.Context, limit int) ([]model.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Row
	for _, rows := range f.normalizedRows {
		out = append(out, rows...)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) InsertMetrics(_ context.Context, snapshot *model.MetricsSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInsertMetrics {
		return errors.New("injected metrics failure")
	}
	f.snapshots[snapshot.DatasetID] = snapshot
	return nil
}

func (f *fakeStore) GetMetrics(_ context.Context, datasetID string) (*model.MetricsSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshots[datasetID], nil
}

func (f *fakeStore) DeleteDatasetRows(_ context.Context, datasetID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rawRows, datasetID)
	return nil
}

func (f *fakeStore) DeleteNormalizedRows(_ context.Context, datasetID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.normalizedRows, datasetID)
	return nil
}

func (f *fakeStore) DeleteMetrics(_ context.Context, datasetID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.snapshots, datasetID)
	return nil
}

func (f *fakeStore) DeleteDataset(_ context.Context, datasetID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.datasets, datasetID)
	return nil
}

const sustainabilityCSV = "Supplier,Energy_Consumption_kWh,CO2_Emissions_kg,Renewable_Energy_Percentage\n" +
	"Acme,1000,100,50\n" +
	"Globex,2000,150,25\n" +
	"Initech,500,40,80\n"

func newTestPipeline(t *testing.T, s *fakeStore, chunkSize int) *Pipeline {
	t.Helper()
	p, err := NewPipeline(s, zap.NewNop(), chunkSize)
	require.NoError(t, err)
	return p
}

func csvUpload(name, content string) Upload {
	return Upload{
		Filename: name,
		Size:     int64(len(content)),
		Content:  strings.NewReader(content),
	}
}

func TestIngestSuccess(t *testing.T) {
	fs := newFakeStore()
	p := newTestPipeline(t, fs, 2)

	result, err := p.Ingest(context.Background(), csvUpload("plants.csv", sustainabilityCSV), Options{})
	require.NoError(t, err)

	assert.Equal(t, 3, result.RowsWritten, "every parsed row must be written")
	assert.Equal(t, 3, result.NormalizedRows)
	require.NotNil(t, result.Snapshot)
	assert.Equal(t, 3, result.Snapshot.TotalSuppliers)

	ds := result.Dataset
	assert.Equal(t, model.StatusProcessed, ds.Status)
	assert.Equal(t, "plants.csv", ds.OriginalFilename)
	assert.True(t, strings.HasPrefix(ds.Filename, "plants_"), "stored filename keeps base name plus timestamp")
	assert.NotContains(t, ds.Filename, ":", "timestamp colons are replaced for filesystem safety")
	assert.NotNil(t, ds.ProcessedAt)

	rows, err := fs.GetDatasetRows(context.Background(), ds.ID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, 1, rows[0].RowNumber, "row numbers are 1-based and dense")
	assert.Equal(t, 3, rows[2].RowNumber)

	// chunk size 2 over 3 rows means 2 insert calls
	assert.Equal(t, 2, fs.rawInsertCalls)
}

func TestIngestProgressSequence(t *testing.T) {
	fs := newFakeStore()
	p := newTestPipeline(t, fs, 1)

	var progress []int
	_, err := p.Ingest(context.Background(), csvUpload("plants.csv", sustainabilityCSV), Options{
		OnProgress: func(_ UploadState, pct int) {
			progress = append(progress, pct)
		},
	})
	require.NoError(t, err)

	require.NotEmpty(t, progress)
	assert.Equal(t, 100, progress[len(progress)-1])
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i], progress[i-1], "progress never regresses")
	}
}

func TestIngestRejectsSpreadsheetsBeforePersistence(t *testing.T) {
	fs := newFakeStore()
	p := newTestPipeline(t, fs, 10)

	_, err := p.Ingest(context.Background(), csvUpload("report.xlsx", "binary"), Options{})

	var unsupported *UnsupportedFileTypeError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "Excel processing not yet implemented. Please use CSV or JSON files.", unsupported.Message)
	assert.Empty(t, fs.datasets, "rejected uploads never touch the store")
}

func TestIngestRejectsUnknownExtension(t *testing.T) {
	fs := newFakeStore()
	p := newTestPipeline(t, fs, 10)

	_, err := p.Ingest(context.Background(), csvUpload("image.png", "data"), Options{})

	var unsupported *UnsupportedFileTypeError
	require.ErrorAs(t, err, &unsupported)
	assert.Contains(t, unsupported.Message, "Unsupported file type")
}

func TestIngestDuplicateByName(t *testing.T) {
	fs := newFakeStore()
	p := newTestPipeline(t, fs, 10)
	ctx := context.Background()

	_, err := p.Ingest(ctx, csvUpload("plants.csv", sustainabilityCSV), Options{})
	require.NoError(t, err)

	_, err = p.Ingest(ctx, csvUpload("plants.csv", sustainabilityCSV), Options{})
	var dup *DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, DuplicateExactName, dup.Kind)
	require.NotNil(t, dup.Matched)
	assert.Equal(t, "plants.csv", dup.Matched.OriginalFilename)

	// force bypasses detection entirely
	_, err = p.Ingest(ctx, csvUpload("plants.csv", sustainabilityCSV), Options{Force: true})
	require.NoError(t, err)
}

func TestIngestDuplicateBySimilarShape(t *testing.T) {
	fs := newFakeStore()
	p := newTestPipeline(t, fs, 10)
	ctx := context.Background()

	_, err := p.Ingest(ctx, csvUpload("first.csv", sustainabilityCSV), Options{})
	require.NoError(t, err)

	_, err = p.Ingest(ctx, csvUpload("renamed.csv", sustainabilityCSV), Options{})
	var dup *DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, DuplicateSimilarShape, dup.Kind)
}

func TestIngestDuplicateCheckFailsOpen(t *testing.T) {
	fs := newFakeStore()
	fs.failDuplicateLookups = true
	p := newTestPipeline(t, fs, 10)

	_, err := p.Ingest(context.Background(), csvUpload("plants.csv", sustainabilityCSV), Options{})
	require.NoError(t, err, "a degraded duplicate check must not block ingestion")
}

func TestIngestRollbackOnRawInsertFailure(t *testing.T) {
	fs := newFakeStore()
	fs.failInsertRows = true
	p := newTestPipeline(t, fs, 10)

	_, err := p.Ingest(context.Background(), csvUpload("plants.csv", sustainabilityCSV), Options{})

	var persistence *PersistenceError
	require.ErrorAs(t, err, &persistence)
	assert.Equal(t, "raw row insert", persistence.Step)

	assert.Empty(t, fs.datasets, "rollback removes the dataset record")
	assert.Empty(t, fs.rawRows)
	assert.Empty(t, fs.normalizedRows)
	assert.Empty(t, fs.snapshots)
}

func TestIngestRollbackOnFinalizeFailure(t *testing.T) {
	fs := newFakeStore()
	fs.failMarkProcessed = true
	p := newTestPipeline(t, fs, 10)

	_, err := p.Ingest(context.Background(), csvUpload("plants.csv", sustainabilityCSV), Options{})

	var persistence *PersistenceError
	require.ErrorAs(t, err, &persistence)
	assert.Equal(t, "dataset finalize", persistence.Step)
	assert.Empty(t, fs.datasets)
	assert.Empty(t, fs.rawRows)
}

func TestIngestNormalizedFailureDoesNotAbort(t *testing.T) {
	fs := newFakeStore()
	fs.failInsertNormalized = true
	p := newTestPipeline(t, fs, 10)

	result, err := p.Ingest(context.Background(), csvUpload("plants.csv", sustainabilityCSV), Options{})
	require.NoError(t, err)

	assert.Equal(t, 3, result.RowsWritten)
	assert.Zero(t, result.NormalizedRows)
	assert.Equal(t, model.StatusProcessed, result.Dataset.Status)
}

func TestIngestMetricsFailureDoesNotAbort(t *testing.T) {
	fs := newFakeStore()
	fs.failInsertMetrics = true
	p := newTestPipeline(t, fs, 10)

	result, err := p.Ingest(context.Background(), csvUpload("plants.csv", sustainabilityCSV), Options{})
	require.NoError(t, err)

	assert.Nil(t, result.Snapshot)
	assert.Equal(t, model.StatusProcessed, result.Dataset.Status)
}

func TestIngestSkipsMetricsWithoutSustainabilityColumns(t *testing.T) {
	fs := newFakeStore()
	p := newTestPipeline(t, fs, 10)

	csv := "name,value\nwidget,1\n"
	result, err := p.Ingest(context.Background(), csvUpload("inventory.csv", csv), Options{})
	require.NoError(t, err)

	assert.Nil(t, result.Snapshot)
	assert.Empty(t, fs.snapshots)
}

func TestIngestParseErrorBeforePersistence(t *testing.T) {
	fs := newFakeStore()
	p := newTestPipeline(t, fs, 10)

	_, err := p.Ingest(context.Background(), csvUpload("empty.csv", ""), Options{})

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Empty(t, fs.datasets)
}

func TestIngestJSONUpload(t *testing.T) {
	fs := newFakeStore()
	p := newTestPipeline(t, fs, 10)

	payload := `{"readings": [{"Supplier": "Acme", "Energy_Consumption_kWh": 1000, "CO2_Emissions_kg": 50}]}`
	result, err := p.Ingest(context.Background(), Upload{
		Filename: "export.json",
		Size:     int64(len(payload)),
		Content:  strings.NewReader(payload),
	}, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.RowsWritten)
	assert.Equal(t, "json", result.Dataset.FileType)
	require.NotNil(t, result.Snapshot)
}
