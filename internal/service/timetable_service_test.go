package service

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/export"
	"github.com/noah-isme/timetable-api/pkg/storage"
)

type flakyCSVRenderer struct {
	inner     csvRenderer
	failAfter int
	calls     int
}

func (r *flakyCSVRenderer) Render(data export.Dataset) ([]byte, error) {
	r.calls++
	if r.calls > r.failAfter {
		return nil, fmt.Errorf("render failed")
	}
	return r.inner.Render(data)
}

type fakeRunRecorder struct {
	mu   sync.Mutex
	runs []*models.GenerationRun
}

func (f *fakeRunRecorder) Create(_ context.Context, run *models.GenerationRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if run.ID == "" {
		run.ID = fmt.Sprintf("run-%d", len(f.runs)+1)
	}
	f.runs = append(f.runs, run)
	return nil
}

func (f *fakeRunRecorder) List(_ context.Context, limit int) ([]models.GenerationRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.GenerationRun, 0, limit)
	for i := len(f.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *f.runs[i])
	}
	return out, nil
}

func (f *fakeRunRecorder) FindByID(_ context.Context, id string) (*models.GenerationRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, run := range f.runs {
		if run.ID == id {
			return run, nil
		}
	}
	return nil, sql.ErrNoRows
}

type fakeTableCache struct {
	mu      sync.Mutex
	items   map[string][]byte
	sets    int
	deletes []string
}

func newFakeTableCache() *fakeTableCache {
	return &fakeTableCache{items: map[string][]byte{}}
}

func (f *fakeTableCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	payload, ok := f.items[key]
	return payload, ok, nil
}

func (f *fakeTableCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[key] = value
	f.sets++
	return nil
}

func (f *fakeTableCache) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.items, key)
		f.deletes = append(f.deletes, key)
	}
	return nil
}

func newTestService(t *testing.T, runs RunRecorder, cache TableCache) (*TimetableService, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	svc := NewTimetableService(store, runs, cache, nil, nil, nil, TimetableConfig{})
	return svc, dir
}

func sampleRequest() dto.GenerateTimetableRequest {
	return dto.GenerateTimetableRequest{
		PeriodsPerDay: 4,
		LunchPeriod:   2,
		Saturday:      "holiday",
		Sections: []dto.SectionRequest{
			{
				ID: "Grade 5 A",
				Subjects: []dto.SubjectLoadRequest{
					{Subject: "Mathematics", Teacher: "Asha", WeeklyPeriods: 4},
					{Subject: "English", Teacher: "Binod", WeeklyPeriods: 4},
					{Subject: "Science", Teacher: "Chitra", WeeklyPeriods: 3},
				},
			},
			{
				ID: "Grade 5 B",
				Subjects: []dto.SubjectLoadRequest{
					{Subject: "Mathematics", Teacher: "Asha", WeeklyPeriods: 3},
					{Subject: "English", Teacher: "Binod", WeeklyPeriods: 3},
					{Subject: "Art", Teacher: "Dia", WeeklyPeriods: 3},
				},
			},
		},
	}
}

func TestTimetableServiceGenerate(t *testing.T) {
	recorder := &fakeRunRecorder{}
	svc, dir := newTestService(t, recorder, nil)

	resp, err := svc.Generate(context.Background(), sampleRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, 2, resp.Sections)
	assert.Equal(t, 4, resp.Teachers)
	assert.Len(t, resp.Entities, 6)
	assert.Len(t, resp.Tables, 6)

	for _, filename := range []string{"section_Grade_5_A.csv", "section_Grade_5_B.csv", "teacher_Asha.csv", "teacher_Dia.csv"} {
		_, statErr := os.Stat(filepath.Join(dir, filename))
		assert.NoError(t, statErr, filename)
	}

	require.Len(t, recorder.runs, 1)
	assert.Equal(t, models.GenerationRunSucceeded, recorder.runs[0].Status)
	assert.Equal(t, 2, recorder.runs[0].Sections)
	assert.Equal(t, 4, recorder.runs[0].Teachers)
}

func TestTimetableServiceGenerateValidatesPayload(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)

	_, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{
		PeriodsPerDay: 4,
		LunchPeriod:   2,
		Saturday:      "holiday",
	})
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestTimetableServiceGenerateRejectsOverfilledSection(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)

	req := sampleRequest()
	req.Sections = req.Sections[:1]
	req.Sections[0].Subjects[0].WeeklyPeriods = 20

	_, err := svc.Generate(context.Background(), req)
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "sections[0]")
}

func TestTimetableServiceGenerateReportsConflict(t *testing.T) {
	recorder := &fakeRunRecorder{}
	svc, _ := newTestService(t, recorder, nil)

	req := dto.GenerateTimetableRequest{
		PeriodsPerDay: 2,
		LunchPeriod:   1,
		Saturday:      "holiday",
		Sections: []dto.SectionRequest{
			{ID: "Grade 9 A", Subjects: []dto.SubjectLoadRequest{
				{Subject: "Mathematics", Teacher: "Asha", WeeklyPeriods: 5},
			}},
			{ID: "Grade 9 B", Subjects: []dto.SubjectLoadRequest{
				{Subject: "Science", Teacher: "Asha", WeeklyPeriods: 1},
			}},
		},
	}

	_, err := svc.Generate(context.Background(), req)
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrSchedulingConflict.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "Grade 9 B")
	assert.Contains(t, appErr.Message, "Asha")

	require.Len(t, recorder.runs, 1)
	assert.Equal(t, models.GenerationRunFailed, recorder.runs[0].Status)

	assert.Empty(t, svc.List(context.Background()))
}

func TestTimetableServiceGenerateIsDeterministic(t *testing.T) {
	svc, dir := newTestService(t, nil, nil)

	_, err := svc.Generate(context.Background(), sampleRequest())
	require.NoError(t, err)
	first, err := os.ReadFile(filepath.Join(dir, "section_Grade_5_A.csv"))
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), sampleRequest())
	require.NoError(t, err)
	second, err := os.ReadFile(filepath.Join(dir, "section_Grade_5_A.csv"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestTimetableServiceFetch(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)

	_, err := svc.Generate(context.Background(), sampleRequest())
	require.NoError(t, err)

	table, err := svc.Fetch(context.Background(), "Grade 5 A")
	require.NoError(t, err)
	assert.Equal(t, "Grade 5 A", table.Entity)
	assert.Equal(t, "section", table.Kind)
	assert.Len(t, table.Rows, 5)

	teacherTable, err := svc.Fetch(context.Background(), "Asha")
	require.NoError(t, err)
	assert.Equal(t, "teacher", teacherTable.Kind)
}

func TestTimetableServiceFetchUnknownEntity(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)

	_, err := svc.Generate(context.Background(), sampleRequest())
	require.NoError(t, err)

	_, err = svc.Fetch(context.Background(), "Grade 12 Z")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceFetchUsesCache(t *testing.T) {
	cache := newFakeTableCache()
	svc, _ := newTestService(t, nil, cache)

	_, err := svc.Generate(context.Background(), sampleRequest())
	require.NoError(t, err)

	first, err := svc.Fetch(context.Background(), "Grade 5 A")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)

	second, err := svc.Fetch(context.Background(), "Grade 5 A")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, first, second)
}

func TestTimetableServiceGenerateInvalidatesCache(t *testing.T) {
	cache := newFakeTableCache()
	svc, _ := newTestService(t, nil, cache)

	_, err := svc.Generate(context.Background(), sampleRequest())
	require.NoError(t, err)
	_, err = svc.Fetch(context.Background(), "Grade 5 A")
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Contains(t, cache.deletes, "timetable:table:Grade 5 A")
}

func TestTimetableServiceGenerateFailedRenderLeavesPreviousRun(t *testing.T) {
	svc, dir := newTestService(t, nil, nil)

	_, err := svc.Generate(context.Background(), sampleRequest())
	require.NoError(t, err)
	path := filepath.Join(dir, "section_Grade_5_A.csv")
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	// The first two tables render fine, the third fails. Nothing may reach
	// the disk and the previous run keeps serving.
	svc.csv = &flakyCSVRenderer{inner: export.NewCSVExporter(), failAfter: 2}
	req := sampleRequest()
	req.Sections[0].Subjects[0].Subject = "Algebra"
	_, err = svc.Generate(context.Background(), req)
	require.Error(t, err)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after, "previous exports must survive a failed run")

	table, err := svc.Fetch(context.Background(), "Grade 5 A")
	require.NoError(t, err)
	assert.NotContains(t, fmt.Sprint(table.Rows), "Algebra")
}

func TestTimetableServiceRunHistory(t *testing.T) {
	recorder := &fakeRunRecorder{}
	svc, _ := newTestService(t, recorder, nil)

	_, err := svc.Generate(context.Background(), sampleRequest())
	require.NoError(t, err)

	runs, err := svc.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.GenerationRunSucceeded, runs[0].Status)

	run, err := svc.FetchRun(context.Background(), runs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, runs[0].ID, run.ID)

	_, err = svc.FetchRun(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceRunHistoryDisabled(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)

	_, err := svc.ListRuns(context.Background(), 10)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceOpenCSV(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)

	_, err := svc.Generate(context.Background(), sampleRequest())
	require.NoError(t, err)

	file, filename, err := svc.OpenCSV(context.Background(), "Grade 5 B")
	require.NoError(t, err)
	defer file.Close()
	assert.Equal(t, "section_Grade_5_B.csv", filename)
}

func TestTimetableServiceRenderPDF(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)

	_, err := svc.Generate(context.Background(), sampleRequest())
	require.NoError(t, err)

	payload, filename, err := svc.RenderPDF(context.Background(), "Asha")
	require.NoError(t, err)
	assert.Equal(t, "teacher_Asha.pdf", filename)
	assert.NotEmpty(t, payload)
}
