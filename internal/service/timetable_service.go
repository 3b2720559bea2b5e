package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/engine"
	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/export"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// RunRecorder persists and reads back generation run audit records.
type RunRecorder interface {
	Create(ctx context.Context, run *models.GenerationRun) error
	List(ctx context.Context, limit int) ([]models.GenerationRun, error)
	FindByID(ctx context.Context, id string) (*models.GenerationRun, error)
}

// TableCache caches materialized tables between fetches.
type TableCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// TimetableConfig tunes generation limits and caching.
type TimetableConfig struct {
	MaxSections int
	TableTTL    time.Duration
	CacheTTL    time.Duration
}

// TimetableService orchestrates the engine pipeline: constraint model, slot
// allocation, materialization and export. Each Generate call runs against its
// own model and assignment; the only shared state is the table store.
type TimetableService struct {
	storage   fileStorage
	csv       csvRenderer
	pdf       pdfRenderer
	runs      RunRecorder
	cache     TableCache
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	store     *tableStore
	cfg       TimetableConfig
}

// NewTimetableService wires generation dependencies. The run recorder, cache
// and metrics collaborators are optional.
func NewTimetableService(
	storage fileStorage,
	runs RunRecorder,
	cache TableCache,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxSections <= 0 {
		cfg.MaxSections = 64
	}
	if cfg.TableTTL <= 0 {
		cfg.TableTTL = 24 * time.Hour
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	return &TimetableService{
		storage:   storage,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		runs:      runs,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		store:     newTableStore(cfg.TableTTL),
		cfg:       cfg,
	}
}

// Generate runs the full pipeline and persists one CSV per section and per
// teacher. Failures leave the previously generated tables untouched.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable generation payload")
	}
	if len(req.Sections) > s.cfg.MaxSections {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("at most %d sections are supported per request", s.cfg.MaxSections))
	}

	model, err := engine.NewModel(toEngineInput(req))
	if err != nil {
		var vErr *engine.ValidationError
		if errors.As(err, &vErr) {
			return nil, appErrors.Wrap(vErr, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, vErr.Error())
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build constraint model")
	}

	start := time.Now()
	allocator := engine.NewAllocator(model)
	assignment, err := allocator.Solve()
	if err != nil {
		var conflict *engine.ConflictError
		if errors.As(err, &conflict) {
			s.metrics.ObserveGeneration("conflict", time.Since(start), allocator.Steps(), 0)
			s.recordRun(ctx, models.GenerationRunFailed, model, allocator.Steps(), conflict)
			domainErr := &models.SchedulingConflictError{Section: conflict.Section, Subject: conflict.Subject, Teacher: conflict.Teacher}
			return nil, appErrors.Wrap(domainErr, appErrors.ErrSchedulingConflict.Code, appErrors.ErrSchedulingConflict.Status, domainErr.Error())
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "allocator failed")
	}

	tables, err := engine.Materialize(model, assignment)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to materialize assignment")
	}
	duration := time.Since(start)

	runID := uuid.NewString()
	entities := make([]dto.TimetableEntity, 0, len(tables))
	views := make([]dto.TimetableTable, 0, len(tables))
	payloads := make([][]byte, 0, len(tables))
	// Render the whole set before writing anything so a failed table leaves
	// the previous run's files untouched on disk.
	for _, table := range tables {
		payload, renderErr := s.csv.Render(toDataset(table))
		if renderErr != nil {
			return nil, appErrors.Wrap(renderErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable csv")
		}
		payloads = append(payloads, payload)
		entities = append(entities, dto.TimetableEntity{ID: table.Entity, Kind: string(table.Kind), Filename: exportFilename(table)})
		views = append(views, toView(table))
	}
	for i, entity := range entities {
		if _, saveErr := s.storage.Save(entity.Filename, payloads[i]); saveErr != nil {
			return nil, appErrors.Wrap(saveErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist timetable csv")
		}
	}

	stale := s.store.Replace(runID, entities, views)
	s.invalidateCache(ctx, stale)

	slots := 0
	for _, cells := range assignment {
		slots += len(cells)
	}
	s.metrics.ObserveGeneration("success", duration, allocator.Steps(), slots)
	s.recordRun(ctx, models.GenerationRunSucceeded, model, allocator.Steps(), nil)

	s.logger.Sugar().Infow("timetable generated",
		"run_id", runID,
		"sections", len(model.Sections()),
		"teachers", len(model.Teachers()),
		"slots", slots,
		"backtrack_steps", allocator.Steps(),
		"duration", duration,
	)

	return &dto.GenerateTimetableResponse{
		RunID:    runID,
		Sections: len(model.Sections()),
		Teachers: len(model.Teachers()),
		Entities: entities,
		Tables:   views,
	}, nil
}

// List returns the entities produced by the latest successful run.
func (s *TimetableService) List(ctx context.Context) []dto.TimetableEntity {
	return s.store.Entities()
}

// Fetch returns the materialized table for one entity.
func (s *TimetableService) Fetch(ctx context.Context, entityID string) (*dto.TimetableTable, error) {
	if entityID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "entity id is required")
	}

	key := tableCacheKey(entityID)
	if s.cache != nil {
		payload, hit, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Sugar().Warnw("table cache lookup failed", "entity", entityID, "error", err)
		}
		s.metrics.RecordCacheLookup(hit)
		if hit {
			var table dto.TimetableTable
			if err := json.Unmarshal(payload, &table); err == nil {
				return &table, nil
			}
		}
	}

	table, ok := s.store.Table(entityID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no generated timetable for %q", entityID))
	}

	if s.cache != nil {
		if payload, err := json.Marshal(table); err == nil {
			if err := s.cache.Set(ctx, key, payload, s.cfg.CacheTTL); err != nil {
				s.logger.Sugar().Warnw("table cache write failed", "entity", entityID, "error", err)
			}
		}
	}
	return &table, nil
}

// OpenCSV returns a read handle on the persisted CSV for the entity.
func (s *TimetableService) OpenCSV(ctx context.Context, entityID string) (*os.File, string, error) {
	entity, ok := s.store.Entity(entityID)
	if !ok {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no generated timetable for %q", entityID))
	}
	file, err := s.storage.Open(entity.Filename)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "timetable file missing from storage")
	}
	return file, entity.Filename, nil
}

// RenderPDF renders the entity's table to PDF on demand.
func (s *TimetableService) RenderPDF(ctx context.Context, entityID string) ([]byte, string, error) {
	table, ok := s.store.Table(entityID)
	if !ok {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no generated timetable for %q", entityID))
	}
	payload, err := s.pdf.Render(export.Dataset{Headers: table.Headers, Rows: rowMaps(table)}, table.Title)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable pdf")
	}
	filename := strings.TrimSuffix(tableFilename(table.Kind, table.Entity), ".csv") + ".pdf"
	return payload, filename, nil
}

// ListRuns returns recent generation run records, newest first. It requires
// the run log to be enabled.
func (s *TimetableService) ListRuns(ctx context.Context, limit int) ([]models.GenerationRun, error) {
	if s.runs == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "generation run log is not enabled")
	}
	runs, err := s.runs.List(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list generation runs")
	}
	return runs, nil
}

// FetchRun returns one generation run record by id.
func (s *TimetableService) FetchRun(ctx context.Context, id string) (*models.GenerationRun, error) {
	if s.runs == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "generation run log is not enabled")
	}
	run, err := s.runs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no generation run %q", id))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load generation run")
	}
	return run, nil
}

// CleanupExports removes persisted files older than ttl.
func (s *TimetableService) CleanupExports(ttl time.Duration) ([]string, error) {
	return s.storage.CleanupOlderThan(ttl)
}

func (s *TimetableService) invalidateCache(ctx context.Context, stale []dto.TimetableEntity) {
	if s.cache == nil || len(stale) == 0 {
		return
	}
	keys := make([]string, 0, len(stale))
	for _, entity := range stale {
		keys = append(keys, tableCacheKey(entity.ID))
	}
	if err := s.cache.Del(ctx, keys...); err != nil {
		s.logger.Sugar().Warnw("table cache invalidation failed", "keys", len(keys), "error", err)
	}
}

func (s *TimetableService) recordRun(ctx context.Context, status models.GenerationRunStatus, model *engine.Model, steps int, conflict *engine.ConflictError) {
	if s.runs == nil {
		return
	}
	meta := map[string]any{"backtrackSteps": steps}
	if conflict != nil {
		meta["conflict"] = map[string]string{
			"section": conflict.Section,
			"subject": conflict.Subject,
			"teacher": conflict.Teacher,
		}
	}
	payload, err := json.Marshal(meta)
	if err != nil {
		payload = []byte(`{}`)
	}
	run := &models.GenerationRun{
		Status:   status,
		Sections: len(model.Sections()),
		Teachers: len(model.Teachers()),
		Meta:     types.JSONText(payload),
	}
	if err := s.runs.Create(ctx, run); err != nil {
		s.logger.Sugar().Warnw("failed to record generation run", "status", status, "error", err)
	}
}

// --- Table store ---

// tableStore keeps the latest successful run's tables, guarded for
// concurrent readers. Entries expire together after the configured TTL.
type tableStore struct {
	ttl         time.Duration
	mu          sync.RWMutex
	runID       string
	entities    []dto.TimetableEntity
	tables      map[string]dto.TimetableTable
	generatedAt time.Time
}

func newTableStore(ttl time.Duration) *tableStore {
	return &tableStore{ttl: ttl, tables: make(map[string]dto.TimetableTable)}
}

// Replace swaps in a new run's tables and returns the displaced entities.
func (s *tableStore) Replace(runID string, entities []dto.TimetableEntity, tables []dto.TimetableTable) []dto.TimetableEntity {
	s.mu.Lock()
	defer s.mu.Unlock()
	stale := s.entities
	s.runID = runID
	s.entities = entities
	s.tables = make(map[string]dto.TimetableTable, len(tables))
	for _, table := range tables {
		s.tables[table.Entity] = table
	}
	s.generatedAt = time.Now().UTC()
	return stale
}

func (s *tableStore) expired() bool {
	return s.generatedAt.IsZero() || time.Since(s.generatedAt) > s.ttl
}

func (s *tableStore) Entities() []dto.TimetableEntity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.expired() {
		return []dto.TimetableEntity{}
	}
	out := make([]dto.TimetableEntity, len(s.entities))
	copy(out, s.entities)
	return out
}

func (s *tableStore) Table(entityID string) (dto.TimetableTable, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.expired() {
		return dto.TimetableTable{}, false
	}
	table, ok := s.tables[entityID]
	return table, ok
}

func (s *tableStore) Entity(entityID string) (dto.TimetableEntity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.expired() {
		return dto.TimetableEntity{}, false
	}
	for _, entity := range s.entities {
		if entity.ID == entityID {
			return entity, true
		}
	}
	return dto.TimetableEntity{}, false
}

// --- Mapping helpers ---

func toEngineInput(req dto.GenerateTimetableRequest) engine.Input {
	input := engine.Input{
		Grid: engine.GridInput{
			PeriodsPerDay: req.PeriodsPerDay,
			LunchPeriod:   req.LunchPeriod,
			Saturday:      engine.SaturdayMode(req.Saturday),
		},
	}
	for _, section := range req.Sections {
		loads := make([]engine.SubjectLoad, 0, len(section.Subjects))
		for _, subject := range section.Subjects {
			loads = append(loads, engine.SubjectLoad{
				Subject:       subject.Subject,
				Teacher:       subject.Teacher,
				WeeklyPeriods: subject.WeeklyPeriods,
			})
		}
		input.Sections = append(input.Sections, engine.SectionInput{ID: section.ID, Loads: loads})
	}
	return input
}

func toView(table engine.Table) dto.TimetableTable {
	return dto.TimetableTable{
		Entity:  table.Entity,
		Kind:    string(table.Kind),
		Title:   table.Title,
		Headers: table.Headers,
		Rows:    table.Rows,
	}
}

func toDataset(table engine.Table) export.Dataset {
	rows := make([]map[string]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		record := make(map[string]string, len(table.Headers))
		for i, header := range table.Headers {
			if i < len(row) {
				record[header] = row[i]
			}
		}
		rows = append(rows, record)
	}
	return export.Dataset{Headers: table.Headers, Rows: rows}
}

func rowMaps(table dto.TimetableTable) []map[string]string {
	rows := make([]map[string]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		record := make(map[string]string, len(table.Headers))
		for i, header := range table.Headers {
			if i < len(row) {
				record[header] = row[i]
			}
		}
		rows = append(rows, record)
	}
	return rows
}

func exportFilename(table engine.Table) string {
	return tableFilename(string(table.Kind), table.Entity)
}

func tableFilename(kind, entity string) string {
	return fmt.Sprintf("%s_%s.csv", kind, sanitizeIdentifier(entity))
}

func sanitizeIdentifier(raw string) string {
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_", "..", "_")
	return replacer.Replace(raw)
}

func tableCacheKey(entityID string) string {
	return "timetable:table:" + entityID
}
