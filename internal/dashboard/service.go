// Package dashboard assembles everything the dashboard shows from the
// cached workbook and the user's filter state.
package dashboard

import (
	"context"
	"time"

	"kpidash/domain/core"
	"kpidash/domain/dataset"
	"kpidash/internal"
	"kpidash/internal/cache"
	"kpidash/internal/charts"
	"kpidash/internal/config"
	"kpidash/internal/errors"
	"kpidash/internal/filters"
	"kpidash/internal/loader"
	"kpidash/models"
	"kpidash/ports"
)

// Settings control what the service loads and how much it shows
type Settings struct {
	Loader         loader.Options
	TableMaxRows   int
	RankingTopN    int
	ComparisonTopN int
	ChartWidth     int
	ChartHeight    int
	Palette        charts.Palette
}

// DefaultSettings returns the presentation defaults for path
func DefaultSettings(path string) Settings {
	return Settings{
		Loader:         loader.DefaultOptions(path),
		TableMaxRows:   100,
		RankingTopN:    15,
		ComparisonTopN: 10,
		ChartWidth:     charts.DefaultWidth,
		ChartHeight:    charts.DefaultHeight,
		Palette:        charts.DefaultPalette,
	}
}

// SettingsFromConfig maps the application configuration
func SettingsFromConfig(cfg *config.Config) Settings {
	s := DefaultSettings(cfg.Data.ExcelFile)
	s.Loader.Sheet = cfg.Data.Sheet
	s.Loader.MaxFileSize = cfg.Data.MaxFileSizeBytes()
	s.Loader.MaxStringLength = cfg.Data.MaxStringLength
	s.Loader.DropColumns = cfg.Data.DropColumns
	s.Loader.MinDate = cfg.Data.MinDate
	s.Loader.MaxDate = cfg.Data.MaxDate
	s.TableMaxRows = cfg.Dashboard.TableMaxRows
	s.RankingTopN = cfg.Dashboard.RankingTopN
	s.ComparisonTopN = cfg.Dashboard.ComparisonTopN
	s.ChartWidth = cfg.Dashboard.ChartWidth
	s.ChartHeight = cfg.Dashboard.ChartHeight
	return s
}

// Service loads the workbook through the cache and builds views
type Service struct {
	settings  Settings
	cache     *cache.Cache[*loader.Result]
	history   ports.LoadHistoryRepository
	telemetry *Telemetry
	logger    *internal.Logger
}

// NewService wires a service. history and telemetry may be nil.
func NewService(settings Settings, c *cache.Cache[*loader.Result], history ports.LoadHistoryRepository, telemetry *Telemetry) *Service {
	if c == nil {
		c = cache.New[*loader.Result](cache.DefaultTTL)
	}
	return &Service{
		settings:  settings,
		cache:     c,
		history:   history,
		telemetry: telemetry,
		logger:    internal.DefaultLogger.Named("Dashboard"),
	}
}

// Settings returns the service settings
func (s *Service) Settings() Settings {
	return s.settings
}

// Path is the workbook the service reads
func (s *Service) Path() string {
	return s.settings.Loader.Path
}

// Load returns the processed workbook, from the cache when fresh
func (s *Service) Load(ctx context.Context) (*loader.Result, error) {
	res, hit, err := s.cache.Get(ctx, s.Path(), s.load)
	if err != nil {
		return nil, err
	}
	if hit {
		s.telemetry.observeLoad(ResultCacheHit, 0, res.Table.NumRows())
	}
	return res, nil
}

func (s *Service) load(ctx context.Context) (*loader.Result, error) {
	start := time.Now()
	res, err := loader.New(s.settings.Loader).Load(ctx)
	elapsed := time.Since(start)

	record := &models.LoadRecord{
		SourceFile: s.Path(),
		Sheet:      s.settings.Loader.Sheet,
		DurationMS: elapsed.Milliseconds(),
	}
	if err != nil {
		record.Status = models.LoadStatusError
		record.ErrorCode = errors.GetCode(err)
		record.ErrorMessage = err.Error()
		s.telemetry.observeLoad(ResultError, elapsed, 0)
		s.logger.Error("loading %s failed (%s): %v", s.Path(), failureKind(err), err)
	} else {
		record.Status = models.LoadStatusSuccess
		record.Sheet = res.Summary.SourceSheet
		record.Fingerprint = res.Summary.Fingerprint.String()
		record.Rows = res.Summary.TotalRows
		record.Columns = res.Summary.TotalColumns
		record.NumericColumns = res.Summary.NumericColumns
		s.telemetry.observeLoad(ResultSuccess, elapsed, res.Table.NumRows())
	}
	s.recordHistory(ctx, record)

	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s", s.Path())
	}
	return res, nil
}

// recordHistory never fails a load; a broken history store is only logged
func (s *Service) recordHistory(ctx context.Context, record *models.LoadRecord) {
	if s.history == nil {
		return
	}
	if err := s.history.Record(ctx, record); err != nil {
		s.logger.Warn("could not record load history: %v", err)
	}
}

// Reload drops the cached table so the next request reads the workbook again
func (s *Service) Reload() {
	s.cache.Invalidate(s.Path())
	s.logger.Info("cache invalidated for %s", s.Path())
}

// LoadedAt is when the cached table was read
func (s *Service) LoadedAt() (time.Time, bool) {
	return s.cache.LoadedAt(s.Path())
}

// CacheStats exposes cache counters
func (s *Service) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// History lists recent loads, newest first
func (s *Service) History(ctx context.Context, limit int) ([]*models.LoadRecord, error) {
	if s.history == nil {
		return nil, nil
	}
	records, err := s.history.Recent(ctx, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read load history")
	}
	return records, nil
}

// Filtered loads the table and applies the filter state
func (s *Service) Filtered(ctx context.Context, state filters.State) (*loader.Result, *dataset.Table, error) {
	res, err := s.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	return res, filters.Apply(res.Table, state), nil
}

func failureKind(err error) string {
	switch {
	case core.IsFileError(err):
		return "file"
	case core.IsTableError(err):
		return "table"
	}
	return "other"
}
