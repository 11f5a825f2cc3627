// Package obs runs the fetch, reconcile and sort pipeline for one station.
package obs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/printobs/printobs/internal/catalog"
	"github.com/printobs/printobs/internal/config"
	"github.com/printobs/printobs/internal/db"
	"github.com/printobs/printobs/internal/frost"
	"github.com/printobs/printobs/internal/models"
	"github.com/printobs/printobs/internal/reconcile"
	"github.com/printobs/printobs/internal/table"
	"github.com/printobs/printobs/internal/timerange"
)

// Fetcher performs the remote query.
type Fetcher interface {
	Fetch(ctx context.Context, req frost.Request) (*frost.Response, error)
}

// Query selects one station and time range.
type Query struct {
	Station string
	Range   timerange.Input
	Version frost.Version
	// TypeIDs overrides the station's instrument filter.
	TypeIDs string
}

// Result is the outcome of a successful run.
type Result struct {
	Station  models.StationSpec
	Interval timerange.Interval
	Response *frost.Response
	Table    *models.Table
}

// Service holds the catalogs and the fetcher. It is safe for concurrent use.
type Service struct {
	fetcher      Fetcher
	vars         *catalog.Variables
	stations     *catalog.Stations
	reconciler   *reconcile.Reconciler
	fetchTimeout time.Duration
	logger       *zap.Logger
}

// New creates a Service. A zero fetchTimeout leaves the caller's deadline alone.
func New(fetcher Fetcher, vars *catalog.Variables, stations *catalog.Stations, fetchTimeout time.Duration, logger *zap.Logger) *Service {
	return &Service{
		fetcher:      fetcher,
		vars:         vars,
		stations:     stations,
		reconciler:   reconcile.New(vars, logger),
		fetchTimeout: fetchTimeout,
		logger:       logger,
	}
}

// Variables returns the variable catalog.
func (s *Service) Variables() *catalog.Variables {
	return s.vars
}

// Stations returns the station catalog.
func (s *Service) Stations() *catalog.Stations {
	return s.stations
}

// Run resolves the interval, fetches every catalog variable for the station in
// one request and returns the reconciled table in display order.
func (s *Service) Run(ctx context.Context, q Query, now time.Time) (*Result, error) {
	station, err := s.stations.Queryable(q.Station)
	if err != nil {
		return nil, err
	}

	interval, err := timerange.Resolve(q.Range, now)
	if err != nil {
		return nil, err
	}

	version := q.Version
	if version == "" {
		version = frost.V1
	}

	fetchCtx := ctx
	if s.fetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
	}

	started := time.Now()
	resp, err := s.fetcher.Fetch(fetchCtx, frost.Request{
		Interval:  interval,
		Station:   station,
		Variables: s.vars,
		Version:   version,
		TypeIDs:   q.TypeIDs,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info(fmt.Sprintf("time used for api call: %.2f seconds", time.Since(started).Seconds()),
		zap.String("station", station.Alias))

	t, err := s.reconciler.ReconcileResponse(station.Alias, resp)
	if err != nil {
		return nil, err
	}

	return &Result{
		Station:  station,
		Interval: interval,
		Response: resp,
		Table:    table.Sort(t, s.vars),
	}, nil
}

// LoadCatalogs reads the variable catalog from cfg.VariablesPath and the station
// catalog from Postgres when cfg.CatalogDatabaseURL is set, else from
// cfg.StationsPath. Empty paths select the embedded defaults.
func LoadCatalogs(ctx context.Context, cfg config.Config, logger *zap.Logger) (*catalog.Variables, *catalog.Stations, error) {
	vars, err := catalog.LoadVariablesFile(cfg.VariablesPath)
	if err != nil {
		return nil, nil, fmt.Errorf("variable catalog: %w", err)
	}

	if cfg.CatalogDatabaseURL == "" {
		stations, err := catalog.LoadStationsFile(cfg.StationsPath)
		if err != nil {
			return nil, nil, fmt.Errorf("station catalog: %w", err)
		}
		return vars, stations, nil
	}

	store, err := db.New(ctx, cfg.CatalogDatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("station catalog db: %w", err)
	}
	defer store.Close()

	if err := store.Ping(ctx); err != nil {
		return nil, nil, fmt.Errorf("station catalog db unreachable: %w", err)
	}
	stations, err := store.Stations(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("station catalog db: %w", err)
	}
	logger.Debug("station catalog loaded from database", zap.Int("stations", stations.Len()))
	return vars, stations, nil
}

// NewFrostClient builds the fetcher described by cfg.
func NewFrostClient(cfg config.Config, logger *zap.Logger) *frost.Client {
	return frost.NewClient(cfg.FrostConfig(), &http.Client{Timeout: cfg.RequestTimeout}, logger)
}

// Status maps a pipeline error to an HTTP status code.
func Status(err error) int {
	var (
		dateErr  *timerange.DateParseError
		rangeErr *timerange.InvalidRangeError
		empty    *reconcile.EmptyResultError
		fetchErr *frost.FetchError
		tErr     *frost.TransportError
		mErr     *frost.MalformedResponseError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &dateErr), errors.As(err, &rangeErr), errors.Is(err, frost.ErrUnknownVersion):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrStationNotFound), errors.As(err, &empty):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrStationIDNotConfigured):
		return http.StatusUnprocessableEntity
	case errors.As(err, &fetchErr), errors.As(err, &tErr), errors.As(err, &mErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
