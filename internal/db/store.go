// Package db reads the station catalog from Postgres.
package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/printobs/printobs/internal/catalog"
	"github.com/printobs/printobs/internal/models"
)

// Store wraps database access helpers.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store backed by a pgx pool.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks the connection. The pool connects lazily, so New alone does not.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const listStationsSQL = `
    SELECT alias, station_id, type_ids, abbrev
    FROM printobs.stations
    ORDER BY position, alias
`

type stationRow interface {
	Scan(dest ...any) error
}

func scanStation(row stationRow) (models.StationSpec, error) {
	var (
		st      models.StationSpec
		typeIDs *string
		abbrev  *string
	)
	if err := row.Scan(&st.Alias, &st.StationID, &typeIDs, &abbrev); err != nil {
		return st, err
	}
	if typeIDs != nil {
		st.TypeIDs = *typeIDs
	}
	if abbrev != nil {
		st.Abbrev = *abbrev
	}
	return st, nil
}

// ListStations returns all stations in listing order.
func (s *Store) ListStations(ctx context.Context) ([]models.StationSpec, error) {
	rows, err := s.pool.Query(ctx, listStationsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stations := make([]models.StationSpec, 0)
	for rows.Next() {
		st, err := scanStation(rows)
		if err != nil {
			return nil, err
		}
		stations = append(stations, st)
	}
	return stations, rows.Err()
}

// Stations loads the full table as a station catalog.
func (s *Store) Stations(ctx context.Context) (*catalog.Stations, error) {
	specs, err := s.ListStations(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.NewStations(specs)
}
