// Package benchmark serves reference-codec rate-distortion curves from a
// SQLite database. Curves are read-only borrows: the training runner never
// mutates them, it only merges them into comparisons.
package benchmark

import (
	"database/sql"
	"fmt"

	"github.com/lidq92/compresstrain/plot"
)

const schema = `
CREATE TABLE IF NOT EXISTS rd_points (
	codec   TEXT    NOT NULL,
	dataset TEXT    NOT NULL,
	seq     INTEGER NOT NULL,
	bpp     REAL    NOT NULL,
	psnr    REAL    NOT NULL,
	PRIMARY KEY (codec, dataset, seq)
);`

// Store reads reference RD curves keyed by codec and dataset.
type Store struct {
	db *sql.DB
}

// Open opens the database at path. The caller must have imported a sqlite
// driver (the cmd and tests use modernc.org/sqlite).
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open benchmark store: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStore wraps an existing database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Init creates the schema if it does not exist.
func (s *Store) Init() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("init benchmark schema: %w", err)
	}
	return nil
}

// InsertPoint adds one RD point. seq orders points within a curve.
func (s *Store) InsertPoint(codec, dataset string, seq int, bpp, psnr float64) error {
	_, err := s.db.Exec(
		`INSERT INTO rd_points (codec, dataset, seq, bpp, psnr) VALUES (?, ?, ?, ?, ?)`,
		codec, dataset, seq, bpp, psnr,
	)
	if err != nil {
		return fmt.Errorf("insert rd point: %w", err)
	}
	return nil
}

// Series returns the curve for one codec on one dataset, in seq order. An
// unknown codec/dataset pair yields an error rather than an empty curve.
func (s *Store) Series(dataset, codec string) (plot.RDSeries, error) {
	rows, err := s.db.Query(
		`SELECT bpp, psnr FROM rd_points WHERE dataset = ? AND codec = ? ORDER BY seq`,
		dataset, codec,
	)
	if err != nil {
		return plot.RDSeries{}, fmt.Errorf("query rd series: %w", err)
	}
	defer rows.Close()

	series := plot.RDSeries{Name: codec}
	for rows.Next() {
		var bpp, psnr float64
		if err := rows.Scan(&bpp, &psnr); err != nil {
			return plot.RDSeries{}, fmt.Errorf("scan rd point: %w", err)
		}
		series.BPP = append(series.BPP, bpp)
		series.PSNR = append(series.PSNR, psnr)
	}
	if err := rows.Err(); err != nil {
		return plot.RDSeries{}, fmt.Errorf("iterate rd points: %w", err)
	}
	if series.Len() == 0 {
		return plot.RDSeries{}, fmt.Errorf("no rd points for codec %q on dataset %q", codec, dataset)
	}
	return series, nil
}

// SeriesSet returns the curves for the named codecs, in the given order.
func (s *Store) SeriesSet(dataset string, codecs []string) ([]plot.RDSeries, error) {
	set := make([]plot.RDSeries, 0, len(codecs))
	for _, codec := range codecs {
		series, err := s.Series(dataset, codec)
		if err != nil {
			return nil, err
		}
		set = append(set, series)
	}
	return set, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
