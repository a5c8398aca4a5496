// Package telemetry keeps a local sqlite history of power readings so that
// consumption across scheduled on-windows can be inspected after the fact.
package telemetry

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tbeckett/wittypid/internal/wittypi"
)

const schema = `
CREATE TABLE IF NOT EXISTS readings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ts TEXT NOT NULL,
	voltage_in REAL NOT NULL,
	voltage_out REAL NOT NULL,
	current_out REAL NOT NULL,
	watts_out REAL NOT NULL,
	temperature_c REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_readings_ts ON readings(ts);
`

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open telemetry database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize telemetry schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends one status snapshot taken at ts.
func (s *Store) Record(ts time.Time, st wittypi.Status) error {
	_, err := s.db.Exec(
		`INSERT INTO readings (ts, voltage_in, voltage_out, current_out, watts_out, temperature_c) VALUES (?, ?, ?, ?, ?, ?)`,
		ts.UTC().Format(time.RFC3339), st.VoltageIn, st.VoltageOut, st.CurrentOut, st.WattsOut, st.TemperatureC,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}
	return nil
}

type Reading struct {
	TS           time.Time
	VoltageIn    float64
	VoltageOut   float64
	CurrentOut   float64
	WattsOut     float64
	TemperatureC float64
}

// Since returns readings at or after t, oldest first.
func (s *Store) Since(t time.Time) ([]Reading, error) {
	rows, err := s.db.Query(
		`SELECT ts, voltage_in, voltage_out, current_out, watts_out, temperature_c FROM readings WHERE ts >= ? ORDER BY ts ASC`,
		t.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	var out []Reading
	for rows.Next() {
		var r Reading
		var ts string
		if err := rows.Scan(&ts, &r.VoltageIn, &r.VoltageOut, &r.CurrentOut, &r.WattsOut, &r.TemperatureC); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		r.TS, err = time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("failed to parse reading timestamp %q: %w", ts, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Prune drops readings older than keep and returns how many were removed.
func (s *Store) Prune(keep time.Duration) (int64, error) {
	cutoff := time.Now().Add(-keep).UTC().Format(time.RFC3339)
	res, err := s.db.Exec(`DELETE FROM readings WHERE ts < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune readings: %w", err)
	}
	return res.RowsAffected()
}
