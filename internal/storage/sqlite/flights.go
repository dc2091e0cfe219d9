package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/skyfleet/takeoff-tracker/internal/tracker"
	"github.com/skyfleet/takeoff-tracker/pkg/logger"
	_ "modernc.org/sqlite"
)

// FlightStorage is a SQLite-backed flight ledger
type FlightStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewFlightStorage opens (or creates) the ledger database and ensures the
// schema exists. Schema creation happens here, explicitly at startup, never
// as an import side effect.
func NewFlightStorage(dbPath string, log *logger.Logger) (*FlightStorage, error) {
	storageLogger := log.Named("sqlite")

	storageLogger.Info("Initializing SQLite flight ledger",
		logger.String("path", dbPath))

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// Set pragmas for better performance and concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	storage := &FlightStorage{
		db:     db,
		logger: storageLogger,
	}

	if err := storage.initDB(); err != nil {
		db.Close()
		return nil, err
	}

	return storage, nil
}

// Close closes the database connection
func (s *FlightStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// GetDB returns the database connection
func (s *FlightStorage) GetDB() *sql.DB {
	return s.db
}

// initDB idempotently creates the ledger schema
func (s *FlightStorage) initDB() error {
	s.logger.Info("Initializing ledger schema")

	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS flights (
			id TEXT NOT NULL,
			callsign TEXT,
			takeoff_time TIMESTAMP NOT NULL,
			landing_time TIMESTAMP,
			origin_country TEXT,
			estimated_landing_time TIMESTAMP,
			status TEXT NOT NULL CHECK (status IN ('in_progress', 'completed'))
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create flights table: %w", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_flights_id_status ON flights(id, status)`)
	if err != nil {
		return fmt.Errorf("failed to create index on flights.id_status: %w", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_flights_takeoff_time ON flights(takeoff_time)`)
	if err != nil {
		return fmt.Errorf("failed to create index on flights.takeoff_time: %w", err)
	}

	s.logger.Info("Ledger schema initialized")
	return nil
}

// IsInProgress reports whether an in_progress record exists for the identity
func (s *FlightStorage) IsInProgress(icao24 string) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM flights WHERE id = ? AND status = ?`,
		icao24, tracker.StatusInProgress,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query in-progress flight: %w", err)
	}
	return count > 0, nil
}

// OpenFlight inserts a new in_progress record for the identity. The insert
// is conditional on no in_progress record existing, in a single statement,
// so the at-most-one invariant holds without a separate check.
func (s *FlightStorage) OpenFlight(icao24, callsign, originCountry string, takeoff time.Time) (bool, error) {
	result, err := s.db.Exec(
		`INSERT INTO flights (id, callsign, takeoff_time, origin_country, status)
		SELECT ?, ?, ?, ?, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM flights WHERE id = ? AND status = ?
		)`,
		icao24, callsign, takeoff.UTC().Format(time.RFC3339), originCountry, tracker.StatusInProgress,
		icao24, tracker.StatusInProgress,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert flight: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return false, nil
	}

	s.logger.Info("Opened flight record",
		logger.String("icao24", icao24),
		logger.String("callsign", callsign))
	return true, nil
}

// SetEstimatedArrival updates the in_progress record for the identity.
// A no-op when no such record exists.
func (s *FlightStorage) SetEstimatedArrival(icao24 string, eta time.Time) error {
	_, err := s.db.Exec(
		`UPDATE flights SET estimated_landing_time = ? WHERE id = ? AND status = ?`,
		eta.UTC().Format(time.RFC3339), icao24, tracker.StatusInProgress,
	)
	if err != nil {
		return fmt.Errorf("failed to update estimated arrival: %w", err)
	}
	return nil
}

// InProgressFlights returns all currently open flights
func (s *FlightStorage) InProgressFlights() ([]*tracker.FlightRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, callsign, takeoff_time, landing_time, origin_country, estimated_landing_time, status
		FROM flights
		WHERE status = ?
		ORDER BY takeoff_time DESC`,
		tracker.StatusInProgress,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query in-progress flights: %w", err)
	}
	defer rows.Close()

	return scanFlights(rows)
}

// RecentFlights returns the most recent flights, newest first
func (s *FlightStorage) RecentFlights(limit int) ([]*tracker.FlightRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, callsign, takeoff_time, landing_time, origin_country, estimated_landing_time, status
		FROM flights
		ORDER BY takeoff_time DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent flights: %w", err)
	}
	defer rows.Close()

	return scanFlights(rows)
}

func scanFlights(rows *sql.Rows) ([]*tracker.FlightRecord, error) {
	var flights []*tracker.FlightRecord

	for rows.Next() {
		var record tracker.FlightRecord
		var takeoff string
		var landing, estimated sql.NullString
		var callsign, country sql.NullString

		if err := rows.Scan(
			&record.Icao24, &callsign, &takeoff, &landing, &country, &estimated, &record.Status,
		); err != nil {
			return nil, fmt.Errorf("failed to scan flight row: %w", err)
		}

		record.Callsign = callsign.String
		record.OriginCountry = country.String

		t, err := time.Parse(time.RFC3339, takeoff)
		if err != nil {
			return nil, fmt.Errorf("failed to parse takeoff_time: %w", err)
		}
		record.TakeoffTime = t

		if landing.Valid && landing.String != "" {
			lt, err := time.Parse(time.RFC3339, landing.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse landing_time: %w", err)
			}
			record.LandingTime = &lt
		}
		if estimated.Valid && estimated.String != "" {
			et, err := time.Parse(time.RFC3339, estimated.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse estimated_landing_time: %w", err)
			}
			record.EstimatedArrival = &et
		}

		flights = append(flights, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating flight rows: %w", err)
	}

	return flights, nil
}
