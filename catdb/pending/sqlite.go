package pending

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rotblauer/fieldcat/conceptual"
	"github.com/rotblauer/fieldcat/types/fix"
	"github.com/rotblauer/fieldcat/types/motion"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS pending_locations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	device_id TEXT NOT NULL,
	route_id TEXT,
	latitude REAL NOT NULL,
	longitude REAL NOT NULL,
	accuracy REAL,
	altitude REAL,
	speed REAL,
	course REAL,
	timestamp INTEGER NOT NULL,
	provider TEXT,
	is_moving BOOLEAN NOT NULL,
	movement_context TEXT NOT NULL,
	is_suspicious BOOLEAN NOT NULL,
	suspicion_score INTEGER NOT NULL,
	reasons TEXT,
	predicted TEXT,
	battery_level REAL,
	payload BLOB,
	created_at INTEGER NOT NULL
)`

const selectColumns = `id, device_id, route_id, latitude, longitude, accuracy, altitude, speed, course,
	timestamp, provider, is_moving, movement_context, is_suspicious, suspicion_score,
	reasons, predicted, battery_level, payload, created_at`

// SQLStore keeps records in the pending_locations table.
type SQLStore struct {
	mu sync.Mutex
	db *sql.DB
}

// OpenSQLite opens (creating if needed) a sqlite database at path.
func OpenSQLite(path string) (*SQLStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite serializes writers anyway
	db.SetMaxOpenConns(1)
	s, err := NewSQLStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an open database, creating the table if it does not exist.
func NewSQLStore(db *sql.DB) (*SQLStore, error) {
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	return fix.Float(n.Float64)
}

func (s *SQLStore) Insert(ctx context.Context, r *Record) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return 0, ErrClosed
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	reasons, err := json.Marshal(r.Trust.Reasons)
	if err != nil {
		return 0, err
	}
	var predicted sql.NullString
	if r.Predicted != nil {
		b, err := json.Marshal(r.Predicted)
		if err != nil {
			return 0, err
		}
		predicted = sql.NullString{String: string(b), Valid: true}
	}
	loc := r.Location
	res, err := s.db.ExecContext(ctx, `INSERT INTO pending_locations (
		device_id, route_id, latitude, longitude, accuracy, altitude, speed, course,
		timestamp, provider, is_moving, movement_context, is_suspicious, suspicion_score,
		reasons, predicted, battery_level, payload, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.DeviceID.String(), r.RouteID.String(),
		loc.Latitude, loc.Longitude,
		nullFloat(loc.Accuracy), nullFloat(loc.Altitude), nullFloat(loc.Speed), nullFloat(loc.Course),
		loc.Timestamp.UnixMilli(), string(loc.Provider),
		r.IsMoving, r.Context.String(), r.Trust.IsSuspicious, r.Trust.Score,
		string(reasons), predicted, nullFloat(r.BatteryLevel), r.Payload,
		r.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert pending record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	r.ID = id
	return id, nil
}

func (s *SQLStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrClosed
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM pending_locations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete pending record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return nil
}

func (s *SQLStore) List(ctx context.Context, limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM pending_locations ORDER BY id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var (
		r                                 Record
		deviceID                          string
		routeID, provider, reasons, pred  sql.NullString
		accuracy, altitude, speed, course sql.NullFloat64
		battery                           sql.NullFloat64
		ts, created                       int64
		ctxName                           string
	)
	err := rows.Scan(&r.ID, &deviceID, &routeID, &r.Location.Latitude, &r.Location.Longitude,
		&accuracy, &altitude, &speed, &course,
		&ts, &provider, &r.IsMoving, &ctxName, &r.Trust.IsSuspicious, &r.Trust.Score,
		&reasons, &pred, &battery, &r.Payload, &created)
	if err != nil {
		return r, fmt.Errorf("failed to scan pending record: %w", err)
	}
	r.DeviceID = conceptual.DeviceID(deviceID)
	r.RouteID = conceptual.RouteID(routeID.String)
	r.Location.Accuracy = floatPtr(accuracy)
	r.Location.Altitude = floatPtr(altitude)
	r.Location.Speed = floatPtr(speed)
	r.Location.Course = floatPtr(course)
	r.Location.Timestamp = time.UnixMilli(ts).UTC()
	r.Location.Provider = fix.Provider(provider.String)
	r.Context = motion.FromString(ctxName)
	r.BatteryLevel = floatPtr(battery)
	r.CreatedAt = time.UnixMilli(created).UTC()
	if reasons.Valid && reasons.String != "" && reasons.String != "null" {
		if err := json.Unmarshal([]byte(reasons.String), &r.Trust.Reasons); err != nil {
			return r, fmt.Errorf("pending record %d reasons: %w", r.ID, err)
		}
	}
	if pred.Valid && pred.String != "" {
		p := &fix.RawFix{}
		if err := json.Unmarshal([]byte(pred.String), p); err != nil {
			return r, fmt.Errorf("pending record %d predicted: %w", r.ID, err)
		}
		r.Predicted = p
	}
	return r, nil
}

func (s *SQLStore) Len(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return 0, ErrClosed
	}
	n := 0
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_locations`).Scan(&n)
	return n, err
}

func (s *SQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
