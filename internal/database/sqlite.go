// internal/database/sqlite.go
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sstent/tracksync-go/internal/data"
	"github.com/sstent/tracksync-go/internal/models"
)

const timeFormat = "2006-01-02 15:04:05.000"

// sortColumns whitelists FilterEvents.SortBy values.
var sortColumns = map[string]string{
	"":              "start_time",
	"start_time":    "start_time",
	"distance":      "distance",
	"duration":      "duration",
	"activity_type": "activity_type",
	"created_at":    "created_at",
}

type SQLiteDB struct {
	db *sql.DB
}

var _ Database = (*SQLiteDB)(nil)

func NewSQLiteDB(dbPath string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	// one connection keeps ":memory:" databases and write ordering consistent
	db.SetMaxOpenConns(1)

	sqlite, err := NewSQLiteDBFromDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return sqlite, nil
}

// NewSQLiteDBFromDB wraps an existing sql.DB connection and creates the tables
// it is missing.
func NewSQLiteDBFromDB(db *sql.DB) (*SQLiteDB, error) {
	sqlite := &SQLiteDB{db: db}
	if err := sqlite.createTables(); err != nil {
		return nil, err
	}
	return sqlite, nil
}

func (s *SQLiteDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		source TEXT UNIQUE NOT NULL,
		name TEXT,
		start_time DATETIME NOT NULL,
		activity_type TEXT,
		device TEXT,
		distance REAL,
		duration REAL,
		avg_heart_rate REAL,
		activity_count INTEGER,
		point_count INTEGER,
		skipped_count INTEGER,
		summary TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_events_start_time ON events(start_time);
	CREATE INDEX IF NOT EXISTS idx_events_activity_type ON events(activity_type);

	CREATE TABLE IF NOT EXISTS activities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_id TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		start_time DATETIME NOT NULL,
		end_time DATETIME NOT NULL,
		activity_type TEXT,
		device_name TEXT,
		serial_number TEXT,
		distance REAL,
		duration REAL,
		point_count INTEGER,
		ibi_count INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_activities_event_id ON activities(event_id);

	CREATE TABLE IF NOT EXISTS laps (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		activity_id INTEGER NOT NULL REFERENCES activities(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		start_time DATETIME NOT NULL,
		end_time DATETIME NOT NULL,
		lap_type TEXT,
		distance REAL,
		duration REAL
	);

	CREATE INDEX IF NOT EXISTS idx_laps_activity_id ON laps(activity_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveEvent stores the event with its activities and laps in one transaction.
// source identifies the imported file; saving the same source twice fails.
func (s *SQLiteDB) SaveEvent(ctx context.Context, source string, skipped int, event *models.Event) error {
	summary, err := json.Marshal(event.Summary)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}

	var (
		startTime    time.Time
		activityType string
		device       string
	)
	if first := event.FirstActivity(); first != nil {
		startTime = first.StartDate
		activityType = first.Type
		device = first.Creator.Name
	}
	var avgHR sql.NullFloat64
	if v, ok := event.Summary.Avg(data.HeartRate); ok {
		avgHR = sql.NullFloat64{Float64: v, Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO events (
		id, source, name, start_time, activity_type, device, distance, duration,
		avg_heart_rate, activity_count, point_count, skipped_count, summary
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, source, event.Name, formatTime(startTime), activityType, device,
		event.Summary.TotalDistanceInMeters, event.Summary.TotalDurationInSeconds,
		avgHR, len(event.Activities), event.PointCount(), skipped, string(summary),
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	for i, a := range event.Activities {
		res, err := tx.ExecContext(ctx, `
		INSERT INTO activities (
			event_id, position, start_time, end_time, activity_type,
			device_name, serial_number, distance, duration, point_count, ibi_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			event.ID, i, formatTime(a.StartDate), formatTime(a.EndDate), a.Type,
			a.Creator.Name, a.Creator.SerialNumber,
			a.Summary.TotalDistanceInMeters, a.Summary.TotalDurationInSeconds,
			len(a.Points), len(a.IBI),
		)
		if err != nil {
			return fmt.Errorf("failed to insert activity %d: %w", i, err)
		}
		activityID, err := res.LastInsertId()
		if err != nil {
			return err
		}

		for j, lap := range a.Laps {
			var distance float64
			if lap.Summary != nil {
				distance = lap.Summary.TotalDistanceInMeters
			}
			_, err := tx.ExecContext(ctx, `
			INSERT INTO laps (activity_id, position, start_time, end_time, lap_type, distance, duration)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
				activityID, j, formatTime(lap.StartDate), formatTime(lap.EndDate), string(lap.Type),
				distance, lap.Duration().Seconds(),
			)
			if err != nil {
				return fmt.Errorf("failed to insert lap %d: %w", j, err)
			}
		}
	}

	return tx.Commit()
}

func (s *SQLiteDB) HasSource(ctx context.Context, source string) (bool, error) {
	query := `SELECT COUNT(*) FROM events WHERE source = ?`
	var count int
	err := s.db.QueryRowContext(ctx, query, source).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

const eventColumns = `id, source, name, start_time, activity_type, device, distance, duration,
	avg_heart_rate, activity_count, point_count, skipped_count, summary, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*Event, error) {
	var (
		e                          Event
		name, activityType, device sql.NullString
		startTime, createdAt       string
		summary                    sql.NullString
		avgHR                      sql.NullFloat64
	)
	err := row.Scan(
		&e.ID, &e.Source, &name, &startTime, &activityType, &device,
		&e.Distance, &e.Duration, &avgHR,
		&e.ActivityCount, &e.PointCount, &e.SkippedCount, &summary, &createdAt,
	)
	if err != nil {
		return nil, err
	}
	e.Name, e.ActivityType, e.Device = name.String, activityType.String, device.String
	if avgHR.Valid {
		e.AvgHeartRate = models.Float(avgHR.Float64)
	}
	if e.StartTime, err = parseTime(startTime); err != nil {
		return nil, err
	}
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if summary.Valid && summary.String != "" {
		e.Summary = models.NewSummary()
		if err := json.Unmarshal([]byte(summary.String), e.Summary); err != nil {
			return nil, fmt.Errorf("failed to decode summary of event %s: %w", e.ID, err)
		}
	}
	return &e, nil
}

func (s *SQLiteDB) GetEvent(ctx context.Context, id string) (*Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = ?`

	e, err := scanEvent(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrEventNotFound, id)
		}
		return nil, err
	}
	return e, nil
}

func (s *SQLiteDB) ListEvents(ctx context.Context, limit, offset int) ([]Event, error) {
	return s.FilterEvents(ctx, EventFilters{Limit: limit, Offset: offset})
}

func (s *SQLiteDB) GetLaps(ctx context.Context, eventID string) ([]Lap, error) {
	query := `
	SELECT a.position, l.position, l.start_time, l.end_time, l.lap_type, l.distance, l.duration
	FROM laps l JOIN activities a ON a.id = l.activity_id
	WHERE a.event_id = ?
	ORDER BY a.position, l.position`

	rows, err := s.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var laps []Lap
	for rows.Next() {
		var (
			l          Lap
			start, end string
		)
		if err := rows.Scan(&l.ActivityIndex, &l.Index, &start, &end, &l.LapType, &l.Distance, &l.Duration); err != nil {
			return nil, err
		}
		if l.StartTime, err = parseTime(start); err != nil {
			return nil, err
		}
		if l.EndTime, err = parseTime(end); err != nil {
			return nil, err
		}
		laps = append(laps, l)
	}
	return laps, rows.Err()
}

func (s *SQLiteDB) DeleteEvent(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	return nil
}

func (s *SQLiteDB) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(distance), 0), COALESCE(SUM(duration), 0) FROM events",
	).Scan(&stats.Events, &stats.Distance, &stats.Duration)
	if err != nil {
		return nil, err
	}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM activities").Scan(&stats.Activities); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM laps").Scan(&stats.Laps); err != nil {
		return nil, err
	}

	return stats, nil
}

func (s *SQLiteDB) FilterEvents(ctx context.Context, filters EventFilters) ([]Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE 1=1`

	var args []any
	var conditions []string

	if filters.ActivityType != "" {
		conditions = append(conditions, "activity_type = ?")
		args = append(args, filters.ActivityType)
	}

	if filters.DateFrom != nil {
		conditions = append(conditions, "start_time >= ?")
		args = append(args, formatTime(*filters.DateFrom))
	}

	if filters.DateTo != nil {
		conditions = append(conditions, "start_time <= ?")
		args = append(args, formatTime(*filters.DateTo))
	}

	if filters.MinDistance > 0 {
		conditions = append(conditions, "distance >= ?")
		args = append(args, filters.MinDistance)
	}

	if filters.MaxDistance > 0 {
		conditions = append(conditions, "distance <= ?")
		args = append(args, filters.MaxDistance)
	}

	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}

	orderBy, ok := sortColumns[filters.SortBy]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported sort column %q", ErrInvalidFilter, filters.SortBy)
	}

	order := "DESC"
	if filters.SortOrder == "asc" {
		order = "ASC"
	}

	query += fmt.Sprintf(" ORDER BY %s %s, id", orderBy, order)

	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)

		if filters.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filters.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}

	return events, rows.Err()
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

// parseTime reads both our own format and SQLite's CURRENT_TIMESTAMP format.
func parseTime(v string) (time.Time, error) {
	for _, layout := range []string{timeFormat, "2006-01-02 15:04:05", time.RFC3339Nano} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", v)
}
