// internal/database/models.go
package database

import (
	"context"
	"errors"
	"time"

	"github.com/sstent/tracksync-go/internal/models"
)

var (
	ErrEventNotFound = errors.New("event not found")
	ErrInvalidFilter = errors.New("invalid filter")
)

// Event is the stored row of one imported event. Summary is the full rolled-up
// summary; the flat columns duplicate the parts used for listing and filtering.
type Event struct {
	ID            string          `json:"id"`
	Source        string          `json:"source"`
	Name          string          `json:"name,omitempty"`
	StartTime     time.Time       `json:"start_time"`
	ActivityType  string          `json:"activity_type"`
	Device        string          `json:"device"`
	Distance      float64         `json:"distance"` // meters
	Duration      float64         `json:"duration"` // seconds
	AvgHeartRate  *float64        `json:"avg_heart_rate,omitempty"`
	ActivityCount int             `json:"activity_count"`
	PointCount    int             `json:"point_count"`
	SkippedCount  int             `json:"skipped_count"`
	Summary       *models.Summary `json:"summary,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Lap is one stored lap, loaded by GetLaps.
type Lap struct {
	ActivityIndex int       `json:"activity_index"`
	Index         int       `json:"index"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	LapType       string    `json:"lap_type"`
	Distance      float64   `json:"distance"`
	Duration      float64   `json:"duration"`
}

type Stats struct {
	Events     int     `json:"events"`
	Activities int     `json:"activities"`
	Laps       int     `json:"laps"`
	Distance   float64 `json:"distance"`
	Duration   float64 `json:"duration"`
}

// Database interface
type Database interface {
	// Events
	SaveEvent(ctx context.Context, source string, skipped int, event *models.Event) error
	HasSource(ctx context.Context, source string) (bool, error)
	GetEvent(ctx context.Context, id string) (*Event, error)
	GetLaps(ctx context.Context, eventID string) ([]Lap, error)
	ListEvents(ctx context.Context, limit, offset int) ([]Event, error)
	DeleteEvent(ctx context.Context, id string) error

	// Stats
	GetStats(ctx context.Context) (*Stats, error)

	// Search and filter
	FilterEvents(ctx context.Context, filters EventFilters) ([]Event, error)

	// Close connection
	Close() error
}

type EventFilters struct {
	ActivityType string
	DateFrom     *time.Time
	DateTo       *time.Time
	MinDistance  float64
	MaxDistance  float64
	Limit        int
	Offset       int
	SortBy       string
	SortOrder    string
}
