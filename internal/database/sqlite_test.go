package database

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sstent/tracksync-go/internal/aggregate"
	"github.com/sstent/tracksync-go/internal/data"
	"github.com/sstent/tracksync-go/internal/models"
)

func newTestDB(t *testing.T) *SQLiteDB {
	t.Helper()
	db, err := NewSQLiteDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testEvent(id string, start time.Time, activityType string, distance float64) *models.Event {
	a := models.NewActivity(start, activityType)
	a.Creator = models.Creator{Name: "Spartan Ultra", SerialNumber: "123"}
	a.Summary.TotalDistanceInMeters = distance
	a.Summary.TotalDurationInSeconds = 600
	a.Summary.Extremes[data.HeartRate] = models.Extremes{Avg: models.Float(142)}
	a.AddPoint(models.NewPoint(start.Add(time.Second)))
	a.AddLap(&models.Lap{StartDate: start, EndDate: start.Add(5 * time.Minute), Type: models.LapTypeAutoLap, Summary: models.NewSummary()})
	a.AddLap(&models.Lap{StartDate: start.Add(5 * time.Minute), EndDate: start.Add(10 * time.Minute), Type: models.LapTypeManual})
	a.Finalize()

	e := models.NewEvent(id)
	e.AddActivity(a)
	aggregate.RollUp(e)
	return e
}

func TestSaveAndGetEvent(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	start := time.Date(2018, 3, 4, 9, 0, 0, 0, time.UTC)
	event := testEvent("evt-1", start, "Running", 5000)

	require.NoError(t, db.SaveEvent(ctx, "inbox/run.json", 2, event))

	got, err := db.GetEvent(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, "inbox/run.json", got.Source)
	assert.True(t, got.StartTime.Equal(start))
	assert.Equal(t, "Running", got.ActivityType)
	assert.Equal(t, "Spartan Ultra", got.Device)
	assert.Equal(t, 5000.0, got.Distance)
	assert.Equal(t, 600.0, got.Duration)
	require.NotNil(t, got.AvgHeartRate)
	assert.Equal(t, 142.0, *got.AvgHeartRate)
	assert.Equal(t, 1, got.ActivityCount)
	assert.Equal(t, 1, got.PointCount)
	assert.Equal(t, 2, got.SkippedCount)
	assert.Equal(t, event.Summary, got.Summary)
	assert.False(t, got.CreatedAt.IsZero())

	laps, err := db.GetLaps(ctx, "evt-1")
	require.NoError(t, err)
	require.Len(t, laps, 2)
	assert.Equal(t, "AutoLap", laps[0].LapType)
	assert.Equal(t, "Manual", laps[1].LapType)
	assert.Equal(t, 300.0, laps[1].Duration)
	assert.True(t, laps[1].StartTime.Equal(laps[0].EndTime))

	ok, err := db.HasSource(ctx, "inbox/run.json")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = db.HasSource(ctx, "inbox/other.json")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSaveEventRejectsDuplicateSource(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	start := time.Date(2018, 3, 4, 9, 0, 0, 0, time.UTC)

	require.NoError(t, db.SaveEvent(ctx, "a.json", 0, testEvent("e1", start, "Running", 1)))
	require.Error(t, db.SaveEvent(ctx, "a.json", 0, testEvent("e2", start, "Running", 1)))

	// the failed transaction left nothing behind
	stats, err := db.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Stats{Events: 1, Activities: 1, Laps: 2, Distance: 1, Duration: 600}, stats)
}

func TestGetEventNotFound(t *testing.T) {
	_, err := newTestDB(t).GetEvent(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestListAndFilterEvents(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	base := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	for i, typ := range []string{"Running", "Trail Running", "Running"} {
		e := testEvent("", base.Add(time.Duration(i)*24*time.Hour), typ, float64(1000*(i+1)))
		require.NoError(t, db.SaveEvent(ctx, typ+string(rune('a'+i)), 0, e))
	}

	all, err := db.ListEvents(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 3000.0, all[0].Distance, "newest first")

	page, err := db.ListEvents(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, 2000.0, page[0].Distance)

	running, err := db.FilterEvents(ctx, EventFilters{ActivityType: "Running", SortBy: "distance", SortOrder: "asc"})
	require.NoError(t, err)
	require.Len(t, running, 2)
	assert.Equal(t, 1000.0, running[0].Distance)

	from := base.Add(12 * time.Hour)
	later, err := db.FilterEvents(ctx, EventFilters{DateFrom: &from, MaxDistance: 2500})
	require.NoError(t, err)
	require.Len(t, later, 1)
	assert.Equal(t, "Trail Running", later[0].ActivityType)

	_, err = db.FilterEvents(ctx, EventFilters{SortBy: "summary; DROP TABLE events"})
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestDeleteEventCascades(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	require.NoError(t, db.SaveEvent(ctx, "x.fit", 0, testEvent("e1", time.Now(), "Running", 10)))

	require.NoError(t, db.DeleteEvent(ctx, "e1"))
	assert.ErrorIs(t, db.DeleteEvent(ctx, "e1"), ErrEventNotFound)

	stats, err := db.GetStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Activities)
	assert.Zero(t, stats.Laps)
}

func TestNewSQLiteDBFromDB(t *testing.T) {
	ctx := context.Background()
	conn, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })

	db, err := NewSQLiteDBFromDB(conn)
	require.NoError(t, err)
	require.NoError(t, db.SaveEvent(ctx, "shared.json", 0, testEvent("e1", time.Now(), "Running", 10)))

	// the tables live on the shared connection
	var count int
	require.NoError(t, conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM laps").Scan(&count))
	assert.Equal(t, 2, count)

	// creating the tables again is a no-op
	again, err := NewSQLiteDBFromDB(conn)
	require.NoError(t, err)
	ok, err := again.HasSource(ctx, "shared.json")
	require.NoError(t, err)
	assert.True(t, ok)
}
