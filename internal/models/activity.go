// internal/models/activity.go
package models

import (
	"sort"
	"time"

	"github.com/sstent/tracksync-go/internal/ibi"
)

// Creator identifies the recording device.
type Creator struct {
	Name         string `json:"name"`
	SerialNumber string `json:"serialNumber,omitempty"`
	HWInfo       string `json:"hwInfo,omitempty"`
	SWInfo       string `json:"swInfo,omitempty"`
}

// LapType tags how a lap boundary was produced.
type LapType string

const (
	LapTypeAutoLap  LapType = "AutoLap"
	LapTypeDistance LapType = "Distance"
	LapTypeManual   LapType = "Manual"
)

// Lap is the half-open range [StartDate, EndDate) of an activity.
type Lap struct {
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Type      LapType   `json:"type"`
	Summary   *Summary  `json:"summary,omitempty"`
}

// Contains reports whether t falls inside the lap.
func (l *Lap) Contains(t time.Time) bool {
	return !t.Before(l.StartDate) && t.Before(l.EndDate)
}

func (l *Lap) Duration() time.Duration {
	return l.EndDate.Sub(l.StartDate)
}

// Activity is one continuous recorded session.
type Activity struct {
	StartDate time.Time  `json:"startDate"`
	EndDate   time.Time  `json:"endDate"`
	Type      string     `json:"type"`
	Creator   Creator    `json:"creator"`
	Points    []*Point   `json:"points"`
	Laps      []*Lap     `json:"laps"`
	Summary   *Summary   `json:"summary"`
	IBI       ibi.Series `json:"ibi,omitempty"` // unfiltered beat intervals as recorded
}

func NewActivity(start time.Time, activityType string) *Activity {
	return &Activity{
		StartDate: start,
		Type:      activityType,
		Summary:   NewSummary(),
	}
}

func (a *Activity) AddPoint(p *Point) {
	a.Points = append(a.Points, p)
}

func (a *Activity) AddLap(l *Lap) {
	a.Laps = append(a.Laps, l)
}

// SortPointsByDate orders points by timestamp. Points sharing a timestamp keep
// their insertion order.
func (a *Activity) SortPointsByDate() {
	sort.SliceStable(a.Points, func(i, j int) bool {
		return a.Points[i].Date.Before(a.Points[j].Date)
	})
}

func (a *Activity) StartPoint() *Point {
	if len(a.Points) == 0 {
		return nil
	}
	return a.Points[0]
}

func (a *Activity) EndPoint() *Point {
	if len(a.Points) == 0 {
		return nil
	}
	return a.Points[len(a.Points)-1]
}

// Finalize sorts the points and derives EndDate from the last one. With no points
// the end date falls back to start plus the summary duration.
func (a *Activity) Finalize() {
	a.SortPointsByDate()
	if end := a.EndPoint(); end != nil {
		a.EndDate = end.Date
		return
	}
	if a.Summary != nil {
		a.EndDate = a.StartDate.Add(time.Duration(a.Summary.TotalDurationInSeconds * float64(time.Second)))
	}
}
