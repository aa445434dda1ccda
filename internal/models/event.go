package models

import "github.com/google/uuid"

// Event is the root aggregate of one import. It owns its activities and the
// summary rolled up from them.
type Event struct {
	ID         string      `json:"id"`
	Name       string      `json:"name,omitempty"`
	Activities []*Activity `json:"activities"`
	Summary    *Summary    `json:"summary"`
}

// NewEvent creates an empty event. An empty id is replaced by a random UUID.
func NewEvent(id string) *Event {
	if id == "" {
		id = uuid.NewString()
	}
	return &Event{ID: id, Summary: NewSummary()}
}

func (e *Event) AddActivity(a *Activity) {
	e.Activities = append(e.Activities, a)
}

func (e *Event) FirstActivity() *Activity {
	if len(e.Activities) == 0 {
		return nil
	}
	return e.Activities[0]
}

// PointCount is the number of points across all activities.
func (e *Event) PointCount() int {
	n := 0
	for _, a := range e.Activities {
		n += len(a.Points)
	}
	return n
}
