package parser

import (
	"time"

	"github.com/sstent/tracksync-go/internal/aggregate"
	"github.com/sstent/tracksync-go/internal/data"
	"github.com/sstent/tracksync-go/internal/ibi"
	"github.com/sstent/tracksync-go/internal/laps"
	"github.com/sstent/tracksync-go/internal/models"
)

// Parser decodes one export document into an Event.
type Parser interface {
	ParseData(data []byte) (*Result, error)
}

// Result is one decoded import together with the samples and fields that were
// dropped along the way.
type Result struct {
	Event   *models.Event
	Skipped []Skip
}

type options struct {
	eventID  string
	pipeline ibi.Pipeline
}

// Option configures a parser.
type Option func(*options)

// WithEventID fixes the id of the produced event instead of generating one.
func WithEventID(id string) Option {
	return func(o *options) {
		o.eventID = id
	}
}

// WithIBIPipeline replaces the default beat interval filters.
func WithIBIPipeline(p ibi.Pipeline) Option {
	return func(o *options) {
		o.pipeline = p
	}
}

func newOptions(opts []Option) options {
	o := options{pipeline: ibi.DefaultPipeline()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// assemble is the part every adapter shares once points and raw summaries exist:
// laps from markers, derived heart rate from beat intervals, point ordering and
// end date, lap distances the markers left out, and the event roll-up.
func (o options) assemble(a *models.Activity, markers []laps.Marker, rr ibi.Series) *models.Event {
	for _, l := range laps.Segment(a.StartDate, markers) {
		a.AddLap(l)
	}
	if len(rr) > 0 {
		a.IBI = rr
		for _, s := range ibi.BPM(o.pipeline.Apply(rr)) {
			p := models.NewPoint(a.StartDate.Add(time.Duration(s.Offset) * time.Millisecond))
			_ = p.AddData(data.MustNew(data.HeartRate, s.BPM))
			a.AddPoint(p)
		}
	}
	a.Finalize()
	laps.FillDistances(a.Points, a.Laps)

	event := models.NewEvent(o.eventID)
	event.AddActivity(a)
	aggregate.RollUp(event)
	return event
}
