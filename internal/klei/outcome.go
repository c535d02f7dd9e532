package klei

import (
	"fmt"
	"sync"
	"time"

	"github.com/dimspell/lobbywatch/internal/model"
	"github.com/kelindar/event"
)

// Stage names a step of the fetch pipeline.
type Stage string

const (
	StageLobby Stage = "lobby"
	StageRoom  Stage = "room"
)

// Outcome classifies how a single fan-out unit ended.
type Outcome uint8

const (
	OutcomeOK Outcome = iota + 1
	OutcomeNotFound
	OutcomeValidationFailed
	OutcomeTransportFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeValidationFailed:
		return "validation_failed"
	case OutcomeTransportFailed:
		return "transport_failed"
	}
	return "unknown"
}

func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *Outcome) UnmarshalText(text []byte) error {
	v, err := ParseOutcome(string(text))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

func ParseOutcome(s string) (Outcome, error) {
	for _, o := range []Outcome{OutcomeOK, OutcomeNotFound, OutcomeValidationFailed, OutcomeTransportFailed} {
		if o.String() == s {
			return o, nil
		}
	}
	return 0, fmt.Errorf("unknown outcome: %q", s)
}

// EventUnitDone is the event type of UnitEvent.
const EventUnitDone uint32 = 0x01

// UnitEvent is published once per finished fan-out unit.
type UnitEvent struct {
	Stage    Stage
	Region   model.Region
	Platform model.Platform // lobby stage only
	RowID    string         // room stage only
	Outcome  Outcome
	Accepted int
	Rejected int
	Attempts int
	Duration time.Duration
	Err      error
}

func (UnitEvent) Type() uint32 { return EventUnitDone }

// Report summarises the units of one stage call.
type Report struct {
	Units    int             `json:"units"`
	Outcomes map[Outcome]int `json:"outcomes"`
	Accepted int             `json:"accepted"`
	Rejected int             `json:"rejected"`
}

func (r Report) Count(o Outcome) int { return r.Outcomes[o] }

// AllFailed tells "no results because every unit failed" apart from "no
// results because nothing matched".
func (r Report) AllFailed() bool {
	return r.Units > 0 && r.Outcomes[OutcomeTransportFailed] == r.Units
}

// collector gathers the results of concurrently running units. The order of
// items is not meaningful.
type collector[T any] struct {
	mu     sync.Mutex
	items  []T
	report Report
	bus    *event.Dispatcher
}

func newCollector[T any](bus *event.Dispatcher) *collector[T] {
	return &collector[T]{
		report: Report{Outcomes: make(map[Outcome]int)},
		bus:    bus,
	}
}

func (c *collector[T]) record(ev UnitEvent, items ...T) {
	c.mu.Lock()
	c.items = append(c.items, items...)
	c.report.Units++
	c.report.Outcomes[ev.Outcome]++
	c.report.Accepted += ev.Accepted
	c.report.Rejected += ev.Rejected
	c.mu.Unlock()

	if c.bus != nil {
		event.Publish(c.bus, ev)
	}
}

func (c *collector[T]) result() ([]T, Report) {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := c.items
	if items == nil {
		items = []T{}
	}
	return items, c.report
}
