package sim

import "github.com/sirupsen/logrus"

// EventKind names the two events that drive the clock.
type EventKind string

const (
	// EventNone is reported by LastEvent before the first Step.
	EventNone EventKind = ""
	// EventArrival is a customer entering the system.
	EventArrival EventKind = "arrival"
	// EventDeparture is the customer in service leaving the system.
	EventDeparture EventKind = "departure"
)

// Event defines the interface for all simulation events.
// Each event has a Timestamp (in simulated time units) and an Execute method
// that advances engine state when invoked.
type Event interface {
	Timestamp() float64
	Kind() EventKind
	Execute(*Engine)
}

// ArrivalEvent represents a new customer entering the system.
type ArrivalEvent struct {
	time float64
}

// Timestamp returns the scheduled time of the ArrivalEvent.
func (e *ArrivalEvent) Timestamp() float64 {
	return e.time
}

// Kind returns EventArrival.
func (e *ArrivalEvent) Kind() EventKind { return EventArrival }

// Execute admits the customer and schedules the next arrival.
func (e *ArrivalEvent) Execute(eng *Engine) {
	c := eng.handleArrival()
	logrus.Debugf("<< Arrival: customer %d at %.4f (queue=%d)", c.ID, e.time, eng.waitQ.Len())
}

// DepartureEvent represents the customer in service finishing.
type DepartureEvent struct {
	time float64
}

// Timestamp returns the scheduled time of the DepartureEvent.
func (e *DepartureEvent) Timestamp() float64 {
	return e.time
}

// Kind returns EventDeparture.
func (e *DepartureEvent) Kind() EventKind { return EventDeparture }

// Execute completes the current customer and starts the next one in line.
func (e *DepartureEvent) Execute(eng *Engine) {
	c := eng.handleDeparture()
	if c != nil {
		logrus.Debugf("<< Departure: customer %d at %.4f (time in system %.4f)", c.ID, e.time, c.TimeInSystem())
	}
}
