// sim/engine.go
package sim

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"
)

// ErrInvalidRate is returned when an arrival or service rate is not a
// positive finite number.
var ErrInvalidRate = errors.New("rate must be a positive finite number")

const (
	// RecentJourneysSize is the number of most recently completed customers
	// kept for display.
	RecentJourneysSize = 5

	// CompletedLogCap is the completed-customer log size that triggers a trim.
	CompletedLogCap = 1000
	// CompletedLogKeep is the number of most recent records kept after a trim.
	CompletedLogKeep = 500

	// MinHistoryCapacity keeps history buffers at least as long as the
	// controller's measurement window.
	MinHistoryCapacity = 100

	// MinNudgedArrivalRate is the floor applied by AdjustArrivalRate.
	MinNudgedArrivalRate = 0.1
)

// engineOptions holds optional construction parameters.
type engineOptions struct {
	key             SimulationKey
	seeded          bool
	historyCapacity int
}

// EngineOption configures optional Engine parameters.
type EngineOption func(*engineOptions)

// WithSeed makes the run reproducible: identical rates, seed and rate changes
// yield an identical event sequence.
func WithSeed(seed int64) EngineOption {
	return func(o *engineOptions) {
		o.key = NewSimulationKey(seed)
		o.seeded = true
	}
}

// WithHistoryCapacity bounds each per-step history buffer.
// Values below MinHistoryCapacity are raised to it.
func WithHistoryCapacity(n int) EngineOption {
	return func(o *engineOptions) {
		o.historyCapacity = max(n, MinHistoryCapacity)
	}
}

// Engine is the single-server queue simulator. It owns simulated time, the
// waiting line, the server and every Customer record.
//
// Thread-safety: NOT thread-safe. Step and the rate setters must be called
// from a single goroutine.
type Engine struct {
	arrivalRate float64 // λ
	serviceRate float64 // μ

	rng        *PartitionedRNG
	arrivalRNG *rand.Rand
	serviceRNG *rand.Rand

	historyCapacity int

	waitQ           *WaitQueue
	serverBusy      bool
	currentCustomer *Customer

	currentTime       float64
	nextArrivalTime   float64
	nextDepartureTime float64 // +Inf iff the server is idle
	nextCustomerID    int64
	stepCount         int64
	lastEvent         EventKind

	totalCustomers  int64
	customersServed int64

	totalWaitTime         float64
	totalServiceTime      float64
	totalTimeInSystem     float64
	timeWeightedCustomers float64 // ∫ N(t) dt, for Little's Law
	serverBusyTime        float64

	queueLengthHistory *History
	timeHistory        *History
	utilizationHistory *History
	queueLengthStats   RunningStats

	recentJourneys []*Customer
	completed      []*Customer
}

// NewEngine creates an engine with the given rates and schedules the first
// arrival. Both rates must be positive and finite.
func NewEngine(arrivalRate, serviceRate float64, opts ...EngineOption) (*Engine, error) {
	if err := validateRate("arrival rate", arrivalRate); err != nil {
		return nil, err
	}
	if err := validateRate("service rate", serviceRate); err != nil {
		return nil, err
	}

	o := engineOptions{historyCapacity: DefaultHistoryCapacity}
	for _, opt := range opts {
		opt(&o)
	}
	if !o.seeded {
		o.key = wallClockKey()
		logrus.Debugf("no seed supplied; using wall-clock key %d", o.key)
	}

	rng := NewPartitionedRNG(o.key)
	e := &Engine{
		arrivalRate:     arrivalRate,
		serviceRate:     serviceRate,
		rng:             rng,
		arrivalRNG:      rng.ForSubsystem(SubsystemArrival),
		serviceRNG:      rng.ForSubsystem(SubsystemService),
		historyCapacity: o.historyCapacity,
	}
	e.resetState()
	return e, nil
}

// resetState clears all simulation state and schedules the first arrival.
func (e *Engine) resetState() {
	e.waitQ = &WaitQueue{}
	e.serverBusy = false
	e.currentCustomer = nil
	e.currentTime = 0
	e.nextDepartureTime = math.Inf(1)
	e.nextCustomerID = 1
	e.stepCount = 0
	e.lastEvent = EventNone
	e.totalCustomers = 0
	e.customersServed = 0
	e.totalWaitTime = 0
	e.totalServiceTime = 0
	e.totalTimeInSystem = 0
	e.timeWeightedCustomers = 0
	e.serverBusyTime = 0
	e.queueLengthHistory = NewHistory(e.historyCapacity)
	e.timeHistory = NewHistory(e.historyCapacity)
	e.utilizationHistory = NewHistory(e.historyCapacity)
	e.queueLengthStats = RunningStats{}
	e.recentJourneys = make([]*Customer, 0, RecentJourneysSize)
	e.completed = nil
	e.scheduleNextArrival()
}

// Reset discards all customers, counters and history while keeping the
// current rates. The RNG streams continue rather than restart, so a reset
// run is a fresh sample, not a replay.
func (e *Engine) Reset() {
	e.resetState()
	logrus.Infof("simulation reset (λ=%.3f, μ=%.3f)", e.arrivalRate, e.serviceRate)
}

func validateRate(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return fmt.Errorf("%s %v: %w", name, v, ErrInvalidRate)
	}
	return nil
}

// === Rate parameters ===

// ArrivalRate returns λ.
func (e *Engine) ArrivalRate() float64 { return e.arrivalRate }

// ServiceRate returns μ.
func (e *Engine) ServiceRate() float64 { return e.serviceRate }

// SetArrivalRate changes λ. It takes effect from the next arrival draw; an
// already scheduled arrival keeps its time. A rejected value leaves λ unchanged.
func (e *Engine) SetArrivalRate(rate float64) error {
	if err := validateRate("arrival rate", rate); err != nil {
		return err
	}
	e.arrivalRate = rate
	return nil
}

// SetServiceRate changes μ. It takes effect from the next service draw.
// A rejected value leaves μ unchanged.
func (e *Engine) SetServiceRate(rate float64) error {
	if err := validateRate("service rate", rate); err != nil {
		return err
	}
	e.serviceRate = rate
	return nil
}

// AdjustArrivalRate nudges λ by delta, never going below MinNudgedArrivalRate.
func (e *Engine) AdjustArrivalRate(delta float64) error {
	return e.SetArrivalRate(max(MinNudgedArrivalRate, e.arrivalRate+delta))
}

// === Event loop ===

// scheduleNextArrival draws an exponential inter-arrival interval from λ.
func (e *Engine) scheduleNextArrival() {
	e.nextArrivalTime = e.currentTime + ExpSample(e.arrivalRNG, e.arrivalRate)
}

// beginService puts c on the server and schedules its departure.
func (e *Engine) beginService(c *Customer) {
	duration := ExpSample(e.serviceRNG, e.serviceRate)
	c.startService(e.currentTime, duration)
	e.currentCustomer = c
	e.serverBusy = true
	e.nextDepartureTime = e.currentTime + duration
}

// nextEvent returns the earlier of the pending arrival and departure.
// On an exact tie the arrival wins.
func (e *Engine) nextEvent() Event {
	if e.nextArrivalTime <= e.nextDepartureTime {
		return &ArrivalEvent{time: e.nextArrivalTime}
	}
	return &DepartureEvent{time: e.nextDepartureTime}
}

// Step processes exactly one event: it integrates the number in system and
// busy time over the elapsed interval, advances the clock, records one
// history sample per buffer and then dispatches the event.
func (e *Engine) Step() {
	ev := e.nextEvent()
	now := ev.Timestamp()
	elapsed := now - e.currentTime
	if elapsed < 0 {
		// the clock never runs backwards
		elapsed = 0
		now = e.currentTime
	}

	e.timeWeightedCustomers += float64(e.NumberInSystem()) * elapsed
	if e.serverBusy {
		e.serverBusyTime += elapsed
	}
	e.currentTime = now

	e.recordHistory()

	logrus.Tracef("[t=%.4f] Executing %T", e.currentTime, ev)
	ev.Execute(e)
	e.lastEvent = ev.Kind()
	e.stepCount++
}

// Run calls Step n times.
func (e *Engine) Run(n int) {
	for i := 0; i < n; i++ {
		e.Step()
	}
}

func (e *Engine) recordHistory() {
	ql := float64(e.waitQ.Len())
	e.queueLengthHistory.Record(ql)
	e.queueLengthStats.Add(ql)
	e.timeHistory.Record(e.currentTime)
	util := 0.0
	if e.currentTime > 0 {
		util = e.serverBusyTime / e.currentTime
	}
	e.utilizationHistory.Record(util)
}

// handleArrival admits a new customer and schedules the next arrival.
func (e *Engine) handleArrival() *Customer {
	c := newCustomer(e.nextCustomerID, e.currentTime)
	e.nextCustomerID++
	e.totalCustomers++

	if !e.serverBusy {
		e.beginService(c)
	} else {
		e.waitQ.Enqueue(c)
	}

	e.scheduleNextArrival()
	return c
}

// handleDeparture completes the customer in service, if any, and starts the
// head of the line. It returns the completed customer.
func (e *Engine) handleDeparture() *Customer {
	done := e.currentCustomer
	if done != nil {
		done.depart(e.currentTime)
		e.customersServed++
		e.totalWaitTime += done.WaitTime()
		e.totalServiceTime += done.ServiceTime
		e.totalTimeInSystem += done.TimeInSystem()
		e.recordCompleted(done)
	}

	if next := e.waitQ.Dequeue(); next != nil {
		e.beginService(next)
	} else {
		e.serverBusy = false
		e.currentCustomer = nil
		e.nextDepartureTime = math.Inf(1)
	}
	return done
}

func (e *Engine) recordCompleted(c *Customer) {
	e.completed = append(e.completed, c)
	if len(e.completed) > CompletedLogCap {
		kept := make([]*Customer, CompletedLogKeep)
		copy(kept, e.completed[len(e.completed)-CompletedLogKeep:])
		e.completed = kept
	}

	if len(e.recentJourneys) == RecentJourneysSize {
		copy(e.recentJourneys, e.recentJourneys[1:])
		e.recentJourneys = e.recentJourneys[:RecentJourneysSize-1]
	}
	e.recentJourneys = append(e.recentJourneys, c)
}

// === Read surface ===

// HistoryReader is the read-only view of a per-step history buffer.
type HistoryReader interface {
	Len() int
	Cap() int
	Total() int64
	At(i int) float64
	Latest() (float64, bool)
	Last(n int) []float64
	Values() []float64
	WindowMean(n int) float64
	WindowStdDev(n int) float64
}

// Key returns the SimulationKey driving this engine's random streams.
func (e *Engine) Key() SimulationKey { return e.rng.Key() }

// CurrentTime returns the simulated clock.
func (e *Engine) CurrentTime() float64 { return e.currentTime }

// NextArrivalTime returns the time of the pending arrival.
func (e *Engine) NextArrivalTime() float64 { return e.nextArrivalTime }

// NextDepartureTime returns the time of the pending departure, +Inf if idle.
func (e *Engine) NextDepartureTime() float64 { return e.nextDepartureTime }

// ServerBusy reports whether a customer is in service.
func (e *Engine) ServerBusy() bool { return e.serverBusy }

// CurrentCustomer returns a copy of the customer in service and false if idle.
func (e *Engine) CurrentCustomer() (Customer, bool) {
	if e.currentCustomer == nil {
		return Customer{}, false
	}
	return *e.currentCustomer, true
}

// QueueLength returns the number of customers waiting in line.
func (e *Engine) QueueLength() int { return e.waitQ.Len() }

// WaitingIDs returns the IDs of waiting customers, head first.
func (e *Engine) WaitingIDs() []int64 {
	items := e.waitQ.Items()
	ids := make([]int64, len(items))
	for i, c := range items {
		ids[i] = c.ID
	}
	return ids
}

// NumberInSystem returns waiting customers plus the one in service.
func (e *Engine) NumberInSystem() int {
	n := e.waitQ.Len()
	if e.serverBusy {
		n++
	}
	return n
}

// StepCount returns the number of Step calls since construction or Reset.
func (e *Engine) StepCount() int64 { return e.stepCount }

// LastEvent returns the kind of event processed by the latest Step.
func (e *Engine) LastEvent() EventKind { return e.lastEvent }

// TotalCustomers returns the number of arrivals so far.
func (e *Engine) TotalCustomers() int64 { return e.totalCustomers }

// CustomersServed returns the number of departures so far.
func (e *Engine) CustomersServed() int64 { return e.customersServed }

// TimeWeightedCustomers returns ∫ N(t) dt up to CurrentTime.
func (e *Engine) TimeWeightedCustomers() float64 { return e.timeWeightedCustomers }

// ServerBusyTime returns the total time the server has been busy.
func (e *Engine) ServerBusyTime() float64 { return e.serverBusyTime }

// QueueLengthHistory returns the per-step waiting-line length samples.
func (e *Engine) QueueLengthHistory() HistoryReader { return e.queueLengthHistory }

// TimeHistory returns the per-step clock samples.
func (e *Engine) TimeHistory() HistoryReader { return e.timeHistory }

// UtilizationHistory returns the per-step running utilization samples.
func (e *Engine) UtilizationHistory() HistoryReader { return e.utilizationHistory }

// RecentJourneys returns copies of the last completed customers, oldest first.
func (e *Engine) RecentJourneys() []Customer {
	out := make([]Customer, len(e.recentJourneys))
	for i, c := range e.recentJourneys {
		out[i] = *c
	}
	return out
}

// CompletedCustomers returns copies of the retained completed-customer log,
// oldest first. The log keeps at most CompletedLogCap records.
func (e *Engine) CompletedCustomers() []Customer {
	out := make([]Customer, len(e.completed))
	for i, c := range e.completed {
		out[i] = *c
	}
	return out
}
