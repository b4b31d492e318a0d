// Derives read-only statistics from engine state. Nothing here mutates the engine.

package sim

import "math"

const (
	// LittleLawMinServed is the number of departures required before the
	// Little's Law check is reported.
	LittleLawMinServed = 10
	// LittleLawTolerance is the relative error under which L = λW counts as verified.
	LittleLawTolerance = 0.20

	// TimeBreakdownMinServed is the number of departures required before the
	// time breakdown is reported.
	TimeBreakdownMinServed = 5

	// SteadyStateThreshold is the number of departures after which
	// time-averaged statistics are considered reliable.
	SteadyStateThreshold = 100

	// QueueWindowSize is the number of recent samples summarised in QueueLengthSummary.
	QueueWindowSize = 100

	// minDenominator guards ratios whose denominator may be zero.
	minDenominator = 0.001
)

// ConfidenceLevel grades how far the run is from steady state.
type ConfidenceLevel string

const (
	ConfidenceVeryLow ConfidenceLevel = "Very Low"
	ConfidenceLow     ConfidenceLevel = "Low"
	ConfidenceMedium  ConfidenceLevel = "Medium"
	ConfidenceHigh    ConfidenceLevel = "High"
)

// TheoreticalReference holds the M/M/1 closed-form values for the current rates.
// Rho is clamped to 1.0 whenever μ <= λ; Statistics.Rho keeps the true ratio.
type TheoreticalReference struct {
	Rho         float64
	QueueLength float64 // ρ²/(1-ρ), +Inf when ρ >= 1
	Utilization float64
}

// LittleLawCheck compares the time-averaged number in system L with λ̂·W.
type LittleLawCheck struct {
	L             float64 `json:"L"`
	Lambda        float64 `json:"lambda"` // observed arrival rate
	W             float64 `json:"W"`
	LambdaTimesW  float64 `json:"lambda_times_W"`
	Error         float64 `json:"error"`
	RelativeError float64 `json:"relative_error"`
	Verified      bool    `json:"verified"`
}

// TimeBreakdown splits average time in system into waiting and service.
type TimeBreakdown struct {
	AvgWaitTime     float64 `json:"avg_wait_time"`
	AvgServiceTime  float64 `json:"avg_service_time"`
	AvgTimeInSystem float64 `json:"avg_time_in_system"`
	WaitFraction    float64 `json:"wait_fraction"`
	ServiceFraction float64 `json:"service_fraction"`
}

// SteadyState reports progress towards SteadyStateThreshold departures.
type SteadyState struct {
	CustomersServed int64           `json:"customers_served"`
	CustomersNeeded int64           `json:"customers_needed"`
	Progress        float64         `json:"progress"`
	Confidence      ConfidenceLevel `json:"confidence"`
	Reliability     string          `json:"reliability"`
	IsSteadyState   bool            `json:"is_steady_state"`
}

// QueueLengthSummary describes the waiting-line length over the whole run
// (streaming) and over the most recent QueueWindowSize steps.
type QueueLengthSummary struct {
	Mean         float64 `json:"mean"`
	StdDev       float64 `json:"stddev"`
	Max          float64 `json:"max"`
	WindowMean   float64 `json:"window_mean"`
	WindowStdDev float64 `json:"window_stddev"`
}

// Statistics is a point-in-time snapshot of the engine.
// LittleLaw and TimeBreakdown are nil until enough customers have departed.
type Statistics struct {
	QueueLength     int
	NumberInSystem  int
	ServerBusy      bool
	Utilization     float64 // instantaneous: 1 if busy, else 0
	AvgUtilization  float64
	TotalCustomers  int64
	CustomersServed int64
	AvgWaitTime     float64
	CurrentTime     float64

	ArrivalRate float64
	ServiceRate float64
	Rho         float64 // λ/μ, unclamped

	Theoretical   TheoreticalReference
	LittleLaw     *LittleLawCheck
	TimeBreakdown *TimeBreakdown
	SteadyState   SteadyState
	QueueStats    QueueLengthSummary

	RecentJourneys []Customer
}

// Statistics returns a snapshot of the engine. It has no side effects.
func (e *Engine) Statistics() Statistics {
	s := Statistics{
		QueueLength:     e.waitQ.Len(),
		NumberInSystem:  e.NumberInSystem(),
		ServerBusy:      e.serverBusy,
		AvgUtilization:  e.AvgUtilization(),
		TotalCustomers:  e.totalCustomers,
		CustomersServed: e.customersServed,
		CurrentTime:     e.currentTime,
		ArrivalRate:     e.arrivalRate,
		ServiceRate:     e.serviceRate,
		Rho:             e.arrivalRate / e.serviceRate,
		Theoretical:     NewTheoreticalReference(e.arrivalRate, e.serviceRate),
		LittleLaw:       e.LittleLaw(),
		TimeBreakdown:   e.TimeBreakdown(),
		SteadyState:     e.SteadyState(),
		QueueStats:      e.queueLengthSummary(),
		RecentJourneys:  e.RecentJourneys(),
	}
	if e.serverBusy {
		s.Utilization = 1.0
	}
	if e.customersServed > 0 {
		s.AvgWaitTime = e.totalWaitTime / float64(e.customersServed)
	}
	return s
}

// AvgUtilization returns busy time over elapsed time, 0 before time advances.
func (e *Engine) AvgUtilization() float64 {
	if e.currentTime <= 0 {
		return 0
	}
	return e.serverBusyTime / e.currentTime
}

// NewTheoreticalReference computes the M/M/1 reference values for λ and μ.
func NewTheoreticalReference(arrivalRate, serviceRate float64) TheoreticalReference {
	rho := 1.0
	if serviceRate > arrivalRate {
		rho = arrivalRate / serviceRate
	}
	if rho < 1 {
		return TheoreticalReference{
			Rho:         rho,
			QueueLength: rho * rho / (1 - rho),
			Utilization: rho,
		}
	}
	return TheoreticalReference{Rho: rho, QueueLength: math.Inf(1), Utilization: 1.0}
}

// LittleLaw returns the L = λW check, or nil before LittleLawMinServed
// departures or while no time has elapsed.
func (e *Engine) LittleLaw() *LittleLawCheck {
	if e.customersServed < LittleLawMinServed || e.currentTime <= 0 {
		return nil
	}
	l := e.timeWeightedCustomers / e.currentTime
	lambda := float64(e.totalCustomers) / e.currentTime
	w := e.totalTimeInSystem / float64(e.customersServed)
	lw := lambda * w
	diff := math.Abs(l - lw)
	rel := diff / math.Max(l, minDenominator)
	return &LittleLawCheck{
		L:             l,
		Lambda:        lambda,
		W:             w,
		LambdaTimesW:  lw,
		Error:         diff,
		RelativeError: rel,
		Verified:      rel < LittleLawTolerance,
	}
}

// TimeBreakdown returns average wait, service and total time, or nil before
// TimeBreakdownMinServed departures. Average service time is taken over the
// retained completed-customer log.
func (e *Engine) TimeBreakdown() *TimeBreakdown {
	if e.customersServed < TimeBreakdownMinServed {
		return nil
	}
	served := float64(e.customersServed)
	avgWait := e.totalWaitTime / served
	avgTotal := e.totalTimeInSystem / served

	avgService := 0.0
	if len(e.completed) > 0 {
		sum := 0.0
		for _, c := range e.completed {
			sum += c.ServiceTime
		}
		avgService = sum / float64(len(e.completed))
	}

	denom := math.Max(avgTotal, minDenominator)
	return &TimeBreakdown{
		AvgWaitTime:     avgWait,
		AvgServiceTime:  avgService,
		AvgTimeInSystem: avgTotal,
		WaitFraction:    avgWait / denom,
		ServiceFraction: avgService / denom,
	}
}

// SteadyState grades the run by the number of departures.
func (e *Engine) SteadyState() SteadyState {
	return NewSteadyState(e.customersServed)
}

// NewSteadyState grades a run that has served the given number of customers.
func NewSteadyState(served int64) SteadyState {
	ss := SteadyState{
		CustomersServed: served,
		CustomersNeeded: SteadyStateThreshold,
		Progress:        math.Min(float64(served)/SteadyStateThreshold, 1.0),
		IsSteadyState:   served >= SteadyStateThreshold,
	}
	switch {
	case served < 20:
		ss.Confidence, ss.Reliability = ConfidenceVeryLow, "Not reliable"
	case served < 50:
		ss.Confidence, ss.Reliability = ConfidenceLow, "Use with caution"
	case served < SteadyStateThreshold:
		ss.Confidence, ss.Reliability = ConfidenceMedium, "Moderately reliable"
	default:
		ss.Confidence, ss.Reliability = ConfidenceHigh, "Reliable"
	}
	return ss
}

func (e *Engine) queueLengthSummary() QueueLengthSummary {
	return QueueLengthSummary{
		Mean:         e.queueLengthStats.Mean(),
		StdDev:       e.queueLengthStats.StdDev(),
		Max:          e.queueLengthStats.Max(),
		WindowMean:   e.queueLengthHistory.WindowMean(QueueWindowSize),
		WindowStdDev: e.queueLengthHistory.WindowStdDev(QueueWindowSize),
	}
}
