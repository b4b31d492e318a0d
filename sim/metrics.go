// Builds the end-of-run report from a Statistics snapshot: a text summary for
// the terminal and a JSON file for later analysis.

package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Labels relabels report vocabulary (e.g. "customers" → "jobs").
// Missing keys fall back to the key itself.
type Labels map[string]string

// Term returns the label for key.
func (l Labels) Term(key string) string {
	if v, ok := l[key]; ok {
		return v
	}
	return key
}

// Metrics is the serializable end-of-run summary.
// TheoreticalQueueLength is nil when the reference queue is unbounded (ρ >= 1).
type Metrics struct {
	ArrivalRate     float64 `json:"arrival_rate"`
	ServiceRate     float64 `json:"service_rate"`
	Rho             float64 `json:"rho"`
	SimulatedTime   float64 `json:"simulated_time"`
	Steps           int64   `json:"steps"`
	TotalCustomers  int64   `json:"total_customers"`
	CustomersServed int64   `json:"customers_served"`
	QueueLength     int     `json:"queue_length"`
	AvgUtilization  float64 `json:"avg_utilization"`
	AvgWaitTime     float64 `json:"avg_wait_time"`

	TheoreticalRho         float64  `json:"theoretical_rho"`
	TheoreticalUtilization float64  `json:"theoretical_utilization"`
	TheoreticalQueueLength *float64 `json:"theoretical_queue_length"`

	QueueStats    QueueLengthSummary `json:"queue_stats"`
	LittleLaw     *LittleLawCheck    `json:"little_law,omitempty"`
	TimeBreakdown *TimeBreakdown     `json:"time_breakdown,omitempty"`
	SteadyState   SteadyState        `json:"steady_state"`
}

// NewMetrics summarises a snapshot taken after the given number of steps.
func NewMetrics(s Statistics, steps int64) *Metrics {
	m := &Metrics{
		ArrivalRate:            s.ArrivalRate,
		ServiceRate:            s.ServiceRate,
		Rho:                    s.Rho,
		SimulatedTime:          s.CurrentTime,
		Steps:                  steps,
		TotalCustomers:         s.TotalCustomers,
		CustomersServed:        s.CustomersServed,
		QueueLength:            s.QueueLength,
		AvgUtilization:         s.AvgUtilization,
		AvgWaitTime:            s.AvgWaitTime,
		TheoreticalRho:         s.Theoretical.Rho,
		TheoreticalUtilization: s.Theoretical.Utilization,
		QueueStats:             s.QueueStats,
		LittleLaw:              s.LittleLaw,
		TimeBreakdown:          s.TimeBreakdown,
		SteadyState:            s.SteadyState,
	}
	if !math.IsInf(s.Theoretical.QueueLength, 0) {
		q := s.Theoretical.QueueLength
		m.TheoreticalQueueLength = &q
	}
	return m
}

// Print writes a human-readable report to w.
func (m *Metrics) Print(w io.Writer, l Labels) {
	fmt.Fprintln(w, "=== Simulation Metrics ===")
	fmt.Fprintf(w, "%-24s: λ=%.3f μ=%.3f ρ=%.3f\n", "Rates", m.ArrivalRate, m.ServiceRate, m.Rho)
	fmt.Fprintf(w, "%-24s: %.2f (%d steps)\n", "Simulated time", m.SimulatedTime, m.Steps)
	fmt.Fprintf(w, "%-24s: %d\n", "Total "+l.Term("arrivals"), m.TotalCustomers)
	fmt.Fprintf(w, "%-24s: %d\n", capitalize(l.Term("customers"))+" "+l.Term("served"), m.CustomersServed)
	fmt.Fprintf(w, "%-24s: %d\n", capitalize(l.Term("queue"))+" length", m.QueueLength)
	fmt.Fprintf(w, "%-24s: %.3f (theory %.3f)\n", "Avg "+l.Term("utilization"), m.AvgUtilization, m.TheoreticalUtilization)
	fmt.Fprintf(w, "%-24s: %.3f\n", "Avg "+l.Term("wait_time"), m.AvgWaitTime)
	if m.TheoreticalQueueLength != nil {
		fmt.Fprintf(w, "%-24s: %.3f (theory %.3f)\n", "Mean queue length", m.QueueStats.Mean, *m.TheoreticalQueueLength)
	} else {
		fmt.Fprintf(w, "%-24s: %.3f (theory unbounded)\n", "Mean queue length", m.QueueStats.Mean)
	}

	if ll := m.LittleLaw; ll != nil {
		status := "NOT verified"
		if ll.Verified {
			status = "verified"
		}
		fmt.Fprintf(w, "%-24s: L=%.3f λW=%.3f (rel. error %.1f%%, %s)\n", "Little's Law", ll.L, ll.LambdaTimesW, ll.RelativeError*100, status)
	} else {
		fmt.Fprintf(w, "%-24s: need %d %s served\n", "Little's Law", LittleLawMinServed, l.Term("customers"))
	}
	if tb := m.TimeBreakdown; tb != nil {
		fmt.Fprintf(w, "%-24s: wait %.3f (%.0f%%) + %s %.3f (%.0f%%) = %.3f\n", "Time breakdown",
			tb.AvgWaitTime, tb.WaitFraction*100, l.Term("service_time"), tb.AvgServiceTime, tb.ServiceFraction*100, tb.AvgTimeInSystem)
	}
	ss := m.SteadyState
	fmt.Fprintf(w, "%-24s: %s confidence, %s (%.0f%%)\n", "Steady state", ss.Confidence, ss.Reliability, ss.Progress*100)
}

// SaveResults writes the metrics as indented JSON to path.
func (m *Metrics) SaveResults(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	logrus.Debugf("Successfully wrote metrics to '%s'", path)
	return nil
}

var titleCaser = cases.Title(language.English)

func capitalize(s string) string {
	return titleCaser.String(s)
}
