// Package trace provides adjustment-trace recording for rate controller analysis.
// This package has no dependencies on sim/ or sim/control/; it stores pure data types.
package trace

// Parameter names the rate a controller adjusted.
type Parameter string

const (
	ParamArrivalRate Parameter = "arrival_rate"
	ParamServiceRate Parameter = "service_rate"
)

// AdjustmentRecord captures a single rate change made by the controller.
type AdjustmentRecord struct {
	Tick       int64   // controller tick (call count) that made the change
	Clock      float64 // simulated time at the change
	Strategy   string
	Parameter  Parameter
	Old        float64
	New        float64
	RecentUtil float64 // windowed utilization that drove the decision
	Reason     string
}

// Delta returns New - Old.
func (r AdjustmentRecord) Delta() float64 {
	return r.New - r.Old
}
