package trace

// TraceSummary aggregates statistics from an AdjustmentTrace.
type TraceSummary struct {
	TotalAdjustments int
	ByParameter      map[Parameter]int // parameter → number of changes
	ByStrategy       map[string]int    // strategy → number of changes
	NetArrivalDrift  float64           // sum of λ deltas
	NetServiceDrift  float64           // sum of μ deltas
	LargestStep      float64           // largest absolute single change
	FirstTick        int64
	LastTick         int64
}

// Summarize computes aggregate statistics from an AdjustmentTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(at *AdjustmentTrace) *TraceSummary {
	summary := &TraceSummary{
		ByParameter: make(map[Parameter]int),
		ByStrategy:  make(map[string]int),
	}
	if at == nil || len(at.Adjustments) == 0 {
		return summary
	}

	summary.TotalAdjustments = len(at.Adjustments)
	summary.FirstTick = at.Adjustments[0].Tick
	summary.LastTick = at.Adjustments[len(at.Adjustments)-1].Tick
	for _, r := range at.Adjustments {
		summary.ByParameter[r.Parameter]++
		summary.ByStrategy[r.Strategy]++
		d := r.Delta()
		switch r.Parameter {
		case ParamArrivalRate:
			summary.NetArrivalDrift += d
		case ParamServiceRate:
			summary.NetServiceDrift += d
		}
		if d < 0 {
			d = -d
		}
		if d > summary.LargestStep {
			summary.LargestStep = d
		}
	}
	return summary
}
