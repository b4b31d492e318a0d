package trace

// TraceLevel controls the verbosity of adjustment tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelAdjustments captures every rate change made by the controller.
	TraceLevelAdjustments TraceLevel = "adjustments"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:        true,
	TraceLevelAdjustments: true,
	"":                    true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// AdjustmentTrace collects adjustment records during a run.
type AdjustmentTrace struct {
	Level       TraceLevel
	Adjustments []AdjustmentRecord
}

// NewAdjustmentTrace creates an AdjustmentTrace ready for recording.
func NewAdjustmentTrace(level TraceLevel) *AdjustmentTrace {
	return &AdjustmentTrace{
		Level:       level,
		Adjustments: make([]AdjustmentRecord, 0),
	}
}

// Enabled reports whether records will be kept.
func (at *AdjustmentTrace) Enabled() bool {
	return at != nil && at.Level == TraceLevelAdjustments
}

// RecordAdjustment appends a record when tracing is enabled.
func (at *AdjustmentTrace) RecordAdjustment(record AdjustmentRecord) {
	if !at.Enabled() {
		return
	}
	at.Adjustments = append(at.Adjustments, record)
}
