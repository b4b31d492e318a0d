package trace

import "testing"

func TestIsValidTraceLevel(t *testing.T) {
	tests := []struct {
		level string
		want  bool
	}{
		{"none", true},
		{"adjustments", true},
		{"", true},
		{"decisions", false},
		{"verbose", false},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			if got := IsValidTraceLevel(tt.level); got != tt.want {
				t.Errorf("IsValidTraceLevel(%q) = %v, want %v", tt.level, got, tt.want)
			}
		})
	}
}

func TestAdjustmentTrace_RecordAdjustment_Enabled_Appends(t *testing.T) {
	// GIVEN a trace at the adjustments level
	at := NewAdjustmentTrace(TraceLevelAdjustments)

	// WHEN two records are appended
	at.RecordAdjustment(AdjustmentRecord{Tick: 1, Parameter: ParamArrivalRate, Old: 1, New: 1.01})
	at.RecordAdjustment(AdjustmentRecord{Tick: 2, Parameter: ParamServiceRate, Old: 3, New: 2.995})

	// THEN both are kept in order
	if len(at.Adjustments) != 2 {
		t.Fatalf("expected 2 records, got %d", len(at.Adjustments))
	}
	if at.Adjustments[0].Tick != 1 || at.Adjustments[1].Tick != 2 {
		t.Errorf("records out of order: %+v", at.Adjustments)
	}
}

func TestAdjustmentTrace_RecordAdjustment_NoneLevel_Drops(t *testing.T) {
	// GIVEN a disabled trace
	at := NewAdjustmentTrace(TraceLevelNone)

	// WHEN a record is appended
	at.RecordAdjustment(AdjustmentRecord{Tick: 1})

	// THEN nothing is kept
	if len(at.Adjustments) != 0 {
		t.Errorf("expected no records, got %d", len(at.Adjustments))
	}
}

func TestAdjustmentTrace_NilReceiver_IsDisabled(t *testing.T) {
	var at *AdjustmentTrace
	if at.Enabled() {
		t.Error("nil trace must report disabled")
	}
	// must not panic
	at.RecordAdjustment(AdjustmentRecord{Tick: 1})
}
