package decision

// Signals carries the deterministic inputs to confidence assessment.
// SelfReported is the level the oracle claimed for itself, if any.
type Signals struct {
	ValidationRan    bool
	ValidationPassed bool
	ToolFailures     int
	SelfReported     *ConfidenceLevel
}

// Assess derives a confidence level from observed signals.
//
// Rules, applied as caps on the self-reported level:
//   - validation ran and failed: at most low
//   - two or more tool failures: at most medium
//   - exactly one tool failure: at most high
//   - no self-report: medium before caps
//
// The same signals always produce the same level.
func Assess(s Signals) ConfidenceLevel {
	level := ConfidenceMedium
	if s.SelfReported != nil {
		level = *s.SelfReported
	}

	if s.ValidationRan && !s.ValidationPassed {
		level = level.Cap(ConfidenceLow)
	}

	switch {
	case s.ToolFailures >= 2:
		level = level.Cap(ConfidenceMedium)
	case s.ToolFailures == 1:
		level = level.Cap(ConfidenceHigh)
	}

	return level
}
