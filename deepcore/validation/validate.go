package validation

import (
	"fmt"
	"strings"

	"github.com/deepline-systems/sdlcengine/deepcore/decision"
)

// Report is the outcome of a validation pass.
type Report struct {
	IsValid        bool                     `json:"is_valid"`
	Errors         []string                 `json:"errors,omitempty"`
	ConfidenceHint decision.ConfidenceLevel `json:"confidence_hint"`
}

// Validate checks out against p and returns a report.
// A nil policy is trivially valid. Validation is idempotent: re-validating
// the same output yields an identical report.
func Validate(out Output, p *Policy) Report {
	if p == nil {
		return Report{IsValid: true, ConfidenceHint: decision.ConfidenceHigh}
	}

	var errs []string

	for _, field := range p.RequiredFields {
		if _, exists := out.Fields[field]; !exists {
			errs = append(errs, fmt.Sprintf("missing required field: %s", field))
		}
	}

	for _, field := range p.NonEmptyLists {
		value, exists := out.Fields[field]
		if !exists {
			continue // absence is the RequiredFields rule's concern
		}
		if listLen(value) == 0 {
			errs = append(errs, fmt.Sprintf("field %s must be a non-empty list", field))
		}
	}

	if p.MinLength > 0 && len(strings.TrimSpace(out.Text)) < p.MinLength {
		errs = append(errs, fmt.Sprintf("output length %d below minimum %d", len(strings.TrimSpace(out.Text)), p.MinLength))
	}

	lower := strings.ToLower(out.Text)
	for _, marker := range p.ForbiddenMarkers {
		if strings.Contains(lower, strings.ToLower(marker)) {
			errs = append(errs, fmt.Sprintf("output contains placeholder marker: %s", marker))
		}
	}

	for _, rule := range p.Rules {
		if ok, msg := rule(out); !ok {
			errs = append(errs, msg)
		}
	}

	if len(errs) > 0 {
		return Report{IsValid: false, Errors: errs, ConfidenceHint: decision.ConfidenceLow}
	}
	return Report{IsValid: true, ConfidenceHint: decision.ConfidenceHigh}
}

func listLen(value any) int {
	switch v := value.(type) {
	case []any:
		return len(v)
	case []string:
		return len(v)
	case []map[string]any:
		return len(v)
	default:
		// Non-list values count as empty for list rules
		return 0
	}
}
