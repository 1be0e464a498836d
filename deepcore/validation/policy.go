// Package validation classifies agent iteration output against declarative policies.
//
// Validation is pure: it never mutates the output, calls no external services,
// and the same output and policy always produce the same report.
package validation

// Rule is a custom deterministic check over an output.
// It returns false plus a human-readable error when the check fails.
type Rule func(out Output) (bool, string)

// Policy declares the structural and content checks for one kind of output.
// A nil policy validates trivially.
type Policy struct {
	Name string `json:"name"`

	// Structural rules
	RequiredFields []string `json:"required_fields,omitempty"` // keys that must exist in Fields
	NonEmptyLists  []string `json:"non_empty_lists,omitempty"` // keys whose list values must not be empty
	MinLength      int      `json:"min_length,omitempty"`      // minimum length of Text

	// Content rules
	ForbiddenMarkers []string `json:"forbidden_markers,omitempty"` // placeholder substrings that fail validation

	// Custom rules, applied after the declarative ones.
	Rules []Rule `json:"-"`
}

// Output is the unit handed to Validate: the raw text of an iteration plus
// any structured fields parsed from it.
type Output struct {
	Text   string
	Fields map[string]any
}

// DefaultForbiddenMarkers are placeholder fragments that indicate unfinished output.
var DefaultForbiddenMarkers = []string{
	"TODO",
	"TBD",
	"FIXME",
	"[placeholder]",
	"lorem ipsum",
}
