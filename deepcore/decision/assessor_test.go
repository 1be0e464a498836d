package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func confPtr(c ConfidenceLevel) *ConfidenceLevel { return &c }

func TestConfidenceOrdering(t *testing.T) {
	assert.True(t, ConfidenceVeryHigh.AtLeast(ConfidenceHigh))
	assert.True(t, ConfidenceMedium.AtLeast(ConfidenceMedium))
	assert.False(t, ConfidenceLow.AtLeast(ConfidenceMedium))
	assert.Equal(t, 0, ConfidenceVeryLow.Rank())
	assert.Equal(t, 4, ConfidenceVeryHigh.Rank())
}

func TestConfidenceCap(t *testing.T) {
	assert.Equal(t, ConfidenceLow, ConfidenceVeryHigh.Cap(ConfidenceLow))
	assert.Equal(t, ConfidenceLow, ConfidenceLow.Cap(ConfidenceHigh))
}

func TestParseConfidenceDefaultsToMedium(t *testing.T) {
	assert.Equal(t, ConfidenceMedium, ParseConfidence(""))
	assert.Equal(t, ConfidenceMedium, ParseConfidence("certain"))
	assert.Equal(t, ConfidenceVeryHigh, ParseConfidence("very_high"))
}

func TestParseTypeDefaultsToContinue(t *testing.T) {
	assert.Equal(t, TypeContinue, ParseType("unknown"))
	assert.Equal(t, TypeSpawnChild, ParseType("spawn_child"))
}

func TestTypeIsTerminal(t *testing.T) {
	assert.True(t, TypeComplete.IsTerminal())
	assert.True(t, TypeRequestApproval.IsTerminal())
	assert.False(t, TypeContinue.IsTerminal())
	assert.False(t, TypeSelfCorrect.IsTerminal())
}

func TestAssessDeterministicTable(t *testing.T) {
	tests := []struct {
		name    string
		signals Signals
		want    ConfidenceLevel
	}{
		{
			name:    "no signals defaults to medium",
			signals: Signals{},
			want:    ConfidenceMedium,
		},
		{
			name:    "self report passes through when clean",
			signals: Signals{SelfReported: confPtr(ConfidenceVeryHigh), ValidationRan: true, ValidationPassed: true},
			want:    ConfidenceVeryHigh,
		},
		{
			name:    "validation failure caps at low",
			signals: Signals{SelfReported: confPtr(ConfidenceVeryHigh), ValidationRan: true, ValidationPassed: false},
			want:    ConfidenceLow,
		},
		{
			name:    "one tool failure caps at high",
			signals: Signals{SelfReported: confPtr(ConfidenceVeryHigh), ToolFailures: 1},
			want:    ConfidenceHigh,
		},
		{
			name:    "two tool failures cap at medium",
			signals: Signals{SelfReported: confPtr(ConfidenceVeryHigh), ToolFailures: 2},
			want:    ConfidenceMedium,
		},
		{
			name:    "caps compose",
			signals: Signals{SelfReported: confPtr(ConfidenceHigh), ValidationRan: true, ValidationPassed: false, ToolFailures: 3},
			want:    ConfidenceLow,
		},
		{
			name:    "caps never raise a low self report",
			signals: Signals{SelfReported: confPtr(ConfidenceVeryLow), ToolFailures: 1},
			want:    ConfidenceVeryLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Assess(tt.signals)
			assert.Equal(t, tt.want, got)
			// Same inputs, same output
			assert.Equal(t, got, Assess(tt.signals))
		})
	}
}
