// Package config provides declarative stage and pipeline configuration for
// the orchestrator, loadable from YAML.
package config

import (
	"fmt"
	"time"

	"github.com/deepline-systems/sdlcengine/deepcore/decision"
	"github.com/deepline-systems/sdlcengine/deepcore/validation"
)

// Defaults applied by Validate when a field is unset.
const (
	DefaultMaxPipelineIterations = 20
	DefaultFailureThreshold      = 3
	DefaultStageMaxIterations    = 10
	DefaultToolTimeoutSeconds    = 60
)

// StageConfig is the declarative configuration of one pipeline stage.
// Each stage runs as one agent task; the objective may reference
// {input}, {stage} and {artifact:<stage>} placeholders resolved at run time.
type StageConfig struct {
	// Identity
	Name      string `json:"name" yaml:"name"`
	Objective string `json:"objective" yaml:"objective"`

	// Prompting
	SystemPrompt string   `json:"system_prompt,omitempty" yaml:"system_prompt"`
	Tools        []string `json:"tools,omitempty" yaml:"tools"`

	// Output validation
	RequiredFields   []string `json:"required_fields,omitempty" yaml:"required_fields"`
	NonEmptyLists    []string `json:"non_empty_lists,omitempty" yaml:"non_empty_lists"`
	MinLength        int      `json:"min_length,omitempty" yaml:"min_length"`
	ForbiddenMarkers []string `json:"forbidden_markers,omitempty" yaml:"forbidden_markers"`

	// Loop control
	MaxIterations      int      `json:"max_iterations,omitempty" yaml:"max_iterations"`
	CompletionMarkers  []string `json:"completion_markers,omitempty" yaml:"completion_markers"`
	ToolTimeoutSeconds int      `json:"tool_timeout_seconds,omitempty" yaml:"tool_timeout_seconds"`

	// Autonomy
	// MinConfidence is the floor for autonomous completion of this stage.
	MinConfidence decision.ConfidenceLevel `json:"min_confidence,omitempty" yaml:"min_confidence"`
	// ApprovalRequired forces a human gate even at full confidence.
	ApprovalRequired bool `json:"approval_required,omitempty" yaml:"approval_required"`
	// Mandatory stages terminate the pipeline when skipped by the breaker.
	Mandatory bool `json:"mandatory,omitempty" yaml:"mandatory"`

	// ArtifactKey names the artifact in pipeline state. Defaults to Name.
	ArtifactKey string `json:"artifact_key,omitempty" yaml:"artifact_key"`
}

// Validate validates the stage configuration and applies defaults.
func (s *StageConfig) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("StageConfig.Name is required")
	}
	if s.Objective == "" {
		return fmt.Errorf("stage '%s' has no objective", s.Name)
	}
	if s.ArtifactKey == "" {
		s.ArtifactKey = s.Name
	}
	if s.MaxIterations <= 0 {
		s.MaxIterations = DefaultStageMaxIterations
	}
	if s.MinConfidence != "" && decision.ParseConfidence(string(s.MinConfidence)) != s.MinConfidence {
		return fmt.Errorf("stage '%s' has unknown min_confidence '%s'", s.Name, s.MinConfidence)
	}
	return nil
}

// Policy builds the validation policy for the stage, or nil when the stage
// declares no output constraints.
func (s *StageConfig) Policy() *validation.Policy {
	if len(s.RequiredFields) == 0 && len(s.NonEmptyLists) == 0 && s.MinLength == 0 && len(s.ForbiddenMarkers) == 0 {
		return nil
	}
	markers := s.ForbiddenMarkers
	if len(markers) == 0 {
		markers = validation.DefaultForbiddenMarkers
	}
	return &validation.Policy{
		Name:             s.Name,
		RequiredFields:   s.RequiredFields,
		NonEmptyLists:    s.NonEmptyLists,
		MinLength:        s.MinLength,
		ForbiddenMarkers: markers,
	}
}

// ToolTimeout returns the per-call tool budget, or zero for the invoker default.
func (s *StageConfig) ToolTimeout() time.Duration {
	return time.Duration(s.ToolTimeoutSeconds) * time.Second
}

// PipelineConfig defines an ordered sequence of stages plus global bounds.
type PipelineConfig struct {
	Name   string         `json:"name" yaml:"name"`
	Stages []*StageConfig `json:"stages" yaml:"stages"`

	// Global bounds
	MaxPipelineIterations     int `json:"max_pipeline_iterations,omitempty" yaml:"max_pipeline_iterations"`
	FailureThreshold          int `json:"failure_threshold,omitempty" yaml:"failure_threshold"`
	DefaultToolTimeoutSeconds int `json:"default_tool_timeout_seconds,omitempty" yaml:"default_tool_timeout_seconds"`
}

// NewPipelineConfig creates a pipeline config with defaults.
func NewPipelineConfig(name string) *PipelineConfig {
	return &PipelineConfig{
		Name:                      name,
		Stages:                    make([]*StageConfig, 0),
		MaxPipelineIterations:     DefaultMaxPipelineIterations,
		FailureThreshold:          DefaultFailureThreshold,
		DefaultToolTimeoutSeconds: DefaultToolTimeoutSeconds,
	}
}

// AddStage validates and appends a stage.
func (p *PipelineConfig) AddStage(stage *StageConfig) error {
	if err := stage.Validate(); err != nil {
		return err
	}
	p.Stages = append(p.Stages, stage)
	return nil
}

// Validate validates the pipeline configuration and applies defaults.
func (p *PipelineConfig) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("PipelineConfig.Name is required")
	}
	if len(p.Stages) == 0 {
		return fmt.Errorf("pipeline '%s' has no stages", p.Name)
	}
	if p.MaxPipelineIterations <= 0 {
		p.MaxPipelineIterations = DefaultMaxPipelineIterations
	}
	if p.FailureThreshold <= 0 {
		p.FailureThreshold = DefaultFailureThreshold
	}
	if p.DefaultToolTimeoutSeconds <= 0 {
		p.DefaultToolTimeoutSeconds = DefaultToolTimeoutSeconds
	}

	names := make(map[string]bool)
	keys := make(map[string]bool)
	for _, stage := range p.Stages {
		if err := stage.Validate(); err != nil {
			return err
		}
		if names[stage.Name] {
			return fmt.Errorf("duplicate stage name: %s", stage.Name)
		}
		names[stage.Name] = true
		if keys[stage.ArtifactKey] {
			return fmt.Errorf("duplicate artifact key: %s", stage.ArtifactKey)
		}
		keys[stage.ArtifactKey] = true
	}
	return nil
}

// GetStage gets a stage config by name.
func (p *PipelineConfig) GetStage(name string) *StageConfig {
	for _, stage := range p.Stages {
		if stage.Name == name {
			return stage
		}
	}
	return nil
}

// StageOrder returns the ordered list of stage names.
func (p *PipelineConfig) StageOrder() []string {
	order := make([]string, len(p.Stages))
	for i, stage := range p.Stages {
		order[i] = stage.Name
	}
	return order
}
