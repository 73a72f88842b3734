// Package scenario loads TOML scenario documents describing how to explore
// a program: the memory model, the bound family, the execution cap, and
// named property expressions — mirroring the teacher's model.Spec/
// SpecDetails/ThreadSpec/PropertySpec pattern in model/spec.go.
package scenario

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/dendrite-sct/dendrite/action"
	"github.com/dendrite-sct/dendrite/dpor"
)

// Scenario is one TOML scenario document.
type Scenario struct {
	Scenario   Details                 `toml:""`
	Properties map[string]PropertySpec `toml:",omitempty"`
}

// Details holds the scenario's top-level settings.
type Details struct {
	Name            string `toml:",omitempty"`
	MemoryModel     string `toml:"memory_model,omitempty"`     // "sc" (default) | "tso" | "pso"
	MaxExecutions   int    `toml:"max_executions,omitempty"`   // 0 defaults to 1000
	PreemptionBound int    `toml:"preemption_bound,omitempty"` // 0 disables this axis
	LengthBound     int    `toml:"length_bound,omitempty"`
	FairBound       int    `toml:"fair_bound,omitempty"`
	// ExpectedFailure, if set, names a Failure.Tag() or a substring of
	// Failure.Error() a scenario's run is expected to produce; used by the
	// engine's own regression suite to assert "this scenario should fail
	// this way" rather than merely "this scenario should not error".
	ExpectedFailure string `toml:"expected_failure,omitempty"`
}

// PropertySpec is a single named boolean property, written in the
// expression language propexpr evaluates. Parse only loads it; nothing in
// this package evaluates it.
type PropertySpec struct {
	Expr string `toml:",omitempty"`
}

// Parse decodes a scenario document from its TOML bytes.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if _, err := toml.Decode(string(data), &s); err != nil {
		return nil, fmt.Errorf("scenario: parse: %w", err)
	}
	return &s, nil
}

// LoadFromFile reads and parses a scenario document from path.
func LoadFromFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: read %s: %w", path, err)
	}
	return Parse(data)
}

// MemoryType resolves the configured memory model name.
func (s *Scenario) MemoryType() (action.MemoryType, error) {
	switch strings.ToLower(s.Scenario.MemoryModel) {
	case "", "sc", "sequentialconsistency":
		return action.SequentialConsistency, nil
	case "tso", "totalstoreorder":
		return action.TotalStoreOrder, nil
	case "pso", "partialstoreorder":
		return action.PartialStoreOrder, nil
	default:
		return 0, fmt.Errorf("scenario: unknown memory model %q", s.Scenario.MemoryModel)
	}
}

// Bound composes the configured bound family by conjunction; an axis left
// at zero is unconstrained, and an all-zero configuration explores
// exhaustively.
func (s *Scenario) Bound() dpor.Bound {
	var bounds dpor.And
	if s.Scenario.PreemptionBound > 0 {
		bounds = append(bounds, dpor.PreemptionBound(s.Scenario.PreemptionBound))
	}
	if s.Scenario.LengthBound > 0 {
		bounds = append(bounds, dpor.LengthBound(s.Scenario.LengthBound))
	}
	if s.Scenario.FairBound > 0 {
		bounds = append(bounds, dpor.FairBound(s.Scenario.FairBound))
	}
	if len(bounds) == 0 {
		return dpor.Unbounded{}
	}
	return bounds
}

// MaxExecutions returns the configured execution cap, defaulting to 1000.
func (s *Scenario) MaxExecutions() int {
	if s.Scenario.MaxExecutions <= 0 {
		return 1000
	}
	return s.Scenario.MaxExecutions
}

// MatchesExpectedFailure reports whether fail (nil for a successful run)
// matches this scenario's ExpectedFailure, mirroring the teacher's
// Spec.MatchesExpectedResult.
func (s *Scenario) MatchesExpectedFailure(fail *action.Failure) bool {
	if s.Scenario.ExpectedFailure == "" {
		return fail == nil
	}
	if fail == nil {
		return false
	}
	want := strings.ToLower(s.Scenario.ExpectedFailure)
	return strings.Contains(strings.ToLower(fail.Tag()), want) ||
		strings.Contains(strings.ToLower(fail.Error()), want)
}
