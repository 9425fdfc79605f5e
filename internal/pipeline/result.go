package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Status is the machine code for one project's outcome. Use
// display.Status for human-readable output.
type Status string

const (
	// StatusPassed: the downstream test suite passed against the local
	// library checkout.
	StatusPassed Status = "passed"

	// StatusFailed: the build succeeded but the filtered test suite did not.
	StatusFailed Status = "failed"

	// StatusBuildError: the project never reached its tests — clone,
	// manifest rewrite, or build broke.
	StatusBuildError Status = "build-error"
)

// RunResult is the recorded outcome of one downstream project.
type RunResult struct {
	Project  string        `json:"project"`
	Status   Status        `json:"status"`
	Detail   string        `json:"detail,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Report aggregates one compatibility run. Results are in matrix order.
type Report struct {
	RunID   string        `json:"run_id"`
	Library string        `json:"library"`
	Started time.Time     `json:"started"`
	Elapsed time.Duration `json:"elapsed_ns"`
	Results []RunResult   `json:"results"`
}

// OK reports overall success: true iff every result is Passed. This is the
// single signal the surrounding CI system gates on.
func (r *Report) OK() bool {
	for _, res := range r.Results {
		if res.Status != StatusPassed {
			return false
		}
	}
	return true
}

// Failed returns the results that are not Passed, in matrix order.
func (r *Report) Failed() []RunResult {
	var out []RunResult
	for _, res := range r.Results {
		if res.Status != StatusPassed {
			out = append(out, res)
		}
	}
	return out
}

// WriteJSON writes the report artifact for CI post-processing.
func (r *Report) WriteJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
