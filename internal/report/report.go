// Package report records scenario outcomes and writes the run report.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Status is a scenario outcome.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
	StatusPending Status = "pending"
)

type ScenarioResult struct {
	ID          string        `json:"id"`
	Feature     string        `json:"feature"`
	Name        string        `json:"name"`
	Tags        []string      `json:"tags,omitempty"`
	Status      Status        `json:"status"`
	Started     time.Time     `json:"started"`
	Duration    time.Duration `json:"duration_ns"`
	FailedStep  string        `json:"failed_step,omitempty"`
	Error       string        `json:"error,omitempty"`
	Screenshots []string      `json:"screenshots,omitempty"`
}

// Summary counts scenarios by status.
type Summary struct {
	Total    int           `json:"total"`
	Passed   int           `json:"passed"`
	Failed   int           `json:"failed"`
	Skipped  int           `json:"skipped"`
	Pending  int           `json:"pending"`
	Duration time.Duration `json:"duration_ns"`
}

// OK reports whether no scenario failed.
func (s Summary) OK() bool { return s.Failed == 0 }

// Recorder collects results from concurrently running scenarios.
type Recorder struct {
	mu      sync.Mutex
	started time.Time
	now     func() time.Time
	results []ScenarioResult
}

func NewRecorder() *Recorder {
	return &Recorder{started: time.Now(), now: time.Now}
}

// Add records one finished scenario.
func (r *Recorder) Add(res ScenarioResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res.Screenshots = append([]string(nil), res.Screenshots...)
	r.results = append(r.results, res)
}

// Results returns the recorded scenarios ordered by feature, then name.
func (r *Recorder) Results() []ScenarioResult {
	r.mu.Lock()
	out := append([]ScenarioResult(nil), r.results...)
	r.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Feature != out[j].Feature {
			return out[i].Feature < out[j].Feature
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (r *Recorder) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := Summary{Total: len(r.results), Duration: r.now().Sub(r.started)}
	for _, res := range r.results {
		switch res.Status {
		case StatusPassed:
			s.Passed++
		case StatusFailed:
			s.Failed++
		case StatusSkipped:
			s.Skipped++
		default:
			s.Pending++
		}
	}
	return s
}

type jsonReport struct {
	Summary   Summary          `json:"summary"`
	Scenarios []ScenarioResult `json:"scenarios"`
}

// WriteJSON writes the summary and every result to path.
func (r *Recorder) WriteJSON(path string) error {
	data, err := json.MarshalIndent(jsonReport{Summary: r.Summary(), Scenarios: r.Results()}, "", "  ")
	if err != nil {
		return fmt.Errorf("report: marshal: %w", err)
	}
	return writeFile(path, data)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("report: create dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("report: write %s: %w", path, err)
	}
	return nil
}
