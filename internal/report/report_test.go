package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func fixedRecorder() *Recorder {
	start := time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC)
	r := NewRecorder()
	r.started = start
	r.now = func() time.Time { return start.Add(3 * time.Second) }
	return r
}

func TestRecorder_SummaryAndOrder(t *testing.T) {
	t.Parallel()
	r := fixedRecorder()
	r.Add(ScenarioResult{Feature: "Register", Name: "b", Status: StatusPassed})
	r.Add(ScenarioResult{Feature: "Login", Name: "z", Status: StatusFailed, FailedStep: "I click the login button", Error: "boom"})
	r.Add(ScenarioResult{Feature: "Login", Name: "a", Status: StatusSkipped})
	r.Add(ScenarioResult{Feature: "Login", Name: "m", Status: StatusPending})

	sum := r.Summary()
	assert.Equal(t, Summary{Total: 4, Passed: 1, Failed: 1, Skipped: 1, Pending: 1, Duration: 3 * time.Second}, sum)
	assert.False(t, sum.OK())

	var names []string
	for _, res := range r.Results() {
		names = append(names, res.Feature+"/"+res.Name)
	}
	assert.Equal(t, []string{"Login/a", "Login/m", "Login/z", "Register/b"}, names)
}

func testRecorder_CountsMatch(t *rapid.T) {
	r := NewRecorder()
	statuses := rapid.SliceOf(rapid.SampledFrom([]Status{StatusPassed, StatusFailed, StatusSkipped, StatusPending})).Draw(t, "statuses")
	want := map[Status]int{}
	for i, s := range statuses {
		r.Add(ScenarioResult{Name: string(rune('a' + i%26)), Status: s})
		want[s]++
	}
	sum := r.Summary()
	if sum.Total != len(statuses) || sum.Passed != want[StatusPassed] || sum.Failed != want[StatusFailed] ||
		sum.Skipped != want[StatusSkipped] || sum.Pending != want[StatusPending] {
		t.Fatalf("summary %+v does not match %v", sum, want)
	}
	if sum.OK() != (want[StatusFailed] == 0) {
		t.Fatalf("OK() = %v with %d failures", sum.OK(), want[StatusFailed])
	}
}

func TestRecorder_CountsMatch(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testRecorder_CountsMatch)
}

func TestRecorder_ConcurrentAdd(t *testing.T) {
	t.Parallel()
	r := NewRecorder()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Add(ScenarioResult{Status: StatusPassed})
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, r.Summary().Passed)
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()
	r := fixedRecorder()
	r.Add(ScenarioResult{Feature: "Login", Name: "valid", Status: StatusPassed, Duration: time.Second})
	path := filepath.Join(t.TempDir(), "reports", "run.json")
	require.NoError(t, r.WriteJSON(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got jsonReport
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 1, got.Summary.Passed)
	require.Len(t, got.Scenarios, 1)
	assert.Equal(t, "valid", got.Scenarios[0].Name)
}

func TestMarkdown_ListsFailures(t *testing.T) {
	t.Parallel()
	r := fixedRecorder()
	r.Add(ScenarioResult{Feature: "Login", Name: "valid | pipes", Status: StatusPassed})
	r.Add(ScenarioResult{
		Feature:     "Login",
		Name:        "wrong password",
		Status:      StatusFailed,
		FailedStep:  "I should see a message",
		Error:       "expected \"Login successful\"",
		Screenshots: []string{"test-results/screenshots/wrong_password/final.png"},
	})

	md := r.Markdown()
	assert.Contains(t, md, "**2 scenarios**: 1 passed, 1 failed")
	assert.Contains(t, md, `valid \| pipes`)
	assert.Contains(t, md, "## Failures")
	assert.Contains(t, md, "Step: `I should see a message`")
	assert.Contains(t, md, "wrong_password/final.png")
}

func TestMarkdown_Empty(t *testing.T) {
	t.Parallel()
	assert.Contains(t, NewRecorder().Markdown(), "No scenarios ran.")
}

func TestHTML_SanitizesScenarioText(t *testing.T) {
	t.Parallel()
	r := fixedRecorder()
	r.Add(ScenarioResult{Feature: "XSS", Name: `<script>alert(1)</script>`, Status: StatusFailed, Error: "<img src=x onerror=alert(1)>"})

	path := filepath.Join(t.TempDir(), "run.html")
	require.NoError(t, r.WriteHTML(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	page := string(data)

	assert.True(t, strings.HasPrefix(page, "<!doctype html>"))
	assert.Contains(t, page, "<table>")
	assert.NotContains(t, page, "<script>alert")
	assert.NotContains(t, page, "<img")
	assert.Contains(t, page, `class="failed"`)
}
