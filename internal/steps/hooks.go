package steps

import (
	"context"
	"errors"
	"path"
	"strings"
	"sync"

	"github.com/cucumber/godog"
	"github.com/google/uuid"

	"github.com/kuitang/authflow-e2e/internal/artifacts"
	"github.com/kuitang/authflow-e2e/internal/obs"
	"github.com/kuitang/authflow-e2e/internal/pages"
	"github.com/kuitang/authflow-e2e/internal/report"
	"github.com/kuitang/authflow-e2e/internal/scenario"
)

// run tracks one scenario's outcome while it executes.
type run struct {
	mu     sync.Mutex
	result report.ScenarioResult
}

func (r *run) addScreenshot(loc string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.result.Screenshots = append(r.result.Screenshots, loc)
}

func (r *run) failStep(step string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.result.FailedStep == "" {
		r.result.FailedStep = step
		if err != nil {
			r.result.Error = err.Error()
		}
	}
}

type runKey struct{}

func runFrom(ctx context.Context) *run {
	r, _ := ctx.Value(runKey{}).(*run)
	return r
}

// featureName derives a feature name from its file, e.g. "login" for
// "features/login.feature".
func featureName(uri string) string {
	return strings.TrimSuffix(path.Base(uri), path.Ext(uri))
}

func tagNames(sc *godog.Scenario) []string {
	tags := make([]string, 0, len(sc.Tags))
	for _, t := range sc.Tags {
		tags = append(tags, t.Name)
	}
	return tags
}

func (s *Suite) registerHooks(sc *godog.ScenarioContext) {
	sc.Before(s.beforeScenario)
	sc.After(s.afterScenario)
	sc.StepContext().Before(func(ctx context.Context, st *godog.Step) (context.Context, error) {
		ctx = obs.WithStep(ctx, st.Text)
		obs.From(ctx).Debug("step_started")
		return ctx, nil
	})
	sc.StepContext().After(s.afterStep)
}

func (s *Suite) beforeScenario(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
	id := uuid.NewString()
	feature := featureName(sc.Uri)
	ctx = obs.WithScenario(ctx, feature, sc.Name, id)
	ctx = context.WithValue(ctx, runKey{}, &run{result: report.ScenarioResult{
		ID:      id,
		Feature: feature,
		Name:    sc.Name,
		Tags:    tagNames(sc),
		Started: s.now(),
	}})
	obs.From(ctx).Info("scenario_started", "tags", strings.Join(tagNames(sc), " "))

	session, err := s.openSession(id)
	if err != nil {
		return ctx, err
	}
	tc := scenario.New(id, feature, sc.Name, session, pages.OptionsFromConfig(s.Config))
	tc.Values.Set("scenario", sc.Name)
	return scenario.With(ctx, tc), nil
}

func (s *Suite) afterStep(ctx context.Context, st *godog.Step, status godog.StepResultStatus, err error) (context.Context, error) {
	if status != godog.StepFailed {
		return ctx, nil
	}
	obs.From(ctx).Warn("step_failed", "err", errString(err))
	if r := runFrom(ctx); r != nil {
		r.failStep(st.Text, err)
	}
	s.screenshot(ctx, st.Text)
	return ctx, nil
}

func (s *Suite) afterScenario(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
	if err != nil {
		s.screenshot(ctx, "")
	}
	if tc, terr := scenario.From(ctx); terr == nil {
		if cerr := tc.Close(); cerr != nil {
			obs.From(ctx).Warn("session_close_failed", "err", cerr.Error())
		}
	}

	r := runFrom(ctx)
	if r == nil {
		return ctx, nil
	}
	r.mu.Lock()
	res := r.result
	res.Screenshots = append([]string(nil), r.result.Screenshots...)
	r.mu.Unlock()

	res.Duration = s.now().Sub(res.Started)
	res.Status = statusOf(err)
	if err != nil && res.Error == "" {
		res.Error = err.Error()
	}
	s.Recorder.Add(res)
	obs.From(ctx).Info("scenario_finished", "status", string(res.Status), "duration_ms", res.Duration.Milliseconds())
	return ctx, nil
}

func statusOf(err error) report.Status {
	switch {
	case err == nil:
		return report.StatusPassed
	case errors.Is(err, godog.ErrPending), errors.Is(err, godog.ErrUndefined):
		return report.StatusPending
	case errors.Is(err, godog.ErrSkip):
		return report.StatusSkipped
	}
	return report.StatusFailed
}

// screenshot captures the page and stores it. Failures are logged only.
func (s *Suite) screenshot(ctx context.Context, step string) {
	tc, err := scenario.From(ctx)
	if err != nil || tc.Session == nil || s.Artifacts == nil {
		return
	}
	png, err := tc.Session.Screenshot()
	if err != nil {
		obs.From(ctx).Error("screenshot_failed", "err", err.Error())
		return
	}
	name := artifacts.ScreenshotName(tc.Name, step, s.now())
	loc, err := s.Artifacts.Put(ctx, name, png, artifacts.ContentTypePNG)
	if loc != "" {
		if r := runFrom(ctx); r != nil {
			r.addScreenshot(loc)
		}
		obs.From(ctx).Info("screenshot_saved", "location", loc)
	}
	if err != nil {
		obs.From(ctx).Error("screenshot_store_failed", "err", err.Error())
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
