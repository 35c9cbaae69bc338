// Package steps binds the Gherkin features to page objects with godog.
package steps

import (
	"io"
	"io/fs"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cucumber/godog"

	"github.com/kuitang/authflow-e2e/internal/artifacts"
	"github.com/kuitang/authflow-e2e/internal/browser"
	"github.com/kuitang/authflow-e2e/internal/config"
	"github.com/kuitang/authflow-e2e/internal/errs"
	"github.com/kuitang/authflow-e2e/internal/fakedata"
	"github.com/kuitang/authflow-e2e/internal/obs"
	"github.com/kuitang/authflow-e2e/internal/report"
	"github.com/kuitang/authflow-e2e/internal/scenario"
)

var logger = obs.Pkg("steps")

// Sessions opens one browser session per scenario.
type Sessions interface {
	NewSession(scenarioID string) (scenario.Session, error)
	Close() error
}

// LaunchFunc starts the browser once per run.
type LaunchFunc func() (Sessions, error)

type driverSessions struct {
	driver *browser.Driver
}

func (d driverSessions) NewSession(scenarioID string) (scenario.Session, error) {
	s, err := d.driver.NewSession(browser.WithScenarioID(scenarioID))
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (d driverSessions) Close() error { return d.driver.Close() }

// DriverLauncher launches a real playwright browser.
func DriverLauncher(opts browser.Options) LaunchFunc {
	return func() (Sessions, error) {
		d, err := browser.Launch(opts)
		if err != nil {
			return nil, err
		}
		return driverSessions{driver: d}, nil
	}
}

// Suite holds what every scenario of a run shares.
type Suite struct {
	Config    *config.Config
	Launch    LaunchFunc
	Artifacts artifacts.Store
	Recorder  *report.Recorder
	Fake      *fakedata.Generator
	Now       func() time.Time

	mu        sync.Mutex
	sessions  Sessions
	launchErr error
}

// NewSuite wires a suite that launches the configured browser and stores
// screenshots under the artifacts directory.
func NewSuite(cfg *config.Config, store artifacts.Store) *Suite {
	if store == nil {
		store = artifacts.NewDirStore(cfg.ScreenshotDir())
	}
	return &Suite{
		Config:    cfg,
		Launch:    DriverLauncher(browser.OptionsFromConfig(cfg)),
		Artifacts: store,
		Recorder:  report.NewRecorder(),
		Fake:      fakedata.New(0),
		Now:       time.Now,
	}
}

func (s *Suite) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// InitializeTestSuite launches the browser before the first scenario and
// closes it after the last.
func (s *Suite) InitializeTestSuite(ts *godog.TestSuiteContext) {
	ts.BeforeSuite(func() {
		sessions, err := s.Launch()
		s.mu.Lock()
		defer s.mu.Unlock()
		s.sessions, s.launchErr = sessions, err
		if err != nil {
			logger.Error("browser_launch_failed", "err", err.Error())
			return
		}
		logger.Info("suite_started", "base_url", s.Config.BaseURL, "browser", s.Config.Browser)
	})
	ts.AfterSuite(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.sessions != nil {
			if err := s.sessions.Close(); err != nil {
				logger.Warn("browser_close_failed", "err", err.Error())
			}
			s.sessions = nil
		}
		sum := s.Recorder.Summary()
		logger.Info("suite_finished", "total", sum.Total, "passed", sum.Passed, "failed", sum.Failed)
	})
}

func (s *Suite) openSession(id string) (scenario.Session, error) {
	s.mu.Lock()
	sessions, launchErr := s.sessions, s.launchErr
	s.mu.Unlock()
	if launchErr != nil {
		return nil, launchErr
	}
	if sessions == nil {
		return nil, errs.New(errs.Unavailable, "browser not launched")
	}
	return sessions.NewSession(id)
}

// stepRegistrar is the part of godog.ScenarioContext that binds steps.
type stepRegistrar interface {
	Step(expr, stepFunc interface{})
}

// InitializeScenario registers hooks and every step.
func (s *Suite) InitializeScenario(sc *godog.ScenarioContext) {
	s.registerHooks(sc)
	s.registerSteps(sc)
}

func (s *Suite) registerSteps(sc stepRegistrar) {
	s.registerCommonSteps(sc)
	s.registerLoginSteps(sc)
	s.registerRegisterSteps(sc)
	s.registerNavigationSteps(sc)
}

// RunOptions select what to run and how to report it.
type RunOptions struct {
	FS          fs.FS
	Paths       []string
	Features    []godog.Feature
	Tags        string
	Format      string
	Output      io.Writer
	Strict      bool
	Concurrency int
	Randomize   int64
	TestingT    *testing.T
}

// Run executes the features and returns godog's exit status.
func (s *Suite) Run(opts RunOptions) int {
	format := opts.Format
	if format == "" {
		format = "pretty"
	}
	paths := opts.Paths
	if len(paths) == 0 && opts.FS != nil && len(opts.Features) == 0 {
		paths = []string{"."}
	}
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	suite := godog.TestSuite{
		Name:                 "authflow-e2e",
		TestSuiteInitializer: s.InitializeTestSuite,
		ScenarioInitializer:  s.InitializeScenario,
		Options: &godog.Options{
			FS:              opts.FS,
			Paths:           paths,
			FeatureContents: opts.Features,
			Tags:            opts.Tags,
			Format:          format,
			Output:          opts.Output,
			Strict:          opts.Strict,
			Concurrency:     concurrency,
			Randomize:       opts.Randomize,
			TestingT:        opts.TestingT,
			NoColors:        opts.Output != nil,
		},
	}
	return suite.Run()
}

// CucumberFormat appends godog's cucumber JSON formatter writing to path.
func CucumberFormat(format, path string) string {
	if format == "" {
		format = "pretty"
	}
	if strings.Contains(format, "cucumber") {
		return format
	}
	return format + ",cucumber:" + path
}
