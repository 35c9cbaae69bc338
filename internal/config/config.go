// Package config loads the suite configuration.
//
// Values are layered, lowest precedence first: built-in defaults, an optional
// config.properties file, E2E_* environment variables, then CLI flags.
// Durations accept Go syntax ("750ms", "5s") or a bare integer number of
// seconds as written in older properties files.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/kuitang/authflow-e2e/internal/logutil"
)

// DefaultPropertiesFile is read from the working directory when no file is
// named explicitly. A missing default file is not an error.
const DefaultPropertiesFile = "config.properties"

// Browser kinds.
const (
	BrowserChromium = "chromium"
	BrowserFirefox  = "firefox"
	BrowserWebKit   = "webkit"
)

// Config holds the suite configuration.
type Config struct {
	// Target application
	BaseURL string

	// Browser
	Browser         string
	Headless        bool
	SlowMo          time.Duration
	InstallBrowsers bool

	// Waits
	ActionTimeout     time.Duration // element visibility / clickability waits
	PageLoadTimeout   time.Duration // navigation
	ReadyStateTimeout time.Duration // document.readyState == "complete" after navigation
	ToastTimeout      time.Duration // polling for toast text
	ToastSettle       time.Duration // pause before reading a toast
	SubmitSettle      time.Duration // pause after submitting a form

	// Known accounts on the application under test
	ValidUsername string
	ValidPassword string
	ExistingEmail string

	// Runner
	FeaturesPath string // empty runs the embedded features
	Tags         string
	Format       string
	Strict       bool

	// Artifacts
	ArtifactsDir      string
	ScreenshotBucket  string
	S3Endpoint        string
	S3Region          string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// ValidationError represents a configuration validation error with multiple issues.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

type setting struct {
	key   string // properties / viper key
	env   string
	flag  string
	def   string
	usage string
	kind  settingKind
}

type settingKind int

const (
	kindString settingKind = iota
	kindBool
	kindDuration
)

var settings = []setting{
	{"baseUrl", "E2E_BASE_URL", "base-url", "https://spring-auth.vercel.app", "Base URL of the application under test", kindString},
	{"browser", "E2E_BROWSER", "browser", BrowserChromium, "Browser engine: chromium (alias chrome), firefox or webkit", kindString},
	{"headless", "E2E_HEADLESS", "headless", "false", "Run the browser without a window", kindBool},
	{"slowMo", "E2E_SLOW_MO", "slow-mo", "0s", "Delay inserted between browser operations", kindDuration},
	{"installBrowsers", "E2E_INSTALL_BROWSERS", "install-browsers", "false", "Install the playwright driver and browser before launching", kindBool},
	{"actionTimeout", "E2E_ACTION_TIMEOUT", "action-timeout", "5s", "Wait for elements to become visible or clickable", kindDuration},
	{"pageLoadTimeout", "E2E_PAGE_LOAD_TIMEOUT", "page-load-timeout", "10s", "Navigation timeout", kindDuration},
	{"readyStateTimeout", "E2E_READY_STATE_TIMEOUT", "ready-state-timeout", "3s", "Wait for document.readyState to be complete", kindDuration},
	{"toastTimeout", "E2E_TOAST_TIMEOUT", "toast-timeout", "1s", "How long to poll for toast text", kindDuration},
	{"toastSettle", "E2E_TOAST_SETTLE", "toast-settle", "300ms", "Pause before reading a toast", kindDuration},
	{"submitSettle", "E2E_SUBMIT_SETTLE", "submit-settle", "500ms", "Pause after submitting a form", kindDuration},
	{"validUsername", "E2E_VALID_USERNAME", "valid-username", "user", "Existing account username", kindString},
	{"validPassword", "E2E_VALID_PASSWORD", "valid-password", "123456", "Existing account password", kindString},
	{"existingEmail", "E2E_EXISTING_EMAIL", "existing-email", "user@example.com", "Existing account email", kindString},
	{"features", "E2E_FEATURES", "features", "", "Directory of .feature files (embedded features when empty)", kindString},
	{"tags", "E2E_TAGS", "tags", "", "Tag expression selecting scenarios, e.g. @login && ~@wip", kindString},
	{"format", "E2E_FORMAT", "format", "pretty", "godog formatter", kindString},
	{"strict", "E2E_STRICT", "strict", "true", "Fail on undefined or pending steps", kindBool},
	{"artifactsDir", "E2E_ARTIFACTS_DIR", "artifacts-dir", "test-results", "Directory for screenshots and reports", kindString},
	{"screenshotBucket", "E2E_SCREENSHOT_BUCKET", "screenshot-bucket", "", "Also upload screenshots to this S3 bucket", kindString},
	{"s3Endpoint", "E2E_S3_ENDPOINT", "s3-endpoint", "", "S3-compatible endpoint URL", kindString},
	{"s3Region", "E2E_S3_REGION", "s3-region", "", "S3 region", kindString},
	{"s3AccessKeyId", "E2E_S3_ACCESS_KEY_ID", "s3-access-key-id", "", "S3 access key ID", kindString},
	{"s3SecretAccessKey", "E2E_S3_SECRET_ACCESS_KEY", "s3-secret-access-key", "", "S3 secret access key", kindString},
}

// RegisterFlags adds one flag per setting to fs. Only flags the user
// actually sets override lower layers.
func RegisterFlags(fs *pflag.FlagSet) {
	for _, s := range settings {
		switch s.kind {
		case kindBool:
			b, _ := strconv.ParseBool(s.def)
			fs.Bool(s.flag, b, s.usage)
		default:
			fs.String(s.flag, s.def, s.usage)
		}
	}
}

// LoadOptions selects the sources Load reads besides the environment.
type LoadOptions struct {
	PropertiesFile string         // DefaultPropertiesFile when empty
	Flags          *pflag.FlagSet // may be nil
}

// Load builds a validated Config from all layers.
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()
	for _, s := range settings {
		v.SetDefault(s.key, s.def)
		if err := v.BindEnv(s.key, s.env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", s.env, err)
		}
		if opts.Flags != nil {
			if f := opts.Flags.Lookup(s.flag); f != nil {
				if err := v.BindPFlag(s.key, f); err != nil {
					return nil, fmt.Errorf("bind flag --%s: %w", s.flag, err)
				}
			}
		}
	}

	if err := readProperties(v, opts.PropertiesFile); err != nil {
		return nil, err
	}

	cfg, problems := fromViper(v)
	if err := cfg.Validate(); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			problems = append(problems, verr.Errors...)
		}
	}
	if len(problems) > 0 {
		return nil, &ValidationError{Errors: problems}
	}
	return cfg, nil
}

func readProperties(v *viper.Viper, path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultPropertiesFile
	}
	if _, err := os.Stat(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("properties file %s: %w", path, err)
	}
	v.SetConfigFile(path)
	v.SetConfigType("properties")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read properties file %s: %w", path, err)
	}
	return nil
}

func fromViper(v *viper.Viper) (*Config, []string) {
	var problems []string
	dur := func(key string) time.Duration {
		d, err := parseDuration(v.GetString(key))
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", key, err))
		}
		return d
	}

	cfg := &Config{
		BaseURL:           strings.TrimRight(strings.TrimSpace(v.GetString("baseUrl")), "/"),
		Browser:           NormalizeBrowser(v.GetString("browser")),
		Headless:          v.GetBool("headless"),
		SlowMo:            dur("slowMo"),
		InstallBrowsers:   v.GetBool("installBrowsers"),
		ActionTimeout:     dur("actionTimeout"),
		PageLoadTimeout:   dur("pageLoadTimeout"),
		ReadyStateTimeout: dur("readyStateTimeout"),
		ToastTimeout:      dur("toastTimeout"),
		ToastSettle:       dur("toastSettle"),
		SubmitSettle:      dur("submitSettle"),
		ValidUsername:     v.GetString("validUsername"),
		ValidPassword:     v.GetString("validPassword"),
		ExistingEmail:     v.GetString("existingEmail"),
		FeaturesPath:      strings.TrimSpace(v.GetString("features")),
		Tags:              strings.TrimSpace(v.GetString("tags")),
		Format:            strings.TrimSpace(v.GetString("format")),
		Strict:            v.GetBool("strict"),
		ArtifactsDir:      strings.TrimSpace(v.GetString("artifactsDir")),
		ScreenshotBucket:  strings.TrimSpace(v.GetString("screenshotBucket")),
		S3Endpoint:        strings.TrimSpace(v.GetString("s3Endpoint")),
		S3Region:          strings.TrimSpace(v.GetString("s3Region")),
		S3AccessKeyID:     strings.TrimSpace(v.GetString("s3AccessKeyId")),
		S3SecretAccessKey: strings.TrimSpace(v.GetString("s3SecretAccessKey")),
	}
	return cfg, problems
}

// parseDuration accepts Go duration syntax or whole seconds.
func parseDuration(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(value)
}

// NormalizeBrowser lower-cases name and maps "chrome" to chromium.
func NormalizeBrowser(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "chrome", "chromium", "":
		return BrowserChromium
	default:
		return name
	}
}

// Default returns the built-in configuration, ignoring files, environment
// and flags.
func Default() *Config {
	v := viper.New()
	for _, s := range settings {
		v.SetDefault(s.key, s.def)
	}
	cfg, _ := fromViper(v)
	return cfg
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []string

	if u, err := url.Parse(c.BaseURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, fmt.Sprintf("baseUrl %q must be an absolute http(s) URL", c.BaseURL))
	}

	switch c.Browser {
	case BrowserChromium, BrowserFirefox, BrowserWebKit:
	default:
		errs = append(errs, fmt.Sprintf("browser %q is not one of chromium, firefox, webkit", c.Browser))
	}

	positive := []struct {
		name string
		d    time.Duration
	}{
		{"actionTimeout", c.ActionTimeout},
		{"pageLoadTimeout", c.PageLoadTimeout},
		{"readyStateTimeout", c.ReadyStateTimeout},
		{"toastTimeout", c.ToastTimeout},
	}
	for _, p := range positive {
		if p.d <= 0 {
			errs = append(errs, fmt.Sprintf("%s must be positive", p.name))
		}
	}
	if c.SlowMo < 0 || c.ToastSettle < 0 || c.SubmitSettle < 0 {
		errs = append(errs, "slowMo, toastSettle and submitSettle must not be negative")
	}

	if c.ArtifactsDir == "" {
		errs = append(errs, "artifactsDir is required")
	}
	if c.ScreenshotBucket != "" && c.S3Region == "" {
		errs = append(errs, "s3Region is required when screenshotBucket is set")
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// URL joins path onto BaseURL.
func (c *Config) URL(path string) string {
	if path == "" {
		return c.BaseURL
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.BaseURL + path
}

// ScreenshotDir is where failure screenshots are written.
func (c *Config) ScreenshotDir() string {
	return filepath.Join(c.ArtifactsDir, "screenshots")
}

// ReportDir is where run reports are written.
func (c *Config) ReportDir() string {
	return filepath.Join(c.ArtifactsDir, "reports")
}

// Entry is one printable configuration value.
type Entry struct {
	Key   string
	Value string
}

// Entries lists the effective configuration in declaration order with
// secrets masked.
func (c *Config) Entries() []Entry {
	values := map[string]string{
		"baseUrl":           c.BaseURL,
		"browser":           c.Browser,
		"headless":          strconv.FormatBool(c.Headless),
		"slowMo":            c.SlowMo.String(),
		"installBrowsers":   strconv.FormatBool(c.InstallBrowsers),
		"actionTimeout":     c.ActionTimeout.String(),
		"pageLoadTimeout":   c.PageLoadTimeout.String(),
		"readyStateTimeout": c.ReadyStateTimeout.String(),
		"toastTimeout":      c.ToastTimeout.String(),
		"toastSettle":       c.ToastSettle.String(),
		"submitSettle":      c.SubmitSettle.String(),
		"validUsername":     c.ValidUsername,
		"validPassword":     c.ValidPassword,
		"existingEmail":     c.ExistingEmail,
		"features":          c.FeaturesPath,
		"tags":              c.Tags,
		"format":            c.Format,
		"strict":            strconv.FormatBool(c.Strict),
		"artifactsDir":      c.ArtifactsDir,
		"screenshotBucket":  c.ScreenshotBucket,
		"s3Endpoint":        c.S3Endpoint,
		"s3Region":          c.S3Region,
		"s3AccessKeyId":     c.S3AccessKeyID,
		"s3SecretAccessKey": c.S3SecretAccessKey,
	}
	entries := make([]Entry, 0, len(settings))
	for _, s := range settings {
		entries = append(entries, Entry{Key: s.key, Value: logutil.MaskValue(s.key, values[s.key])})
	}
	return entries
}
