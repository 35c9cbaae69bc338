// Package artifacts stores screenshots and reports produced by a run.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/kuitang/authflow-e2e/internal/obs"
)

// ContentTypePNG is the content type of browser screenshots.
const ContentTypePNG = "image/png"

// Store persists one artifact and returns where it ended up (a path or URL).
type Store interface {
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// DirStore writes artifacts under a local directory.
type DirStore struct {
	Dir string
}

func NewDirStore(dir string) *DirStore {
	return &DirStore{Dir: dir}
}

func (s *DirStore) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean := filepath.Clean("/" + name)[1:]
	if clean == "" {
		return "", fmt.Errorf("artifacts: empty name")
	}
	path := filepath.Join(s.Dir, clean)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("artifacts: create dir for %q: %w", name, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("artifacts: write %q: %w", name, err)
	}
	return path, nil
}

// Tee writes every artifact to all stores. Every store is attempted; the
// first error is returned along with the first successful location.
type Tee []Store

func (t Tee) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	var (
		location string
		firstErr error
	)
	for _, s := range t {
		loc, err := s.Put(ctx, name, data, contentType)
		if err != nil {
			obs.From(ctx).Warn("artifact_store_failed", "name", name, "err", err.Error())
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if location == "" {
			location = loc
		}
	}
	if location == "" && firstErr == nil && len(t) == 0 {
		return "", errors.New("artifacts: no stores configured")
	}
	return location, firstErr
}

var unsafeChars = regexp.MustCompile(`[^a-z0-9]+`)

// maxNamePart bounds each part of a generated file name.
const maxNamePart = 60

func slug(s string) string {
	s = unsafeChars.ReplaceAllString(strings.ToLower(s), "_")
	s = strings.Trim(s, "_")
	if len(s) > maxNamePart {
		s = strings.TrimRight(s[:maxNamePart], "_")
	}
	return s
}

// ScreenshotName builds a file name such as
// "valid_login/click_sign_in_20240102-150405.123.png". An empty step names
// the end-of-scenario capture.
func ScreenshotName(scenario, step string, t time.Time) string {
	dir := slug(scenario)
	if dir == "" {
		dir = "scenario"
	}
	base := slug(step)
	if base == "" {
		base = "final"
	}
	return dir + "/" + base + "_" + t.UTC().Format("20060102-150405.000") + ".png"
}
