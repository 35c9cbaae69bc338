package artifacts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestDirStore_WritesNestedFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	store := NewDirStore(dir)

	loc, err := store.Put(context.Background(), "login/failed.png", []byte("png"), ContentTypePNG)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "login", "failed.png"), loc)
	data, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
}

func TestDirStore_StaysInsideDir(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	loc, err := NewDirStore(dir).Put(context.Background(), "../../escape.png", []byte("x"), ContentTypePNG)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(loc, dir), "location %q escaped %q", loc, dir)
}

func TestS3Store_PutGet(t *testing.T) {
	t.Parallel()
	store := TestS3Store(t, "screenshots", "run-1")
	ctx := context.Background()

	loc, err := store.Put(ctx, "login/failed.png", []byte{0x89, 'P', 'N', 'G'}, ContentTypePNG)
	require.NoError(t, err)
	assert.Equal(t, "s3://screenshots/run-1/login/failed.png", loc)

	got, err := store.Get(ctx, "login/failed.png")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, got)

	_, err = store.Get(ctx, "missing.png")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

type failingStore struct{ err error }

func (f failingStore) Put(context.Context, string, []byte, string) (string, error) {
	return "", f.err
}

func TestTee_AttemptsEveryStore(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	boom := errors.New("bucket unreachable")
	s3 := TestS3Store(t, "shots", "")

	loc, err := Tee{failingStore{boom}, NewDirStore(dir), s3}.Put(context.Background(), "a.png", []byte("x"), ContentTypePNG)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, filepath.Join(dir, "a.png"), loc)

	got, err := s3.Get(context.Background(), "a.png")
	require.NoError(t, err)
	assert.Equal(t, "x", string(got))
}

func testScreenshotName_Safe(t *rapid.T) {
	scenario := rapid.String().Draw(t, "scenario")
	step := rapid.String().Draw(t, "step")
	at := time.Unix(rapid.Int64Range(0, 4102444800).Draw(t, "unix"), 0)

	name := ScreenshotName(scenario, step, at)
	if !strings.HasSuffix(name, ".png") {
		t.Fatalf("ScreenshotName = %q, missing .png", name)
	}
	if strings.Count(name, "/") != 1 || strings.Contains(name, "..") || strings.ContainsAny(name, " \\:") {
		t.Fatalf("ScreenshotName = %q is not a safe relative path", name)
	}
}

func TestScreenshotName_Safe(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testScreenshotName_Safe)
}

func TestScreenshotName_Format(t *testing.T) {
	t.Parallel()
	at := time.Date(2024, 1, 2, 15, 4, 5, 123e6, time.UTC)
	assert.Equal(t, "valid_login/click_sign_in_20240102-150405.123.png",
		ScreenshotName("Valid login", "Click Sign in", at))
	assert.Equal(t, "scenario/final_20240102-150405.123.png", ScreenshotName("", "", at))
}
