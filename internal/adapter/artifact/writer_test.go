package artifact

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestWriterPersistsArtifacts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "artifacts")
	w := NewWriter(dir, 2, 8, nil)
	require.NoError(t, w.Start())

	w.SaveScreenshot("error_login_page.png", []byte("png-bytes"))
	w.SaveJSON("scrape_9876543210.json", map[string]any{"sessions": []string{"Present"}})
	w.Stop()

	png, err := os.ReadFile(filepath.Join(dir, "error_login_page.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(png))

	raw, err := os.ReadFile(filepath.Join(dir, "scrape_9876543210.json"))
	require.NoError(t, err)
	var got map[string][]string
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, []string{"Present"}, got["sessions"])

	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestWriterCapturesValueAtSubmit(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, 1, 4, nil)
	require.NoError(t, w.Start())

	v := map[string]int{"n": 1}
	w.SaveJSON("v.json", v)
	v["n"] = 2
	w.Stop()

	raw, err := os.ReadFile(filepath.Join(dir, "v.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, string(raw))
}

func TestWriterDropsWhenFull(t *testing.T) {
	dir := t.TempDir()
	// Not started: nothing drains the queue.
	w := NewWriter(dir, 1, 1, nil)
	w.started = true

	w.SaveScreenshot("a.png", []byte("a"))
	w.SaveScreenshot("b.png", []byte("b"))
	assert.Len(t, w.queue, 1)

	w.started = false
	require.NoError(t, w.Start())
	w.Stop()

	_, err := os.Stat(filepath.Join(dir, "a.png"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "b.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestWriterIgnoresArtifactsAfterStop(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, 1, 1, nil)
	require.NoError(t, w.Start())
	w.Stop()
	w.Stop()

	assert.NotPanics(t, func() { w.SaveScreenshot("late.png", []byte("x")) })
	_, err := os.Stat(filepath.Join(dir, "late.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestWriterKeepsNamesInsideDir(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "artifacts")
	w := NewWriter(dir, 1, 2, nil)
	require.NoError(t, w.Start())

	w.SaveScreenshot("../escape.png", []byte("x"))
	w.Stop()

	_, err := os.Stat(filepath.Join(root, "escape.png"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "escape.png"))
	assert.NoError(t, err)
}

func TestWriterSameNameOnConcurrentWorkers(t *testing.T) {
	dir := t.TempDir()
	core, logs := observer.New(zapcore.WarnLevel)
	const jobs = 200
	w := NewWriter(dir, 2, jobs, zap.New(core))
	require.NoError(t, w.Start())

	for i := 0; i < jobs; i++ {
		w.SaveScreenshot("error_login_page.png", bytes.Repeat([]byte{byte(i)}, 64<<10))
	}
	w.Stop()

	assert.Zero(t, logs.Len(), "unexpected log entries: %v", logs.All())
	got, err := os.ReadFile(filepath.Join(dir, "error_login_page.png"))
	require.NoError(t, err)
	assert.Len(t, got, 64<<10)
	// Whole files only: every byte comes from the same job.
	assert.Equal(t, bytes.Repeat(got[:1], len(got)), got)

	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}
