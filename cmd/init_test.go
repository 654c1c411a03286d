package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chriserin/b2b/internal/config"
	"github.com/chriserin/b2b/internal/db"
	"github.com/chriserin/b2b/internal/feature"
)

func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(orig) })
	return dir
}

func runInit(t *testing.T, force bool) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, RunInit(context.Background(), &buf, force))
	return buf.String()
}

func TestInit_CreatesFeaturesDirectory(t *testing.T) {
	dir := inTempDir(t)
	out := runInit(t, false)

	info, err := os.Stat(filepath.Join(dir, "features"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Contains(t, out, "features/ created")
	assert.Contains(t, out, "features/example.feature created")
}

func TestInit_ExampleFeatureLoads(t *testing.T) {
	inTempDir(t)
	runInit(t, false)

	features, err := feature.LoadDir("features")
	require.NoError(t, err)
	require.Len(t, features, 1)
	assert.Equal(t, "Example", features[0].Title)
	assert.Equal(t, []string{"Given I open example.com", `Then I see "Example Domain"`}, features[0].Scenarios[0].Steps)
}

func TestInit_FeaturesDirectoryAlreadyExists(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "features"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "features", "login.feature"), []byte("Feature: Login\n"), 0o644))

	out := runInit(t, false)

	assert.Contains(t, out, "features/ already exists")
	assert.NotContains(t, out, "example.feature")
	assert.FileExists(t, filepath.Join(dir, "features", "login.feature"))
}

func TestInit_ForceRecreatesFeatures(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "features"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "features", "login.feature"), []byte("Feature: Login\n"), 0o644))

	out := runInit(t, true)

	assert.Contains(t, out, "features/ recreated")
	assert.NoFileExists(t, filepath.Join(dir, "features", "login.feature"))
	assert.FileExists(t, filepath.Join(dir, "features", "example.feature"))
}

func TestInit_WritesDefaultConfig(t *testing.T) {
	inTempDir(t)
	out := runInit(t, false)

	assert.Contains(t, out, config.FileName+" created")
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	out = runInit(t, false)
	assert.Contains(t, out, config.FileName+" already exists")
}

func TestInit_InitializesHistoryDatabase(t *testing.T) {
	dir := inTempDir(t)
	out := runInit(t, false)

	dbPath := filepath.Join(dir, ".b2b", "history.db")
	_, err := os.Stat(dbPath)
	require.NoError(t, err)

	sqlDB, err := db.Open(context.Background(), dbPath)
	require.NoError(t, err)
	defer sqlDB.Close()

	var mode string
	require.NoError(t, sqlDB.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var version int
	require.NoError(t, sqlDB.QueryRow("SELECT version FROM schema_version").Scan(&version))
	assert.Equal(t, len(db.All), version)
	assert.Contains(t, out, ".b2b/history.db created")
}

func TestInit_DatabaseAlreadyExists(t *testing.T) {
	inTempDir(t)
	runInit(t, false)

	out := runInit(t, false)
	assert.Contains(t, out, ".b2b/history.db already exists")
}

func TestInit_AddsToGitignore(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("node_modules"), 0o644))

	out := runInit(t, false)

	data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	assert.Equal(t, "node_modules\n.b2b/\nrecordings/\nfailure/\n", string(data))
	assert.Contains(t, out, ".b2b/ added to .gitignore")
	assert.Contains(t, out, "failure/ added to .gitignore")
}

func TestInit_GitignoreAlreadyHasEntries(t *testing.T) {
	dir := inTempDir(t)
	original := "node_modules\n.b2b/\nrecordings/\nfailure/\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(original), 0o644))

	out := runInit(t, false)

	data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	assert.Equal(t, original, string(data))
	assert.Contains(t, out, ".b2b/ already in .gitignore")
}

func TestInit_NoGitignoreExists(t *testing.T) {
	dir := inTempDir(t)
	out := runInit(t, false)

	data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	assert.Equal(t, ".b2b/\nrecordings/\nfailure/\n", string(data))
	assert.Contains(t, out, ".gitignore created")
	assert.Contains(t, out, "recordings/ added to .gitignore")
}
