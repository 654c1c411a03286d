package cmd

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chriserin/b2b/internal/config"
	"github.com/chriserin/b2b/internal/db"
	"github.com/chriserin/b2b/internal/logging"
	"github.com/chriserin/b2b/internal/runner"
)

func site(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Shop</title></head><body><h1>Welcome to the shop</h1></body></html>`)
	}))
	t.Cleanup(srv.Close)
	return strings.TrimPrefix(srv.URL, "http://")
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Record = false
	return cfg
}

func run(t *testing.T) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	err := RunRun(context.Background(), &buf, testConfig(), logging.Discard(), false)
	return buf.String(), err
}

func TestRun_PassingSuite(t *testing.T) {
	inTempDir(t)
	host := site(t)
	writeFeature(t, "shop.feature", `Feature: Shop
  Scenario: Home page
    Given I open `+host+`
    Then I see "Welcome"
`)

	out, err := run(t)
	require.NoError(t, err)

	assert.Contains(t, out, "Feature: Shop")
	assert.Contains(t, out, "✓ Home page")
	assert.Contains(t, out, "1 passed")
}

func TestRun_FailingSuiteReturnsError(t *testing.T) {
	inTempDir(t)
	host := site(t)
	writeFeature(t, "shop.feature", `Feature: Shop
  Scenario: Missing text
    Given I open `+host+`
    Then I see "Goodbye"
  Scenario: Typo
    Given I opn `+host+`
  @shouldfail
  Scenario: Known bug
    Then I see "anything"
`)

	out, err := run(t)
	assert.ErrorIs(t, err, runner.ErrSuiteFailed)

	assert.Contains(t, out, "✗ Missing text")
	assert.Contains(t, out, "can not find 'Goodbye'")
	assert.Contains(t, out, "Did you mean one of the following?")
	assert.Contains(t, out, "~ Known bug")
	assert.Contains(t, out, "2 failed")

	entries, err := os.ReadDir("failure")
	require.NoError(t, err)
	assert.NotEmpty(t, entries, "a snapshot is saved for the failed step")
}

func TestRun_RecordsHistory(t *testing.T) {
	inTempDir(t)
	host := site(t)
	writeFeature(t, "shop.feature", `Feature: Shop
  Scenario: Missing text
    Given I open `+host+`
    Then I see "Goodbye"
`)

	_, err := run(t)
	require.ErrorIs(t, err, runner.ErrSuiteFailed)

	ctx := context.Background()
	var buf bytes.Buffer
	require.NoError(t, RunHistory(ctx, &buf, testConfig().HistoryDB, 10))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "fail")

	buf.Reset()
	require.NoError(t, RunShow(ctx, &buf, testConfig().HistoryDB, ""))
	assert.Contains(t, buf.String(), "Shop: Missing text")
	assert.Contains(t, buf.String(), `step: Then I see "Goodbye"`)

	sqlDB, err := db.Open(ctx, testConfig().HistoryDB)
	require.NoError(t, err)
	runs, err := db.RecentRuns(ctx, sqlDB, 1)
	require.NoError(t, err)
	sqlDB.Close()

	buf.Reset()
	require.NoError(t, RunShow(ctx, &buf, testConfig().HistoryDB, runs[0].ID[:8]))
	assert.Contains(t, buf.String(), "run "+runs[0].ID)
}

func TestRun_SkipsUnfocusedFeatures(t *testing.T) {
	inTempDir(t)
	host := site(t)
	writeFeature(t, "a.feature", `@focus
Feature: Focused
  Scenario: Runs
    Given I open `+host+`
`)
	writeFeature(t, "b.feature", `Feature: Other
  Scenario: Never runs
    Then I see "nothing"
`)

	out, err := run(t)
	require.NoError(t, err)
	assert.Contains(t, out, "- Other (other-feature-focused)")
	assert.NotContains(t, out, "Never runs")
}

func TestRun_NoFeatures(t *testing.T) {
	inTempDir(t)

	_, err := run(t)
	assert.Error(t, err)
}

func TestHistory_RequiresDatabase(t *testing.T) {
	inTempDir(t)

	err := RunHistory(context.Background(), &bytes.Buffer{}, filepath.Join(".b2b", "history.db"), 10)
	assert.ErrorContains(t, err, "run `b2b run` first")
}

func TestShow_NoRuns(t *testing.T) {
	inTempDir(t)
	runInit(t, false)

	var buf bytes.Buffer
	require.NoError(t, RunShow(context.Background(), &buf, testConfig().HistoryDB, ""))
	assert.Equal(t, "no runs recorded\n", buf.String())
}

func TestCheatsheet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RunCheatsheet(&buf, "wait", 0))

	assert.Contains(t, buf.String(), "I wait {seconds} seconds")
	assert.NotContains(t, buf.String(), "I open {url}")
}
