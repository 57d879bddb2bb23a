package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"santasim/internal/scenario"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioPath = "testdata/scenario.json"

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "santasim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestRunWritesSnapshotsToStdout(t *testing.T) {
	stdout, _, err := execute(t, "run", "--input", scenarioPath)
	require.NoError(t, err)

	var out scenario.Output
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	require.Len(t, out.AnnualChildren, 3)
	assert.Len(t, out.AnnualChildren[0].Children, 2)
	assert.Len(t, out.AnnualChildren[1].Children, 3)
	assert.Equal(t, 1, out.AnnualChildren[1].Children[0].ID)
}

func TestRunWritesOutputFileAndTrace(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "out.json")
	tracePath := filepath.Join(dir, "trace.jsonl")

	stdout, _, err := execute(t, "run", "-i", scenarioPath, "-o", outPath, "--trace", tracePath, "--ordering", "id")
	require.NoError(t, err)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var out scenario.Output
	require.NoError(t, json.Unmarshal(data, &out))
	require.Len(t, out.AnnualChildren, 3)
	ids := []int{}
	for _, c := range out.AnnualChildren[0].Children {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []int{1, 2}, ids)

	trace, err := os.ReadFile(tracePath)
	require.NoError(t, err)
	assert.Contains(t, string(trace), `"operation":"round"`)
}

func TestRunArchivesAndListsRuns(t *testing.T) {
	root := t.TempDir()
	textfile := filepath.Join(t.TempDir(), "santasim.prom")
	cfg := writeConfig(t, "blob:\n  driver: fs\n  fs_root: "+root+"\nlog:\n  format: json\nmetrics:\n  textfile: "+textfile+"\n")

	_, stderr, err := execute(t, "--config", cfg, "run", "-i", scenarioPath, "-o", filepath.Join(root, "out.json"), "--archive")
	require.NoError(t, err)
	assert.Contains(t, stderr, `"msg":"run archived"`)

	stdout, _, err := execute(t, "--config", cfg, "runs")
	require.NoError(t, err)
	runs := strings.Fields(stdout)
	require.Len(t, runs, 1)

	metrics, err := os.ReadFile(textfile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "santasim_gifts_assigned_total")
}

func TestRunRejectsUnknownOrdering(t *testing.T) {
	_, _, err := execute(t, "run", "-i", scenarioPath, "--ordering", "alphabetical")
	require.Error(t, err)
}

func TestRunRequiresInput(t *testing.T) {
	_, _, err := execute(t, "run")
	require.Error(t, err)
}

func TestValidateReportsCounts(t *testing.T) {
	stdout, _, err := execute(t, "validate", "--input", scenarioPath)
	require.NoError(t, err)
	assert.Equal(t, "ok: 2 children, 3 gifts, 2 years, storage=memory ordering=population\n", stdout)
}

func TestValidateRejectsBrokenScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"santaBudget": 1, "bogus": true}`), 0o600))
	_, _, err := execute(t, "validate", "-i", path)
	require.Error(t, err)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cfg := writeConfig(t, "ordering: sideways\n")
	_, _, err := execute(t, "-c", cfg, "validate", "-i", scenarioPath)
	require.Error(t, err)
}
