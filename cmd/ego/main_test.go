package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
function: quadratic
dimension: 1
initial_points: 4
seed: 5
ego:
  maximum_evaluations: 2
  multistart_experiment_size: 10
  multistart_number: 2
`), 0o600))

	assert.NoError(t, run([]string{"-f", path, "-log-level", "error"}))
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no file", nil},
		{"missing file", []string{"-f", filepath.Join(t.TempDir(), "missing.yaml")}},
		{"bad flag", []string{"-unknown"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, run(tt.args))
		})
	}
}
