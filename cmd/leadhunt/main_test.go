package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/leadhunt/billing"
	"github.com/poiesic/leadhunt/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "leadhunt.yaml")
	data := "storage:\n  driver: sqlite\n  path: " + filepath.Join(dir, "leadhunt.db") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"leadhunt", "--log-level", "error"}, args...))
	return out.String(), err
}

func TestSetupLogger(t *testing.T) {
	for _, level := range []string{"debug", "INFO", "Warn", "error"} {
		t.Run(level, func(t *testing.T) {
			_, err := run(t, "--log-level", level, "profiles", "--help")
			require.NoError(t, err)
		})
	}

	t.Run("invalid log level returns error", func(t *testing.T) {
		_, err := run(t, "--log-level", "loud", "profiles", "--help")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}

func TestRequiredFlags(t *testing.T) {
	cfg := writeConfig(t)

	_, err := run(t, "--config", cfg, "project", "show", "--project", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user")

	_, err = run(t, "--config", cfg, "discover", "--user", "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project")
}

func TestConfigErrors(t *testing.T) {
	_, err := run(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "usage", "--user", "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
}

func TestProjectCommands(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, "--config", cfg, "project", "create",
		"--user", "u1",
		"--name", "Timely",
		"--description", "Time tracking for remote teams",
		"--profile", "Founders", "--profile", " Founders ",
	)
	require.NoError(t, err)
	var created core.Project
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	assert.NotZero(t, created.ID)
	assert.Equal(t, []string{"Founders"}, created.TargetProfiles)

	out, err = run(t, "--config", cfg, "project", "show", "--user", "u1", "--project", created.ID.String())
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "Timely"`)

	_, err = run(t, "--config", cfg, "project", "show", "--user", "u2", "--project", created.ID.String())
	assert.ErrorIs(t, err, core.ErrNotFound)

	out, err = run(t, "--config", cfg, "project", "list", "--user", "u1")
	require.NoError(t, err)
	assert.Contains(t, out, "Timely")
	assert.Contains(t, out, "pending")
}

func TestPlanCommands(t *testing.T) {
	cfg := writeConfig(t)

	_, err := run(t, "--config", cfg, "plan", "set", "--user", "u1", "--plan", "enterprise")
	assert.ErrorIs(t, err, core.ErrInvalidPlan)

	out, err := run(t, "--config", cfg, "plan", "set", "--user", "u1", "--plan", "Pro")
	require.NoError(t, err)
	assert.Contains(t, out, "pro plan")

	out, err = run(t, "--config", cfg, "usage", "--user", "u1")
	require.NoError(t, err)
	var ent billing.Entitlement
	require.NoError(t, json.Unmarshal([]byte(out), &ent))
	assert.Equal(t, core.PlanPro, ent.Plan)
	assert.Equal(t, -1, ent.RunsRemaining)
}
