package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Run(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer

	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{
		"--env", filepath.Join(dir, "none.env"),
		"--teams", "3",
		"--ticks", "5",
		"--strikes", "50,60",
		"--seed", "11",
		"--journal", filepath.Join(dir, "journal"),
		"--log-level", "error",
	})
	require.NoError(t, cmd.Execute())

	got := out.String()
	assert.Contains(t, got, "--- FINAL RESULTS ---")
	assert.Contains(t, got, "Final sum of all cards = ")
	assert.Equal(t, 3, strings.Count(got, "Final PnL = "))
}

func TestRootCmd_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("SIM_TEAMS", "5")
	t.Setenv("SIM_TICKS", "9")

	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--ticks", "2", "--env", filepath.Join(t.TempDir(), "none.env")}))

	var f flags
	f.envFile = cmd.Flag("env").Value.String()
	f.ticks = 2
	cfg, err := loadConfig(cmd, f)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Sim.Teams)
	assert.Equal(t, 2, cfg.Sim.Ticks)
}

func TestRootCmd_BadStrikes(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--env", filepath.Join(t.TempDir(), "none.env"), "--strikes", "fifty"})
	assert.Error(t, cmd.Execute())
}

func TestRootCmd_LingerFlag(t *testing.T) {
	t.Setenv("API_LINGER_MS", "1000")

	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--linger", "45s", "--env", filepath.Join(t.TempDir(), "none.env")}))

	var f flags
	f.envFile = cmd.Flag("env").Value.String()
	f.linger = 45 * time.Second
	cfg, err := loadConfig(cmd, f)
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.API.Linger)

	cmd = newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--env", filepath.Join(t.TempDir(), "none.env")}))
	f = flags{envFile: cmd.Flag("env").Value.String()}
	cfg, err = loadConfig(cmd, f)
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.API.Linger)
}
