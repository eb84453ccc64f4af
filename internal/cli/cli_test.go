package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDay(t *testing.T) {
	got, err := parseDay("2026-06-30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC), got)

	got, err = parseDay("2026-06-30T12:00:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 6, 30, 10, 0, 0, 0, time.UTC), got)

	_, err = parseDay("30/06/2026")
	assert.Error(t, err)
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "scan", "diagnose", "show", "export", "backfill", "simulate-alert", "migrate", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestDiagnoseRequiresCategory(t *testing.T) {
	assert.Error(t, diagnoseCmd.Args(diagnoseCmd, nil))
	assert.NoError(t, diagnoseCmd.Args(diagnoseCmd, []string{"cpc-spike"}))
}
