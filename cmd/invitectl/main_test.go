package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestPurgeRequiresConfirmation(t *testing.T) {
	purgeConfirm = false
	_, err := execute(t, "purge")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")
}

func TestIssueRequiresName(t *testing.T) {
	_, err := execute(t, "issue", "--quantity", "2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"name"`)
}

func TestMigrateToNeedsVersion(t *testing.T) {
	_, err := execute(t, "migrate", "to")
	require.Error(t, err)
}

func TestConnectRejectsMissingDatabaseSettings(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("DB_HOST", "")
	t.Setenv("DB_NAME", "")
	t.Setenv("DB_USER", "")

	_, err := execute(t, "stats")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid database configuration")
}
