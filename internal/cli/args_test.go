package cli

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/crmingest/pkg/crmingest"
)

func TestOptionalDirectory(t *testing.T) {
	assert.NoError(t, OptionalDirectory(initCmd, nil))
	assert.NoError(t, OptionalDirectory(initCmd, []string{"./crm"}))

	err := OptionalDirectory(initCmd, []string{"a", "b"})
	require.Error(t, err)
	assert.Equal(t, crmingest.ExitUsageError, crmingest.ExitCodeForError(err))
	assert.Contains(t, err.Error(), "crmingest init")
}

func TestParseEntities(t *testing.T) {
	got, err := parseEntities([]string{"invoices, clients", "", "Estimates"})
	require.NoError(t, err)
	assert.Equal(t, []crmingest.Entity{crmingest.EntityInvoices, crmingest.EntityClients, crmingest.EntityEstimates}, got)

	got, err = parseEntities(nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = parseEntities([]string{"clients,payments"})
	assert.ErrorIs(t, err, crmingest.ErrInvalidConfig)
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("ingestion-date", " 2025-08-26 ")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 8, 26, 0, 0, 0, 0, time.UTC), d)

	_, err = parseDate("ingestion-date", "2025-13-01")
	assert.ErrorIs(t, err, crmingest.ErrInvalidConfig)
}

func TestCompleteFrom(t *testing.T) {
	got, directive := completeFrom([]string{"clients", "estimates", "invoices"}, "clients,e")
	assert.Equal(t, []string{"clients,estimates"}, got)
	assert.Equal(t, cobra.ShellCompDirectiveNoFileComp, directive)

	got, _ = completeExportNames(exportCmd, nil, "c")
	assert.Equal(t, []string{"customers", "clients_without_email", "clients_per_month"}, got)

	got, _ = completeSSLModes(nil, nil, "verify")
	assert.Equal(t, []string{"verify-ca", "verify-full"}, got)
}
