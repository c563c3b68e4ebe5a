package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveVersionInfo_LdflagsOverride(t *testing.T) {
	original := version
	defer func() { version = original }()

	version = "1.2.3"
	v, _, _ := resolveVersionInfo()
	assert.Equal(t, "1.2.3", v)
}

func TestResolveVersionInfo_DevFallback(t *testing.T) {
	origV, origC, origD := version, commit, date
	defer func() { version, commit, date = origV, origC, origD }()

	version, commit, date = "dev", "unknown", "unknown"
	v, c, d := resolveVersionInfo()

	assert.NotEmpty(t, v)
	t.Logf("resolved: version=%s commit=%s date=%s", v, c, d)
}

func TestPrintVersionInfo_SplitsStreams(t *testing.T) {
	origV := version
	defer func() { version = origV }()
	version = "9.9.9"

	var stdout, stderr bytes.Buffer
	printVersionInfo(&stdout, &stderr)

	assert.True(t, strings.HasPrefix(stdout.String(), "crmingest 9.9.9 "), stdout.String())
	assert.Equal(t, 1, strings.Count(stdout.String(), "\n"))
	assert.Contains(t, stderr.String(), "Monthly CRM export loader")
}
