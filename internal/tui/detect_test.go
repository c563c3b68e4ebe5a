package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectMode(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"explicit opt-out", map[string]string{"CRMINGEST_NON_INTERACTIVE": "1"}},
		{"CI", map[string]string{"CI": "true"}},
		{"NO_COLOR", map[string]string{"NO_COLOR": "1"}},
		{"no terminal under go test", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{"CRMINGEST_NON_INTERACTIVE", "CI", "NO_COLOR"} {
				t.Setenv(k, tt.env[k])
			}
			assert.Equal(t, ModeNonInteractive, DetectMode())
			assert.False(t, IsInteractive())
		})
	}
}

func TestStyledStderr_NoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.False(t, StyledStderr())
}
