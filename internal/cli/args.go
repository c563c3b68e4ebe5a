package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vvka-141/crmingest/pkg/crmingest"
)

// OptionalDirectory accepts zero or one directory argument.
// The error message carries usage so it reads well without cobra's usage dump.
func OptionalDirectory(cmd *cobra.Command, args []string) error {
	if len(args) > 1 {
		return fmt.Errorf(`accepts at most 1 arg(s), received %d

Usage: %s

Example:
  %s ./crm`, len(args), cmd.UseLine(), cmd.CommandPath())
	}
	return nil
}

// parseEntities converts --only values to entities. Values may be comma separated.
func parseEntities(values []string) ([]crmingest.Entity, error) {
	var out []crmingest.Entity
	for _, v := range splitList(values) {
		e, err := crmingest.ParseEntity(v)
		if err != nil {
			return nil, fmt.Errorf("--only: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

// parseDate parses a YYYY-MM-DD flag value.
func parseDate(flag, value string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s %q: expected YYYY-MM-DD: %w", flag, value, crmingest.ErrInvalidConfig)
	}
	return t, nil
}

// splitList flattens repeated and comma separated flag values, dropping blanks.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
