package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/vvka-141/crmingest/internal/export"
	"github.com/vvka-141/crmingest/pkg/crmingest"
)

// sslModes contains valid PostgreSQL SSL modes for shell completion.
var sslModes = []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}

var backends = []string{string(crmingest.BackendPostgres), string(crmingest.BackendSQLite)}

// completeFrom completes the last comma separated element of toComplete from candidates.
func completeFrom(candidates []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	prefix := ""
	if i := strings.LastIndex(toComplete, ","); i >= 0 {
		prefix, toComplete = toComplete[:i+1], toComplete[i+1:]
	}
	var matches []string
	for _, c := range candidates {
		if strings.HasPrefix(c, toComplete) {
			matches = append(matches, prefix+c)
		}
	}
	return matches, cobra.ShellCompDirectiveNoFileComp
}

// completeSSLModes provides shell completion for SSL mode flag values.
func completeSSLModes(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return completeFrom(sslModes, toComplete)
}

func completeBackends(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return completeFrom(backends, toComplete)
}

// completeEntities completes --only for ingest.
func completeEntities(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	names := make([]string, len(crmingest.LoadOrder))
	for i, e := range crmingest.LoadOrder {
		names[i] = e.String()
	}
	return completeFrom(names, toComplete)
}

// completeExportNames completes --only for export.
func completeExportNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return completeFrom(export.Names(), toComplete)
}

// completeDirectories provides shell completion for directory paths.
func completeDirectories(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	// Let the shell handle directory completion
	return nil, cobra.ShellCompDirectiveFilterDirs
}
