package cli

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Build-time variables set via ldflags
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const asciiLogo = `                      _                       _
  ___ _ __ _ __ ___  (_)_ __   __ _  ___  ___| |_
 / __| '__| '_ ` + "`" + ` _ \ | | '_ \ / _` + "`" + ` |/ _ \/ __| __|
| (__| |  | | | | | || | | | | (_| |  __/\__ \ |_
 \___|_|  |_| |_| |_||_|_| |_|\__, |\___||___/\__|
                              |___/`

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		printVersionInfo(cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// resolveVersionInfo prefers ldflags values and falls back to the module
// build info, so `go install` builds still report a version.
func resolveVersionInfo() (string, string, string) {
	v, c, d := version, commit, date
	if v != "dev" {
		return v, c, d
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return v, c, d
	}
	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		v = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if len(s.Value) > 12 {
				c = s.Value[:12]
			} else {
				c = s.Value
			}
		case "vcs.time":
			d = s.Value
		}
	}
	return v, c, d
}

// printVersionInfo prints version information.
// Version string goes to stdout for pipeline consumption.
// Decorative content goes to stderr.
func printVersionInfo(stdout, stderr io.Writer) {
	v, c, d := resolveVersionInfo()
	fmt.Fprintln(stderr, asciiLogo)
	fmt.Fprintln(stderr)
	fmt.Fprintf(stdout, "crmingest %s (%s, %s) %s/%s\n", v, c, d, runtime.GOOS, runtime.GOARCH)
	fmt.Fprintln(stderr, "Monthly CRM export loader")
}
