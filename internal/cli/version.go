package cli

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
)

// Overridden by SetVersionInfo with the values main gets from ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the cmon version, the commit and date it was built from, and the Go toolchain.`,
	Run: func(cmd *cobra.Command, args []string) {
		if versionShort {
			fmt.Fprintln(stdout, version)
			return
		}
		rev, built := buildStamp()
		fmt.Fprintf(stdout, "cmon %s\n", formatVersion(version))
		fmt.Fprintf(stdout, "commit: %s\nbuilt: %s\n", rev, built)
		fmt.Fprintf(stdout, "go: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "print only the version number")
	rootCmd.AddCommand(versionCmd)
}

// buildStamp prefers ldflags values and falls back to the VCS settings Go
// embeds in 'go install' builds.
func buildStamp() (rev, built string) {
	rev, built = commit, date
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return rev, built
	}
	for _, s := range info.Settings {
		switch {
		case s.Key == "vcs.revision" && rev == "none":
			rev = s.Value
			if len(rev) > 7 {
				rev = rev[:7]
			}
		case s.Key == "vcs.time" && built == "unknown":
			built = s.Value
		}
	}
	return rev, built
}

// formatVersion adds a leading v to release versions.
func formatVersion(v string) string {
	if v == "" || v == "dev" || strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}

// SetVersionInfo records build metadata. main calls it before Execute.
func SetVersionInfo(v, c, d string) {
	version, commit, date = v, c, d
	rootCmd.Version = formatVersion(v)
}

// GetVersion returns the raw version string.
func GetVersion() string {
	return version
}
