package main

import (
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X main.version=..." by release builds. Left empty, the
// values come from the module and VCS stamps in the binary's build info.
var (
	version string
	commit  string
	date    string
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	Modified  bool   `json:"modified,omitempty"`
	GoVersion string `json:"go_version"`
	Library   string `json:"vmapkit_version,omitempty"`
}

// readBuildInfo merges linker-provided values with the embedded build info.
func readBuildInfo() BuildInfo {
	bi := BuildInfo{
		Version:   version,
		Commit:    commit,
		Date:      date,
		GoVersion: runtime.Version(),
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		if bi.Version == "" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			bi.Version = info.Main.Version
		}
		for _, dep := range info.Deps {
			if dep.Path == "github.com/joshuapare/vmapkit" {
				bi.Library = dep.Version
				if dep.Replace != nil {
					bi.Library = dep.Replace.Path
				}
			}
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if bi.Commit == "" {
					bi.Commit = s.Value
				}
			case "vcs.time":
				if bi.Date == "" {
					bi.Date = s.Value
				}
			case "vcs.modified":
				bi.Modified = s.Value == "true"
			}
		}
	}

	if bi.Version == "" {
		bi.Version = "dev"
	}
	if bi.Commit == "" {
		bi.Commit = "none"
	}
	if bi.Date == "" {
		bi.Date = "unknown"
	}
	return bi
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		bi := readBuildInfo()
		if jsonOut {
			return printJSON(bi)
		}

		rev := bi.Commit
		if len(rev) > 12 {
			rev = rev[:12]
		}
		if bi.Modified {
			rev += "-dirty"
		}
		printInfo("vmapctl %s\n", bi.Version)
		printInfo("  commit: %s\n", rev)
		printInfo("  built: %s\n", bi.Date)
		printInfo("  go: %s\n", bi.GoVersion)
		if bi.Library != "" {
			printInfo("  vmapkit: %s\n", bi.Library)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.Version = readBuildInfo().Version
}
