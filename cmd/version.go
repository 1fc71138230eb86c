package cmd

import (
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

const revisionLen = 12

// version is stamped at release time with
// -ldflags "-X nessie.dev/pkg/nessie/cmd.version=v1.2.3".
var version string

type buildInfo struct {
	Version   string
	Revision  string
	GoVersion string
}

func readBuildInfo() buildInfo {
	b := buildInfo{Version: version, GoVersion: runtime.Version()}

	if info, ok := debug.ReadBuildInfo(); ok {
		if b.Version == "" {
			b.Version = info.Main.Version
		}

		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				b.Revision = s.Value[:min(len(s.Value), revisionLen)]
			}
		}
	}

	if b.Version == "" {
		b.Version = "unknown"
	}

	return b
}

func newVersionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show the nessie version",
		Long:  "Displays the nessie release, the revision it was built from and the Go version used to build it.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			b := readBuildInfo()
			if short {
				cmd.Println(b.Version)
				return
			}

			cmd.Println("nessie", b.Version)

			if b.Revision != "" {
				cmd.Println("revision\t", b.Revision)
			}

			cmd.Println("go version\t", b.GoVersion)
		},
	}

	cmd.Flags().BoolVar(&short, "short", false, "print only the release")

	return cmd
}

// versionCmd represents the version command.
var versionCmd = newVersionCmd()

func init() {
	rootCmd.AddCommand(versionCmd)
}
