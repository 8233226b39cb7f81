// diagnose runs every configured source through the fetch pipeline once and
// reports what happened, without starting the server.
//
// Usage:
//
//	diagnose [source...] [--sources=sources.yaml] [--json] [--timeout=60s] [--dump=dir]
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootFlags struct {
	sourcesFile string
	json        bool
	timeout     string
	dumpDir     string
}

var rootCmd = &cobra.Command{
	Use:           "diagnose [source...]",
	Short:         "Run sources through the fetch pipeline once and report the outcome",
	SilenceUsage:  true,
	RunE:          runDiagnose,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&rootFlags.sourcesFile, "sources", "sources.yaml", "path of the sources file")
	f.BoolVar(&rootFlags.json, "json", false, "print the report as JSON")
	f.StringVar(&rootFlags.timeout, "timeout", "60s", "bound on one pipeline run")
	f.StringVar(&rootFlags.dumpDir, "dump", "", "write each rendered feed to <dir>/<source>.atom")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
