package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "atsresume",
	Short:        "Résumé review sessions over HTTP",
	Long:         "Hosts résumé review sessions: PDF intake, a Recruiter/Student prompt catalog, per-résumé analysis results and live status updates.",
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
