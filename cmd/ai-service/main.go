// Package main is the entry point for the ai-service CLI: an HTTP serving
// surface for grade and dropout prediction plus the offline training
// pipeline that produces its model artifacts.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "ai-service",
	Short: "Student grade and dropout prediction service",
	Long: `ai-service serves grade and dropout predictions from versioned model
artifacts and trains those artifacts offline from CSV datasets. Serving and
training share one preprocessing pipeline so feature handling never drifts
between them.`,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "path to YAML configuration file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
