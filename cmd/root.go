package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "courserag",
	Short: "Question answering over course transcripts",
	Long: `courserag ingests plain-text course transcripts into a vector index
and answers natural-language questions about them. The generation model
decides per query whether to search the indexed content.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
