// Package main provides the entry point for the transcript catalog sync CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "transcript_sync",
	Short:         "Earnings-call transcript catalog sync",
	Long:          "transcript_sync segments earnings-call transcripts into sentence-aligned chunks and thematic sections and keeps a relational catalog of them in step with the transcript tree.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
