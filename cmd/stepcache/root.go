package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "stepcache",
	Short: "Incremental container image builds",
	Long: `Stepcache builds container images incrementally.

It splits a Dockerfile into segments at every ADD/COPY instruction,
builds each segment as its own image, and tags copy segments with a
content-derived cache reference. On the next build, segments whose
content is unchanged are reused from cache instead of rebuilt.`,
}

func init() {
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(cleanCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
