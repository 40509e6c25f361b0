package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "face-sorter",
	Short: "A CLI tool for grouping photos by the people in them",
	Long: `Face Sorter scans a directory of photos, detects and embeds faces using
a face-analysis service, clusters them into identities, and physically
sorts the files into one folder per person. Files are moved, never
duplicated: group photos live in one folder and are linked from the rest.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
