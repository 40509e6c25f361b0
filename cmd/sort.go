package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-sorter/internal/config"
	"github.com/kozaktomas/face-sorter/internal/pipeline"
)

var sortCmd = &cobra.Command{
	Use:   "sort <input-dir> <output-dir>",
	Short: "Sort photos into per-person folders",
	Long: `Sort photos by the faces in them.
Every photo is moved into the folder of the person it shows; photos with
several people are moved once and linked from the other person folders.
A mapping.csv ledger and face thumbnails are written next to the folders.`,
	Args: cobra.ExactArgs(2),
	RunE: runSort,
}

func init() {
	rootCmd.AddCommand(sortCmd)

	sortCmd.Flags().Float64("merge-threshold", 0, "Merge clusters whose centroids are closer than this cosine distance (0 = off)")
	sortCmd.Flags().Float64("min-face", 0, "Minimum face size in pixels (0 = use default)")
	sortCmd.Flags().Float64("score-threshold", 0, "Minimum detection confidence (0 = use default)")
	sortCmd.Flags().String("method", "", "Clustering method: linkage or dbscan (default from config)")
	sortCmd.Flags().Bool("no-progress", false, "Disable the progress bar")
}

func runSort(cmd *cobra.Command, args []string) error {
	inputDir, outputDir := args[0], args[1]

	cfg := config.Load()

	mergeThreshold := mustGetFloat64(cmd, "merge-threshold")
	if mergeThreshold == 0 {
		mergeThreshold = cfg.Pipeline.Cluster.MergeThreshold
	}
	if v := mustGetFloat64(cmd, "min-face"); v > 0 {
		cfg.Pipeline.Detection.MinFacePx = v
	}
	if v := mustGetFloat64(cmd, "score-threshold"); v > 0 {
		cfg.Pipeline.Detection.ScoreThreshold = v
	}
	if m := mustGetString(cmd, "method"); m != "" {
		cfg.Pipeline.Cluster.Method = m
	}
	noProgress := mustGetBool(cmd, "no-progress")

	// Set up context with signal handling for graceful cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle Ctrl+C
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal...")
		cancel()
	}()

	var onProgress func(pipeline.Event)
	if !noProgress {
		bar := progressbar.NewOptions(100,
			progressbar.OptionSetDescription("Sorting photos"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
		onProgress = func(ev pipeline.Event) {
			_ = bar.Set(ev.Percent)
			bar.Describe(ev.Message)
		}
	}

	p := newPipeline(cfg)
	result, err := p.Run(ctx, pipeline.Options{
		InputDir:       inputDir,
		OutputDir:      outputDir,
		MergeThreshold: mergeThreshold,
		OnProgress:     onProgress,
	})
	if err != nil {
		return fmt.Errorf("sorting failed: %w", err)
	}

	fmt.Println()
	if !result.OK {
		return fmt.Errorf("sorting failed: %s", result.Error)
	}

	fmt.Printf("Persons found: %d\n", result.Groups)
	fmt.Printf("Files moved: %d\n", result.Moved)
	fmt.Printf("Output: %s\n", result.Out)
	return nil
}
