package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-sorter/internal/config"
	"github.com/kozaktomas/face-sorter/internal/detect"
	"github.com/kozaktomas/face-sorter/internal/facematch"
)

var detectCmd = &cobra.Command{
	Use:   "detect <image>",
	Short: "Detect faces in a single image",
	Long: `Detect faces in one image and print the resulting face records as JSON.
Useful for checking the face-analysis service and tuning detection
thresholds before running a full sort.`,
	Args: cobra.ExactArgs(1),
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)

	detectCmd.Flags().Bool("embeddings", false, "Include raw embeddings in the output")
}

func runDetect(cmd *cobra.Command, args []string) error {
	path := args[0]
	cfg := config.Load()
	includeEmbeddings := mustGetBool(cmd, "embeddings")

	client := detect.NewClient(cfg.Embedding.URL)
	capability := client.Check(cmd.Context())
	if !capability.Available {
		return fmt.Errorf("face analysis service unavailable: %s", capability.Reason)
	}

	proposerURL := cfg.Embedding.ProposerURL
	if proposerURL == "" {
		proposerURL = cfg.Embedding.URL
	}
	builder := facematch.NewBuilder(client, detect.NewProposalClient(proposerURL), cfg.Pipeline.Detection, cfg.Pipeline.Dedupe)

	records, err := builder.BuildRecords(context.Background(), path)
	if err != nil {
		return fmt.Errorf("detection failed: %w", err)
	}

	if !includeEmbeddings {
		for i := range records {
			records[i].Embedding = nil
		}
	}

	fmt.Printf("Model: %s\n", capability.Model)
	fmt.Printf("Faces: %d\n", len(records))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}
