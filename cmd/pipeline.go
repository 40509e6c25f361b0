package cmd

import (
	"github.com/kozaktomas/face-sorter/internal/config"
	"github.com/kozaktomas/face-sorter/internal/detect"
	"github.com/kozaktomas/face-sorter/internal/pipeline"
)

// newPipeline wires the face-analysis client, the region proposer and the
// capability checker into a pipeline. The proposer falls back to the main
// service when no dedicated proposal endpoint is configured.
func newPipeline(cfg *config.Config) *pipeline.Pipeline {
	client := detect.NewClient(cfg.Embedding.URL)

	proposerURL := cfg.Embedding.ProposerURL
	if proposerURL == "" {
		proposerURL = cfg.Embedding.URL
	}
	proposer := detect.NewProposalClient(proposerURL)

	return pipeline.New(client, proposer, client, cfg.Pipeline)
}
