// Package pipeline drives a full sorting run: scan, detect, cluster, merge,
// export. It runs on one worker goroutine and reports progress through a
// callback; cancellation is honored between images and between phases.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-sorter/internal/cluster"
	"github.com/kozaktomas/face-sorter/internal/config"
	"github.com/kozaktomas/face-sorter/internal/detect"
	"github.com/kozaktomas/face-sorter/internal/export"
	"github.com/kozaktomas/face-sorter/internal/facematch"
	"github.com/kozaktomas/face-sorter/internal/scan"
)

// Options configures one run.
type Options struct {
	InputDir       string
	OutputDir      string
	MergeThreshold float64 // 0 disables centroid merging
	OnProgress     func(Event)
}

// Pipeline holds the injected collaborators shared across runs.
type Pipeline struct {
	detector detect.Detector
	proposer detect.Proposer
	checker  detect.Checker
	cfg      config.PipelineConfig
}

func New(detector detect.Detector, proposer detect.Proposer, checker detect.Checker, cfg config.PipelineConfig) *Pipeline {
	return &Pipeline{
		detector: detector,
		proposer: proposer,
		checker:  checker,
		cfg:      cfg,
	}
}

// Run executes the whole pipeline. The capability check runs first so a
// missing face-analysis service fails before any work starts. Unreadable
// images are skipped; a run with zero face records or zero stable clusters
// ends with OK=false and a structured error message, leaving moves already
// performed in place.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	if p.checker != nil {
		capability := p.checker.Check(ctx)
		if !capability.Available {
			return nil, fmt.Errorf("face analysis service unavailable: %s", capability.Reason)
		}
	}

	p.emit(opts, Event{Phase: PhaseScanning, Percent: 0, Message: "scanning input directory"})
	paths, err := scan.Images(opts.InputDir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return &Result{OK: false, Error: export.ErrNoFaces.Error()}, nil
	}

	builder := facematch.NewBuilder(p.detector, p.proposer, p.cfg.Detection, p.cfg.Dedupe)

	var recs []facematch.FaceRecord
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		imageRecs, err := builder.BuildRecords(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			// One bad file never aborts the batch.
			p.emit(opts, Event{
				Phase:   PhaseDetecting,
				Percent: detectPercent(i+1, len(paths)),
				Message: fmt.Sprintf("skipped %s: %v", path, err),
			})
			continue
		}
		recs = append(recs, imageRecs...)
		p.emit(opts, Event{
			Phase:   PhaseDetecting,
			Percent: detectPercent(i+1, len(paths)),
			Message: fmt.Sprintf("detecting faces: %d/%d", i+1, len(paths)),
		})
	}

	if len(recs) == 0 {
		return &Result{OK: false, Error: export.ErrNoFaces.Error()}, nil
	}

	p.emit(opts, Event{Phase: PhaseClustering, Percent: 85, Message: "clustering faces"})
	embs := make([][]float32, len(recs))
	images := make([]string, len(recs))
	for i, rec := range recs {
		embs[i] = rec.Embedding
		images[i] = rec.Image
	}
	labels := cluster.Assign(embs, p.cfg.Cluster)
	labels = cluster.ApplyCannotLink(labels, images)

	if opts.MergeThreshold > 0 {
		p.emit(opts, Event{Phase: PhaseMerging, Percent: 90, Message: "merging close clusters"})
		labels = cluster.MergeByCentroid(embs, labels, opts.MergeThreshold)
	}

	p.emit(opts, Event{Phase: PhaseExporting, Percent: 95, Message: "exporting"})
	summary, err := export.New(opts.OutputDir, p.cfg.Export).Export(ctx, recs, labels)
	if err != nil {
		if errors.Is(err, export.ErrNoStableClusters) || errors.Is(err, export.ErrNoFaces) {
			return &Result{OK: false, Error: err.Error()}, nil
		}
		return nil, err
	}

	p.emit(opts, Event{Phase: PhaseExporting, Percent: 100, Message: "done"})
	return &Result{
		OK:     summary.OK,
		Groups: summary.Groups,
		Moved:  summary.Moved,
		Out:    summary.Out,
	}, nil
}

func (p *Pipeline) emit(opts Options, ev Event) {
	if opts.OnProgress != nil {
		opts.OnProgress(ev)
	}
}

// detectPercent spreads the detection phase across 10..80 percent.
func detectPercent(done, total int) int {
	if total < 1 {
		total = 1
	}
	return 10 + done*70/total
}
