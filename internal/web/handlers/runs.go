package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kozaktomas/face-sorter/internal/pipeline"
)

// RunFunc executes one sorting run. Injected so handlers never construct the
// pipeline themselves and tests can substitute a fake.
type RunFunc func(ctx context.Context, opts pipeline.Options) (*pipeline.Result, error)

// RunsHandler manages sorting runs over HTTP.
type RunsHandler struct {
	jobManager *JobManager
	run        RunFunc
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(jm *JobManager, run RunFunc) *RunsHandler {
	return &RunsHandler{jobManager: jm, run: run}
}

// StartRequest represents a run start request.
type StartRequest struct {
	InputDir       string  `json:"input_dir"`
	OutputDir      string  `json:"output_dir"`
	MergeThreshold float64 `json:"merge_threshold"`
}

// Start launches a new sorting run in the background.
func (h *RunsHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.InputDir == "" {
		respondError(w, http.StatusBadRequest, "input_dir is required")
		return
	}
	if req.OutputDir == "" {
		respondError(w, http.StatusBadRequest, "output_dir is required")
		return
	}

	jobID := uuid.New().String()
	job := h.jobManager.CreateJob(jobID, RunJobOptions{
		InputDir:       req.InputDir,
		OutputDir:      req.OutputDir,
		MergeThreshold: req.MergeThreshold,
	})

	go h.runJob(job)

	respondJSON(w, http.StatusAccepted, map[string]string{
		"job_id": jobID,
		"status": string(JobStatusPending),
	})
}

// List returns all known runs.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.jobManager.ListJobs())
}

// Status returns the status of a run.
func (h *RunsHandler) Status(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		respondError(w, http.StatusBadRequest, "missing job ID")
		return
	}

	job := h.jobManager.GetJob(jobID)
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}

	respondJSON(w, http.StatusOK, job)
}

// Events streams run events via SSE.
func (h *RunsHandler) Events(w http.ResponseWriter, r *http.Request) {
	streamSSEEvents(w, r,
		func(id string) SSEJob {
			job := h.jobManager.GetJob(id)
			if job == nil {
				return nil
			}
			return job
		},
		func(job SSEJob) any {
			return job
		},
	)
}

// Cancel cancels a run.
func (h *RunsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		respondError(w, http.StatusBadRequest, "missing job ID")
		return
	}

	job := h.jobManager.GetJob(jobID)
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}

	job.Cancel()
	respondJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
}

// runJob runs the pipeline in the background, forwarding its progress as
// job events.
func (h *RunsHandler) runJob(job *RunJob) {
	ctx, cancel := context.WithCancel(context.Background())
	job.cancel = cancel
	defer cancel()

	job.mu.Lock()
	job.Status = JobStatusRunning
	job.mu.Unlock()
	job.SendEvent(JobEvent{Type: "started", Message: "Sorting run started"})

	result, err := h.run(ctx, pipeline.Options{
		InputDir:       job.Options.InputDir,
		OutputDir:      job.Options.OutputDir,
		MergeThreshold: job.Options.MergeThreshold,
		OnProgress: func(ev pipeline.Event) {
			job.mu.Lock()
			job.Progress = ev.Percent
			job.Phase = ev.Phase
			job.mu.Unlock()
			job.SendEvent(JobEvent{
				Type: "progress",
				Data: map[string]any{
					"phase":   ev.Phase,
					"percent": ev.Percent,
					"message": ev.Message,
				},
			})
		},
	})

	if err != nil {
		if ctx.Err() != nil {
			job.mu.Lock()
			job.Status = JobStatusCancelled
			job.mu.Unlock()
			job.SendEvent(JobEvent{Type: "cancelled", Message: "Job was cancelled"})
			return
		}
		h.failJob(job, err.Error())
		return
	}

	if !result.OK {
		h.failJob(job, result.Error)
		return
	}

	now := time.Now()
	job.mu.Lock()
	job.Status = JobStatusCompleted
	job.CompletedAt = &now
	job.Progress = 100
	job.Result = result
	job.mu.Unlock()

	job.SendEvent(JobEvent{Type: "completed", Data: result})
}

func (h *RunsHandler) failJob(job *RunJob, message string) {
	now := time.Now()
	job.mu.Lock()
	job.Status = JobStatusFailed
	job.Error = message
	job.CompletedAt = &now
	job.mu.Unlock()
	job.SendEvent(JobEvent{Type: "job_error", Message: message})
}
