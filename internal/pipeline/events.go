package pipeline

// Phase names reported through progress events, in execution order.
const (
	PhaseScanning   = "scanning"
	PhaseDetecting  = "detecting"
	PhaseClustering = "clustering"
	PhaseMerging    = "merging"
	PhaseExporting  = "exporting"
)

// Event is one progress update from a running sort.
type Event struct {
	Phase   string `json:"phase"`
	Percent int    `json:"percent"`
	Message string `json:"message"`
}

// Result is the terminal outcome of a run. Domain failures (no faces, no
// stable clusters) produce OK=false with Error set; infrastructure failures
// surface as Go errors instead.
type Result struct {
	OK     bool   `json:"ok"`
	Groups int    `json:"groups"`
	Moved  int    `json:"moved"`
	Out    string `json:"out"`
	Error  string `json:"error,omitempty"`
}
