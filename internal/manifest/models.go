package manifest

import "time"

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Job statuses.
const (
	JobSucceeded = "succeeded"
	JobFailed    = "failed"
)

// RunStart describes a run as it begins.
type RunStart struct {
	RunID     string
	StartedAt time.Time
	InputDir  string
	OutputDir string
	Upscale   bool
	Compress  bool
	Alpha     bool
}

// RunTotals are the counters written when a run ends.
type RunTotals struct {
	Status           string
	JobsFound        int
	JobsSucceeded    int
	JobsFailed       int
	AssetsWritten    int
	AssetsSkipped    int
	UpscaleFallbacks int
	Error            string
}

// RunSummary is one row of run history.
type RunSummary struct {
	ID         int64
	RunID      string
	StartedAt  time.Time
	FinishedAt *time.Time
	InputDir   string
	OutputDir  string
	RunTotals
}

// JobRecord captures the outcome of one movie.
type JobRecord struct {
	Seq           int
	Movie         string
	Title         string
	Status        string
	Reason        string
	Error         string
	AssetsWritten int
	AssetsSkipped int
	Duration      time.Duration
}

// AssetRecord captures one written output file.
type AssetRecord struct {
	RelPath        string
	Kind           string
	Format         string
	Alpha          bool
	Upscaled       bool
	Fallback       bool
	FallbackReason string
	Size           int
	SHA256         string
}
