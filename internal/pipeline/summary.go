package pipeline

import (
	"sort"
	"time"
)

// Job outcome labels.
const (
	JobSucceeded = "succeeded"
	JobFailed    = "failed"
	JobAborted   = "aborted"
)

// Skip reasons that do not come from an error marker.
const (
	SkipKnownBroken = "known_broken"
	SkipDuplicate   = "duplicate"
	SkipConflict    = "conflict"
)

// JobSummary is the outcome of one movie.
type JobSummary struct {
	Seq       int
	Movie     string
	Title     string
	Status    string
	Reason    string
	Err       error
	Written   int
	Skipped   int
	Fallbacks int
	Duration  time.Duration
}

// Summary is the outcome of one run.
type Summary struct {
	RunID            string
	Title            string
	JobsFound        int
	JobsSucceeded    int
	JobsFailed       int
	AssetsWritten    int
	SkippedByReason  map[string]int
	UpscaleFallbacks int
	Jobs             []JobSummary
	Duration         time.Duration
	LogPath          string
}

func newSummary(runID string) Summary {
	return Summary{RunID: runID, SkippedByReason: make(map[string]int)}
}

// AssetsSkipped totals skipped assets across reasons.
func (s Summary) AssetsSkipped() int {
	total := 0
	for _, n := range s.SkippedByReason {
		total += n
	}
	return total
}

// SkipReasons returns the skip reasons in sorted order.
func (s Summary) SkipReasons() []string {
	reasons := make([]string, 0, len(s.SkippedByReason))
	for reason := range s.SkippedByReason {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	return reasons
}

func (s *Summary) skip(reason string, n int) {
	if n <= 0 {
		return
	}
	s.SkippedByReason[reason] += n
}

func (s *Summary) add(job JobSummary) {
	s.Jobs = append(s.Jobs, job)
	switch job.Status {
	case JobSucceeded:
		s.JobsSucceeded++
	default:
		s.JobsFailed++
	}
	s.AssetsWritten += job.Written
	s.UpscaleFallbacks += job.Fallbacks
}
