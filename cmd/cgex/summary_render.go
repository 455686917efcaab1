package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kottz/cgex/internal/pipeline"
)

func renderSummary(s pipeline.Summary, colorize bool) string {
	var b strings.Builder
	for _, line := range renderSectionHeader("Run "+s.RunID, colorize) {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	rows := make([][]string, 0, len(s.Jobs))
	for _, job := range s.Jobs {
		detail := ""
		if job.Err != nil {
			detail = job.Err.Error()
		}
		rows = append(rows, []string{
			strconv.Itoa(job.Seq),
			job.Movie,
			job.Status,
			strconv.Itoa(job.Written),
			strconv.Itoa(job.Skipped),
			strconv.Itoa(job.Fallbacks),
			formatElapsed(job.Duration),
			detail,
		})
	}
	if len(rows) > 0 {
		b.WriteString(renderTable(tableSpec{
			headers: []string{"#", "Movie", "Status", "Written", "Skipped", "Fallbacks", "Time", "Error"},
			rows:    rows,
			aligns:  []columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
			footer: []string{
				"", "Total", "",
				strconv.Itoa(s.AssetsWritten),
				strconv.Itoa(s.AssetsSkipped()),
				strconv.Itoa(s.UpscaleFallbacks),
				formatElapsed(s.Duration),
				"",
			},
		}))
		b.WriteByte('\n')
	}

	title := s.Title
	if title == "" {
		title = "none detected"
	}
	b.WriteString(renderStatusLine("Title", statusInfo, title, colorize))
	b.WriteByte('\n')
	b.WriteString(renderStatusLine("Movies", jobsKind(s), fmt.Sprintf("%d found, %d succeeded, %d failed", s.JobsFound, s.JobsSucceeded, s.JobsFailed), colorize))
	b.WriteByte('\n')
	b.WriteString(renderStatusLine("Assets written", statusInfo, strconv.Itoa(s.AssetsWritten), colorize))
	b.WriteByte('\n')
	if reasons := s.SkipReasons(); len(reasons) > 0 {
		parts := make([]string, 0, len(reasons))
		for _, reason := range reasons {
			parts = append(parts, fmt.Sprintf("%s=%d", reason, s.SkippedByReason[reason]))
		}
		b.WriteString(renderStatusLine("Assets skipped", statusWarn, strings.Join(parts, ", "), colorize))
		b.WriteByte('\n')
	}
	if s.UpscaleFallbacks > 0 {
		b.WriteString(renderStatusLine("Upscale fallbacks", statusWarn, strconv.Itoa(s.UpscaleFallbacks), colorize))
		b.WriteByte('\n')
	}
	if s.LogPath != "" {
		b.WriteString(renderStatusLine("Log", statusInfo, s.LogPath, colorize))
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func jobsKind(s pipeline.Summary) statusKind {
	switch {
	case s.JobsFound == 0:
		return statusWarn
	case s.JobsFailed > 0:
		return statusError
	default:
		return statusOK
	}
}

func formatElapsed(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}
