package services

import "context"

type contextKey string

const (
	runIDKey contextKey = "run_id"
	jobKey   contextKey = "job"
	stageKey contextKey = "stage"
	assetKey contextKey = "asset"
)

func withValue(ctx context.Context, key contextKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func value(ctx context.Context, key contextKey) (string, bool) {
	v, ok := ctx.Value(key).(string)
	return v, ok && v != ""
}

// WithRunID annotates ctx with the run identifier.
func WithRunID(ctx context.Context, id string) context.Context { return withValue(ctx, runIDKey, id) }

// RunIDFromContext returns the run identifier if set.
func RunIDFromContext(ctx context.Context) (string, bool) { return value(ctx, runIDKey) }

// WithJob annotates ctx with the movie file a job is processing.
func WithJob(ctx context.Context, movie string) context.Context { return withValue(ctx, jobKey, movie) }

// JobFromContext returns the job's movie file if set.
func JobFromContext(ctx context.Context) (string, bool) { return value(ctx, jobKey) }

// WithStage annotates ctx with the run stage (extraction, assets, commit).
func WithStage(ctx context.Context, stage string) context.Context {
	return withValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if set.
func StageFromContext(ctx context.Context) (string, bool) { return value(ctx, stageKey) }

// WithAsset annotates ctx with the raw extracted filename.
func WithAsset(ctx context.Context, name string) context.Context {
	return withValue(ctx, assetKey, name)
}

// AssetFromContext returns the raw extracted filename if set.
func AssetFromContext(ctx context.Context) (string, bool) { return value(ctx, assetKey) }
