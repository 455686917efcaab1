package services

import (
	"errors"
	"fmt"
	"strings"
)

// Run-fatal markers abort the whole run.
var (
	ErrEnvironmentStartup = errors.New("environment startup failed")
	ErrOutputUnwritable   = errors.New("output root not writable")
	ErrConfiguration      = errors.New("configuration error")
	ErrInvariant          = errors.New("invariant violated")
)

// Job-recoverable markers abandon one movie and let the run continue.
var (
	ErrExtractionTimeout = errors.New("extraction timed out")
	ErrNoAssets          = errors.New("extraction produced no assets")
	ErrRuntimeCrash      = errors.New("legacy runtime crashed")
)

// Asset-recoverable markers skip one member.
var (
	ErrUnrecognizedAsset  = errors.New("unrecognized asset kind")
	ErrMalformedAssetName = errors.New("malformed asset name")
	ErrCorruptAudio       = errors.New("corrupt audio")
	ErrImageDecode        = errors.New("image decode failed")
	ErrImageEncode        = errors.New("image encode failed")
	ErrUpscaleFailed      = errors.New("upscale failed")
)

// Severity is the blast radius of an error.
type Severity int

const (
	SeverityAsset Severity = iota
	SeverityJob
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityFatal:
		return "fatal"
	case SeverityJob:
		return "job"
	default:
		return "asset"
	}
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrRuntimeCrash
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps an error to the scope it invalidates. Errors carrying no known
// marker are treated as job-scoped.
func Classify(err error) Severity {
	switch {
	case err == nil:
		return SeverityAsset
	case errors.Is(err, ErrEnvironmentStartup),
		errors.Is(err, ErrOutputUnwritable),
		errors.Is(err, ErrConfiguration),
		errors.Is(err, ErrInvariant):
		return SeverityFatal
	case errors.Is(err, ErrUnrecognizedAsset),
		errors.Is(err, ErrMalformedAssetName),
		errors.Is(err, ErrCorruptAudio),
		errors.Is(err, ErrImageDecode),
		errors.Is(err, ErrImageEncode),
		errors.Is(err, ErrUpscaleFailed):
		return SeverityAsset
	default:
		return SeverityJob
	}
}

// Reason returns a short machine-friendly label for the marker carried by err.
func Reason(err error) string {
	for _, entry := range []struct {
		marker error
		label  string
	}{
		{ErrEnvironmentStartup, "environment_startup"},
		{ErrOutputUnwritable, "output_unwritable"},
		{ErrConfiguration, "configuration"},
		{ErrInvariant, "invariant"},
		{ErrExtractionTimeout, "extraction_timeout"},
		{ErrNoAssets, "no_assets"},
		{ErrRuntimeCrash, "runtime_crash"},
		{ErrUnrecognizedAsset, "unrecognized_asset"},
		{ErrMalformedAssetName, "malformed_name"},
		{ErrCorruptAudio, "corrupt_audio"},
		{ErrImageDecode, "image_decode"},
		{ErrImageEncode, "image_encode"},
		{ErrUpscaleFailed, "upscale_failed"},
	} {
		if errors.Is(err, entry.marker) {
			return entry.label
		}
	}
	if err == nil {
		return ""
	}
	return "unknown"
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
