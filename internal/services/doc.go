// Package services defines shared utilities consumed by the pipeline stages
// and their external collaborators.
//
// Key responsibilities:
//   - Context helpers that stamp run ids, job movie names, stage names, and
//     asset filenames for logging.
//   - Structured error markers plus the Wrap helper, and Classify which maps a
//     failure onto the scope it abandons (asset, job, or the whole run).
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
