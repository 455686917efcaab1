// Package pipeline orchestrates a run: discovery, one shared runtime
// environment, sequential per-movie extraction, concurrent per-asset
// processing and the final commit into the output tree.
//
// Failures are scoped. An asset failure skips that member, a job failure
// abandons that movie and the run continues, and a fatal failure (the
// environment cannot start, the output cannot be written, bad configuration)
// stops the run. The environment is stopped on every exit path.
package pipeline
