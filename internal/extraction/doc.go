// Package extraction drives the legacy runtime that dumps a movie's members
// to disk.
//
// Driver copies the disc contents and extractor tools into the job's scratch
// directory, rearranges them into the layout the title expects, runs the
// extractor with a bounded timeout in its own process group and collects the
// files that appeared. ReplayExtractor serves a recorded dump instead, for
// tests and for reprocessing without the runtime.
package extraction
