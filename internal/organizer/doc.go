// Package organizer places processed assets into the output tree.
//
// Files land at <root>/<Movie>/<Area>/<Kind>/<Name>.<ext> through a temp file
// in the target directory that is fsynced and renamed, so a crash never leaves
// a truncated asset under its final name. SweepTemp removes the temp files an
// interrupted run leaves behind.
package organizer
