// Package catalog holds the compiled-in table of supported legacy titles.
//
// A Title knows its expected movie files, the working-directory layout the
// legacy runtime expects, its transparency key colour, and members that need
// to be skipped or duplicated. Matching is case-insensitive, Unicode
// normalized, and tolerant of the movie file extension.
package catalog
