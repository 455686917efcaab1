// Package discovery turns an input directory into an ordered list of movie
// jobs, each bound to the catalog title it belongs to and to a private scratch
// directory.
package discovery
