// Package textutil holds small text helpers: legacy charset transcoding for
// text members and token sanitization for scratch directory names.
package textutil
