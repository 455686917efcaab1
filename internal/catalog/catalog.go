package catalog

import (
	"image/color"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// DirRename moves the contents of a scratch subdirectory found case-insensitively
// under From into To.
type DirRename struct {
	From string
	To   string
}

// Alias emits an additional copy of any member whose output name starts with
// MemberPrefix, under the name As.
type Alias struct {
	Movie        string
	Area         string
	MemberPrefix string
	As           string
}

// Title describes one supported legacy title: how to recognise its movie files,
// how to lay out the runtime's working directory, and which extracted members
// need special handling.
type Title struct {
	Key            string
	Name           string
	MovieStems     []string
	MovieDirs      []string
	Renames        []DirRename
	KeyColor       color.RGBA
	SkipFiles      []string
	Aliases        []Alias
	DismissDialogs bool
}

// Detection reports how well a Title matched the movies present in an input.
type Detection struct {
	Title    Title
	Matched  int
	Expected int
}

// Partial reports whether some expected movies were not found.
func (d Detection) Partial() bool {
	return d.Matched < d.Expected
}

var movieExtensions = map[string]struct{}{
	".dir": {},
	".dxr": {},
	".cxt": {},
}

var folder = cases.Fold()

// MatchKey canonicalizes a movie filename or stem for comparison: Unicode NFC,
// case folded, known movie extensions removed.
func MatchKey(name string) string {
	name = strings.TrimSpace(filepath.Base(name))
	if IsMovieFile(name) {
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}
	return folder.String(norm.NFC.String(name))
}

// IsMovieFile reports whether name carries a movie container extension.
func IsMovieFile(name string) bool {
	_, ok := movieExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// SameName compares two directory or file names case-insensitively.
func SameName(a, b string) bool {
	return folder.String(norm.NFC.String(a)) == folder.String(norm.NFC.String(b))
}

// Matches reports whether the movie file belongs to the title.
func (t Title) Matches(name string) bool {
	key := MatchKey(name)
	for _, stem := range t.MovieStems {
		if MatchKey(stem) == key {
			return true
		}
	}
	return false
}

// Skips reports whether a raw extracted filename is a known-broken member.
func (t Title) Skips(rawName string) bool {
	for _, name := range t.SkipFiles {
		if name == rawName {
			return true
		}
	}
	return false
}

// AliasesFor returns the extra output names for a member.
func (t Title) AliasesFor(movie, area, outputName string) []string {
	var out []string
	for _, alias := range t.Aliases {
		if !SameName(alias.Movie, movie) || !SameName(alias.Area, area) {
			continue
		}
		if strings.HasPrefix(outputName, alias.MemberPrefix) && outputName != alias.As {
			out = append(out, alias.As)
		}
	}
	return out
}

// Catalog is an ordered set of supported titles.
type Catalog struct {
	titles []Title
}

// New builds a catalog from the provided titles, preserving order.
func New(titles ...Title) *Catalog {
	return &Catalog{titles: append([]Title(nil), titles...)}
}

// Default returns the built-in catalog of supported titles.
func Default() *Catalog {
	return New(builtinTitles()...)
}

// Titles returns the catalog entries in order.
func (c *Catalog) Titles() []Title {
	return append([]Title(nil), c.titles...)
}

// Lookup finds a title by key.
func (c *Catalog) Lookup(key string) (Title, bool) {
	for _, t := range c.titles {
		if strings.EqualFold(t.Key, key) {
			return t, true
		}
	}
	return Title{}, false
}

// Candidates returns every title that claims the movie file.
func (c *Catalog) Candidates(name string) []Title {
	var out []Title
	for _, t := range c.titles {
		if t.Matches(name) {
			out = append(out, t)
		}
	}
	return out
}

// Detect ranks titles by how many of names they claim. Titles claiming none
// are omitted; ties keep catalog order.
func (c *Catalog) Detect(names []string) []Detection {
	keys := make(map[string]struct{}, len(names))
	for _, name := range names {
		keys[MatchKey(name)] = struct{}{}
	}
	var out []Detection
	for _, t := range c.titles {
		matched := 0
		for _, stem := range t.MovieStems {
			if _, ok := keys[MatchKey(stem)]; ok {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		out = append(out, Detection{Title: t, Matched: matched, Expected: len(t.MovieStems)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Matched > out[j].Matched })
	return out
}
