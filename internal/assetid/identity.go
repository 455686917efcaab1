package assetid

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kottz/cgex/internal/services"
)

// Kind is the media class of an extracted member.
type Kind int

const (
	KindBitmap Kind = iota + 1
	KindSound
	KindText
)

// String returns the output directory name for the kind.
func (k Kind) String() string {
	switch k {
	case KindBitmap:
		return "Bitmap"
	case KindSound:
		return "Sound"
	case KindText:
		return "Text"
	default:
		return "Unknown"
	}
}

var kindsByExt = map[string]Kind{
	".bmp": KindBitmap,
	".wav": KindSound,
	".txt": KindText,
}

// Identity is the parsed identity of one raw extracted file.
type Identity struct {
	Raw    string
	Movie  string
	Area   string
	Member string
	Index  int
	Kind   Kind
	Ext    string
	// Output is the collision-free output filename stem assigned by a Resolver.
	Output string
}

// BaseName is the output stem before collision disambiguation: the member
// name, or the decimal index for unnamed members.
func (id Identity) BaseName() string {
	if id.Member != "" {
		return id.Member
	}
	return strconv.Itoa(id.Index)
}

// Name returns the assigned output stem, falling back to BaseName.
func (id Identity) Name() string {
	if id.Output != "" {
		return id.Output
	}
	return id.BaseName()
}

const (
	movieSep = "--"
	areaSep  = "__"
	indexSep = "-"
)

// Parse decodes a raw extracted filename of the form
// <Movie>--<Area>__<Member>-<Index>.<ext>. The movie is split on the first
// "--", the area on the first "__", and the index after the last "-".
func Parse(raw string) (Identity, error) {
	name := filepath.Base(raw)
	ext := filepath.Ext(name)
	kind, ok := kindsByExt[strings.ToLower(ext)]
	if !ok {
		return Identity{}, services.Wrap(services.ErrUnrecognizedAsset, "parse", "kind", fmt.Sprintf("%q has extension %q", name, ext), nil)
	}
	stem := strings.TrimSuffix(name, ext)

	movie, rest, ok := strings.Cut(stem, movieSep)
	if !ok {
		return Identity{}, malformed(name, "missing movie separator")
	}
	area, member, ok := strings.Cut(rest, areaSep)
	if !ok {
		return Identity{}, malformed(name, "missing area separator")
	}
	cut := strings.LastIndex(member, indexSep)
	if cut < 0 {
		return Identity{}, malformed(name, "missing member index")
	}
	memberName, indexText := member[:cut], member[cut+len(indexSep):]

	index, err := parseIndex(indexText)
	if err != nil {
		return Identity{}, malformed(name, err.Error())
	}
	if movie == "" {
		return Identity{}, malformed(name, "empty movie name")
	}
	if area == "" {
		return Identity{}, malformed(name, "empty area name")
	}
	for _, component := range []string{movie, area, memberName} {
		if !safeComponent(component) {
			return Identity{}, malformed(name, fmt.Sprintf("unsafe path component %q", component))
		}
	}

	return Identity{
		Raw:    name,
		Movie:  movie,
		Area:   area,
		Member: memberName,
		Index:  index,
		Kind:   kind,
		Ext:    strings.ToLower(ext),
	}, nil
}

// Format renders an identity back into the raw filename grammar.
func Format(id Identity) string {
	ext := id.Ext
	if ext == "" {
		for e, k := range kindsByExt {
			if k == id.Kind {
				ext = e
			}
		}
	}
	return id.Movie + movieSep + id.Area + areaSep + id.Member + indexSep + strconv.Itoa(id.Index) + ext
}

func parseIndex(text string) (int, error) {
	if text == "" {
		return 0, fmt.Errorf("empty member index")
	}
	for _, r := range text {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("member index %q is not a non-negative integer", text)
		}
	}
	index, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("member index %q: %w", text, err)
	}
	return index, nil
}

func safeComponent(value string) bool {
	if value == "." || value == ".." {
		return false
	}
	return !strings.ContainsAny(value, "/\\\x00")
}

func malformed(name, reason string) error {
	return services.Wrap(services.ErrMalformedAssetName, "parse", "grammar", fmt.Sprintf("%q: %s", name, reason), nil)
}
