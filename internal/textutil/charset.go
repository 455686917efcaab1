package textutil

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

var decoders = map[string]*charmap.Charmap{
	"windows-1252": charmap.Windows1252,
	"iso-8859-1":   charmap.ISO8859_1,
	"macintosh":    charmap.Macintosh,
}

// Transcoder converts legacy single-byte text to UTF-8.
type Transcoder struct {
	charset string
	enc     encoding.Encoding
}

// NewTranscoder returns a transcoder for a canonical charset name. An empty
// name yields a passthrough transcoder.
func NewTranscoder(charset string) (*Transcoder, error) {
	if charset == "" {
		return &Transcoder{}, nil
	}
	cm, ok := decoders[charset]
	if !ok {
		return nil, fmt.Errorf("unsupported charset %q", charset)
	}
	return &Transcoder{charset: charset, enc: cm}, nil
}

// Charset returns the configured source charset, or "" for passthrough.
func (t *Transcoder) Charset() string {
	return t.charset
}

// Transcode returns data as UTF-8. Input that already is valid UTF-8 is
// returned unchanged, as is everything when no charset is configured.
func (t *Transcoder) Transcode(data []byte) ([]byte, bool, error) {
	if t.enc == nil || utf8.Valid(data) {
		return data, false, nil
	}
	out, err := t.enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", t.charset, err)
	}
	return out, true, nil
}
