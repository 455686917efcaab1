package textutil

import "testing"

func TestSanitizeToken(t *testing.T) {
	cases := map[string]string{
		"Berlin":      "berlin",
		"Går på djup": "gar_pa_djup",
		"Ölandsbro":   "olandsbro",
		"a/b\\c":      "a_b_c",
		"  ":          "unknown",
		"--x--":       "x",
	}
	for in, want := range cases {
		if got := SanitizeToken(in); got != want {
			t.Fatalf("SanitizeToken(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTranscodeWindows1252(t *testing.T) {
	tr, err := NewTranscoder("windows-1252")
	if err != nil {
		t.Fatal(err)
	}
	out, converted, err := tr.Transcode([]byte{'J', 0xf6, 'n', 's', 's', 'o', 'n'})
	if err != nil {
		t.Fatal(err)
	}
	if !converted || string(out) != "Jönsson" {
		t.Fatalf("unexpected transcode %q converted=%v", out, converted)
	}
}

func TestTranscodeLeavesUTF8Alone(t *testing.T) {
	tr, _ := NewTranscoder("macintosh")
	in := []byte("Mölle")
	out, converted, err := tr.Transcode(in)
	if err != nil || converted || string(out) != "Mölle" {
		t.Fatalf("expected passthrough, got %q %v %v", out, converted, err)
	}
}

func TestPassthroughTranscoder(t *testing.T) {
	tr, _ := NewTranscoder("")
	in := []byte{0xff, 0xfe}
	out, converted, err := tr.Transcode(in)
	if err != nil || converted || len(out) != 2 {
		t.Fatalf("expected raw bytes, got %v %v %v", out, converted, err)
	}
	if _, err := NewTranscoder("klingon"); err == nil {
		t.Fatal("expected unsupported charset error")
	}
}
