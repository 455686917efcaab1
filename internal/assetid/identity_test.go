package assetid_test

import (
	"errors"
	"testing"

	"github.com/kottz/cgex/internal/assetid"
	"github.com/kottz/cgex/internal/services"
)

func TestParseValidNames(t *testing.T) {
	cases := []struct {
		raw  string
		want assetid.Identity
	}{
		{
			raw:  "berlin--Animationer__harry0001-167.bmp",
			want: assetid.Identity{Movie: "berlin", Area: "Animationer", Member: "harry0001", Index: 167, Kind: assetid.KindBitmap, Ext: ".bmp"},
		},
		{
			raw:  "Mainmenu--Internal__m_birdanim2_12-473.BMP",
			want: assetid.Identity{Movie: "Mainmenu", Area: "Internal", Member: "m_birdanim2_12", Index: 473, Kind: assetid.KindBitmap, Ext: ".bmp"},
		},
		{
			raw:  "02--00__-2.wav",
			want: assetid.Identity{Movie: "02", Area: "00", Member: "", Index: 2, Kind: assetid.KindSound, Ext: ".wav"},
		},
		{
			raw:  "heden--Text__intro-part-3.txt",
			want: assetid.Identity{Movie: "heden", Area: "Text", Member: "intro-part", Index: 3, Kind: assetid.KindText, Ext: ".txt"},
		},
		{
			raw:  "a--b--c__d__e-0.bmp",
			want: assetid.Identity{Movie: "a", Area: "b--c", Member: "d__e", Index: 0, Kind: assetid.KindBitmap, Ext: ".bmp"},
		},
	}
	for _, tc := range cases {
		got, err := assetid.Parse(tc.raw)
		if err != nil {
			t.Fatalf("Parse(%q) returned error: %v", tc.raw, err)
		}
		tc.want.Raw = tc.raw
		if got != tc.want {
			t.Fatalf("Parse(%q) = %+v, want %+v", tc.raw, got, tc.want)
		}
	}
}

func TestParseRejectsMalformedNames(t *testing.T) {
	for _, raw := range []string{
		"berlin--Animationer__sickan0042.bmp",
		"berlin__harry-1.bmp",
		"berlin--harry-1.bmp",
		"--Area__x-1.bmp",
		"m--__x-1.bmp",
		"m--a__x-.bmp",
		"m--a__x-1a.bmp",
		"..--a__x-1.bmp",
		"m--..__x-1.bmp",
		"m--a__..-1.bmp",
	} {
		_, err := assetid.Parse(raw)
		if !errors.Is(err, services.ErrMalformedAssetName) {
			t.Fatalf("Parse(%q): expected malformed error, got %v", raw, err)
		}
	}
}

func TestParseRejectsUnknownExtension(t *testing.T) {
	_, err := assetid.Parse("berlin--Scripts__main-4.ls")
	if !errors.Is(err, services.ErrUnrecognizedAsset) {
		t.Fatalf("expected unrecognized asset, got %v", err)
	}
	if services.Classify(err) != services.SeverityAsset {
		t.Fatalf("expected asset-scoped error")
	}
}

func TestFormatRoundTrip(t *testing.T) {
	ids := []assetid.Identity{
		{Movie: "berlin", Area: "Animationer", Member: "ingo0043", Index: 123, Kind: assetid.KindBitmap, Ext: ".bmp"},
		{Movie: "02", Area: "00", Member: "", Index: 9, Kind: assetid.KindSound, Ext: ".wav"},
		{Movie: "game", Area: "Ljud", Member: "plask-stor", Index: 17, Kind: assetid.KindText, Ext: ".txt"},
	}
	for _, id := range ids {
		raw := assetid.Format(id)
		got, err := assetid.Parse(raw)
		if err != nil {
			t.Fatalf("Parse(Format(%+v)) returned error: %v", id, err)
		}
		id.Raw = raw
		if got != id {
			t.Fatalf("round trip mismatch: got %+v want %+v", got, id)
		}
	}
}

func TestBaseNameFallsBackToIndex(t *testing.T) {
	id, err := assetid.Parse("02--00__-2.bmp")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if id.BaseName() != "2" {
		t.Fatalf("expected index as name, got %q", id.BaseName())
	}
}
