package assetid_test

import (
	"strings"
	"testing"

	"github.com/kottz/cgex/internal/assetid"
)

func mustParse(t *testing.T, raw string) assetid.Identity {
	t.Helper()
	id, err := assetid.Parse(raw)
	if err != nil {
		t.Fatalf("Parse(%q): %v", raw, err)
	}
	return id
}

func TestResolverDisambiguatesCollisions(t *testing.T) {
	r := assetid.NewResolver()
	first := r.Assign(mustParse(t, "heden--Bilder__bakgrund-1.bmp"))
	second := r.Assign(mustParse(t, "heden--Bilder__bakgrund-7.bmp"))
	third := r.Assign(mustParse(t, "heden--Bilder__bakgrund-7.bmp"))

	if first.Name() != "bakgrund" {
		t.Fatalf("first claimant should keep plain name, got %q", first.Name())
	}
	if second.Name() != "bakgrund-7" {
		t.Fatalf("expected index suffix, got %q", second.Name())
	}
	if third.Name() != "bakgrund-7-2" {
		t.Fatalf("expected counter suffix, got %q", third.Name())
	}
}

func TestResolverScopesByAreaAndKind(t *testing.T) {
	r := assetid.NewResolver()
	a := r.Assign(mustParse(t, "heden--A__x-1.bmp"))
	b := r.Assign(mustParse(t, "heden--B__x-1.bmp"))
	c := r.Assign(mustParse(t, "heden--A__x-1.wav"))
	for _, id := range []assetid.Identity{a, b, c} {
		if id.Name() != "x" {
			t.Fatalf("expected unscoped collision to keep name, got %q for %s", id.Name(), id.Raw)
		}
	}
}

func TestResolverUnnamedMembersUseIndex(t *testing.T) {
	r := assetid.NewResolver()
	a := r.Assign(mustParse(t, "02--00__-2.bmp"))
	b := r.Assign(mustParse(t, "02--00__-3.bmp"))
	if a.Name() != "2" || b.Name() != "3" {
		t.Fatalf("unexpected names %q %q", a.Name(), b.Name())
	}
}

func TestResolverIsCollisionFree(t *testing.T) {
	raws := []string{
		"m--a__n-1.bmp", "m--a__n-1.bmp", "m--a__n-1.bmp", "m--a__n-1-1.bmp",
		"m--a__N-2.bmp", "m--a__-1.bmp", "m--a__1-5.bmp",
	}
	r := assetid.NewResolver()
	seen := map[string]string{}
	for _, raw := range raws {
		id := r.Assign(mustParse(t, raw))
		lower := strings.ToLower(id.Area + "/" + id.Kind.String() + "/" + id.Name())
		if prev, dup := seen[lower]; dup {
			t.Fatalf("collision on %q between %s and %s", lower, prev, raw)
		}
		seen[lower] = raw
	}
}

func TestResolverReserve(t *testing.T) {
	r := assetid.NewResolver()
	id := r.Assign(mustParse(t, "berlin--Animationer__vanheden700-200.bmp"))
	if !r.Reserve(id, "vanheden707") {
		t.Fatal("expected alias name to be free")
	}
	if r.Reserve(id, "vanheden707") {
		t.Fatal("expected second reservation to fail")
	}
	next := r.Assign(mustParse(t, "berlin--Animationer__vanheden707-201.bmp"))
	if next.Name() != "vanheden707-201" {
		t.Fatalf("expected reserved alias to force disambiguation, got %q", next.Name())
	}
}
