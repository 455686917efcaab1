package organizer_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kottz/cgex/internal/assetid"
	"github.com/kottz/cgex/internal/discovery"
	"github.com/kottz/cgex/internal/fileutil"
	"github.com/kottz/cgex/internal/logging"
	"github.com/kottz/cgex/internal/organizer"
	"github.com/kottz/cgex/internal/services"
)

func asset(movie, area, name string, kind assetid.Kind, ext, data string) organizer.Asset {
	return organizer.Asset{
		Identity: assetid.Identity{Movie: movie, Area: area, Member: name, Kind: kind, Output: name},
		Ext:      ext,
		Data:     []byte(data),
	}
}

func TestCommitWritesLayout(t *testing.T) {
	root := t.TempDir()
	org := organizer.New(root, logging.NewNop())
	assets := []organizer.Asset{
		asset("berlin", "Animationer", "harry", assetid.KindBitmap, "png", "img"),
		asset("berlin", "Ljud", "door", assetid.KindSound, "wav", "snd"),
		asset("berlin", "Text", "intro", assetid.KindText, "txt", "hej"),
	}
	result, err := org.Commit(context.Background(), discovery.MovieJob{MovieName: "berlin.dir"}, assets)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if len(result.Written) != 3 || len(result.Conflicts) != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	for rel, want := range map[string]string{
		filepath.Join("berlin", "Animationer", "Bitmap", "harry.png"): "img",
		filepath.Join("berlin", "Ljud", "Sound", "door.wav"):          "snd",
		filepath.Join("berlin", "Text", "Text", "intro.txt"):          "hej",
	} {
		data, err := os.ReadFile(filepath.Join(root, rel))
		if err != nil {
			t.Fatalf("expected %s: %v", rel, err)
		}
		if string(data) != want {
			t.Fatalf("%s: got %q", rel, data)
		}
	}
	if result.Written[0].SHA256 != fileutil.HashBytes([]byte("img")) {
		t.Fatal("expected content digest recorded")
	}
}

func TestCommitOverwritesPreviousRun(t *testing.T) {
	root := t.TempDir()
	org := organizer.New(root, logging.NewNop())
	job := discovery.MovieJob{MovieName: "m.dir"}
	if _, err := org.Commit(context.Background(), job, []organizer.Asset{asset("m", "a", "x", assetid.KindText, "txt", "old")}); err != nil {
		t.Fatal(err)
	}
	if _, err := org.Commit(context.Background(), job, []organizer.Asset{asset("m", "a", "x", assetid.KindText, "txt", "new")}); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(filepath.Join(root, "m", "a", "Text", "x.txt"))
	if string(data) != "new" {
		t.Fatalf("expected overwrite, got %q", data)
	}
}

func TestCommitReportsConflicts(t *testing.T) {
	root := t.TempDir()
	org := organizer.New(root, logging.NewNop())
	result, err := org.Commit(context.Background(), discovery.MovieJob{}, []organizer.Asset{
		asset("m", "a", "x", assetid.KindBitmap, "png", "first"),
		asset("m", "a", "X", assetid.KindBitmap, "png", "second"),
	})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if len(result.Written) != 1 || len(result.Conflicts) != 1 {
		t.Fatalf("expected one write and one conflict, got %+v", result)
	}
	data, _ := os.ReadFile(filepath.Join(root, "m", "a", "Bitmap", "x.png"))
	if string(data) != "first" {
		t.Fatalf("first writer must win, got %q", data)
	}
}

func TestCommitUnwritableRootIsFatal(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root bypasses directory permissions")
	}
	root := filepath.Join(t.TempDir(), "ro")
	if err := os.MkdirAll(root, 0o555); err != nil {
		t.Fatal(err)
	}
	org := organizer.New(root, logging.NewNop())
	_, err := org.Commit(context.Background(), discovery.MovieJob{}, []organizer.Asset{asset("m", "a", "x", assetid.KindText, "txt", "x")})
	if !errors.Is(err, services.ErrOutputUnwritable) {
		t.Fatalf("expected ErrOutputUnwritable, got %v", err)
	}
	if services.Classify(err) != services.SeverityFatal {
		t.Fatal("expected fatal severity")
	}
}

func TestCopyAlias(t *testing.T) {
	root := t.TempDir()
	org := organizer.New(root, logging.NewNop())
	result, err := org.Commit(context.Background(), discovery.MovieJob{}, []organizer.Asset{
		asset("berlin", "Animationer", "vanheden700", assetid.KindBitmap, "png", "frame"),
	})
	if err != nil {
		t.Fatal(err)
	}
	alias, err := org.CopyAlias(result.Written[0], "vanheden707")
	if err != nil {
		t.Fatalf("CopyAlias: %v", err)
	}
	data, err := os.ReadFile(alias.Path)
	if err != nil || string(data) != "frame" {
		t.Fatalf("alias not written: %v %q", err, data)
	}
	if filepath.Base(alias.Path) != "vanheden707.png" {
		t.Fatalf("unexpected alias path %s", alias.Path)
	}
}

func TestSweepTemp(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "m", "a", "Bitmap")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	stale := filepath.Join(dir, fileutil.TempPrefix+"123")
	keep := filepath.Join(dir, "x.png")
	for _, p := range []string{stale, keep} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	removed, err := organizer.SweepTemp(root)
	if err != nil {
		t.Fatalf("SweepTemp: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
	if _, err := os.Stat(keep); err != nil {
		t.Fatal("final output must survive sweep")
	}
	if n, err := organizer.SweepTemp(filepath.Join(root, "missing")); err != nil || n != 0 {
		t.Fatalf("missing root should be a no-op, got %d %v", n, err)
	}
}
