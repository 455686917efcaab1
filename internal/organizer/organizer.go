package organizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/kottz/cgex/internal/assetid"
	"github.com/kottz/cgex/internal/discovery"
	"github.com/kottz/cgex/internal/fileutil"
	"github.com/kottz/cgex/internal/logging"
	"github.com/kottz/cgex/internal/services"
)

// Asset is one fully processed member ready to be written.
type Asset struct {
	Identity assetid.Identity
	Ext      string
	Data     []byte
}

// RelPath returns <Movie>/<Area>/<Kind>/<Name>.<ext>.
func (a Asset) RelPath() string {
	id := a.Identity
	return filepath.Join(id.Movie, id.Area, id.Kind.String(), id.Name()+"."+strings.TrimPrefix(a.Ext, "."))
}

// Written records one file placed in the output tree.
type Written struct {
	Asset  Asset
	Path   string
	Rel    string
	Size   int
	SHA256 string
}

// CommitResult lists what a commit wrote and what it refused.
type CommitResult struct {
	Written   []Written
	Conflicts []string
}

// Organizer writes processed assets into the output tree.
type Organizer struct {
	root   string
	logger *slog.Logger
}

// New constructs an organizer rooted at root.
func New(root string, logger *slog.Logger) *Organizer {
	return &Organizer{root: root, logger: logging.NewComponentLogger(logger, "organizer")}
}

// Root returns the output root.
func (o *Organizer) Root() string {
	return o.root
}

// Commit writes every asset atomically, replacing files from earlier runs. Two
// assets mapping to the same path in one commit are a conflict: the first is
// written, later ones are reported and dropped. Write failures abort with
// services.ErrOutputUnwritable.
func (o *Organizer) Commit(ctx context.Context, job discovery.MovieJob, assets []Asset) (CommitResult, error) {
	logger := logging.WithContext(ctx, o.logger)
	var result CommitResult
	seen := make(map[string]struct{}, len(assets))
	for _, asset := range assets {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		rel := asset.RelPath()
		key := strings.ToLower(rel)
		if _, dup := seen[key]; dup {
			result.Conflicts = append(result.Conflicts, rel)
			logging.WarnWithContext(logger, "output path already written in this commit", "output_conflict",
				logging.String("path", rel),
				logging.String("raw", asset.Identity.Raw),
				logging.String(logging.FieldImpact, "later member is not written"),
			)
			continue
		}
		seen[key] = struct{}{}

		path := filepath.Join(o.root, rel)
		if err := fileutil.WriteAtomic(path, asset.Data, 0o644); err != nil {
			return result, unwritable(o.root, rel, err)
		}
		result.Written = append(result.Written, Written{
			Asset:  asset,
			Path:   path,
			Rel:    rel,
			Size:   len(asset.Data),
			SHA256: fileutil.HashBytes(asset.Data),
		})
	}
	logger.Info("assets committed",
		logging.String("movie", job.MovieName),
		logging.Int("written", len(result.Written)),
		logging.Int("conflicts", len(result.Conflicts)),
		logging.String(logging.FieldEventType, "commit_complete"),
	)
	return result, nil
}

// CopyAlias writes an existing output a second time under another name in the
// same directory.
func (o *Organizer) CopyAlias(w Written, name string) (Written, error) {
	alias := w.Asset
	alias.Identity.Output = name
	rel := alias.RelPath()
	path := filepath.Join(o.root, rel)
	if err := fileutil.WriteAtomic(path, alias.Data, 0o644); err != nil {
		return Written{}, unwritable(o.root, rel, err)
	}
	return Written{Asset: alias, Path: path, Rel: rel, Size: w.Size, SHA256: w.SHA256}, nil
}

// SweepTemp removes in-flight temp files left under root by an interrupted
// run and returns how many were removed.
func SweepTemp(root string) (int, error) {
	removed := 0
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || !fileutil.IsTempName(d.Name()) {
			return nil
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		removed++
		return nil
	})
	return removed, err
}

// unavailableErrors indicate the output filesystem rejects writes outright.
var unavailableErrors = []error{
	syscall.EROFS,
	syscall.EACCES,
	syscall.EPERM,
	syscall.ENOSPC,
	syscall.EDQUOT,
	syscall.EIO,
}

func unwritable(root, rel string, err error) error {
	hint := "check output directory permissions"
	for _, target := range unavailableErrors {
		if errors.Is(err, target) {
			hint = fmt.Sprintf("output filesystem refused write (%s)", target.Error())
			break
		}
	}
	return services.Wrap(services.ErrOutputUnwritable, "organizer", "write "+rel, hint+" under "+root, err)
}
