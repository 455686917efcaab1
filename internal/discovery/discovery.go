package discovery

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/kottz/cgex/internal/catalog"
	"github.com/kottz/cgex/internal/logging"
	"github.com/kottz/cgex/internal/services"
	"github.com/kottz/cgex/internal/textutil"
)

// MovieJob is one movie file scheduled for extraction.
type MovieJob struct {
	Seq        int
	SourcePath string
	MovieName  string
	Title      catalog.Title
	ScratchDir string
}

// Stem returns the movie filename without its extension.
func (j MovieJob) Stem() string {
	return strings.TrimSuffix(j.MovieName, filepath.Ext(j.MovieName))
}

// Options configures Discover.
type Options struct {
	InputDir    string
	ScratchRoot string
	RunID       string
	Catalog     *catalog.Catalog
}

// Report summarizes what discovery saw besides the jobs themselves.
type Report struct {
	Detections []catalog.Detection
	Unmatched  []string
	Duplicates []string
}

// Discover lists the movie files in the input directory (and in any movie
// subdirectory a title declares), matches them against the catalog and
// returns jobs in lexicographic path order. An input without recognised
// movies yields no jobs and no error.
func Discover(opts Options, logger *slog.Logger) ([]MovieJob, Report, error) {
	logger = logging.NewComponentLogger(logger, "discovery")
	var report Report

	info, err := os.Stat(opts.InputDir)
	if err != nil {
		return nil, report, services.Wrap(services.ErrConfiguration, "discovery", "stat input", opts.InputDir, err)
	}
	if !info.IsDir() {
		return nil, report, services.Wrap(services.ErrConfiguration, "discovery", "stat input", opts.InputDir+" is not a directory", nil)
	}
	cat := opts.Catalog
	if cat == nil {
		cat = catalog.Default()
	}

	paths, err := listMovies(opts.InputDir, movieDirs(cat))
	if err != nil {
		return nil, report, services.Wrap(services.ErrConfiguration, "discovery", "list input", opts.InputDir, err)
	}

	names := make([]string, 0, len(paths))
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	report.Detections = cat.Detect(names)
	rank := make(map[string]int, len(report.Detections))
	for i, d := range report.Detections {
		rank[d.Title.Key] = i
	}
	if len(report.Detections) > 0 {
		best := report.Detections[0]
		logger.Info("title detected",
			logging.String("title", best.Title.Name),
			logging.Int("matched", best.Matched),
			logging.Int("expected", best.Expected),
			logging.String(logging.FieldEventType, "title_detected"),
		)
		if best.Partial() {
			logging.WarnWithContext(logger, "input is missing expected movie files", "title_partial",
				logging.String("title", best.Title.Name),
				logging.String("found", fmt.Sprintf("%d of %d", best.Matched, best.Expected)),
				logging.String(logging.FieldErrorHint, "check that the whole disc was copied"),
				logging.String(logging.FieldImpact, "assets from missing movies are not extracted"),
			)
		}
	}

	seen := make(map[string]string)
	var jobs []MovieJob
	for _, path := range paths {
		name := filepath.Base(path)
		candidates := cat.Candidates(name)
		if len(candidates) == 0 {
			report.Unmatched = append(report.Unmatched, path)
			logging.WarnWithContext(logger, "movie file not recognised; skipping", "movie_unmatched",
				logging.String("path", path),
				logging.String(logging.FieldErrorHint, "only catalogued titles are supported"),
				logging.String(logging.FieldImpact, "movie is not extracted"),
			)
			continue
		}
		title := candidates[0]
		for _, c := range candidates[1:] {
			if rank[c.Key] < rank[title.Key] {
				title = c
			}
		}
		key := catalog.MatchKey(name)
		if first, dup := seen[key]; dup {
			report.Duplicates = append(report.Duplicates, path)
			logging.WarnWithContext(logger, "duplicate movie file; keeping first", "movie_duplicate",
				logging.String("path", path),
				logging.String("kept", first),
				logging.String(logging.FieldImpact, "duplicate copy is ignored"),
			)
			continue
		}
		seen[key] = path

		seq := len(jobs) + 1
		jobs = append(jobs, MovieJob{
			Seq:        seq,
			SourcePath: path,
			MovieName:  name,
			Title:      title,
			ScratchDir: scratchDir(opts.ScratchRoot, opts.RunID, seq, name),
		})
	}

	if len(jobs) == 0 {
		logging.WarnWithContext(logger, "no supported movie files found", "discovery_empty",
			logging.String("input_dir", opts.InputDir),
			logging.String(logging.FieldErrorHint, "point --input-dir at the disc contents"),
			logging.String(logging.FieldImpact, "nothing is extracted"),
		)
	}
	return jobs, report, nil
}

func movieDirs(cat *catalog.Catalog) []string {
	set := map[string]struct{}{}
	var out []string
	for _, t := range cat.Titles() {
		for _, d := range t.MovieDirs {
			key := catalog.MatchKey(d)
			if _, ok := set[key]; ok {
				continue
			}
			set[key] = struct{}{}
			out = append(out, d)
		}
	}
	return out
}

func listMovies(root string, subdirs []string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, entry := range entries {
		full := filepath.Join(root, entry.Name())
		if entry.IsDir() {
			if !isMovieDir(entry.Name(), subdirs) {
				continue
			}
			nested, err := os.ReadDir(full)
			if err != nil {
				return nil, err
			}
			for _, n := range nested {
				if n.Type().IsRegular() && catalog.IsMovieFile(n.Name()) {
					out = append(out, filepath.Join(full, n.Name()))
				}
			}
			continue
		}
		if entry.Type().IsRegular() && catalog.IsMovieFile(entry.Name()) {
			out = append(out, full)
		}
	}
	sort.Strings(out)
	return out, nil
}

func isMovieDir(name string, subdirs []string) bool {
	for _, d := range subdirs {
		if catalog.SameName(name, d) {
			return true
		}
	}
	return false
}

func scratchDir(root, runID string, seq int, movie string) string {
	stem := strings.TrimSuffix(movie, filepath.Ext(movie))
	return filepath.Join(root, runID, fmt.Sprintf("%03d-%s-%s", seq, textutil.SanitizeToken(stem), uuid.NewString()[:8]))
}
