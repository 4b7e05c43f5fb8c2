// Package pipeline runs a full aggregation pass: read adapter output,
// normalize, resolve identities, assign citation keys, and assemble the
// catalog. Commit persists the result; Run alone has no side effects,
// so a dry run is just Run without Commit.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mlanthology/anthology/internal/catalog"
	"github.com/mlanthology/anthology/internal/citekey"
	"github.com/mlanthology/anthology/internal/config"
	"github.com/mlanthology/anthology/internal/normalize"
	"github.com/mlanthology/anthology/internal/pdfmeta"
	"github.com/mlanthology/anthology/internal/record"
	"github.com/mlanthology/anthology/internal/resolve"
	"github.com/mlanthology/anthology/internal/snapshot"
	"github.com/mlanthology/anthology/internal/storage"
)

// Options configures one pipeline run.
type Options struct {
	// Root is the repository root. Required.
	Root string
	// Config overrides the on-disk repository config when non-nil.
	Config *config.Config
	// Logger receives structured progress events.
	Logger zerolog.Logger
	// RecoverPDF enables DOI and title recovery from downloaded PDFs
	// for records that arrived without them.
	RecoverPDF bool
	// Workers bounds file-level parallelism. Zero means GOMAXPROCS.
	Workers int
}

// Report summarizes what one run did.
type Report struct {
	RunID   string        `json:"run_id"`
	Started time.Time     `json:"started"`
	Elapsed time.Duration `json:"elapsed"`

	Files      int `json:"files"`
	Records    int `json:"records"`
	Skipped    int `json:"skipped"`
	ReadErrors int `json:"read_errors"`

	PriorPapers  int `json:"prior_papers"`
	PriorAuthors int `json:"prior_authors"`
	Retired      int `json:"retired"`
	Papers       int `json:"papers"`
	Authors      int `json:"authors"`

	// Flagged counts records per quality flag (missing years, unknown
	// venues, and so on) across the normalized input.
	Flagged map[string]int `json:"flagged,omitempty"`

	Warnings []catalog.Warning `json:"warnings,omitempty"`
}

// fileResult keeps per-file output so concatenation order matches the
// sorted file list regardless of worker scheduling.
type fileResult struct {
	records []normalize.Record
	skipped int
	errs    int
}

// Run executes one aggregation pass and returns the assembled catalog.
// Nothing is written to disk; use Commit for that.
func Run(ctx context.Context, opts Options) (*catalog.Catalog, *Report, error) {
	started := time.Now()
	report := &Report{RunID: uuid.NewString(), Started: started}
	log := opts.Logger.With().Str("run_id", report.RunID).Logger()

	cfg := opts.Config
	if cfg == nil {
		var err error
		cfg, err = config.Load(opts.Root)
		if err != nil {
			return nil, nil, err
		}
	}

	venues, err := normalize.LoadVenues(cfg.VenuesPath(opts.Root))
	if err != nil {
		return nil, nil, fmt.Errorf("loading venue table: %w", err)
	}

	files, err := record.DiscoverFiles(cfg.DataPath(opts.Root))
	if err != nil {
		return nil, nil, err
	}
	report.Files = len(files)
	log.Info().Int("files", len(files)).Str("data_dir", cfg.DataPath(opts.Root)).Msg("discovered adapter output")

	results := make([]fileResult, len(files))
	g, ctx := errgroup.WithContext(ctx)
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(workers)

	norm := normalize.New(venues)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = processFile(f, norm, cfg, opts, log)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var recs []normalize.Record
	for _, r := range results {
		recs = append(recs, r.records...)
		report.Skipped += r.skipped
		report.ReadErrors += r.errs
	}
	report.Records = len(recs)
	for _, r := range recs {
		for _, fl := range r.Flags {
			if report.Flagged == nil {
				report.Flagged = make(map[string]int)
			}
			report.Flagged[fl]++
		}
	}
	log.Info().Int("records", len(recs)).Int("skipped", report.Skipped).
		Int("read_errors", report.ReadErrors).Msg("normalized source records")

	prior, err := snapshot.Load(config.AnthologyPath(opts.Root))
	if err != nil {
		return nil, nil, fmt.Errorf("loading prior snapshot: %w", err)
	}
	report.PriorPapers = len(prior.Papers)
	report.PriorAuthors = len(prior.Authors)

	res := resolve.Resolve(recs, prior.Authors, resolve.Options{TitleThreshold: cfg.TitleThreshold})
	report.Warnings = append(report.Warnings, res.Warnings...)
	log.Info().Int("papers", len(res.Papers)).Int("authors", len(res.Authors)).
		Int("warnings", len(res.Warnings)).Msg("resolved identities")

	keyWarnings, err := citekey.Assign(res.Papers, prior.Papers)
	if err != nil {
		return nil, nil, fmt.Errorf("assigning citation keys: %w", err)
	}
	report.Warnings = append(report.Warnings, keyWarnings...)

	// Papers absent from the current input are carried forward
	// unchanged. Their keys stay occupied across every later run, so a
	// vanished source file can never free a published key for reuse.
	retired := retiredPapers(res.Papers, prior.Papers)
	if len(retired) > 0 {
		res.Papers = append(res.Papers, retired...)
		report.Retired = len(retired)
		log.Info().Int("retired", len(retired)).Msg("carried forward papers absent from input")
	}

	cat, err := catalog.Assemble(res.Papers, res.Authors)
	if err != nil {
		return nil, nil, fmt.Errorf("assembling catalog: %w", err)
	}

	report.Papers = len(cat.Papers)
	report.Authors = len(cat.Authors)
	report.Elapsed = time.Since(started)
	log.Info().Int("papers", report.Papers).Int("authors", report.Authors).
		Dur("elapsed", report.Elapsed).Msg("run complete")
	return cat, report, nil
}

// retiredPapers returns prior papers whose keys no current paper
// claimed, meaning the paper itself is gone from the input.
func retiredPapers(current, prior []*catalog.Paper) []*catalog.Paper {
	live := make(map[string]bool, len(current))
	for _, p := range current {
		live[p.Key] = true
	}
	var out []*catalog.Paper
	for _, p := range prior {
		if !live[p.Key] {
			out = append(out, p)
		}
	}
	return out
}

// processFile reads and normalizes one adapter file. Line-level
// failures are counted and logged, never fatal.
func processFile(f record.File, norm *normalize.Normalizer, cfg *config.Config, opts Options, log zerolog.Logger) fileResult {
	var out fileResult
	raws, errs := record.ReadFile(f)
	out.errs = len(errs)
	for _, err := range errs {
		log.Warn().Str("file", f.Path).Err(err).Msg("unreadable record")
	}

	for _, raw := range raws {
		if opts.RecoverPDF && raw.PDFPath != "" && (raw.DOI == "" || raw.Title == "") {
			recoverMeta(&raw, cfg, opts.Root, log)
		}
		rec, err := norm.Normalize(raw)
		if err != nil {
			if errors.Is(err, normalize.ErrSkip) {
				out.skipped++
				log.Debug().Str("source", raw.Source).Str("source_id", raw.SourceID).
					Err(err).Msg("record skipped")
				continue
			}
			out.errs++
			log.Warn().Str("source", raw.Source).Str("source_id", raw.SourceID).
				Err(err).Msg("record rejected")
			continue
		}
		out.records = append(out.records, rec)
	}
	return out
}

// recoverMeta fills a missing DOI or title from the downloaded PDF.
func recoverMeta(raw *record.Raw, cfg *config.Config, root string, log zerolog.Logger) {
	path := raw.PDFPath
	if !filepath.IsAbs(path) {
		base := cfg.PDFRoot
		if base == "" {
			base = root
		} else if !filepath.IsAbs(base) {
			base = filepath.Join(root, base)
		}
		path = filepath.Join(base, path)
	}
	if _, err := os.Stat(path); err != nil {
		log.Warn().Str("source", raw.Source).Str("source_id", raw.SourceID).
			Str("pdf", path).Msg("pdf listed but not on disk")
		return
	}
	meta, err := pdfmeta.Recover(path)
	if err != nil {
		log.Debug().Str("pdf", path).Err(err).Msg("pdf recovery failed")
		return
	}
	if raw.DOI == "" && meta.DOI != "" {
		raw.DOI = meta.DOI
		log.Info().Str("source", raw.Source).Str("source_id", raw.SourceID).
			Str("doi", meta.DOI).Msg("recovered doi from pdf")
	}
	if raw.Title == "" && meta.Title != "" {
		raw.Title = meta.Title
		log.Info().Str("source", raw.Source).Str("source_id", raw.SourceID).
			Str("title", meta.Title).Msg("recovered title from pdf")
	}
}

// Commit persists the catalog: snapshot files first, then the derived
// SQLite index. The snapshot is the source of truth; a failed index
// rebuild leaves a stale cache that the next open can detect.
func Commit(root string, cat *catalog.Catalog, log zerolog.Logger) error {
	dir := config.AnthologyPath(root)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating repository dir: %w", err)
	}
	if err := snapshot.Write(dir, cat); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	log.Info().Str("dir", dir).Int("papers", len(cat.Papers)).Msg("snapshot written")

	if err := os.MkdirAll(config.CachePath(root), 0755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}
	db, err := storage.Open(config.DBPath(root))
	if err != nil {
		return fmt.Errorf("opening index: %w", err)
	}
	defer db.Close()

	n, err := db.Rebuild(dir)
	if err != nil {
		return fmt.Errorf("rebuilding index: %w", err)
	}
	log.Info().Int("indexed", n).Msg("index rebuilt")
	return nil
}
