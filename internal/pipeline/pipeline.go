// Package pipeline wires the stages of one batch run: load points and tract
// polygons, aggregate points into tracts, summarize the research dataset,
// join, align to tract order, and persist.
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/urban-data-lab/tractjoin/internal/entity"
	"github.com/urban-data-lab/tractjoin/internal/fetcher"
	"github.com/urban-data-lab/tractjoin/internal/geospatial"
	"github.com/urban-data-lab/tractjoin/internal/incidents"
	"github.com/urban-data-lab/tractjoin/internal/manifest"
	"github.com/urban-data-lab/tractjoin/internal/model"
	"github.com/urban-data-lab/tractjoin/internal/store"
	"github.com/urban-data-lab/tractjoin/internal/table"
	"github.com/urban-data-lab/tractjoin/internal/tracts"
)

// Pipeline runs manifests. Every stage consumes immutable inputs and builds
// a fresh output; nothing is mutated across stage boundaries.
type Pipeline struct {
	Client  *fetcher.Client
	Store   store.Store
	TempDir string

	// NewLocator builds the containment strategy for a loaded tract set.
	// Defaults to the bounding-box prefilter.
	NewLocator func(*tracts.Set) geospatial.Locator
}

// New creates a Pipeline with the default locator.
func New(client *fetcher.Client, st store.Store, tempDir string) *Pipeline {
	return &Pipeline{
		Client:     client,
		Store:      st,
		TempDir:    tempDir,
		NewLocator: geospatial.NewBoundsLocator,
	}
}

// Run executes one manifest end to end and returns the completed run record.
// Per-record problems are absorbed into the summary; fetch and key-integrity
// failures abort the run and mark it failed.
func (p *Pipeline) Run(ctx context.Context, m *manifest.Manifest) (*model.Run, error) {
	run, err := p.Store.CreateRun(ctx, m.Name)
	if err != nil {
		return nil, err
	}
	log := zap.L().With(zap.String("run_id", run.ID), zap.String("manifest", m.Name))

	summary, mergedTable, err := p.execute(ctx, m, log)
	if err != nil {
		if cerr := p.Store.CompleteRun(ctx, run.ID, model.RunStatusFailed, summary); cerr != nil {
			log.Warn("pipeline: failed to mark run failed", zap.Error(cerr))
		}
		return nil, err
	}

	if err := p.Store.SaveTable(ctx, run.ID, mergedTable); err != nil {
		return nil, err
	}
	if err := p.Store.CompleteRun(ctx, run.ID, model.RunStatusComplete, summary); err != nil {
		return nil, err
	}

	log.Info("pipeline: run complete",
		zap.Int("points", summary.Points),
		zap.Int("dropped_points", summary.DroppedPoints),
		zap.Int("matched", summary.Matched),
		zap.Int("unmatched", summary.Unmatched),
		zap.Int("tracts", summary.Tracts),
		zap.Int("merged_rows", summary.MergedRows),
	)

	run.Status = model.RunStatusComplete
	run.Summary = summary
	return run, nil
}

// execute runs the transform stages and returns the summary and the aligned
// merged table.
func (p *Pipeline) execute(ctx context.Context, m *manifest.Manifest, log *zap.Logger) (*model.RunSummary, *table.Table, error) {
	// Points and tracts have no dependency on each other; fetch both at once.
	var pointRes incidents.Result
	var set *tracts.Set

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pointRes, err = p.loadPoints(gctx, m.Points)
		return err
	})
	g.Go(func() error {
		var err error
		set, err = p.loadTracts(gctx, m.Tracts)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	log.Info("pipeline: sources loaded",
		zap.Int("points", len(pointRes.Points)),
		zap.Int("dropped_points", pointRes.Dropped),
		zap.Int("tracts", set.Len()),
	)

	agg := geospatial.Aggregate(set, pointRes.Points, p.NewLocator(set))

	entRes, err := p.loadEntities(ctx, m.Entities)
	if err != nil {
		return nil, nil, err
	}
	study := table.Summarize("study", entRes.Rows, m.Entities.MeanColumns)

	merged, err := table.Merge(agg.Table("incidents"), study)
	if err != nil {
		return nil, nil, err
	}
	aligned, err := table.Align(merged, set.Keys())
	if err != nil {
		return nil, nil, err
	}

	summary := &model.RunSummary{
		Points:          len(pointRes.Points),
		DroppedPoints:   pointRes.Dropped,
		Matched:         agg.Matched,
		Unmatched:       agg.Unmatched,
		Tracts:          set.Len(),
		EntityRows:      len(entRes.Rows),
		DroppedEntities: entRes.Dropped,
		MergedRows:      aligned.Len(),
	}
	return summary, aligned, nil
}

func (p *Pipeline) loadPoints(ctx context.Context, src manifest.PointSource) (incidents.Result, error) {
	body, err := p.Client.Open(ctx, src.URL)
	if err != nil {
		return incidents.Result{}, eris.Wrap(err, "pipeline: fetch point source")
	}
	defer body.Close() //nolint:errcheck

	switch src.Format {
	case manifest.PointFormatJSON:
		return incidents.FromJSON(ctx, body, src.Fields)
	case manifest.PointFormatCSV:
		return incidents.FromCSV(ctx, body, src.Fields, fetcher.CSVOptions{})
	default:
		return incidents.Result{}, eris.Errorf("pipeline: unsupported point format %q", src.Format)
	}
}

func (p *Pipeline) loadTracts(ctx context.Context, src manifest.TractSource) (*tracts.Set, error) {
	switch src.Format {
	case manifest.TractFormatGeoJSON:
		body, err := p.Client.Open(ctx, src.URL)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: fetch tract source")
		}
		defer body.Close() //nolint:errcheck
		return tracts.FromGeoJSON(body, src.KeyField)

	case manifest.TractFormatShapefile:
		if err := os.MkdirAll(p.TempDir, 0o755); err != nil {
			return nil, eris.Wrap(err, "pipeline: create temp dir")
		}
		staged, err := p.Client.Stage(ctx, src.URL, filepath.Join(p.TempDir, filepath.Base(src.URL)))
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: stage tract source")
		}
		if strings.HasSuffix(strings.ToLower(staged), ".zip") {
			return tracts.FromShapefileZip(staged, p.TempDir, src.KeyField)
		}
		return tracts.FromShapefile(staged, src.KeyField)

	default:
		return nil, eris.Errorf("pipeline: unsupported tract format %q", src.Format)
	}
}

func (p *Pipeline) loadEntities(ctx context.Context, src manifest.EntitySource) (entity.Result, error) {
	switch src.Format {
	case manifest.EntityFormatCSV:
		body, err := p.Client.Open(ctx, src.URL)
		if err != nil {
			return entity.Result{}, eris.Wrap(err, "pipeline: fetch entity source")
		}
		defer body.Close() //nolint:errcheck
		return entity.FromCSV(ctx, body, src.KeyColumn, fetcher.CSVOptions{Charset: src.Charset})

	case manifest.EntityFormatXLSX:
		if err := os.MkdirAll(p.TempDir, 0o755); err != nil {
			return entity.Result{}, eris.Wrap(err, "pipeline: create temp dir")
		}
		staged, err := p.Client.Stage(ctx, src.URL, filepath.Join(p.TempDir, filepath.Base(src.URL)))
		if err != nil {
			return entity.Result{}, eris.Wrap(err, "pipeline: stage entity source")
		}
		return entity.FromXLSX(staged, src.KeyColumn, fetcher.XLSXOptions{SheetName: src.Sheet})

	default:
		return entity.Result{}, eris.Errorf("pipeline: unsupported entity format %q", src.Format)
	}
}
