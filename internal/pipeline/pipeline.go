// Package pipeline turns a batch of query records into a table inventory and
// its similarity groups.
//
// Records are extracted and resolved concurrently, then reduced into the
// inventory in input order, so a run is deterministic for a given input.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"

	"github.com/leapstack-labs/querymap/internal/state"
	"github.com/leapstack-labs/querymap/pkg/inventory"
	"github.com/leapstack-labs/querymap/pkg/querymeta"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidThreshold is returned for a similarity threshold outside [0, 1].
var ErrInvalidThreshold = errors.New("similarity threshold must be between 0 and 1")

// RunSaver persists a finished run.
type RunSaver interface {
	SaveRun(ctx context.Context, run *state.Run) error
}

// Config holds pipeline configuration.
type Config struct {
	// Threshold is the minimum Jaccard overlap for grouping.
	Threshold float64
	// Workers bounds concurrent record processing. Zero uses one per CPU.
	Workers int
	// Extractor finds column references (optional, defaults to
	// querymeta.DefaultExtractor).
	Extractor querymeta.Extractor
	// Store persists each run when set.
	Store RunSaver
	// Source names the input in persisted runs.
	Source string
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Stats counts what happened to the records of a run.
type Stats struct {
	Records               int `json:"records"`
	StructuredRecords     int `json:"structured_records"`
	FallbackRecords       int `json:"fallback_records"`
	EmptyRecords          int `json:"empty_records"`
	UnresolvedRefs        int `json:"unresolved_refs"`
	DroppedRefs           int `json:"dropped_refs"`
	UnparseableTableLists int `json:"unparseable_table_lists"`
}

// Result is the outcome of a run.
type Result struct {
	RunID     string            `json:"run_id,omitempty"`
	Inventory []inventory.Table `json:"inventory"`
	Groups    []inventory.Group `json:"groups"`
	Stats     Stats             `json:"stats"`
}

// Pipeline runs the extraction, aggregation and grouping stages.
type Pipeline struct {
	threshold float64
	workers   int
	extractor querymeta.Extractor
	store     RunSaver
	source    string
	logger    *slog.Logger
}

// New creates a pipeline from cfg.
func New(cfg Config) (*Pipeline, error) {
	if math.IsNaN(cfg.Threshold) || cfg.Threshold < 0 || cfg.Threshold > 1 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidThreshold, cfg.Threshold)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	extractor := cfg.Extractor
	if extractor == nil {
		extractor = querymeta.DefaultExtractor()
	}

	return &Pipeline{
		threshold: cfg.Threshold,
		workers:   workers,
		extractor: extractor,
		store:     cfg.Store,
		source:    cfg.Source,
		logger:    logger,
	}, nil
}

// Run processes records and returns the inventory and groups.
// A cancelled context aborts the run before anything is persisted.
func (p *Pipeline) Run(ctx context.Context, records []querymeta.Record) (*Result, error) {
	outcomes := make([]recordOutcome, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i := range records {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = p.process(records[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analysis aborted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analysis aborted: %w", err)
	}

	agg := inventory.NewAggregator()
	stats := Stats{Records: len(records)}
	for i, out := range outcomes {
		p.reduce(i, out, agg, &stats)
	}

	result := &Result{
		Inventory: agg.Inventory(),
		Stats:     stats,
	}
	result.Groups = inventory.GroupSimilar(result.Inventory, p.threshold)

	p.logger.Info("analysis complete",
		"records", stats.Records,
		"tables", agg.Len(),
		"groups", len(result.Groups),
		"fallback_records", stats.FallbackRecords,
		"unresolved_refs", stats.UnresolvedRefs,
	)

	if p.store != nil {
		run := &state.Run{
			Source:         p.source,
			Threshold:      p.threshold,
			Records:        stats.Records,
			FallbackRecs:   stats.FallbackRecords,
			UnresolvedRefs: stats.UnresolvedRefs,
			Inventory:      result.Inventory,
			Groups:         result.Groups,
		}
		if err := p.store.SaveRun(ctx, run); err != nil {
			return nil, fmt.Errorf("failed to save run: %w", err)
		}
		result.RunID = run.ID
	}

	return result, nil
}

// column is one attributed (table, column) pair.
type column struct {
	table string
	name  string
}

// recordOutcome is what processing one record produced.
type recordOutcome struct {
	columns    []column
	fallback   inventory.Table
	mode       extractionMode
	unresolved []querymeta.ResolvedRef
	dropped    int
	tablesErr  error
}

type extractionMode int

const (
	modeEmpty extractionMode = iota
	modeStructured
	modeFallback
)

func (p *Pipeline) process(rec querymeta.Record) recordOutcome {
	var out recordOutcome

	aliases, err := querymeta.ResolveTableList(rec.Tables)
	out.tablesErr = err

	ext := p.extractor.Extract(rec)
	switch {
	case ext.Fallback != nil:
		out.mode = modeFallback
		out.fallback = inventory.Table{Name: ext.Fallback.Table, Columns: ext.Fallback.Columns}
	case len(ext.Refs) > 0:
		out.mode = modeStructured
		for _, ref := range querymeta.ResolveAll(ext.Refs, aliases) {
			if ref.Table == "" {
				out.dropped++
				continue
			}
			if !ref.Resolved {
				out.unresolved = append(out.unresolved, ref)
			}
			out.columns = append(out.columns, column{table: ref.Table, name: ref.Column})
		}
	}
	return out
}

func (p *Pipeline) reduce(row int, out recordOutcome, agg *inventory.Aggregator, stats *Stats) {
	if out.tablesErr != nil {
		stats.UnparseableTableLists++
		p.logger.Warn("unparseable table list", "record", row, "error", out.tablesErr)
	}

	switch out.mode {
	case modeEmpty:
		stats.EmptyRecords++
		p.logger.Debug("no column references found", "record", row)
		return
	case modeFallback:
		stats.FallbackRecords++
		p.logger.Debug("used token fallback", "record", row, "table", out.fallback.Name, "columns", len(out.fallback.Columns))
		agg.AddTable(out.fallback)
	case modeStructured:
		stats.StructuredRecords++
	}

	for _, ref := range out.unresolved {
		p.logger.Debug("unresolved qualifier", "record", row, "qualifier", ref.Table, "column", ref.Column)
	}
	stats.UnresolvedRefs += len(out.unresolved)
	stats.DroppedRefs += out.dropped

	for _, c := range out.columns {
		agg.Add(c.table, c.name)
	}
}
