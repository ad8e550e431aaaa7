// Package analyzer drives a benchmark run: it loads each entity under test
// at a series of row counts, times plain and indexed queries against it, and
// folds the mean latencies into a report.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/arkilian/ndxbench/internal/adapter"
	berrors "github.com/arkilian/ndxbench/internal/errors"
	"github.com/arkilian/ndxbench/internal/observability"
	"github.com/arkilian/ndxbench/internal/query"
	"github.com/arkilian/ndxbench/internal/report"
	"github.com/arkilian/ndxbench/pkg/types"
)

// Trial kinds recorded in the trial statistics.
const (
	KindSelectPlain = "select_plain"
	KindSelectNdx   = "select_ndx"
	KindJoinPlain   = "join_plain"
	KindJoinNdx     = "join_ndx"
	KindLookup      = "id_lookup"
)

// CrossEntity names the point-in-polygon measurement in trial statistics.
const CrossEntity = "point_poly_test"

// selectProgressEvery is the trial interval between select progress lines.
const selectProgressEvery = 5

// Series holds the per-row-count mean latencies, in seconds, of one base
// entity.
type Series struct {
	Plain     []float64
	Ndx       []float64
	JoinPlain []float64
	JoinNdx   []float64
}

// Analyzer runs the experiment against a single adapter. It is not safe for
// concurrent use.
type Analyzer struct {
	adapter adapter.Adapter
	queries *query.Generator
	logger  *slog.Logger
	stats   *observability.TrialStats
}

// New creates an analyzer driving a.
func New(a adapter.Adapter, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		adapter: a,
		queries: query.NewGenerator(a.Dialect()),
		logger:  logger.With(slog.String("backend", a.Dialect().Name)),
		stats:   observability.NewTrialStats(),
	}
}

// Stats returns the trials recorded so far.
func (an *Analyzer) Stats() *observability.TrialStats {
	return an.stats
}

// Run measures every enabled entity, assembles the report and writes it to
// p.Output. The first failure aborts the run and no report is written.
func (an *Analyzer) Run(ctx context.Context, p Params) (*types.Report, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.Spatial && !an.adapter.Dialect().SupportsSpatial() {
		return nil, berrors.NewUnsupportedError(
			fmt.Sprintf("%s has no spatial support", an.adapter.Dialect().Name))
	}

	start := time.Now()
	an.logger.InfoContext(ctx, "starting analysis",
		slog.Int("start", p.Start),
		slog.Int("stop", p.Stop),
		slog.Int("stop_small", p.StopSmall),
		slog.Int("num_points", p.NumPoints),
		slog.Bool("spatial", p.Spatial),
		slog.Bool("ids", p.IDs),
		slog.Bool("full_sweep", p.FullSweep),
	)

	results := make(map[string]Series)
	for _, e := range types.BaseEntities(p.Spatial) {
		s, err := an.MeasureEntity(ctx, e, p.rowCounts(e.Spatial()), p.FetchRows)
		if err != nil {
			return nil, err
		}
		results[e.Name] = s
	}

	var cross *Series
	if p.Spatial {
		s, err := an.MeasureCross(ctx, CrossSweep(p.Start), p.FetchRows)
		if err != nil {
			return nil, err
		}
		cross = &s
	}

	var ids map[types.ColumnType][]float64
	if p.IDs {
		var err error
		if ids, err = an.MeasureIDs(ctx, p.FetchRows); err != nil {
			return nil, err
		}
	}

	r := Assemble(results, cross, ids, p.IDs)

	if p.Output != "" {
		if err := report.WriteFile(p.Output, r); err != nil {
			return nil, err
		}
		an.logger.InfoContext(ctx, "report written", slog.String("path", p.Output))
	}

	an.logger.InfoContext(ctx, "analysis complete",
		slog.Int64("trials", an.stats.TotalTrials()),
		slog.Duration("elapsed", time.Since(start)),
	)
	return r, nil
}

// MeasureEntity provisions e and, for each row count, loads it, indexes the
// indexed column, times the select and self-join queries, then empties the
// table and drops the index.
func (an *Analyzer) MeasureEntity(ctx context.Context, e types.Entity, rowCounts []int, fetch bool) (Series, error) {
	plain, ndx := e.Plain(), e.Indexed()
	queries, err := an.queries.Generate(e.Name, plain, ndx)
	if err != nil {
		return Series{}, err
	}

	spatial := e.Spatial()
	selectTrials, joinTrials := SelectTrials, JoinTrials
	if spatial {
		selectTrials, joinTrials = SpatialSelectTrials, SpatialJoinTrials
	}

	if err := an.adapter.Provision(ctx, e); err != nil {
		return Series{}, err
	}

	var s Series
	for _, rows := range rowCounts {
		if err := an.adapter.BulkLoad(ctx, e, rows); err != nil {
			return Series{}, err
		}
		if err := an.adapter.CreateIndex(ctx, e.Name, ndx.Name, ndx.Name, spatial); err != nil {
			return Series{}, err
		}

		means, err := an.timePair(ctx, e.Name, "queries",
			[2]string{queries[query.SelectPlain], queries[query.SelectIndexed]},
			[2]string{KindSelectPlain, KindSelectNdx},
			selectTrials, selectProgressEvery, fetch)
		if err != nil {
			return Series{}, err
		}
		s.Plain = append(s.Plain, means[0])
		s.Ndx = append(s.Ndx, means[1])

		means, err = an.timePair(ctx, e.Name, "join queries",
			[2]string{queries[query.JoinPlain], queries[query.JoinIndexed]},
			[2]string{KindJoinPlain, KindJoinNdx},
			joinTrials, 1, fetch)
		if err != nil {
			return Series{}, err
		}
		s.JoinPlain = append(s.JoinPlain, means[0])
		s.JoinNdx = append(s.JoinNdx, means[1])

		if err := an.adapter.ClearTable(ctx, e.Name, ndx.Name); err != nil {
			return Series{}, err
		}
	}
	return s, nil
}

// MeasureCross times the point-in-polygon containment join between the
// point and polygon entities at each row count. Only JoinPlain and JoinNdx
// of the returned series are set.
func (an *Analyzer) MeasureCross(ctx context.Context, rowCounts []int, fetch bool) (Series, error) {
	entities := types.BaseEntities(true)
	points, polygons := entities[2], entities[3]

	queries, err := an.queries.GenerateCross(points, polygons)
	if err != nil {
		return Series{}, err
	}

	for _, e := range []types.Entity{points, polygons} {
		if err := an.adapter.Provision(ctx, e); err != nil {
			return Series{}, err
		}
	}

	var s Series
	for _, rows := range rowCounts {
		for _, e := range []types.Entity{points, polygons} {
			if err := an.adapter.BulkLoad(ctx, e, rows); err != nil {
				return Series{}, err
			}
			ndx := e.Indexed().Name
			if err := an.adapter.CreateIndex(ctx, e.Name, ndx, ndx, true); err != nil {
				return Series{}, err
			}
		}

		means, err := an.timePair(ctx, CrossEntity, "point/poly queries",
			[2]string{queries[query.CrossPlain], queries[query.CrossIndexed]},
			[2]string{KindJoinPlain, KindJoinNdx},
			CrossTrials, 1, fetch)
		if err != nil {
			return Series{}, err
		}
		s.JoinPlain = append(s.JoinPlain, means[0])
		s.JoinNdx = append(s.JoinNdx, means[1])

		for _, e := range []types.Entity{points, polygons} {
			if err := an.adapter.ClearTable(ctx, e.Name, e.Indexed().Name); err != nil {
				return Series{}, err
			}
		}
	}
	return s, nil
}

// MeasureIDs times identifier lookups for every representation the dialect
// supports. Each representation is loaded with 0 and then 1 row.
func (an *Analyzer) MeasureIDs(ctx context.Context, fetch bool) (map[types.ColumnType][]float64, error) {
	out := make(map[types.ColumnType][]float64)

	for _, t := range an.adapter.Dialect().IDTypes() {
		e := types.IDEntity(t)
		q, err := an.queries.GenerateID(e.Name, t)
		if err != nil {
			return nil, err
		}
		if err := an.adapter.Provision(ctx, e); err != nil {
			return nil, err
		}

		points := make([]float64, 0, Repetitions)
		for _, rows := range repetitions() {
			if err := an.adapter.BulkLoad(ctx, e, rows); err != nil {
				return nil, err
			}

			mean, err := an.timeOne(ctx, e.Name, q, IDTrials, fetch)
			if err != nil {
				return nil, err
			}
			points = append(points, mean)

			if err := an.adapter.ClearTable(ctx, e.Name, ""); err != nil {
				return nil, err
			}
		}
		out[t] = points
	}
	return out, nil
}

// timePair runs trials of two queries interleaved and returns the mean
// latency of each in seconds.
func (an *Analyzer) timePair(ctx context.Context, entity, label string, queries, kinds [2]string, trials, progressEvery int, fetch bool) ([2]float64, error) {
	an.logger.DebugContext(ctx, "timing "+label, slog.String("entity", entity))
	start := time.Now()

	var sums [2]time.Duration
	for j := 0; j < trials; j++ {
		for k := range queries {
			elapsed, err := an.adapter.TimeQuery(ctx, queries[k], fetch)
			if err != nil {
				return [2]float64{}, err
			}
			an.stats.Record(entity, kinds[k], elapsed)
			sums[k] += elapsed
		}
		if (j+1)%progressEvery == 0 {
			an.logger.DebugContext(ctx, "timed",
				slog.String("entity", entity),
				slog.Int("done", j+1),
				slog.Int("trials", trials),
			)
		}
	}

	attrs := []any{
		slog.String("entity", entity),
		slog.Int("trials", trials),
		slog.Int("queries", trials*len(queries)),
		slog.Duration("elapsed", time.Since(start)),
	}
	// Slowest trial of each kind so far in this run.
	for _, kind := range kinds {
		if s, ok := an.stats.Get(entity, kind); ok {
			attrs = append(attrs, slog.Duration(kind+"_max", s.Max))
		}
	}
	an.logger.InfoContext(ctx, "timed "+label, attrs...)
	return [2]float64{mean(sums[0], trials), mean(sums[1], trials)}, nil
}

func (an *Analyzer) timeOne(ctx context.Context, entity, q string, trials int, fetch bool) (float64, error) {
	start := time.Now()

	var sum time.Duration
	for j := 0; j < trials; j++ {
		elapsed, err := an.adapter.TimeQuery(ctx, q, fetch)
		if err != nil {
			return 0, err
		}
		an.stats.Record(entity, KindLookup, elapsed)
		sum += elapsed
	}

	an.logger.InfoContext(ctx, "timed lookups",
		slog.String("entity", entity),
		slog.Int("trials", trials),
		slog.Duration("elapsed", time.Since(start)),
	)
	return mean(sum, trials), nil
}

func mean(sum time.Duration, n int) float64 {
	return sum.Seconds() / float64(n)
}

// Assemble folds per-entity results into the fixed report schema. Missing
// entities leave their sequences nil; the ids section is nil unless
// idsEnabled is set.
func Assemble(results map[string]Series, cross *Series, ids map[types.ColumnType][]float64, idsEnabled bool) *types.Report {
	str := results[types.StrEntity]
	num := results[types.IntEntity]
	pt := results[types.PointEntity]
	poly := results[types.PolyEntity]

	r := &types.Report{
		Selects: types.SelectSection{
			StrPlain:   str.Plain,
			StrNdx:     str.Ndx,
			IntPlain:   num.Plain,
			IntNdx:     num.Ndx,
			PointPlain: pt.Plain,
			PointNdx:   pt.Ndx,
			PolyPlain:  poly.Plain,
			PolyNdx:    poly.Ndx,
		},
		Joins: types.JoinSection{
			StrPlain:   str.JoinPlain,
			StrNdx:     str.JoinNdx,
			IntPlain:   num.JoinPlain,
			IntNdx:     num.JoinNdx,
			PointPlain: pt.JoinPlain,
			PointNdx:   pt.JoinNdx,
			PolyPlain:  poly.JoinPlain,
			PolyNdx:    poly.JoinNdx,
		},
	}
	if cross != nil {
		r.Joins.PointPolyPlain = cross.JoinPlain
		r.Joins.PointPolyNdx = cross.JoinNdx
	}
	if idsEnabled {
		r.IDs = &types.IDSection{
			Integer: ids[types.Integer],
			UUID:    ids[types.UUID],
			Binary:  ids[types.Binary],
			Char:    ids[types.Char16],
		}
	}
	return r
}
