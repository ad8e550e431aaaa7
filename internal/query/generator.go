// Package query builds the literal SQL strings timed by the benchmark.
//
// Every query compares against a fixed literal (a sentinel value or a fixed
// reference geometry) so that each trial of a query kind executes exactly
// the same statement.
package query

import (
	"fmt"

	"github.com/arkilian/ndxbench/internal/dialect"
	berrors "github.com/arkilian/ndxbench/internal/errors"
	"github.com/arkilian/ndxbench/pkg/types"
)

// Positions of the queries returned by Generate.
const (
	SelectPlain = iota
	SelectIndexed
	JoinPlain
	JoinIndexed
)

// Positions of the queries returned by GenerateCross.
const (
	CrossPlain = iota
	CrossIndexed
)

// IntSentinel is never produced by the integer generator, which counts from 1.
const IntSentinel = "-1"

// Char16Sentinel fills a char(16) column but is never generated in practice.
const Char16Sentinel = "'aaaaaaaaaaaaaaaa'"

// Generator produces query strings for one dialect.
type Generator struct {
	dialect *dialect.Dialect
}

// NewGenerator creates a Generator for the dialect.
func NewGenerator(d *dialect.Dialect) *Generator {
	return &Generator{dialect: d}
}

// Generate returns the four queries of a same-type column pairing on table:
// select on a, select on b, self-join on a, self-join on b. Pairings with no
// predicate fail with an unrecognized-pairing error and no queries.
func (g *Generator) Generate(table string, a, b types.Column) ([]string, error) {
	if a.Type != b.Type {
		return nil, berrors.NewPairingError(fmt.Sprintf("%s(%s) with %s(%s)", a.Name, a.Type, b.Name, b.Type))
	}

	where, join, err := g.predicates(a.Type)
	if err != nil {
		return nil, err
	}

	return []string{
		fmt.Sprintf("select * from %s where %s", table, where(a.Name)),
		fmt.Sprintf("select * from %s where %s", table, where(b.Name)),
		fmt.Sprintf("select * from %s a join %s b on %s", table, table, join(a.Name)),
		fmt.Sprintf("select * from %s a join %s b on %s", table, table, join(b.Name)),
	}, nil
}

// GenerateCross returns the point-in-polygon containment joins between a
// point table and a polygon table: one over the plain column pair and one
// over the indexed column pair.
func (g *Generator) GenerateCross(points types.Entity, polygons types.Entity) ([]string, error) {
	pp, pn := points.Plain(), points.Indexed()
	yp, yn := polygons.Plain(), polygons.Indexed()

	if pp.Type != types.Point || pn.Type != types.Point || yp.Type != types.Polygon || yn.Type != types.Polygon {
		return nil, berrors.NewPairingError(fmt.Sprintf("cross join of %s(%s) with %s(%s)",
			points.Name, pp.Type, polygons.Name, yp.Type))
	}
	if g.dialect.Spatial == nil {
		return nil, berrors.NewPairingError(fmt.Sprintf("%s has no containment predicate", g.dialect.Name))
	}

	contains := g.dialect.Spatial.Contains
	head := fmt.Sprintf("select * from %s a join %s b on ", points.Name, polygons.Name)
	return []string{
		head + fmt.Sprintf(contains, yp.Name, pp.Name),
		head + fmt.Sprintf(contains, yn.Name, pn.Name),
	}, nil
}

// GenerateID returns the identifier lookup query for an identifier entity.
func (g *Generator) GenerateID(table string, t types.ColumnType) (string, error) {
	sentinel, ok := g.dialect.IDSentinels[t]
	if !ok {
		return "", berrors.NewPairingError(fmt.Sprintf("%s has no %s identifier lookup", g.dialect.Name, t))
	}
	return fmt.Sprintf("select * from %s where id = %s", table, sentinel), nil
}

type predicate func(column string) string

func (g *Generator) predicates(t types.ColumnType) (where, join predicate, err error) {
	equalsJoin := func(col string) string { return fmt.Sprintf("a.%s = b.%s", col, col) }
	equals := func(value string) predicate {
		return func(col string) string { return fmt.Sprintf("%s = %s", col, value) }
	}
	spatial := func(selectTmpl, joinTmpl string) (predicate, predicate) {
		return func(col string) string { return fmt.Sprintf(selectTmpl, col) },
			func(col string) string { return fmt.Sprintf(joinTmpl, col, col) }
	}

	switch t {
	case types.Integer:
		return equals(IntSentinel), equalsJoin, nil
	case types.Text:
		return equals(g.dialect.TextSentinel), equalsJoin, nil
	case types.Char16:
		return equals(Char16Sentinel), equalsJoin, nil
	case types.Point:
		if g.dialect.Spatial == nil {
			break
		}
		where, join = spatial(g.dialect.Spatial.PointSelect, g.dialect.Spatial.PointJoin)
		return where, join, nil
	case types.Polygon:
		if g.dialect.Spatial == nil {
			break
		}
		where, join = spatial(g.dialect.Spatial.PolygonSelect, g.dialect.Spatial.PolygonJoin)
		return where, join, nil
	case types.UUID, types.Binary:
	}

	return nil, nil, berrors.NewPairingError(fmt.Sprintf("no %s predicate for %s pairing", g.dialect.Name, t))
}
