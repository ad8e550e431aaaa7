// Package datagen produces synthetic column values for bulk loading. Every
// value is an SQL literal or expression ready to be placed in a multi-row
// insert statement.
package datagen

import (
	"fmt"
	mrand "math/rand"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/arkilian/ndxbench/internal/dialect"
	berrors "github.com/arkilian/ndxbench/internal/errors"
	"github.com/arkilian/ndxbench/pkg/types"
)

// Lengths of the generated strings.
const (
	TextLength   = 36
	Char16Length = 16
)

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Generator produces values for one backend dialect. It is not safe for
// concurrent use.
type Generator struct {
	dialect *dialect.Dialect
	rng     *mrand.Rand
}

// New creates a Generator seeded with seed.
func New(d *dialect.Dialect, seed int64) *Generator {
	return &Generator{
		dialect: d,
		rng:     mrand.New(mrand.NewSource(seed)),
	}
}

// Values returns n values of type t. Integers count up from 1.
func (g *Generator) Values(t types.ColumnType, n int) ([]string, error) {
	if n < 0 {
		return nil, berrors.NewValidationError(berrors.CodeInvalidRunParams,
			fmt.Sprintf("negative row count %d", n))
	}
	if !g.dialect.Supports(t) {
		return nil, berrors.NewUnsupportedError(
			fmt.Sprintf("%s cannot generate %s values", g.dialect.Name, t))
	}

	values := make([]string, 0, n)

	if expr, ok := g.dialect.IDValues[t]; ok {
		for i := 0; i < n; i++ {
			values = append(values, expr)
		}
		return values, nil
	}

	switch t {
	case types.Integer:
		for i := 1; i <= n; i++ {
			values = append(values, strconv.Itoa(i))
		}
	case types.Text:
		for i := 0; i < n; i++ {
			values = append(values, quote(g.RandomString(TextLength)))
		}
	case types.Char16:
		for i := 0; i < n; i++ {
			values = append(values, quote(g.RandomString(Char16Length)))
		}
	case types.Point:
		for i := 0; i < n; i++ {
			values = append(values, g.dialect.PointLiteral(g.PointWKT()))
		}
	case types.Polygon:
		for i := 0; i < n; i++ {
			values = append(values, g.dialect.PolygonLiteral(g.PolygonWKT()))
		}
	case types.UUID:
		for i := 0; i < n; i++ {
			id, err := uuid.NewRandomFromReader(g.rng)
			if err != nil {
				return nil, berrors.NewInternalError("generate uuid", err)
			}
			values = append(values, quote(id.String()))
		}
	default:
		return nil, berrors.NewUnsupportedError(fmt.Sprintf("no generator for %s", t))
	}

	return values, nil
}

// RandomString returns an alphanumeric string of the given length.
func (g *Generator) RandomString(length int) string {
	var sb strings.Builder
	sb.Grow(length)
	for i := 0; i < length; i++ {
		sb.WriteByte(alphanumeric[g.rng.Intn(len(alphanumeric))])
	}
	return sb.String()
}

// PointWKT returns a random point with latitude first, within valid ranges.
func (g *Generator) PointWKT() string {
	lat, lon := g.coordinate()
	return fmt.Sprintf("POINT(%s %s)", formatFloat(lat), formatFloat(lon))
}

// PolygonWKT returns a random 4-vertex polygon closed on its first vertex.
func (g *Generator) PolygonWKT() string {
	var sb strings.Builder
	sb.WriteString("POLYGON((")
	var first string
	for i := 0; i < 4; i++ {
		lat, lon := g.coordinate()
		vertex := formatFloat(lat) + " " + formatFloat(lon)
		if i == 0 {
			first = vertex
		}
		sb.WriteString(vertex)
		sb.WriteString(", ")
	}
	sb.WriteString(first)
	sb.WriteString("))")
	return sb.String()
}

func (g *Generator) coordinate() (lat, lon float64) {
	lat = g.rng.Float64()*180 - 90
	lon = g.rng.Float64()*360 - 180
	return lat, lon
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func quote(s string) string {
	return "'" + s + "'"
}
