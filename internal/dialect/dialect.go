// Package dialect describes how each supported backend spells the statements
// the benchmark issues: column type names, spatial predicates, index syntax,
// and generator expressions for identifier values.
//
// A Dialect is resolved once per run and passed to the data and query
// generators, so no code path needs to ask which backend it is talking to.
package dialect

import (
	"fmt"
	"strings"

	berrors "github.com/arkilian/ndxbench/internal/errors"
	"github.com/arkilian/ndxbench/pkg/types"
)

// Backend names.
const (
	Postgres = "postgres"
	MySQL    = "mysql"
	SQLite   = "sqlite"
)

// SpatialTemplates holds the fmt templates of the geometry predicates.
// Select templates take the column name; join templates take the column
// name twice (left alias a, right alias b).
type SpatialTemplates struct {
	PointSelect   string
	PointJoin     string
	PolygonSelect string
	PolygonJoin   string

	// Contains takes the polygon column of alias b and the point column of alias a.
	Contains string
}

// Dialect is the per-backend configuration value.
type Dialect struct {
	Name string

	// ColumnTypes maps a logical type to the backend column definition.
	// A missing entry means the backend cannot store the type.
	ColumnTypes map[types.ColumnType]string

	// TextSentinel is a string literal never produced by the data generator.
	TextSentinel string

	// Spatial is nil when the backend has no geometry support.
	Spatial *SpatialTemplates

	// PointLiteral and PolygonLiteral build geometry values from WKT.
	PointLiteral   func(wkt string) string
	PolygonLiteral func(wkt string) string

	// IDValues are the per-row generator expressions for identifier types
	// the backend produces itself. Types absent here are generated client-side.
	IDValues map[types.ColumnType]string

	// IDSentinels are right-hand sides of the identifier lookup predicate.
	IDSentinels map[types.ColumnType]string

	// SpatialIndex is the create statement template for geometry indexes:
	// index name, table, column.
	SpatialIndex string

	// DropIndex is the drop statement template: index name, table.
	DropIndex string

	// Setup statements run once after connecting.
	Setup []string
}

// For returns the dialect of the named backend.
func For(backend string) (*Dialect, error) {
	switch strings.ToLower(backend) {
	case Postgres, "postgresql", "pg":
		return NewPostgres(), nil
	case MySQL:
		return NewMySQL(), nil
	case SQLite, "sqlite3":
		return NewSQLite(), nil
	default:
		return nil, berrors.NewValidationError(berrors.CodeInvalidConfig,
			fmt.Sprintf("unknown backend %q (must be postgres, mysql, or sqlite)", backend))
	}
}

// NewPostgres returns the PostGIS-enabled PostgreSQL dialect.
func NewPostgres() *Dialect {
	return &Dialect{
		Name: Postgres,
		ColumnTypes: map[types.ColumnType]string{
			types.Integer: "int",
			types.Text:    "text",
			types.Char16:  "char(16)",
			types.Point:   "geometry(point, 4326)",
			types.Polygon: "geometry(polygon, 4326)",
			types.UUID:    "uuid",
			types.Binary:  "bytea",
		},
		TextSentinel: "'a'",
		Spatial: &SpatialTemplates{
			PointSelect:   "st_dwithin('0101000020E6100000C8A6504D69534940ACCE10014CF562C0'::geometry, %s, 10)",
			PointJoin:     "st_dwithin(a.%s, b.%s, 10)",
			PolygonSelect: "st_overlaps(st_setsrid('POLYGON((30 10, 40 40, 20 40, 10 20, 30 10))'::geometry, 4326), %s)",
			PolygonJoin:   "st_overlaps(a.%s, b.%s)",
			Contains:      "st_contains(b.%s, a.%s)",
		},
		PointLiteral: func(wkt string) string {
			return fmt.Sprintf("st_geomfromtext('%s', 4326)", wkt)
		},
		PolygonLiteral: func(wkt string) string {
			return fmt.Sprintf("st_geomfromtext('%s', 4326)", wkt)
		},
		IDValues: map[types.ColumnType]string{
			types.UUID:   "gen_random_uuid()",
			types.Binary: "gen_random_bytes(32)",
		},
		IDSentinels: map[types.ColumnType]string{
			types.Integer: "-1",
			types.Char16:  "'aaaaaaaaaaaaaaaa'",
			types.UUID:    "gen_random_uuid()",
			types.Binary:  "gen_random_bytes(32)",
		},
		SpatialIndex: "create index %s on %s using GIST (%s)",
		DropIndex:    "drop index %s",
		Setup: []string{
			"create extension if not exists pgcrypto",
			"create extension if not exists postgis",
		},
	}
}

// NewMySQL returns the MySQL 8 dialect.
func NewMySQL() *Dialect {
	return &Dialect{
		Name: MySQL,
		ColumnTypes: map[types.ColumnType]string{
			types.Integer: "int",
			types.Text:    "char(36)",
			types.Char16:  "char(16)",
			types.Point:   "point not null srid 4326",
			types.Polygon: "polygon not null srid 4326",
			types.UUID:    "binary(16)",
		},
		TextSentinel: "'" + strings.Repeat("a", 36) + "'",
		Spatial: &SpatialTemplates{
			PointSelect:   "st_distance_sphere(st_geomfromtext('POINT(0 0)', 4326), %s) < 10",
			PointJoin:     "st_distance_sphere(a.%s, b.%s) < 10",
			PolygonSelect: "st_overlaps(%s, st_geomfromtext('POLYGON((30 10, 40 40, 20 40, 10 20, 30 10))', 4326))",
			PolygonJoin:   "st_overlaps(a.%s, b.%s)",
			Contains:      "st_contains(b.%s, a.%s)",
		},
		PointLiteral: func(wkt string) string {
			return fmt.Sprintf("st_geomfromtext('%s', 4326)", wkt)
		},
		PolygonLiteral: func(wkt string) string {
			return fmt.Sprintf("st_geomfromtext('%s', 4326)", wkt)
		},
		IDValues: map[types.ColumnType]string{
			types.UUID: "unhex(replace(uuid(),'-',''))",
		},
		IDSentinels: map[types.ColumnType]string{
			types.Integer: "-1",
			types.Char16:  "'aaaaaaaaaaaaaaaa'",
			types.UUID:    "unhex(replace(uuid(),'-',''))",
		},
		SpatialIndex: "create spatial index %s on %s (%s)",
		DropIndex:    "drop index %s on %s",
	}
}

// NewSQLite returns the embedded SQLite dialect. SQLite has no geometry
// support.
//
// The uuid and binary identifier entries differ from the other backends,
// which generate both with server-side expressions. UUID has no IDValues
// entry here: datagen fills it client-side with google/uuid text literals.
// Binary uses randomblob(32). Both are still reported for SQLite rather than
// left null.
func NewSQLite() *Dialect {
	return &Dialect{
		Name: SQLite,
		ColumnTypes: map[types.ColumnType]string{
			types.Integer: "int",
			types.Text:    "char(36)",
			types.Char16:  "char(16)",
			types.UUID:    "char(36)",
			types.Binary:  "blob",
		},
		TextSentinel: "'" + strings.Repeat("a", 36) + "'",
		IDValues: map[types.ColumnType]string{
			types.Binary: "randomblob(32)",
		},
		IDSentinels: map[types.ColumnType]string{
			types.Integer: "-1",
			types.Char16:  "'aaaaaaaaaaaaaaaa'",
			types.UUID:    "'00000000-0000-0000-0000-000000000000'",
			types.Binary:  "randomblob(32)",
		},
		DropIndex: "drop index %s",
	}
}

// SupportsSpatial reports whether geometry columns and spatial indexes are available.
func (d *Dialect) SupportsSpatial() bool {
	return d.Spatial != nil && d.SpatialIndex != ""
}

// ColumnType returns the backend column definition for t.
func (d *Dialect) ColumnType(t types.ColumnType) (string, error) {
	name, ok := d.ColumnTypes[t]
	if !ok {
		return "", berrors.NewUnsupportedError(fmt.Sprintf("%s cannot store %s columns", d.Name, t))
	}
	return name, nil
}

// Supports reports whether the backend can store columns of type t.
func (d *Dialect) Supports(t types.ColumnType) bool {
	_, ok := d.ColumnTypes[t]
	return ok
}

// IDTypes returns the identifier representations the backend can compare,
// in report order.
func (d *Dialect) IDTypes() []types.ColumnType {
	var out []types.ColumnType
	for _, t := range types.IDTypes() {
		if _, ok := d.IDSentinels[t]; ok && d.Supports(t) {
			out = append(out, t)
		}
	}
	return out
}

// CreateTable returns the create statement for an entity.
func (d *Dialect) CreateTable(e types.Entity) (string, error) {
	defs := make([]string, 0, len(e.Columns))
	for _, c := range e.Columns {
		if !c.Type.Valid() {
			return "", berrors.NewValidationError(berrors.CodeInvalidConfig,
				fmt.Sprintf("%s.%s has unknown type %s", e.Name, c.Name, c.Type))
		}
		typ, err := d.ColumnType(c.Type)
		if err != nil {
			return "", err
		}
		defs = append(defs, c.Name+" "+typ)
	}
	return fmt.Sprintf("create table %s (%s)", e.Name, strings.Join(defs, ", ")), nil
}

// DropTable returns the idempotent drop statement for a table.
func (d *Dialect) DropTable(table string) string {
	return "drop table if exists " + table
}

// CreateIndex returns the create statement for an index on a single column.
// Scalar columns get a unique index; spatial columns get the backend's
// spatial index, which fails when the backend has none.
func (d *Dialect) CreateIndex(table, index, column string, spatial bool) (string, error) {
	if !spatial {
		return fmt.Sprintf("create unique index %s on %s (%s)", index, table, column), nil
	}
	if !d.SupportsSpatial() {
		return "", berrors.NewUnsupportedError(fmt.Sprintf("%s has no spatial index", d.Name))
	}
	return fmt.Sprintf(d.SpatialIndex, index, table, column), nil
}

// DropIndexStatement returns the drop statement for an index on table.
func (d *Dialect) DropIndexStatement(index, table string) string {
	if strings.Count(d.DropIndex, "%s") == 2 {
		return fmt.Sprintf(d.DropIndex, index, table)
	}
	return fmt.Sprintf(d.DropIndex, index)
}
