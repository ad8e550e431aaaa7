// Package types provides the core data types shared by the ndxbench packages:
// logical column types, the entities under test, and the report schema.
package types

import "fmt"

// ColumnType is the logical type of a benchmarked column. Backend type names
// are resolved from it by the active dialect.
type ColumnType int

const (
	// Integer holds sequential integers starting at 1.
	Integer ColumnType = iota + 1

	// Text holds random 36-character alphanumeric strings.
	Text

	// Char16 holds random 16-character alphanumeric strings (identifier tests).
	Char16

	// Point holds point geometries.
	Point

	// Polygon holds closed 4-vertex polygon geometries.
	Polygon

	// UUID holds backend generated UUIDs (identifier tests).
	UUID

	// Binary holds backend generated random bytes (identifier tests).
	Binary
)

var columnTypeNames = map[ColumnType]string{
	Integer: "integer",
	Text:    "text",
	Char16:  "char16",
	Point:   "point",
	Polygon: "polygon",
	UUID:    "uuid",
	Binary:  "binary",
}

// String returns the logical name of the type.
func (t ColumnType) String() string {
	if name, ok := columnTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ColumnType(%d)", int(t))
}

// Valid reports whether t is one of the declared column types.
func (t ColumnType) Valid() bool {
	_, ok := columnTypeNames[t]
	return ok
}

// Spatial reports whether the type holds geometry.
func (t ColumnType) Spatial() bool {
	return t == Point || t == Polygon
}

// Column is a named column of an entity.
type Column struct {
	Name string
	Type ColumnType
}

// Entity is a synthetic table exercised by the benchmark. Columns keep their
// declaration order, which is also the insert order.
type Entity struct {
	Name    string
	Columns []Column
}

// ID returns the identifier column, which is always the first column.
func (e Entity) ID() Column {
	if len(e.Columns) == 0 {
		return Column{}
	}
	return e.Columns[0]
}

// Plain returns the column measured without an index.
func (e Entity) Plain() Column {
	if len(e.Columns) < 2 {
		return Column{}
	}
	return e.Columns[1]
}

// Indexed returns the column that gets an index built before trials.
func (e Entity) Indexed() Column {
	if len(e.Columns) < 3 {
		return Column{}
	}
	return e.Columns[2]
}

// Spatial reports whether the measured columns hold geometry.
func (e Entity) Spatial() bool {
	return e.Plain().Type.Spatial()
}

// Entity names used in the report assembly.
const (
	IntEntity   = "int_test"
	StrEntity   = "str_test"
	PointEntity = "point_test"
	PolyEntity  = "poly_test"
)

// BaseEntities returns the plain-vs-indexed entities in measurement order.
// Geometry entities are included only when spatial is set.
func BaseEntities(spatial bool) []Entity {
	entities := []Entity{
		{Name: IntEntity, Columns: []Column{
			{Name: "id", Type: Integer},
			{Name: "int_plain", Type: Integer},
			{Name: "int_ndx", Type: Integer},
		}},
		{Name: StrEntity, Columns: []Column{
			{Name: "id", Type: Integer},
			{Name: "str_plain", Type: Text},
			{Name: "str_ndx", Type: Text},
		}},
	}
	if spatial {
		entities = append(entities,
			Entity{Name: PointEntity, Columns: []Column{
				{Name: "id", Type: Integer},
				{Name: "pt_plain", Type: Point},
				{Name: "pt_ndx", Type: Point},
			}},
			Entity{Name: PolyEntity, Columns: []Column{
				{Name: "id", Type: Integer},
				{Name: "poly_plain", Type: Polygon},
				{Name: "poly_ndx", Type: Polygon},
			}},
		)
	}
	return entities
}

// IDEntity returns the identifier-comparison entity for the given
// representation: an id column of that type plus an integer payload column.
func IDEntity(t ColumnType) Entity {
	return Entity{
		Name: "id_test_" + IDRepresentation(t),
		Columns: []Column{
			{Name: "id", Type: t},
			{Name: "num", Type: Integer},
		},
	}
}

// IDRepresentation returns the short name of an identifier representation
// as used in entity names.
func IDRepresentation(t ColumnType) string {
	switch t {
	case Integer:
		return "int"
	case UUID:
		return "uuid"
	case Binary:
		return "binary"
	case Char16:
		return "char"
	default:
		return t.String()
	}
}

// IDTypes lists every identifier representation in report order.
func IDTypes() []ColumnType {
	return []ColumnType{Integer, UUID, Binary, Char16}
}
