package query

import (
	"errors"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/arkilian/ndxbench/internal/dialect"
	berrors "github.com/arkilian/ndxbench/internal/errors"
	"github.com/arkilian/ndxbench/pkg/types"
)

var dialects = []*dialect.Dialect{dialect.NewPostgres(), dialect.NewMySQL(), dialect.NewSQLite()}

func supported(d *dialect.Dialect, a, b types.ColumnType) bool {
	if a != b {
		return false
	}
	switch a {
	case types.Integer, types.Text, types.Char16:
		return true
	case types.Point, types.Polygon:
		return d.Spatial != nil
	default:
		return false
	}
}

func TestProperty_GenerateCoverage(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("supported pairings yield four queries, others an unrecognized-pairing error", prop.ForAll(
		func(di, ta, tb int) bool {
			d := dialects[di]
			a := types.Column{Name: "col_a", Type: types.ColumnType(ta)}
			b := types.Column{Name: "col_b", Type: types.ColumnType(tb)}

			queries, err := NewGenerator(d).Generate("t", a, b)
			if supported(d, a.Type, b.Type) {
				if err != nil || len(queries) != 4 {
					return false
				}
				for _, q := range queries {
					if q == "" {
						return false
					}
				}
				return true
			}
			return queries == nil && errors.Is(err, berrors.ErrUnrecognizedPairing)
		},
		gen.IntRange(0, len(dialects)-1),
		gen.IntRange(1, 7),
		gen.IntRange(1, 7),
	))

	properties.TestingRun(t)
}

func TestGenerate_IntegerSentinel(t *testing.T) {
	for _, d := range dialects {
		entity := types.BaseEntities(false)[0]
		queries, err := NewGenerator(d).Generate(entity.Name, entity.Plain(), entity.Indexed())
		if err != nil {
			t.Fatalf("%s: Generate failed: %v", d.Name, err)
		}

		want := []string{
			"select * from int_test where int_plain = -1",
			"select * from int_test where int_ndx = -1",
			"select * from int_test a join int_test b on a.int_plain = b.int_plain",
			"select * from int_test a join int_test b on a.int_ndx = b.int_ndx",
		}
		for i := range want {
			if queries[i] != want[i] {
				t.Errorf("%s: query %d = %q, want %q", d.Name, i, queries[i], want[i])
			}
		}
	}
}

func TestGenerate_Text(t *testing.T) {
	entity := types.BaseEntities(false)[1]

	queries, err := NewGenerator(dialect.NewPostgres()).Generate(entity.Name, entity.Plain(), entity.Indexed())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if queries[SelectPlain] != "select * from str_test where str_plain = 'a'" {
		t.Errorf("unexpected postgres text select %q", queries[SelectPlain])
	}

	queries, err = NewGenerator(dialect.NewMySQL()).Generate(entity.Name, entity.Plain(), entity.Indexed())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	want := "select * from str_test where str_ndx = '" + strings.Repeat("a", 36) + "'"
	if queries[SelectIndexed] != want {
		t.Errorf("got %q, want %q", queries[SelectIndexed], want)
	}
}

func TestGenerate_Spatial(t *testing.T) {
	entities := types.BaseEntities(true)
	point, poly := entities[2], entities[3]

	queries, err := NewGenerator(dialect.NewPostgres()).Generate(point.Name, point.Plain(), point.Indexed())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !strings.Contains(queries[SelectPlain], "st_dwithin(") || !strings.HasSuffix(queries[SelectPlain], "pt_plain, 10)") {
		t.Errorf("unexpected point select %q", queries[SelectPlain])
	}
	if queries[JoinIndexed] != "select * from point_test a join point_test b on st_dwithin(a.pt_ndx, b.pt_ndx, 10)" {
		t.Errorf("unexpected point join %q", queries[JoinIndexed])
	}

	queries, err = NewGenerator(dialect.NewMySQL()).Generate(poly.Name, poly.Plain(), poly.Indexed())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !strings.HasPrefix(queries[SelectIndexed], "select * from poly_test where st_overlaps(poly_ndx, ") {
		t.Errorf("unexpected polygon select %q", queries[SelectIndexed])
	}
	if queries[JoinPlain] != "select * from poly_test a join poly_test b on st_overlaps(a.poly_plain, b.poly_plain)" {
		t.Errorf("unexpected polygon join %q", queries[JoinPlain])
	}
}

func TestGenerateCross(t *testing.T) {
	entities := types.BaseEntities(true)
	point, poly := entities[2], entities[3]

	queries, err := NewGenerator(dialect.NewPostgres()).GenerateCross(point, poly)
	if err != nil {
		t.Fatalf("GenerateCross failed: %v", err)
	}
	if len(queries) != 2 {
		t.Fatalf("expected 2 queries, got %d", len(queries))
	}
	if queries[CrossPlain] != "select * from point_test a join poly_test b on st_contains(b.poly_plain, a.pt_plain)" {
		t.Errorf("unexpected plain cross join %q", queries[CrossPlain])
	}
	if queries[CrossIndexed] != "select * from point_test a join poly_test b on st_contains(b.poly_ndx, a.pt_ndx)" {
		t.Errorf("unexpected indexed cross join %q", queries[CrossIndexed])
	}

	// Reversed roles are not a recognized pairing.
	if _, err := NewGenerator(dialect.NewPostgres()).GenerateCross(poly, point); !errors.Is(err, berrors.ErrUnrecognizedPairing) {
		t.Errorf("expected unrecognized pairing, got %v", err)
	}
	if _, err := NewGenerator(dialect.NewSQLite()).GenerateCross(point, poly); !errors.Is(err, berrors.ErrUnrecognizedPairing) {
		t.Errorf("expected unrecognized pairing on sqlite, got %v", err)
	}
}

func TestGenerateID(t *testing.T) {
	tests := []struct {
		d    *dialect.Dialect
		typ  types.ColumnType
		want string
	}{
		{dialect.NewPostgres(), types.Integer, "select * from id_test_int where id = -1"},
		{dialect.NewPostgres(), types.UUID, "select * from id_test_uuid where id = gen_random_uuid()"},
		{dialect.NewPostgres(), types.Binary, "select * from id_test_binary where id = gen_random_bytes(32)"},
		{dialect.NewPostgres(), types.Char16, "select * from id_test_char where id = 'aaaaaaaaaaaaaaaa'"},
		{dialect.NewMySQL(), types.UUID, "select * from id_test_uuid where id = unhex(replace(uuid(),'-',''))"},
		{dialect.NewSQLite(), types.UUID, "select * from id_test_uuid where id = '00000000-0000-0000-0000-000000000000'"},
	}

	for _, tt := range tests {
		got, err := NewGenerator(tt.d).GenerateID(types.IDEntity(tt.typ).Name, tt.typ)
		if err != nil {
			t.Fatalf("%s/%s: GenerateID failed: %v", tt.d.Name, tt.typ, err)
		}
		if got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
	}

	if _, err := NewGenerator(dialect.NewMySQL()).GenerateID("id_test_binary", types.Binary); !errors.Is(err, berrors.ErrUnrecognizedPairing) {
		t.Errorf("expected unrecognized pairing for mysql binary ids, got %v", err)
	}
}
