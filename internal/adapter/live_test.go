package adapter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/joho/godotenv"

	"github.com/arkilian/ndxbench/internal/dialect"
	"github.com/arkilian/ndxbench/internal/query"
	"github.com/arkilian/ndxbench/pkg/types"
)

// liveOptions returns connection options for a server backend from
// NDXBENCH_TEST_<BACKEND>_* variables, or skips the test when the backend is
// not configured.
func liveOptions(t *testing.T, backend string) Options {
	t.Helper()

	// Try loading .env from project root (../../.env relative to internal/adapter)
	_ = godotenv.Load("../../.env")

	prefix := "NDXBENCH_TEST_" + backend + "_"
	name := os.Getenv(prefix + "DB_NAME")
	if name == "" {
		t.Skipf("%sDB_NAME not set, skipping live %s test", prefix, backend)
	}
	port, _ := strconv.Atoi(os.Getenv(prefix + "DB_PORT"))

	return Options{
		Host:     os.Getenv(prefix + "DB_HOST"),
		Port:     port,
		Name:     name,
		User:     os.Getenv(prefix + "DB_USER"),
		Password: os.Getenv(prefix + "DB_PASSWORD"),
		Schema:   os.Getenv(prefix + "DB_SCHEMA"),
		Seed:     1,
	}
}

func TestLive_Postgres(t *testing.T) {
	testLiveBackend(t, dialect.Postgres, liveOptions(t, "POSTGRES"))
}

func TestLive_MySQL(t *testing.T) {
	testLiveBackend(t, dialect.MySQL, liveOptions(t, "MYSQL"))
}

// testLiveBackend loads, indexes, queries and clears every entity the
// backend supports, including the point-in-polygon cross join.
func testLiveBackend(t *testing.T, backend string, opts Options) {
	ctx := context.Background()
	db, err := Open(ctx, backend, opts, nil)
	if err != nil {
		t.Fatalf("Open(%s) failed: %v", backend, err)
	}
	defer db.Close()

	gen := query.NewGenerator(db.Dialect())
	entities := types.BaseEntities(true)

	for _, e := range entities {
		provision(t, db, e)
		if err := db.BulkLoad(ctx, e, 600); err != nil {
			t.Fatalf("BulkLoad(%s) failed: %v", e.Name, err)
		}
		if err := db.CreateIndex(ctx, e.Name, e.Indexed().Name, e.Indexed().Name, e.Spatial()); err != nil {
			t.Fatalf("CreateIndex(%s) failed: %v", e.Name, err)
		}

		queries, err := gen.Generate(e.Name, e.Plain(), e.Indexed())
		if err != nil {
			t.Fatalf("Generate(%s) failed: %v", e.Name, err)
		}
		for _, q := range queries {
			if _, err := db.TimeQuery(ctx, q, true); err != nil {
				t.Errorf("TimeQuery(%q) failed: %v", q, err)
			}
		}
	}

	cross, err := gen.GenerateCross(entities[2], entities[3])
	if err != nil {
		t.Fatalf("GenerateCross failed: %v", err)
	}
	for _, q := range cross {
		if _, err := db.TimeQuery(ctx, q, true); err != nil {
			t.Errorf("TimeQuery(%q) failed: %v", q, err)
		}
	}

	for _, e := range entities {
		if err := db.ClearTable(ctx, e.Name, e.Indexed().Name); err != nil {
			t.Fatalf("ClearTable(%s) failed: %v", e.Name, err)
		}
		n, err := db.CountRows(ctx, e.Name)
		if err != nil {
			t.Fatalf("CountRows failed: %v", err)
		}
		if n != 0 {
			t.Errorf("%s has %d rows after clear", e.Name, n)
		}
	}

	for _, typ := range db.Dialect().IDTypes() {
		e := types.IDEntity(typ)
		provision(t, db, e)
		if err := db.BulkLoad(ctx, e, 1); err != nil {
			t.Fatalf("BulkLoad(%s) failed: %v", e.Name, err)
		}
		q, err := gen.GenerateID(e.Name, typ)
		if err != nil {
			t.Fatalf("GenerateID(%s) failed: %v", e.Name, err)
		}
		if _, err := db.TimeQuery(ctx, q, true); err != nil {
			t.Errorf("TimeQuery(%q) failed: %v", q, err)
		}
	}
}

// BenchmarkBulkLoad measures batched insert throughput on the embedded backend.
func BenchmarkBulkLoad(b *testing.B) {
	ctx := context.Background()
	db, err := OpenSQLite(ctx, filepath.Join(b.TempDir(), "bench.db"), 1, nil)
	if err != nil {
		b.Fatal(err)
	}
	defer db.Close()

	for _, rows := range []int{500, 5000} {
		for _, e := range types.BaseEntities(false) {
			b.Run(fmt.Sprintf("%s/%d", e.Name, rows), func(b *testing.B) {
				if err := db.Provision(ctx, e); err != nil {
					b.Fatal(err)
				}

				b.ResetTimer()
				b.ReportAllocs()

				for i := 0; i < b.N; i++ {
					if err := db.BulkLoad(ctx, e, rows); err != nil {
						b.Fatal(err)
					}
					b.StopTimer()
					if err := db.ClearTable(ctx, e.Name, ""); err != nil {
						b.Fatal(err)
					}
					b.StartTimer()
				}

				b.ReportMetric(float64(rows*b.N)/b.Elapsed().Seconds(), "rows/sec")
			})
		}
	}
}

// BenchmarkTimeQuery measures the harness overhead around an indexed lookup.
func BenchmarkTimeQuery(b *testing.B) {
	ctx := context.Background()
	db, err := OpenSQLite(ctx, filepath.Join(b.TempDir(), "bench.db"), 1, nil)
	if err != nil {
		b.Fatal(err)
	}
	defer db.Close()

	e := types.BaseEntities(false)[0]
	if err := db.Provision(ctx, e); err != nil {
		b.Fatal(err)
	}
	if err := db.BulkLoad(ctx, e, 1000); err != nil {
		b.Fatal(err)
	}
	if err := db.CreateIndex(ctx, e.Name, "int_ndx", "int_ndx", false); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := db.TimeQuery(ctx, "select * from int_test where int_ndx = 500", true); err != nil {
			b.Fatal(err)
		}
	}
}
