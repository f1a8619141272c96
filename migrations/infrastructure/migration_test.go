package infrastructure

import "testing"

func TestAllStartsWithMigrationsSchema(t *testing.T) {
	all := All()
	if len(all) != 4 {
		t.Fatalf("expected 4 migrations, got %d", len(all))
	}
	if _, ok := all[0].(*MigrationsSchema); !ok {
		t.Fatalf("migrations table must be created first, got %T", all[0])
	}
	if _, ok := all[len(all)-1].(*CatalogSizes); !ok {
		t.Fatalf("sizes reference products and must go last, got %T", all[len(all)-1])
	}
}
