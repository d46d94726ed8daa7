//go:build integration

package testhelpers

import (
	"context"
	"testing"
)

func TestTestDB_SalesSchema(t *testing.T) {
	testDB := GetTestDB(t)

	ctx := context.Background()

	// Eight sales tables plus golang-migrate's schema_migrations
	var tableCount int
	err := testDB.DB.QueryRow(ctx,
		"SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = 'public'").
		Scan(&tableCount)
	if err != nil {
		t.Fatalf("failed to count tables: %v", err)
	}

	if tableCount != 9 {
		t.Errorf("expected 9 tables in test schema, got %d", tableCount)
	}
}

func TestTestDB_FixtureData(t *testing.T) {
	testDB := GetTestDB(t)

	ctx := context.Background()

	tests := []struct {
		table    string
		expected int
	}{
		{"categorias", 4},
		{"productos", 5},
		{"vendedores", 3},
		{"ventas", 5},
	}

	for _, tt := range tests {
		var count int
		err := testDB.DB.QueryRow(ctx, "SELECT COUNT(*) FROM "+tt.table).Scan(&count)
		if err != nil {
			t.Errorf("failed to count %s: %v", tt.table, err)
			continue
		}
		if count != tt.expected {
			t.Errorf("%s: expected %d rows, got %d", tt.table, tt.expected, count)
		}
	}
}
