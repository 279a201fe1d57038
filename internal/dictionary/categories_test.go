package dictionary

import (
	"testing"

	"github.com/tinoosan/finance/internal/ledger"
)

func TestDefaultCategories_StableAndAcyclic(t *testing.T) {
	a := DefaultCategories()
	b := DefaultCategories()
	if len(a) != len(b) || len(a) == 0 {
		t.Fatalf("unexpected catalog sizes %d %d", len(a), len(b))
	}
	seen := map[string]bool{}
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Fatalf("id for %s not stable", a[i].Name)
		}
		if a[i].UserID.Valid {
			t.Fatalf("%s should be a system category", a[i].Name)
		}
		if a[i].ParentID.Valid && !seen[a[i].ParentID.UUID.String()] {
			t.Fatalf("%s references a parent that is not declared before it", a[i].Name)
		}
		seen[a[i].ID.String()] = true
	}
}

func TestDefs_FilterByKind(t *testing.T) {
	k := ledger.KindIncome
	for _, d := range Defs(&k) {
		if d.Kind != ledger.KindIncome {
			t.Fatalf("got %s in income filter", d.Code)
		}
	}
	if IDFor("Food") != IDFor("food") {
		t.Fatalf("IDFor should be case-insensitive")
	}
}
