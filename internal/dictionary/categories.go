// Package dictionary holds the curated catalog of system-wide default
// categories visible to every user.
package dictionary

import (
	"strings"

	"github.com/google/uuid"

	"github.com/tinoosan/finance/internal/ledger"
)

// namespace derives stable ids so every store seeds the same category ids.
var namespace = uuid.MustParse("6f1c2a9e-3b7d-4e0a-9c55-1d2f7a8b9c01")

type CategoryDef struct {
	Code   string      `json:"code"`
	Label  string      `json:"label"`
	Kind   ledger.Kind `json:"kind"`
	Parent string      `json:"parent,omitempty"`
}

// Parents precede their children.
var curated = []CategoryDef{
	{Code: "salary", Label: "Salary", Kind: ledger.KindIncome},
	{Code: "interest", Label: "Interest", Kind: ledger.KindIncome},
	{Code: "refund", Label: "Refund", Kind: ledger.KindIncome},
	{Code: "other_income", Label: "Other Income", Kind: ledger.KindIncome},

	{Code: "food", Label: "Food", Kind: ledger.KindExpense},
	{Code: "groceries", Label: "Groceries", Kind: ledger.KindExpense, Parent: "food"},
	{Code: "eating_out", Label: "Eating Out", Kind: ledger.KindExpense, Parent: "food"},
	{Code: "housing", Label: "Housing", Kind: ledger.KindExpense},
	{Code: "rent", Label: "Rent", Kind: ledger.KindExpense, Parent: "housing"},
	{Code: "utilities", Label: "Utilities", Kind: ledger.KindExpense, Parent: "housing"},
	{Code: "transport", Label: "Transport", Kind: ledger.KindExpense},
	{Code: "shopping", Label: "Shopping", Kind: ledger.KindExpense},
	{Code: "entertainment", Label: "Entertainment", Kind: ledger.KindExpense},
	{Code: "health", Label: "Health", Kind: ledger.KindExpense},
	{Code: "general", Label: "General", Kind: ledger.KindExpense},
}

// IDFor returns the stable id of a catalog code.
func IDFor(code string) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte(strings.ToLower(code)))
}

// Defs returns the catalog, optionally filtered by kind.
func Defs(kind *ledger.Kind) []CategoryDef {
	if kind == nil {
		out := make([]CategoryDef, len(curated))
		copy(out, curated)
		return out
	}
	out := make([]CategoryDef, 0)
	for _, d := range curated {
		if d.Kind == *kind {
			out = append(out, d)
		}
	}
	return out
}

// DefaultCategories materializes the catalog as owner-less categories.
func DefaultCategories() []ledger.Category {
	out := make([]ledger.Category, 0, len(curated))
	for _, d := range curated {
		c := ledger.Category{ID: IDFor(d.Code), Name: d.Label, Kind: d.Kind}
		if d.Parent != "" {
			c.ParentID = uuid.NullUUID{UUID: IDFor(d.Parent), Valid: true}
		}
		out = append(out, c)
	}
	return out
}
