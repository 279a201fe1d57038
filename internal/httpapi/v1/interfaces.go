package v1

import (
	"context"

	"github.com/google/uuid"

	"github.com/tinoosan/finance/internal/ledger"
	"github.com/tinoosan/finance/internal/service/account"
	"github.com/tinoosan/finance/internal/service/budget"
	"github.com/tinoosan/finance/internal/service/spend"
	"github.com/tinoosan/finance/internal/service/stats"
	"github.com/tinoosan/finance/internal/service/transaction"
)

// CategoryReader lists the categories visible to a user (own + system defaults).
type CategoryReader interface {
	ListCategories(ctx context.Context, userID uuid.UUID) ([]ledger.Category, error)
}

// ReadyChecker is optionally implemented by stores to indicate readiness.
type ReadyChecker interface {
	Ready(ctx context.Context) error
}

// Store composes everything the API needs from persistence.
// It is satisfied by both the in-memory and the Postgres store.
type Store interface {
	transaction.Repo
	budget.Repo
	spend.Repo
	stats.Repo
	account.Repo
	account.Writer
	CategoryReader
	ReadyChecker
}
