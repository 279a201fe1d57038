package postgres

import (
	"github.com/tinoosan/finance/internal/service/account"
	"github.com/tinoosan/finance/internal/service/budget"
	"github.com/tinoosan/finance/internal/service/spend"
	"github.com/tinoosan/finance/internal/service/stats"
	"github.com/tinoosan/finance/internal/service/transaction"
	"github.com/tinoosan/finance/internal/storage"
)

var (
	_ storage.Beginner = (*Store)(nil)
	_ storage.Tx       = (*Tx)(nil)

	_ transaction.Repo = (*Store)(nil)
	_ budget.Repo      = (*Store)(nil)
	_ spend.Repo       = (*Store)(nil)
	_ stats.Repo       = (*Store)(nil)
	_ account.Repo     = (*Store)(nil)
	_ account.Writer   = (*Store)(nil)
)
