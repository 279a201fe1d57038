package dictionary

import (
	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/finance/internal/ledger"
)

// DevAccounts returns the accounts seeded for a development user (DEV_SEED).
func DevAccounts(userID uuid.UUID) []ledger.Account {
	cash := money.MustParseAmount("GBP", "100.00")
	bank := money.MustParseAmount("GBP", "1000.00")
	return []ledger.Account{
		{ID: uuid.New(), UserID: userID, Name: "Cash", Type: ledger.AccountTypeCash, Currency: "GBP", InitialBalance: cash, Balance: cash, Active: true},
		{ID: uuid.New(), UserID: userID, Name: "Current Account", Type: ledger.AccountTypeBank, Currency: "GBP", InitialBalance: bank, Balance: bank, Active: true},
	}
}
