package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/govalues/money"
)

// Kind is the direction of a transaction or the family of a category.
type Kind string

const (
	// KindIncome increases the account balance.
	KindIncome Kind = "income"
	// KindExpense decreases the account balance.
	KindExpense Kind = "expense"
	// KindTransfer exists in the schema but has no defined balance effect.
	KindTransfer Kind = "transfer"
)

// ParseKind maps s case-insensitively onto a known Kind.
func ParseKind(s string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindIncome:
		return KindIncome, true
	case KindExpense:
		return KindExpense, true
	case KindTransfer:
		return KindTransfer, true
	}
	return "", false
}

// AccountType enumerates the kinds of accounts a user can hold.
type AccountType string

const (
	AccountTypeCash       AccountType = "cash"
	AccountTypeBank       AccountType = "bank"
	AccountTypeEWallet    AccountType = "e_wallet"
	AccountTypeCreditCard AccountType = "credit_card"
)

// Valid reports whether t is one of the fixed account types.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeCash, AccountTypeBank, AccountTypeEWallet, AccountTypeCreditCard:
		return true
	}
	return false
}

// User captures the owner of ledger data.
type User struct {
	ID    uuid.UUID
	Email *string
}

// Account holds a running balance in a single currency.
type Account struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Name     string
	Type     AccountType
	Currency string
	// InitialBalance is the opening balance; Balance = InitialBalance + Σincome − Σexpense.
	InitialBalance money.Amount
	Balance        money.Amount
	// Active is false once the account is soft-deactivated.
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Category classifies transactions and scopes budgets.
// A category without an owner is a system-wide default.
type Category struct {
	ID       uuid.UUID
	UserID   uuid.NullUUID
	Name     string
	Kind     Kind
	ParentID uuid.NullUUID
}

// System reports whether the category is a shared default.
func (c Category) System() bool { return !c.UserID.Valid }

// VisibleTo reports whether userID may reference the category.
func (c Category) VisibleTo(userID uuid.UUID) bool {
	return !c.UserID.Valid || c.UserID.UUID == userID
}

// Transaction is a single income or expense recorded against an account.
type Transaction struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	AccountID   uuid.UUID
	CategoryID  uuid.NullUUID
	Amount      money.Amount
	Kind        Kind
	Description string
	Location    string
	OccurredAt  time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TransactionFilter narrows transaction listings. From is inclusive, To exclusive.
type TransactionFilter struct {
	AccountID  uuid.NullUUID
	CategoryID uuid.NullUUID
	Kind       Kind
	From       *time.Time
	To         *time.Time
}

// Match reports whether t passes the filter.
func (f TransactionFilter) Match(t Transaction) bool {
	if f.AccountID.Valid && t.AccountID != f.AccountID.UUID {
		return false
	}
	if f.CategoryID.Valid && (!t.CategoryID.Valid || t.CategoryID.UUID != f.CategoryID.UUID) {
		return false
	}
	if f.Kind != "" && !strings.EqualFold(string(t.Kind), string(f.Kind)) {
		return false
	}
	if f.From != nil && t.OccurredAt.Before(*f.From) {
		return false
	}
	if f.To != nil && !t.OccurredAt.Before(*f.To) {
		return false
	}
	return true
}

// Budget caps spending in one category over a closed calendar period.
type Budget struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	CategoryID  uuid.UUID
	Amount      decimal.Decimal
	Period      DateRange
	IsRecurring bool
	// NotificationThreshold is a percentage of Amount (0-100).
	NotificationThreshold int
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// BudgetFilter narrows budget listings.
type BudgetFilter struct {
	CategoryID uuid.NullUUID
	// ActiveOn keeps budgets whose period contains the date.
	ActiveOn *Date
}

// Match reports whether b passes the filter.
func (f BudgetFilter) Match(b Budget) bool {
	if f.CategoryID.Valid && b.CategoryID != f.CategoryID.UUID {
		return false
	}
	if f.ActiveOn != nil && !b.Period.Contains(*f.ActiveOn) {
		return false
	}
	return true
}

// ExpenseWindow is one (category, half-open time range) slot of a grouped
// spend aggregation. Key identifies the slot in the result map.
type ExpenseWindow struct {
	Key        uuid.UUID
	CategoryID uuid.UUID
	From       time.Time
	To         time.Time
}
