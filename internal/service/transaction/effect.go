package transaction

import (
	"fmt"
	"strings"

	"github.com/govalues/decimal"
	"github.com/govalues/money"

	"github.com/tinoosan/finance/internal/errs"
	"github.com/tinoosan/finance/internal/ledger"
)

// numeric(15,2): two fractional and thirteen integral digits.
const (
	maxScale        = 2
	maxIntegerDigit = 13
)

// ValidateAmount requires a positive value representable as numeric(15,2).
func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPos() {
		return errs.Invalid("amount", "must be greater than zero", errs.ErrInvalidAmount)
	}
	t := d.Trim(maxScale)
	if t.Scale() > maxScale {
		return errs.Invalid("amount", "at most 2 decimal places", errs.ErrInvalidAmount)
	}
	if t.Prec()-t.Scale() > maxIntegerDigit {
		return errs.Invalid("amount", "at most 15 digits", errs.ErrInvalidAmount)
	}
	return nil
}

// ParseKind accepts income or expense, case-insensitively. Transfer has no
// defined balance effect and is rejected.
func ParseKind(raw ledger.Kind) (ledger.Kind, error) {
	k, ok := ledger.ParseKind(string(raw))
	if !ok {
		return "", errs.Invalid("kind", fmt.Sprintf("unknown kind %q", raw), errs.ErrUnsupportedKind)
	}
	if k == ledger.KindTransfer {
		return "", errs.Invalid("kind", "transfer transactions are not supported", errs.ErrUnsupportedKind)
	}
	return k, nil
}

// apply adds the signed effect of (kind, amount) to balance:
// +amount for income, -amount for expense.
func apply(balance money.Amount, kind ledger.Kind, amount money.Amount) (money.Amount, error) {
	switch ledger.Kind(strings.ToLower(string(kind))) {
	case ledger.KindIncome:
		return balance.Add(amount)
	case ledger.KindExpense:
		return balance.Sub(amount)
	}
	return money.Amount{}, errs.Invalid("kind", fmt.Sprintf("no balance effect for %q", kind), errs.ErrUnsupportedKind)
}

// reverse undoes apply: income subtracts, expense adds back. Stored transfer
// rows never moved the balance, so reversing one leaves it unchanged.
func reverse(balance money.Amount, kind ledger.Kind, amount money.Amount) (money.Amount, error) {
	if ledger.Kind(strings.ToLower(string(kind))) == ledger.KindTransfer {
		return balance, nil
	}
	return apply(balance, kind, amount.Neg())
}

func toAmount(currency string, d decimal.Decimal) (money.Amount, error) {
	a, err := money.ParseAmount(currency, d.Trim(maxScale).String())
	if err != nil {
		return money.Amount{}, errs.Invalid("amount", err.Error(), errs.ErrInvalidAmount)
	}
	return a, nil
}
