package spend

import "github.com/govalues/decimal"

// Figures are the derived, never-stored values of a budget.
type Figures struct {
	Spent     decimal.Decimal
	Remaining decimal.Decimal
	// Progress is spent/ceiling × 100 rounded to 2 places, 0 when ceiling <= 0.
	Progress decimal.Decimal
}

// Derive computes remaining and progress for a ceiling and its spend.
// Remaining goes negative once spend exceeds the ceiling.
func Derive(ceiling, spent decimal.Decimal) (Figures, error) {
	remaining, err := ceiling.Sub(spent)
	if err != nil {
		return Figures{}, err
	}
	progress := decimal.Zero
	if ceiling.IsPos() {
		if progress, err = Percent(spent, ceiling); err != nil {
			return Figures{}, err
		}
	}
	return Figures{Spent: spent, Remaining: remaining, Progress: progress}, nil
}

// Percent returns num/den × 100 rounded to 2 places, and 0 when den is 0.
func Percent(num, den decimal.Decimal) (decimal.Decimal, error) {
	if den.IsZero() {
		return decimal.Zero, nil
	}
	q, err := num.Quo(den)
	if err != nil {
		return decimal.Decimal{}, err
	}
	p, err := q.Mul(decimal.Hundred)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return p.Round(2), nil
}
