package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Balance is the optional account size a pro user records for position sizing.
type Balance struct {
	Amount decimal.Decimal
	Set    bool
}

// ParseBalance accepts free text such as "$10,000" or "2500.50". Blank input
// leaves the balance unset.
func ParseBalance(v string) (Balance, error) {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "", "_", "").Replace(strings.TrimSpace(v))
	if cleaned == "" {
		return Balance{}, nil
	}
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return Balance{}, fmt.Errorf("%w: balance %q is not a number", ErrInvalidInput, v)
	}
	if amount.IsNegative() {
		return Balance{}, fmt.Errorf("%w: balance cannot be negative", ErrInvalidInput)
	}
	return Balance{Amount: amount, Set: true}, nil
}

// String renders the amount as sent to the backend, or "" when unset.
func (b Balance) String() string {
	if !b.Set {
		return ""
	}
	return b.Amount.String()
}

// PriceLevel is a trade level returned by the analysis. Models sometimes answer
// with ranges or annotated text, so the raw text is kept when it is not a number.
type PriceLevel struct {
	Value decimal.NullDecimal
	Raw   string
}

// ParsePriceLevel never fails; unparseable input is kept verbatim.
func ParsePriceLevel(raw string) PriceLevel {
	raw = strings.TrimSpace(raw)
	cleaned := strings.NewReplacer("$", "", ",", "").Replace(raw)
	if d, err := decimal.NewFromString(cleaned); err == nil {
		return PriceLevel{Value: decimal.NullDecimal{Decimal: d, Valid: true}, Raw: raw}
	}
	return PriceLevel{Raw: raw}
}

func (p PriceLevel) String() string {
	if p.Value.Valid {
		return p.Value.Decimal.String()
	}
	return p.Raw
}

// IsZero reports whether the level carries no information at all.
func (p PriceLevel) IsZero() bool {
	return !p.Value.Valid && p.Raw == ""
}

// MarshalJSON emits a JSON number for numeric levels and a string otherwise.
func (p PriceLevel) MarshalJSON() ([]byte, error) {
	if p.Value.Valid {
		return []byte(p.Value.Decimal.String()), nil
	}
	return json.Marshal(p.Raw)
}
