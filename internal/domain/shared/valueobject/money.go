// Package valueobject holds the ledger's currency and money values.
package valueobject

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 code
type Currency string

const (
	MXN Currency = "MXN"
	USD Currency = "USD"
	EUR Currency = "EUR"
)

// DefaultCurrency is the ledger currency when none is configured
const DefaultCurrency = MXN

// MoneyScale is the number of decimal places amounts are stored and
// rounded to
const MoneyScale int32 = 2

// ErrCurrencyMismatch is returned by arithmetic across currencies
var ErrCurrencyMismatch = errors.New("currency mismatch")

// ParseCurrency upper-cases and validates a three letter code. An empty code
// yields DefaultCurrency.
func ParseCurrency(code string) (Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return DefaultCurrency, nil
	}
	notLetter := func(r rune) bool { return r < 'A' || r > 'Z' }
	if len(code) != 3 || strings.IndexFunc(code, notLetter) >= 0 {
		return "", fmt.Errorf("invalid currency code %q", code)
	}
	return Currency(code), nil
}

// Money is an amount in a currency. It renders with MoneyScale places.
type Money struct {
	Amount   decimal.Decimal
	Currency Currency
}

// NewMoney pairs amount with currency
func NewMoney(amount decimal.Decimal, currency Currency) Money {
	return Money{Amount: amount, Currency: currency}
}

// MustMoney parses a literal amount and panics when it is not a decimal
func MustMoney(amount string, currency Currency) Money {
	return NewMoney(decimal.RequireFromString(amount), currency)
}

func (m Money) sameCurrency(other Money) error {
	if m.Currency != other.Currency {
		return fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.Currency, other.Currency)
	}
	return nil
}

// Add returns m + other
func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return NewMoney(m.Amount.Add(other.Amount), m.Currency), nil
}

// Sub returns m - other
func (m Money) Sub(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return NewMoney(m.Amount.Sub(other.Amount), m.Currency), nil
}

// Round rounds half away from zero to MoneyScale places
func (m Money) Round() Money {
	return NewMoney(m.Amount.Round(MoneyScale), m.Currency)
}

// Equals compares currency and numeric value, so 12.5 equals 12.50
func (m Money) Equals(other Money) bool {
	return m.Currency == other.Currency && m.Amount.Equal(other.Amount)
}

// WithinTolerance reports |m - other| <= epsilon in the same currency
func (m Money) WithinTolerance(other Money, epsilon decimal.Decimal) bool {
	return m.Currency == other.Currency && m.Amount.Sub(other.Amount).Abs().LessThanOrEqual(epsilon)
}

// String renders "1500.50 MXN"
func (m Money) String() string {
	return m.Amount.StringFixed(MoneyScale) + " " + string(m.Currency)
}

type moneyJSON struct {
	Amount   string   `json:"amount"`
	Currency Currency `json:"currency"`
}

// MarshalJSON writes the amount as a fixed-scale string
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.Amount.StringFixed(MoneyScale), Currency: m.Currency})
}

// UnmarshalJSON reads the form MarshalJSON writes
func (m *Money) UnmarshalJSON(data []byte) error {
	var v moneyJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	amount, err := decimal.NewFromString(v.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", v.Amount, err)
	}
	*m = NewMoney(amount, v.Currency)
	return nil
}
