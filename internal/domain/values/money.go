package values

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value with currency and precision handling.
// Amounts are carried as decimals but the platform settles in minor units
// (cents), so MinorUnits is the comparison currency for all fraud rules.
type Money struct {
	amount   decimal.Decimal
	currency string
}

// Common currency codes (ISO 4217)
const (
	USD = "USD"
	EUR = "EUR"
	SGD = "SGD"
)

// NewMoney creates a new Money value object
func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	if err := validateCurrency(currency); err != nil {
		return Money{}, err
	}

	return Money{
		amount:   amount,
		currency: currency,
	}, nil
}

// NewMoneyFromMinorUnits creates Money from integer minor units (cents)
func NewMoneyFromMinorUnits(units int64, currency string) (Money, error) {
	dec := decimal.NewFromInt(units).Div(decimal.NewFromInt(100))
	return NewMoney(dec, currency)
}

// MustNewMoneyFromMinorUnits creates Money and panics on error (for fixtures/tests)
func MustNewMoneyFromMinorUnits(units int64, currency string) Money {
	m, err := NewMoneyFromMinorUnits(units, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero Money value in the given currency
func Zero(currency string) Money {
	m, _ := NewMoney(decimal.Zero, currency)
	return m
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// MinorUnits returns the amount in integer minor units, truncating
// sub-cent precision.
func (m Money) MinorUnits() int64 {
	return m.amount.Mul(decimal.NewFromInt(100)).IntPart()
}

// Currency returns the currency code
func (m Money) Currency() string {
	return m.currency
}

// String returns money with currency code (e.g., "123.45 USD")
func (m Money) String() string {
	return m.amount.StringFixed(2) + " " + m.currency
}

// IsZero checks if the amount is zero
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsPositive checks if the amount is positive
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// GreaterThanMinorUnits reports whether the amount exceeds the given
// minor-unit threshold.
func (m Money) GreaterThanMinorUnits(units int64) bool {
	return m.MinorUnits() > units
}

// Equal compares two Money values
func (m Money) Equal(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// MarshalJSON implements json.Marshaler
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	}{
		Amount:   m.amount.StringFixed(2),
		Currency: m.currency,
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (m *Money) UnmarshalJSON(data []byte) error {
	var aux struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	dec, err := decimal.NewFromString(aux.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}

	parsed, err := NewMoney(dec, aux.Currency)
	if err != nil {
		return err
	}

	*m = parsed
	return nil
}

// Value implements driver.Valuer for database storage
func (m Money) Value() (driver.Value, error) {
	return m.amount.StringFixed(2), nil
}

// Scan implements sql.Scanner for database retrieval. Currency defaults to
// USD; the transactions table stores a single settlement currency.
func (m *Money) Scan(value interface{}) error {
	if value == nil {
		*m = Zero(USD)
		return nil
	}

	var dec decimal.Decimal
	var err error

	switch v := value.(type) {
	case string:
		dec, err = decimal.NewFromString(v)
	case []byte:
		dec, err = decimal.NewFromString(string(v))
	case int64:
		dec = decimal.NewFromInt(v)
	case float64:
		dec = decimal.NewFromFloat(v)
	default:
		return fmt.Errorf("cannot scan %T into Money", value)
	}
	if err != nil {
		return fmt.Errorf("invalid money value: %w", err)
	}

	m.amount = dec
	m.currency = USD
	return nil
}

func validateCurrency(currency string) error {
	currency = strings.TrimSpace(currency)
	if len(currency) != 3 {
		return fmt.Errorf("currency must be a 3-letter ISO 4217 code, got %q", currency)
	}
	for _, r := range currency {
		if r < 'A' || r > 'Z' {
			return fmt.Errorf("currency must be uppercase letters, got %q", currency)
		}
	}
	return nil
}
