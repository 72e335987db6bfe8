package shipper

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money represents a monetary amount in the currency's minor unit
// (cents for USD, yen for JPY).
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// zeroDecimalCurrencies have no minor unit.
var zeroDecimalCurrencies = map[string]bool{
	"JPY": true,
	"KRW": true,
	"CLP": true,
	"ISK": true,
	"VND": true,
}

// MinorUnitExponent returns the number of decimal places of the currency's
// minor unit.
func MinorUnitExponent(currency string) int32 {
	if zeroDecimalCurrencies[strings.ToUpper(currency)] {
		return 0
	}
	return 2
}

// ParseMoney converts a carrier decimal string such as "12.65" into Money.
// Amounts with more precision than the minor unit are rounded half away
// from zero.
func ParseMoney(amount, currency string) (Money, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return Money{}, fmt.Errorf("parse money %q: missing currency", amount)
	}
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return Money{}, fmt.Errorf("parse money %q: %w", amount, err)
	}
	minor := d.Shift(MinorUnitExponent(currency)).Round(0)
	return Money{Amount: minor.IntPart(), Currency: currency}, nil
}

// MustParseMoney is like ParseMoney but panics on error. Intended for
// constants in mocks and tests.
func MustParseMoney(amount, currency string) Money {
	m, err := ParseMoney(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Amount, -MinorUnitExponent(m.Currency))
}

// String formats the amount as "12.65 USD".
func (m Money) String() string {
	return m.Decimal().StringFixed(MinorUnitExponent(m.Currency)) + " " + m.Currency
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.Amount == 0
}
