package domain

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Cents is an amount of money in minor currency units.
type Cents int64

func CentsFromDecimal(d decimal.Decimal) Cents {
	return Cents(d.Shift(2).Round(0).IntPart())
}

func CentsFromFloat(f float64) Cents {
	return CentsFromDecimal(decimal.NewFromFloat(f))
}

// ParseCents accepts a decimal amount such as "2.5" or "1.00".
func ParseCents(s string) (Cents, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return CentsFromDecimal(d), nil
}

func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

func (c Cents) Mul(qty int) Cents {
	return c * Cents(qty)
}

// String formats with exactly two decimals.
func (c Cents) String() string {
	return c.Decimal().StringFixed(2)
}

func (c Cents) Float64() float64 {
	f, _ := c.Decimal().Float64()
	return f
}

func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Cents) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}
	parsed, err := ParseCents(string(data))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
