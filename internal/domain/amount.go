package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// BigAmount stores an integer amount at fixed-point scale (base units for the
// stable asset, 18-decimal units for tokens). Persisted as numeric(78,0) so the
// full 256-bit range fits; marshals to JSON as a decimal string so API clients
// never lose precision to float parsing.
type BigAmount struct {
	i big.Int
}

// NewAmount returns a BigAmount from an int64.
func NewAmount(v int64) BigAmount {
	var a BigAmount
	a.i.SetInt64(v)
	return a
}

// AmountFromBig copies b into a BigAmount. Nil is treated as zero.
func AmountFromBig(b *big.Int) BigAmount {
	var a BigAmount
	if b != nil {
		a.i.Set(b)
	}
	return a
}

// AmountFromString parses a decimal string. Fails on non-integer input.
func AmountFromString(s string) (BigAmount, error) {
	var a BigAmount
	s = strings.TrimSpace(s)
	if s == "" {
		return a, nil
	}
	if _, ok := a.i.SetString(s, 10); !ok {
		return BigAmount{}, fmt.Errorf("invalid amount %q", s)
	}
	return a, nil
}

// Big returns a copy of the underlying integer, safe to mutate.
func (a BigAmount) Big() *big.Int {
	return new(big.Int).Set(&a.i)
}

// Sign reports -1, 0 or +1.
func (a BigAmount) Sign() int { return a.i.Sign() }

// Cmp compares against b.
func (a BigAmount) Cmp(b *big.Int) int { return a.i.Cmp(b) }

// String returns the decimal representation.
func (a BigAmount) String() string { return a.i.String() }

// Value implements driver.Valuer (stored as a decimal string).
func (a BigAmount) Value() (driver.Value, error) {
	return a.i.String(), nil
}

// Scan implements sql.Scanner for numeric(78,0) columns.
func (a *BigAmount) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		a.i.SetInt64(0)
		return nil
	case int64:
		a.i.SetInt64(v)
		return nil
	case []byte:
		return a.setString(string(v))
	case string:
		return a.setString(v)
	default:
		return fmt.Errorf("unsupported type %T for BigAmount", value)
	}
}

func (a *BigAmount) setString(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		a.i.SetInt64(0)
		return nil
	}
	if _, ok := a.i.SetString(s, 10); !ok {
		return fmt.Errorf("invalid numeric value %q", s)
	}
	return nil
}

// MarshalJSON emits the amount as a decimal string.
func (a BigAmount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.i.String())
}

// UnmarshalJSON accepts a decimal string or a bare JSON number.
func (a *BigAmount) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		a.i.SetInt64(0)
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		return a.setString(str)
	}
	if strings.ContainsAny(s, ".eE") {
		return errors.New("amounts must be integers at base-unit scale")
	}
	return a.setString(s)
}
