package models

import (
	"database/sql/driver"
	"fmt"
	"math/big"
)

// Bytes is an arbitrary-precision byte counter. Routers report 64-bit-class
// traffic totals and quotas accumulate across renewals, so counters are kept
// in big.Int and stored as a decimal column instead of a machine word.
type Bytes struct {
	big.Int
}

// NewBytes returns a counter initialized to n.
func NewBytes(n int64) Bytes {
	var b Bytes
	b.SetInt64(n)
	return b
}

// NewBytesFromBig returns a counter initialized to a copy of n.
func NewBytesFromBig(n *big.Int) Bytes {
	var b Bytes
	b.Set(n)
	return b
}

// Exhausted reports whether the counter is at or below zero. Quota fields are
// allowed to go negative as a "last overage already granted" marker, so this
// is the single exhaustion test used everywhere.
func (b *Bytes) Exhausted() bool {
	return b.Sign() <= 0
}

// Value implements driver.Valuer, serializing as decimal text.
func (b Bytes) Value() (driver.Value, error) {
	return b.String(), nil
}

// Scan implements sql.Scanner.
func (b *Bytes) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		b.SetInt64(0)
		return nil
	case int64:
		b.SetInt64(v)
		return nil
	case []byte:
		return b.setString(string(v))
	case string:
		return b.setString(v)
	default:
		return fmt.Errorf("cannot scan %T into Bytes", src)
	}
}

func (b *Bytes) setString(s string) error {
	if s == "" {
		b.SetInt64(0)
		return nil
	}
	if _, ok := b.SetString(s, 10); !ok {
		return fmt.Errorf("invalid byte counter value %q", s)
	}
	return nil
}

// GormDataType tells gorm to create a numeric column wide enough that the
// counter never truncates.
func (Bytes) GormDataType() string {
	return "numeric(40,0)"
}
