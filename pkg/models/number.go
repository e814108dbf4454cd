package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Number is a float64 that tolerates loosely typed input. JSON numbers and
// numeric strings decode normally; null, empty strings, non-numeric text and
// non-finite values all decode to 0.
type Number float64

// ParseNumber coerces a string to a Number, defaulting to 0.
func ParseNumber(s string) Number {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return finite(f)
}

// Float returns n as a float64.
func (n Number) Float() float64 {
	return float64(n)
}

// UnmarshalJSON implements json.Unmarshaler and never fails.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*n = 0
			return nil
		}
		*n = ParseNumber(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		*n = 0
		return nil
	}
	*n = finite(f)
	return nil
}

// Value implements driver.Valuer.
func (n Number) Value() (driver.Value, error) {
	return float64(n), nil
}

// Scan implements sql.Scanner.
func (n *Number) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*n = 0
	case float64:
		*n = finite(v)
	case float32:
		*n = finite(float64(v))
	case int64:
		*n = Number(v)
	case []byte:
		*n = ParseNumber(string(v))
	case string:
		*n = ParseNumber(v)
	default:
		return fmt.Errorf("cannot scan %T into Number", src)
	}
	return nil
}

func finite(f float64) Number {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return Number(f)
}
