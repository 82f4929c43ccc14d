package sales

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Num is an optional numeric cell. The zero value is absent.
//
// Non-finite inputs (NaN, ±Inf) are never stored: N normalises them to
// absent so that every present Num is finite.
type Num struct {
	v     float64
	valid bool
}

// Absent is the missing-value Num.
var Absent = Num{}

// N returns v as a present Num, or Absent when v is not finite.
func N(v float64) Num {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Num{}
	}

	return Num{v: v, valid: true}
}

// Valid reports whether the value is present.
func (n Num) Valid() bool { return n.valid }

// Get returns the value and whether it is present.
func (n Num) Get() (float64, bool) { return n.v, n.valid }

// Float returns the value, or NaN when absent.
func (n Num) Float() float64 {
	if !n.valid {
		return math.NaN()
	}

	return n.v
}

// Or returns the value, or def when absent.
func (n Num) Or(def float64) float64 {
	if !n.valid {
		return def
	}

	return n.v
}

// Ptr returns a pointer to a copy of the value, or nil when absent.
// Chart series use nil to mean "draw a gap".
func (n Num) Ptr() *float64 {
	if !n.valid {
		return nil
	}

	v := n.v

	return &v
}

// Equal reports whether both values are absent or both hold the same value.
func (n Num) Equal(o Num) bool {
	if n.valid != o.valid {
		return false
	}

	return !n.valid || n.v == o.v
}

func (n Num) String() string {
	if !n.valid {
		return "null"
	}

	return strconv.FormatFloat(n.v, 'f', -1, 64)
}

// MarshalJSON encodes absent as null.
func (n Num) MarshalJSON() ([]byte, error) {
	if !n.valid {
		return []byte("null"), nil
	}

	return json.Marshal(n.v)
}

// UnmarshalJSON accepts null, numbers, and numeric strings.
func (n *Num) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if bytes.Equal(data, []byte("null")) {
		*n = Num{}

		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string

		err := json.Unmarshal(data, &s)
		if err != nil {
			return err
		}

		parsed, err := ParseNum(s)
		if err != nil {
			return err
		}

		*n = parsed

		return nil
	}

	var v float64

	err := json.Unmarshal(data, &v)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotNumeric, string(data))
	}

	*n = N(v)

	return nil
}

// ParseNum parses a spreadsheet-style cell. Empty text is absent.
// Currency symbols, thousands separators, and a trailing percent sign are
// stripped before parsing.
func ParseNum(s string) (Num, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Num{}, nil
	}

	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)

	percent := strings.HasSuffix(cleaned, "%")
	cleaned = strings.TrimSuffix(cleaned, "%")

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return Num{}, fmt.Errorf("%w: %q", ErrNotNumeric, s)
	}

	if percent {
		v /= 100
	}

	return N(v), nil
}
