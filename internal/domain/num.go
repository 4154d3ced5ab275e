package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Num is a JSON number that tolerates the shape drift seen in scan feeds.
// Plain numbers, numeric strings, null and missing fields all decode without
// error; anything unparseable is treated as absent rather than failing the
// whole record. Set distinguishes "present" from "absent or malformed".
type Num struct {
	Value float64
	Set   bool
}

// N wraps a plain float into a set Num
func N(v float64) Num {
	return Num{Value: v, Set: true}
}

// UnmarshalJSON never returns an error: malformed values decode as unset
func (n *Num) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		n.Value, n.Set = 0, false
		return nil
	}
	s = strings.Trim(s, `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		n.Value, n.Set = 0, false
		return nil
	}
	n.Value, n.Set = v, true
	return nil
}

// MarshalJSON encodes unset values as null
func (n Num) MarshalJSON() ([]byte, error) {
	if !n.Set {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// Or returns n when set, otherwise the first set fallback.
// Used to express field precedence chains explicitly.
func (n Num) Or(fallbacks ...Num) Num {
	if n.Set {
		return n
	}
	for _, f := range fallbacks {
		if f.Set {
			return f
		}
	}
	return Num{}
}

// Float returns the value, 0 when unset
func (n Num) Float() float64 {
	if !n.Set {
		return 0
	}
	return n.Value
}
