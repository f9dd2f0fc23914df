package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// blankTokens are cell values spreadsheet exports write for empty cells.
// They must never link two records.
var blankTokens = map[string]bool{
	"nan":  true,
	"null": true,
	"none": true,
	"n/a":  true,
}

// Value is a scalar attribute value: either text or a number.
type Value struct {
	Text     string
	Number   float64
	IsNumber bool
}

// Text returns a text value.
func Text(s string) Value { return Value{Text: s} }

// Number returns a numeric value.
func Number(f float64) Value { return Value{Number: f, IsNumber: true} }

// Key is the canonical string two values must share to be considered equal.
// Numbers use the shortest exact decimal form, so 9876543210 and "9876543210" match.
func (v Value) Key() string {
	if v.IsNumber {
		if v.Number == math.Trunc(v.Number) && math.Abs(v.Number) < 1e15 {
			return strconv.FormatInt(int64(v.Number), 10)
		}
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	}
	return strings.TrimSpace(v.Text)
}

// IsBlank reports whether the value is empty or a placeholder such as NaN.
func (v Value) IsBlank() bool {
	if v.IsNumber {
		return math.IsNaN(v.Number)
	}
	s := strings.TrimSpace(v.Text)
	return s == "" || blankTokens[strings.ToLower(s)]
}

func (v Value) String() string {
	if v.IsBlank() {
		return ""
	}
	return v.Key()
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsNumber {
		if math.IsNaN(v.Number) || math.IsInf(v.Number, 0) {
			return []byte("null"), nil
		}
		return []byte(strconv.FormatFloat(v.Number, 'f', -1, 64)), nil
	}
	return json.Marshal(v.Text)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*v = Value{}
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Text(s)
		return nil
	case bytes.Equal(data, []byte("true")), bytes.Equal(data, []byte("false")):
		*v = Text(string(data))
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("attribute value must be a string or number, got %s", data)
	}
	*v = Number(f)
	return nil
}

// Record is one row of the input table. Attributes are read-only after NewRecord.
type Record struct {
	ID         string           `json:"id"`
	Attributes map[string]Value `json:"attributes"`
}

// NewRecord copies attrs so later mutation by the caller cannot leak in.
func NewRecord(id string, attrs map[string]Value) Record {
	cp := make(map[string]Value, len(attrs))
	for k, v := range attrs {
		cp[k] = v
	}
	return Record{ID: id, Attributes: cp}
}

// Attr returns the named attribute and whether it is present.
func (r Record) Attr(name string) (Value, bool) {
	v, ok := r.Attributes[name]
	return v, ok
}

// Display returns the named attribute as text, or the record ID when absent or blank.
func (r Record) Display(name string) string {
	if v, ok := r.Attributes[name]; ok && !v.IsBlank() {
		return v.String()
	}
	return r.ID
}
