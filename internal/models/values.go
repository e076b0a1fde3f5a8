package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire and storage format of calendar dates.
const DateLayout = "2006-01-02"

// Month-first layouts come before day-first ones, so an ambiguous date
// such as 03/04/2012 reads as March 4.
var dateLayouts = []string{
	DateLayout,
	"2006-1-2",
	"2006/01/02",
	"2006/1/2",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"1-2-2006",
	"01-02-06",
	"1-2-06",
	"02/01/2006",
	"2/1/2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02-Jan-2006",
	"2-Jan-2006",
	"02-Jan-06",
	"2-Jan-06",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"20060102",
}

// Excel stores dates as days since 1899-12-30.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// ParseDate leniently parses s into a calendar date. Month-first layouts
// win over day-first ones for ambiguous slash dates. Spreadsheet serial
// numbers are accepted too.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return dateOnly(t), true
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial >= 1 && serial < 2958466 && len(s) != 8 {
		return excelEpoch.AddDate(0, 0, int(math.Floor(serial))), true
	}
	return time.Time{}, false
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date is a nullable calendar date.
type Date struct {
	Time  time.Time
	Valid bool
}

// NewDate returns a valid Date for the calendar day of t.
func NewDate(t time.Time) Date {
	return Date{Time: dateOnly(t), Valid: true}
}

// String renders the date as YYYY-MM-DD, or "" when null.
func (d Date) String() string {
	if !d.Valid {
		return ""
	}
	return d.Time.Format(DateLayout)
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts null, "" and any layout understood by ParseDate.
func (d *Date) UnmarshalJSON(data []byte) error {
	if isJSONNull(data) {
		*d = Date{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		*d = Date{}
		return nil
	}
	t, ok := ParseDate(raw)
	if !ok {
		return fmt.Errorf("invalid date %q", raw)
	}
	*d = NewDate(t)
	return nil
}

// Scan implements sql.Scanner.
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
	case time.Time:
		*d = NewDate(v)
	case []byte:
		return d.scanString(string(v))
	case string:
		return d.scanString(v)
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
	return nil
}

func (d *Date) scanString(s string) error {
	t, ok := ParseDate(s)
	if !ok {
		return fmt.Errorf("cannot scan %q into Date", s)
	}
	*d = NewDate(t)
	return nil
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	if !d.Valid {
		return nil, nil
	}
	return d.String(), nil
}

// Text is a nullable string. It also accepts JSON numbers so identifiers
// such as phone numbers and grade levels keep their textual form.
type Text struct {
	String string
	Valid  bool
}

// NewText returns a valid Text.
func NewText(s string) Text {
	return Text{String: s, Valid: true}
}

// MarshalJSON implements json.Marshaler.
func (t Text) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(t.String)
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	if isJSONNull(data) {
		*t = Text{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = NewText(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("text must be a string or number: %w", err)
	}
	*t = NewText(NumberText(n.String()))
	return nil
}

// Scan implements sql.Scanner.
func (t *Text) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*t = Text{}
	case string:
		*t = NewText(v)
	case []byte:
		*t = NewText(string(v))
	default:
		*t = NewText(fmt.Sprint(v))
	}
	return nil
}

// Value implements driver.Valuer.
func (t Text) Value() (driver.Value, error) {
	if !t.Valid {
		return nil, nil
	}
	return t.String, nil
}

// Decimal is a nullable number. JSON strings holding a number are accepted
// and an empty string decodes to null.
type Decimal struct {
	Float64 float64
	Valid   bool
}

// NewDecimal returns a valid Decimal.
func NewDecimal(f float64) Decimal {
	return Decimal{Float64: f, Valid: true}
}

// MarshalJSON implements json.Marshaler.
func (d Decimal) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(d.Float64)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Decimal) UnmarshalJSON(data []byte) error {
	if isJSONNull(data) {
		*d = Decimal{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			*d = Decimal{}
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", s)
		}
		*d = NewDecimal(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("number expected: %w", err)
	}
	*d = NewDecimal(f)
	return nil
}

// Scan implements sql.Scanner.
func (d *Decimal) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = Decimal{}
	case float64:
		*d = NewDecimal(v)
	case int64:
		*d = NewDecimal(float64(v))
	case []byte:
		f, err := strconv.ParseFloat(string(v), 64)
		if err != nil {
			return fmt.Errorf("cannot scan %q into Decimal", v)
		}
		*d = NewDecimal(f)
	default:
		return fmt.Errorf("cannot scan %T into Decimal", src)
	}
	return nil
}

// Value implements driver.Valuer.
func (d Decimal) Value() (driver.Value, error) {
	if !d.Valid {
		return nil, nil
	}
	return d.Float64, nil
}

// NumberText renders spreadsheet-style numbers as identifiers: integral
// floats lose their fraction ("5.0" → "5", "8.0012345E9" → "8001234500").
// Anything else is returned unchanged.
func NumberText(s string) string {
	s = strings.TrimSpace(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return s
	}
	if !strings.ContainsAny(s, ".eE") {
		return s
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', 0, 64)
	}
	return s
}

func isJSONNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}
