// Package types holds the value conversions shared by the legacy reader, the
// reference codec and the importer units.
package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ToInt64 converts a legacy column value to int64.
// Supports all integer kinds, floats, and decimal strings / byte slices as
// returned by the MySQL driver for DECIMAL and unparsed columns. Anything
// else yields 0.
func ToInt64(v interface{}) int64 {
	switch i := v.(type) {
	case int64:
		return i
	case int:
		return int64(i)
	case int32:
		return int64(i)
	case int16:
		return int64(i)
	case int8:
		return int64(i)
	case uint:
		return int64(i)
	case uint64:
		return int64(i)
	case uint32:
		return int64(i)
	case uint16:
		return int64(i)
	case uint8:
		return int64(i)
	case float64:
		return int64(i)
	case float32:
		return int64(i)
	case []byte:
		return parseInt(string(i))
	case string:
		return parseInt(i)
	default:
		return 0
	}
}

func parseInt(s string) int64 {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return 0
}

// ToString renders a column value as the string form used in identity tokens.
// NULL becomes the empty string.
func ToString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case int:
		return strconv.Itoa(val)
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return strconv.FormatInt(ToInt64(val), 10)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format(time.RFC3339)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// NullableString returns nil for NULL or blank values and a trimmed pointer otherwise.
func NullableString(v interface{}) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(ToString(v))
	if s == "" {
		return nil
	}
	return &s
}

// Truncate cuts s to at most max runes.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
