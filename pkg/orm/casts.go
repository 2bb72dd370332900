package orm

import (
	"fmt"
	"strconv"
	"time"
)

// DateLayout is the storage format for timestamps (UTC).
const DateLayout = "2006-01-02 15:04:05"

var parseLayouts = []string{
	DateLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// FormatTime renders t in the storage format.
func FormatTime(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ParseTime accepts the storage format and the common ISO variants.
func ParseTime(value string) (time.Time, error) {
	for _, layout := range parseLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("orm: unparsable time %q", value)
}

func bindValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		return FormatTime(t)
	case *time.Time:
		if t == nil {
			return nil
		}
		return FormatTime(*t)
	default:
		return v
	}
}

// DateTimeMutator stores unix seconds or any parsable date string as a time.
func DateTimeMutator(_ *Model, value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return v.UTC(), nil
	case int:
		return time.Unix(int64(v), 0).UTC(), nil
	case int64:
		return time.Unix(v, 0).UTC(), nil
	case float64:
		return time.Unix(int64(v), 0).UTC(), nil
	case string:
		if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Unix(secs, 0).UTC(), nil
		}
		return ParseTime(v)
	default:
		return nil, fmt.Errorf("orm: cannot convert %T to a time", value)
	}
}

// UnixAccessor exposes a time attribute as unix seconds.
func UnixAccessor(_ *Model, value any) any {
	switch v := value.(type) {
	case time.Time:
		return v.Unix()
	case string:
		t, err := ParseTime(v)
		if err != nil {
			return nil
		}
		return t.Unix()
	default:
		return value
	}
}

// AsInt converts value to int64, keeping nil.
func AsInt(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	case bool:
		if v {
			return int64(1)
		}
		return int64(0)
	case string:
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return int64(0)
		}
		return int64(n)
	default:
		return value
	}
}

// AsFloat converts value to float64, keeping nil.
func AsFloat(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case float64:
		return v
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return float64(0)
		}
		return f
	default:
		return value
	}
}

// AsString converts value to its string form, keeping nil.
func AsString(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}
