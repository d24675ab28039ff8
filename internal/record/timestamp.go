package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// TimeLayout is the format of posted_time_jst values.
const TimeLayout = "2006-01-02 15:04:05"

// CreateTimeKey is the platform field holding the upload time in epoch seconds.
const CreateTimeKey = "createTime"

// JST is a fixed +9h offset. No tz database lookup on purpose.
var JST = time.FixedZone("JST", 9*60*60)

// ErrTypeConversion is returned when a value cannot be read as the expected type.
var ErrTypeConversion = errors.New("type conversion failure")

// NormalizeJST renders epoch seconds as a JST wall-clock string.
func NormalizeJST(epochSeconds int64) string {
	return time.Unix(epochSeconds, 0).In(JST).Format(TimeLayout)
}

// ParseJST parses a posted_time_jst string back into a time in JST.
func ParseJST(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	t, err := time.ParseInLocation(TimeLayout, s, JST)
	if err == nil {
		return t, nil
	}
	// exported workbooks sometimes carry a date-only or RFC3339 value
	if t, err2 := time.ParseInLocation(time.DateOnly, s, JST); err2 == nil {
		return t, nil
	}
	if t, err2 := time.Parse(time.RFC3339, s); err2 == nil {
		return t.In(JST), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q is not a timestamp: %v", ErrTypeConversion, s, err)
}

// EpochSeconds reads an integer number of seconds out of a raw field value.
func EpochSeconds(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) || math.IsNaN(x) {
			return 0, fmt.Errorf("%w: %v is not an integer", ErrTypeConversion, x)
		}
		if x < math.MinInt64 || x >= math.MaxInt64 {
			return 0, fmt.Errorf("%w: %v is out of range", ErrTypeConversion, x)
		}
		return int64(x), nil
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not an integer", ErrTypeConversion, x.String())
		}
		return i, nil
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", ErrTypeConversion, v)
	}
}

// CreateTime returns the record's createTime, or 0 when the field is absent.
func CreateTime(m Map) (int64, error) {
	v, ok := m[CreateTimeKey]
	if !ok {
		return 0, nil
	}
	s, ok := v.(Scalar)
	if !ok {
		return 0, fmt.Errorf("%w: %s is a nested mapping", ErrTypeConversion, CreateTimeKey)
	}
	if s.V == nil {
		return 0, nil
	}
	return EpochSeconds(s.V)
}
