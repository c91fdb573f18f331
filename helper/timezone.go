package helper

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ReferenceZone is the fixed UTC+8 zone every stored timestamp is expressed in.
var ReferenceZone = time.FixedZone("UTC+8", 8*60*60)

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02T15:04:05-0700",
}

// ToReference converts t into the reference zone.
func ToReference(t time.Time) time.Time {
	return t.In(ReferenceZone)
}

// ParseTimestamp accepts epoch seconds/milliseconds (number or numeric string)
// and ISO-8601 strings with or without a zone. Untagged values are UTC.
func ParseTimestamp(value interface{}) (time.Time, error) {
	switch v := value.(type) {
	case nil:
		return time.Time{}, fmt.Errorf("empty timestamp")
	case time.Time:
		return ToReference(v), nil
	case int:
		return fromEpoch(float64(v)), nil
	case int64:
		return fromEpoch(float64(v)), nil
	case float64:
		return fromEpoch(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return time.Time{}, err
		}
		return fromEpoch(f), nil
	case string:
		return parseTimestampString(v)
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", value)
	}
}

// ParseTimestampIn parses naive strings as local to loc instead of UTC.
func ParseTimestampIn(value string, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(value)
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return ToReference(t), nil
		}
	}
	return parseTimestampString(s)
}

func parseTimestampString(value string) (time.Time, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return fromEpoch(f), nil
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return ToReference(t), nil
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return ToReference(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", value)
}

// Values above 1e12 are milliseconds.
func fromEpoch(f float64) time.Time {
	if f > 1e12 {
		sec, frac := math.Modf(f / 1000)
		return ToReference(time.Unix(int64(sec), int64(frac*1e9)))
	}
	sec, frac := math.Modf(f)
	return ToReference(time.Unix(int64(sec), int64(frac*1e9)))
}

// FormatReference renders t as ISO-8601 in the reference zone.
func FormatReference(t time.Time) string {
	return ToReference(t).Format(time.RFC3339)
}
