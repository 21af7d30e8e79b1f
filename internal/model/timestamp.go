package model

import (
	"fmt"
	"strconv"
	"time"
)

// naiveLayout matches ISO timestamps without a zone, which are read as UTC.
const naiveLayout = "2006-01-02T15:04:05.999999999"

// Timestamp is a time.Time that also accepts zone-less ISO-8601 values on
// decode and always encodes as RFC 3339 in UTC.
type Timestamp struct {
	time.Time
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC()}
}

func ParseTimestamp(value string) (Timestamp, error) {
	if value == "" {
		return Timestamp{}, nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return NewTimestamp(parsed), nil
	}
	parsed, err := time.ParseInLocation(naiveLayout, value, time.UTC)
	if err != nil {
		return Timestamp{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return NewTimestamp(parsed), nil
}

func (t Timestamp) String() string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.Quote(t.String())), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	raw := string(data)
	if raw == "null" {
		*t = Timestamp{}
		return nil
	}
	value, err := strconv.Unquote(raw)
	if err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	parsed, err := ParseTimestamp(value)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
