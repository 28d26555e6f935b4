package core

import (
	"bytes"
	"time"

	"github.com/pkg/errors"
)

// layouts accepted when decoding API timestamps; zone-less values are read as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Time is a time.Time that also decodes the zone-less ISO timestamps served by the school API.
type Time struct {
	time.Time
}

func NewTime(t time.Time) Time { return Time{Time: t.UTC()} }

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.UTC().Format(time.RFC3339Nano) + `"`), nil
}

func (t *Time) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte(`""`)) {
		t.Time = time.Time{}
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.Errorf("core.Time: invalid value %s", data)
	}
	s := string(data[1 : len(data)-1])
	for _, layout := range timeLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return errors.Errorf("core.Time: cannot parse %q", s)
}
