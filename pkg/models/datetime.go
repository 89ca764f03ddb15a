package models

import (
	"fmt"
	"strings"
	"time"
)

// recordTimeLayout is the timestamp format used by the record store
// ("2006-01-02 15:04:05.000Z").
const recordTimeLayout = "2006-01-02 15:04:05.000Z"

// DateTime wraps time.Time so that record-store timestamps unmarshal
// cleanly. An empty string decodes to the zero time.
type DateTime struct {
	time.Time
}

func (d *DateTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}

	t, err := time.Parse(recordTimeLayout, s)
	if err != nil {
		// Some endpoints return RFC 3339.
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("invalid record timestamp %q: %w", s, err)
		}
	}
	d.Time = t
	return nil
}

func (d DateTime) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + d.UTC().Format(recordTimeLayout) + `"`), nil
}
