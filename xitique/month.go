package xitique

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	monthLayout = "2006-01"
	dayLayout   = "2006-01-02"
)

var (
	ErrInvalidMonth = errors.New("must be formatted as YYYY-MM or YYYY-MM-DD")
	ErrInvalidDay   = errors.New("must be formatted as YYYY-MM-DD")
)

// Month is a calendar month. Cycles are scheduled with month granularity, so
// the day of any parsed date is dropped.
type Month struct {
	Year  int
	Month time.Month
}

func ParseMonth(s string) (Month, error) {
	for _, layout := range []string{monthLayout, dayLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return Month{Year: t.Year(), Month: t.Month()}, nil
		}
	}
	return Month{}, ErrInvalidMonth
}

// AddMonths moves n months forward, rolling the year over as needed.
func (m Month) AddMonths(n int) Month {
	t := time.Date(m.Year, m.Month+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	return Month{Year: t.Year(), Month: t.Month()}
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func (m Month) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *Month) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseMonth(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (m Month) Value() (driver.Value, error) {
	return m.String(), nil
}

func (m *Month) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("scanning month from %T", src)
	}
	parsed, err := ParseMonth(s)
	if err != nil {
		return fmt.Errorf("scanning month %q: %w", s, err)
	}
	*m = parsed
	return nil
}

// parseDay validates a settlement date and returns it in canonical form.
func parseDay(s string) (string, error) {
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return "", ErrInvalidDay
	}
	return t.Format(dayLayout), nil
}
