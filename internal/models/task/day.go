package task

import (
	"fmt"
	"time"
)

const DayLayout = "2006-01-02"

// Day - календарный день без времени суток. Значения сравнимы через ==
// и годятся как ключ map.
type Day struct {
	year  int
	month time.Month
	day   int
}

func NewDay(year int, month time.Month, day int) Day {
	// нормализуем через time.Date, чтобы 31 ноября превратилось в 1 декабря
	y, m, d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Date()
	return Day{year: y, month: m, day: d}
}

// DayOf возвращает календарный день момента t в часовом поясе loc
func DayOf(t time.Time, loc *time.Location) Day {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.In(loc).Date()
	return Day{year: y, month: m, day: d}
}

// SameDay сравнивает только год, месяц и число; время суток игнорируется
func SameDay(a, b time.Time, loc *time.Location) bool {
	return DayOf(a, loc) == DayOf(b, loc)
}

func ParseDay(s string) (Day, error) {
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return Day{}, fmt.Errorf("разбор дня %q: %w", s, err)
	}
	return DayOf(t, time.UTC), nil
}

// DayFromTime читает день из значения, сохранённого через Time()
func DayFromTime(t time.Time) Day {
	return DayOf(t, time.UTC)
}

func (d Day) Year() int         { return d.year }
func (d Day) Month() time.Month { return d.month }
func (d Day) DayOfMonth() int   { return d.day }
func (d Day) IsZero() bool      { return d == Day{} }
func (d Day) String() string    { return fmt.Sprintf("%04d-%02d-%02d", d.year, d.month, d.day) }
func (d Day) Time() time.Time   { return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC) }
func (d Day) Next() Day         { return NewDay(d.year, d.month, d.day+1) }
func (d Day) Before(o Day) bool { return d.Time().Before(o.Time()) }

func (d Day) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Day) UnmarshalText(b []byte) error {
	parsed, err := ParseDay(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
