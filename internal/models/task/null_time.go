package task

import (
	"encoding/json"
	"time"
)

// NullTime - необязательный момент времени. Нулевое значение означает
// "не задано": задача ещё не запланирована, не начата или не завершена.
type NullTime struct {
	Time  time.Time
	Valid bool
}

func SomeTime(t time.Time) NullTime {
	return NullTime{Time: t, Valid: true}
}

func NullTimeFromPtr(t *time.Time) NullTime {
	if t == nil {
		return NullTime{}
	}
	return SomeTime(*t)
}

func (n NullTime) Get() (time.Time, bool) {
	return n.Time, n.Valid
}

func (n NullTime) Ptr() *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}

func (n NullTime) IsZero() bool {
	return !n.Valid
}

func (n NullTime) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Time)
}

func (n *NullTime) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = NullTime{}
		return nil
	}
	var t time.Time
	if err := json.Unmarshal(b, &t); err != nil {
		return err
	}
	*n = SomeTime(t)
	return nil
}
