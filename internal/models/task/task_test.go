package task_test

import (
	"encoding/json"
	"testing"
	"time"

	"taskFocus/internal/models/task"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jst = time.FixedZone("JST", 9*60*60)

// TestSameDay проверяет сравнение календарных дней в заданном поясе
func TestSameDay(t *testing.T) {
	tests := []struct {
		name string
		a, b time.Time
		loc  *time.Location
		want bool
	}{
		{
			name: "same day, different time",
			a:    time.Date(2015, 12, 23, 0, 0, 0, 0, jst),
			b:    time.Date(2015, 12, 23, 14, 27, 0, 0, jst),
			loc:  jst,
			want: true,
		},
		{
			name: "next day",
			a:    time.Date(2015, 12, 23, 0, 0, 0, 0, jst),
			b:    time.Date(2015, 12, 24, 13, 0, 0, 0, jst),
			loc:  jst,
			want: false,
		},
		{
			name: "last nanosecond of the day",
			a:    time.Date(2015, 12, 23, 0, 0, 0, 0, jst),
			b:    time.Date(2015, 12, 23, 23, 59, 59, 999999999, jst),
			loc:  jst,
			want: true,
		},
		{
			name: "same UTC day but different day in JST",
			a:    time.Date(2015, 12, 23, 10, 0, 0, 0, time.UTC),
			b:    time.Date(2015, 12, 23, 16, 0, 0, 0, time.UTC),
			loc:  jst,
			want: false,
		},
		{
			name: "same year and day of month, different month",
			a:    time.Date(2015, 11, 23, 0, 0, 0, 0, jst),
			b:    time.Date(2015, 12, 23, 0, 0, 0, 0, jst),
			loc:  jst,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, task.SameDay(tt.a, tt.b, tt.loc))
		})
	}
}

// TestDay проверяет разбор, форматирование и нормализацию дня
func TestDay(t *testing.T) {
	d, err := task.ParseDay("2015-12-23")
	require.NoError(t, err)

	assert.Equal(t, 2015, d.Year())
	assert.Equal(t, time.December, d.Month())
	assert.Equal(t, 23, d.DayOfMonth())
	assert.Equal(t, "2015-12-23", d.String())
	assert.Equal(t, task.NewDay(2015, time.December, 23), d)
	assert.Equal(t, d, task.DayFromTime(d.Time()))
	assert.Equal(t, task.NewDay(2016, time.January, 1), task.NewDay(2015, time.December, 32))
	assert.Equal(t, "2015-12-24", d.Next().String())
	assert.True(t, d.Before(d.Next()))
	assert.False(t, d.IsZero())
	assert.True(t, task.Day{}.IsZero())

	_, err = task.ParseDay("23.12.2015")
	assert.Error(t, err)
}

func TestDay_JSON(t *testing.T) {
	d := task.NewDay(2015, time.December, 23)

	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `"2015-12-23"`, string(b))

	var decoded task.Day
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, d, decoded)
}

// TestNullTime проверяет необязательное значение времени
func TestNullTime(t *testing.T) {
	var empty task.NullTime
	assert.True(t, empty.IsZero())
	assert.Nil(t, empty.Ptr())
	_, ok := empty.Get()
	assert.False(t, ok)

	moment := time.Date(2015, 12, 23, 14, 27, 0, 0, jst)
	some := task.SomeTime(moment)
	assert.False(t, some.IsZero())
	got, ok := some.Get()
	assert.True(t, ok)
	assert.True(t, got.Equal(moment))
	require.NotNil(t, some.Ptr())
	assert.True(t, some.Ptr().Equal(moment))

	assert.Equal(t, some, task.NullTimeFromPtr(&moment))
	assert.Equal(t, empty, task.NullTimeFromPtr(nil))
}

func TestNullTime_JSON(t *testing.T) {
	b, err := json.Marshal(task.NullTime{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))

	moment := time.Date(2015, 12, 23, 14, 27, 0, 0, time.UTC)
	b, err = json.Marshal(task.SomeTime(moment))
	require.NoError(t, err)
	assert.JSONEq(t, `"2015-12-23T14:27:00Z"`, string(b))

	var decoded task.NullTime
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.True(t, decoded.Valid)
	assert.True(t, decoded.Time.Equal(moment))

	require.NoError(t, json.Unmarshal([]byte("null"), &decoded))
	assert.False(t, decoded.Valid)
}

func TestTask_Clone(t *testing.T) {
	original := &task.Task{Name: "Task", OrderOfDate: 2}
	clone := original.Clone()
	clone.Name = "Other"

	assert.Equal(t, "Task", original.Name)
	assert.Equal(t, 2, clone.OrderOfDate)

	var nilTask *task.Task
	assert.Nil(t, nilTask.Clone())
}
