package domain

import (
	"time"

	"github.com/m04kA/SMC-SchedulingService/pkg/types"
)

// WorkingInterval is a specialist's configured working range for a day of week
type WorkingInterval struct {
	ID           int64
	SpecialistID int64
	DayOfWeek    time.Weekday // 0 = Sunday .. 6 = Saturday
	StartTime    types.TimeString
	EndTime      types.TimeString
}

// Contains reports whether [start, end) lies fully inside the interval
func (w WorkingInterval) Contains(start, end types.TimeString) bool {
	return !start.IsBefore(w.StartTime) && !end.IsAfter(w.EndTime)
}

// Overlaps half-open overlap rule: s1 < e2 && e1 > s2
func Overlaps(s1, e1, s2, e2 types.TimeString) bool {
	return s1.IsBefore(e2) && e1.IsAfter(s2)
}

// DateOnly обнуляет время, оставляя календарную дату в исходной локации
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// IsSameDay проверяет, что две даты относятся к одному и тому же дню
func IsSameDay(a, b time.Time) bool {
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// IsDateInPast строго раньше сегодняшнего дня
func IsDateInPast(date, now time.Time) bool {
	y1, m1, d1 := date.Date()
	y2, m2, d2 := now.Date()
	if y1 != y2 {
		return y1 < y2
	}
	if m1 != m2 {
		return m1 < m2
	}
	return d1 < d2
}

// ISOWeekStart понедельник ISO-недели, содержащей date
func ISOWeekStart(date time.Time) time.Time {
	d := DateOnly(date)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// ISOWeekEnd воскресенье ISO-недели, содержащей date
func ISOWeekEnd(date time.Time) time.Time {
	return ISOWeekStart(date).AddDate(0, 0, 6)
}
