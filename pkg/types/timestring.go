package types

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ErrInvalidTimeString возвращается, если строка не соответствует формату HH:MM[:SS]
var ErrInvalidTimeString = errors.New("invalid time string format")

const (
	secondsInMinute = 60
	secondsInHour   = 60 * secondsInMinute
	// SecondsInDay граница суток; "24:00" допустимо только как конец интервала
	SecondsInDay = 24 * secondsInHour
)

var timeStringPattern = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)(?::([0-5]\d))?$`)

// TimeString время суток без даты и часового пояса ("10:00", "10:00:30").
// Каноническая форма: HH:MM, если секунды равны нулю, иначе HH:MM:SS.
type TimeString string

// NewTimeString извлекает время суток из time.Time
func NewTimeString(t time.Time) TimeString {
	return fromSeconds(t.Hour()*secondsInHour + t.Minute()*secondsInMinute + t.Second())
}

// NewTimeStringFromString парсит строку HH:MM[:SS] и приводит её к канонической форме
func NewTimeStringFromString(s string) (TimeString, error) {
	sec, err := parseSeconds(s)
	if err != nil {
		return "", err
	}
	return fromSeconds(sec), nil
}

// NewTimeStringFromSeconds создаёт время из количества секунд от начала суток
func NewTimeStringFromSeconds(sec int) (TimeString, error) {
	if sec < 0 || sec > SecondsInDay {
		return "", fmt.Errorf("%w: %d seconds out of range", ErrInvalidTimeString, sec)
	}
	return fromSeconds(sec), nil
}

// Validate проверяет формат значения
func (t TimeString) Validate() error {
	_, err := parseSeconds(string(t))
	return err
}

// IsZero true для пустого значения
func (t TimeString) IsZero() bool {
	return t == ""
}

// Seconds возвращает количество секунд от начала суток
func (t TimeString) Seconds() (int, error) {
	return parseSeconds(string(t))
}

// AddMinutes сдвигает время на заданное число минут.
// Результат не может выйти за пределы суток (максимум 24:00).
func (t TimeString) AddMinutes(minutes int) (TimeString, error) {
	sec, err := parseSeconds(string(t))
	if err != nil {
		return "", err
	}
	return NewTimeStringFromSeconds(sec + minutes*secondsInMinute)
}

// IsBefore строго раньше other
func (t TimeString) IsBefore(other TimeString) bool {
	return t.secs() < other.secs()
}

// IsAfter строго позже other
func (t TimeString) IsAfter(other TimeString) bool {
	return t.secs() > other.secs()
}

// Equal совпадает с other с точностью до секунды ("10:00" == "10:00:00")
func (t TimeString) Equal(other TimeString) bool {
	return t.secs() == other.secs()
}

// MinutesUntil количество целых минут от t до other (может быть отрицательным)
func (t TimeString) MinutesUntil(other TimeString) int {
	return (other.secs() - t.secs()) / secondsInMinute
}

// String возвращает каноническое представление
func (t TimeString) String() string {
	sec, err := parseSeconds(string(t))
	if err != nil {
		return string(t)
	}
	return string(fromSeconds(sec))
}

// Value реализует driver.Valuer (Postgres TIME ожидает HH:MM:SS)
func (t TimeString) Value() (driver.Value, error) {
	sec, err := parseSeconds(string(t))
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("%02d:%02d:%02d", sec/secondsInHour, sec%secondsInHour/secondsInMinute, sec%secondsInMinute), nil
}

// Scan реализует sql.Scanner
func (t *TimeString) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*t = ""
		return nil
	case string:
		return t.scanString(v)
	case []byte:
		return t.scanString(string(v))
	case time.Time:
		*t = NewTimeString(v)
		return nil
	default:
		return fmt.Errorf("%w: unsupported scan type %T", ErrInvalidTimeString, src)
	}
}

func (t *TimeString) scanString(s string) error {
	// Postgres может вернуть дробные секунды: 10:00:00.000000
	if len(s) > 8 && s[8] == '.' {
		s = s[:8]
	}
	parsed, err := NewTimeStringFromString(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t TimeString) secs() int {
	sec, err := parseSeconds(string(t))
	if err != nil {
		return -1
	}
	return sec
}

func parseSeconds(s string) (int, error) {
	if s == "24:00" || s == "24:00:00" {
		return SecondsInDay, nil
	}

	m := timeStringPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeString, s)
	}

	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	seconds := 0
	if m[3] != "" {
		seconds, _ = strconv.Atoi(m[3])
	}

	return hours*secondsInHour + minutes*secondsInMinute + seconds, nil
}

func fromSeconds(sec int) TimeString {
	h := sec / secondsInHour
	m := sec % secondsInHour / secondsInMinute
	s := sec % secondsInMinute
	if s == 0 {
		return TimeString(fmt.Sprintf("%02d:%02d", h, m))
	}
	return TimeString(fmt.Sprintf("%02d:%02d:%02d", h, m, s))
}
