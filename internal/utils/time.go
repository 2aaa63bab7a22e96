package utils

import "time"

func Now() time.Time {
	return time.Now().UTC()
}

func NowPtr() *time.Time {
	now := Now()
	return &now
}

func StartOfDayInUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ToDate truncates a timestamp to its calendar day, used for window-scoped job keys
func ToDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
