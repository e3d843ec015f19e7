package domain

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

const DateLayout = "2006-01-02"

// DateOf truncates t to its calendar day in t's own location and re-anchors it
// at UTC midnight, so equality queries on date columns are stable across zones.
func DateOf(t time.Time) datatypes.Date {
	y, m, d := t.Date()
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

func ParseDate(s string) (datatypes.Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return datatypes.Date{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return DateOf(t), nil
}

func FormatDate(d datatypes.Date) string {
	return time.Time(d).Format(DateLayout)
}

func SameDay(a, b datatypes.Date) bool {
	ay, am, ad := time.Time(a).Date()
	by, bm, bd := time.Time(b).Date()
	return ay == by && am == bm && ad == bd
}

func DateBefore(a, b datatypes.Date) bool {
	return time.Time(DateOf(time.Time(a))).Before(time.Time(DateOf(time.Time(b))))
}
