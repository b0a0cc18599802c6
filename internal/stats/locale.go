package stats

import (
	"fmt"
	"strings"
	"time"
)

// Locale selects the language of the daily trend labels.
type Locale string

const (
	LocaleES Locale = "es"
	LocaleEN Locale = "en"
)

var (
	weekdaysES = [7]string{"dom", "lun", "mar", "mié", "jue", "vie", "sáb"}
	monthsES   = [12]string{"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sept", "oct", "nov", "dic"}
)

// ParseLocale accepts "es", "en" and regional forms such as "en-US";
// anything else is Spanish.
func ParseLocale(s string) Locale {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "en" || strings.HasPrefix(s, "en-") || strings.HasPrefix(s, "en_") {
		return LocaleEN
	}
	return LocaleES
}

// DayLabel renders a short weekday, day and month, e.g. "lun, 3 mar" or
// "Mon, Mar 3".
func (l Locale) DayLabel(d time.Time) string {
	if l == LocaleEN {
		return d.Format("Mon, Jan 2")
	}
	return fmt.Sprintf("%s, %d %s", weekdaysES[d.Weekday()], d.Day(), monthsES[d.Month()-1])
}
