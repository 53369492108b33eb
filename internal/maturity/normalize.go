package maturity

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/the-livingstone/sdb-options/internal/model"
)

// Input shapes accepted by Normalize. Month may appear as a number or as a
// futures letter; year as two or four digits.
var (
	reCalendar = regexp.MustCompile(`^(?P<year>\d{4})-?(?P<month>(0|1)?\d)-?(?P<day>\d{0,2})$`)
	reMonthYr  = regexp.MustCompile(`^(?P<month>(0|1)?\d|[FGHJKMNQUVXZ])-?(?P<year>(20)?\d{2})$`)
	reCodeYr1  = regexp.MustCompile(`^(?P<month>[FGHJKMNQUVXZ])-?(?P<year>\d)$`)
	reDayCode  = regexp.MustCompile(`^(?P<day>\d{1,2})(?P<month>[FGHJKMNQUVXZ])(?P<year>(20)?\d{2})$`)
	reEuropean = regexp.MustCompile(`^(?P<day>\d{2})-(?P<month>\d{2})-(?P<year>\d{4})$`)
)

// NormalizeDate renders a catalog date as a YYYY-MM or YYYY-MM-DD label.
func NormalizeDate(d model.Date) string {
	s := fmt.Sprintf("%d-%02d", d.Year, d.Month)
	if d.Day > 0 {
		s += fmt.Sprintf("-%02d", d.Day)
	}
	return s
}

// Normalize makes a well-formed maturity label (YYYY-MM or YYYY-MM-DD) from
// any of the shapes the catalog's operators feed it: "2021-08-01",
// "20210801", "2021-8", "Q21", "Q2021", "8-2021", "082021", "1Q21", "01Q2021",
// "01-08-2021". Reports false when the input matches none of them.
func Normalize(input string) (string, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", false
	}

	if m := match(reCalendar, input); m != nil {
		out := m["year"] + "-" + pad(m["month"])
		switch len(m["day"]) {
		case 2:
			return out + "-" + m["day"], true
		case 1:
			return out + "-0" + m["day"], true
		}
		return out, true
	}

	if m := match(reMonthYr, input); m != nil {
		month, ok := monthOf(m["month"])
		if !ok {
			return "", false
		}
		return fmt.Sprintf("%s-%02d", fullYear(m["year"]), month), true
	}

	// Single-digit year like "Q1": decade rolls forward until the year is
	// not in the past.
	if m := match(reCodeYr1, input); m != nil {
		month, ok := monthOf(m["month"])
		if !ok {
			return "", false
		}
		year, _ := strconv.Atoi("202" + m["year"])
		for year < time.Now().Year() {
			year += 10
		}
		return fmt.Sprintf("%d-%02d", year, month), true
	}

	if m := match(reDayCode, input); m != nil {
		month, ok := monthOf(m["month"])
		if !ok {
			return "", false
		}
		return fmt.Sprintf("%s-%02d-%s", fullYear(m["year"]), month, pad(m["day"])), true
	}

	if m := match(reEuropean, input); m != nil {
		return fmt.Sprintf("%s-%s-%s", m["year"], m["month"], m["day"]), true
	}

	return "", false
}

// Symbolic converts a normalized maturity label to its symbolic form:
// "2021-12" becomes "Z2021", "2021-12-15" becomes "15Z2021".
func Symbolic(maturity string) (string, bool) {
	parts := strings.Split(maturity, "-")
	switch len(parts) {
	case 2:
		year, month, ok := yearMonth(parts[0], parts[1])
		if !ok {
			return "", false
		}
		row, _ := Of(month)
		return fmt.Sprintf("%c%d", row.FutureCode, year), true
	case 3:
		year, month, ok := yearMonth(parts[0], parts[1])
		if !ok {
			return "", false
		}
		day, err := strconv.Atoi(parts[2])
		if err != nil || day < 1 || day > 31 {
			return "", false
		}
		row, _ := Of(month)
		return fmt.Sprintf("%d%c%d", day, row.FutureCode, year), true
	}
	return "", false
}

// FromSymbolic converts a symbolic maturity ("Z2021", "15Z2021") back to a
// normalized label.
func FromSymbolic(sym string) (string, bool) {
	if len(sym) < 5 {
		return "", false
	}
	code := sym[len(sym)-5]
	month, ok := ByFutureCode(code)
	if !ok {
		return "", false
	}
	year := sym[len(sym)-4:]
	if _, err := strconv.Atoi(year); err != nil {
		return "", false
	}
	day := sym[:len(sym)-5]
	switch len(day) {
	case 0:
		return fmt.Sprintf("%s-%02d", year, month), true
	case 1:
		return fmt.Sprintf("%s-%02d-0%s", year, month, day), true
	case 2:
		return fmt.Sprintf("%s-%02d-%s", year, month, day), true
	}
	return "", false
}

func match(re *regexp.Regexp, s string) map[string]string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	out := map[string]string{}
	for i, name := range re.SubexpNames() {
		if name != "" {
			out[name] = m[i]
		}
	}
	return out
}

func monthOf(s string) (int, bool) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 || n > 12 {
			return 0, false
		}
		return n, true
	}
	if len(s) == 1 {
		return ByFutureCode(s[0])
	}
	return 0, false
}

func yearMonth(ys, ms string) (int, int, bool) {
	year, err := strconv.Atoi(ys)
	if err != nil {
		return 0, 0, false
	}
	month, err := strconv.Atoi(ms)
	if err != nil || month < 1 || month > 12 {
		return 0, 0, false
	}
	return year, month, true
}

func fullYear(s string) string {
	if len(s) == 2 {
		return "20" + s
	}
	return s
}

func pad(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
