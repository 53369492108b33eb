package maturity

import (
	"fmt"

	"github.com/the-livingstone/sdb-options/internal/model"
)

// Month holds the display name and single-letter codes for one calendar month.
type Month struct {
	Number     int
	Short      string // three-letter display name
	FutureCode byte   // futures month code (IMM convention)
	CallCode   byte
	PutCode    byte
}

// Sep and Oct puts step outside the usual M-X run: the standard letters (U, V)
// collide with the futures codes of the same months.
var months = [13]Month{
	{}, // 1-based
	{1, "Jan", 'F', 'A', 'M'},
	{2, "Feb", 'G', 'B', 'N'},
	{3, "Mar", 'H', 'C', 'O'},
	{4, "Apr", 'J', 'D', 'P'},
	{5, "May", 'K', 'E', 'Q'},
	{6, "Jun", 'M', 'F', 'R'},
	{7, "Jul", 'N', 'G', 'S'},
	{8, "Aug", 'Q', 'H', 'T'},
	{9, "Sep", 'U', 'I', 'Y'},
	{10, "Oct", 'V', 'J', 'Z'},
	{11, "Nov", 'X', 'K', 'W'},
	{12, "Dec", 'Z', 'L', 'X'},
}

// Of returns the code row for month m (1-12).
func Of(m int) (Month, bool) {
	if m < 1 || m > 12 {
		return Month{}, false
	}
	return months[m], true
}

// ByFutureCode returns the month number for a futures month letter.
func ByFutureCode(code byte) (int, bool) {
	for m := 1; m <= 12; m++ {
		if months[m].FutureCode == code {
			return m, true
		}
	}
	return 0, false
}

// Compact formats a date as "<day?><futureCode><year>", e.g. "F2016" or
// "15F2016". Returns "" for an out-of-range month.
func Compact(d model.Date) string {
	row, ok := Of(d.Month)
	if !ok {
		return ""
	}
	if d.Day > 0 {
		return fmt.Sprintf("%d%c%d", d.Day, row.FutureCode, d.Year)
	}
	return fmt.Sprintf("%c%d", row.FutureCode, d.Year)
}

// Pretty formats a date as "<day?> <Short> <year>", e.g. "Jan 2016" or
// "15 Jan 2016". Returns "" for an out-of-range month.
func Pretty(d model.Date) string {
	row, ok := Of(d.Month)
	if !ok {
		return ""
	}
	if d.Day > 0 {
		return fmt.Sprintf("%d %s %d", d.Day, row.Short, d.Year)
	}
	return fmt.Sprintf("%s %d", row.Short, d.Year)
}

// CompactRange formats a near/far pair for spread-like instruments. The order
// is positional: near always comes first, whatever the calendar order.
func CompactRange(near, far model.Date) string {
	return Compact(near) + "-" + Compact(far)
}

// PrettyRange is the human-readable variant of CompactRange.
func PrettyRange(near, far model.Date) string {
	return Pretty(near) + "-" + Pretty(far)
}
