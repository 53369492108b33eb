// Package maturity converts between the catalog's maturity representations:
// calendar dates, YYYY-MM[-DD] maturity labels, symbolic month codes
// ("Z2021", "15F2016") and human-readable labels ("Jan 2016").
//
// Month letter codes follow the futures convention (F through Z); call and
// put codes are single letters chosen so that the three codes of any one
// month never collide, which keeps symbolic maturities unambiguous.
package maturity
