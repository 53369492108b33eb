package option

import "errors"

// Resolution errors. All are terminal for the current call: ambiguity and
// missing data need caller input, not another attempt.
var (
	// ErrExchangeNotFound: no candidate exchange folder matches the exchange name.
	ErrExchangeNotFound = errors.New("exchange not found")

	// ErrAmbiguousSeries: zero or more than one ticker-named folder among
	// multiple candidate exchanges; the caller must supply a product kind or
	// fix the ticker.
	ErrAmbiguousSeries = errors.New("cannot select exchange folder")

	// ErrSeriesNotFound: the series does not exist and no creation hint
	// (shortname) was given.
	ErrSeriesNotFound = errors.New("series not found")

	// ErrExpirationFormat: expiration date neither parsed from explicit input
	// nor recoverable from stored attributes.
	ErrExpirationFormat = errors.New("invalid expiration date")

	// ErrMaturityFormat: maturity label could not be determined through any
	// fallback.
	ErrMaturityFormat = errors.New("cannot format maturity")
)
