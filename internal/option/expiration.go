package option

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/the-livingstone/sdb-options/internal/maturity"
	"github.com/the-livingstone/sdb-options/internal/model"
)

// Input carries the optional pieces of one expiration build. Payload is the
// existing contract node when building from catalog state; everything else
// overrides or supplements what the node stores.
type Input struct {
	Payload *model.TreeNode

	// Expiration is an explicit ISO calendar date string. ExpirationDate,
	// when set, wins over the string form.
	Expiration     string
	ExpirationDate time.Time

	// Maturity is an explicit label in any shape maturity.Normalize accepts.
	Maturity string

	// Strikes are plain per-side price lists merged into the strike
	// structure after defaults are applied.
	Strikes map[model.Side][]float64

	// Underlying is the resolution hint handed to the underlying resolver
	// for option-on-future contracts.
	Underlying string
}

// BuildExpiration assembles a fully-populated contract record under the
// series: expiration date with stored-expiry fallback, maturity label through
// its priority chain, compiled inherited attributes, path and strike-structure
// defaults.
func BuildExpiration(ctx context.Context, s *Series, in Input) (*Expiration, error) {
	payload := in.Payload
	newContract := payload == nil
	if newContract {
		payload = &model.TreeNode{}
	}

	date, err := resolveDate(in, payload)
	if err != nil {
		return nil, err
	}
	label, err := resolveMaturity(in, payload, date)
	if err != nil {
		return nil, err
	}

	exp := &Expiration{
		Ticker:         s.Ticker,
		Exchange:       s.Exchange,
		Kind:           s.Kind,
		ExpirationDate: date,
		Maturity:       label,
		Instrument:     payload,
		NewStrikes:     map[model.Side][]float64{},
	}
	if !newContract {
		exp.Reference = payload.Clone()
	}

	seriesAttrs, err := s.Instrument.Attributes()
	if err != nil {
		return nil, fmt.Errorf("series attributes: %w", err)
	}
	exp.CompiledParent = s.deps.Inherit(
		[]model.Attributes{s.CompiledParent, seriesAttrs}, true)

	if newContract {
		if len(in.Strikes) == 0 {
			return nil, fmt.Errorf("%s.%s %s: strikes are required for a new contract",
				s.Ticker, s.Exchange, label)
		}
		fillDates(payload, s.Exchange, date, label)
		payload.Name = exp.SymbolicMaturity()
	}

	if len(payload.Path) == 0 {
		payload.Path = append([]string{}, s.Instrument.Path...)
		if s.Instrument.ID == "" {
			payload.Path = append(payload.Path, model.NewSeriesPlaceholder)
		}
	}

	if payload.StrikePrices == nil {
		payload.StrikePrices = &model.StrikePrices{}
	}
	if payload.StrikePrices.Put == nil {
		payload.StrikePrices.Put = []model.StrikeEntry{}
	}
	if payload.StrikePrices.Call == nil {
		payload.StrikePrices.Call = []model.StrikeEntry{}
	}

	if len(in.Strikes) > 0 {
		exp.AddStrikes(in.Strikes)
	}
	if s.Kind == model.KindOptionOnFuture && in.Underlying != "" {
		if s.deps.Underlying == nil {
			return nil, fmt.Errorf("underlying %s: no resolver configured", in.Underlying)
		}
		ref, err := s.deps.Underlying.ResolveUnderlying(ctx, in.Underlying, date)
		if err != nil {
			return nil, fmt.Errorf("resolve underlying %s: %w", in.Underlying, err)
		}
		payload.UnderlyingID = ref
	}
	return exp, nil
}

// resolveDate picks the contract's calendar date: explicit value, explicit
// string, then the node's stored expiry.
func resolveDate(in Input, payload *model.TreeNode) (time.Time, error) {
	if !in.ExpirationDate.IsZero() {
		return in.ExpirationDate.Truncate(24 * time.Hour), nil
	}
	if in.Expiration != "" {
		if d, err := time.Parse("2006-01-02", in.Expiration); err == nil {
			return d, nil
		}
		// fall through to the stored expiry; a node-less build has nothing
		// to fall back on
		if payload.Expiry == nil {
			return time.Time{}, fmt.Errorf("%q: %w", in.Expiration, ErrExpirationFormat)
		}
	}
	if payload.Expiry != nil {
		return payload.Expiry.ToTime(), nil
	}
	return time.Time{}, fmt.Errorf("no expiration date given or stored: %w", ErrExpirationFormat)
}

// resolveMaturity picks the maturity label: explicit argument, the stored
// maturityDate field, then YYYY-MM derived from the date.
func resolveMaturity(in Input, payload *model.TreeNode, date time.Time) (string, error) {
	if in.Maturity != "" {
		label, ok := maturity.Normalize(in.Maturity)
		if !ok {
			return "", fmt.Errorf("%q: %w", in.Maturity, ErrMaturityFormat)
		}
		return label, nil
	}
	if payload.MaturityDate != nil && !payload.MaturityDate.IsZero() {
		label := maturity.NormalizeDate(*payload.MaturityDate)
		if label == "" {
			return "", fmt.Errorf("stored maturityDate: %w", ErrMaturityFormat)
		}
		return label, nil
	}
	return date.Format("2006-01"), nil
}

// fillDates writes the maturityDate/expiry pair on a freshly built contract.
// CBOE and FORTS list day-precise maturities, everything else keeps the
// month-level label with a day-precise expiry.
func fillDates(payload *model.TreeNode, exchange string, date time.Time, label string) {
	full := model.NewDate(date)
	switch exchange {
	case "CBOE", "FORTS":
		payload.MaturityDate = &full
		payload.Expiry = &full
	default:
		md := model.Date{}
		if y, err := strconv.Atoi(label[:4]); err == nil {
			md.Year = y
		}
		if m, err := strconv.Atoi(label[5:7]); err == nil {
			md.Month = m
		}
		payload.MaturityDate = &md
		payload.Expiry = &full
	}
}

// SymbolicMaturity renders the contract's maturity in symbolic letter-code
// form ("Z2021", "15Z2021"), preferring the stored maturityDate.
func (e *Expiration) SymbolicMaturity() string {
	if e.Instrument != nil && e.Instrument.MaturityDate != nil && !e.Instrument.MaturityDate.IsZero() {
		if sym, ok := maturity.Symbolic(maturity.NormalizeDate(*e.Instrument.MaturityDate)); ok {
			return sym
		}
	}
	if sym, ok := maturity.Symbolic(e.Maturity); ok {
		return sym
	}
	return ""
}

// SymbolID is the contract group's exchange-wide identifier:
// TICKER.EXCHANGE.15Z2021.
func (e *Expiration) SymbolID() string {
	return fmt.Sprintf("%s.%s.%s", e.Ticker, e.Exchange, e.SymbolicMaturity())
}

// StrikeSymbolID is the identifier of one strike leg: the group ID plus side
// letter and the strike with "." swapped for "_" (AAPL.CBOE.15Z2021.C22_5).
func (e *Expiration) StrikeSymbolID(strike float64, side model.Side) string {
	return fmt.Sprintf("%s.%c%s", e.SymbolID(), side[0], formatStrike(strike))
}

// formatStrike renders a strike price the way symbol IDs carry it: no
// trailing ".0", decimal point replaced by an underscore.
func formatStrike(strike float64) string {
	s := strconv.FormatFloat(strike, 'f', -1, 64)
	return strings.ReplaceAll(s, ".", "_")
}
