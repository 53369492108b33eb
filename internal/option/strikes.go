package option

import (
	"sort"

	"github.com/the-livingstone/sdb-options/internal/model"
)

// minStrikesAcceptable is the smallest refresh input considered plausible.
// minIntersectionSlack bounds how far a refresh may drift from the live set
// before it is rejected as bad data.
const (
	minStrikesAcceptable = 7
	minIntersectionSlack = 16
)

// AddStrikes merges per-side strike prices into the contract. Prices already
// present are ignored, the rest are appended available-by-default, both sides
// stay sorted. Additions accumulate in NewStrikes for the change report.
func (e *Expiration) AddStrikes(strikes map[model.Side][]float64) {
	for _, side := range model.Sides {
		existing := priceSet(e.Instrument.StrikePrices.Side(side))
		var added []float64
		entries := e.Instrument.StrikePrices.Side(side)
		for _, price := range strikes[side] {
			if _, ok := existing[price]; ok {
				continue
			}
			existing[price] = struct{}{}
			avail := true
			entries = append(entries, model.StrikeEntry{StrikePrice: price, IsAvailable: &avail})
			added = append(added, price)
		}
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].StrikePrice < entries[j].StrikePrice
		})
		e.Instrument.StrikePrices.SetSide(side, entries)
		if len(added) > 0 {
			sort.Float64s(added)
			e.NewStrikes[side] = append(e.NewStrikes[side], added...)
		}
	}
}

// StrikeRefresh reports what a refresh did per side.
type StrikeRefresh struct {
	Added     map[model.Side][]float64
	Removed   map[model.Side][]float64
	Preserved map[model.Side][]float64
}

// RefreshStrikes replaces the contract's strike set with the given active
// one. Strikes referenced by used symbols survive removal. In safe mode a
// refresh that is empty on either side, too small, or too different from the
// live set is rejected wholesale: a feed glitch must not wipe a book.
// Returns nil when the refresh was refused.
func (e *Expiration) RefreshStrikes(strikes map[model.Side][]float64, used UsedSymbols, safe bool) *StrikeRefresh {
	incoming := map[model.Side]map[float64]struct{}{}
	for _, side := range model.Sides {
		incoming[side] = map[float64]struct{}{}
		for _, p := range strikes[side] {
			incoming[side][p] = struct{}{}
		}
	}

	if safe && !e.plausibleRefresh(incoming) {
		return nil
	}

	result := &StrikeRefresh{
		Added:     map[model.Side][]float64{},
		Removed:   map[model.Side][]float64{},
		Preserved: map[model.Side][]float64{},
	}
	for _, side := range model.Sides {
		live := e.Instrument.StrikePrices.Side(side)
		kept := make([]model.StrikeEntry, 0, len(incoming[side]))
		liveSet := map[float64]model.StrikeEntry{}
		for _, entry := range live {
			liveSet[entry.StrikePrice] = entry
			if _, active := incoming[side][entry.StrikePrice]; active {
				kept = append(kept, entry)
				continue
			}
			if used != nil && used.Contains(e.StrikeSymbolID(entry.StrikePrice, side)) {
				kept = append(kept, entry)
				result.Preserved[side] = append(result.Preserved[side], entry.StrikePrice)
				continue
			}
			result.Removed[side] = append(result.Removed[side], entry.StrikePrice)
		}
		for _, p := range strikes[side] {
			if _, present := liveSet[p]; present {
				continue
			}
			avail := true
			kept = append(kept, model.StrikeEntry{StrikePrice: p, IsAvailable: &avail})
			result.Added[side] = append(result.Added[side], p)
		}
		sort.Slice(kept, func(i, j int) bool {
			return kept[i].StrikePrice < kept[j].StrikePrice
		})
		e.Instrument.StrikePrices.SetSide(side, kept)
		sort.Float64s(result.Added[side])
		sort.Float64s(result.Removed[side])
		sort.Float64s(result.Preserved[side])
	}
	return result
}

// plausibleRefresh applies the safety gates: both sides non-empty, enough
// strikes in total, and a large enough overlap with the live set.
func (e *Expiration) plausibleRefresh(incoming map[model.Side]map[float64]struct{}) bool {
	if len(incoming[model.Put]) == 0 || len(incoming[model.Call]) == 0 {
		return false
	}
	total := len(incoming[model.Put]) + len(incoming[model.Call])
	if total < minStrikesAcceptable {
		return false
	}
	liveTotal := len(e.Instrument.StrikePrices.Put) + len(e.Instrument.StrikePrices.Call)
	minIntersection := liveTotal - minIntersectionSlack
	overlap := 0
	for _, side := range model.Sides {
		for _, entry := range e.Instrument.StrikePrices.Side(side) {
			if _, ok := incoming[side][entry.StrikePrice]; ok {
				overlap++
			}
		}
	}
	return overlap >= minIntersection
}

// SetStrikeAvailability flips isAvailable on the given strikes; prices not
// present on the contract are ignored.
func (e *Expiration) SetStrikeAvailability(strikes map[model.Side][]float64, available bool) {
	for _, side := range model.Sides {
		want := map[float64]struct{}{}
		for _, p := range strikes[side] {
			want[p] = struct{}{}
		}
		entries := e.Instrument.StrikePrices.Side(side)
		for i := range entries {
			if _, ok := want[entries[i].StrikePrice]; ok {
				v := available
				entries[i].IsAvailable = &v
			}
		}
	}
}

func priceSet(entries []model.StrikeEntry) map[float64]struct{} {
	out := make(map[float64]struct{}, len(entries))
	for _, e := range entries {
		out[e.StrikePrice] = struct{}{}
	}
	return out
}
