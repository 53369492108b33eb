package option

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/the-livingstone/sdb-options/internal/model"
)

// Diff renders what changed between the load-time reference and the live
// record. The strike structure is excluded: strike churn is large, routine,
// and reported separately through NewStrikes and StrikeRefresh.
func Diff(reference, live *model.TreeNode) string {
	return cmp.Diff(reference, live,
		cmpopts.IgnoreFields(model.TreeNode{}, "StrikePrices"),
		cmpopts.EquateEmpty(),
	)
}

// ContractChange is one contract's pending update.
type ContractChange struct {
	Diff       string
	NewStrikes map[model.Side][]float64
}

// PendingChanges summarizes everything a write-back step would send for the
// series and its weekly sub-series.
type PendingChanges struct {
	// NewSeries is set when the series folder itself does not exist yet.
	NewSeries  bool
	SeriesDiff string

	// Creates lists symbol IDs of contracts to create; Updates maps symbol
	// IDs to their changes.
	Creates []string
	Updates map[string]ContractChange

	// WeeklyDiffs maps weekly-common folder names to their folder diffs.
	WeeklyDiffs map[string]string
}

// Empty reports whether nothing would be written.
func (p *PendingChanges) Empty() bool {
	return !p.NewSeries && p.SeriesDiff == "" &&
		len(p.Creates) == 0 && len(p.Updates) == 0 && len(p.WeeklyDiffs) == 0
}

// PendingChanges computes the series' current write-back summary, weekly
// sub-series included.
func (s *Series) PendingChanges() *PendingChanges {
	p := &PendingChanges{
		Updates:     map[string]ContractChange{},
		WeeklyDiffs: map[string]string{},
	}
	if s.Reference == nil {
		p.NewSeries = true
	} else if d := Diff(s.Reference, s.Instrument); d != "" {
		p.SeriesDiff = d
	}
	s.collect(p)
	for _, wc := range s.WeeklyCommons {
		if d := Diff(wc.Reference, wc.Payload); d != "" {
			p.WeeklyDiffs[wc.CommonName] = d
		}
		for _, folder := range wc.WeekFolders {
			folder.collect(p)
		}
	}
	return p
}

func (s *Series) collect(p *PendingChanges) {
	for _, exp := range s.NewExpirations {
		p.Creates = append(p.Creates, exp.SymbolID())
	}
	for _, exp := range s.UpdateExpirations {
		change := ContractChange{NewStrikes: exp.NewStrikes}
		if exp.Reference != nil {
			change.Diff = Diff(exp.Reference, exp.Instrument)
		}
		p.Updates[exp.SymbolID()] = change
	}
}
