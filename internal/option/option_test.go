package option

import (
	"context"
	"time"

	"github.com/the-livingstone/sdb-options/internal/model"
	"github.com/the-livingstone/sdb-options/internal/tree"
)

// fixture is a small CME wheat-options catalog: two monthly contracts, one
// weekly cycle with a week-3 folder holding one contract.
type fixture struct {
	mem *tree.Memory

	optionBranch *model.TreeNode
	futureBranch *model.TreeNode
	cmeFolder    *model.TreeNode
	series       *model.TreeNode
	janContract  *model.TreeNode
	febContract  *model.TreeNode
	weeklyFolder *model.TreeNode
	week3Series  *model.TreeNode
	week3Jan     *model.TreeNode
}

func available() *bool {
	v := true
	return &v
}

func entries(prices ...float64) []model.StrikeEntry {
	out := make([]model.StrikeEntry, 0, len(prices))
	for _, p := range prices {
		out = append(out, model.StrikeEntry{StrikePrice: p, IsAvailable: available()})
	}
	return out
}

func newFixture() *fixture {
	f := &fixture{mem: tree.NewMemory()}
	f.mem.SetExchanges([]model.Exchange{{ID: "ex-cme", Name: "CME"}})

	root := f.mem.Root()
	f.optionBranch = f.mem.MustAdd(root, &model.TreeNode{
		Name: string(model.KindOption), IsAbstract: true,
	})
	f.futureBranch = f.mem.MustAdd(root, &model.TreeNode{
		Name: string(model.KindOptionOnFuture), IsAbstract: true,
	})
	f.mem.MustAdd(f.futureBranch.ID, &model.TreeNode{
		Name: "CME", IsAbstract: true,
	})
	f.cmeFolder = f.mem.MustAdd(f.optionBranch.ID, &model.TreeNode{
		Name: "CME", IsAbstract: true, ExchangeID: "ex-cme",
		Extra: model.Attributes{"currency": "USD"},
	})
	f.series = f.mem.MustAdd(f.cmeFolder.ID, &model.TreeNode{
		Name: "ZW", Ticker: "ZW", ShortName: "Wheat", IsAbstract: true,
		Extra: model.Attributes{"contractMultiplier": 50.0},
	})
	f.janContract = f.mem.MustAdd(f.series.ID, &model.TreeNode{
		Name:         "F2016",
		Expiry:       &model.Date{Year: 2016, Month: 1, Day: 15},
		MaturityDate: &model.Date{Year: 2016, Month: 1},
		StrikePrices: &model.StrikePrices{
			Put:  entries(400, 410, 420, 430),
			Call: entries(400, 410, 420, 430),
		},
	})
	f.febContract = f.mem.MustAdd(f.series.ID, &model.TreeNode{
		Name:         "G2016",
		Expiry:       &model.Date{Year: 2016, Month: 2, Day: 19},
		MaturityDate: &model.Date{Year: 2016, Month: 2},
		StrikePrices: &model.StrikePrices{
			Put:  entries(400, 410),
			Call: entries(400, 410),
		},
	})
	f.weeklyFolder = f.mem.MustAdd(f.series.ID, &model.TreeNode{
		Name: "Weekly", IsAbstract: true,
	})
	f.week3Series = f.mem.MustAdd(f.weeklyFolder.ID, &model.TreeNode{
		Name: "ZW3", Ticker: "ZW3", IsAbstract: true,
	})
	f.week3Jan = f.mem.MustAdd(f.week3Series.ID, &model.TreeNode{
		Name:         "15F2016",
		Expiry:       &model.Date{Year: 2016, Month: 1, Day: 15},
		MaturityDate: &model.Date{Year: 2016, Month: 1, Day: 15},
		StrikePrices: &model.StrikePrices{
			Put:  entries(405, 415),
			Call: entries(405, 415),
		},
	})
	return f
}

func (f *fixture) deps() Deps {
	return Deps{Tree: f.mem}
}

func (f *fixture) resolve(ctx context.Context) (*Series, error) {
	return ResolveSeries(ctx, f.deps(), Params{
		Ticker:   "ZW",
		Exchange: "CME",
		Kind:     model.KindOption,
	})
}

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}
