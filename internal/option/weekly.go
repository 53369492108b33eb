package option

import (
	"context"
	"fmt"
	"strings"

	"github.com/the-livingstone/sdb-options/internal/model"
)

// BuildWeeklyCommon resolves or synthesizes the grouping folder for a named
// weekly cycle. An ID wins over a supplied payload; with neither, a fresh
// abstract placeholder under the series is synthesized.
func BuildWeeklyCommon(ctx context.Context, s *Series, payload *model.TreeNode, id, commonName string) (*WeeklyCommon, error) {
	switch {
	case id != "":
		node, err := s.deps.Tree.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("fetch weekly common %s: %w", id, err)
		}
		if node == nil {
			return nil, fmt.Errorf("weekly common %s not found", id)
		}
		payload = node
		commonName = node.Name
	case payload != nil:
		// use as-is
	default:
		if commonName == "" {
			commonName = "Weekly"
		}
		payload = &model.TreeNode{
			IsAbstract: true,
			Name:       commonName,
			Path:       append([]string{}, s.Instrument.Path...),
		}
	}

	return &WeeklyCommon{
		CommonName: commonName,
		Payload:    payload,
		Reference:  payload.Clone(),
	}, nil
}

// loadWeekFolders resolves the per-week sub-series stored under the common
// folder. Week folders are abstract children whose ticker carries the week
// digit (1-5); each resolves like a regular series scoped to the common
// folder, reusing the already-fetched series subtree.
func (wc *WeeklyCommon) loadWeekFolders(ctx context.Context, s *Series, seriesTree []model.TreeNode) error {
	if wc.Payload.ID == "" {
		return nil
	}
	for i := range seriesTree {
		n := &seriesTree[i]
		if !n.IsAbstract || n.Ticker == "" || !n.ChildOf(wc.Payload.Path) {
			continue
		}
		week := weekNumberFromTicker(n.Ticker)
		if week == 0 {
			continue
		}
		folder, err := ResolveSeries(ctx, s.deps, Params{
			Ticker:         n.Ticker,
			Exchange:       s.Exchange,
			Kind:           s.Kind,
			WeekNumber:     week,
			ParentTree:     seriesTree,
			ParentFolderID: wc.Payload.ID,
		})
		if err != nil {
			s.deps.Logger.Warn("weekly folder did not resolve, check that folder name and ticker match",
				"ticker", n.Ticker, "exchange", s.Exchange, "error", err)
			continue
		}
		wc.WeekFolders = append(wc.WeekFolders, folder)
	}
	return nil
}

// TickerTemplate derives the week-folder ticker pattern, the week digit
// replaced by a placeholder: EW3 becomes EW$.
func (wc *WeeklyCommon) TickerTemplate() string {
	if len(wc.WeekFolders) == 0 {
		return ""
	}
	t := wc.WeekFolders[0].Ticker
	for d := byte('1'); d <= '5'; d++ {
		t = strings.ReplaceAll(t, string(d), "$")
	}
	return t
}

// weekNumberFromTicker extracts the week digit from a weekly ticker, 0 when
// there is none.
func weekNumberFromTicker(ticker string) int {
	for _, r := range ticker {
		if r >= '1' && r <= '5' {
			return int(r - '0')
		}
	}
	return 0
}

// FindWeekFolder returns the sub-series for one week number across all
// weekly commons of the series, nil when absent.
func (s *Series) FindWeekFolder(week int) *Series {
	for _, wc := range s.WeeklyCommons {
		for _, f := range wc.WeekFolders {
			if f.WeekNumber == week {
				return f
			}
		}
	}
	return nil
}
