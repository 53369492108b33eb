package option

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/the-livingstone/sdb-options/internal/model"
	"github.com/the-livingstone/sdb-options/internal/tree"
)

// Params describe one series resolution request.
type Params struct {
	Ticker   string
	Exchange string

	// Shortname is required only when the series does not exist yet; it
	// seeds the synthesized record.
	Shortname string

	// Kind may be empty; the parent folder resolver then infers it.
	Kind model.ProductKind

	// WeekNumber 0 means the main (monthly) series: weekly groupings are
	// detected. A positive value addresses one specific week folder and
	// skips grouping entirely.
	WeekNumber int

	// ParentTree is an optional already-fetched snapshot covering the
	// parent folder's subtree. When nil the catalog is queried.
	ParentTree []model.TreeNode

	// ParentFolderID skips parent folder resolution when already known
	// (weekly sub-series reuse the main series' resolution).
	ParentFolderID string
}

// ResolveSeries locates or synthesizes the master record for an option
// series and assembles its expirations and weekly groupings.
func ResolveSeries(ctx context.Context, deps Deps, p Params) (*Series, error) {
	deps = deps.withDefaults()

	parentID, kind := p.ParentFolderID, p.Kind
	if parentID == "" {
		var err error
		parentID, kind, err = ResolveParentFolder(ctx, deps.Tree, p.Ticker, p.Exchange, p.Kind)
		if err != nil {
			return nil, err
		}
	}

	s := &Series{
		Ticker:         p.Ticker,
		Exchange:       p.Exchange,
		Kind:           kind,
		WeekNumber:     p.WeekNumber,
		ParentFolderID: parentID,
		deps:           deps,
	}

	source := tree.SourceFor(p.ParentTree, deps.Tree)
	parentTree, err := source.Subtree(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("fetch subtree of %s: %w", parentID, err)
	}

	instrument := tree.Snapshot(parentTree).Find(func(n *model.TreeNode) bool {
		return n.Name == p.Ticker && n.IsAbstract
	})

	if instrument == nil {
		if p.Shortname == "" {
			return nil, fmt.Errorf("%s.%s: %w", p.Ticker, p.Exchange, ErrSeriesNotFound)
		}
		if err := s.synthesize(ctx, p.Shortname); err != nil {
			return nil, err
		}
		return s, nil
	}

	s.Instrument = instrument.Clone()
	s.Reference = instrument.Clone()
	s.CompiledParent, err = compileChain(ctx, deps, s.Instrument.ParentPath())
	if err != nil {
		return nil, err
	}

	seriesTree, err := tree.Snapshot(parentTree).Subtree(ctx, s.Instrument.ID)
	if err != nil {
		return nil, err
	}
	if err := s.setContracts(ctx, seriesTree); err != nil {
		return nil, err
	}
	return s, nil
}

// setContracts partitions the series subtree into concrete expirations and,
// for the main series, weekly grouping folders.
func (s *Series) setContracts(ctx context.Context, seriesTree []model.TreeNode) error {
	for i := range seriesTree {
		n := &seriesTree[i]
		if !n.ChildOf(s.Instrument.Path) {
			continue
		}
		if !n.IsAbstract {
			exp, err := BuildExpiration(ctx, s, Input{Payload: n.Clone()})
			if err != nil {
				return fmt.Errorf("contract %s: %w", n.ID, err)
			}
			s.Contracts = append(s.Contracts, exp)
			continue
		}
		if s.WeekNumber == 0 && strings.Contains(strings.ToLower(n.Name), "weekly") {
			wc, err := BuildWeeklyCommon(ctx, s, nil, n.ID, n.Name)
			if err != nil {
				return fmt.Errorf("weekly common %s: %w", n.ID, err)
			}
			if err := wc.loadWeekFolders(ctx, s, seriesTree); err != nil {
				return err
			}
			s.WeeklyCommons = append(s.WeeklyCommons, wc)
		}
	}
	return nil
}

// synthesize builds the minimal new-series record the write-back step will
// create. The record stays unpersisted: its path ends at the parent folder.
func (s *Series) synthesize(ctx context.Context, shortname string) error {
	parent, err := s.deps.Tree.Get(ctx, s.ParentFolderID)
	if err != nil {
		return fmt.Errorf("fetch parent folder %s: %w", s.ParentFolderID, err)
	}
	if parent == nil {
		return fmt.Errorf("parent folder %s vanished during resolution", s.ParentFolderID)
	}

	s.Instrument = &model.TreeNode{
		IsAbstract:  true,
		Name:        s.Ticker,
		Ticker:      s.Ticker,
		ShortName:   shortname,
		Description: fmt.Sprintf("Options on %s", shortname),
		Path:        append([]string{}, parent.Path...),
	}
	if s.WeekNumber == 0 {
		s.Instrument.Underlying = s.Ticker
	}

	s.CompiledParent, err = compileChain(ctx, s.deps, parent.Path)
	return err
}

// compileChain fetches every node of an ancestor ID chain and folds their
// attributes into one compiled record, root first.
func compileChain(ctx context.Context, deps Deps, ids []string) (model.Attributes, error) {
	chain := make([]model.Attributes, 0, len(ids))
	for _, id := range ids {
		node, err := deps.Tree.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("fetch ancestor %s: %w", id, err)
		}
		if node == nil {
			continue
		}
		attrs, err := node.Attributes()
		if err != nil {
			return nil, fmt.Errorf("ancestor %s attributes: %w", id, err)
		}
		chain = append(chain, attrs)
	}
	return deps.Inherit(chain, true), nil
}

// FindExpiration looks up one existing contract by expiration date, maturity
// label, or symbolic maturity ("Z2021", "15Z2021"). The second return names
// the folder that holds the match: weekly contracts live under week
// sub-series, not the main one. More than one match means the criteria are
// too loose; nothing is returned then.
func (s *Series) FindExpiration(expiration time.Time, maturity string) (*Expiration, *Series, bool) {
	folders := []*Series{s}
	if s.WeekNumber == 0 {
		for _, wc := range s.WeeklyCommons {
			folders = append(folders, wc.WeekFolders...)
		}
	}

	var (
		found  *Expiration
		holder *Series
		count  int
	)
	for _, folder := range folders {
		for _, c := range folder.Contracts {
			if !c.Tradeable() {
				continue
			}
			if matchesExpiration(c, expiration, maturity) {
				found, holder = c, folder
				count++
			}
		}
	}
	if count != 1 {
		if count > 1 {
			s.deps.Logger.Error("more than one expiration matches, narrow the search",
				"ticker", s.Ticker, "matches", count)
		}
		return nil, nil, false
	}
	return found, holder, true
}

func matchesExpiration(c *Expiration, expiration time.Time, maturity string) bool {
	if !expiration.IsZero() {
		return c.ExpirationDate.Equal(expiration)
	}
	if maturity == "" {
		return false
	}
	return c.Maturity == maturity || c.SymbolicMaturity() == maturity
}

// AddExpiration registers a built expiration for write-back: an existing
// contract goes to the update list, a new one to the create list. A contract
// already pending is replaced.
func (s *Series) AddExpiration(exp *Expiration) {
	target := &s.NewExpirations
	if exp.Reference != nil {
		target = &s.UpdateExpirations
	}
	for i, pending := range *target {
		if pending.Equal(exp) {
			(*target)[i] = exp
			return
		}
	}
	*target = append(*target, exp)
}
