package option

import (
	"context"
	"fmt"

	"github.com/the-livingstone/sdb-options/internal/model"
	"github.com/the-livingstone/sdb-options/internal/tree"
)

// branches in lookup order. Exchange folders live directly under one of them.
var branches = []model.ProductKind{model.KindOption, model.KindOptionOnFuture}

// ResolveParentFolder determines the unique abstract folder a series must
// live under. With a known product kind the direct path Root/<kind>/<exchange>
// is tried first; otherwise candidates are gathered from both product
// branches for every exchange ID sharing the display name, and the ticker
// folder disambiguates when several exchanges match.
func ResolveParentFolder(ctx context.Context, tp tree.Provider, ticker, exchange string, kind model.ProductKind) (string, model.ProductKind, error) {
	if kind != "" {
		if !kind.Valid() {
			return "", "", fmt.Errorf("unknown product kind: %s", kind)
		}
		id, err := tp.UUIDByPath(ctx, model.RootName, string(kind), exchange)
		if err != nil {
			return "", "", fmt.Errorf("resolve %s/%s: %w", kind, exchange, err)
		}
		if id != "" {
			return id, kind, nil
		}
	}

	candidates, err := exchangeCandidates(ctx, tp, exchange)
	if err != nil {
		return "", "", err
	}

	switch len(candidates) {
	case 0:
		return "", "", fmt.Errorf("exchange %s: %w", exchange, ErrExchangeNotFound)
	case 1:
		return candidates[0].FolderID, candidates[0].Kind, nil
	}

	// Several exchange IDs share the name: the ticker folder decides.
	return disambiguateByTicker(ctx, tp, ticker, exchange, candidates)
}

// exchangeCandidates lists first-level folders of both product branches whose
// owning exchange ID carries the requested display name.
func exchangeCandidates(ctx context.Context, tp tree.Provider, exchange string) ([]model.Candidate, error) {
	exchanges, err := tp.GetExchanges(ctx)
	if err != nil {
		return nil, fmt.Errorf("list exchanges: %w", err)
	}
	ids := map[string]struct{}{}
	for _, e := range exchanges {
		if e.Name == exchange {
			ids[e.ID] = struct{}{}
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var candidates []model.Candidate
	for _, branch := range branches {
		branchID, err := tp.UUIDByPath(ctx, model.RootName, string(branch))
		if err != nil {
			return nil, fmt.Errorf("resolve branch %s: %w", branch, err)
		}
		if branchID == "" {
			continue
		}
		folders, err := tp.GetHeirs(ctx, branchID, false, true)
		if err != nil {
			return nil, fmt.Errorf("list %s folders: %w", branch, err)
		}
		for _, f := range folders {
			if !f.IsAbstract {
				continue
			}
			if _, ok := ids[f.ExchangeID]; !ok {
				continue
			}
			candidates = append(candidates, model.Candidate{
				ExchangeID: f.ExchangeID,
				FolderID:   f.ID,
				Path:       f.Path,
				Kind:       branch,
			})
		}
	}
	return candidates, nil
}

// disambiguateByTicker searches every candidate subtree for a folder named
// exactly like the ticker. Anything but a single match is structural
// ambiguity the resolver cannot settle on its own.
func disambiguateByTicker(ctx context.Context, tp tree.Provider, ticker, exchange string, candidates []model.Candidate) (string, model.ProductKind, error) {
	type hit struct {
		node model.TreeNode
		kind model.ProductKind
	}
	var hits []hit

	for _, cand := range candidates {
		heirs, err := tp.GetHeirs(ctx, cand.FolderID, true, false)
		if err != nil {
			return "", "", fmt.Errorf("search candidate %s: %w", cand.FolderID, err)
		}
		for _, h := range heirs {
			if h.Name == ticker {
				hits = append(hits, hit{node: h, kind: cand.Kind})
			}
		}
	}

	if len(hits) != 1 {
		return "", "", fmt.Errorf("%s.%s: %d ticker folder matches: %w",
			ticker, exchange, len(hits), ErrAmbiguousSeries)
	}
	return hits[0].node.Parent(), hits[0].kind, nil
}
