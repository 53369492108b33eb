// Package inherit flattens an instrument's ancestor chain into one merged
// attribute record (the "compiled parent"). The chain is ordered root first;
// each level overrides the previous one.
//
// Merge rules:
//   - maps merge key by key, recursively
//   - scalars: the child value wins
//   - plain lists: the child list replaces the inherited one wholesale
//   - provider lists (entries keyed by "accountId" or "gatewayId"): entries
//     merge by key and child entries move to the front, without duplicates —
//     the order of feed gateways and broker accounts is significant
//
// Catalog service fields (_id, _rev, timestamps) and the node name never
// inherit.
package inherit

import "github.com/the-livingstone/sdb-options/internal/model"

// excluded keys never propagate into a compiled record.
var excluded = map[string]struct{}{
	"_id":             {},
	"_rev":            {},
	"_creationTime":   {},
	"_lastUpdateTime": {},
	"name":            {},
}

// providerListKeys identify list entries that merge positionally instead of
// being replaced.
var providerListKeys = []string{"accountId", "gatewayId"}

// Build merges the chain into a single attribute record. With includeSelf
// false the last entry (the instrument itself) is left out, producing the
// attributes a child of the instrument would inherit.
func Build(chain []model.Attributes, includeSelf bool) model.Attributes {
	if !includeSelf && len(chain) > 0 {
		chain = chain[:len(chain)-1]
	}
	compiled := model.Attributes{}
	for _, level := range chain {
		if level == nil {
			continue
		}
		for key, val := range level {
			if _, skip := excluded[key]; skip {
				continue
			}
			compiled[key] = merge(val, compiled[key])
		}
	}
	return compiled
}

// merge folds a child value over what was compiled so far.
func merge(child, compiled any) any {
	switch cv := child.(type) {
	case map[string]any:
		base, ok := compiled.(map[string]any)
		if !ok {
			return map[string]any(model.Attributes(cv).Clone())
		}
		for k, v := range cv {
			// A child may carry a $template record where the parent holds a
			// plain string; the child's record always wins.
			if tmpl, isMap := v.(map[string]any); isMap && tmpl["$template"] != nil {
				if _, isStr := base[k].(string); isStr {
					base[k] = map[string]any(model.Attributes(tmpl).Clone())
					continue
				}
			}
			base[k] = merge(v, base[k])
		}
		return base
	case []any:
		base, ok := compiled.([]any)
		if !ok || len(base) == 0 {
			return copyList(cv)
		}
		key, provider := providerKey(cv)
		if !provider {
			return copyList(cv)
		}
		return mergeProviderList(cv, base, key)
	default:
		return child
	}
}

// providerKey reports whether every entry of the list is a record keyed by
// one of the known provider ID fields.
func providerKey(list []any) (string, bool) {
	if len(list) == 0 {
		return "", false
	}
	first, ok := list[0].(map[string]any)
	if !ok {
		return "", false
	}
	for _, key := range providerListKeys {
		if _, present := first[key]; present {
			for _, item := range list {
				entry, ok := item.(map[string]any)
				if !ok {
					return "", false
				}
				if _, present := entry[key]; !present {
					return "", false
				}
			}
			return key, true
		}
	}
	return "", false
}

// mergeProviderList folds child entries over the inherited list. Entries are
// matched by the provider ID; each child entry ends up at the front in child
// order, merged over the inherited entry when one exists.
func mergeProviderList(child, base []any, key string) []any {
	for i := len(child) - 1; i >= 0; i-- {
		entry := child[i].(map[string]any)
		id := entry[key]
		found := -1
		for n, item := range base {
			if b, ok := item.(map[string]any); ok && b[key] == id {
				found = n
				break
			}
		}
		if found >= 0 {
			merged := merge(entry, base[found]).(map[string]any)
			base = append(base[:found], base[found+1:]...)
			base = append([]any{merged}, base...)
		} else {
			base = append([]any{map[string]any(model.Attributes(entry).Clone())}, base...)
		}
	}
	return base
}

func copyList(list []any) []any {
	out := make([]any, len(list))
	for i, v := range list {
		switch val := v.(type) {
		case map[string]any:
			out[i] = map[string]any(model.Attributes(val).Clone())
		case []any:
			out[i] = copyList(val)
		default:
			out[i] = val
		}
	}
	return out
}
