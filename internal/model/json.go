package model

import "encoding/json"

// treeNodeWire mirrors TreeNode with the catalog's wire field names.
type treeNodeWire struct {
	ID           string         `json:"_id,omitempty"`
	Revision     string         `json:"_rev,omitempty"`
	Path         []string       `json:"path"`
	Name         string         `json:"name"`
	IsAbstract   bool           `json:"isAbstract"`
	Ticker       string         `json:"ticker,omitempty"`
	ShortName    string         `json:"shortName,omitempty"`
	Description  string         `json:"description,omitempty"`
	ExchangeID   string         `json:"exchangeId,omitempty"`
	Underlying   string         `json:"underlying,omitempty"`
	UnderlyingID *UnderlyingRef `json:"underlyingId,omitempty"`
	Expiry       *Date          `json:"expiry,omitempty"`
	MaturityDate *Date          `json:"maturityDate,omitempty"`
	StrikePrices *StrikePrices  `json:"strikePrices,omitempty"`
	IsTrading    *bool          `json:"isTrading,omitempty"`
}

// knownNodeKeys are the wire keys covered by the typed schema; everything
// else round-trips through Extra.
var knownNodeKeys = map[string]struct{}{
	"_id": {}, "_rev": {}, "path": {}, "name": {}, "isAbstract": {},
	"ticker": {}, "shortName": {}, "description": {}, "exchangeId": {},
	"underlying": {}, "underlyingId": {}, "expiry": {}, "maturityDate": {},
	"strikePrices": {}, "isTrading": {},
}

// MarshalJSON emits the typed fields under their wire names merged with the
// open Extra attributes. Typed fields win on key collision.
func (n TreeNode) MarshalJSON() ([]byte, error) {
	wire := treeNodeWire{
		ID:           n.ID,
		Revision:     n.Revision,
		Path:         n.Path,
		Name:         n.Name,
		IsAbstract:   n.IsAbstract,
		Ticker:       n.Ticker,
		ShortName:    n.ShortName,
		Description:  n.Description,
		ExchangeID:   n.ExchangeID,
		Underlying:   n.Underlying,
		UnderlyingID: n.UnderlyingID,
		Expiry:       n.Expiry,
		MaturityDate: n.MaturityDate,
		StrikePrices: n.StrikePrices,
		IsTrading:    n.IsTrading,
	}
	typed, err := json.Marshal(wire)
	if err != nil {
		return nil, err
	}
	if len(n.Extra) == 0 {
		return typed, nil
	}

	merged := make(map[string]json.RawMessage, len(n.Extra)+len(knownNodeKeys))
	for k, v := range n.Extra {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		merged[k] = raw
	}
	var typedMap map[string]json.RawMessage
	if err := json.Unmarshal(typed, &typedMap); err != nil {
		return nil, err
	}
	for k, v := range typedMap {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// UnmarshalJSON fills the typed fields and collects unknown keys into Extra.
func (n *TreeNode) UnmarshalJSON(data []byte) error {
	var wire treeNodeWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*n = TreeNode{
		ID:           wire.ID,
		Revision:     wire.Revision,
		Path:         wire.Path,
		Name:         wire.Name,
		IsAbstract:   wire.IsAbstract,
		Ticker:       wire.Ticker,
		ShortName:    wire.ShortName,
		Description:  wire.Description,
		ExchangeID:   wire.ExchangeID,
		Underlying:   wire.Underlying,
		UnderlyingID: wire.UnderlyingID,
		Expiry:       wire.Expiry,
		MaturityDate: wire.MaturityDate,
		StrikePrices: wire.StrikePrices,
		IsTrading:    wire.IsTrading,
	}
	for k, v := range raw {
		if _, ok := knownNodeKeys[k]; ok {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return err
		}
		if n.Extra == nil {
			n.Extra = Attributes{}
		}
		n.Extra[k] = val
	}
	return nil
}

// Attributes flattens the node into an open attribute record, the form the
// inheritance merge operates on.
func (n *TreeNode) Attributes() (Attributes, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}
	var attrs Attributes
	if err := json.Unmarshal(data, &attrs); err != nil {
		return nil, err
	}
	return attrs, nil
}
