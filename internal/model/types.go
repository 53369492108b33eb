package model

// ProductKind identifies the top-level branch an option series lives under.
type ProductKind string

const (
	KindOption         ProductKind = "OPTION"
	KindOptionOnFuture ProductKind = "OPTION ON FUTURE"
)

// Valid reports whether k is a known product kind.
func (k ProductKind) Valid() bool {
	return k == KindOption || k == KindOptionOnFuture
}

// RootName is the name of the catalog root folder.
const RootName = "Root"

// NewSeriesPlaceholder stands in for the ID of a series folder that has not
// been persisted yet. It is appended to contract paths so the write-back step
// can substitute the real ID after the folder is created.
const NewSeriesPlaceholder = "<<new series id>>"

// Side is an option side key in a strike structure.
type Side string

const (
	Put  Side = "PUT"
	Call Side = "CALL"
)

// Sides lists both option sides in canonical order.
var Sides = []Side{Put, Call}

// Attributes is an open attribute record: product-specific fields keyed the
// way the catalog stores them.
type Attributes map[string]any

// Clone returns a deep copy of the attribute record.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	return deepCopyMap(a)
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return val
	}
}

// UnderlyingRef points an option at its underlying instrument.
type UnderlyingRef struct {
	ID   string `json:"id"`
	Type string `json:"type"` // "symbolId"
}

// StrikeEntry is a single strike price row on one side of an expiration.
type StrikeEntry struct {
	StrikePrice float64 `json:"strikePrice"`
	ISIN        string  `json:"isin,omitempty"`
	IsAvailable *bool   `json:"isAvailable,omitempty"`
}

// StrikePrices holds both sides of an expiration's strike structure.
// Both slices are always non-nil on a well-formed expiration.
type StrikePrices struct {
	Put  []StrikeEntry `json:"PUT"`
	Call []StrikeEntry `json:"CALL"`
}

// Side returns the entries for one side.
func (s *StrikePrices) Side(side Side) []StrikeEntry {
	if side == Put {
		return s.Put
	}
	return s.Call
}

// SetSide replaces the entries for one side.
func (s *StrikePrices) SetSide(side Side, entries []StrikeEntry) {
	if side == Put {
		s.Put = entries
	} else {
		s.Call = entries
	}
}

// Clone returns a deep copy of the strike structure.
func (s *StrikePrices) Clone() *StrikePrices {
	if s == nil {
		return nil
	}
	out := &StrikePrices{
		Put:  make([]StrikeEntry, len(s.Put)),
		Call: make([]StrikeEntry, len(s.Call)),
	}
	copy(out.Put, s.Put)
	copy(out.Call, s.Call)
	for i, e := range s.Put {
		if e.IsAvailable != nil {
			v := *e.IsAvailable
			out.Put[i].IsAvailable = &v
		}
	}
	for i, e := range s.Call {
		if e.IsAvailable != nil {
			v := *e.IsAvailable
			out.Call[i].IsAvailable = &v
		}
	}
	return out
}

// Exchange is one entry of the catalog's exchange list. Exchange names are
// display names and not unique: several exchange IDs may share one name.
type Exchange struct {
	ID   string `json:"exchangeId"`
	Name string `json:"exchangeName"`
}

// Candidate is a transient record considered during parent-folder
// disambiguation: an exchange folder that may own the series being resolved.
type Candidate struct {
	ExchangeID string
	FolderID   string
	Path       []string
	Kind       ProductKind
}

// TreeNode is a single node of the instrument tree: either an abstract
// grouping folder or a concrete instrument.
type TreeNode struct {
	ID         string
	Revision   string
	Path       []string // ancestor IDs root-first; last element is ID once persisted
	Name       string
	IsAbstract bool

	// Known option fields.
	Ticker       string
	ShortName    string
	Description  string
	ExchangeID   string
	Underlying   string
	UnderlyingID *UnderlyingRef
	Expiry       *Date
	MaturityDate *Date
	StrikePrices *StrikePrices
	IsTrading    *bool

	// Extra holds attributes outside the typed schema.
	Extra Attributes
}

// Parent returns the ID of the node's parent folder, or "" for the root.
func (n *TreeNode) Parent() string {
	if len(n.Path) < 2 {
		return ""
	}
	return n.Path[len(n.Path)-2]
}

// ParentPath returns the node's path without its own trailing ID.
// For an unpersisted node the path has no trailing ID and is returned as is.
func (n *TreeNode) ParentPath() []string {
	if n.ID != "" && len(n.Path) > 0 && n.Path[len(n.Path)-1] == n.ID {
		return n.Path[:len(n.Path)-1]
	}
	return n.Path
}

// InSubtree reports whether id appears in the node's ancestor chain
// (including the node itself).
func (n *TreeNode) InSubtree(id string) bool {
	for _, p := range n.Path {
		if p == id {
			return true
		}
	}
	return false
}

// ChildOf reports whether the node is a direct child of the node with the
// given path.
func (n *TreeNode) ChildOf(parentPath []string) bool {
	pp := n.ParentPath()
	if len(pp) != len(parentPath) {
		return false
	}
	for i := range pp {
		if pp[i] != parentPath[i] {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the node. Reference snapshots taken at load
// time use this to stay immune to later mutation of the live record.
func (n *TreeNode) Clone() *TreeNode {
	if n == nil {
		return nil
	}
	out := *n
	out.Path = append([]string(nil), n.Path...)
	if n.UnderlyingID != nil {
		ref := *n.UnderlyingID
		out.UnderlyingID = &ref
	}
	if n.Expiry != nil {
		d := *n.Expiry
		out.Expiry = &d
	}
	if n.MaturityDate != nil {
		d := *n.MaturityDate
		out.MaturityDate = &d
	}
	out.StrikePrices = n.StrikePrices.Clone()
	if n.IsTrading != nil {
		v := *n.IsTrading
		out.IsTrading = &v
	}
	out.Extra = n.Extra.Clone()
	return &out
}
