package option

import (
	"context"
	"log/slog"
	"time"

	"github.com/the-livingstone/sdb-options/internal/inherit"
	"github.com/the-livingstone/sdb-options/internal/model"
	"github.com/the-livingstone/sdb-options/internal/tree"
)

// InheritanceBuilder flattens an ancestor chain, root first, into one merged
// attribute record. inherit.Build is the default implementation.
type InheritanceBuilder func(chain []model.Attributes, includeSelf bool) model.Attributes

// UnderlyingResolver resolves the underlying instrument reference for an
// option-on-future expiration. How the lookup works is the collaborator's
// business; the builder only attaches the result.
type UnderlyingResolver interface {
	ResolveUnderlying(ctx context.Context, hint string, expiration time.Time) (*model.UnderlyingRef, error)
}

// UsedSymbols answers whether a symbol ID is referenced by live accounts.
// Strikes present in used symbols are never removed by a refresh.
type UsedSymbols interface {
	Contains(symbolID string) bool
}

// Deps carries the collaborators every resolver and builder call needs.
// Tree is required; the rest default sensibly.
type Deps struct {
	Tree       tree.Provider
	Inherit    InheritanceBuilder
	Underlying UnderlyingResolver
	Logger     *slog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Inherit == nil {
		d.Inherit = inherit.Build
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return d
}

// Series is the master record for a family of option expirations sharing a
// ticker. One Series is constructed per resolution call.
type Series struct {
	Ticker         string
	Exchange       string
	Kind           model.ProductKind
	WeekNumber     int
	ParentFolderID string

	// Instrument is the series' own node, possibly newly synthesized.
	// Reference is the immutable snapshot taken at load time; nil when the
	// series does not exist in the catalog yet.
	Instrument *model.TreeNode
	Reference  *model.TreeNode

	// CompiledParent is the flattened attribute set of the series' ancestor
	// chain, the series itself excluded.
	CompiledParent model.Attributes

	// Contracts are the series' existing concrete expirations.
	// WeeklyCommons group sibling expirations into named weekly cycles.
	Contracts     []*Expiration
	WeeklyCommons []*WeeklyCommon

	// Pending work for the write-back step.
	NewExpirations    []*Expiration
	UpdateExpirations []*Expiration

	deps Deps
}

// Expiration is one concrete, dated option instrument under a series.
type Expiration struct {
	Ticker   string
	Exchange string
	Kind     model.ProductKind

	// ExpirationDate is the resolved calendar date; Maturity the normalized
	// YYYY-MM[-DD] label.
	ExpirationDate time.Time
	Maturity       string

	// Instrument is the contract's attribute record. Reference is the
	// snapshot for update diffing; nil for a new contract.
	Instrument *model.TreeNode
	Reference  *model.TreeNode

	// CompiledParent is the flattened inherited attribute set: series
	// ancestors plus the series itself.
	CompiledParent model.Attributes

	// NewStrikes tracks strike prices added since construction, per side.
	NewStrikes map[model.Side][]float64
}

// Equal reports whether two expirations denote the same contract.
func (e *Expiration) Equal(other *Expiration) bool {
	return e.Ticker == other.Ticker &&
		e.Exchange == other.Exchange &&
		e.ExpirationDate.Equal(other.ExpirationDate)
}

// Tradeable reports whether the contract is not explicitly switched off.
func (e *Expiration) Tradeable() bool {
	return e.Instrument == nil || e.Instrument.IsTrading == nil || *e.Instrument.IsTrading
}

// WeeklyCommon is the abstract grouping folder tagging a named weekly
// expiration cycle under a series.
type WeeklyCommon struct {
	CommonName string

	// Payload is the folder node; Reference its load-time snapshot for
	// later diffing by the write-back step.
	Payload   *model.TreeNode
	Reference *model.TreeNode

	// WeekFolders are the per-week sub-series found under the folder.
	WeekFolders []*Series
}
