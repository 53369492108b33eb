// Package poller keeps in-memory subtree snapshots of the catalog fresh.
//
// The snapshot poller:
//   - Re-fetches every watched subtree on an interval
//   - Fetches subtrees concurrently with bounded parallelism
//   - Serves the last good snapshot between refreshes
//   - Refreshes on demand when a change event arrives on the feed
package poller
