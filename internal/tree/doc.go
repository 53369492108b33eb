// Package tree abstracts access to the instrument catalog for the resolvers:
// a Provider answers node lookups, subtree listings, path resolution and the
// exchange list.
//
// Subtree retrieval has two interchangeable sources: filter a snapshot the
// caller already holds, or fetch recursively from the catalog. Callers that
// resolve many sibling series (weekly folders under one main series) pass the
// snapshot to avoid refetching the same subtree per sibling.
package tree
