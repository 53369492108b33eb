// Package model defines shared data types for the instrument catalog:
// tree nodes, catalog dates, strike structures, and exchange records.
//
// Conventions:
//   - Node IDs: UUID strings assigned by the catalog
//   - Paths: ordered ancestor IDs, root first, the node's own ID last
//   - Dates: calendar dates as {year, month, day} records, no time zone
//
// A TreeNode carries a small set of typed, known option fields plus an open
// Extra map for the product-specific attributes the catalog stores per
// instrument kind.
package model
