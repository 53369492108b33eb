// Package sdb provides the HTTP client for the SymbolDB instrument catalog.
//
// Base URLs are derived from the environment name:
//
//	http://symboldb.<env>.zorg.sh/symboldb-editor/api/v1.0/
//
// Operations cover single-node reads, subtree listings, the exchange list,
// and batched create/update write-back. All reads retry transient failures
// with exponential backoff and jitter.
package sdb
