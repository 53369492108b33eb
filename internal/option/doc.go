// Package option implements the resolution pipeline for option series in the
// instrument catalog: parent-folder disambiguation, series discovery,
// expiration-record assembly and weekly-cycle grouping.
//
// The pipeline is an ordered set of operations over explicit inputs:
//
//	ResolveParentFolder -> ResolveSeries -> BuildExpiration / BuildWeeklyCommon
//
// Every call constructs its own records from catalog state; nothing is
// written back. Reference snapshots taken at load time let a downstream
// write-back step compute what changed.
package option
