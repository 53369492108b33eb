// Package database manages the PostgreSQL connection pool for the
// used-symbols database: the record of symbol IDs referenced by live broker
// and feed accounts, consulted before any strike is removed.
package database
