// Package history records pipeline runs and their stage outcomes in SQLite.
//
// Each run gets a row when it starts and is finalised when it succeeds or
// fails; every executed stage appends a row with its outcome, command line
// and duration. The database is a ledger for the history command and for
// debugging failed runs, not an input to the pipeline. Schema changes bump
// schemaVersion; users delete history.db to adopt a new schema.
package history
