// Package history persists what dlsync has deployed.
//
// A Store keeps three tables: one row per deployed script with its hash and
// rollback/verify statements, one row per workflow run (a sync record), and the
// last computed object lineage. Postgres keeps them in a schema of the target
// database; SQLite keeps them in a local file for targets where creating a
// schema is not allowed.
package history
