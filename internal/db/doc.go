// Package db opens connections to the target PostgreSQL database.
//
// Connection strings are accepted as URIs or libpq keyword/value pairs.
// Connector retries transient failures and forwards server notices to the
// verbose log.
package db
