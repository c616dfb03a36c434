// Package repository runs scripts against a PostgreSQL target and reads its
// catalog back as scripts.
//
// Script bodies run as simple-protocol batches, each in its own transaction.
// Deployment history goes through a history.Store, which may live in the target
// itself or in a local file.
package repository
