// Package checksum hashes script content.
//
// The script hash is the SHA-256 of the template text read from the source
// tree; it decides whether a script changed since its last deployment.
// Callers that want to ignore formatting hash a canonical form instead, such as
// parser.CanonicalLayout.
//
// SHA256 is a zero-size type and safe for concurrent use.
package checksum
