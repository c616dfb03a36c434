// Package parser turns SQL script text into scripts.
//
// Everything here is pure text processing. A small lexer splits input into
// segments (code, comments, single-quoted literals, double-quoted identifiers
// and $$ bodies); the exported helpers build on those segments:
//
//   - RemoveSQLComments and RemoveSQLStringLiterals produce the cleaned text
//     used for dependency detection.
//   - GetFullIdentifiers finds qualified references to an object name.
//   - ParseMigrationScripts reads the ---version / ---rollback / ---verify
//     directives of migration files.
//   - ParseScript and ParseDDLScripts build scripts from a source file or from
//     a batch of DDL read back from a live database.
package parser
