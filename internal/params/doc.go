// Package params loads profile parameters and substitutes them into scripts.
//
// Parameters come from parameter-<profile>.properties at the script root. An
// environment variable whose name matches a key in the file replaces the file's
// value, and --param flags replace both.
//
// Scripts reference parameters as ${KEY}. Injection turns placeholders into
// values before execution; parametrization is the reverse and is applied to
// objects read back from the database so generated scripts stay environment
// independent.
package params
