package repository

// Catalog queries used to reverse engineer a live schema. Schema names are
// matched case-insensitively because script identities are upper-cased.
const (
	queryCurrentDatabase = `SELECT current_database()`

	// Parameter $1: history schema to hide
	querySchemas = `
		SELECT nspname
		FROM pg_namespace
		WHERE nspname NOT IN ('information_schema', $1)
		  AND nspname NOT LIKE 'pg\_%'
		ORDER BY nspname
	`

	// Parameter $1: schema name
	queryTableColumns = `
		SELECT c.relname,
		       a.attname,
		       format_type(a.atttypid, a.atttypmod),
		       a.attnotnull,
		       COALESCE(pg_get_expr(d.adbin, d.adrelid), '')
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		JOIN pg_attribute a ON a.attrelid = c.oid AND a.attnum > 0 AND NOT a.attisdropped
		LEFT JOIN pg_attrdef d ON d.adrelid = c.oid AND d.adnum = a.attnum
		WHERE upper(n.nspname) = upper($1)
		  AND c.relkind IN ('r', 'p')
		ORDER BY c.relname, a.attnum
	`

	// Parameter $1: schema name
	querySequences = `
		SELECT sequencename, start_value, increment_by, min_value, max_value, cycle
		FROM pg_sequences
		WHERE upper(schemaname) = upper($1)
		ORDER BY sequencename
	`

	// Parameter $1: schema name
	queryViews = `
		SELECT viewname, definition
		FROM pg_views
		WHERE upper(schemaname) = upper($1)
		ORDER BY viewname
	`

	// Extension members are skipped.
	// Parameter $1: schema name
	queryRoutines = `
		SELECT pg_get_functiondef(p.oid)
		FROM pg_proc p
		JOIN pg_namespace n ON n.oid = p.pronamespace
		WHERE upper(n.nspname) = upper($1)
		  AND p.prokind IN ('f', 'p')
		  AND NOT EXISTS (
		      SELECT 1 FROM pg_depend dep
		      WHERE dep.classid = 'pg_proc'::regclass AND dep.objid = p.oid AND dep.deptype = 'e')
		ORDER BY p.proname, p.oid
	`
)
