package repository

import (
	"context"
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vvka-141/dlsync/internal/parser"
	"github.com/vvka-141/dlsync/pkg/dlsync"
)

// Database returns the upper-cased name of the connected database.
func (r *Repository) Database(ctx context.Context) (string, error) {
	if r.database != "" {
		return r.database, nil
	}
	var name string
	if err := r.pool.QueryRow(ctx, queryCurrentDatabase).Scan(&name); err != nil {
		return "", fmt.Errorf("failed to read current database: %w", err)
	}
	r.database = dlsync.NormalizeIdentifier(name)
	return r.database, nil
}

func (r *Repository) ListSchemas(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, querySchemas, r.historySchema)
	if err != nil {
		return nil, fmt.Errorf("failed to list schemas: %w", err)
	}
	schemas, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to list schemas: %w", err)
	}
	return schemas, nil
}

// ListObjectsInSchema renders the tables, sequences, views and routines of a
// schema as DDL and parses the result back into scripts.
func (r *Repository) ListObjectsInSchema(ctx context.Context, schema string) ([]*dlsync.Script, error) {
	database, err := r.Database(ctx)
	if err != nil {
		return nil, err
	}

	var ddl strings.Builder
	for _, render := range []func(context.Context, string, *strings.Builder) error{
		r.renderTables,
		r.renderSequences,
		r.renderViews,
		r.renderRoutines,
	} {
		if err := render(ctx, schema, &ddl); err != nil {
			return nil, fmt.Errorf("failed to read objects of schema %s: %w", schema, err)
		}
	}

	scripts, err := parser.ParseDDLScripts(ddl.String(), database, schema)
	if err != nil {
		return nil, err
	}
	r.logger.Verbose("Found %d objects in schema %s", len(scripts), schema)
	return scripts, nil
}

func (r *Repository) renderTables(ctx context.Context, schema string, b *strings.Builder) error {
	rows, err := r.pool.Query(ctx, queryTableColumns, schema)
	if err != nil {
		return err
	}
	defer rows.Close()

	var current string
	var columns []string
	flush := func() {
		if current != "" {
			fmt.Fprintf(b, "CREATE TABLE %s.%s (\n    %s\n);\n", schema, ident(current), strings.Join(columns, ",\n    "))
		}
	}
	for rows.Next() {
		var table, column, dataType, def string
		var notNull bool
		if err := rows.Scan(&table, &column, &dataType, &notNull, &def); err != nil {
			return err
		}
		if table != current {
			flush()
			current, columns = table, nil
		}
		col := ident(column) + " " + dataType
		if def != "" {
			col += " DEFAULT " + def
		}
		if notNull {
			col += " NOT NULL"
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	flush()
	return nil
}

func (r *Repository) renderSequences(ctx context.Context, schema string, b *strings.Builder) error {
	rows, err := r.pool.Query(ctx, querySequences, schema)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var start, increment, minValue, maxValue int64
		var cycle bool
		if err := rows.Scan(&name, &start, &increment, &minValue, &maxValue, &cycle); err != nil {
			return err
		}
		cycleClause := "NO CYCLE"
		if cycle {
			cycleClause = "CYCLE"
		}
		fmt.Fprintf(b, "CREATE SEQUENCE %s.%s START WITH %d INCREMENT BY %d MINVALUE %d MAXVALUE %d %s;\n",
			schema, ident(name), start, increment, minValue, maxValue, cycleClause)
	}
	return rows.Err()
}

func (r *Repository) renderViews(ctx context.Context, schema string, b *strings.Builder) error {
	rows, err := r.pool.Query(ctx, queryViews, schema)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name, definition string
		if err := rows.Scan(&name, &definition); err != nil {
			return err
		}
		fmt.Fprintf(b, "CREATE OR REPLACE VIEW %s.%s AS\n%s\n", schema, ident(name), terminate(definition))
	}
	return rows.Err()
}

func (r *Repository) renderRoutines(ctx context.Context, schema string, b *strings.Builder) error {
	rows, err := r.pool.Query(ctx, queryRoutines, schema)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var definition string
		if err := rows.Scan(&definition); err != nil {
			return err
		}
		b.WriteString(terminate(definition))
		b.WriteString("\n")
	}
	return rows.Err()
}

// AddConfig appends the rows of a configuration table to its script as INSERT
// statements, in the table's physical column order.
func (r *Repository) AddConfig(ctx context.Context, script *dlsync.Script) error {
	table := script.Schema + "." + script.ObjectName
	rows, err := r.pool.Query(ctx, "SELECT * FROM "+table)
	if err != nil {
		return fmt.Errorf("failed to read config table %s: %w", table, err)
	}
	defer rows.Close()

	var columns []string
	for _, fd := range rows.FieldDescriptions() {
		columns = append(columns, fd.Name)
	}

	var b strings.Builder
	count := 0
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return fmt.Errorf("failed to read config table %s: %w", table, err)
		}
		literals := make([]string, len(values))
		for i, v := range values {
			literals[i] = sqlLiteral(v)
		}
		fmt.Fprintf(&b, "\nINSERT INTO %s (%s) VALUES (%s);", table, strings.Join(columns, ", "), strings.Join(literals, ", "))
		count++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read config table %s: %w", table, err)
	}

	script.Content = strings.TrimRight(script.Content, "\r\n") + b.String()
	r.logger.Verbose("Added %d rows of config table %s", count, table)
	return nil
}

// sqlLiteral renders a decoded column value as a SQL literal.
func sqlLiteral(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return quote(val)
	case bool:
		return strings.ToUpper(strconv.FormatBool(val))
	case int16, int32, int64, int, uint32, uint64:
		return fmt.Sprint(val)
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case time.Time:
		return quote(val.Format(time.RFC3339Nano))
	case map[string]any, []any:
		data, err := json.Marshal(val)
		if err != nil {
			return "NULL"
		}
		return quote(string(data))
	case []byte:
		return `'\x` + hex.EncodeToString(val) + `'::bytea`
	case [16]byte:
		return quote(fmt.Sprintf("%x-%x-%x-%x-%x", val[0:4], val[4:6], val[6:8], val[8:10], val[10:16]))
	case driver.Valuer:
		dv, err := val.Value()
		if err != nil || dv == nil {
			return "NULL"
		}
		if s, ok := dv.(string); ok {
			return quote(s)
		}
		return sqlLiteral(dv)
	default:
		return quote(fmt.Sprint(val))
	}
}

var plainIdent = regexp.MustCompile(`^[a-z_][a-z0-9_$]*$`)

// ident quotes catalog names that would not survive case folding.
func ident(name string) string {
	if plainIdent.MatchString(name) {
		return name
	}
	return pgx.Identifier{name}.Sanitize()
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func terminate(stmt string) string {
	stmt = strings.TrimSpace(stmt)
	if strings.HasSuffix(stmt, ";") {
		return stmt
	}
	return stmt + ";"
}
