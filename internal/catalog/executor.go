// Copyright 2025 James Ross
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"

	"github.com/jamesross/dgrid-batch/internal/bferrors"
)

// Row is one result row keyed by the column labels supplied with the query.
// Empty-string values are omitted by the executor before this map is built.
type Row map[string]string

// Executor submits a built Query through the backend catalog and
// materializes rows, paginating until exhaustion. The grid's real ICAT is
// Postgres-backed; this executor opens database/sql against lib/pq and
// translates a Query into a parameterized SELECT ... WHERE ... LIMIT/OFFSET.
type Executor struct {
	db    *sql.DB
	table string
}

// NewExecutor opens a Postgres connection pool against dsn. table names the
// denormalized catalog view queries run against (see column.go).
func NewExecutor(dsn, table string) (*Executor, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, bferrors.NewConnectionError("catalog", 0, err)
	}
	if table == "" {
		table = "dgrid_catalog"
	}
	return &Executor{db: db, table: table}, nil
}

func (e *Executor) Close() error {
	if e.db == nil {
		return nil
	}
	return e.db.Close()
}

// Run iterates: submit, receive a chunk, append rows, update cursor, repeat
// until the cursor indicates exhaustion. A page returning zero rows is a
// normal termination, not an error.
func (e *Executor) Run(ctx context.Context, q *Query) ([]Row, error) {
	var rows []Row
	cursor := q.Cursor
	page := 0
	for {
		chunk, next, err := e.runPage(ctx, q, cursor)
		if err != nil {
			return nil, bferrors.NewBackendError(-1, "CAT_QUERY_ERROR",
				"catalog.query", fmt.Sprintf("page %d: %v", page, err), err)
		}
		if len(chunk) == 0 {
			break
		}
		rows = append(rows, chunk...)
		if next == "" || next == cursor {
			break
		}
		cursor = next
		page++
	}
	return rows, nil
}

func (e *Executor) runPage(ctx context.Context, q *Query, cursor string) ([]Row, string, error) {
	offset := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil {
			return nil, "", bferrors.NewValidationError("cursor", cursor, "cursor must be numeric")
		}
		offset = n
	}

	sqlText, args := e.render(q, offset)
	rs, err := e.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, "", err
	}
	defer rs.Close()

	var out []Row
	for rs.Next() {
		vals := make([]sql.NullString, len(q.Columns))
		ptrs := make([]interface{}, len(vals))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rs.Scan(ptrs...); err != nil {
			return nil, "", err
		}
		row := Row{}
		for i, proj := range q.Columns {
			if vals[i].Valid && vals[i].String != "" {
				row[proj.Label] = vals[i].String
			}
		}
		out = append(out, row)
	}
	if err := rs.Err(); err != nil {
		return nil, "", err
	}

	next := ""
	if len(out) == q.PageSize {
		next = strconv.Itoa(offset + q.PageSize)
	}
	return out, next, nil
}

// ModifyDataObjectAVU adds or removes a single AVU on a data object. The
// real ICAT's metadata-add/remove is part of the opaque backend client
// interface (spec §1); here it is modeled as an insert (ON CONFLICT DO
// NOTHING) or a delete against the same denormalized catalog table queries
// run against (documented simplification, see column.go). The delete
// matches on attribute and value; units are not compared.
func (e *Executor) ModifyDataObjectAVU(ctx context.Context, collPath, dataName, attr, value, units string, remove bool) error {
	if remove {
		_, err := e.db.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE %s = $1 AND %s = $2 AND %s = $3 AND %s = $4", e.table,
				sqlColumn[CollName], sqlColumn[DataName], sqlColumn[MetaDataAttrName], sqlColumn[MetaDataAttrVal]),
			collPath, dataName, attr, value)
		return wrapExecErr(err, "metamod.rem")
	}
	_, err := e.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (%s, %s, %s, %s, %s) VALUES ($1, $2, $3, $4, $5) ON CONFLICT DO NOTHING`,
			e.table, sqlColumn[CollName], sqlColumn[DataName], sqlColumn[MetaDataAttrName], sqlColumn[MetaDataAttrVal], sqlColumn[MetaDataAttrUnit]),
		collPath, dataName, attr, value, units)
	return wrapExecErr(err, "metamod.add")
}

// ModifyCollectionAVU is the collection-side symmetric form.
func (e *Executor) ModifyCollectionAVU(ctx context.Context, collPath, attr, value, units string, remove bool) error {
	if remove {
		_, err := e.db.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE %s = $1 AND %s = $2 AND %s = $3", e.table,
				sqlColumn[CollName], sqlColumn[MetaCollAttrName], sqlColumn[MetaCollAttrVal]),
			collPath, attr, value)
		return wrapExecErr(err, "metamod.rem")
	}
	_, err := e.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (%s, %s, %s, %s) VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING`,
			e.table, sqlColumn[CollName], sqlColumn[MetaCollAttrName], sqlColumn[MetaCollAttrVal], sqlColumn[MetaCollAttrUnit]),
		collPath, attr, value, units)
	return wrapExecErr(err, "metamod.add")
}

// CreateCollection inserts a bare collection row (no AVUs) so it stats as
// existing. mkcoll is otherwise identical to an AVU-less row in this
// denormalized table.
func (e *Executor) CreateCollection(ctx context.Context, collPath string) error {
	_, err := e.db.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (%s) VALUES ($1) ON CONFLICT DO NOTHING", e.table, sqlColumn[CollName]),
		collPath)
	return wrapExecErr(err, "mkcoll")
}

// RemoveCollection deletes every row for collPath, including its
// metadata rows.
func (e *Executor) RemoveCollection(ctx context.Context, collPath string) error {
	_, err := e.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE %s = $1", e.table, sqlColumn[CollName]),
		collPath)
	return wrapExecErr(err, "rmcoll")
}

// ModifyAccess upserts a single access-control entry for path, keyed on
// (path, owner, zone). Like AVU mutation, the real permission mutator is
// part of the opaque backend client; this is the same table-level
// simplification.
func (e *Executor) ModifyAccess(ctx context.Context, path, owner, zone, level string) error {
	_, err := e.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s_acl (path, owner, zone, level) VALUES ($1, $2, $3, $4)
			ON CONFLICT (path, owner, zone) DO UPDATE SET level = EXCLUDED.level`, e.table),
		path, owner, zone, level)
	return wrapExecErr(err, "chmod")
}

// ModifyAccessSubtree upserts the same access-control entry for every
// collection and data-object path under rootPath (RECURSIVE chmod),
// matched with the same LIKE pattern RestrictToSubtreeCondition uses for
// reads, so writes and reads agree on what "under rootPath" means. The
// pattern already matches rootPath itself, so a plain ModifyAccess call
// on rootPath is redundant once this runs.
func (e *Executor) ModifyAccessSubtree(ctx context.Context, rootPath, owner, zone, level string) error {
	pattern := SubtreePattern(rootPath)
	_, err := e.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s_acl (path, owner, zone, level)
			SELECT DISTINCT %s, $2, $3, $4 FROM %s WHERE %s LIKE $1
			ON CONFLICT (path, owner, zone) DO UPDATE SET level = EXCLUDED.level`,
			e.table, sqlColumn[CollName], e.table, sqlColumn[CollName]),
		pattern, owner, zone, level)
	if err != nil {
		return wrapExecErr(err, "chmod.recursive")
	}
	_, err = e.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s_acl (path, owner, zone, level)
			SELECT DISTINCT %s || '/' || %s, $2, $3, $4 FROM %s WHERE %s LIKE $1 AND %s <> ''
			ON CONFLICT (path, owner, zone) DO UPDATE SET level = EXCLUDED.level`,
			e.table, sqlColumn[CollName], sqlColumn[DataName], e.table, sqlColumn[CollName], sqlColumn[DataName]),
		pattern, owner, zone, level)
	return wrapExecErr(err, "chmod.recursive")
}

// AccessEntry is one row from the access-control table.
type AccessEntry struct {
	Owner string
	Zone  string
	Level string
}

// ListAccess returns every access-control entry recorded for path, for the
// PRINT_ACL list-path flag.
func (e *Executor) ListAccess(ctx context.Context, path string) ([]AccessEntry, error) {
	rows, err := e.db.QueryContext(ctx,
		fmt.Sprintf("SELECT owner, zone, level FROM %s_acl WHERE path = $1", e.table), path)
	if err != nil {
		return nil, wrapExecErr(err, "list.acl")
	}
	defer rows.Close()

	var out []AccessEntry
	for rows.Next() {
		var a AccessEntry
		if err := rows.Scan(&a.Owner, &a.Zone, &a.Level); err != nil {
			return nil, wrapExecErr(err, "list.acl")
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapExecErr(err, "list.acl")
	}
	return out, nil
}

func wrapExecErr(err error, op string) error {
	if err == nil {
		return nil
	}
	return bferrors.NewBackendError(-1, "CAT_EXEC_ERROR", op, err.Error(), err)
}

func (e *Executor) render(q *Query, offset int) (string, []interface{}) {
	labels := make([]string, len(q.Columns))
	for i, c := range q.Columns {
		labels[i] = sqlColumn[c.Column]
	}

	var where []string
	var args []interface{}
	argN := 1
	for key, val := range q.Qualifiers {
		where = append(where, fmt.Sprintf("%s = $%d", strings.ToLower(key), argN))
		args = append(args, val)
		argN++
	}
	for _, c := range q.Conditions {
		// Literal is rendered inline per the spec's <operator> '<literal>'
		// form; single-quote literals are rejected at build time (query.go),
		// so this can never break out of the quoted string.
		where = append(where, fmt.Sprintf("%s %s '%s'", sqlColumn[c.Column], c.Operator, c.Literal))
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	sqlText := fmt.Sprintf("SELECT %s FROM %s %s LIMIT %d OFFSET %d",
		strings.Join(labels, ", "), e.table, whereClause, q.PageSize, offset)
	return sqlText, args
}
