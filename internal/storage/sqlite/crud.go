package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"ai-knowledgebase-be/internal/storage"
)

func (d *Driver) Create(ctx context.Context, collection string, fields map[string]any) (*storage.Record, error) {
	tc, err := scope(ctx)
	if err != nil {
		return nil, err
	}
	def, err := tableFor(collection)
	if err != nil {
		return nil, err
	}
	fields = storage.WithoutID(fields)

	now := time.Now().UTC()
	cols := []string{"namespace", "created", "updated"}
	args := []any{tc.Namespace, formatTime(now), formatTime(now)}
	for _, field := range def.fields {
		v, ok := fields[field]
		if !ok {
			continue
		}
		enc, err := def.encodeValue(field, v)
		if err != nil {
			return nil, err
		}
		cols = append(cols, field)
		args = append(args, enc)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(collection), strings.Join(cols, ", "), placeholders(len(cols)))
	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	key, err := res.LastInsertId()
	if err != nil {
		return nil, mapErr(err)
	}
	return d.Get(ctx, storage.IntID(collection, key))
}

func (d *Driver) Get(ctx context.Context, id storage.RecordID) (*storage.Record, error) {
	tc, err := scope(ctx)
	if err != nil {
		return nil, err
	}
	def, err := tableFor(id.Collection)
	if err != nil {
		return nil, err
	}
	key, err := id.IntKey()
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ? AND namespace = ?",
		def.selectClause(""), quoteIdent(id.Collection))
	rows, err := d.db.QueryContext(ctx, query, key, tc.Namespace)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, mapErr(err)
		}
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id.String())
	}
	return def.scanRecord(id.Collection, rows, nil)
}

func (d *Driver) List(ctx context.Context, collection string, q storage.ListQuery) ([]*storage.Record, error) {
	tc, err := scope(ctx)
	if err != nil {
		return nil, err
	}
	def, err := tableFor(collection)
	if err != nil {
		return nil, err
	}

	where := []string{"namespace = ?"}
	args := []any{tc.Namespace}
	for field, v := range q.Filters {
		enc, err := def.encodeValue(field, v)
		if err != nil {
			return nil, err
		}
		where = append(where, field+" = ?")
		args = append(args, enc)
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s",
		def.selectClause(""), quoteIdent(collection), strings.Join(where, " AND "))
	query += orderClause(def, q)
	query += limitClause(q)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []*storage.Record
	for rows.Next() {
		rec, err := def.scanRecord(collection, rows, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, mapErr(rows.Err())
}

func (d *Driver) Update(ctx context.Context, id storage.RecordID, fields map[string]any) (*storage.Record, error) {
	tc, err := scope(ctx)
	if err != nil {
		return nil, err
	}
	def, err := tableFor(id.Collection)
	if err != nil {
		return nil, err
	}
	key, err := id.IntKey()
	if err != nil {
		return nil, err
	}

	fields = storage.WithoutID(fields)
	sets := []string{"updated = ?"}
	args := []any{formatTime(time.Now().UTC())}
	for _, field := range def.fields {
		v, ok := fields[field]
		if !ok {
			continue
		}
		enc, err := def.encodeValue(field, v)
		if err != nil {
			return nil, err
		}
		sets = append(sets, field+" = ?")
		args = append(args, enc)
	}
	args = append(args, key, tc.Namespace)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ? AND namespace = ?",
		quoteIdent(id.Collection), strings.Join(sets, ", "))
	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id.String())
	}
	return d.Get(ctx, id)
}

// Upsert pins a deterministic key when id carries one; with a zero key it
// behaves exactly like Create. Replacement rewrites every entity column,
// clearing fields absent from the map.
func (d *Driver) Upsert(ctx context.Context, id storage.RecordID, fields map[string]any) (*storage.Record, error) {
	if id.Key == "" {
		return d.Create(ctx, id.Collection, fields)
	}
	tc, err := scope(ctx)
	if err != nil {
		return nil, err
	}
	def, err := tableFor(id.Collection)
	if err != nil {
		return nil, err
	}
	key, err := id.IntKey()
	if err != nil {
		return nil, err
	}
	fields = storage.WithoutID(fields)

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, mapErr(err)
	}
	defer tx.Rollback()

	var owner string
	row := tx.QueryRowContext(ctx,
		fmt.Sprintf("SELECT namespace FROM %s WHERE id = ?", quoteIdent(id.Collection)), key)
	switch err := row.Scan(&owner); {
	case err == sql.ErrNoRows:
		now := formatTime(time.Now().UTC())
		cols := []string{"id", "namespace", "created", "updated"}
		args := []any{key, tc.Namespace, now, now}
		for _, field := range def.fields {
			v, ok := fields[field]
			if !ok {
				continue
			}
			enc, err := def.encodeValue(field, v)
			if err != nil {
				return nil, err
			}
			cols = append(cols, field)
			args = append(args, enc)
		}
		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			quoteIdent(id.Collection), strings.Join(cols, ", "), placeholders(len(cols)))
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return nil, mapErr(err)
		}
	case err != nil:
		return nil, mapErr(err)
	case owner != tc.Namespace:
		return nil, fmt.Errorf("%w: id %s belongs to another tenant", storage.ErrConstraint, id.String())
	default:
		sets := []string{"updated = ?"}
		args := []any{formatTime(time.Now().UTC())}
		for _, field := range def.fields {
			enc, err := def.encodeValue(field, fields[field])
			if err != nil {
				return nil, err
			}
			sets = append(sets, field+" = ?")
			args = append(args, enc)
		}
		args = append(args, key)
		query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?",
			quoteIdent(id.Collection), strings.Join(sets, ", "))
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return nil, mapErr(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, mapErr(err)
	}
	return d.Get(ctx, id)
}

func (d *Driver) Delete(ctx context.Context, id storage.RecordID) (bool, error) {
	tc, err := scope(ctx)
	if err != nil {
		return false, err
	}
	if _, err := tableFor(id.Collection); err != nil {
		return false, err
	}
	key, err := id.IntKey()
	if err != nil {
		return false, err
	}

	res, err := d.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE id = ? AND namespace = ?", quoteIdent(id.Collection)),
		key, tc.Namespace)
	if err != nil {
		return false, mapErr(err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// BulkInsert runs in one transaction so a batch is never half-applied on
// engine failure. With ignoreDuplicates, rows hitting a uniqueness
// constraint are skipped and left out of the result.
func (d *Driver) BulkInsert(ctx context.Context, collection string, rowFields []map[string]any, ignoreDuplicates bool) ([]*storage.Record, error) {
	tc, err := scope(ctx)
	if err != nil {
		return nil, err
	}
	def, err := tableFor(collection)
	if err != nil {
		return nil, err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, mapErr(err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	var keys []int64
	for _, fields := range rowFields {
		fields = storage.WithoutID(fields)
		cols := []string{"namespace", "created", "updated"}
		args := []any{tc.Namespace, formatTime(now), formatTime(now)}
		for _, field := range def.fields {
			v, ok := fields[field]
			if !ok {
				continue
			}
			enc, err := def.encodeValue(field, v)
			if err != nil {
				return nil, err
			}
			cols = append(cols, field)
			args = append(args, enc)
		}
		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			quoteIdent(collection), strings.Join(cols, ", "), placeholders(len(cols)))
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			if ignoreDuplicates && isConstraint(err) {
				continue
			}
			return nil, mapErr(err)
		}
		key, err := res.LastInsertId()
		if err != nil {
			return nil, mapErr(err)
		}
		keys = append(keys, key)
	}

	if err := tx.Commit(); err != nil {
		return nil, mapErr(err)
	}

	out := make([]*storage.Record, 0, len(keys))
	for _, key := range keys {
		rec, err := d.Get(ctx, storage.IntID(collection, key))
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func orderClause(def tableDef, q storage.ListQuery) string {
	if q.OrderBy == "" {
		return " ORDER BY id"
	}
	field := q.OrderBy
	if field != "id" && field != "created" && field != "updated" {
		if _, ok := def.cols[field]; !ok {
			return " ORDER BY id"
		}
	}
	if q.Desc {
		return " ORDER BY " + field + " DESC"
	}
	return " ORDER BY " + field
}

func limitClause(q storage.ListQuery) string {
	if q.Limit <= 0 && q.Offset <= 0 {
		return ""
	}
	limit := q.Limit
	if limit <= 0 {
		limit = -1
	}
	return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, q.Offset)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
