package sqlite

import (
	"context"
	"fmt"
	"strings"

	"ai-knowledgebase-be/internal/storage"
)

// joinDef maps a relation kind onto its join table. kindColumn is set
// only for refers_to, whose table discriminates the target collection.
type joinDef struct {
	table      string
	sourceCol  string
	targetCol  string
	kindColumn string
}

func joinFor(kind storage.RelationKind) (joinDef, error) {
	switch kind {
	case storage.RelationReference:
		return joinDef{table: "source_notebook", sourceCol: "source_id", targetCol: "notebook_id"}, nil
	case storage.RelationArtifact:
		return joinDef{table: "note_notebook", sourceCol: "note_id", targetCol: "notebook_id"}, nil
	case storage.RelationRefersTo:
		return joinDef{table: "chat_session_reference", sourceCol: "chat_session_id", targetCol: "target_id", kindColumn: "target_collection"}, nil
	}
	return joinDef{}, fmt.Errorf("%w: unknown relation kind %q", storage.ErrValidation, string(kind))
}

// edgeArgs resolves the integer endpoint keys and the WHERE fragment
// identifying one edge row.
func edgeArgs(tc string, jd joinDef, source, target storage.RecordID) (string, []any, error) {
	srcKey, err := source.IntKey()
	if err != nil {
		return "", nil, err
	}
	tgtKey, err := target.IntKey()
	if err != nil {
		return "", nil, err
	}
	where := fmt.Sprintf("namespace = ? AND %s = ? AND %s = ?", jd.sourceCol, jd.targetCol)
	args := []any{tc, srcKey, tgtKey}
	if jd.kindColumn != "" {
		where += " AND " + jd.kindColumn + " = ?"
		args = append(args, target.Collection)
	}
	return where, args, nil
}

func (d *Driver) Relate(ctx context.Context, source storage.RecordID, kind storage.RelationKind, target storage.RecordID) error {
	tc, err := scope(ctx)
	if err != nil {
		return err
	}
	if err := kind.ValidateEndpoints(source.Collection, target.Collection); err != nil {
		return err
	}
	jd, err := joinFor(kind)
	if err != nil {
		return err
	}
	srcKey, err := source.IntKey()
	if err != nil {
		return err
	}
	tgtKey, err := target.IntKey()
	if err != nil {
		return err
	}

	cols := []string{"namespace", jd.sourceCol, jd.targetCol}
	args := []any{tc.Namespace, srcKey, tgtKey}
	if jd.kindColumn != "" {
		cols = append(cols, jd.kindColumn)
		args = append(args, target.Collection)
	}
	// OR IGNORE rides the UNIQUE constraint, making relate idempotent.
	query := fmt.Sprintf("INSERT OR IGNORE INTO %s (%s) VALUES (%s)",
		jd.table, strings.Join(cols, ", "), placeholders(len(cols)))
	if _, err := d.db.ExecContext(ctx, query, args...); err != nil {
		return mapErr(err)
	}
	return nil
}

func (d *Driver) Unrelate(ctx context.Context, source storage.RecordID, kind storage.RelationKind, target storage.RecordID) error {
	tc, err := scope(ctx)
	if err != nil {
		return err
	}
	if err := kind.ValidateEndpoints(source.Collection, target.Collection); err != nil {
		return err
	}
	jd, err := joinFor(kind)
	if err != nil {
		return err
	}
	where, args, err := edgeArgs(tc.Namespace, jd, source, target)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE %s", jd.table, where)
	if _, err := d.db.ExecContext(ctx, query, args...); err != nil {
		return mapErr(err)
	}
	return nil
}

func (d *Driver) RelatedExists(ctx context.Context, source storage.RecordID, kind storage.RelationKind, target storage.RecordID) (bool, error) {
	tc, err := scope(ctx)
	if err != nil {
		return false, err
	}
	if err := kind.ValidateEndpoints(source.Collection, target.Collection); err != nil {
		return false, err
	}
	jd, err := joinFor(kind)
	if err != nil {
		return false, err
	}
	where, args, err := edgeArgs(tc.Namespace, jd, source, target)
	if err != nil {
		return false, err
	}
	var one int
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE %s LIMIT 1", jd.table, where)
	err = d.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if err != nil {
		if storage.IsNotFound(mapErr(err)) {
			return false, nil
		}
		return false, mapErr(err)
	}
	return true, nil
}

// anchorSide works out which join column matches the anchor and which one
// leads to the requested target collection, so traversal works from
// either end of the edge.
func anchorSide(jd joinDef, kind storage.RelationKind, anchor storage.RecordID, targetCollection string) (anchorCol, farCol string, err error) {
	if kind.ValidateEndpoints(anchor.Collection, targetCollection) == nil {
		return jd.sourceCol, jd.targetCol, nil
	}
	if kind.ValidateEndpoints(targetCollection, anchor.Collection) == nil {
		return jd.targetCol, jd.sourceCol, nil
	}
	return "", "", fmt.Errorf("%w: relation %q does not connect %s and %s",
		storage.ErrValidation, string(kind), anchor.Collection, targetCollection)
}

func (d *Driver) ListRelated(ctx context.Context, anchor storage.RecordID, kind storage.RelationKind, targetCollection string) ([]*storage.Record, error) {
	tc, err := scope(ctx)
	if err != nil {
		return nil, err
	}
	def, err := tableFor(targetCollection)
	if err != nil {
		return nil, err
	}
	jd, err := joinFor(kind)
	if err != nil {
		return nil, err
	}
	anchorCol, farCol, err := anchorSide(jd, kind, anchor, targetCollection)
	if err != nil {
		return nil, err
	}
	anchorKey, err := anchor.IntKey()
	if err != nil {
		return nil, err
	}

	where := fmt.Sprintf("j.%s = ? AND j.namespace = ?", anchorCol)
	args := []any{anchorKey, tc.Namespace}
	if jd.kindColumn != "" {
		// The discriminator names whichever endpoint is not the session.
		discriminated := targetCollection
		if anchorCol == jd.targetCol {
			discriminated = anchor.Collection
		}
		where += " AND j." + jd.kindColumn + " = ?"
		args = append(args, discriminated)
	}

	query := fmt.Sprintf("SELECT %s FROM %s t JOIN %s j ON j.%s = t.id WHERE %s ORDER BY t.id",
		def.selectClause("t"), quoteIdent(targetCollection), jd.table, farCol, where)
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []*storage.Record
	for rows.Next() {
		rec, err := def.scanRecord(targetCollection, rows, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, mapErr(rows.Err())
}

func (d *Driver) CountRelated(ctx context.Context, anchor storage.RecordID, kind storage.RelationKind, targetCollection string) (int64, error) {
	tc, err := scope(ctx)
	if err != nil {
		return 0, err
	}
	jd, err := joinFor(kind)
	if err != nil {
		return 0, err
	}
	anchorCol, _, err := anchorSide(jd, kind, anchor, targetCollection)
	if err != nil {
		return 0, err
	}
	anchorKey, err := anchor.IntKey()
	if err != nil {
		return 0, err
	}

	where := fmt.Sprintf("%s = ? AND namespace = ?", anchorCol)
	args := []any{anchorKey, tc.Namespace}
	if jd.kindColumn != "" {
		discriminated := targetCollection
		if anchorCol == jd.targetCol {
			discriminated = anchor.Collection
		}
		where += " AND " + jd.kindColumn + " = ?"
		args = append(args, discriminated)
	}

	var n int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", jd.table, where)
	if err := d.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, mapErr(err)
	}
	return n, nil
}

// ListWithCounts attaches each CountSpec as a correlated scalar subquery,
// one query total instead of one count query per row.
func (d *Driver) ListWithCounts(ctx context.Context, collection string, counts []storage.CountSpec, q storage.ListQuery) ([]*storage.Record, error) {
	tc, err := scope(ctx)
	if err != nil {
		return nil, err
	}
	def, err := tableFor(collection)
	if err != nil {
		return nil, err
	}

	selects := []string{def.selectClause("t")}
	aliases := make([]string, 0, len(counts))
	for _, spec := range counts {
		jd, err := joinFor(spec.Kind)
		if err != nil {
			return nil, err
		}
		anchorCol, _, err := anchorSide(jd, spec.Kind, storage.RecordID{Collection: collection}, spec.TargetCollection)
		if err != nil {
			return nil, err
		}
		sub := fmt.Sprintf("(SELECT COUNT(*) FROM %s j WHERE j.%s = t.id AND j.namespace = t.namespace", jd.table, anchorCol)
		if jd.kindColumn != "" {
			discriminated := spec.TargetCollection
			if anchorCol == jd.targetCol {
				discriminated = collection
			}
			sub += fmt.Sprintf(" AND j.%s = '%s'", jd.kindColumn, discriminated)
		}
		sub += ") AS " + spec.Alias
		selects = append(selects, sub)
		aliases = append(aliases, spec.Alias)
	}

	where := []string{"t.namespace = ?"}
	args := []any{tc.Namespace}
	for field, v := range q.Filters {
		enc, err := def.encodeValue(field, v)
		if err != nil {
			return nil, err
		}
		where = append(where, "t."+field+" = ?")
		args = append(args, enc)
	}

	query := fmt.Sprintf("SELECT %s FROM %s t WHERE %s",
		strings.Join(selects, ", "), quoteIdent(collection), strings.Join(where, " AND "))
	query += strings.Replace(orderClause(def, q), " ORDER BY ", " ORDER BY t.", 1)
	query += limitClause(q)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []*storage.Record
	for rows.Next() {
		rec, err := def.scanRecord(collection, rows, aliases)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, mapErr(rows.Err())
}
