package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ai-knowledgebase-be/internal/storage"
)

type edgeDef struct {
	table      string
	sourceCol  string
	targetCol  string
	kindColumn string
}

func edgeFor(kind storage.RelationKind) (edgeDef, error) {
	switch kind {
	case storage.RelationReference:
		return edgeDef{table: "source_notebooks", sourceCol: "source_id", targetCol: "notebook_id"}, nil
	case storage.RelationArtifact:
		return edgeDef{table: "note_notebooks", sourceCol: "note_id", targetCol: "notebook_id"}, nil
	case storage.RelationRefersTo:
		return edgeDef{table: "chat_session_references", sourceCol: "chat_session_id", targetCol: "target_id", kindColumn: "target_collection"}, nil
	}
	return edgeDef{}, fmt.Errorf("%w: unknown relation kind %q", storage.ErrValidation, string(kind))
}

// emptyEdge returns a zero model for query building.
func emptyEdge(kind storage.RelationKind) any {
	switch kind {
	case storage.RelationReference:
		return &SourceNotebook{}
	case storage.RelationArtifact:
		return &NoteNotebook{}
	default:
		return &ChatSessionReference{}
	}
}

func newEdge(kind storage.RelationKind, ns string, srcKey, tgtKey uuid.UUID, targetCollection string) any {
	switch kind {
	case storage.RelationReference:
		return &SourceNotebook{Id: uuid.New(), Namespace: ns, SourceId: srcKey, NotebookId: tgtKey}
	case storage.RelationArtifact:
		return &NoteNotebook{Id: uuid.New(), Namespace: ns, NoteId: srcKey, NotebookId: tgtKey}
	default:
		return &ChatSessionReference{Id: uuid.New(), Namespace: ns, ChatSessionId: srcKey, TargetCollection: targetCollection, TargetId: tgtKey}
	}
}

func (d *Driver) Relate(ctx context.Context, source storage.RecordID, kind storage.RelationKind, target storage.RecordID) error {
	tc, err := scope(ctx)
	if err != nil {
		return err
	}
	if err := kind.ValidateEndpoints(source.Collection, target.Collection); err != nil {
		return err
	}
	srcKey, err := parseKey(source)
	if err != nil {
		return err
	}
	tgtKey, err := parseKey(target)
	if err != nil {
		return err
	}

	edge := newEdge(kind, tc.Namespace, srcKey, tgtKey, target.Collection)
	err = d.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(edge).Error
	if err != nil {
		return mapErr(err)
	}
	return nil
}

// edgeWhere narrows a query to one specific edge row.
func edgeWhere(tx *gorm.DB, ed edgeDef, ns string, srcKey, tgtKey uuid.UUID, targetCollection string) *gorm.DB {
	tx = tx.Where("namespace = ?", ns).
		Where(ed.sourceCol+" = ?", srcKey).
		Where(ed.targetCol+" = ?", tgtKey)
	if ed.kindColumn != "" {
		tx = tx.Where(ed.kindColumn+" = ?", targetCollection)
	}
	return tx
}

func (d *Driver) Unrelate(ctx context.Context, source storage.RecordID, kind storage.RelationKind, target storage.RecordID) error {
	tc, err := scope(ctx)
	if err != nil {
		return err
	}
	if err := kind.ValidateEndpoints(source.Collection, target.Collection); err != nil {
		return err
	}
	ed, err := edgeFor(kind)
	if err != nil {
		return err
	}
	srcKey, err := parseKey(source)
	if err != nil {
		return err
	}
	tgtKey, err := parseKey(target)
	if err != nil {
		return err
	}

	tx := edgeWhere(d.db.WithContext(ctx), ed, tc.Namespace, srcKey, tgtKey, target.Collection)
	if err := tx.Delete(emptyEdge(kind)).Error; err != nil {
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
	ed, err := edgeFor(kind)
	if err != nil {
		return false, err
	}
	srcKey, err := parseKey(source)
	if err != nil {
		return false, err
	}
	tgtKey, err := parseKey(target)
	if err != nil {
		return false, err
	}

	var n int64
	tx := edgeWhere(d.db.WithContext(ctx).Model(emptyEdge(kind)), ed, tc.Namespace, srcKey, tgtKey, target.Collection)
	if err := tx.Count(&n).Error; err != nil {
		return false, mapErr(err)
	}
	return n > 0, nil
}

func anchorSide(ed edgeDef, kind storage.RelationKind, anchorCollection, targetCollection string) (anchorCol, farCol, discriminated string, err error) {
	if kind.ValidateEndpoints(anchorCollection, targetCollection) == nil {
		return ed.sourceCol, ed.targetCol, targetCollection, nil
	}
	if kind.ValidateEndpoints(targetCollection, anchorCollection) == nil {
		return ed.targetCol, ed.sourceCol, anchorCollection, nil
	}
	return "", "", "", fmt.Errorf("%w: relation %q does not connect %s and %s",
		storage.ErrValidation, string(kind), anchorCollection, targetCollection)
}

func (d *Driver) ListRelated(ctx context.Context, anchor storage.RecordID, kind storage.RelationKind, targetCollection string) ([]*storage.Record, error) {
	tc, err := scope(ctx)
	if err != nil {
		return nil, err
	}
	desc, err := descFor(targetCollection)
	if err != nil {
		return nil, err
	}
	ed, err := edgeFor(kind)
	if err != nil {
		return nil, err
	}
	anchorCol, farCol, discriminated, err := anchorSide(ed, kind, anchor.Collection, targetCollection)
	if err != nil {
		return nil, err
	}
	anchorKey, err := parseKey(anchor)
	if err != nil {
		return nil, err
	}

	tx := d.db.WithContext(ctx).Table(desc.table+" AS t").Select("t.*").
		Joins(fmt.Sprintf("JOIN %s j ON j.%s = t.id", ed.table, farCol)).
		Where("j."+anchorCol+" = ?", anchorKey).
		Where("j.namespace = ?", tc.Namespace)
	if ed.kindColumn != "" {
		tx = tx.Where("j."+ed.kindColumn+" = ?", discriminated)
	}
	tx = tx.Order("t.created_at")

	rows, err := tx.Rows()
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []*storage.Record
	for rows.Next() {
		model := desc.newModel()
		if err := d.db.ScanRows(rows, model); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, model.record())
	}
	return out, mapErr(rows.Err())
}

func (d *Driver) CountRelated(ctx context.Context, anchor storage.RecordID, kind storage.RelationKind, targetCollection string) (int64, error) {
	tc, err := scope(ctx)
	if err != nil {
		return 0, err
	}
	ed, err := edgeFor(kind)
	if err != nil {
		return 0, err
	}
	anchorCol, _, discriminated, err := anchorSide(ed, kind, anchor.Collection, targetCollection)
	if err != nil {
		return 0, err
	}
	anchorKey, err := parseKey(anchor)
	if err != nil {
		return 0, err
	}

	tx := d.db.WithContext(ctx).Table(ed.table).
		Where(anchorCol+" = ?", anchorKey).
		Where("namespace = ?", tc.Namespace)
	if ed.kindColumn != "" {
		tx = tx.Where(ed.kindColumn+" = ?", discriminated)
	}

	var n int64
	if err := tx.Count(&n).Error; err != nil {
		return 0, mapErr(err)
	}
	return n, nil
}

// ListWithCounts lists the page first, then resolves every CountSpec with
// one grouped query over the page's keys. Two queries per spec instead of
// one per row.
func (d *Driver) ListWithCounts(ctx context.Context, collection string, counts []storage.CountSpec, q storage.ListQuery) ([]*storage.Record, error) {
	recs, err := d.List(ctx, collection, q)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return recs, nil
	}
	tc, _ := scope(ctx)

	keys := make([]uuid.UUID, 0, len(recs))
	for _, rec := range recs {
		key, err := parseKey(rec.ID)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	for _, spec := range counts {
		ed, err := edgeFor(spec.Kind)
		if err != nil {
			return nil, err
		}
		anchorCol, _, discriminated, err := anchorSide(ed, spec.Kind, collection, spec.TargetCollection)
		if err != nil {
			return nil, err
		}

		tx := d.db.WithContext(ctx).Table(ed.table).
			Select(anchorCol+" AS anchor, COUNT(*) AS n").
			Where(anchorCol+" IN ?", keys).
			Where("namespace = ?", tc.Namespace).
			Group(anchorCol)
		if ed.kindColumn != "" {
			tx = tx.Where(ed.kindColumn+" = ?", discriminated)
		}

		var grouped []struct {
			Anchor uuid.UUID
			N      int64
		}
		if err := tx.Scan(&grouped).Error; err != nil {
			return nil, mapErr(err)
		}

		byKey := make(map[uuid.UUID]int64, len(grouped))
		for _, g := range grouped {
			byKey[g.Anchor] = g.N
		}
		for i, rec := range recs {
			rec.Fields[spec.Alias] = byKey[keys[i]]
		}
	}
	return recs, nil
}
