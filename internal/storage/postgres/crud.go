package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ai-knowledgebase-be/internal/storage"
)

func (d *Driver) Create(ctx context.Context, collection string, fields map[string]any) (*storage.Record, error) {
	tc, err := scope(ctx)
	if err != nil {
		return nil, err
	}
	desc, err := descFor(collection)
	if err != nil {
		return nil, err
	}

	model := desc.newModel()
	if err := model.applyFields(storage.WithoutID(fields)); err != nil {
		return nil, err
	}
	model.setKey(uuid.New())
	model.setNamespace(tc.Namespace)

	if err := d.db.WithContext(ctx).Create(model).Error; err != nil {
		return nil, mapErr(err)
	}
	return model.record(), nil
}

// getModel loads the raw model so Update can merge into it.
func (d *Driver) getModel(ctx context.Context, id storage.RecordID) (entityModel, error) {
	tc, err := scope(ctx)
	if err != nil {
		return nil, err
	}
	desc, err := descFor(id.Collection)
	if err != nil {
		return nil, err
	}
	key, err := parseKey(id)
	if err != nil {
		return nil, err
	}

	model := desc.newModel()
	err = d.db.WithContext(ctx).Where("id = ? AND namespace = ?", key, tc.Namespace).Take(model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id.String())
		}
		return nil, mapErr(err)
	}
	return model, nil
}

func (d *Driver) Get(ctx context.Context, id storage.RecordID) (*storage.Record, error) {
	model, err := d.getModel(ctx, id)
	if err != nil {
		return nil, err
	}
	return model.record(), nil
}

// listTx builds the filtered, scoped query shared by List and the count
// variant.
func (d *Driver) listTx(ctx context.Context, desc tableDesc, tc string, q storage.ListQuery) (*gorm.DB, error) {
	tx := d.db.WithContext(ctx).Model(desc.newModel()).Where("namespace = ?", tc)
	for field, v := range q.Filters {
		column, ok := desc.columns[field]
		if !ok {
			return nil, fmt.Errorf("%w: cannot filter %q by %q", storage.ErrValidation, desc.table, field)
		}
		if ref, isRef := desc.refs[field]; isRef {
			key, err := wantRef(field, ref, v)
			if err != nil {
				return nil, err
			}
			v = key
		}
		tx = tx.Where(column+" = ?", v)
	}

	order := "id"
	switch q.OrderBy {
	case "", "id":
	case "created":
		order = "created_at"
	case "updated":
		order = "updated_at"
	default:
		column, ok := desc.columns[q.OrderBy]
		if !ok {
			return nil, fmt.Errorf("%w: cannot order %q by %q", storage.ErrValidation, desc.table, q.OrderBy)
		}
		order = column
	}
	if q.Desc {
		order += " DESC"
	}
	tx = tx.Order(order)

	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	if q.Offset > 0 {
		tx = tx.Offset(q.Offset)
	}
	return tx, nil
}

func (d *Driver) List(ctx context.Context, collection string, q storage.ListQuery) ([]*storage.Record, error) {
	tc, err := scope(ctx)
	if err != nil {
		return nil, err
	}
	desc, err := descFor(collection)
	if err != nil {
		return nil, err
	}
	tx, err := d.listTx(ctx, desc, tc.Namespace, q)
	if err != nil {
		return nil, err
	}

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

func (d *Driver) Update(ctx context.Context, id storage.RecordID, fields map[string]any) (*storage.Record, error) {
	model, err := d.getModel(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := model.applyFields(storage.WithoutID(fields)); err != nil {
		return nil, err
	}
	if err := d.db.WithContext(ctx).Save(model).Error; err != nil {
		return nil, mapErr(err)
	}
	return model.record(), nil
}

func (d *Driver) Upsert(ctx context.Context, id storage.RecordID, fields map[string]any) (*storage.Record, error) {
	if id.Key == "" {
		return d.Create(ctx, id.Collection, fields)
	}
	tc, err := scope(ctx)
	if err != nil {
		return nil, err
	}
	desc, err := descFor(id.Collection)
	if err != nil {
		return nil, err
	}
	key, err := parseKey(id)
	if err != nil {
		return nil, err
	}

	existing := desc.newModel()
	err = d.db.WithContext(ctx).Where("id = ?", key).Take(existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		model := desc.newModel()
		if err := model.applyFields(storage.WithoutID(fields)); err != nil {
			return nil, err
		}
		model.setKey(key)
		model.setNamespace(tc.Namespace)
		if err := d.db.WithContext(ctx).Create(model).Error; err != nil {
			return nil, mapErr(err)
		}
		return model.record(), nil
	case err != nil:
		return nil, mapErr(err)
	}

	if existing.namespace() != tc.Namespace {
		return nil, fmt.Errorf("%w: id %s belongs to another tenant", storage.ErrConstraint, id.String())
	}

	// Replacement semantics: every entity column is rewritten from the
	// supplied fields, only created_at survives.
	model := desc.newModel()
	if err := model.applyFields(storage.WithoutID(fields)); err != nil {
		return nil, err
	}
	model.setKey(key)
	model.setNamespace(tc.Namespace)
	err = d.db.WithContext(ctx).Model(model).Select("*").Omit("id", "created_at").Updates(model).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return d.Get(ctx, id)
}

func (d *Driver) Delete(ctx context.Context, id storage.RecordID) (bool, error) {
	tc, err := scope(ctx)
	if err != nil {
		return false, err
	}
	desc, err := descFor(id.Collection)
	if err != nil {
		return false, err
	}
	key, err := parseKey(id)
	if err != nil {
		return false, err
	}

	res := d.db.WithContext(ctx).Where("id = ? AND namespace = ?", key, tc.Namespace).Delete(desc.newModel())
	if res.Error != nil {
		return false, mapErr(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (d *Driver) BulkInsert(ctx context.Context, collection string, rowFields []map[string]any, ignoreDuplicates bool) ([]*storage.Record, error) {
	tc, err := scope(ctx)
	if err != nil {
		return nil, err
	}
	desc, err := descFor(collection)
	if err != nil {
		return nil, err
	}

	var out []*storage.Record
	err = d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, fields := range rowFields {
			model := desc.newModel()
			if err := model.applyFields(storage.WithoutID(fields)); err != nil {
				return err
			}
			model.setKey(uuid.New())
			model.setNamespace(tc.Namespace)

			ins := tx
			if ignoreDuplicates {
				// DO NOTHING keeps the transaction healthy on conflicts,
				// a failed statement would poison it.
				ins = tx.Clauses(clause.OnConflict{DoNothing: true})
			}
			res := ins.Create(model)
			if res.Error != nil {
				return mapErr(res.Error)
			}
			if res.RowsAffected == 0 {
				continue
			}
			out = append(out, model.record())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
