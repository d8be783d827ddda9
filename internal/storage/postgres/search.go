package postgres

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"ai-knowledgebase-be/internal/storage"
)

const headlineOpts = "StartSel=<mark>, StopSel=</mark>, MaxWords=24, MinWords=8"

func (d *Driver) SearchText(ctx context.Context, query string, sc storage.SearchScope, limit int) ([]storage.TextHit, error) {
	tc, err := scope(ctx)
	if err != nil {
		return nil, err
	}
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}

	var hits []storage.TextHit
	run := func(querySQL, collection, parentCollection string, args ...any) error {
		rows, err := d.db.WithContext(ctx).Raw(querySQL, args...).Rows()
		if err != nil {
			return mapErr(err)
		}
		defer rows.Close()
		for rows.Next() {
			var (
				key, parentKey string
				title, snippet string
				score          float64
			)
			if err := rows.Scan(&key, &parentKey, &title, &snippet, &score); err != nil {
				return mapErr(err)
			}
			hits = append(hits, storage.TextHit{
				ID:      storage.NewID(collection, key),
				Parent:  storage.NewID(parentCollection, parentKey),
				Title:   title,
				Snippet: snippet,
				Score:   score,
			})
		}
		return mapErr(rows.Err())
	}

	if sc.Sources {
		err := run(fmt.Sprintf(`
			SELECT s.id, s.id, s.title,
			       ts_headline('english', coalesce(s.full_text, s.title), plainto_tsquery('english', ?), '%s'),
			       ts_rank(to_tsvector('english', coalesce(s.title, '') || ' ' || coalesce(s.full_text, '')), plainto_tsquery('english', ?))
			FROM sources s
			WHERE s.namespace = ?
			  AND to_tsvector('english', coalesce(s.title, '') || ' ' || coalesce(s.full_text, '')) @@ plainto_tsquery('english', ?)
			ORDER BY 5 DESC LIMIT ?`, headlineOpts),
			storage.CollectionSource, storage.CollectionSource,
			query, query, tc.Namespace, query, limit)
		if err != nil {
			return nil, err
		}
		err = run(fmt.Sprintf(`
			SELECT e.id, e.source_id, s.title,
			       ts_headline('english', coalesce(e.content, ''), plainto_tsquery('english', ?), '%s'),
			       ts_rank(to_tsvector('english', coalesce(e.content, '')), plainto_tsquery('english', ?))
			FROM source_embeddings e
			JOIN sources s ON s.id = e.source_id
			WHERE e.namespace = ?
			  AND to_tsvector('english', coalesce(e.content, '')) @@ plainto_tsquery('english', ?)
			ORDER BY 5 DESC LIMIT ?`, headlineOpts),
			storage.CollectionSourceEmbedding, storage.CollectionSource,
			query, query, tc.Namespace, query, limit)
		if err != nil {
			return nil, err
		}
		err = run(fmt.Sprintf(`
			SELECT i.id, i.source_id, s.title,
			       ts_headline('english', coalesce(i.content, ''), plainto_tsquery('english', ?), '%s'),
			       ts_rank(to_tsvector('english', coalesce(i.content, '')), plainto_tsquery('english', ?))
			FROM source_insights i
			JOIN sources s ON s.id = i.source_id
			WHERE i.namespace = ?
			  AND to_tsvector('english', coalesce(i.content, '')) @@ plainto_tsquery('english', ?)
			ORDER BY 5 DESC LIMIT ?`, headlineOpts),
			storage.CollectionSourceInsight, storage.CollectionSource,
			query, query, tc.Namespace, query, limit)
		if err != nil {
			return nil, err
		}
	}
	if sc.Notes {
		err := run(fmt.Sprintf(`
			SELECT n.id, n.id, n.title,
			       ts_headline('english', coalesce(n.content, n.title), plainto_tsquery('english', ?), '%s'),
			       ts_rank(to_tsvector('english', coalesce(n.title, '') || ' ' || coalesce(n.content, '')), plainto_tsquery('english', ?))
			FROM notes n
			WHERE n.namespace = ?
			  AND to_tsvector('english', coalesce(n.title, '') || ' ' || coalesce(n.content, '')) @@ plainto_tsquery('english', ?)
			ORDER BY 5 DESC LIMIT ?`, headlineOpts),
			storage.CollectionNote, storage.CollectionNote,
			query, query, tc.Namespace, query, limit)
		if err != nil {
			return nil, err
		}
	}
	return hits, nil
}

func (d *Driver) SearchVector(ctx context.Context, vector []float32, sc storage.SearchScope, limit int, minSimilarity float64) ([]storage.VectorHit, error) {
	tc, err := scope(ctx)
	if err != nil {
		return nil, err
	}
	// The columns are fixed-width; a query vector of any other dimension
	// can never match, so it is filtered here rather than erroring.
	if len(vector) != vectorDim {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	qv := pgvector.NewVector(vector)

	var hits []storage.VectorHit
	run := func(querySQL, collection, parentCollection string) error {
		rows, err := d.db.WithContext(ctx).Raw(querySQL, qv, tc.Namespace, qv, minSimilarity, limit).Rows()
		if err != nil {
			return mapErr(err)
		}
		defer rows.Close()
		for rows.Next() {
			var (
				key, parentKey string
				title, content string
				similarity     float64
			)
			if err := rows.Scan(&key, &parentKey, &title, &content, &similarity); err != nil {
				return mapErr(err)
			}
			hits = append(hits, storage.VectorHit{
				ID:         storage.NewID(collection, key),
				Parent:     storage.NewID(parentCollection, parentKey),
				Title:      title,
				Content:    content,
				Similarity: similarity,
			})
		}
		return mapErr(rows.Err())
	}

	if sc.Sources {
		err := run(`
			SELECT e.id, e.source_id, s.title, coalesce(e.content, ''),
			       1 - (e.embedding <=> ?) AS similarity
			FROM source_embeddings e
			JOIN sources s ON s.id = e.source_id
			WHERE e.namespace = ? AND e.embedding IS NOT NULL
			  AND 1 - (e.embedding <=> ?) >= ?
			ORDER BY similarity DESC LIMIT ?`,
			storage.CollectionSourceEmbedding, storage.CollectionSource)
		if err != nil {
			return nil, err
		}
		err = run(`
			SELECT i.id, i.source_id, s.title, coalesce(i.content, ''),
			       1 - (i.embedding <=> ?) AS similarity
			FROM source_insights i
			JOIN sources s ON s.id = i.source_id
			WHERE i.namespace = ? AND i.embedding IS NOT NULL
			  AND 1 - (i.embedding <=> ?) >= ?
			ORDER BY similarity DESC LIMIT ?`,
			storage.CollectionSourceInsight, storage.CollectionSource)
		if err != nil {
			return nil, err
		}
	}
	if sc.Notes {
		err := run(`
			SELECT n.id, n.id, n.title, coalesce(n.content, ''),
			       1 - (n.embedding <=> ?) AS similarity
			FROM notes n
			WHERE n.namespace = ? AND n.embedding IS NOT NULL
			  AND 1 - (n.embedding <=> ?) >= ?
			ORDER BY similarity DESC LIMIT ?`,
			storage.CollectionNote, storage.CollectionNote)
		if err != nil {
			return nil, err
		}
	}
	return hits, nil
}
