package sqlite

import (
	"context"
	"sort"
	"strings"
	"sync"

	"ai-knowledgebase-be/internal/storage"
)

// ftsQuery turns free text into an FTS5 AND-of-terms expression. Each
// token is quoted so user input can never inject MATCH syntax.
func ftsQuery(q string) string {
	terms := strings.Fields(q)
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		quoted = append(quoted, `"`+strings.ReplaceAll(t, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " ")
}

func (d *Driver) SearchText(ctx context.Context, query string, sc storage.SearchScope, limit int) ([]storage.TextHit, error) {
	tc, err := scope(ctx)
	if err != nil {
		return nil, err
	}
	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}

	var hits []storage.TextHit
	appendHits := func(querySQL string, collection, parentFrom string) error {
		rows, err := d.db.QueryContext(ctx, querySQL, match, tc.Namespace, limit)
		if err != nil {
			return mapErr(err)
		}
		defer rows.Close()
		for rows.Next() {
			var (
				key, parentKey int64
				title, snippet string
				score          float64
			)
			if err := rows.Scan(&key, &parentKey, &title, &snippet, &score); err != nil {
				return mapErr(err)
			}
			parent := storage.IntID(parentFrom, parentKey)
			hits = append(hits, storage.TextHit{
				ID:      storage.IntID(collection, key),
				Parent:  parent,
				Title:   title,
				Snippet: snippet,
				Score:   score,
			})
		}
		return mapErr(rows.Err())
	}

	if sc.Sources {
		// bm25 ranks ascending with better matches more negative, so the
		// relevance score is its negation.
		if err := appendHits(`
			SELECT s.id, s.id, s.title,
			       snippet(source_fts, 1, '<mark>', '</mark>', '...', 24),
			       -bm25(source_fts)
			FROM source_fts
			JOIN source s ON s.id = source_fts.rowid
			WHERE source_fts MATCH ? AND s.namespace = ?
			ORDER BY bm25(source_fts) LIMIT ?`,
			storage.CollectionSource, storage.CollectionSource); err != nil {
			return nil, err
		}
		if err := appendHits(`
			SELECT e.id, e.source_id, s.title,
			       snippet(source_embedding_fts, 0, '<mark>', '</mark>', '...', 24),
			       -bm25(source_embedding_fts)
			FROM source_embedding_fts
			JOIN source_embedding e ON e.id = source_embedding_fts.rowid
			JOIN source s ON s.id = e.source_id
			WHERE source_embedding_fts MATCH ? AND e.namespace = ?
			ORDER BY bm25(source_embedding_fts) LIMIT ?`,
			storage.CollectionSourceEmbedding, storage.CollectionSource); err != nil {
			return nil, err
		}
		if err := appendHits(`
			SELECT i.id, i.source_id, s.title,
			       snippet(source_insight_fts, 0, '<mark>', '</mark>', '...', 24),
			       -bm25(source_insight_fts)
			FROM source_insight_fts
			JOIN source_insight i ON i.id = source_insight_fts.rowid
			JOIN source s ON s.id = i.source_id
			WHERE source_insight_fts MATCH ? AND i.namespace = ?
			ORDER BY bm25(source_insight_fts) LIMIT ?`,
			storage.CollectionSourceInsight, storage.CollectionSource); err != nil {
			return nil, err
		}
	}
	if sc.Notes {
		if err := appendHits(`
			SELECT n.id, n.id, n.title,
			       snippet(note_fts, 1, '<mark>', '</mark>', '...', 24),
			       -bm25(note_fts)
			FROM note_fts
			JOIN note n ON n.id = note_fts.rowid
			WHERE note_fts MATCH ? AND n.namespace = ?
			ORDER BY bm25(note_fts) LIMIT ?`,
			storage.CollectionNote, storage.CollectionNote); err != nil {
			return nil, err
		}
	}
	return hits, nil
}

type vectorCandidate struct {
	id      storage.RecordID
	parent  storage.RecordID
	title   string
	content string
	vector  []float32
}

func (d *Driver) SearchVector(ctx context.Context, vector []float32, sc storage.SearchScope, limit int, minSimilarity float64) ([]storage.VectorHit, error) {
	tc, err := scope(ctx)
	if err != nil {
		return nil, err
	}

	var cands []vectorCandidate
	collect := func(querySQL string, collection, parentFrom string, selfParent bool) error {
		rows, err := d.db.QueryContext(ctx, querySQL, tc.Namespace)
		if err != nil {
			return mapErr(err)
		}
		defer rows.Close()
		for rows.Next() {
			var (
				key, parentKey int64
				title, content string
				blob           []byte
			)
			if err := rows.Scan(&key, &parentKey, &title, &content, &blob); err != nil {
				return mapErr(err)
			}
			vec, err := storage.UnmarshalVector(blob)
			if err != nil {
				// A corrupt blob disqualifies the row, not the search.
				continue
			}
			parentColl := parentFrom
			if selfParent {
				parentColl = collection
			}
			cands = append(cands, vectorCandidate{
				id:      storage.IntID(collection, key),
				parent:  storage.IntID(parentColl, parentKey),
				title:   title,
				content: content,
				vector:  vec,
			})
		}
		return mapErr(rows.Err())
	}

	if sc.Sources {
		if err := collect(`
			SELECT e.id, e.source_id, s.title, COALESCE(e.content, ''), e.embedding
			FROM source_embedding e
			JOIN source s ON s.id = e.source_id
			WHERE e.namespace = ? AND e.embedding IS NOT NULL`,
			storage.CollectionSourceEmbedding, storage.CollectionSource, false); err != nil {
			return nil, err
		}
		if err := collect(`
			SELECT i.id, i.source_id, s.title, COALESCE(i.content, ''), i.embedding
			FROM source_insight i
			JOIN source s ON s.id = i.source_id
			WHERE i.namespace = ? AND i.embedding IS NOT NULL`,
			storage.CollectionSourceInsight, storage.CollectionSource, false); err != nil {
			return nil, err
		}
	}
	if sc.Notes {
		if err := collect(`
			SELECT n.id, n.id, n.title, COALESCE(n.content, ''), n.embedding
			FROM note n
			WHERE n.namespace = ? AND n.embedding IS NOT NULL`,
			storage.CollectionNote, "", true); err != nil {
			return nil, err
		}
	}

	hits := d.scoreCandidates(vector, cands, minSimilarity)
	sort.Slice(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// scoreCandidates fans the cosine math out over a small fixed pool.
// Mismatched dimensions and zero vectors score 0 instead of erroring,
// so a positive threshold filters them out.
func (d *Driver) scoreCandidates(query []float32, cands []vectorCandidate, minSimilarity float64) []storage.VectorHit {
	scores := make([]float64, len(cands))
	workers := d.scorerPool
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	idx := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				scores[i] = storage.CosineSimilarity(query, cands[i].vector)
			}
		}()
	}
	for i := range cands {
		idx <- i
	}
	close(idx)
	wg.Wait()

	hits := make([]storage.VectorHit, 0, len(cands))
	for i, c := range cands {
		if scores[i] < minSimilarity {
			continue
		}
		hits = append(hits, storage.VectorHit{
			ID:         c.id,
			Parent:     c.parent,
			Title:      c.title,
			Content:    c.content,
			Similarity: scores[i],
		})
	}
	return hits
}
