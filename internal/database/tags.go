package database

import (
	"context"
	"fmt"
)

// UpsertTag creates a tag or returns the existing one with the same slug
func (db *DB) UpsertTag(ctx context.Context, name, slug, category string) (*Tag, error) {
	query := `
		INSERT INTO tags (name, slug, category)
		VALUES ($1, $2, $3)
		ON CONFLICT (slug) DO UPDATE SET name = tags.name
		RETURNING id, name, slug, category
	`

	var tag Tag
	err := db.pool.QueryRow(ctx, query, name, slug, category).Scan(&tag.ID, &tag.Name, &tag.Slug, &tag.Category)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert tag %s: %w", slug, err)
	}
	return &tag, nil
}

// LinkTag attaches a tag to an article; linking twice is a no-op
func (db *DB) LinkTag(ctx context.Context, articleID, tagID int64) error {
	query := `INSERT INTO article_tags (article_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	if _, err := db.pool.Exec(ctx, query, articleID, tagID); err != nil {
		return fmt.Errorf("failed to link tag: %w", err)
	}
	return nil
}

// attachTags loads tags for the given articles in one query
func (db *DB) attachTags(ctx context.Context, articles []*Article) error {
	if len(articles) == 0 {
		return nil
	}

	byID := make(map[int64]*Article, len(articles))
	ids := make([]int64, 0, len(articles))
	for _, a := range articles {
		byID[a.ID] = a
		ids = append(ids, a.ID)
	}

	query := `
		SELECT at.article_id, t.id, t.name, t.slug, t.category
		FROM article_tags at
		JOIN tags t ON t.id = at.tag_id
		WHERE at.article_id = ANY($1)
		ORDER BY t.name
	`

	rows, err := db.pool.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var articleID int64
		var tag Tag
		if err := rows.Scan(&articleID, &tag.ID, &tag.Name, &tag.Slug, &tag.Category); err != nil {
			return fmt.Errorf("failed to scan tag: %w", err)
		}
		if a, ok := byID[articleID]; ok {
			a.Tags = append(a.Tags, tag)
			a.TagIDs = append(a.TagIDs, tag.ID)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating tags: %w", err)
	}
	return nil
}
