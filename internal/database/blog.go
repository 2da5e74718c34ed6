package database

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/dealership/internal/domain"
	"github.com/jackc/pgx/v5"
)

const postColumns = "id, title, summary, content, author, cover_image_url, cover_image_key, created_at, updated_at"

func scanPost(row pgx.Row) (*domain.BlogPost, error) {
	var p domain.BlogPost
	err := row.Scan(&p.ID, &p.Title, &p.Summary, &p.Content, &p.Author,
		&p.CoverImageURL, &p.CoverImageKey, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePost inserts p and fills its generated fields.
func (s *Store) CreatePost(ctx context.Context, p *domain.BlogPost) error {
	err := s.pool.QueryRow(ctx, `INSERT INTO blog_posts
			(title, summary, content, author, cover_image_url, cover_image_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		p.Title, p.Summary, p.Content, p.Author, p.CoverImageURL, p.CoverImageKey,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert blog post: %w", err)
	}
	return nil
}

// UpdatePost overwrites every editable column of p.
func (s *Store) UpdatePost(ctx context.Context, p *domain.BlogPost) error {
	err := s.pool.QueryRow(ctx, `UPDATE blog_posts SET
			title = $2, summary = $3, content = $4, author = $5,
			cover_image_url = $6, cover_image_key = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.Title, p.Summary, p.Content, p.Author, p.CoverImageURL, p.CoverImageKey,
	).Scan(&p.UpdatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrPostNotFound
		}
		return notFound(err, domain.ErrPostNotFound)
	}
	return nil
}

// GetPost loads one post.
func (s *Store) GetPost(ctx context.Context, id string) (*domain.BlogPost, error) {
	p, err := scanPost(s.pool.QueryRow(ctx, "SELECT "+postColumns+" FROM blog_posts WHERE id = $1", id))
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrPostNotFound
		}
		return nil, notFound(err, domain.ErrPostNotFound)
	}
	return p, nil
}

// ListPosts returns posts newest first, plus the total count.
func (s *Store) ListPosts(ctx context.Context, limit, offset int) ([]domain.BlogPost, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM blog_posts").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count blog posts: %w", err)
	}

	rows, err := s.pool.Query(ctx, "SELECT "+postColumns+
		" FROM blog_posts ORDER BY created_at DESC LIMIT $1 OFFSET $2", limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list blog posts: %w", err)
	}
	defer rows.Close()

	posts := make([]domain.BlogPost, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, 0, err
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// DeletePost removes a post.
func (s *Store) DeletePost(ctx context.Context, id string) error {
	return s.execOne(ctx, domain.ErrPostNotFound, "DELETE FROM blog_posts WHERE id = $1", id)
}
