package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JonMunkholm/dealership/internal/domain"
	"github.com/JonMunkholm/dealership/internal/storage"
)

// PostInput is the editable part of a blog post. Content is HTML produced
// by the admin editor and stored as is.
type PostInput struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Content string `json:"content"`
	Author  string `json:"author"`
}

func (in *PostInput) validate() error {
	in.Title = strings.TrimSpace(in.Title)
	fields := make(map[string]string)
	if in.Title == "" {
		fields["title"] = "Title is required"
	}
	if strings.TrimSpace(in.Content) == "" {
		fields["content"] = "Content is required"
	}
	if len(fields) > 0 {
		return &ValidationError{Err: domain.ErrInvalidPostData, Fields: fields}
	}
	return nil
}

func (in *PostInput) apply(p *domain.BlogPost) {
	p.Title = in.Title
	p.Summary = optional(in.Summary)
	p.Content = in.Content
	p.Author = optional(in.Author)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// CoverChange describes what happens to a post's cover image on save.
type CoverChange struct {
	// File replaces the cover when set.
	File *storage.File
	// Remove clears the cover when File is nil.
	Remove bool
}

// CreatePost uploads the optional cover and inserts the post.
func (s *Service) CreatePost(ctx context.Context, in PostInput, cover *storage.File) (*domain.BlogPost, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	p := &domain.BlogPost{}
	in.apply(p)

	if cover != nil {
		obj, err := s.objects.Upload(ctx, s.blogBucket, "posts", *cover)
		if err != nil {
			return nil, fmt.Errorf("upload cover: %w", err)
		}
		p.CoverImageURL = &obj.URL
		p.CoverImageKey = obj.Key
	}

	if err := s.blog.CreatePost(ctx, p); err != nil {
		s.removeObject(ctx, s.blogBucket, p.CoverImageKey)
		return nil, fmt.Errorf("create post: %w", err)
	}

	s.recordAudit(ctx, domain.AuditPostCreate, EntityPost, p.ID, map[string]any{"title": p.Title})
	return p, nil
}

// UpdatePost saves the post and applies the cover change. The previous cover
// object is removed only after the row is updated.
func (s *Service) UpdatePost(ctx context.Context, id string, in PostInput, cover CoverChange) (*domain.BlogPost, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	p, err := s.blog.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(p)

	oldKey := p.CoverImageKey
	var newKey string
	switch {
	case cover.File != nil:
		obj, err := s.objects.Upload(ctx, s.blogBucket, "posts", *cover.File)
		if err != nil {
			return nil, fmt.Errorf("upload cover: %w", err)
		}
		newKey = obj.Key
		p.CoverImageURL = &obj.URL
		p.CoverImageKey = obj.Key
	case cover.Remove:
		p.CoverImageURL = nil
		p.CoverImageKey = ""
	default:
		oldKey = ""
	}

	if err := s.blog.UpdatePost(ctx, p); err != nil {
		s.removeObject(ctx, s.blogBucket, newKey)
		return nil, fmt.Errorf("update post: %w", err)
	}
	s.removeObject(ctx, s.blogBucket, oldKey)

	s.recordAudit(ctx, domain.AuditPostUpdate, EntityPost, p.ID, map[string]any{"title": p.Title})
	return p, nil
}

// DeletePost removes the post and its cover object.
func (s *Service) DeletePost(ctx context.Context, id string) error {
	p, err := s.blog.GetPost(ctx, id)
	if err != nil {
		return err
	}
	if err := s.blog.DeletePost(ctx, id); err != nil {
		return err
	}
	s.removeObject(ctx, s.blogBucket, p.CoverImageKey)
	slog.Info("blog post deleted", "post_id", id)

	s.recordAudit(ctx, domain.AuditPostDelete, EntityPost, id, map[string]any{"title": p.Title})
	return nil
}

// GetPost returns one post.
func (s *Service) GetPost(ctx context.Context, id string) (*domain.BlogPost, error) {
	return s.blog.GetPost(ctx, id)
}

// ListPosts returns a page of posts, newest first, plus the total count.
func (s *Service) ListPosts(ctx context.Context, page, pageSize int) ([]domain.BlogPost, int, error) {
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 12
	}
	if page < 1 {
		page = 1
	}
	return s.blog.ListPosts(ctx, pageSize, (page-1)*pageSize)
}
