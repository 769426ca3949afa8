package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/socialflowhq/socialflow-api/internal/models"
	"github.com/socialflowhq/socialflow-api/internal/platform"
)

type PostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	ListByOrganization(ctx context.Context, orgID int64) ([]*models.Post, error)
	CheckByOrganization(ctx context.Context, postID, orgID int64) (bool, error)
	UpdateStatus(ctx context.Context, postID int64, status string) error
	MarkPublished(ctx context.Context, postID int64) error
	CreateVariant(ctx context.Context, tx *sql.Tx, v *models.PostVariant) error
	GetVariant(ctx context.Context, postID int64, p platform.Platform) (*models.PostVariant, error)
	CreateMedia(ctx context.Context, tx *sql.Tx, m *models.PostMedia) error
	ListMediaByPostID(ctx context.Context, postID int64) ([]*models.PostMedia, error)
	Remove(ctx context.Context, id int64) error
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, organization_id, user_id, content, target_platforms, status,
	scheduled_for, published_at, created_at, updated_at`

func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	query := `
		INSERT INTO posts (organization_id, user_id, content, target_platforms, status, scheduled_for)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	args := []interface{}{
		post.OrganizationID,
		post.UserID,
		post.Content,
		pq.Array([]string(post.TargetPlatforms)),
		post.Status,
		post.ScheduledFor,
	}

	var id int64
	var err error
	if tx != nil {
		err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	var post models.Post
	err := row.Scan(&post.ID, &post.OrganizationID, &post.UserID, &post.Content, &post.TargetPlatforms,
		&post.Status, &post.ScheduledFor, &post.PublishedAt, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &post, nil
}

func (r *postRepository) ListByOrganization(ctx context.Context, orgID int64) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE organization_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		var post models.Post
		err := rows.Scan(&post.ID, &post.OrganizationID, &post.UserID, &post.Content, &post.TargetPlatforms,
			&post.Status, &post.ScheduledFor, &post.PublishedAt, &post.CreatedAt, &post.UpdatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, &post)
	}
	return posts, rows.Err()
}

func (r *postRepository) CheckByOrganization(ctx context.Context, postID, orgID int64) (bool, error) {
	query := `SELECT 1 FROM posts WHERE id = $1 AND organization_id = $2`

	var result int
	err := r.db.QueryRowContext(ctx, query, postID, orgID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

func (r *postRepository) UpdateStatus(ctx context.Context, postID int64, status string) error {
	query := `UPDATE posts SET status = $1, updated_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, status, time.Now(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) MarkPublished(ctx context.Context, postID int64) error {
	query := `
		UPDATE posts
		SET status = $1, published_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
	`
	_, err := r.db.ExecContext(ctx, query, models.PostStatusPublished, postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) CreateVariant(ctx context.Context, tx *sql.Tx, v *models.PostVariant) error {
	query := `
		INSERT INTO post_variants (post_id, platform, content, hashtags, call_to_action)
		VALUES ($1, $2, $3, $4, $5)
	`

	args := []interface{}{v.PostID, v.Platform.String(), v.Content, pq.Array([]string(v.Hashtags)), v.CallToAction}

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, args...)
	} else {
		_, err = r.db.ExecContext(ctx, query, args...)
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) GetVariant(ctx context.Context, postID int64, p platform.Platform) (*models.PostVariant, error) {
	query := `SELECT post_id, platform, content, hashtags, call_to_action FROM post_variants WHERE post_id = $1 AND platform = $2`
	row := r.db.QueryRowContext(ctx, query, postID, p.String())

	var v models.PostVariant
	err := row.Scan(&v.PostID, &v.Platform, &v.Content, &v.Hashtags, &v.CallToAction)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &v, nil
}

func (r *postRepository) CreateMedia(ctx context.Context, tx *sql.Tx, m *models.PostMedia) error {
	query := `
		INSERT INTO post_media (post_id, file_url, file_type, display_order)
		VALUES ($1, $2, $3, $4)
	`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, m.PostID, m.FileURL, m.FileType, m.DisplayOrder)
	} else {
		_, err = r.db.ExecContext(ctx, query, m.PostID, m.FileURL, m.FileType, m.DisplayOrder)
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) ListMediaByPostID(ctx context.Context, postID int64) ([]*models.PostMedia, error) {
	query := `SELECT id, post_id, file_url, file_type, display_order, created_at FROM post_media WHERE post_id = $1 ORDER BY display_order`
	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var media []*models.PostMedia
	for rows.Next() {
		var m models.PostMedia
		if err := rows.Scan(&m.ID, &m.PostID, &m.FileURL, &m.FileType, &m.DisplayOrder, &m.CreatedAt); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		media = append(media, &m)
	}
	return media, rows.Err()
}

func (r *postRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM posts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
