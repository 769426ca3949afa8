package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"time"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"

	config "github.com/socialflowhq/socialflow-api/configs"
	"github.com/socialflowhq/socialflow-api/internal/models"
	"github.com/socialflowhq/socialflow-api/internal/platform"
	"github.com/socialflowhq/socialflow-api/internal/repository"
	"github.com/socialflowhq/socialflow-api/internal/transfer"
)

type PostService interface {
	CreatePost(ctx context.Context, orgID, userID int64, pc *transfer.PostCreation, files []*multipart.FileHeader) (int64, time.Duration, error)
	List(ctx context.Context, orgID int64) ([]*models.Post, error)
	PostInfo(ctx context.Context, postID, orgID int64) (*models.Post, error)
	Jobs(ctx context.Context, postID, orgID int64) ([]*models.Job, error)
	Remove(ctx context.Context, orgID, postID int64) error
}

type postService struct {
	cfg config.Config
	db  *sql.DB
	pr  repository.PostRepository
	jr  repository.JobRepository
	sa  repository.SocialAccountRepository
	r2  R2Service
}

func NewPostService(
	cfg config.Config,
	db *sql.DB,
	pr repository.PostRepository,
	jr repository.JobRepository,
	sa repository.SocialAccountRepository,
	r2 R2Service) PostService {
	return &postService{
		cfg: cfg,
		db:  db,
		pr:  pr,
		jr:  jr,
		sa:  sa,
		r2:  r2,
	}
}

// CreatePost stores the post with its variants and media, then fans out
// one job per selected account whose platform is targeted. Everything
// lands in one transaction; the returned delay is how long until the
// post is due.
func (s *postService) CreatePost(ctx context.Context, orgID, userID int64, pc *transfer.PostCreation, files []*multipart.FileHeader) (int64, time.Duration, error) {
	if pc == nil {
		err := errors.New("post creation data is nil")
		slog.Error(err.Error())
		return 0, 0, err
	}
	if pc.Content == "" {
		err := errors.New("content cannot be empty")
		slog.Info(err.Error())
		return 0, 0, err
	}

	scheduledFor := time.Now()
	if pc.ScheduledFor != "" {
		t, err := time.Parse("2006-01-02T15:04", pc.ScheduledFor)
		if err != nil {
			err = fmt.Errorf("invalid scheduled time format: %w", err)
			slog.Error(err.Error())
			return 0, 0, err
		}
		scheduledFor = t
	}

	var targetPlatforms []string
	if err := json.Unmarshal([]byte(pc.TargetPlatforms), &targetPlatforms); err != nil {
		err = fmt.Errorf("invalid target platforms format: %w", err)
		slog.Error(err.Error())
		return 0, 0, err
	}
	targets := make(map[platform.Platform]struct{}, len(targetPlatforms))
	for _, name := range targetPlatforms {
		p, err := platform.Parse(name)
		if err != nil {
			slog.Error(err.Error())
			return 0, 0, err
		}
		targets[p] = struct{}{}
	}
	if len(targets) == 0 {
		err := errors.New("no target platforms selected")
		slog.Error(err.Error())
		return 0, 0, err
	}

	var selectedAccounts []int64
	if err := json.Unmarshal([]byte(pc.SelectedAccounts), &selectedAccounts); err != nil {
		err = fmt.Errorf("invalid selected accounts format: %w", err)
		slog.Error(err.Error())
		return 0, 0, err
	}
	if len(selectedAccounts) == 0 {
		err := errors.New("no social accounts selected")
		slog.Error(err.Error())
		return 0, 0, err
	}

	variants := make(map[string]transfer.VariantPayload)
	if pc.PlatformVariants != "" {
		if err := json.Unmarshal([]byte(pc.PlatformVariants), &variants); err != nil {
			err = fmt.Errorf("invalid platform variants format: %w", err)
			slog.Error(err.Error())
			return 0, 0, err
		}
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	post := models.Post{
		OrganizationID:  orgID,
		UserID:          userID,
		Content:         pc.Content,
		TargetPlatforms: targetPlatforms,
		Status:          models.PostStatusScheduled,
		ScheduledFor:    &scheduledFor,
	}

	postID, err := s.pr.Create(ctx, tx, &post)
	if err != nil {
		return 0, 0, fmt.Errorf("error creating post: %w", err)
	}

	if err = s.saveVariants(ctx, tx, postID, targets, variants); err != nil {
		return 0, 0, fmt.Errorf("error saving variants: %w", err)
	}

	if err = s.processFiles(ctx, tx, postID, files); err != nil {
		return 0, 0, fmt.Errorf("error processing files: %w", err)
	}

	if err = s.fanOutJobs(ctx, tx, orgID, postID, scheduledFor, targets, selectedAccounts); err != nil {
		return 0, 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	delay := time.Until(scheduledFor)
	if delay < 0 {
		delay = 0
	}

	return postID, delay, nil
}

func (s *postService) saveVariants(ctx context.Context, tx *sql.Tx, postID int64, targets map[platform.Platform]struct{}, variants map[string]transfer.VariantPayload) error {
	for name, payload := range variants {
		p, err := platform.Parse(name)
		if err != nil {
			return err
		}
		if _, ok := targets[p]; !ok {
			return fmt.Errorf("variant for %s but platform is not targeted", p)
		}

		v := models.PostVariant{
			PostID:       postID,
			Platform:     p,
			Content:      payload.Content,
			Hashtags:     payload.Hashtags,
			CallToAction: payload.CallToAction,
		}
		if err := s.pr.CreateVariant(ctx, tx, &v); err != nil {
			return err
		}
	}
	return nil
}

func (s *postService) processFiles(ctx context.Context, tx *sql.Tx, postID int64, files []*multipart.FileHeader) error {
	allowedTypes := map[string]struct{}{
		"mp4": {}, "mov": {}, "jpeg": {}, "png": {}, "jpg": {},
	}

	for i, file := range files {
		fileContent, err := file.Open()
		if err != nil {
			return fmt.Errorf("error opening file: %w", err)
		}
		defer fileContent.Close()

		fileBytes, err := io.ReadAll(fileContent)
		if err != nil {
			return fmt.Errorf("error reading file content: %w", err)
		}

		fileType, err := filetype.Match(fileBytes)
		if err != nil || fileType == types.Unknown {
			return fmt.Errorf("unsupported file type: %w", err)
		}
		if _, ok := allowedTypes[fileType.Extension]; !ok {
			return fmt.Errorf("file type %s is not allowed", fileType.Extension)
		}

		key, err := gonanoid.New()
		if err != nil {
			slog.Info(err.Error())
			return err
		}
		if err := s.r2.Upload(ctx, key, fileBytes, fileType.MIME.Value); err != nil {
			return fmt.Errorf("error uploading file: %w", err)
		}

		postMedia := models.PostMedia{
			PostID:       postID,
			FileURL:      s.r2.PublicURL(key),
			FileType:     fileType.MIME.Value,
			DisplayOrder: i,
		}
		if err := s.pr.CreateMedia(ctx, tx, &postMedia); err != nil {
			return fmt.Errorf("error saving media file: %w", err)
		}
	}
	return nil
}

// fanOutJobs creates one pending job per (post, account). Every selected
// account must belong to the caller's organization, be active, and be on
// a targeted platform.
func (s *postService) fanOutJobs(ctx context.Context, tx *sql.Tx, orgID, postID int64, scheduledFor time.Time, targets map[platform.Platform]struct{}, accountIDs []int64) error {
	for _, accountID := range accountIDs {
		account, err := s.sa.GetByID(ctx, accountID)
		if err != nil {
			return fmt.Errorf("error checking social account %d: %w", accountID, err)
		}
		if account == nil || account.OrganizationID != orgID {
			return fmt.Errorf("social account %d does not exist", accountID)
		}
		if !account.IsActive {
			return fmt.Errorf("social account %d is disconnected", accountID)
		}
		if _, ok := targets[account.Platform]; !ok {
			return fmt.Errorf("social account %d is on %s, which is not targeted", accountID, account.Platform)
		}

		job := models.Job{
			PostID:          postID,
			SocialAccountID: accountID,
			OrganizationID:  orgID,
			Platform:        account.Platform,
			ScheduledFor:    scheduledFor,
			MaxAttempts:     s.cfg.Dispatcher.MaxAttempts,
		}
		if _, err := s.jr.Create(ctx, tx, &job); err != nil {
			return fmt.Errorf("error creating job for account %d: %w", accountID, err)
		}
	}
	return nil
}

func (s *postService) PostInfo(ctx context.Context, postID, orgID int64) (*models.Post, error) {
	var err error

	if postID == 0 {
		err = errors.New("post id is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	isValid, err := s.pr.CheckByOrganization(ctx, postID, orgID)
	if err != nil {
		return nil, err
	}
	if !isValid {
		err = errors.New("post doesn't exist")
		slog.Info(err.Error())
		return nil, err
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("error getting post info")
	}

	return post, nil
}

func (s *postService) Jobs(ctx context.Context, postID, orgID int64) ([]*models.Job, error) {
	isValid, err := s.pr.CheckByOrganization(ctx, postID, orgID)
	if err != nil {
		return nil, err
	}
	if !isValid {
		err = errors.New("post doesn't exist")
		slog.Info(err.Error())
		return nil, err
	}

	return s.jr.ListByPostID(ctx, postID)
}

func (s *postService) List(ctx context.Context, orgID int64) ([]*models.Post, error) {
	posts, err := s.pr.ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("error getting posts")
	}
	return posts, nil
}

func (s *postService) Remove(ctx context.Context, orgID, postID int64) error {
	var err error

	if postID == 0 {
		err = errors.New("post_id is not valid")
		slog.Info(err.Error())
		return err
	}

	isValid, err := s.pr.CheckByOrganization(ctx, postID, orgID)
	if err != nil {
		return err
	}
	if !isValid {
		err = errors.New("post doesn't exist")
		slog.Info(err.Error())
		return err
	}

	err = s.pr.Remove(ctx, postID)
	if err != nil {
		return fmt.Errorf("error removing post")
	}

	return nil
}
