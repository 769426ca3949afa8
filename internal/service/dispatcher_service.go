package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	config "github.com/socialflowhq/socialflow-api/configs"
	"github.com/socialflowhq/socialflow-api/internal/models"
	"github.com/socialflowhq/socialflow-api/internal/platform"
	"github.com/socialflowhq/socialflow-api/internal/repository"
)

// RetryPolicy computes the delay before a failed attempt is retried.
// attempt is the number of attempts already made (>= 1).
type RetryPolicy interface {
	NextDelay(attempt int) time.Duration
}

type noRetryDelay struct{}

func (noRetryDelay) NextDelay(int) time.Duration { return 0 }

type fixedDelay struct{ d time.Duration }

func (p fixedDelay) NextDelay(int) time.Duration { return p.d }

type exponentialDelay struct{ base time.Duration }

func (p exponentialDelay) NextDelay(attempt int) time.Duration {
	d := p.base
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}

// NewRetryPolicy maps a policy name ("none", "fixed", "exponential") to an
// implementation. Unknown names fall back to immediate retry.
func NewRetryPolicy(name string, delay time.Duration) RetryPolicy {
	switch name {
	case "fixed":
		return fixedDelay{d: delay}
	case "exponential":
		return exponentialDelay{base: delay}
	default:
		return noRetryDelay{}
	}
}

// DispatcherService drains due jobs and drives each one through
// claim, token refresh, publish, and the final status transition.
type DispatcherService interface {
	PollAndProcess(ctx context.Context) (int, error)
	ProcessJob(ctx context.Context, jobID int64) error
	RetryJob(ctx context.Context, orgID, jobID, actorID int64) error
	RequeueStale(ctx context.Context) (int64, error)
}

type dispatcherService struct {
	cfg     config.Config
	jr      repository.JobRepository
	pr      repository.PostRepository
	sa      repository.SocialAccountRepository
	refresh RefreshService
	audit   AuditService
	reg     platform.Registry
	policy  RetryPolicy
}

func NewDispatcherService(cfg config.Config, jr repository.JobRepository, pr repository.PostRepository,
	sa repository.SocialAccountRepository, refresh RefreshService, audit AuditService, reg platform.Registry) DispatcherService {
	return &dispatcherService{
		cfg:     cfg,
		jr:      jr,
		pr:      pr,
		sa:      sa,
		refresh: refresh,
		audit:   audit,
		reg:     reg,
		policy:  NewRetryPolicy(cfg.Dispatcher.RetryPolicy, cfg.Dispatcher.RetryDelay),
	}
}

// PollAndProcess claims and works one batch of due jobs, at most
// Concurrency at a time. Returns the number of jobs this run claimed.
// Jobs claimed by a concurrent run are skipped silently.
func (s *dispatcherService) PollAndProcess(ctx context.Context) (int, error) {
	jobs, err := s.jr.ListDue(ctx, s.cfg.Dispatcher.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("error listing due jobs: %w", err)
	}

	sem := make(chan struct{}, s.cfg.Dispatcher.Concurrency)
	var wg sync.WaitGroup
	processed := 0

	for _, job := range jobs {
		claimed, err := s.jr.Claim(ctx, job.ID)
		if err != nil {
			slog.Error(err.Error())
			continue
		}
		if !claimed {
			continue
		}
		job.Attempts++

		processed++
		wg.Add(1)
		sem <- struct{}{}
		go func(j *models.Job) {
			defer wg.Done()
			defer func() { <-sem }()

			s.work(ctx, j)
		}(job)
	}

	wg.Wait()
	return processed, nil
}

// ProcessJob claims and works a single job by id, used by the queue
// worker when a delayed dispatch task fires.
func (s *dispatcherService) ProcessJob(ctx context.Context, jobID int64) error {
	job, err := s.jr.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("job %d not found", jobID)
	}

	claimed, err := s.jr.Claim(ctx, jobID)
	if err != nil {
		return err
	}
	if !claimed {
		// Already picked up by the poll loop or a concurrent worker.
		return nil
	}
	job.Attempts++

	s.work(ctx, job)
	return nil
}

// work drives one claimed job to a terminal or retryable state. The job
// is already in processing with its attempt counted.
func (s *dispatcherService) work(ctx context.Context, job *models.Job) {
	account, err := s.sa.GetByID(ctx, job.SocialAccountID)
	if err != nil {
		s.retryOrFail(ctx, job, err.Error())
		return
	}
	if account == nil || !account.IsActive {
		s.fail(ctx, job, "social account is disconnected")
		return
	}

	accessToken, err := s.refresh.EnsureFreshToken(ctx, account)
	if err != nil {
		var refreshErr *TokenRefreshError
		var noToken *NoRefreshTokenError
		if errors.As(err, &refreshErr) || errors.As(err, &noToken) {
			// The account is dead until reconnected; retrying would
			// burn attempts against a wall.
			s.fail(ctx, job, err.Error())
			return
		}
		s.retryOrFail(ctx, job, err.Error())
		return
	}

	content, err := s.buildContent(ctx, job)
	if err != nil {
		s.retryOrFail(ctx, job, err.Error())
		return
	}

	publisher, ok := s.reg[job.Platform]
	if !ok {
		s.fail(ctx, job, fmt.Sprintf("no publisher for platform %s", job.Platform))
		return
	}

	s.audit.Record(ctx, job.OrganizationID, 0, models.AuditPublishAttempt, "job", job.ID,
		fmt.Sprintf("attempt %d/%d on %s", job.Attempts, job.MaxAttempts, job.Platform))

	ref, err := publisher.Publish(ctx, accessToken, account.ExternalAccountID, *content)
	if err != nil {
		var validationErr *platform.ValidationError
		if errors.As(err, &validationErr) {
			// The content can never succeed as-is.
			s.fail(ctx, job, err.Error())
			return
		}
		s.retryOrFail(ctx, job, err.Error())
		return
	}

	if err := s.jr.Complete(ctx, job.ID, ref.PlatformPostID, ref.Response); err != nil {
		slog.Error(err.Error())
		return
	}
	s.audit.Record(ctx, job.OrganizationID, 0, models.AuditPublishSucceeded, "job", job.ID, ref.PlatformPostID)
	s.rollupPost(ctx, job.PostID)
}

// buildContent assembles what actually goes to the platform: the post
// body, overridden by a per-platform variant when one exists, plus the
// ordered media URLs.
func (s *dispatcherService) buildContent(ctx context.Context, job *models.Job) (*platform.Content, error) {
	post, err := s.pr.GetByID(ctx, job.PostID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, fmt.Errorf("post %d not found", job.PostID)
	}

	content := platform.Content{Text: post.Content}

	variant, err := s.pr.GetVariant(ctx, job.PostID, job.Platform)
	if err != nil {
		return nil, err
	}
	if variant != nil {
		if variant.Content != "" {
			content.Text = variant.Content
		}
		content.Hashtags = variant.Hashtags
		content.CallToAction = variant.CallToAction
	}

	media, err := s.pr.ListMediaByPostID(ctx, job.PostID)
	if err != nil {
		return nil, err
	}
	for _, m := range media {
		content.MediaURLs = append(content.MediaURLs, m.FileURL)
	}

	return &content, nil
}

// retryOrFail requeues a transient failure until the attempt budget runs
// out, then fails the job for good.
func (s *dispatcherService) retryOrFail(ctx context.Context, job *models.Job, reason string) {
	if job.Attempts >= job.MaxAttempts {
		s.fail(ctx, job, reason)
		return
	}

	nextDue := time.Now().Add(s.policy.NextDelay(job.Attempts))
	if err := s.jr.Requeue(ctx, job.ID, reason, nextDue); err != nil {
		slog.Error(err.Error())
		return
	}
	s.audit.Record(ctx, job.OrganizationID, 0, models.AuditPublishFailed, "job", job.ID,
		fmt.Sprintf("attempt %d/%d: %s", job.Attempts, job.MaxAttempts, reason))
}

func (s *dispatcherService) fail(ctx context.Context, job *models.Job, reason string) {
	if err := s.jr.Fail(ctx, job.ID, reason); err != nil {
		slog.Error(err.Error())
		return
	}
	s.audit.Record(ctx, job.OrganizationID, 0, models.AuditPublishFailed, "job", job.ID, reason)
	s.rollupPost(ctx, job.PostID)
}

// rollupPost settles the parent post once its last job finishes: any
// failed job makes the post failed, otherwise it is published.
func (s *dispatcherService) rollupPost(ctx context.Context, postID int64) {
	unfinished, err := s.jr.CountUnfinishedByPostID(ctx, postID)
	if err != nil {
		slog.Error(err.Error())
		return
	}
	if unfinished > 0 {
		return
	}

	failed, err := s.jr.CountFailedByPostID(ctx, postID)
	if err != nil {
		slog.Error(err.Error())
		return
	}

	if failed > 0 {
		if err := s.pr.UpdateStatus(ctx, postID, models.PostStatusFailed); err != nil {
			slog.Error(err.Error())
		}
		return
	}
	if err := s.pr.MarkPublished(ctx, postID); err != nil {
		slog.Error(err.Error())
	}
}

// RetryJob puts a failed job back in the queue at the caller's request.
// The attempt counter is preserved, so max_attempts still bounds total
// tries across manual retries.
func (s *dispatcherService) RetryJob(ctx context.Context, orgID, jobID, actorID int64) error {
	job, err := s.jr.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job == nil || job.OrganizationID != orgID {
		return fmt.Errorf("job doesn't exist")
	}
	if job.Attempts >= job.MaxAttempts {
		return fmt.Errorf("job has exhausted its %d attempts", job.MaxAttempts)
	}

	reset, err := s.jr.ResetForRetry(ctx, jobID)
	if err != nil {
		return err
	}
	if !reset {
		return fmt.Errorf("job is not in a failed state")
	}

	if err := s.pr.UpdateStatus(ctx, job.PostID, models.PostStatusScheduled); err != nil {
		slog.Error(err.Error())
	}
	s.audit.Record(ctx, orgID, actorID, models.AuditJobRetried, "job", jobID, "")
	return nil
}

// RequeueStale recovers jobs stuck in processing longer than the
// configured window, typically after a crash mid-publish.
func (s *dispatcherService) RequeueStale(ctx context.Context) (int64, error) {
	return s.jr.RequeueStale(ctx, time.Now().Add(-s.cfg.Dispatcher.StaleAfter))
}
