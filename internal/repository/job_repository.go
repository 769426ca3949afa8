package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/socialflowhq/socialflow-api/internal/models"
)

type JobRepository interface {
	Create(ctx context.Context, tx *sql.Tx, job *models.Job) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Job, error)
	ListDue(ctx context.Context, limit int) ([]*models.Job, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.Job, error)
	Claim(ctx context.Context, id int64) (bool, error)
	Complete(ctx context.Context, id int64, platformPostID string, response json.RawMessage) error
	Requeue(ctx context.Context, id int64, lastError string, nextDue time.Time) error
	Fail(ctx context.Context, id int64, lastError string) error
	ResetForRetry(ctx context.Context, id int64) (bool, error)
	CountUnfinishedByPostID(ctx context.Context, postID int64) (int, error)
	CountFailedByPostID(ctx context.Context, postID int64) (int, error)
	RequeueStale(ctx context.Context, olderThan time.Time) (int64, error)
}

type jobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) JobRepository {
	return &jobRepository{db: db}
}

const jobColumns = `id, post_id, social_account_id, organization_id, platform, scheduled_for,
	status, attempts, max_attempts, last_attempt_at, last_error,
	platform_post_id, platform_response, created_at, updated_at`

func (r *jobRepository) Create(ctx context.Context, tx *sql.Tx, job *models.Job) (int64, error) {
	query := `
		INSERT INTO job_queue (post_id, social_account_id, organization_id, platform, scheduled_for, status, max_attempts)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	args := []interface{}{
		job.PostID,
		job.SocialAccountID,
		job.OrganizationID,
		job.Platform.String(),
		job.ScheduledFor,
		models.JobStatusPending,
		job.MaxAttempts,
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

func (r *jobRepository) GetByID(ctx context.Context, id int64) (*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM job_queue WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	job, err := scanJob(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return job, nil
}

// ListDue returns up to limit pending jobs whose scheduled_for has passed,
// earliest first. Callers must still Claim each job before working on it.
func (r *jobRepository) ListDue(ctx context.Context, limit int) ([]*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM job_queue
		WHERE status = $1 AND scheduled_for <= $2
		ORDER BY scheduled_for ASC
		LIMIT $3`
	rows, err := r.db.QueryContext(ctx, query, models.JobStatusPending, time.Now(), limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return scanJobs(rows)
}

func (r *jobRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM job_queue WHERE post_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return scanJobs(rows)
}

// Claim moves one job from pending to processing, incrementing its attempt
// counter. The status guard makes the claim exclusive: when two dispatcher
// runs race, exactly one sees a row affected.
func (r *jobRepository) Claim(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE job_queue
		SET status = $2,
			attempts = attempts + 1,
			last_attempt_at = CURRENT_TIMESTAMP,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = $3
	`
	result, err := r.db.ExecContext(ctx, query, id, models.JobStatusProcessing, models.JobStatusPending)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

func (r *jobRepository) Complete(ctx context.Context, id int64, platformPostID string, response json.RawMessage) error {
	query := `
		UPDATE job_queue
		SET status = $2,
			platform_post_id = $3,
			platform_response = $4,
			last_error = '',
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, models.JobStatusCompleted, platformPostID, []byte(response))
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *jobRepository) Requeue(ctx context.Context, id int64, lastError string, nextDue time.Time) error {
	query := `
		UPDATE job_queue
		SET status = $2,
			last_error = $3,
			scheduled_for = $4,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, models.JobStatusPending, lastError, nextDue)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *jobRepository) Fail(ctx context.Context, id int64, lastError string) error {
	query := `
		UPDATE job_queue
		SET status = $2,
			last_error = $3,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, models.JobStatusFailed, lastError)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// ResetForRetry puts a failed job back in the queue without touching its
// attempt counter, so max_attempts still bounds the total tries.
func (r *jobRepository) ResetForRetry(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE job_queue
		SET status = $2,
			last_error = '',
			scheduled_for = CURRENT_TIMESTAMP,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = $3
	`
	result, err := r.db.ExecContext(ctx, query, id, models.JobStatusPending, models.JobStatusFailed)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

func (r *jobRepository) CountUnfinishedByPostID(ctx context.Context, postID int64) (int, error) {
	query := `SELECT COUNT(*) FROM job_queue WHERE post_id = $1 AND status IN ($2, $3)`

	var count int
	err := r.db.QueryRowContext(ctx, query, postID, models.JobStatusPending, models.JobStatusProcessing).Scan(&count)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return count, nil
}

func (r *jobRepository) CountFailedByPostID(ctx context.Context, postID int64) (int, error) {
	query := `SELECT COUNT(*) FROM job_queue WHERE post_id = $1 AND status = $2`

	var count int
	err := r.db.QueryRowContext(ctx, query, postID, models.JobStatusFailed).Scan(&count)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return count, nil
}

// RequeueStale recovers jobs stuck in processing after a crash mid-publish.
// The publish may or may not have reached the platform, so requeued jobs
// can produce duplicates; that is the at-least-once trade-off.
func (r *jobRepository) RequeueStale(ctx context.Context, olderThan time.Time) (int64, error) {
	query := `
		UPDATE job_queue
		SET status = $1,
			last_error = 'requeued after stale processing',
			updated_at = CURRENT_TIMESTAMP
		WHERE status = $2 AND last_attempt_at < $3
	`
	result, err := r.db.ExecContext(ctx, query, models.JobStatusPending, models.JobStatusProcessing, olderThan)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return result.RowsAffected()
}

func scanJob(row *sql.Row) (*models.Job, error) {
	var job models.Job
	err := row.Scan(&job.ID, &job.PostID, &job.SocialAccountID, &job.OrganizationID, &job.Platform,
		&job.ScheduledFor, &job.Status, &job.Attempts, &job.MaxAttempts, &job.LastAttemptAt,
		&job.LastError, &job.PlatformPostID, &job.PlatformResponse, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func scanJobs(rows *sql.Rows) ([]*models.Job, error) {
	var jobs []*models.Job
	for rows.Next() {
		var job models.Job
		err := rows.Scan(&job.ID, &job.PostID, &job.SocialAccountID, &job.OrganizationID, &job.Platform,
			&job.ScheduledFor, &job.Status, &job.Attempts, &job.MaxAttempts, &job.LastAttemptAt,
			&job.LastError, &job.PlatformPostID, &job.PlatformResponse, &job.CreatedAt, &job.UpdatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		jobs = append(jobs, &job)
	}
	return jobs, rows.Err()
}
