package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/socialflowhq/socialflow-api/internal/models"
	"github.com/socialflowhq/socialflow-api/internal/platform"
)

// Function-field fakes: each test assigns only the calls it expects.

type fakeJobRepo struct {
	mu   sync.Mutex
	jobs map[int64]*models.Job

	createFn func(ctx context.Context, tx *sql.Tx, job *models.Job) (int64, error)
}

func newFakeJobRepo(jobs ...*models.Job) *fakeJobRepo {
	r := &fakeJobRepo{jobs: make(map[int64]*models.Job)}
	for _, j := range jobs {
		r.jobs[j.ID] = j
	}
	return r
}

func (r *fakeJobRepo) Create(ctx context.Context, tx *sql.Tx, job *models.Job) (int64, error) {
	if r.createFn != nil {
		return r.createFn(ctx, tx, job)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	id := int64(len(r.jobs) + 1)
	job.ID = id
	job.Status = models.JobStatusPending
	r.jobs[id] = job
	return id, nil
}

func (r *fakeJobRepo) GetByID(ctx context.Context, id int64) (*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, nil
	}
	copied := *job
	return &copied, nil
}

func (r *fakeJobRepo) ListDue(ctx context.Context, limit int) ([]*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []*models.Job
	for _, job := range r.jobs {
		if job.Status == models.JobStatusPending && !job.ScheduledFor.After(time.Now()) {
			copied := *job
			due = append(due, &copied)
			if len(due) == limit {
				break
			}
		}
	}
	return due, nil
}

func (r *fakeJobRepo) ListByPostID(ctx context.Context, postID int64) ([]*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var jobs []*models.Job
	for _, job := range r.jobs {
		if job.PostID == postID {
			copied := *job
			jobs = append(jobs, &copied)
		}
	}
	return jobs, nil
}

func (r *fakeJobRepo) Claim(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.Status != models.JobStatusPending {
		return false, nil
	}
	now := time.Now()
	job.Status = models.JobStatusProcessing
	job.Attempts++
	job.LastAttemptAt = &now
	return true, nil
}

func (r *fakeJobRepo) Complete(ctx context.Context, id int64, platformPostID string, response json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job := r.jobs[id]
	job.Status = models.JobStatusCompleted
	job.PlatformPostID = platformPostID
	job.PlatformResponse = response
	job.LastError = ""
	return nil
}

func (r *fakeJobRepo) Requeue(ctx context.Context, id int64, lastError string, nextDue time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job := r.jobs[id]
	job.Status = models.JobStatusPending
	job.LastError = lastError
	job.ScheduledFor = nextDue
	return nil
}

func (r *fakeJobRepo) Fail(ctx context.Context, id int64, lastError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job := r.jobs[id]
	job.Status = models.JobStatusFailed
	job.LastError = lastError
	return nil
}

func (r *fakeJobRepo) ResetForRetry(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.Status != models.JobStatusFailed {
		return false, nil
	}
	job.Status = models.JobStatusPending
	job.LastError = ""
	job.ScheduledFor = time.Now()
	return true, nil
}

func (r *fakeJobRepo) CountUnfinishedByPostID(ctx context.Context, postID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, job := range r.jobs {
		if job.PostID == postID && (job.Status == models.JobStatusPending || job.Status == models.JobStatusProcessing) {
			count++
		}
	}
	return count, nil
}

func (r *fakeJobRepo) CountFailedByPostID(ctx context.Context, postID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, job := range r.jobs {
		if job.PostID == postID && job.Status == models.JobStatusFailed {
			count++
		}
	}
	return count, nil
}

func (r *fakeJobRepo) RequeueStale(ctx context.Context, olderThan time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var requeued int64
	for _, job := range r.jobs {
		if job.Status == models.JobStatusProcessing && job.LastAttemptAt != nil && job.LastAttemptAt.Before(olderThan) {
			job.Status = models.JobStatusPending
			requeued++
		}
	}
	return requeued, nil
}

func (r *fakeJobRepo) get(id int64) *models.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *r.jobs[id]
	return &copied
}

type fakePostRepo struct {
	mu       sync.Mutex
	posts    map[int64]*models.Post
	variants map[int64]map[platform.Platform]*models.PostVariant
	media    map[int64][]*models.PostMedia
}

func newFakePostRepo(posts ...*models.Post) *fakePostRepo {
	r := &fakePostRepo{
		posts:    make(map[int64]*models.Post),
		variants: make(map[int64]map[platform.Platform]*models.PostVariant),
		media:    make(map[int64][]*models.PostMedia),
	}
	for _, p := range posts {
		r.posts[p.ID] = p
	}
	return r
}

func (r *fakePostRepo) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := int64(len(r.posts) + 1)
	post.ID = id
	r.posts[id] = post
	return id, nil
}

func (r *fakePostRepo) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.posts[id]
	if !ok {
		return nil, nil
	}
	copied := *post
	return &copied, nil
}

func (r *fakePostRepo) ListByOrganization(ctx context.Context, orgID int64) ([]*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var posts []*models.Post
	for _, post := range r.posts {
		if post.OrganizationID == orgID {
			copied := *post
			posts = append(posts, &copied)
		}
	}
	return posts, nil
}

func (r *fakePostRepo) CheckByOrganization(ctx context.Context, postID, orgID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.posts[postID]
	return ok && post.OrganizationID == orgID, nil
}

func (r *fakePostRepo) UpdateStatus(ctx context.Context, postID int64, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts[postID].Status = status
	return nil
}

func (r *fakePostRepo) MarkPublished(ctx context.Context, postID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.posts[postID].Status = models.PostStatusPublished
	r.posts[postID].PublishedAt = &now
	return nil
}

func (r *fakePostRepo) CreateVariant(ctx context.Context, tx *sql.Tx, v *models.PostVariant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.variants[v.PostID] == nil {
		r.variants[v.PostID] = make(map[platform.Platform]*models.PostVariant)
	}
	r.variants[v.PostID][v.Platform] = v
	return nil
}

func (r *fakePostRepo) GetVariant(ctx context.Context, postID int64, p platform.Platform) (*models.PostVariant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.variants[postID][p]
	if !ok {
		return nil, nil
	}
	return v, nil
}

func (r *fakePostRepo) CreateMedia(ctx context.Context, tx *sql.Tx, m *models.PostMedia) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.media[m.PostID] = append(r.media[m.PostID], m)
	return nil
}

func (r *fakePostRepo) ListMediaByPostID(ctx context.Context, postID int64) ([]*models.PostMedia, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.media[postID], nil
}

func (r *fakePostRepo) Remove(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.posts, id)
	return nil
}

func (r *fakePostRepo) get(id int64) *models.Post {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *r.posts[id]
	return &copied
}

type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[int64]*models.SocialAccount

	upsertFn func(ctx context.Context, tx *sql.Tx, sa *models.SocialAccount) (int64, error)
}

func newFakeAccountRepo(accounts ...*models.SocialAccount) *fakeAccountRepo {
	r := &fakeAccountRepo{accounts: make(map[int64]*models.SocialAccount)}
	for _, a := range accounts {
		r.accounts[a.ID] = a
	}
	return r
}

func (r *fakeAccountRepo) Upsert(ctx context.Context, tx *sql.Tx, sa *models.SocialAccount) (int64, error) {
	if r.upsertFn != nil {
		return r.upsertFn(ctx, tx, sa)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	id := int64(len(r.accounts) + 1)
	sa.ID = id
	sa.IsActive = true
	r.accounts[id] = sa
	return id, nil
}

func (r *fakeAccountRepo) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return nil, nil
	}
	copied := *account
	return &copied, nil
}

func (r *fakeAccountRepo) ListByOrganization(ctx context.Context, orgID int64) ([]*models.SocialAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var accounts []*models.SocialAccount
	for _, account := range r.accounts {
		if account.OrganizationID == orgID {
			copied := *account
			accounts = append(accounts, &copied)
		}
	}
	return accounts, nil
}

func (r *fakeAccountRepo) ListActiveByOrgAndPlatform(ctx context.Context, orgID int64, p platform.Platform) ([]*models.SocialAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var accounts []*models.SocialAccount
	for _, account := range r.accounts {
		if account.OrganizationID == orgID && account.Platform == p && account.IsActive {
			copied := *account
			accounts = append(accounts, &copied)
		}
	}
	return accounts, nil
}

func (r *fakeAccountRepo) ListExpiring(ctx context.Context, within time.Duration) ([]*models.SocialAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := time.Now().Add(within)
	var accounts []*models.SocialAccount
	for _, account := range r.accounts {
		if account.IsActive && account.TokenExpiresAt != nil && !account.TokenExpiresAt.After(cutoff) {
			copied := *account
			accounts = append(accounts, &copied)
		}
	}
	return accounts, nil
}

func (r *fakeAccountRepo) CheckByOrganization(ctx context.Context, accountID, orgID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[accountID]
	return ok && account.OrganizationID == orgID, nil
}

func (r *fakeAccountRepo) UpdateTokens(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account := r.accounts[id]
	account.AccessToken = accessToken
	if refreshToken != "" {
		account.RefreshToken = refreshToken
	}
	account.TokenExpiresAt = expiresAt
	account.IsActive = true
	account.LastError = ""
	return nil
}

func (r *fakeAccountRepo) MarkRefreshFailed(ctx context.Context, id int64, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account := r.accounts[id]
	account.IsActive = false
	account.LastError = reason
	return nil
}

func (r *fakeAccountRepo) Deactivate(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[id].IsActive = false
	return nil
}

func (r *fakeAccountRepo) get(id int64) *models.SocialAccount {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *r.accounts[id]
	return &copied
}

// fakeAudit records events in memory.
type fakeAudit struct {
	mu     sync.Mutex
	events []*models.AuditEvent
}

func (a *fakeAudit) Record(ctx context.Context, orgID, actorID int64, action, targetType string, targetID int64, detail string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, &models.AuditEvent{
		OrganizationID: orgID,
		ActorID:        actorID,
		Action:         action,
		TargetType:     targetType,
		TargetID:       targetID,
		Detail:         detail,
	})
}

func (a *fakeAudit) List(ctx context.Context, orgID int64, limit int) ([]*models.AuditEvent, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.events, nil
}

func (a *fakeAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var actions []string
	for _, e := range a.events {
		actions = append(actions, e.Action)
	}
	return actions
}

// fakeRefresh returns a canned token or error.
type fakeRefresh struct {
	token string
	err   error
	calls int
}

func (f *fakeRefresh) EnsureFreshToken(ctx context.Context, account *models.SocialAccount) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.token, nil
}

func (f *fakeRefresh) RefreshAccount(ctx context.Context, orgID, accountID int64) error {
	return f.err
}

func (f *fakeRefresh) RefreshExpiring(ctx context.Context) (int, error) {
	return 0, nil
}

// fakePublisher scripts Publish outcomes, in order, repeating the last.
type fakePublisher struct {
	mu       sync.Mutex
	outcomes []publishOutcome
	calls    int
	contents []platform.Content
}

type publishOutcome struct {
	ref *platform.PublishedRef
	err error
}

func (f *fakePublisher) Publish(ctx context.Context, accessToken, accountID string, content platform.Content) (*platform.PublishedRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contents = append(f.contents, content)
	i := f.calls
	if i >= len(f.outcomes) {
		i = len(f.outcomes) - 1
	}
	f.calls++
	out := f.outcomes[i]
	return out.ref, out.err
}
