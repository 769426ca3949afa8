package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	config "github.com/socialflowhq/socialflow-api/configs"
	"github.com/socialflowhq/socialflow-api/internal/transfer"
)

// Validation happens before the transaction opens, so these run against
// a nil database handle.
func TestCreatePostValidation(t *testing.T) {
	s := NewPostService(config.Config{}, nil, newFakePostRepo(), newFakeJobRepo(), newFakeAccountRepo(), nil)

	tests := []struct {
		name string
		pc   *transfer.PostCreation
	}{
		{"nil payload", nil},
		{"empty content", &transfer.PostCreation{Content: ""}},
		{"bad scheduled time", &transfer.PostCreation{Content: "x", ScheduledFor: "tomorrow-ish"}},
		{"bad platforms json", &transfer.PostCreation{Content: "x", TargetPlatforms: "facebook"}},
		{"unknown platform", &transfer.PostCreation{Content: "x", TargetPlatforms: `["myspace"]`, SelectedAccounts: `[1]`}},
		{"no platforms", &transfer.PostCreation{Content: "x", TargetPlatforms: `[]`, SelectedAccounts: `[1]`}},
		{"bad accounts json", &transfer.PostCreation{Content: "x", TargetPlatforms: `["facebook"]`, SelectedAccounts: "1,2"}},
		{"no accounts", &transfer.PostCreation{Content: "x", TargetPlatforms: `["facebook"]`, SelectedAccounts: `[]`}},
		{"bad variants json", &transfer.PostCreation{Content: "x", TargetPlatforms: `["facebook"]`, SelectedAccounts: `[1]`, PlatformVariants: "{"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := s.CreatePost(context.Background(), 1, 1, tt.pc, nil)
			assert.Error(t, err)
		})
	}
}

func TestPostInfoScopedToOrganization(t *testing.T) {
	pr := newFakePostRepo(scheduledPost(1))
	s := NewPostService(config.Config{}, nil, pr, newFakeJobRepo(), newFakeAccountRepo(), nil)

	post, err := s.PostInfo(context.Background(), 1, 1)
	assert.NoError(t, err)
	assert.NotNil(t, post)

	_, err = s.PostInfo(context.Background(), 1, 99)
	assert.Error(t, err, "foreign organization must not see the post")
}

func TestJobsScopedToOrganization(t *testing.T) {
	pr := newFakePostRepo(scheduledPost(1))
	jr := newFakeJobRepo(pendingJob(1, 1, 1, "facebook"))
	s := NewPostService(config.Config{}, nil, pr, jr, newFakeAccountRepo(), nil)

	jobs, err := s.Jobs(context.Background(), 1, 1)
	assert.NoError(t, err)
	assert.Len(t, jobs, 1)

	_, err = s.Jobs(context.Background(), 1, 99)
	assert.Error(t, err)
}
