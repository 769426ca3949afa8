package platform

import (
	"context"
	"net/http"
	"time"
)

// Publisher performs the platform-specific publish call(s) for one job.
// Implementations must not mutate stored state; they translate content
// into wire calls and report the outcome.
type Publisher interface {
	Publish(ctx context.Context, accessToken, accountID string, content Content) (*PublishedRef, error)
}

// Registry maps each platform to its Publisher.
type Registry map[Platform]Publisher

// NewRegistry builds the default adapter set sharing one HTTP client.
func NewRegistry(timeout time.Duration) Registry {
	client := &http.Client{Timeout: timeout}
	return Registry{
		Facebook:  NewFacebookPublisher(client),
		Instagram: NewInstagramPublisher(client),
		Linkedin:  NewLinkedinPublisher(client),
	}
}
