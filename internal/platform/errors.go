package platform

import "fmt"

// PublishError is a transient publish failure. The dispatcher retries it
// until the job's attempt budget runs out.
type PublishError struct {
	Platform        Platform
	ProviderMessage string
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("%s publish failed: %s", e.Platform, e.ProviderMessage)
}

// ValidationError means the content can never be accepted by the platform
// as-is (for example an Instagram post without media). Not retryable.
type ValidationError struct {
	Platform Platform
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s validation: %s", e.Platform, e.Reason)
}
