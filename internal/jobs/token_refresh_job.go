package job

import (
	"context"
	"log/slog"

	"github.com/socialflowhq/socialflow-api/internal/service"
)

// TokenRefreshJob renews soon-to-expire tokens ahead of time so the
// publish path rarely has to refresh inline.
type TokenRefreshJob struct {
	rs service.RefreshService
}

func NewTokenRefreshJob(rs service.RefreshService) *TokenRefreshJob {
	return &TokenRefreshJob{rs: rs}
}

func (c *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()

	refreshed, err := c.rs.RefreshExpiring(ctx)
	if err != nil {
		slog.Info(err.Error())
		return
	}
	if refreshed > 0 {
		slog.Info("token refresh sweep finished", "refreshed", refreshed)
	}
}
