package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"stockboard/internal/modules/holdings"
)

// RefreshJob re-fetches quotes for every held ticker on a schedule.
// The service's in-flight guard keeps a slow batch from overlapping
// with the next firing.
type RefreshJob struct {
	service *holdings.Service
	timeout time.Duration
	log     zerolog.Logger
}

// NewRefreshJob creates a new quote refresh job
func NewRefreshJob(service *holdings.Service, timeout time.Duration, log zerolog.Logger) *RefreshJob {
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	return &RefreshJob{
		service: service,
		timeout: timeout,
		log:     log.With().Str("job", "quote_refresh").Logger(),
	}
}

// Name returns the job name
func (j *RefreshJob) Name() string {
	return "quote_refresh"
}

// Run performs one refresh pass
func (j *RefreshJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if err := j.service.RefreshAll(ctx); err != nil {
		j.log.Error().Err(err).Msg("Scheduled refresh failed")
		return err
	}

	return nil
}
