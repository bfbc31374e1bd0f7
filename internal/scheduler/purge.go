package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

const (
	PurgeJobName = "purge-deleted-themes"
	purgeTimeout = time.Minute
)

// DeletedThemePurger drops soft-deleted themes deleted before olderThan.
type DeletedThemePurger interface {
	PurgeDeleted(ctx context.Context, olderThan time.Time) (int, error)
}

// PurgeDeletedThemes removes themes that have sat in the trash longer than
// retention as of now.
func PurgeDeletedThemes(ctx context.Context, purger DeletedThemePurger, now time.Time, retention time.Duration) (int, error) {
	if purger == nil {
		return 0, fmt.Errorf("theme purge requires a store")
	}
	if retention <= 0 {
		return 0, fmt.Errorf("theme purge retention must be positive, got %s", retention)
	}

	cutoff := now.Add(-retention)
	purged, err := purger.PurgeDeleted(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge deleted themes: %w", err)
	}

	logger := log.Ctx(ctx)
	if purged > 0 {
		logger.Info().Int("purged", purged).Time("cutoff", cutoff).Msg("Purged deleted themes")
	} else {
		logger.Debug().Time("cutoff", cutoff).Msg("No deleted themes to purge")
	}
	return purged, nil
}

// RegisterThemePurge schedules PurgeDeletedThemes on svc.
func RegisterThemePurge(svc *Service, cronExpr string, purger DeletedThemePurger, retention time.Duration, now func() time.Time) (gocron.Job, error) {
	if now == nil {
		now = time.Now
	}
	return svc.AddJob(PurgeJobName, cronExpr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
		defer cancel()

		jobLogger := log.With().Str("job_name", PurgeJobName).Logger()
		ctx = jobLogger.WithContext(ctx)
		if _, err := PurgeDeletedThemes(ctx, purger, now(), retention); err != nil {
			jobLogger.Error().Err(err).Msg("Theme purge failed")
		}
	})
}
