package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"reviewhub/internal/domain"
)

type IngestionService struct {
	client domain.PlatformClient
	repo   IngestRepository
	now    func() time.Time
}

func NewIngestionService(c domain.PlatformClient, r IngestRepository) *IngestionService {
	return &IngestionService{client: c, repo: r, now: time.Now}
}

// Links lists every branch listing the ingestor should poll.
func (s *IngestionService) Links(ctx context.Context) ([]domain.PlatformLink, error) {
	return s.repo.ListPlatformLinks(ctx)
}

// IngestLink pulls the latest reviews for one branch listing and upserts them.
// Missing or forbidden listings are recorded as misses, not failures.
func (s *IngestionService) IngestLink(ctx context.Context, link domain.PlatformLink, reviewCount int) error {
	revs, err := s.client.GetReviews(ctx, link.Platform, link.ExternalID, reviewCount)
	if err != nil {
		low := strings.ToLower(err.Error())
		switch {
		case errors.Is(err, domain.ErrNotFound) || strings.Contains(low, "not found"):
			s.miss(ctx, link, 404, "not found")
			return nil
		case strings.Contains(low, "403") || strings.Contains(low, "forbidden") ||
			strings.Contains(low, "401") || strings.Contains(low, "unauthorized"):
			s.miss(ctx, link, 403, "inactive")
			return nil
		}
		// Anything else is unexpected (network/5xx/JSON/etc.) -> bubble up.
		return err
	}

	mapped := mapPlatformReviews(link, revs, s.now().UTC().Truncate(time.Second))
	if skipped := len(revs) - len(mapped); skipped > 0 {
		log.Debug().Int64("branch_id", link.BranchID).Str("platform", link.Platform.String()).
			Int("skipped", skipped).Msg("platform reviews without usable rating")
	}
	if len(mapped) == 0 {
		return nil
	}
	if err := s.repo.UpsertReviews(ctx, mapped); err != nil {
		return fmt.Errorf("upsert reviews failed for branch %d on %s: %w", link.BranchID, link.Platform, err)
	}
	return nil
}

func (s *IngestionService) miss(ctx context.Context, link domain.PlatformLink, status int, reason string) {
	if err := s.repo.LogMiss(ctx, link.BranchID, link.Platform, status, reason); err != nil {
		log.Warn().Err(err).Int64("branch_id", link.BranchID).Msg("log miss failed")
	}
}
