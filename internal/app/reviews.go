package app

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"reviewhub/internal/apperr"
	"reviewhub/internal/domain"
	"reviewhub/internal/dto"
	"reviewhub/internal/tenancy"
)

const maxReplyRunes = 4000

type ReviewService struct {
	repo     ReviewRepository
	branches BranchRepository
	engine   *tenancy.Engine
}

func NewReviewService(r ReviewRepository, b BranchRepository, e *tenancy.Engine) *ReviewService {
	return &ReviewService{repo: r, branches: b, engine: e}
}

// authorize scopes f to tc. Requested branches are resolved inside the
// already authorized company scope before any review query runs.
func (s *ReviewService) authorize(ctx context.Context, tc tenancy.TenantContext, f dto.ReviewFilter) (tenancy.FilterSpecification, error) {
	spec, err := s.engine.AuthorizeFilter(tc, f)
	if err != nil || !s.engine.BranchCheckRequired(tc, spec) {
		return spec, err
	}
	owned, err := s.branches.BranchIDsInScope(ctx, spec)
	if err != nil {
		return tenancy.FilterSpecification{}, translate("reviews.authorize", "branch", err)
	}
	return s.engine.NarrowBranches(tc, spec, owned)
}

// ListReviews returns one page of reviews visible to tc that match f.
func (s *ReviewService) ListReviews(ctx context.Context, tc tenancy.TenantContext, f dto.ReviewFilter) (dto.ReviewListDTO, error) {
	spec, err := s.authorize(ctx, tc, f)
	if err != nil {
		return dto.ReviewListDTO{}, err
	}
	if spec.Scope().Empty() {
		return dto.ReviewListDTO{Items: []dto.ReviewDTO{}}, nil
	}

	rs, err := s.repo.FindReviews(ctx, spec)
	if err != nil {
		return dto.ReviewListDTO{}, translate("reviews.list", "review", err)
	}
	total, err := s.repo.CountReviews(ctx, spec)
	if err != nil {
		return dto.ReviewListDTO{}, translate("reviews.count", "review", err)
	}

	out := dto.ReviewListDTO{Items: make([]dto.ReviewDTO, 0, len(rs)), Total: total}
	for _, r := range rs {
		d, err := reviewToDTO(r)
		if err != nil {
			return dto.ReviewListDTO{}, translate("reviews.list", "review", err)
		}
		out.Items = append(out.Items, d)
	}
	out.NextCursor = spec.NextCursor(len(out.Items), total)
	return out, nil
}

// GetReview hides reviews outside tc's scope behind a not-found.
func (s *ReviewService) GetReview(ctx context.Context, tc tenancy.TenantContext, id int64) (dto.ReviewDTO, error) {
	spec, err := s.engine.AuthorizeScope(tc, tenancy.PermReviewsRead, dto.ScopeFilter{})
	if err != nil {
		return dto.ReviewDTO{}, err
	}
	if id <= 0 {
		return dto.ReviewDTO{}, apperr.Validation("id", "must be a positive integer")
	}
	if spec.Scope().Empty() {
		return dto.ReviewDTO{}, apperr.NotFound("review")
	}
	r, err := s.repo.GetReview(ctx, spec, id)
	if err != nil {
		return dto.ReviewDTO{}, translate("reviews.get", "review", err)
	}
	d, err := reviewToDTO(r)
	return d, translate("reviews.get", "review", err)
}

// UpdateReview changes status and/or reply. Setting a reply on a review that
// is still new marks it answered.
func (s *ReviewService) UpdateReview(ctx context.Context, tc tenancy.TenantContext, id int64, in dto.ReviewUpdate) (dto.ReviewDTO, error) {
	spec, err := s.engine.AuthorizeScope(tc, tenancy.PermReviewsWrite, dto.ScopeFilter{})
	if err != nil {
		return dto.ReviewDTO{}, err
	}
	if id <= 0 {
		return dto.ReviewDTO{}, apperr.Validation("id", "must be a positive integer")
	}
	patch, err := reviewPatch(in)
	if err != nil {
		return dto.ReviewDTO{}, err
	}
	if spec.Scope().Empty() {
		return dto.ReviewDTO{}, apperr.NotFound("review")
	}

	r, err := s.repo.UpdateReview(ctx, spec, id, patch)
	if err != nil {
		return dto.ReviewDTO{}, translate("reviews.update", "review", err)
	}
	d, err := reviewToDTO(r)
	return d, translate("reviews.update", "review", err)
}

func reviewPatch(in dto.ReviewUpdate) (domain.ReviewPatch, error) {
	var p domain.ReviewPatch
	if in.Status == nil && in.Reply == nil {
		return p, apperr.Validation("body", "nothing to update")
	}
	if in.Status != nil {
		st := domain.ReviewStatus(strings.ToLower(strings.TrimSpace(*in.Status)))
		if !st.Valid() {
			return p, apperr.Validation("status", "unknown status "+*in.Status)
		}
		p.Status = &st
	}
	if in.Reply != nil {
		reply := strings.TrimSpace(*in.Reply)
		if utf8.RuneCountInString(reply) > maxReplyRunes {
			return p, apperr.Validation("reply", "reply is too long")
		}
		p.Reply = &reply
		if p.Status == nil && reply != "" {
			st := domain.ReviewAnswered
			p.Status = &st
		}
	}
	return p, nil
}

// Stats counts reviews matching f per platform and averages their rating.
func (s *ReviewService) Stats(ctx context.Context, tc tenancy.TenantContext, f dto.ReviewFilter) (dto.ReviewStatsDTO, error) {
	spec, err := s.authorize(ctx, tc, f)
	if err != nil {
		return dto.ReviewStatsDTO{}, err
	}
	out := dto.ReviewStatsDTO{AverageRating: "0.00", ByPlatform: []dto.PlatformCountDTO{}}
	if spec.Scope().Empty() {
		return out, nil
	}

	rows, err := s.repo.ReviewStats(ctx, spec)
	if err != nil {
		return dto.ReviewStatsDTO{}, translate("reviews.stats", "review", err)
	}
	sum := decimal.Zero
	for _, row := range rows {
		pc, err := platformCountToDTO(row)
		if err != nil {
			return dto.ReviewStatsDTO{}, translate("reviews.stats", "review", err)
		}
		rs, err := ratingSum(row["rating_sum"])
		if err != nil {
			return dto.ReviewStatsDTO{}, translate("reviews.stats", "review",
				apperr.Conversion("ReviewStatsDTO", "rating_sum", err.Error()))
		}
		sum = sum.Add(rs)
		out.Total += pc.Count
		out.ByPlatform = append(out.ByPlatform, pc)
	}
	if out.Total > 0 {
		out.AverageRating = sum.Div(decimal.NewFromInt(int64(out.Total))).StringFixed(2)
	}
	return out, nil
}

func ratingSum(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case nil:
		return decimal.Zero, nil
	case int64:
		return decimal.NewFromInt(x), nil
	case float64:
		return decimal.NewFromFloat(x), nil
	case string:
		return decimal.NewFromString(x)
	}
	return decimal.Zero, fmt.Errorf("unsupported type %T", v)
}
