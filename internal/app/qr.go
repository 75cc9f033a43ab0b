package app

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"reviewhub/internal/apperr"
	"reviewhub/internal/domain"
	"reviewhub/internal/dto"
	"reviewhub/internal/tenancy"
)

const (
	maxAuthorRunes = 100
	maxTextRunes   = 4000
)

type QrService struct {
	creds    QrRepository
	branches BranchRepository
	reviews  ReviewRepository
	engine   *tenancy.Engine
	cache    domain.Cache
	cacheTTL time.Duration
	now      func() time.Time
}

func NewQrService(q QrRepository, b BranchRepository, r ReviewRepository, e *tenancy.Engine, c domain.Cache, ttl time.Duration) *QrService {
	return &QrService{creds: q, branches: b, reviews: r, engine: e, cache: c, cacheTTL: ttl, now: time.Now}
}

func qrCacheKey(token string) string { return "qr:" + token }

// Issue mints a credential for a branch tc may manage. A nil ttl never expires.
func (s *QrService) Issue(ctx context.Context, tc tenancy.TenantContext, branchID int64, ttl *time.Duration) (dto.QrCredentialDTO, error) {
	spec, err := s.engine.AuthorizeScope(tc, tenancy.PermQrManage, dto.ScopeFilter{})
	if err != nil {
		return dto.QrCredentialDTO{}, err
	}
	if branchID <= 0 {
		return dto.QrCredentialDTO{}, apperr.Validation("branch_id", "must be a positive integer")
	}
	if ttl != nil && *ttl <= 0 {
		return dto.QrCredentialDTO{}, apperr.Validation("ttl", "must be positive")
	}
	if spec.Scope().Empty() {
		return dto.QrCredentialDTO{}, apperr.NotFound("branch")
	}

	row, err := s.branches.GetBranch(ctx, spec, branchID)
	if err != nil {
		return dto.QrCredentialDTO{}, translate("qr.issue", "branch", err)
	}
	if row["city_name"] == nil {
		return dto.QrCredentialDTO{}, apperr.Validation("branch_id", "branch has no city")
	}
	companyID, err := coerce(kindInt, row["company_id"])
	if err != nil {
		return dto.QrCredentialDTO{}, translate("qr.issue", "branch",
			apperr.Conversion("QrCredentialDTO", "company_id", err.Error()))
	}

	q := domain.QrCredential{
		CompanyID: companyID.(int64),
		BranchID:  branchID,
		Token:     uuid.NewString(),
		Active:    true,
	}
	if ttl != nil {
		exp := s.now().UTC().Add(*ttl).Truncate(time.Second)
		q.ExpiresAt = &exp
	}
	q, err = s.creds.InsertQrCredential(ctx, q)
	if err != nil {
		return dto.QrCredentialDTO{}, translate("qr.issue", "qr code", err)
	}
	d, err := qrCredentialToDTO(q)
	return d, translate("qr.issue", "qr code", err)
}

// Revoke deactivates a credential and evicts its cached record.
func (s *QrService) Revoke(ctx context.Context, tc tenancy.TenantContext, id int64) (dto.QrCredentialDTO, error) {
	spec, err := s.engine.AuthorizeScope(tc, tenancy.PermQrManage, dto.ScopeFilter{})
	if err != nil {
		return dto.QrCredentialDTO{}, err
	}
	if id <= 0 {
		return dto.QrCredentialDTO{}, apperr.Validation("id", "must be a positive integer")
	}
	if spec.Scope().Empty() {
		return dto.QrCredentialDTO{}, apperr.NotFound("qr code")
	}

	q, err := s.creds.RevokeQrCredential(ctx, spec, id)
	if err != nil {
		return dto.QrCredentialDTO{}, translate("qr.revoke", "qr code", err)
	}
	if s.cache != nil {
		if err := s.cache.Del(ctx, qrCacheKey(q.Token)); err != nil {
			log.Warn().Err(err).Int64("qr_id", q.ID).Msg("qr cache eviction failed")
		}
	}
	d, err := qrCredentialToDTO(q)
	return d, translate("qr.revoke", "qr code", err)
}

// Resolve returns the location a public QR token points at.
func (s *QrService) Resolve(ctx context.Context, token string) (dto.QrLocationDTO, error) {
	q, err := s.credential(ctx, token, false)
	if err != nil {
		return dto.QrLocationDTO{}, err
	}
	spec, err := s.engine.CredentialScope(q)
	if err != nil {
		return dto.QrLocationDTO{}, err
	}
	rows, err := s.branches.FindLocations(ctx, spec)
	if err != nil {
		return dto.QrLocationDTO{}, translate("qr.resolve", "qr code", err)
	}
	if len(rows) == 0 {
		return dto.QrLocationDTO{}, apperr.NotFound("qr code")
	}
	d, err := qrLocationToDTO(rows[0], nil)
	return d, translate("qr.resolve", "qr code", err)
}

// Submit stores a review left through a public QR token.
func (s *QrService) Submit(ctx context.Context, token string, in dto.QrReviewInput) (dto.ReviewDTO, error) {
	r, err := qrReview(in)
	if err != nil {
		return dto.ReviewDTO{}, err
	}
	q, err := s.credential(ctx, token, true)
	if err != nil {
		return dto.ReviewDTO{}, err
	}

	now := s.now().UTC().Truncate(time.Second)
	r.CompanyID, r.BranchID = q.CompanyID, q.BranchID
	r.PublishedAt, r.CreatedAt = now, now
	r, err = s.reviews.InsertReview(ctx, r)
	if err != nil {
		return dto.ReviewDTO{}, translate("qr.submit", "review", err)
	}
	d, err := reviewToDTO(r)
	return d, translate("qr.submit", "review", err)
}

func qrReview(in dto.QrReviewInput) (domain.Review, error) {
	r := domain.Review{Platform: domain.PlatformQR, Status: domain.ReviewNew, Rating: in.Rating}
	if in.Rating < 1 || in.Rating > 5 {
		return r, apperr.Validation("rating", "must be between 1 and 5")
	}
	if in.Author != nil {
		a := strings.TrimSpace(*in.Author)
		if utf8.RuneCountInString(a) > maxAuthorRunes {
			return r, apperr.Validation("author", "author is too long")
		}
		if a != "" {
			r.Author = &a
		}
	}
	if in.Text != nil {
		t := strings.TrimSpace(*in.Text)
		if utf8.RuneCountInString(t) > maxTextRunes {
			return r, apperr.Validation("text", "text is too long")
		}
		if t != "" {
			r.Text = &t
		}
	}
	return r, nil
}

// credential loads a usable credential by token. Reads go through the cache
// unless fresh is set, in which case MySQL decides and the cache is refreshed.
// Unknown, revoked and expired tokens all look the same to the caller.
func (s *QrService) credential(ctx context.Context, token string, fresh bool) (domain.QrCredential, error) {
	token = strings.TrimSpace(token)
	if _, err := uuid.Parse(token); err != nil {
		return domain.QrCredential{}, apperr.NotFound("qr code")
	}

	var q domain.QrCredential
	hit := false
	if s.cache != nil && !fresh {
		var err error
		if hit, err = s.cache.Get(ctx, qrCacheKey(token), &q); err != nil {
			log.Warn().Err(err).Msg("qr cache read failed")
			hit = false
		}
	}
	if !hit {
		var err error
		q, err = s.creds.GetQrCredentialByToken(ctx, token)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.QrCredential{}, apperr.NotFound("qr code")
		}
		if err != nil {
			return domain.QrCredential{}, translate("qr.credential", "qr code", err)
		}
		if s.cache != nil {
			if err := s.cache.Set(ctx, qrCacheKey(token), q, int(s.cacheTTL.Seconds())); err != nil {
				log.Warn().Err(err).Int64("qr_id", q.ID).Msg("qr cache write failed")
			}
		}
	}
	if !q.Usable(s.now()) {
		return domain.QrCredential{}, apperr.NotFound("qr code")
	}
	return q, nil
}
