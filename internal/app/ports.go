package app

import (
	"context"
	"time"

	"reviewhub/internal/domain"
	"reviewhub/internal/tenancy"
)

// Repositories receive an engine-built FilterSpecification on every tenant
// read and must refuse one whose scope is unset (domain.ErrUnscoped).

type ReviewRepository interface {
	FindReviews(ctx context.Context, spec tenancy.FilterSpecification) ([]domain.Review, error)
	CountReviews(ctx context.Context, spec tenancy.FilterSpecification) (int, error)
	GetReview(ctx context.Context, spec tenancy.FilterSpecification, id int64) (domain.Review, error)
	UpdateReview(ctx context.Context, spec tenancy.FilterSpecification, id int64, patch domain.ReviewPatch) (domain.Review, error)
	InsertReview(ctx context.Context, r domain.Review) (domain.Review, error)
	// ReviewStats returns one row per platform with platform, count and rating_sum.
	ReviewStats(ctx context.Context, spec tenancy.FilterSpecification) ([]domain.Row, error)
}

type CompanyRepository interface {
	FindCompanies(ctx context.Context, spec tenancy.FilterSpecification) ([]domain.Company, error)
	CountCompanies(ctx context.Context, spec tenancy.FilterSpecification) (int, error)
	InsertCompany(ctx context.Context, c domain.Company) (domain.Company, error)
}

type BranchRepository interface {
	// FindBranches rows carry the branch columns plus city_name and review_count.
	FindBranches(ctx context.Context, spec tenancy.FilterSpecification) ([]domain.Row, error)
	CountBranches(ctx context.Context, spec tenancy.FilterSpecification) (int, error)
	GetBranch(ctx context.Context, spec tenancy.FilterSpecification, id int64) (domain.Row, error)
	InsertBranch(ctx context.Context, b domain.Branch) (domain.Branch, error)
	// BranchIDsInScope returns which of spec's branch ids exist inside its company scope.
	BranchIDsInScope(ctx context.Context, spec tenancy.FilterSpecification) ([]int64, error)
	// FindLocations rows carry branch_id, company_id, branch_name, company_name,
	// city_name, address, lat and lon.
	FindLocations(ctx context.Context, spec tenancy.FilterSpecification) ([]domain.Row, error)
}

type QrRepository interface {
	InsertQrCredential(ctx context.Context, q domain.QrCredential) (domain.QrCredential, error)
	GetQrCredentialByToken(ctx context.Context, token string) (domain.QrCredential, error)
	RevokeQrCredential(ctx context.Context, spec tenancy.FilterSpecification, id int64) (domain.QrCredential, error)
}

type UserRepository interface {
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	GetUser(ctx context.Context, id int64) (domain.User, error)
}

// RefreshTokenRepository stores refresh credentials by hash.
type RefreshTokenRepository interface {
	InsertRefreshToken(ctx context.Context, t domain.RefreshToken) (domain.RefreshToken, error)
	// ConsumeRefreshToken revokes and returns a live token in one step.
	ConsumeRefreshToken(ctx context.Context, hash string, now time.Time) (domain.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, hash string) error
}

// IngestRepository is the unscoped write side used by the ingestor binary.
type IngestRepository interface {
	ListPlatformLinks(ctx context.Context) ([]domain.PlatformLink, error)
	UpsertReviews(ctx context.Context, rs []domain.Review) error
	LogMiss(ctx context.Context, branchID int64, platform domain.Platform, status int, reason string) error
}

// TokenIssuer mints bearer tokens for authenticated users.
type TokenIssuer interface {
	Mint(userID int64, role string, companies []int64) (token string, expiresAt time.Time, err error)
}
