package tenancy

import (
	"strings"
	"unicode/utf8"

	"reviewhub/internal/apperr"
	"reviewhub/internal/domain"
	"reviewhub/internal/dto"
)

const (
	DefaultLimit   = 50
	MaxLimit       = 200
	maxSearchRunes = 200
	minRating      = 1
	maxRating      = 5
)

type Engine struct {
	policy *Policy
}

func NewEngine(p *Policy) *Engine {
	if p == nil {
		p = DefaultPolicy()
	}
	return &Engine{policy: p}
}

func (e *Engine) Policy() *Policy { return e.policy }

// Require fails with an authorization error when tc's role lacks perm.
func (e *Engine) Require(tc TenantContext, perm Permission) error {
	if tc.IsZero() {
		return apperr.Unauthenticated("missing tenant context")
	}
	if !e.policy.Allows(tc.role, perm) {
		return apperr.Forbidden()
	}
	return nil
}

// AuthorizeFilter validates a requested review filter and scopes it to tc.
func (e *Engine) AuthorizeFilter(tc TenantContext, req dto.ReviewFilter) (FilterSpecification, error) {
	if tc.IsZero() {
		return FilterSpecification{}, apperr.Unauthenticated("missing tenant context")
	}
	spec, err := validateReviewFilter(req)
	if err != nil {
		return FilterSpecification{}, err
	}
	if err := e.Require(tc, PermReviewsRead); err != nil {
		return FilterSpecification{}, err
	}
	companies, err := positiveIDs("company_id", req.CompanyIDs)
	if err != nil {
		return FilterSpecification{}, err
	}
	if spec.scope, err = e.effectiveScope(tc, companies); err != nil {
		return FilterSpecification{}, err
	}
	if e.BranchCheckRequired(tc, spec) && spec.scope.Empty() {
		return FilterSpecification{}, apperr.Forbidden()
	}
	return spec, nil
}

// BranchCheckRequired reports whether spec names branches whose ownership
// must be confirmed by storage before spec is used for a read.
func (e *Engine) BranchCheckRequired(tc TenantContext, spec FilterSpecification) bool {
	return len(spec.branchIDs) > 0 && !e.policy.Elevated(tc.role)
}

// NarrowBranches keeps the requested branches found inside spec's company
// scope. Narrowing a branch request to nothing is a denial.
func (e *Engine) NarrowBranches(tc TenantContext, spec FilterSpecification, owned []int64) (FilterSpecification, error) {
	if !e.BranchCheckRequired(tc, spec) {
		return spec, nil
	}
	found := make(map[int64]struct{}, len(owned))
	for _, id := range owned {
		found[id] = struct{}{}
	}
	kept := make([]int64, 0, len(spec.branchIDs))
	for _, id := range spec.branchIDs {
		if _, ok := found[id]; ok {
			kept = append(kept, id)
		}
	}
	if len(kept) == 0 {
		return FilterSpecification{}, apperr.Forbidden()
	}
	spec.branchIDs = kept
	return spec, nil
}

// AuthorizeScope scopes a company/branch/location listing that needs perm.
func (e *Engine) AuthorizeScope(tc TenantContext, perm Permission, req dto.ScopeFilter) (FilterSpecification, error) {
	if tc.IsZero() {
		return FilterSpecification{}, apperr.Unauthenticated("missing tenant context")
	}
	companies, err := positiveIDs("company_id", req.CompanyIDs)
	if err != nil {
		return FilterSpecification{}, err
	}
	limit, offset, err := validatePage(req.Page)
	if err != nil {
		return FilterSpecification{}, err
	}
	if err := e.Require(tc, perm); err != nil {
		return FilterSpecification{}, err
	}
	scope, err := e.effectiveScope(tc, companies)
	if err != nil {
		return FilterSpecification{}, err
	}
	return FilterSpecification{scope: scope, sort: SortPublishedDesc, limit: limit, offset: offset}, nil
}

// AuthorizeCompany admits a write that targets a single company.
func (e *Engine) AuthorizeCompany(tc TenantContext, perm Permission, companyID int64) error {
	if companyID <= 0 {
		return apperr.Validation("company_id", "must be a positive integer")
	}
	if err := e.Require(tc, perm); err != nil {
		return err
	}
	if e.policy.Elevated(tc.role) || tc.member(companyID) {
		return nil
	}
	return apperr.Forbidden()
}

// CredentialScope scopes a public QR request to the single branch its
// credential was issued for. The token is the only authority on that path.
func (e *Engine) CredentialScope(q domain.QrCredential) (FilterSpecification, error) {
	if q.CompanyID <= 0 || q.BranchID <= 0 {
		return FilterSpecification{}, apperr.NotFound("qr code")
	}
	return FilterSpecification{
		scope:     companyScope([]int64{q.CompanyID}),
		branchIDs: []int64{q.BranchID},
		sort:      SortPublishedDesc,
		limit:     1,
	}, nil
}

// effectiveScope intersects the requested companies with tc's authorized set.
// Narrowing a non-empty request to nothing is a denial, not an empty result.
func (e *Engine) effectiveScope(tc TenantContext, requested []int64) (Scope, error) {
	if e.policy.Elevated(tc.role) {
		if len(requested) == 0 {
			return allCompanies(), nil
		}
		return companyScope(requested), nil
	}
	if len(requested) == 0 {
		return companyScope(tc.companies), nil
	}
	eff := make([]int64, 0, len(requested))
	for _, id := range requested {
		if tc.member(id) {
			eff = append(eff, id)
		}
	}
	if len(eff) == 0 {
		return Scope{}, apperr.Forbidden()
	}
	return companyScope(eff), nil
}

func validateReviewFilter(req dto.ReviewFilter) (FilterSpecification, error) {
	var spec FilterSpecification
	var err error

	if spec.branchIDs, err = positiveIDs("branch_id", req.BranchIDs); err != nil {
		return spec, err
	}
	for _, raw := range req.Platforms {
		p := domain.Platform(strings.ToLower(strings.TrimSpace(raw)))
		if !p.Valid() {
			return spec, apperr.Validation("platform", "unknown platform "+raw)
		}
		spec.platforms = appendUniquePlatform(spec.platforms, p)
	}
	if req.From != nil && req.To != nil && req.From.After(*req.To) {
		return spec, apperr.Validation("from", "must not be after to")
	}
	if req.From != nil {
		t := req.From.UTC()
		spec.from = &t
	}
	if req.To != nil {
		t := req.To.UTC()
		spec.to = &t
	}
	if spec.minRating, err = rating("min_rating", req.MinRating); err != nil {
		return spec, err
	}
	if spec.maxRating, err = rating("max_rating", req.MaxRating); err != nil {
		return spec, err
	}
	if spec.minRating != 0 && spec.maxRating != 0 && spec.minRating > spec.maxRating {
		return spec, apperr.Validation("min_rating", "must not exceed max_rating")
	}
	if req.Status != nil {
		st := domain.ReviewStatus(strings.ToLower(strings.TrimSpace(*req.Status)))
		if !st.Valid() {
			return spec, apperr.Validation("status", "unknown status "+*req.Status)
		}
		spec.status = &st
	}
	spec.search = strings.TrimSpace(req.Search)
	if utf8.RuneCountInString(spec.search) > maxSearchRunes {
		return spec, apperr.Validation("q", "search text is too long")
	}
	spec.sort = SortPublishedDesc
	if req.Sort != "" {
		spec.sort = SortOrder(req.Sort)
		if !spec.sort.valid() {
			return spec, apperr.Validation("sort", "unsupported sort "+req.Sort)
		}
	}
	if spec.limit, spec.offset, err = validatePage(req.Page); err != nil {
		return spec, err
	}
	return spec, nil
}

func validatePage(p dto.Page) (limit, offset int, err error) {
	limit = p.Limit
	switch {
	case limit == 0:
		limit = DefaultLimit
	case limit < 0 || limit > MaxLimit:
		return 0, 0, apperr.Validation("limit", "must be between 1 and 200")
	}
	offset, derr := decodeCursor(p.Cursor)
	if derr != nil {
		return 0, 0, apperr.Validation("cursor", derr.Error())
	}
	return limit, offset, nil
}

func rating(field string, v *int) (int, error) {
	if v == nil {
		return 0, nil
	}
	if *v < minRating || *v > maxRating {
		return 0, apperr.Validation(field, "must be between 1 and 5")
	}
	return *v, nil
}

func positiveIDs(field string, ids []int64) ([]int64, error) {
	for _, id := range ids {
		if id <= 0 {
			return nil, apperr.Validation(field, "must be a positive integer")
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return normalizeIDs(ids), nil
}

func appendUniquePlatform(ps []domain.Platform, p domain.Platform) []domain.Platform {
	for _, x := range ps {
		if x == p {
			return ps
		}
	}
	return append(ps, p)
}
