package app

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"reviewhub/internal/apperr"
	"reviewhub/internal/domain"
	"reviewhub/internal/dto"
	"reviewhub/internal/tenancy"
)

const maxNameRunes = 200

var slugRe = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}$`)

type CompanyService struct {
	repo   CompanyRepository
	engine *tenancy.Engine
}

func NewCompanyService(r CompanyRepository, e *tenancy.Engine) *CompanyService {
	return &CompanyService{repo: r, engine: e}
}

func (s *CompanyService) ListCompanies(ctx context.Context, tc tenancy.TenantContext, f dto.ScopeFilter) (dto.CompanyListDTO, error) {
	spec, err := s.engine.AuthorizeScope(tc, tenancy.PermCompaniesRead, f)
	if err != nil {
		return dto.CompanyListDTO{}, err
	}
	out := dto.CompanyListDTO{Items: []dto.CompanyDTO{}}
	if spec.Scope().Empty() {
		return out, nil
	}

	cs, err := s.repo.FindCompanies(ctx, spec)
	if err != nil {
		return dto.CompanyListDTO{}, translate("companies.list", "company", err)
	}
	if out.Total, err = s.repo.CountCompanies(ctx, spec); err != nil {
		return dto.CompanyListDTO{}, translate("companies.count", "company", err)
	}
	for _, c := range cs {
		d, err := companyToDTO(c)
		if err != nil {
			return dto.CompanyListDTO{}, translate("companies.list", "company", err)
		}
		out.Items = append(out.Items, d)
	}
	out.NextCursor = spec.NextCursor(len(out.Items), out.Total)
	return out, nil
}

// CreateCompany derives the slug from the name when none is given.
func (s *CompanyService) CreateCompany(ctx context.Context, tc tenancy.TenantContext, in dto.CompanyInput) (dto.CompanyDTO, error) {
	if err := s.engine.Require(tc, tenancy.PermCompaniesWrite); err != nil {
		return dto.CompanyDTO{}, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" || utf8.RuneCountInString(name) > maxNameRunes {
		return dto.CompanyDTO{}, apperr.Validation("name", "must be 1 to 200 characters")
	}
	slug := strings.TrimSpace(in.Slug)
	if slug == "" {
		slug = slugify(name)
	}
	if !slugRe.MatchString(slug) {
		return dto.CompanyDTO{}, apperr.Validation("slug", "must be 2 to 63 lowercase letters, digits or dashes")
	}

	c, err := s.repo.InsertCompany(ctx, domain.Company{Name: name, Slug: slug})
	if err != nil {
		return dto.CompanyDTO{}, translate("companies.create", "company", err)
	}
	d, err := companyToDTO(c)
	return d, translate("companies.create", "company", err)
}

func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimRight(b.String(), "-")
	if len(out) > 63 {
		out = strings.TrimRight(out[:63], "-")
	}
	return out
}
