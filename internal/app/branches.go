package app

import (
	"context"
	"strings"
	"unicode/utf8"

	"reviewhub/internal/apperr"
	"reviewhub/internal/domain"
	"reviewhub/internal/dto"
	"reviewhub/internal/tenancy"
)

type BranchService struct {
	repo   BranchRepository
	engine *tenancy.Engine
}

func NewBranchService(r BranchRepository, e *tenancy.Engine) *BranchService {
	return &BranchService{repo: r, engine: e}
}

func (s *BranchService) ListBranches(ctx context.Context, tc tenancy.TenantContext, f dto.ScopeFilter) (dto.BranchListDTO, error) {
	spec, err := s.engine.AuthorizeScope(tc, tenancy.PermBranchesRead, f)
	if err != nil {
		return dto.BranchListDTO{}, err
	}
	out := dto.BranchListDTO{Items: []dto.BranchDTO{}}
	if spec.Scope().Empty() {
		return out, nil
	}

	rows, err := s.repo.FindBranches(ctx, spec)
	if err != nil {
		return dto.BranchListDTO{}, translate("branches.list", "branch", err)
	}
	if out.Total, err = s.repo.CountBranches(ctx, spec); err != nil {
		return dto.BranchListDTO{}, translate("branches.count", "branch", err)
	}
	for _, row := range rows {
		d, err := branchToDTO(row, nil)
		if err != nil {
			return dto.BranchListDTO{}, translate("branches.list", "branch", err)
		}
		out.Items = append(out.Items, d)
	}
	out.NextCursor = spec.NextCursor(len(out.Items), out.Total)
	return out, nil
}

// CreateBranch inserts a branch under a company tc may write to. A new
// branch has no reviews yet.
func (s *BranchService) CreateBranch(ctx context.Context, tc tenancy.TenantContext, in dto.BranchInput) (dto.BranchDTO, error) {
	if err := s.engine.AuthorizeCompany(tc, tenancy.PermBranchesWrite, in.CompanyID); err != nil {
		return dto.BranchDTO{}, err
	}
	b, err := branchFromInput(in)
	if err != nil {
		return dto.BranchDTO{}, err
	}

	b, err = s.repo.InsertBranch(ctx, b)
	if err != nil {
		return dto.BranchDTO{}, translate("branches.create", "branch", err)
	}
	d, err := branchToDTO(branchRow(b), map[string]any{"review_count": 0})
	return d, translate("branches.create", "branch", err)
}

func branchFromInput(in dto.BranchInput) (domain.Branch, error) {
	b := domain.Branch{CompanyID: in.CompanyID, CityID: in.CityID, Lat: in.Lat, Lon: in.Lon}
	b.Name = strings.TrimSpace(in.Name)
	if b.Name == "" || utf8.RuneCountInString(b.Name) > maxNameRunes {
		return b, apperr.Validation("name", "must be 1 to 200 characters")
	}
	if in.Address != nil {
		if a := strings.TrimSpace(*in.Address); a != "" {
			b.Address = &a
		}
	}
	if in.CityID == nil || *in.CityID <= 0 {
		return b, apperr.Validation("city_id", "must be a positive integer")
	}
	if (in.Lat == nil) != (in.Lon == nil) {
		return b, apperr.Validation("lat", "lat and lon must be given together")
	}
	if in.Lat != nil && (*in.Lat < -90 || *in.Lat > 90) {
		return b, apperr.Validation("lat", "must be between -90 and 90")
	}
	if in.Lon != nil && (*in.Lon < -180 || *in.Lon > 180) {
		return b, apperr.Validation("lon", "must be between -180 and 180")
	}
	return b, nil
}

// ListLocations lists QR-capable locations in scope. When from is set each
// location with coordinates carries its distance from it.
func (s *BranchService) ListLocations(ctx context.Context, tc tenancy.TenantContext, f dto.ScopeFilter, from *dto.Coords) ([]dto.QrLocationDTO, error) {
	spec, err := s.engine.AuthorizeScope(tc, tenancy.PermBranchesRead, f)
	if err != nil {
		return nil, err
	}
	if err := validCoords(from); err != nil {
		return nil, err
	}
	out := []dto.QrLocationDTO{}
	if spec.Scope().Empty() {
		return out, nil
	}

	rows, err := s.repo.FindLocations(ctx, spec)
	if err != nil {
		return nil, translate("branches.locations", "location", err)
	}
	for _, row := range rows {
		d, err := qrLocationToDTO(row, distanceExtra(row, from))
		if err != nil {
			return nil, translate("branches.locations", "location", err)
		}
		out = append(out, d)
	}
	return out, nil
}

func validCoords(c *dto.Coords) error {
	if c == nil {
		return nil
	}
	if c.Lat < -90 || c.Lat > 90 {
		return apperr.Validation("lat", "must be between -90 and 90")
	}
	if c.Lon < -180 || c.Lon > 180 {
		return apperr.Validation("lon", "must be between -180 and 180")
	}
	return nil
}

// distanceExtra supplies distance_km when both ends have coordinates.
func distanceExtra(row domain.Row, from *dto.Coords) map[string]any {
	if from == nil {
		return nil
	}
	lat, err1 := coerce(kindFloat, row["lat"])
	lon, err2 := coerce(kindFloat, row["lon"])
	if row["lat"] == nil || row["lon"] == nil || err1 != nil || err2 != nil {
		return nil
	}
	return map[string]any{"distance_km": haversineKm(from.Lat, from.Lon, lat.(float64), lon.(float64))}
}
