package app_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewhub/internal/app"
	"reviewhub/internal/apperr"
	"reviewhub/internal/domain"
	"reviewhub/internal/dto"
	"reviewhub/internal/tenancy"
)

func seededBranches() *fakeBranches {
	return &fakeBranches{
		rows: []domain.Row{
			{"id": int64(420), "company_id": int64(42), "name": "Center", "city_name": "Almaty",
				"review_count": int64(3), "created_at": "2026-01-01 10:00:00"},
			{"id": int64(430), "company_id": int64(43), "name": "Other", "review_count": int64(1),
				"created_at": "2026-01-01 10:00:00"},
		},
		locations: []domain.Row{
			{"branch_id": int64(420), "company_id": int64(42), "branch_name": "Center",
				"company_name": "Acme", "city_name": "Almaty", "lat": "43.2380", "lon": "76.9450"},
			{"branch_id": int64(421), "company_id": int64(42), "branch_name": "Remote",
				"company_name": "Acme", "city_name": "Astana"},
		},
	}
}

func TestListBranches_ScopedWithAggregates(t *testing.T) {
	svc := app.NewBranchService(seededBranches(), engine())
	viewer := tenancy.NewTenantContext(3, tenancy.RoleViewer, []int64{42})

	out, err := svc.ListBranches(context.Background(), viewer, dto.ScopeFilter{})
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, 1, out.Total)
	assert.Equal(t, "Almaty", *out.Items[0].CityName)
	assert.Equal(t, 3, out.Items[0].ReviewCount)
	assert.Equal(t, "2026-01-01T10:00:00Z", out.Items[0].CreatedAt)
}

func TestListBranches_MissingAggregateIsConversionError(t *testing.T) {
	repo := seededBranches()
	delete(repo.rows[0], "review_count")
	svc := app.NewBranchService(repo, engine())
	viewer := tenancy.NewTenantContext(3, tenancy.RoleViewer, []int64{42})

	_, err := svc.ListBranches(context.Background(), viewer, dto.ScopeFilter{})
	assert.True(t, apperr.IsKind(err, apperr.KindConversion))
}

func TestCreateBranch(t *testing.T) {
	repo := seededBranches()
	svc := app.NewBranchService(repo, engine())
	manager := tenancy.NewTenantContext(2, tenancy.RoleManager, []int64{42})

	out, err := svc.CreateBranch(context.Background(), manager, dto.BranchInput{
		CompanyID: 42, Name: " North ", CityID: ptr(int64(1)), Lat: ptr(43.3), Lon: ptr(76.9),
	})
	require.NoError(t, err)
	assert.Equal(t, "North", out.Name)
	assert.Zero(t, out.ReviewCount)
	assert.Nil(t, out.CityName)
	require.Len(t, repo.inserted, 1)

	_, err = svc.CreateBranch(context.Background(), manager, dto.BranchInput{CompanyID: 43, Name: "x"})
	assert.True(t, apperr.IsKind(err, apperr.KindAuthorization))

	_, err = svc.CreateBranch(context.Background(), manager, dto.BranchInput{CompanyID: 42, Name: "x", CityID: ptr(int64(1)), Lat: ptr(10.0)})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	assert.Len(t, repo.inserted, 1)
}

func TestCreateBranch_MissingCompanyIsConstraint(t *testing.T) {
	repo := seededBranches()
	repo.err = domain.ErrForeignKey
	svc := app.NewBranchService(repo, engine())
	admin := tenancy.NewTenantContext(1, tenancy.RoleAdmin, nil)

	_, err := svc.CreateBranch(context.Background(), admin, dto.BranchInput{CompanyID: 999, Name: "Ghost", CityID: ptr(int64(1))})
	assert.True(t, apperr.IsKind(err, apperr.KindConstraint))
}

func TestListLocations_Distance(t *testing.T) {
	svc := app.NewBranchService(seededBranches(), engine())
	viewer := tenancy.NewTenantContext(3, tenancy.RoleViewer, []int64{42})

	out, err := svc.ListLocations(context.Background(), viewer, dto.ScopeFilter{}, &dto.Coords{Lat: 43.238, Lon: 76.945})
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.NotNil(t, out[0].DistanceKm)
	assert.Equal(t, 0.0, *out[0].DistanceKm)
	assert.Nil(t, out[1].DistanceKm)

	_, err = svc.ListLocations(context.Background(), viewer, dto.ScopeFilter{}, &dto.Coords{Lat: 91})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestCreateBranch_RequiresCity(t *testing.T) {
	repo := seededBranches()
	svc := app.NewBranchService(repo, engine())
	manager := tenancy.NewTenantContext(2, tenancy.RoleManager, []int64{42})

	for name, city := range map[string]*int64{"missing": nil, "zero": ptr(int64(0)), "negative": ptr(int64(-1))} {
		_, err := svc.CreateBranch(context.Background(), manager, dto.BranchInput{CompanyID: 42, Name: "North", CityID: city})
		var ae *apperr.Error
		require.ErrorAs(t, err, &ae, name)
		assert.Equal(t, apperr.KindValidation, ae.Kind, name)
		assert.Equal(t, "city_id", ae.Field, name)
	}
	assert.Empty(t, repo.inserted)
}
