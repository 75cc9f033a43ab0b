package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewhub/internal/app"
	"reviewhub/internal/apperr"
	"reviewhub/internal/domain"
	"reviewhub/internal/dto"
	"reviewhub/internal/tenancy"
)

type qrFixture struct {
	svc      *app.QrService
	creds    *fakeQr
	branches *fakeBranches
	reviews  *fakeReviews
	cache    *fakeCache
}

func newQrFixture() qrFixture {
	f := qrFixture{
		creds: &fakeQr{},
		branches: &fakeBranches{
			rows: []domain.Row{
				{"id": int64(420), "company_id": int64(42), "name": "Center", "city_name": "Almaty", "review_count": int64(0), "created_at": t0},
				{"id": int64(421), "company_id": int64(42), "name": "Legacy", "city_name": nil, "review_count": int64(0), "created_at": t0},
			},
			locations: []domain.Row{
				{"branch_id": int64(420), "company_id": int64(42), "branch_name": "Center",
					"company_name": "Acme", "city_name": "Almaty", "lat": 43.238, "lon": 76.945},
			},
		},
		reviews: &fakeReviews{},
		cache:   &fakeCache{},
	}
	f.svc = app.NewQrService(f.creds, f.branches, f.reviews, engine(), f.cache, 10*time.Minute)
	return f
}

var qrManager = tenancy.NewTenantContext(2, tenancy.RoleManager, []int64{42})

func TestQr_IssueResolveSubmit(t *testing.T) {
	f := newQrFixture()
	ctx := context.Background()

	cred, err := f.svc.Issue(ctx, qrManager, 420, nil)
	require.NoError(t, err)
	assert.True(t, cred.Active)
	assert.Equal(t, int64(420), cred.BranchID)
	assert.Nil(t, cred.ExpiresAt)

	loc, err := f.svc.Resolve(ctx, cred.Token)
	require.NoError(t, err)
	assert.Equal(t, "Acme", loc.CompanyName)
	assert.Equal(t, "Almaty", loc.CityName)
	assert.Nil(t, loc.DistanceKm)

	rv, err := f.svc.Submit(ctx, cred.Token, dto.QrReviewInput{Rating: 5, Text: ptr(" great ")})
	require.NoError(t, err)
	assert.Equal(t, "qr", rv.Platform)
	assert.Equal(t, "new", rv.Status)
	assert.Equal(t, int64(42), rv.CompanyID)
	assert.Equal(t, "great", *rv.Text)
	require.Len(t, f.reviews.inserted, 1)
}

func TestQr_CredentialIsCachedAndEvictedOnRevoke(t *testing.T) {
	f := newQrFixture()
	ctx := context.Background()

	cred, err := f.svc.Issue(ctx, qrManager, 420, nil)
	require.NoError(t, err)

	// Miss (first time, populates cache)
	_, err = f.svc.Resolve(ctx, cred.Token)
	require.NoError(t, err)
	// Hit (served from cache)
	_, err = f.svc.Resolve(ctx, cred.Token)
	require.NoError(t, err)
	assert.Equal(t, 1, f.creds.lookups)

	_, err = f.svc.Revoke(ctx, qrManager, cred.ID)
	require.NoError(t, err)
	assert.Contains(t, f.cache.dels, "qr:"+cred.Token)

	_, err = f.svc.Resolve(ctx, cred.Token)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	assert.Equal(t, 2, f.creds.lookups)
}

func TestQr_ExpiredTokenLooksMissing(t *testing.T) {
	f := newQrFixture()
	ctx := context.Background()

	cred, err := f.svc.Issue(ctx, qrManager, 420, ptr(time.Minute))
	require.NoError(t, err)
	require.NotNil(t, cred.ExpiresAt)

	_, err = f.svc.Resolve(ctx, cred.Token)
	require.NoError(t, err)

	f.svc = app.NewQrService(f.creds, f.branches, f.reviews, engine(), nil, 0)
	app.SetClock(f.svc, func() time.Time { return time.Now().Add(time.Hour) })
	_, err = f.svc.Resolve(ctx, cred.Token)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestQr_IssueOutsideScope(t *testing.T) {
	f := newQrFixture()
	other := tenancy.NewTenantContext(5, tenancy.RoleManager, []int64{7})
	viewer := tenancy.NewTenantContext(6, tenancy.RoleViewer, []int64{42})

	_, err := f.svc.Issue(context.Background(), other, 420, nil)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	_, err = f.svc.Issue(context.Background(), viewer, 420, nil)
	assert.True(t, apperr.IsKind(err, apperr.KindAuthorization))
}

func TestQr_SubmitValidation(t *testing.T) {
	f := newQrFixture()
	ctx := context.Background()
	cred, err := f.svc.Issue(ctx, qrManager, 420, nil)
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, cred.Token, dto.QrReviewInput{Rating: 6})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = f.svc.Submit(ctx, "not-a-token", dto.QrReviewInput{Rating: 3})
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	assert.Empty(t, f.reviews.inserted)
}

func TestQr_IssueForBranchWithoutCityIsRejected(t *testing.T) {
	f := newQrFixture()

	_, err := f.svc.Issue(context.Background(), qrManager, 421, nil)
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.KindValidation, ae.Kind)
	assert.Equal(t, "branch_id", ae.Field)
	assert.Empty(t, f.creds.byToken)
}

func TestQr_SubmitAfterRevokeIgnoresStaleCache(t *testing.T) {
	f := newQrFixture()
	ctx := context.Background()

	cred, err := f.svc.Issue(ctx, qrManager, 420, nil)
	require.NoError(t, err)
	_, err = f.svc.Resolve(ctx, cred.Token)
	require.NoError(t, err)
	require.Contains(t, f.cache.store, "qr:"+cred.Token)

	// Revoked in MySQL while a concurrent reader left the old record cached.
	q := f.creds.byToken[cred.Token]
	q.Active = false
	f.creds.byToken[cred.Token] = q

	_, err = f.svc.Submit(ctx, cred.Token, dto.QrReviewInput{Rating: 4})
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	assert.Empty(t, f.reviews.inserted)

	// The fresh read replaced the stale entry.
	_, err = f.svc.Resolve(ctx, cred.Token)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestQr_UnreadableCacheEntryIsAMiss(t *testing.T) {
	f := newQrFixture()
	ctx := context.Background()

	cred, err := f.svc.Issue(ctx, qrManager, 420, nil)
	require.NoError(t, err)
	f.cache.store = map[string][]byte{"qr:" + cred.Token: []byte("{not json")}

	loc, err := f.svc.Resolve(ctx, cred.Token)
	require.NoError(t, err)
	assert.Equal(t, "Almaty", loc.CityName)
	assert.Equal(t, 1, f.creds.lookups)

	// The rewritten entry serves the next read.
	_, err = f.svc.Resolve(ctx, cred.Token)
	require.NoError(t, err)
	assert.Equal(t, 1, f.creds.lookups)
}
