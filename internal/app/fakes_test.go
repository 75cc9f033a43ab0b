package app_test

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"reviewhub/internal/domain"
	"reviewhub/internal/tenancy"
)

// ---- fakes ----

// inScope mirrors the storage layer's WHERE clause for company and branch scope.
func inScope(spec tenancy.FilterSpecification, companyID, branchID int64) bool {
	sc := spec.Scope()
	if !sc.Set() {
		panic("repository called without scope")
	}
	ok := sc.AllCompanies()
	for _, id := range sc.CompanyIDs() {
		ok = ok || id == companyID
	}
	if !ok {
		return false
	}
	if bs := spec.BranchIDs(); len(bs) > 0 {
		for _, id := range bs {
			if id == branchID {
				return true
			}
		}
		return false
	}
	return true
}

type fakeReviews struct {
	rows     []domain.Review
	stats    []domain.Row
	calls    int
	inserted []domain.Review
	err      error
}

func (f *fakeReviews) visible(spec tenancy.FilterSpecification) []domain.Review {
	var out []domain.Review
	for _, r := range f.rows {
		if !inScope(spec, r.CompanyID, r.BranchID) {
			continue
		}
		if st := spec.Status(); st != nil && r.Status != *st {
			continue
		}
		if spec.MinRating() != 0 && r.Rating < spec.MinRating() {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (f *fakeReviews) FindReviews(ctx context.Context, spec tenancy.FilterSpecification) ([]domain.Review, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	all := f.visible(spec)
	lo := min(spec.Offset(), len(all))
	hi := min(lo+spec.Limit(), len(all))
	return all[lo:hi], nil
}

func (f *fakeReviews) CountReviews(ctx context.Context, spec tenancy.FilterSpecification) (int, error) {
	f.calls++
	return len(f.visible(spec)), f.err
}

func (f *fakeReviews) GetReview(ctx context.Context, spec tenancy.FilterSpecification, id int64) (domain.Review, error) {
	f.calls++
	for _, r := range f.visible(spec) {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.Review{}, domain.ErrNotFound
}

func (f *fakeReviews) UpdateReview(ctx context.Context, spec tenancy.FilterSpecification, id int64, p domain.ReviewPatch) (domain.Review, error) {
	f.calls++
	for i, r := range f.rows {
		if r.ID != id || !inScope(spec, r.CompanyID, r.BranchID) {
			continue
		}
		if p.Status != nil {
			r.Status = *p.Status
		}
		if p.Reply != nil {
			r.Reply = p.Reply
		}
		f.rows[i] = r
		return r, nil
	}
	return domain.Review{}, domain.ErrNotFound
}

func (f *fakeReviews) InsertReview(ctx context.Context, r domain.Review) (domain.Review, error) {
	f.calls++
	r.ID = int64(len(f.rows) + 1)
	f.rows = append(f.rows, r)
	f.inserted = append(f.inserted, r)
	return r, nil
}

func (f *fakeReviews) ReviewStats(ctx context.Context, spec tenancy.FilterSpecification) ([]domain.Row, error) {
	f.calls++
	if f.stats != nil {
		return f.stats, nil
	}
	counts := map[domain.Platform][2]int64{}
	for _, r := range f.visible(spec) {
		c := counts[r.Platform]
		counts[r.Platform] = [2]int64{c[0] + 1, c[1] + int64(r.Rating)}
	}
	var out []domain.Row
	for p, c := range counts {
		out = append(out, domain.Row{"platform": string(p), "count": c[0], "rating_sum": c[1]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i]["platform"].(string) < out[j]["platform"].(string) })
	return out, nil
}

type fakeBranches struct {
	rows      []domain.Row
	locations []domain.Row
	calls     int
	inserted  []domain.Branch
	err       error
}

func rowIDs(r domain.Row, idKey string) (company, branch int64) {
	return r["company_id"].(int64), r[idKey].(int64)
}

func (f *fakeBranches) FindBranches(ctx context.Context, spec tenancy.FilterSpecification) ([]domain.Row, error) {
	f.calls++
	var out []domain.Row
	for _, r := range f.rows {
		if c, b := rowIDs(r, "id"); inScope(spec, c, b) {
			out = append(out, r)
		}
	}
	return out, f.err
}

func (f *fakeBranches) CountBranches(ctx context.Context, spec tenancy.FilterSpecification) (int, error) {
	rows, err := f.FindBranches(ctx, spec)
	return len(rows), err
}

func (f *fakeBranches) GetBranch(ctx context.Context, spec tenancy.FilterSpecification, id int64) (domain.Row, error) {
	f.calls++
	for _, r := range f.rows {
		if c, b := rowIDs(r, "id"); b == id && inScope(spec, c, b) {
			return r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeBranches) BranchIDsInScope(ctx context.Context, spec tenancy.FilterSpecification) ([]int64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []int64
	for _, r := range f.rows {
		if c, b := rowIDs(r, "id"); inScope(spec, c, b) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBranches) InsertBranch(ctx context.Context, b domain.Branch) (domain.Branch, error) {
	f.calls++
	if f.err != nil {
		return domain.Branch{}, f.err
	}
	b.ID = int64(len(f.rows) + 100)
	b.CreatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	f.inserted = append(f.inserted, b)
	return b, nil
}

func (f *fakeBranches) FindLocations(ctx context.Context, spec tenancy.FilterSpecification) ([]domain.Row, error) {
	f.calls++
	var out []domain.Row
	for _, r := range f.locations {
		if c, b := rowIDs(r, "branch_id"); inScope(spec, c, b) {
			out = append(out, r)
		}
	}
	return out, f.err
}

type fakeCompanies struct {
	rows  []domain.Company
	calls int
	err   error
}

func (f *fakeCompanies) visible(spec tenancy.FilterSpecification) []domain.Company {
	var out []domain.Company
	for _, c := range f.rows {
		if inScope(spec, c.ID, 0) {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeCompanies) FindCompanies(ctx context.Context, spec tenancy.FilterSpecification) ([]domain.Company, error) {
	f.calls++
	return f.visible(spec), nil
}

func (f *fakeCompanies) CountCompanies(ctx context.Context, spec tenancy.FilterSpecification) (int, error) {
	f.calls++
	return len(f.visible(spec)), nil
}

func (f *fakeCompanies) InsertCompany(ctx context.Context, c domain.Company) (domain.Company, error) {
	f.calls++
	if f.err != nil {
		return domain.Company{}, f.err
	}
	c.ID = int64(len(f.rows) + 1)
	c.CreatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	f.rows = append(f.rows, c)
	return c, nil
}

type fakeQr struct {
	byToken map[string]domain.QrCredential
	lookups int
}

func (f *fakeQr) InsertQrCredential(ctx context.Context, q domain.QrCredential) (domain.QrCredential, error) {
	if f.byToken == nil {
		f.byToken = map[string]domain.QrCredential{}
	}
	q.ID = int64(len(f.byToken) + 1)
	q.CreatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	f.byToken[q.Token] = q
	return q, nil
}

func (f *fakeQr) GetQrCredentialByToken(ctx context.Context, token string) (domain.QrCredential, error) {
	f.lookups++
	q, ok := f.byToken[token]
	if !ok {
		return domain.QrCredential{}, domain.ErrNotFound
	}
	return q, nil
}

func (f *fakeQr) RevokeQrCredential(ctx context.Context, spec tenancy.FilterSpecification, id int64) (domain.QrCredential, error) {
	for tok, q := range f.byToken {
		if q.ID == id && inScope(spec, q.CompanyID, q.BranchID) {
			q.Active = false
			f.byToken[tok] = q
			return q, nil
		}
	}
	return domain.QrCredential{}, domain.ErrNotFound
}

// fakeCache round-trips through JSON like the real adapters do.
type fakeCache struct {
	store map[string][]byte
	dels  []string
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	delete(c.store, key)
	c.dels = append(c.dels, key)
	return nil
}

func ptr[T any](v T) *T { return &v }

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func review(id, company, branch int64, p domain.Platform, rating int) domain.Review {
	return domain.Review{
		ID: id, CompanyID: company, BranchID: branch, Platform: p, Rating: rating,
		Status: domain.ReviewNew, PublishedAt: t0.Add(-time.Duration(id) * time.Hour), CreatedAt: t0,
	}
}

// ownedBranches owns the branches referenced by seededReviews.
func ownedBranches() *fakeBranches {
	row := func(id, company int64) domain.Row {
		return domain.Row{"id": id, "company_id": company, "name": "branch"}
	}
	return &fakeBranches{rows: []domain.Row{row(420, 42), row(421, 42), row(430, 43), row(440, 44)}}
}

func engine() *tenancy.Engine { return tenancy.NewEngine(tenancy.DefaultPolicy()) }
