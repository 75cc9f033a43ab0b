// Package tenancy is the single enforcement point for tenant isolation.
// It turns an authenticated TenantContext plus a requested filter into a
// FilterSpecification whose company scope can never exceed what the caller
// is authorized to see.
package tenancy

import (
	"context"
	"sort"
)

type Role string

const (
	RoleSuperuser Role = "superuser"
	RoleAdmin     Role = "admin"
	RoleManager   Role = "manager"
	RoleViewer    Role = "viewer"
)

// TenantContext identifies the acting user. It is built once at the
// authentication boundary and has no mutators.
type TenantContext struct {
	userID    int64
	role      Role
	companies []int64
}

func NewTenantContext(userID int64, role Role, companyIDs []int64) TenantContext {
	return TenantContext{userID: userID, role: role, companies: normalizeIDs(companyIDs)}
}

func (c TenantContext) UserID() int64 { return c.userID }
func (c TenantContext) Role() Role { return c.role }

// AuthorizedCompanies returns a copy of the authorized company ids, ascending.
func (c TenantContext) AuthorizedCompanies() []int64 {
	return append([]int64(nil), c.companies...)
}

// IsZero reports whether the context was never populated by authentication.
func (c TenantContext) IsZero() bool { return c.userID == 0 }

func (c TenantContext) member(companyID int64) bool {
	i := sort.Search(len(c.companies), func(i int) bool { return c.companies[i] >= companyID })
	return i < len(c.companies) && c.companies[i] == companyID
}

type ctxKey struct{}

func WithTenant(ctx context.Context, tc TenantContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, tc)
}

func FromContext(ctx context.Context) (TenantContext, bool) {
	tc, ok := ctx.Value(ctxKey{}).(TenantContext)
	return tc, ok && !tc.IsZero()
}

// normalizeIDs returns a sorted, de-duplicated copy of ids.
func normalizeIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
