package tenancy

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	"reviewhub/internal/domain"
)

type scopeKind uint8

const (
	scopeUnset scopeKind = iota
	scopeAll
	scopeCompanies
)

// Scope is the effective company scope of a query. The zero value is unset
// and repositories refuse it; "no restriction" is the explicit AllCompanies state.
type Scope struct {
	kind      scopeKind
	companies []int64
}

func allCompanies() Scope { return Scope{kind: scopeAll} }

func companyScope(ids []int64) Scope {
	return Scope{kind: scopeCompanies, companies: normalizeIDs(ids)}
}

func (s Scope) Set() bool { return s.kind != scopeUnset }

// AllCompanies reports the explicit unrestricted sentinel.
func (s Scope) AllCompanies() bool { return s.kind == scopeAll }

// CompanyIDs returns a copy of the scoped ids; empty for AllCompanies.
func (s Scope) CompanyIDs() []int64 { return append([]int64(nil), s.companies...) }

// Empty reports a restricted scope with no companies; such queries match nothing.
func (s Scope) Empty() bool { return s.kind == scopeCompanies && len(s.companies) == 0 }

type SortOrder string

const (
	SortPublishedDesc SortOrder = "-published_at"
	SortPublishedAsc  SortOrder = "published_at"
	SortRatingDesc    SortOrder = "-rating"
	SortRatingAsc     SortOrder = "rating"
)

func (s SortOrder) valid() bool {
	switch s {
	case SortPublishedDesc, SortPublishedAsc, SortRatingDesc, SortRatingAsc:
		return true
	}
	return false
}

// FilterSpecification is a validated, tenant-scoped query. Only Engine builds one.
type FilterSpecification struct {
	scope     Scope
	branchIDs []int64
	platforms []domain.Platform
	from, to  *time.Time
	minRating int
	maxRating int
	status    *domain.ReviewStatus
	search    string
	sort      SortOrder
	limit     int
	offset    int
}

func (f FilterSpecification) Scope() Scope { return f.scope }
func (f FilterSpecification) BranchIDs() []int64 { return append([]int64(nil), f.branchIDs...) }
func (f FilterSpecification) Platforms() []domain.Platform { return append([]domain.Platform(nil), f.platforms...) }
func (f FilterSpecification) From() *time.Time { return f.from }
func (f FilterSpecification) To() *time.Time { return f.to }
func (f FilterSpecification) MinRating() int { return f.minRating }
func (f FilterSpecification) MaxRating() int { return f.maxRating }
func (f FilterSpecification) Status() *domain.ReviewStatus { return f.status }
func (f FilterSpecification) Search() string { return f.search }
func (f FilterSpecification) Sort() SortOrder { return f.sort }
func (f FilterSpecification) Limit() int { return f.limit }
func (f FilterSpecification) Offset() int { return f.offset }

// NextCursor returns the cursor for the page after this one, nil on the last page.
func (f FilterSpecification) NextCursor(returned, total int) *string {
	next := f.offset + returned
	if returned == 0 || next >= total {
		return nil
	}
	c := EncodeCursor(next)
	return &c
}

const cursorPrefix = "o:"

var errBadCursor = errors.New("malformed cursor")

func EncodeCursor(offset int) string {
	return base64.RawURLEncoding.EncodeToString([]byte(cursorPrefix + strconv.Itoa(offset)))
}

func decodeCursor(c string) (int, error) {
	if c == "" {
		return 0, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(c)
	if err != nil {
		return 0, errBadCursor
	}
	s, ok := strings.CutPrefix(string(b), cursorPrefix)
	if !ok {
		return 0, errBadCursor
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errBadCursor
	}
	return n, nil
}
