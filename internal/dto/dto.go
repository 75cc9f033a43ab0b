// Package dto holds the transfer objects services accept and return.
// Times are RFC3339 UTC strings; enums are their string values.
package dto

import "time"

type Page struct {
	Limit  int
	Cursor string
}

// ReviewFilter is the requested, not yet authorized, review query.
type ReviewFilter struct {
	CompanyIDs []int64
	BranchIDs  []int64
	Platforms  []string
	From, To   *time.Time
	MinRating  *int
	MaxRating  *int
	Status     *string
	Search     string
	Sort       string
	Page       Page
}

type ReviewDTO struct {
	ID          int64
	CompanyID   int64
	BranchID    int64
	Platform    string
	ExternalID  *string
	Author      *string
	Rating      int
	Text        *string
	Reply       *string
	Status      string
	PublishedAt string
	CreatedAt   string
}

type ReviewListDTO struct {
	Items      []ReviewDTO
	Total      int
	NextCursor *string
}

type ReviewUpdate struct {
	Status *string
	Reply  *string
}

type PlatformCountDTO struct {
	Platform string
	Count    int
}

type ReviewStatsDTO struct {
	Total         int
	AverageRating string
	ByPlatform    []PlatformCountDTO
}

type CompanyDTO struct {
	ID        int64
	Name      string
	Slug      string
	CreatedAt string
}

type CompanyListDTO struct {
	Items      []CompanyDTO
	Total      int
	NextCursor *string
}

type CompanyInput struct {
	Name string
	Slug string
}

// ScopeFilter is the requested scope for non-review listings.
type ScopeFilter struct {
	CompanyIDs []int64
	Page       Page
}

type BranchDTO struct {
	ID          int64
	CompanyID   int64
	Name        string
	Address     *string
	CityName    *string
	ReviewCount int
	CreatedAt   string
}

type BranchListDTO struct {
	Items      []BranchDTO
	Total      int
	NextCursor *string
}

type BranchInput struct {
	CompanyID int64
	Name      string
	Address   *string
	CityID    *int64
	Lat, Lon  *float64
}

type Coords struct{ Lat, Lon float64 }

type QrLocationDTO struct {
	BranchID    int64
	CompanyID   int64
	BranchName  string
	CompanyName string
	CityName    string
	Address     *string
	Lat, Lon    *float64
	DistanceKm  *float64
}

type QrCredentialDTO struct {
	ID        int64
	BranchID  int64
	Token     string
	Active    bool
	CreatedAt string
	ExpiresAt *string
}

type QrReviewInput struct {
	Author *string
	Rating int
	Text   *string
}

type UserDTO struct {
	ID              int64
	Email           string
	FullName        *string
	Role            string
	RoleDescription string
	CompanyIDs      []int64
}

// Client describes where a token request came from.
type Client struct {
	UserAgent string
	IP        string
}

type LoginInput struct {
	Email    string
	Password string
	Client   Client
}

type RefreshInput struct {
	RefreshToken string
	Client       Client
}

type TokenDTO struct {
	AccessToken      string
	TokenType        string
	ExpiresAt        string
	RefreshToken     string
	RefreshExpiresAt string
}
