package httpserver

import "reviewhub/internal/dto"

// Request and response bodies. Nothing outside this package sees them.

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	ExpiresAt        string `json:"expires_at"`
	RefreshToken     string `json:"refresh_token"`
	RefreshExpiresAt string `json:"refresh_expires_at"`
}

func toToken(d dto.TokenDTO) tokenResponse {
	return tokenResponse{
		AccessToken:      d.AccessToken,
		TokenType:        d.TokenType,
		ExpiresAt:        d.ExpiresAt,
		RefreshToken:     d.RefreshToken,
		RefreshExpiresAt: d.RefreshExpiresAt,
	}
}

type userResponse struct {
	ID              int64   `json:"id"`
	Email           string  `json:"email"`
	FullName        *string `json:"full_name,omitempty"`
	Role            string  `json:"role"`
	RoleDescription string  `json:"role_description"`
	CompanyIDs      []int64 `json:"company_ids"`
}

type reviewResponse struct {
	ID          int64   `json:"id"`
	CompanyID   int64   `json:"company_id"`
	BranchID    int64   `json:"branch_id"`
	Platform    string  `json:"platform"`
	ExternalID  *string `json:"external_id,omitempty"`
	Author      *string `json:"author,omitempty"`
	Rating      int     `json:"rating"`
	Text        *string `json:"text,omitempty"`
	Reply       *string `json:"reply,omitempty"`
	Status      string  `json:"status"`
	PublishedAt string  `json:"published_at"`
	CreatedAt   string  `json:"created_at"`
}

type reviewListResponse struct {
	Items      []reviewResponse `json:"items"`
	Total      int              `json:"total"`
	NextCursor *string          `json:"next_cursor"`
}

type reviewPatchRequest struct {
	Status *string `json:"status"`
	Reply  *string `json:"reply"`
}

type platformCountResponse struct {
	Platform string `json:"platform"`
	Count    int    `json:"count"`
}

type statsResponse struct {
	Total         int                     `json:"total"`
	AverageRating string                  `json:"average_rating"`
	ByPlatform    []platformCountResponse `json:"by_platform"`
}

type companyRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type companyResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	CreatedAt string `json:"created_at"`
}

type companyListResponse struct {
	Items      []companyResponse `json:"items"`
	Total      int               `json:"total"`
	NextCursor *string           `json:"next_cursor"`
}

type branchRequest struct {
	CompanyID int64    `json:"company_id"`
	Name      string   `json:"name"`
	Address   *string  `json:"address"`
	CityID    *int64   `json:"city_id"`
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`
}

type branchResponse struct {
	ID          int64   `json:"id"`
	CompanyID   int64   `json:"company_id"`
	Name        string  `json:"name"`
	Address     *string `json:"address,omitempty"`
	CityName    *string `json:"city_name,omitempty"`
	ReviewCount int     `json:"review_count"`
	CreatedAt   string  `json:"created_at"`
}

type branchListResponse struct {
	Items      []branchResponse `json:"items"`
	Total      int              `json:"total"`
	NextCursor *string          `json:"next_cursor"`
}

type qrIssueRequest struct {
	TTLSeconds *int64 `json:"ttl_seconds"`
}

type qrCredentialResponse struct {
	ID        int64   `json:"id"`
	BranchID  int64   `json:"branch_id"`
	Token     string  `json:"token"`
	Active    bool    `json:"active"`
	CreatedAt string  `json:"created_at"`
	ExpiresAt *string `json:"expires_at,omitempty"`
}

type qrLocationResponse struct {
	BranchID    int64    `json:"branch_id"`
	CompanyID   int64    `json:"company_id"`
	BranchName  string   `json:"branch_name"`
	CompanyName string   `json:"company_name"`
	CityName    string   `json:"city_name"`
	Address     *string  `json:"address,omitempty"`
	Lat         *float64 `json:"lat,omitempty"`
	Lon         *float64 `json:"lon,omitempty"`
	DistanceKm  *float64 `json:"distance_km,omitempty"`
}

type qrReviewRequest struct {
	Author *string `json:"author"`
	Rating int     `json:"rating"`
	Text   *string `json:"text"`
}

// ---- DTO -> wire ----

func toReview(d dto.ReviewDTO) reviewResponse {
	return reviewResponse{
		ID: d.ID, CompanyID: d.CompanyID, BranchID: d.BranchID,
		Platform: d.Platform, ExternalID: d.ExternalID, Author: d.Author,
		Rating: d.Rating, Text: d.Text, Reply: d.Reply, Status: d.Status,
		PublishedAt: d.PublishedAt, CreatedAt: d.CreatedAt,
	}
}

func toReviewList(d dto.ReviewListDTO) reviewListResponse {
	out := reviewListResponse{Items: make([]reviewResponse, 0, len(d.Items)), Total: d.Total, NextCursor: d.NextCursor}
	for _, it := range d.Items {
		out.Items = append(out.Items, toReview(it))
	}
	return out
}

func toStats(d dto.ReviewStatsDTO) statsResponse {
	out := statsResponse{Total: d.Total, AverageRating: d.AverageRating, ByPlatform: make([]platformCountResponse, 0, len(d.ByPlatform))}
	for _, p := range d.ByPlatform {
		out.ByPlatform = append(out.ByPlatform, platformCountResponse{Platform: p.Platform, Count: p.Count})
	}
	return out
}

func toCompany(d dto.CompanyDTO) companyResponse {
	return companyResponse{ID: d.ID, Name: d.Name, Slug: d.Slug, CreatedAt: d.CreatedAt}
}

func toCompanyList(d dto.CompanyListDTO) companyListResponse {
	out := companyListResponse{Items: make([]companyResponse, 0, len(d.Items)), Total: d.Total, NextCursor: d.NextCursor}
	for _, it := range d.Items {
		out.Items = append(out.Items, toCompany(it))
	}
	return out
}

func toBranch(d dto.BranchDTO) branchResponse {
	return branchResponse{
		ID: d.ID, CompanyID: d.CompanyID, Name: d.Name, Address: d.Address,
		CityName: d.CityName, ReviewCount: d.ReviewCount, CreatedAt: d.CreatedAt,
	}
}

func toBranchList(d dto.BranchListDTO) branchListResponse {
	out := branchListResponse{Items: make([]branchResponse, 0, len(d.Items)), Total: d.Total, NextCursor: d.NextCursor}
	for _, it := range d.Items {
		out.Items = append(out.Items, toBranch(it))
	}
	return out
}

func toQrCredential(d dto.QrCredentialDTO) qrCredentialResponse {
	return qrCredentialResponse{ID: d.ID, BranchID: d.BranchID, Token: d.Token, Active: d.Active, CreatedAt: d.CreatedAt, ExpiresAt: d.ExpiresAt}
}

func toQrLocation(d dto.QrLocationDTO) qrLocationResponse {
	return qrLocationResponse{
		BranchID: d.BranchID, CompanyID: d.CompanyID, BranchName: d.BranchName,
		CompanyName: d.CompanyName, CityName: d.CityName, Address: d.Address,
		Lat: d.Lat, Lon: d.Lon, DistanceKm: d.DistanceKm,
	}
}

func toUser(d dto.UserDTO) userResponse {
	ids := d.CompanyIDs
	if ids == nil {
		ids = []int64{}
	}
	return userResponse{ID: d.ID, Email: d.Email, FullName: d.FullName, Role: d.Role, RoleDescription: d.RoleDescription, CompanyIDs: ids}
}
