package domain

import "time"

type Company struct {
	ID        int64
	Name      string
	Slug      string
	CreatedAt time.Time
}

type Branch struct {
	ID        int64
	CompanyID int64
	Name      string
	Address   *string
	CityID    *int64
	Lat, Lon  *float64
	CreatedAt time.Time
}

// PlatformLink ties a branch to its listing on an external review platform.
type PlatformLink struct {
	BranchID   int64
	CompanyID  int64
	Platform   Platform
	ExternalID string
}
