package domain

import "time"

type Platform string

const (
	PlatformGoogle      Platform = "google"
	PlatformYandex      Platform = "yandex"
	Platform2GIS        Platform = "2gis"
	PlatformTripadvisor Platform = "tripadvisor"
	PlatformQR          Platform = "qr"
)

var platforms = []Platform{PlatformGoogle, PlatformYandex, Platform2GIS, PlatformTripadvisor, PlatformQR}

func (p Platform) Valid() bool {
	for _, x := range platforms {
		if x == p {
			return true
		}
	}
	return false
}

func (p Platform) String() string { return string(p) }

// Platforms returns every known platform in declaration order.
func Platforms() []Platform { return append([]Platform(nil), platforms...) }

type ReviewStatus string

const (
	ReviewNew      ReviewStatus = "new"
	ReviewAnswered ReviewStatus = "answered"
	ReviewHidden   ReviewStatus = "hidden"
)

func (s ReviewStatus) Valid() bool {
	switch s {
	case ReviewNew, ReviewAnswered, ReviewHidden:
		return true
	}
	return false
}

func (s ReviewStatus) String() string { return string(s) }

type Review struct {
	ID          int64
	CompanyID   int64
	BranchID    int64
	Platform    Platform
	ExternalID  *string
	Author      *string
	Rating      int
	Text        *string
	Reply       *string
	Status      ReviewStatus
	PublishedAt time.Time
	CreatedAt   time.Time
	RawJSON     []byte // original platform payload, nil for QR reviews
}

// ReviewPatch carries the mutable review fields; nil means unchanged.
type ReviewPatch struct {
	Status *ReviewStatus
	Reply  *string
}
