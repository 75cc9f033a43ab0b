package domain

import "time"

type QrCredential struct {
	ID        int64
	CompanyID int64
	BranchID  int64
	Token     string
	Active    bool
	CreatedAt time.Time
	ExpiresAt *time.Time
}

// Usable reports whether the credential may accept submissions at t.
func (q QrCredential) Usable(t time.Time) bool {
	if !q.Active {
		return false
	}
	return q.ExpiresAt == nil || t.Before(*q.ExpiresAt)
}
