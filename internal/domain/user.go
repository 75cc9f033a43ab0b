package domain

import "time"

type Role struct {
	ID          int64
	Name        string
	Description string
}

type User struct {
	ID           int64
	Email        string
	FullName     *string
	PasswordHash string
	Role         string
	Active       bool
	CompanyIDs   []int64
	CreatedAt    time.Time
}

// RefreshToken is a stored refresh credential. Only the SHA-256 of the opaque
// token ever reaches the database.
type RefreshToken struct {
	ID        int64
	UserID    int64
	TokenHash string
	ExpiresAt time.Time
	Revoked   bool
	UserAgent *string
	IPAddress *string
	CreatedAt time.Time
}
