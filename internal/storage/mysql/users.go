package mysql

import (
	"context"
	"database/sql"
	"time"

	"reviewhub/internal/domain"
)

func (r *Repo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.getUser(ctx, getUserByEmailSQL, email)
}

func (r *Repo) GetUser(ctx context.Context, id int64) (domain.User, error) {
	return r.getUser(ctx, getUserSQL, id)
}

func (r *Repo) getUser(ctx context.Context, q string, arg any) (domain.User, error) {
	var u domain.User
	var fullName sql.NullString
	if err := r.db.QueryRowContext(ctx, q, arg).Scan(
		&u.ID, &u.Email, &fullName, &u.PasswordHash, &u.Role, &u.Active, &u.CreatedAt,
	); err != nil {
		return domain.User{}, mapErr(err)
	}
	u.FullName = nullStr(fullName)

	rows, err := r.db.QueryContext(ctx, userCompaniesSQL, u.ID)
	if err != nil {
		return domain.User{}, mapErr(err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return domain.User{}, err
		}
		u.CompanyIDs = append(u.CompanyIDs, id)
	}
	return u, rows.Err()
}

func (r *Repo) InsertRefreshToken(ctx context.Context, t domain.RefreshToken) (domain.RefreshToken, error) {
	t.CreatedAt = time.Now().UTC().Truncate(time.Second)
	res, err := r.db.ExecContext(ctx, insertRefreshTokenSQL,
		t.UserID, t.TokenHash, t.ExpiresAt, valStr(t.UserAgent), valStr(t.IPAddress), t.CreatedAt)
	if err != nil {
		return domain.RefreshToken{}, mapErr(err)
	}
	if t.ID, err = res.LastInsertId(); err != nil {
		return domain.RefreshToken{}, err
	}
	return t, nil
}

// ConsumeRefreshToken revokes the live token with the given hash and returns
// it. Revoked, expired and unknown tokens are all ErrNotFound.
func (r *Repo) ConsumeRefreshToken(ctx context.Context, hash string, now time.Time) (domain.RefreshToken, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.RefreshToken{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var t domain.RefreshToken
	var ua, ip sql.NullString
	if err := tx.QueryRowContext(ctx, lockRefreshTokenSQL, hash).Scan(
		&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.Revoked, &ua, &ip, &t.CreatedAt,
	); err != nil {
		return domain.RefreshToken{}, mapErr(err)
	}
	t.UserAgent, t.IPAddress = nullStr(ua), nullStr(ip)
	if t.Revoked || !now.Before(t.ExpiresAt) {
		return domain.RefreshToken{}, domain.ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, revokeRefreshTokenSQL, hash); err != nil {
		return domain.RefreshToken{}, mapErr(err)
	}
	if err := tx.Commit(); err != nil {
		return domain.RefreshToken{}, err
	}
	t.Revoked = true
	return t, nil
}

// RevokeRefreshToken is a no-op for unknown hashes.
func (r *Repo) RevokeRefreshToken(ctx context.Context, hash string) error {
	_, err := r.db.ExecContext(ctx, revokeRefreshTokenSQL, hash)
	return mapErr(err)
}
