package mysql

import (
	"context"
	"database/sql"
	"time"

	"reviewhub/internal/domain"
	"reviewhub/internal/tenancy"
)

func scanQr(s rowScanner) (domain.QrCredential, error) {
	var q domain.QrCredential
	var exp sql.NullTime
	if err := s.Scan(&q.ID, &q.CompanyID, &q.BranchID, &q.Token, &q.Active, &q.CreatedAt, &exp); err != nil {
		return domain.QrCredential{}, mapErr(err)
	}
	if exp.Valid {
		t := exp.Time.UTC()
		q.ExpiresAt = &t
	}
	return q, nil
}

func (r *Repo) InsertQrCredential(ctx context.Context, q domain.QrCredential) (domain.QrCredential, error) {
	q.CreatedAt = time.Now().UTC().Truncate(time.Second)
	var exp any
	if q.ExpiresAt != nil {
		exp = q.ExpiresAt.UTC()
	}
	res, err := r.db.ExecContext(ctx, insertQrSQL, q.CompanyID, q.BranchID, q.Token, q.Active, q.CreatedAt, exp)
	if err != nil {
		return domain.QrCredential{}, mapErr(err)
	}
	if q.ID, err = res.LastInsertId(); err != nil {
		return domain.QrCredential{}, err
	}
	return q, nil
}

// GetQrCredentialByToken is unscoped: possession of the token is the authority.
func (r *Repo) GetQrCredentialByToken(ctx context.Context, token string) (domain.QrCredential, error) {
	return scanQr(r.db.QueryRowContext(ctx, getQrByTokenSQL, token))
}

func (r *Repo) RevokeQrCredential(ctx context.Context, spec tenancy.FilterSpecification, id int64) (domain.QrCredential, error) {
	w, ok, err := scoped(spec, "q.company_id")
	if err != nil {
		return domain.QrCredential{}, err
	}
	if !ok {
		return domain.QrCredential{}, domain.ErrNotFound
	}
	w.add("q.id = ?", id)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.QrCredential{}, err
	}
	defer func() { _ = tx.Rollback() }()

	q, err := scanQr(tx.QueryRowContext(ctx, "SELECT "+qrColumns+" FROM qr_credentials q"+w.String()+" FOR UPDATE", w.args...))
	if err != nil {
		return domain.QrCredential{}, err
	}
	if _, err := tx.ExecContext(ctx, revokeQrSQL, q.ID); err != nil {
		return domain.QrCredential{}, mapErr(err)
	}
	if err := tx.Commit(); err != nil {
		return domain.QrCredential{}, err
	}
	q.Active = false
	return q, nil
}
