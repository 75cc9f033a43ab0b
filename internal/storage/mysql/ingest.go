package mysql

import (
	"context"

	"reviewhub/internal/domain"
)

func (r *Repo) ListPlatformLinks(ctx context.Context) ([]domain.PlatformLink, error) {
	rows, err := r.db.QueryContext(ctx, listPlatformLinksSQL)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []domain.PlatformLink
	for rows.Next() {
		var l domain.PlatformLink
		var platform string
		if err := rows.Scan(&l.BranchID, &l.CompanyID, &platform, &l.ExternalID); err != nil {
			return nil, err
		}
		l.Platform = domain.Platform(platform)
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *Repo) LogMiss(ctx context.Context, branchID int64, platform domain.Platform, status int, reason string) error {
	_, err := r.db.ExecContext(ctx, insertMissSQL, branchID, string(platform), status, reason)
	return mapErr(err)
}
