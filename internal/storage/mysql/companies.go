package mysql

import (
	"context"
	"time"

	"reviewhub/internal/domain"
	"reviewhub/internal/tenancy"
)

func (r *Repo) FindCompanies(ctx context.Context, spec tenancy.FilterSpecification) ([]domain.Company, error) {
	w, ok, err := scoped(spec, "c.id")
	if err != nil || !ok {
		return nil, err
	}
	lim, largs := page(spec)
	rows, err := r.db.QueryContext(ctx, selectCompaniesSQL+w.String()+" ORDER BY c.id"+lim, append(w.args, largs...)...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []domain.Company
	for rows.Next() {
		var c domain.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repo) CountCompanies(ctx context.Context, spec tenancy.FilterSpecification) (int, error) {
	w, ok, err := scoped(spec, "c.id")
	if err != nil || !ok {
		return 0, err
	}
	return r.count(ctx, countCompaniesSQL+w.String(), w.args...)
}

func (r *Repo) InsertCompany(ctx context.Context, c domain.Company) (domain.Company, error) {
	c.CreatedAt = time.Now().UTC().Truncate(time.Second)
	res, err := r.db.ExecContext(ctx, insertCompanySQL, c.Name, c.Slug, c.CreatedAt)
	if err != nil {
		return domain.Company{}, mapErr(err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return domain.Company{}, err
	}
	return c, nil
}
