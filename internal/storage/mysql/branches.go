package mysql

import (
	"context"
	"time"

	"reviewhub/internal/domain"
	"reviewhub/internal/tenancy"
)

func (r *Repo) FindBranches(ctx context.Context, spec tenancy.FilterSpecification) ([]domain.Row, error) {
	w, ok, err := scoped(spec, "b.company_id")
	if err != nil || !ok {
		return nil, err
	}
	w.in("b.id", spec.BranchIDs())
	lim, largs := page(spec)
	return r.queryRows(ctx, selectBranchesSQL+w.String()+" ORDER BY b.id"+lim, append(w.args, largs...)...)
}

func (r *Repo) CountBranches(ctx context.Context, spec tenancy.FilterSpecification) (int, error) {
	w, ok, err := scoped(spec, "b.company_id")
	if err != nil || !ok {
		return 0, err
	}
	w.in("b.id", spec.BranchIDs())
	return r.count(ctx, countBranchesSQL+w.String(), w.args...)
}

// GetBranch reads one branch row inside spec's company scope.
func (r *Repo) GetBranch(ctx context.Context, spec tenancy.FilterSpecification, id int64) (domain.Row, error) {
	w, ok, err := scoped(spec, "b.company_id")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNotFound
	}
	w.add("b.id = ?", id)
	rows, err := r.queryRows(ctx, selectBranchesSQL+w.String(), w.args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrNotFound
	}
	return rows[0], nil
}

// BranchIDsInScope returns the requested branch ids that belong to a company in spec's scope.
func (r *Repo) BranchIDsInScope(ctx context.Context, spec tenancy.FilterSpecification) ([]int64, error) {
	w, ok, err := scoped(spec, "b.company_id")
	if err != nil || !ok {
		return nil, err
	}
	ids := spec.BranchIDs()
	if len(ids) == 0 {
		return nil, nil
	}
	w.in("b.id", ids)
	rows, err := r.db.QueryContext(ctx, branchIDsSQL+w.String(), w.args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *Repo) InsertBranch(ctx context.Context, b domain.Branch) (domain.Branch, error) {
	b.CreatedAt = time.Now().UTC().Truncate(time.Second)
	res, err := r.db.ExecContext(ctx, insertBranchSQL,
		b.CompanyID,
		valInt64(b.CityID),
		b.Name,
		valStr(b.Address),
		valF64(b.Lat),
		valF64(b.Lon),
		b.CreatedAt,
	)
	if err != nil {
		return domain.Branch{}, mapErr(err)
	}
	if b.ID, err = res.LastInsertId(); err != nil {
		return domain.Branch{}, err
	}
	return b, nil
}

func (r *Repo) FindLocations(ctx context.Context, spec tenancy.FilterSpecification) ([]domain.Row, error) {
	w, ok, err := scoped(spec, "b.company_id")
	if err != nil || !ok {
		return nil, err
	}
	w.in("b.id", spec.BranchIDs())
	lim, largs := page(spec)
	return r.queryRows(ctx, selectLocationsSQL+w.String()+" ORDER BY co.name, b.name, b.id"+lim, append(w.args, largs...)...)
}
