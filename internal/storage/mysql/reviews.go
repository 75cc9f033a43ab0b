package mysql

import (
	"context"
	"database/sql"
	"strings"

	"reviewhub/internal/domain"
	"reviewhub/internal/tenancy"
)

var reviewOrder = map[tenancy.SortOrder]string{
	tenancy.SortPublishedDesc: " ORDER BY r.published_at DESC, r.id DESC",
	tenancy.SortPublishedAsc:  " ORDER BY r.published_at ASC, r.id ASC",
	tenancy.SortRatingDesc:    " ORDER BY r.rating DESC, r.published_at DESC, r.id DESC",
	tenancy.SortRatingAsc:     " ORDER BY r.rating ASC, r.published_at DESC, r.id DESC",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// reviewWhere renders every filter in spec against the reviews table.
func reviewWhere(spec tenancy.FilterSpecification) (*where, bool, error) {
	w, ok, err := scoped(spec, "r.company_id")
	if err != nil || !ok {
		return nil, ok, err
	}
	w.in("r.branch_id", spec.BranchIDs())
	if ps := spec.Platforms(); len(ps) > 0 {
		args := make([]any, len(ps))
		for i, p := range ps {
			args[i] = string(p)
		}
		w.add("r.platform IN ("+placeholders(len(ps))+")", args...)
	}
	if t := spec.From(); t != nil {
		w.add("r.published_at >= ?", *t)
	}
	if t := spec.To(); t != nil {
		w.add("r.published_at <= ?", *t)
	}
	if n := spec.MinRating(); n != 0 {
		w.add("r.rating >= ?", n)
	}
	if n := spec.MaxRating(); n != 0 {
		w.add("r.rating <= ?", n)
	}
	if st := spec.Status(); st != nil {
		w.add("r.status = ?", string(*st))
	}
	if q := spec.Search(); q != "" {
		like := "%" + likeEscaper.Replace(q) + "%"
		w.add("(r.`text` LIKE ? OR r.author LIKE ? OR r.reply LIKE ?)", like, like, like)
	}
	return w, true, nil
}

type rowScanner interface{ Scan(dest ...any) error }

func scanReview(s rowScanner) (domain.Review, error) {
	var rv domain.Review
	var platform, status string
	var externalID, author, text, reply sql.NullString
	if err := s.Scan(
		&rv.ID,
		&rv.CompanyID,
		&rv.BranchID,
		&platform,
		&externalID,
		&author,
		&rv.Rating,
		&text,
		&reply,
		&status,
		&rv.PublishedAt,
		&rv.CreatedAt,
	); err != nil {
		return domain.Review{}, err
	}
	rv.Platform = domain.Platform(platform)
	rv.Status = domain.ReviewStatus(status)
	rv.ExternalID = nullStr(externalID)
	rv.Author = nullStr(author)
	rv.Text = nullStr(text)
	rv.Reply = nullStr(reply)
	return rv, nil
}

func (r *Repo) FindReviews(ctx context.Context, spec tenancy.FilterSpecification) ([]domain.Review, error) {
	w, ok, err := reviewWhere(spec)
	if err != nil || !ok {
		return nil, err
	}
	order, ok := reviewOrder[spec.Sort()]
	if !ok {
		order = reviewOrder[tenancy.SortPublishedDesc]
	}
	lim, largs := page(spec)
	rows, err := r.db.QueryContext(ctx, selectReviewsSQL+w.String()+order+lim, append(w.args, largs...)...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []domain.Review
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

func (r *Repo) CountReviews(ctx context.Context, spec tenancy.FilterSpecification) (int, error) {
	w, ok, err := reviewWhere(spec)
	if err != nil || !ok {
		return 0, err
	}
	return r.count(ctx, countReviewsSQL+w.String(), w.args...)
}

func (r *Repo) ReviewStats(ctx context.Context, spec tenancy.FilterSpecification) ([]domain.Row, error) {
	w, ok, err := reviewWhere(spec)
	if err != nil || !ok {
		return nil, err
	}
	return r.queryRows(ctx, reviewStatsSQL+w.String()+" GROUP BY r.platform ORDER BY r.platform", w.args...)
}

// GetReview reads one review inside spec's company scope. A review outside
// it reads as domain.ErrNotFound.
func (r *Repo) GetReview(ctx context.Context, spec tenancy.FilterSpecification, id int64) (domain.Review, error) {
	return r.getReview(ctx, r.db, spec, id, false)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *Repo) getReview(ctx context.Context, q querier, spec tenancy.FilterSpecification, id int64, lock bool) (domain.Review, error) {
	w, ok, err := scoped(spec, "r.company_id")
	if err != nil {
		return domain.Review{}, err
	}
	if !ok {
		return domain.Review{}, domain.ErrNotFound
	}
	w.add("r.id = ?", id)
	query := selectReviewsSQL + w.String()
	if lock {
		query += " FOR UPDATE"
	}
	rv, err := scanReview(q.QueryRowContext(ctx, query, w.args...))
	if err != nil {
		return domain.Review{}, mapErr(err)
	}
	return rv, nil
}

func (r *Repo) UpdateReview(ctx context.Context, spec tenancy.FilterSpecification, id int64, patch domain.ReviewPatch) (domain.Review, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Review{}, err
	}
	defer func() { _ = tx.Rollback() }()

	rv, err := r.getReview(ctx, tx, spec, id, true)
	if err != nil {
		return domain.Review{}, err
	}
	var sets []string
	var args []any
	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*patch.Status))
		rv.Status = *patch.Status
	}
	if patch.Reply != nil {
		sets = append(sets, "reply = ?")
		if *patch.Reply == "" {
			args = append(args, nil)
			rv.Reply = nil
		} else {
			args = append(args, *patch.Reply)
			reply := *patch.Reply
			rv.Reply = &reply
		}
	}
	if len(sets) > 0 {
		args = append(args, rv.ID)
		if _, err := tx.ExecContext(ctx, "UPDATE reviews SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...); err != nil {
			return domain.Review{}, mapErr(err)
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.Review{}, err
	}
	return rv, nil
}

func (r *Repo) InsertReview(ctx context.Context, rv domain.Review) (domain.Review, error) {
	res, err := r.db.ExecContext(ctx, insertReviewSQL, reviewArgs(rv)...)
	if err != nil {
		return domain.Review{}, mapErr(err)
	}
	if rv.ID, err = res.LastInsertId(); err != nil {
		return domain.Review{}, err
	}
	return rv, nil
}

func reviewArgs(rv domain.Review) []any {
	return []any{
		rv.CompanyID,
		rv.BranchID,
		string(rv.Platform),
		valStr(rv.ExternalID),
		valStr(rv.Author),
		rv.Rating,
		valStr(rv.Text),
		valStr(rv.Reply),
		string(rv.Status),
		rv.PublishedAt.UTC(),
		rv.CreatedAt.UTC(),
		valJSON(rv.RawJSON),
	}
}

// UpsertReviews batch-inserts feed reviews keyed by (branch, platform, external id).
func (r *Repo) UpsertReviews(ctx context.Context, rs []domain.Review) error {
	if len(rs) == 0 {
		return nil
	}
	values := make([]string, 0, len(rs))
	args := make([]any, 0, len(rs)*12) // 12 params per row
	for _, rv := range rs {
		values = append(values, "(?,?,?,?,?,?,?,?,?,?,?,?)")
		args = append(args, reviewArgs(rv)...)
	}
	sqlStr := upsertReviewsPrefix + strings.Join(values, ",") + upsertReviewsOnDup
	_, err := r.db.ExecContext(ctx, sqlStr, args...)
	return mapErr(err)
}
