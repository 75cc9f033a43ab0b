package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"reviewhub/internal/apperr"
	"reviewhub/internal/dto"
)

const maxBody = 1 << 20

// decodeBody reads one JSON object; unknown fields are rejected.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("body", "request body is required")
		}
		return apperr.Validation("body", "malformed JSON: "+err.Error())
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation(name, "must be a positive integer")
	}
	return id, nil
}

// ids accepts ?k=1&k=2 and ?k=1,2.
func ids(q url.Values, key string) ([]int64, error) {
	var out []int64
	for _, raw := range q[key] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, apperr.Validation(key, "must be a list of integers")
			}
			out = append(out, n)
		}
	}
	return out, nil
}

func strs(q url.Values, key string) []string {
	var out []string
	for _, raw := range q[key] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func optInt(q url.Values, key string) (*int, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, apperr.Validation(key, "must be an integer")
	}
	return &n, nil
}

func optFloat(q url.Values, key string) (*float64, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, apperr.Validation(key, "must be a number")
	}
	return &f, nil
}

// optTime takes RFC3339 or a bare date. A bare date used as an upper
// bound covers that whole day.
func optTime(q url.Values, key string, endOfDay bool) (*time.Time, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	// An unescaped "+07:00" offset arrives as " 07:00".
	if t, err := time.Parse(time.RFC3339, strings.ReplaceAll(v, " ", "+")); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, apperr.Validation(key, "must be RFC3339 or YYYY-MM-DD")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Second)
	}
	return &t, nil
}

func page(q url.Values) (dto.Page, error) {
	p := dto.Page{Cursor: q.Get("cursor")}
	l, err := optInt(q, "limit")
	if err != nil {
		return p, err
	}
	if l != nil {
		if *l <= 0 {
			return p, apperr.Validation("limit", "must be between 1 and 200")
		}
		p.Limit = *l
	}
	return p, nil
}

func reviewFilter(q url.Values) (dto.ReviewFilter, error) {
	var (
		f   dto.ReviewFilter
		err error
	)
	if f.CompanyIDs, err = ids(q, "company_id"); err != nil {
		return f, err
	}
	if f.BranchIDs, err = ids(q, "branch_id"); err != nil {
		return f, err
	}
	f.Platforms = strs(q, "platform")
	if f.From, err = optTime(q, "from", false); err != nil {
		return f, err
	}
	if f.To, err = optTime(q, "to", true); err != nil {
		return f, err
	}
	if f.MinRating, err = optInt(q, "min_rating"); err != nil {
		return f, err
	}
	if f.MaxRating, err = optInt(q, "max_rating"); err != nil {
		return f, err
	}
	if s := q.Get("status"); s != "" {
		f.Status = &s
	}
	f.Search = strings.TrimSpace(q.Get("q"))
	f.Sort = q.Get("sort")
	if f.Page, err = page(q); err != nil {
		return f, err
	}
	return f, nil
}

func scopeFilter(q url.Values) (dto.ScopeFilter, error) {
	var (
		f   dto.ScopeFilter
		err error
	)
	if f.CompanyIDs, err = ids(q, "company_id"); err != nil {
		return f, err
	}
	if f.Page, err = page(q); err != nil {
		return f, err
	}
	return f, nil
}

// coords is nil unless both lat and lon are given.
func coords(q url.Values) (*dto.Coords, error) {
	lat, err := optFloat(q, "lat")
	if err != nil {
		return nil, err
	}
	lon, err := optFloat(q, "lon")
	if err != nil {
		return nil, err
	}
	switch {
	case lat == nil && lon == nil:
		return nil, nil
	case lat == nil || lon == nil:
		return nil, apperr.Validation("lat", "lat and lon must be given together")
	}
	return &dto.Coords{Lat: *lat, Lon: *lon}, nil
}
