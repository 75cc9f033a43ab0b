package app

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"reviewhub/internal/apperr"
	"reviewhub/internal/domain"
	"reviewhub/internal/dto"
)

const missing = "required field is empty"

/********** direct conversions (model → DTO) **********/

func companyToDTO(m domain.Company) (dto.CompanyDTO, error) {
	const name = "CompanyDTO"
	switch {
	case m.ID == 0:
		return dto.CompanyDTO{}, apperr.Conversion(name, "id", missing)
	case m.Name == "":
		return dto.CompanyDTO{}, apperr.Conversion(name, "name", missing)
	case m.Slug == "":
		return dto.CompanyDTO{}, apperr.Conversion(name, "slug", missing)
	case m.CreatedAt.IsZero():
		return dto.CompanyDTO{}, apperr.Conversion(name, "created_at", missing)
	}
	return dto.CompanyDTO{
		ID:        m.ID,
		Name:      m.Name,
		Slug:      m.Slug,
		CreatedAt: canonicalTime(m.CreatedAt),
	}, nil
}

func reviewToDTO(m domain.Review) (dto.ReviewDTO, error) {
	const name = "ReviewDTO"
	switch {
	case m.ID == 0:
		return dto.ReviewDTO{}, apperr.Conversion(name, "id", missing)
	case m.CompanyID == 0:
		return dto.ReviewDTO{}, apperr.Conversion(name, "company_id", missing)
	case m.BranchID == 0:
		return dto.ReviewDTO{}, apperr.Conversion(name, "branch_id", missing)
	case !m.Platform.Valid():
		return dto.ReviewDTO{}, apperr.Conversion(name, "platform", "unknown platform "+strconv.Quote(string(m.Platform)))
	case m.Rating == 0:
		return dto.ReviewDTO{}, apperr.Conversion(name, "rating", missing)
	case !m.Status.Valid():
		return dto.ReviewDTO{}, apperr.Conversion(name, "status", "unknown status "+strconv.Quote(string(m.Status)))
	case m.PublishedAt.IsZero():
		return dto.ReviewDTO{}, apperr.Conversion(name, "published_at", missing)
	case m.CreatedAt.IsZero():
		return dto.ReviewDTO{}, apperr.Conversion(name, "created_at", missing)
	}
	return dto.ReviewDTO{
		ID:          m.ID,
		CompanyID:   m.CompanyID,
		BranchID:    m.BranchID,
		Platform:    m.Platform.String(),
		ExternalID:  cloneStr(m.ExternalID),
		Author:      cloneStr(m.Author),
		Rating:      m.Rating,
		Text:        cloneStr(m.Text),
		Reply:       cloneStr(m.Reply),
		Status:      m.Status.String(),
		PublishedAt: canonicalTime(m.PublishedAt),
		CreatedAt:   canonicalTime(m.CreatedAt),
	}, nil
}

func qrCredentialToDTO(m domain.QrCredential) (dto.QrCredentialDTO, error) {
	const name = "QrCredentialDTO"
	switch {
	case m.ID == 0:
		return dto.QrCredentialDTO{}, apperr.Conversion(name, "id", missing)
	case m.BranchID == 0:
		return dto.QrCredentialDTO{}, apperr.Conversion(name, "branch_id", missing)
	case m.Token == "":
		return dto.QrCredentialDTO{}, apperr.Conversion(name, "token", missing)
	case m.CreatedAt.IsZero():
		return dto.QrCredentialDTO{}, apperr.Conversion(name, "created_at", missing)
	}
	out := dto.QrCredentialDTO{
		ID:        m.ID,
		BranchID:  m.BranchID,
		Token:     m.Token,
		Active:    m.Active,
		CreatedAt: canonicalTime(m.CreatedAt),
	}
	if m.ExpiresAt != nil {
		s := canonicalTime(*m.ExpiresAt)
		out.ExpiresAt = &s
	}
	return out, nil
}

// userToDTO needs the role description supplied by the caller; the model
// does not carry it.
func userToDTO(m domain.User, roleDescription string) (dto.UserDTO, error) {
	const name = "UserDTO"
	switch {
	case m.ID == 0:
		return dto.UserDTO{}, apperr.Conversion(name, "id", missing)
	case m.Email == "":
		return dto.UserDTO{}, apperr.Conversion(name, "email", missing)
	case m.Role == "":
		return dto.UserDTO{}, apperr.Conversion(name, "role", missing)
	case roleDescription == "":
		return dto.UserDTO{}, apperr.Conversion(name, "role_description", missing)
	}
	return dto.UserDTO{
		ID:              m.ID,
		Email:           m.Email,
		FullName:        cloneStr(m.FullName),
		Role:            m.Role,
		RoleDescription: roleDescription,
		CompanyIDs:      append([]int64{}, m.CompanyIDs...),
	}, nil
}

/********** augmented conversions (row + extra → DTO) **********/

var branchContract = contract{dto: "BranchDTO", fields: []field{
	required("id", kindInt),
	required("company_id", kindInt),
	required("name", kindString),
	optional("address", kindString),
	optional("city_name", kindString),
	required("review_count", kindInt),
	required("created_at", kindTime),
}}

var qrLocationContract = contract{dto: "QrLocationDTO", fields: []field{
	required("branch_id", kindInt),
	required("company_id", kindInt),
	required("branch_name", kindString),
	required("company_name", kindString),
	required("city_name", kindString),
	optional("address", kindString),
	optional("lat", kindFloat),
	optional("lon", kindFloat),
	optional("distance_km", kindFloat),
}}

var platformCountContract = contract{dto: "PlatformCountDTO", fields: []field{
	required("platform", kindString),
	required("count", kindInt),
}}

func branchToDTO(row domain.Row, extra map[string]any) (dto.BranchDTO, error) {
	return augment(branchContract, row, extra, func(v values) dto.BranchDTO {
		return dto.BranchDTO{
			ID:          v.int64("id"),
			CompanyID:   v.int64("company_id"),
			Name:        v.str("name"),
			Address:     v.strPtr("address"),
			CityName:    v.strPtr("city_name"),
			ReviewCount: int(v.int64("review_count")),
			CreatedAt:   v.str("created_at"),
		}
	})
}

func qrLocationToDTO(row domain.Row, extra map[string]any) (dto.QrLocationDTO, error) {
	return augment(qrLocationContract, row, extra, func(v values) dto.QrLocationDTO {
		return dto.QrLocationDTO{
			BranchID:    v.int64("branch_id"),
			CompanyID:   v.int64("company_id"),
			BranchName:  v.str("branch_name"),
			CompanyName: v.str("company_name"),
			CityName:    v.str("city_name"),
			Address:     v.strPtr("address"),
			Lat:         v.floatPtr("lat"),
			Lon:         v.floatPtr("lon"),
			DistanceKm:  v.floatPtr("distance_km"),
		}
	})
}

func platformCountToDTO(row domain.Row) (dto.PlatformCountDTO, error) {
	return augment(platformCountContract, row, nil, func(v values) dto.PlatformCountDTO {
		return dto.PlatformCountDTO{Platform: v.str("platform"), Count: int(v.int64("count"))}
	})
}

// branchRow projects a freshly inserted branch into the row shape the
// branch contract reads.
func branchRow(b domain.Branch) domain.Row {
	row := domain.Row{
		"id":         b.ID,
		"company_id": b.CompanyID,
		"name":       b.Name,
		"created_at": b.CreatedAt,
	}
	if b.Address != nil {
		row["address"] = *b.Address
	}
	return row
}

const earthRadiusKm = 6371.0

// haversineKm is the great-circle distance rounded to 0.01 km.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	rad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat, dLon := rad(lat2-lat1), rad(lon2-lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	d := 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(a)))
	return math.Round(d*100) / 100
}

/********** alias registries for platform payloads **********/

var reviewAliases = map[string][]string{
	"author":       {"author", "name", "userName", "reviewer", "reviewer.name", "user.name"},
	"author_first": {"first_name", "firstname", "user.first_name", "user.firstName"},
	"author_last":  {"last_name", "lastname", "user.last_name", "user.lastName"},
	"text":         {"text", "review_text", "review", "comment", "content", "body", "message"},
	"reply":        {"reply", "answer", "owner_response", "ownerResponse.text", "business_reply.text"},
	"source_id":    {"id", "review_id", "reviewId"},
	"rating":       {"rating", "rate", "score", "stars", "rating.value", "scores.overall"},
	"published":    {"published_at", "publishedAt", "date", "created_at", "createdAt", "time"},
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns string at path or "".
func lookupStr(m map[string]any, path string) string {
	if v := lookupAny(m, path); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// firstNonEmptyAlias: first non-empty string for a named alias set.
func firstNonEmptyAlias(m map[string]any, aliases map[string][]string, key string) *string {
	for _, p := range aliases[key] {
		if s := strings.TrimSpace(lookupStr(m, p)); s != "" {
			return &s
		}
	}
	return nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func cloneStr(p *string) *string {
	if p == nil {
		return nil
	}
	s := *p
	return &s
}

func joinNonEmpty(parts ...string) string {
	var out []string
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return strings.Join(out, " ")
}

// getFloatFlexible: number from several paths (float64/int/string like "4,5").
func getFloatFlexible(m map[string]any, paths ...string) *float64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			f := v
			return &f
		case int:
			f := float64(v)
			return &f
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

// firstTimeFlexible: RFC3339/SQL timestamp strings or unix seconds.
func firstTimeFlexible(m map[string]any, paths ...string) *time.Time {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case string:
			if t, ok := parseTime(v); ok {
				return &t
			}
		case float64:
			if v > 0 {
				t := time.Unix(int64(v), 0).UTC()
				return &t
			}
		}
	}
	return nil
}

// normalizeRating folds 10-point scales onto 1..5; 0 means unusable.
func normalizeRating(f float64) int {
	if f > 5 && f <= 10 {
		f /= 2
	}
	r := int(math.Round(f))
	if r < 1 || r > 5 {
		return 0
	}
	return r
}

/********** platform payload mapper **********/

// mapPlatformReviews turns raw feed items into reviews for link's branch.
// Items without a usable rating are skipped.
func mapPlatformReviews(link domain.PlatformLink, in []map[string]any, now time.Time) []domain.Review {
	out := make([]domain.Review, 0, len(in))
	for _, r := range in {
		rv := domain.Review{
			CompanyID: link.CompanyID,
			BranchID:  link.BranchID,
			Platform:  link.Platform,
			Status:    domain.ReviewNew,
			CreatedAt: now,
		}

		f := getFloatFlexible(r, reviewAliases["rating"]...)
		if f == nil {
			continue
		}
		if rv.Rating = normalizeRating(*f); rv.Rating == 0 {
			continue
		}

		// Author → prefer single field; fallback to first + last.
		if s := firstNonEmptyAlias(r, reviewAliases, "author"); s != nil {
			rv.Author = s
		} else {
			first := firstNonEmptyAlias(r, reviewAliases, "author_first")
			last := firstNonEmptyAlias(r, reviewAliases, "author_last")
			if full := joinNonEmpty(deref(first), deref(last)); full != "" {
				rv.Author = &full
			}
		}

		if s := firstNonEmptyAlias(r, reviewAliases, "text"); s != nil {
			rv.Text = s
		}
		if s := firstNonEmptyAlias(r, reviewAliases, "reply"); s != nil {
			rv.Reply = s
			rv.Status = domain.ReviewAnswered
		}

		rv.PublishedAt = now
		if t := firstTimeFlexible(r, reviewAliases["published"]...); t != nil {
			rv.PublishedAt = t.UTC()
		}

		// ExternalID → prefer explicit; else synthesize stable hash.
		if s := firstNonEmptyAlias(r, reviewAliases, "source_id"); s != nil {
			rv.ExternalID = s
		} else if n := getFloatFlexible(r, "id", "review_id"); n != nil {
			id := strconv.FormatInt(int64(*n), 10)
			rv.ExternalID = &id
		} else {
			sig := strings.Join([]string{
				deref(rv.Author), deref(rv.Text), strconv.Itoa(rv.Rating),
				rv.PublishedAt.Format(time.RFC3339),
			}, "|")
			sum := sha1.Sum([]byte(sig))
			id := hex.EncodeToString(sum[:])
			rv.ExternalID = &id
		}

		if raw, err := json.Marshal(r); err == nil {
			rv.RawJSON = raw
		} else {
			log.Error().Err(err).Str("context", "mapPlatformReviews").Msg("marshal review failed")
		}

		out = append(out, rv)
	}
	return out
}
