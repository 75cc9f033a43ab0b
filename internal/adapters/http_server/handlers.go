package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"reviewhub/internal/apperr"
	"reviewhub/internal/dto"
	"reviewhub/internal/tenancy"
)

// maxQrTTLSeconds is one year.
const maxQrTTLSeconds = 365 * 24 * 60 * 60

type ReviewAPI interface {
	ListReviews(ctx context.Context, tc tenancy.TenantContext, f dto.ReviewFilter) (dto.ReviewListDTO, error)
	GetReview(ctx context.Context, tc tenancy.TenantContext, id int64) (dto.ReviewDTO, error)
	UpdateReview(ctx context.Context, tc tenancy.TenantContext, id int64, in dto.ReviewUpdate) (dto.ReviewDTO, error)
	Stats(ctx context.Context, tc tenancy.TenantContext, f dto.ReviewFilter) (dto.ReviewStatsDTO, error)
}

type CompanyAPI interface {
	ListCompanies(ctx context.Context, tc tenancy.TenantContext, f dto.ScopeFilter) (dto.CompanyListDTO, error)
	CreateCompany(ctx context.Context, tc tenancy.TenantContext, in dto.CompanyInput) (dto.CompanyDTO, error)
}

type BranchAPI interface {
	ListBranches(ctx context.Context, tc tenancy.TenantContext, f dto.ScopeFilter) (dto.BranchListDTO, error)
	CreateBranch(ctx context.Context, tc tenancy.TenantContext, in dto.BranchInput) (dto.BranchDTO, error)
	ListLocations(ctx context.Context, tc tenancy.TenantContext, f dto.ScopeFilter, from *dto.Coords) ([]dto.QrLocationDTO, error)
}

type QrAPI interface {
	Issue(ctx context.Context, tc tenancy.TenantContext, branchID int64, ttl *time.Duration) (dto.QrCredentialDTO, error)
	Revoke(ctx context.Context, tc tenancy.TenantContext, id int64) (dto.QrCredentialDTO, error)
	Resolve(ctx context.Context, token string) (dto.QrLocationDTO, error)
	Submit(ctx context.Context, token string, in dto.QrReviewInput) (dto.ReviewDTO, error)
}

type AuthAPI interface {
	Login(ctx context.Context, in dto.LoginInput) (dto.TokenDTO, error)
	Refresh(ctx context.Context, in dto.RefreshInput) (dto.TokenDTO, error)
	Logout(ctx context.Context, in dto.RefreshInput) error
	Me(ctx context.Context, tc tenancy.TenantContext) (dto.UserDTO, error)
}

type Handlers struct {
	Auth      AuthAPI
	Reviews   ReviewAPI
	Companies CompanyAPI
	Branches  BranchAPI
	Qr        QrAPI

	Tokens    TokenVerifier
	QrLimiter *KeyedLimiter // nil disables the public submit limit
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Post("/v1/auth/login", h.login)
	s.mux.Post("/v1/auth/refresh", h.refresh)
	s.mux.Post("/v1/auth/logout", h.logout)

	s.mux.Group(func(r chi.Router) {
		r.Use(Authenticate(h.Tokens))

		r.Get("/v1/me", h.me)

		r.Get("/v1/reviews", h.listReviews)
		r.Get("/v1/reviews/stats", h.reviewStats)
		r.Get("/v1/reviews/{id}", h.getReview)
		r.Patch("/v1/reviews/{id}", h.updateReview)

		r.Get("/v1/companies", h.listCompanies)
		r.Post("/v1/companies", h.createCompany)

		r.Get("/v1/branches", h.listBranches)
		r.Post("/v1/branches", h.createBranch)
		r.Post("/v1/branches/{id}/qr", h.issueQr)

		r.Get("/v1/qr/locations", h.listLocations)
		r.Delete("/v1/qr/{id}", h.revokeQr)
	})

	s.mux.Get("/public/qr/{token}", h.resolveQr)
	s.mux.With(RateLimit(h.QrLimiter, "token")).Post("/public/qr/{token}/reviews", h.submitQr)
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeJSON sends v. GET responses carry a weak ETag and honor If-None-Match.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "internal", "internal error", "")
		return
	}
	if r.Method == http.MethodGet && etag != "" {
		w.Header().Set("ETag", etag)
		w.Header().Set("Cache-Control", "private, no-cache")
		if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("route", routeOf(r)).Msg("failed to write body")
	}
}

// tenant is set by Authenticate; its absence is a routing bug, not a client error.
func tenant(r *http.Request) (tenancy.TenantContext, error) {
	tc, ok := tenancy.FromContext(r.Context())
	if !ok {
		return tenancy.TenantContext{}, apperr.Unauthenticated("missing tenant context")
	}
	return tc, nil
}

// ---- auth ----

func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tok, err := h.Auth.Login(r.Context(), dto.LoginInput{Email: req.Email, Password: req.Password, Client: client(r)})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, r, http.StatusOK, toToken(tok))
}

func (h *Handlers) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tok, err := h.Auth.Refresh(r.Context(), dto.RefreshInput{RefreshToken: req.RefreshToken, Client: client(r)})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, r, http.StatusOK, toToken(tok))
}

func (h *Handlers) logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Auth.Logout(r.Context(), dto.RefreshInput{RefreshToken: req.RefreshToken}); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func client(r *http.Request) dto.Client {
	return dto.Client{UserAgent: r.UserAgent(), IP: remoteIP(r)}
}

func (h *Handlers) me(w http.ResponseWriter, r *http.Request) {
	tc, err := tenant(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.Auth.Me(r.Context(), tc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toUser(u))
}

// ---- reviews ----

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	tc, err := tenant(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	f, err := reviewFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Reviews.ListReviews(r.Context(), tc, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toReviewList(out))
}

func (h *Handlers) reviewStats(w http.ResponseWriter, r *http.Request) {
	tc, err := tenant(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	f, err := reviewFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Reviews.Stats(r.Context(), tc, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toStats(out))
}

func (h *Handlers) getReview(w http.ResponseWriter, r *http.Request) {
	tc, err := tenant(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Reviews.GetReview(r.Context(), tc, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toReview(out))
}

func (h *Handlers) updateReview(w http.ResponseWriter, r *http.Request) {
	tc, err := tenant(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req reviewPatchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Reviews.UpdateReview(r.Context(), tc, id, dto.ReviewUpdate{Status: req.Status, Reply: req.Reply})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toReview(out))
}

// ---- companies & branches ----

func (h *Handlers) listCompanies(w http.ResponseWriter, r *http.Request) {
	tc, err := tenant(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	f, err := scopeFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Companies.ListCompanies(r.Context(), tc, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toCompanyList(out))
}

func (h *Handlers) createCompany(w http.ResponseWriter, r *http.Request) {
	tc, err := tenant(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req companyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Companies.CreateCompany(r.Context(), tc, dto.CompanyInput{Name: req.Name, Slug: req.Slug})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toCompany(out))
}

func (h *Handlers) listBranches(w http.ResponseWriter, r *http.Request) {
	tc, err := tenant(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	f, err := scopeFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Branches.ListBranches(r.Context(), tc, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toBranchList(out))
}

func (h *Handlers) createBranch(w http.ResponseWriter, r *http.Request) {
	tc, err := tenant(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req branchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Branches.CreateBranch(r.Context(), tc, dto.BranchInput{
		CompanyID: req.CompanyID, Name: req.Name, Address: req.Address,
		CityID: req.CityID, Lat: req.Lat, Lon: req.Lon,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toBranch(out))
}

func (h *Handlers) listLocations(w http.ResponseWriter, r *http.Request) {
	tc, err := tenant(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	f, err := scopeFilter(q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	from, err := coords(q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Branches.ListLocations(r.Context(), tc, f, from)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items := make([]qrLocationResponse, 0, len(out))
	for _, l := range out {
		items = append(items, toQrLocation(l))
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"items": items})
}

// ---- QR ----

func (h *Handlers) issueQr(w http.ResponseWriter, r *http.Request) {
	tc, err := tenant(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	branchID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req qrIssueRequest
	if r.ContentLength != 0 {
		if err := decodeBody(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	var ttl *time.Duration
	if req.TTLSeconds != nil {
		if *req.TTLSeconds <= 0 || *req.TTLSeconds > maxQrTTLSeconds {
			writeError(w, r, apperr.Validation("ttl_seconds", "must be between 1 and 31536000"))
			return
		}
		d := time.Duration(*req.TTLSeconds) * time.Second
		ttl = &d
	}
	out, err := h.Qr.Issue(r.Context(), tc, branchID, ttl)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toQrCredential(out))
}

func (h *Handlers) revokeQr(w http.ResponseWriter, r *http.Request) {
	tc, err := tenant(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Qr.Revoke(r.Context(), tc, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toQrCredential(out))
}

func (h *Handlers) resolveQr(w http.ResponseWriter, r *http.Request) {
	out, err := h.Qr.Resolve(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toQrLocation(out))
}

func (h *Handlers) submitQr(w http.ResponseWriter, r *http.Request) {
	var req qrReviewRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Qr.Submit(r.Context(), chi.URLParam(r, "token"), dto.QrReviewInput{Author: req.Author, Rating: req.Rating, Text: req.Text})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toQrReceipt(out))
}

// Public submitters get an acknowledgement, not the stored record.
func toQrReceipt(d dto.ReviewDTO) map[string]any {
	return map[string]any{"id": d.ID, "status": d.Status, "created_at": d.CreatedAt}
}
