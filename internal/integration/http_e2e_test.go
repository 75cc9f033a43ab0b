//go:build integration || !unit

package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	server "reviewhub/internal/adapters/http_server"
	"reviewhub/internal/adapters/memcache"
	"reviewhub/internal/app"
	"reviewhub/internal/domain"
	"reviewhub/internal/security"
	mysqlrepo "reviewhub/internal/storage/mysql"
	"reviewhub/internal/tenancy"
	migrations "reviewhub/migrations/mysql"
)

// ---------- helpers ----------
func pstr(s string) *string { return &s }

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("dockertest: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker not reachable: %v", err)
	}

	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=reviewhub",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "reviewhub")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := mysqlrepo.Migrate(context.Background(), db, migrations.FS); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type client struct {
	t     *testing.T
	base  string
	token string
}

func (c *client) do(method, path string, body any, out any) int {
	c.t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, c.base+path, rd)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer res.Body.Close()
	if out != nil && res.StatusCode < 300 {
		require.NoError(c.t, json.NewDecoder(res.Body).Decode(out))
	}
	return res.StatusCode
}

// ---------- the test ----------
func TestHTTP_E2E_TenantIsolation(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()

	// Seed two tenants, one manager per tenant.
	acme, err := repo.InsertCompany(ctx, domain.Company{Name: "Acme", Slug: "acme"})
	require.NoError(t, err)
	globex, err := repo.InsertCompany(ctx, domain.Company{Name: "Globex", Slug: "globex"})
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO cities (id, name) VALUES (1, 'Almaty')")
	require.NoError(t, err)
	one := int64(1)
	b1, err := repo.InsertBranch(ctx, domain.Branch{CompanyID: acme.ID, Name: "Center", CityID: &one})
	require.NoError(t, err)
	b2, err := repo.InsertBranch(ctx, domain.Branch{CompanyID: globex.ID, Name: "Remote", CityID: &one})
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.UpsertReviews(ctx, []domain.Review{
		{CompanyID: acme.ID, BranchID: b1.ID, Platform: domain.PlatformGoogle, ExternalID: pstr("g1"), Rating: 5, Status: domain.ReviewNew, PublishedAt: now, CreatedAt: now},
		{CompanyID: acme.ID, BranchID: b1.ID, Platform: domain.PlatformYandex, ExternalID: pstr("y1"), Rating: 2, Status: domain.ReviewNew, PublishedAt: now, CreatedAt: now},
		{CompanyID: globex.ID, BranchID: b2.ID, Platform: domain.PlatformGoogle, ExternalID: pstr("g2"), Rating: 3, Status: domain.ReviewNew, PublishedAt: now, CreatedAt: now},
	}))

	hash, err := security.HashPassword("s3cret-pass", bcrypt.MinCost)
	require.NoError(t, err)
	res, err := db.Exec("INSERT INTO users (email, password_hash, role) VALUES ('manager@acme.test', ?, 'manager')", hash)
	require.NoError(t, err)
	uid, err := res.LastInsertId()
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO user_companies (user_id, company_id) VALUES (?, ?)", uid, acme.ID)
	require.NoError(t, err)

	// Wire the real stack.
	engine := tenancy.NewEngine(tenancy.DefaultPolicy())
	tokens, err := security.NewTokens("0123456789abcdef0123456789abcdef", "e2e", time.Hour)
	require.NoError(t, err)
	srv := server.New()
	srv.MountHandlers(&server.Handlers{
		Auth:      app.NewAuthService(repo, repo, engine, tokens, time.Hour),
		Reviews:   app.NewReviewService(repo, repo, engine),
		Companies: app.NewCompanyService(repo, engine),
		Branches:  app.NewBranchService(repo, engine),
		Qr:        app.NewQrService(repo, repo, repo, engine, memcache.New(time.Minute), time.Minute),
		Tokens:    tokens,
	})
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()

	c := &client{t: t, base: ts.URL}

	// Login
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodPost, "/v1/auth/login", map[string]string{"email": "manager@acme.test", "password": "wrong"}, nil))
	var tok struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/v1/auth/login", map[string]string{"email": " Manager@Acme.test ", "password": "s3cret-pass"}, &tok))
	require.NotEmpty(t, tok.RefreshToken)

	// Refresh rotates: the old refresh token stops working.
	used := tok.RefreshToken
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/v1/auth/refresh", map[string]string{"refresh_token": used}, &tok))
	assert.NotEqual(t, used, tok.RefreshToken)
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodPost, "/v1/auth/refresh", map[string]string{"refresh_token": used}, nil))
	c.token = tok.AccessToken

	var me struct {
		Role            string  `json:"role"`
		RoleDescription string  `json:"role_description"`
		CompanyIDs      []int64 `json:"company_ids"`
	}
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/v1/me", nil, &me))
	assert.Equal(t, "manager", me.Role)
	assert.Equal(t, "Company manager", me.RoleDescription)
	assert.Equal(t, []int64{acme.ID}, me.CompanyIDs)

	// Reviews are scoped to Acme.
	var list struct {
		Items []struct {
			ID        int64 `json:"id"`
			CompanyID int64 `json:"company_id"`
		} `json:"items"`
		Total int `json:"total"`
	}
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/v1/reviews", nil, &list))
	assert.Equal(t, 2, list.Total)
	for _, it := range list.Items {
		assert.Equal(t, acme.ID, it.CompanyID)
	}

	assert.Equal(t, http.StatusForbidden, c.do(http.MethodGet, fmt.Sprintf("/v1/reviews?company_id=%d", globex.ID), nil, nil))
	assert.Equal(t, http.StatusForbidden, c.do(http.MethodGet, fmt.Sprintf("/v1/reviews?branch_id=%d", b2.ID), nil, nil))
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, fmt.Sprintf("/v1/reviews?branch_id=%d,%d", b1.ID, b2.ID), nil, &list))
	assert.Equal(t, 2, list.Total)

	var globexReviewID int64
	require.NoError(t, db.QueryRow("SELECT id FROM reviews WHERE company_id = ?", globex.ID).Scan(&globexReviewID))
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, fmt.Sprintf("/v1/reviews/%d", globexReviewID), nil, nil))
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodPatch, fmt.Sprintf("/v1/reviews/%d", globexReviewID), map[string]string{"status": "hidden"}, nil))

	// Reply to an own review.
	var updated struct {
		Status string  `json:"status"`
		Reply  *string `json:"reply"`
	}
	require.Equal(t, http.StatusOK, c.do(http.MethodPatch, fmt.Sprintf("/v1/reviews/%d", list.Items[0].ID), map[string]string{"reply": "Thank you!"}, &updated))
	assert.Equal(t, "answered", updated.Status)

	var stats struct {
		Total         int    `json:"total"`
		AverageRating string `json:"average_rating"`
	}
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/v1/reviews/stats", nil, &stats))
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, "3.50", stats.AverageRating)

	// QR round trip: issue, resolve, submit, revoke.
	var cred struct {
		ID    int64  `json:"id"`
		Token string `json:"token"`
	}
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, fmt.Sprintf("/v1/branches/%d/qr", b1.ID), nil, &cred))
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodPost, fmt.Sprintf("/v1/branches/%d/qr", b2.ID), nil, nil))

	anon := &client{t: t, base: ts.URL}
	var loc struct {
		BranchID int64  `json:"branch_id"`
		CityName string `json:"city_name"`
	}
	require.Equal(t, http.StatusOK, anon.do(http.MethodGet, "/public/qr/"+cred.Token, nil, &loc))
	assert.Equal(t, b1.ID, loc.BranchID)
	assert.Equal(t, "Almaty", loc.CityName)
	assert.Equal(t, http.StatusCreated, anon.do(http.MethodPost, "/public/qr/"+cred.Token+"/reviews", map[string]any{"rating": 4, "text": "nice"}, nil))

	require.Equal(t, http.StatusOK, c.do(http.MethodDelete, fmt.Sprintf("/v1/qr/%d", cred.ID), nil, nil))
	assert.Equal(t, http.StatusNotFound, anon.do(http.MethodGet, "/public/qr/"+cred.Token, nil, nil))
}
