package mysql

// Note: `text` is reserved; keep it quoted everywhere.

const reviewColumns = "r.id, r.company_id, r.branch_id, r.platform, r.external_id, r.author, r.rating, r.`text`, r.reply, r.status, r.published_at, r.created_at"

const selectReviewsSQL = "SELECT " + reviewColumns + " FROM reviews r"

const countReviewsSQL = "SELECT COUNT(*) FROM reviews r"

const reviewStatsSQL = "SELECT r.platform, COUNT(*) AS count, SUM(r.rating) AS rating_sum FROM reviews r"

const insertReviewSQL = "INSERT INTO reviews\n" +
	"  (company_id, branch_id, platform, external_id, author, rating, `text`, reply, status, published_at, created_at, raw)\n" +
	"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"

const upsertReviewsPrefix = "INSERT INTO reviews\n" +
	"  (company_id, branch_id, platform, external_id, author, rating, `text`, reply, status, published_at, created_at, raw)\nVALUES "

// Status is owned by managers once a review exists; a feed never resets it.
// COALESCE keeps the old value if the new one is NULL.
const upsertReviewsOnDup = " ON DUPLICATE KEY UPDATE\n" +
	"  author       = COALESCE(VALUES(author), reviews.author),\n" +
	"  rating       = VALUES(rating),\n" +
	"  `text`       = COALESCE(VALUES(`text`), reviews.`text`),\n" +
	"  reply        = COALESCE(VALUES(reply), reviews.reply),\n" +
	"  published_at = VALUES(published_at),\n" +
	"  raw          = COALESCE(VALUES(raw), reviews.raw)\n"

const insertMissSQL = `
INSERT INTO ingest_misses (branch_id, platform, http_status, reason)
VALUES (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE http_status = VALUES(http_status), reason = VALUES(reason), seen_at = CURRENT_TIMESTAMP
`

const listPlatformLinksSQL = `
SELECT bp.branch_id, b.company_id, bp.platform, bp.external_id
FROM branch_platforms bp
JOIN branches b ON b.id = bp.branch_id
ORDER BY bp.branch_id, bp.platform
`

// -----------------------------------------------------------------------------
// COMPANIES / BRANCHES
// -----------------------------------------------------------------------------

const selectCompaniesSQL = "SELECT c.id, c.name, c.slug, c.created_at FROM companies c"

const countCompaniesSQL = "SELECT COUNT(*) FROM companies c"

const insertCompanySQL = "INSERT INTO companies (name, slug, created_at) VALUES (?, ?, ?)"

// Branch rows carry the joined city name and the review count aggregate.
const selectBranchesSQL = `
SELECT
  b.id,
  b.company_id,
  b.name,
  b.address,
  ci.name AS city_name,
  b.lat,
  b.lon,
  (SELECT COUNT(*) FROM reviews r WHERE r.branch_id = b.id) AS review_count,
  b.created_at
FROM branches b
LEFT JOIN cities ci ON ci.id = b.city_id`

const countBranchesSQL = "SELECT COUNT(*) FROM branches b"

const branchIDsSQL = "SELECT b.id FROM branches b"

const insertBranchSQL = `
INSERT INTO branches (company_id, city_id, name, address, lat, lon, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

const selectLocationsSQL = `
SELECT
  b.id         AS branch_id,
  b.company_id,
  b.name       AS branch_name,
  co.name      AS company_name,
  ci.name      AS city_name,
  b.address,
  b.lat,
  b.lon
FROM branches b
JOIN companies co ON co.id = b.company_id
JOIN cities ci ON ci.id = b.city_id`

// -----------------------------------------------------------------------------
// QR / USERS
// -----------------------------------------------------------------------------

const qrColumns = "q.id, q.company_id, q.branch_id, q.token, q.active, q.created_at, q.expires_at"

const insertQrSQL = `
INSERT INTO qr_credentials (company_id, branch_id, token, active, created_at, expires_at)
VALUES (?, ?, ?, ?, ?, ?)
`

const getQrByTokenSQL = "SELECT " + qrColumns + " FROM qr_credentials q WHERE q.token = ?"

const revokeQrSQL = "UPDATE qr_credentials SET active = 0 WHERE id = ?"

const userColumns = "u.id, u.email, u.full_name, u.password_hash, u.role, u.active, u.created_at"

const getUserByEmailSQL = "SELECT " + userColumns + " FROM users u WHERE u.email = ?"

const getUserSQL = "SELECT " + userColumns + " FROM users u WHERE u.id = ?"

const userCompaniesSQL = "SELECT company_id FROM user_companies WHERE user_id = ? ORDER BY company_id"

const insertRefreshTokenSQL = `
INSERT INTO refresh_tokens (user_id, token_hash, expires_at, revoked, user_agent, ip_address, created_at)
VALUES (?, ?, ?, 0, ?, ?, ?)
`

const refreshTokenColumns = "t.id, t.user_id, t.token_hash, t.expires_at, t.revoked, t.user_agent, t.ip_address, t.created_at"

const lockRefreshTokenSQL = "SELECT " + refreshTokenColumns + " FROM refresh_tokens t WHERE t.token_hash = ? FOR UPDATE"

const revokeRefreshTokenSQL = "UPDATE refresh_tokens SET revoked = 1 WHERE token_hash = ?"
