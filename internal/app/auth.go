package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"reviewhub/internal/apperr"
	"reviewhub/internal/domain"
	"reviewhub/internal/dto"
	"reviewhub/internal/security"
	"reviewhub/internal/tenancy"
)

const tokenType = "Bearer"

const (
	maxUserAgentRunes = 255
	maxIPRunes        = 64
)

type AuthService struct {
	users      UserRepository
	refresh    RefreshTokenRepository
	engine     *tenancy.Engine
	tokens     TokenIssuer
	refreshTTL time.Duration
	now        func() time.Time
}

func NewAuthService(u UserRepository, rt RefreshTokenRepository, e *tenancy.Engine, t TokenIssuer, refreshTTL time.Duration) *AuthService {
	return &AuthService{users: u, refresh: rt, engine: e, tokens: t, refreshTTL: refreshTTL, now: time.Now}
}

// Login checks the credentials and mints a token carrying the user's role and
// company memberships. Every failure reads "invalid credentials".
func (s *AuthService) Login(ctx context.Context, in dto.LoginInput) (dto.TokenDTO, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return dto.TokenDTO{}, apperr.Validation("email", "must be an email address")
	}
	if in.Password == "" {
		return dto.TokenDTO{}, apperr.Validation("password", "must not be empty")
	}

	u, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return dto.TokenDTO{}, apperr.Unauthenticated("invalid credentials")
	}
	if err != nil {
		return dto.TokenDTO{}, translate("auth.login", "user", err)
	}
	if !u.Active || !security.CheckPassword(u.PasswordHash, in.Password) {
		return dto.TokenDTO{}, apperr.Unauthenticated("invalid credentials")
	}
	if !s.engine.Policy().Known(tenancy.Role(u.Role)) {
		log.Warn().Int64("user_id", u.ID).Str("role", u.Role).Msg("login with role missing from policy")
	}

	return s.issue(ctx, "auth.login", u, in.Client)
}

// Refresh trades a live refresh token for a new token pair. The presented
// token is revoked, so each refresh token works once.
func (s *AuthService) Refresh(ctx context.Context, in dto.RefreshInput) (dto.TokenDTO, error) {
	raw := strings.TrimSpace(in.RefreshToken)
	if raw == "" {
		return dto.TokenDTO{}, apperr.Validation("refresh_token", "must not be empty")
	}
	rt, err := s.refresh.ConsumeRefreshToken(ctx, security.HashRefreshToken(raw), s.now().UTC())
	if errors.Is(err, domain.ErrNotFound) {
		return dto.TokenDTO{}, apperr.Unauthenticated("invalid refresh token")
	}
	if err != nil {
		return dto.TokenDTO{}, translate("auth.refresh", "refresh token", err)
	}

	u, err := s.users.GetUser(ctx, rt.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return dto.TokenDTO{}, apperr.Unauthenticated("invalid refresh token")
	}
	if err != nil {
		return dto.TokenDTO{}, translate("auth.refresh", "user", err)
	}
	if !u.Active {
		log.Warn().Int64("user_id", u.ID).Msg("refresh for disabled user")
		return dto.TokenDTO{}, apperr.Unauthenticated("invalid refresh token")
	}
	return s.issue(ctx, "auth.refresh", u, in.Client)
}

// Logout revokes a refresh token. Unknown tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, in dto.RefreshInput) error {
	raw := strings.TrimSpace(in.RefreshToken)
	if raw == "" {
		return apperr.Validation("refresh_token", "must not be empty")
	}
	return translate("auth.logout", "refresh token", s.refresh.RevokeRefreshToken(ctx, security.HashRefreshToken(raw)))
}

func (s *AuthService) issue(ctx context.Context, op string, u domain.User, c dto.Client) (dto.TokenDTO, error) {
	tok, exp, err := s.tokens.Mint(u.ID, u.Role, u.CompanyIDs)
	if err != nil {
		return dto.TokenDTO{}, translate(op, "token", err)
	}
	raw, hash, err := security.NewRefreshToken()
	if err != nil {
		return dto.TokenDTO{}, translate(op, "refresh token", err)
	}
	rt, err := s.refresh.InsertRefreshToken(ctx, domain.RefreshToken{
		UserID:    u.ID,
		TokenHash: hash,
		ExpiresAt: s.now().UTC().Add(s.refreshTTL).Truncate(time.Second),
		UserAgent: clip(c.UserAgent, maxUserAgentRunes),
		IPAddress: clip(c.IP, maxIPRunes),
	})
	if err != nil {
		return dto.TokenDTO{}, translate(op, "refresh token", err)
	}
	return dto.TokenDTO{
		AccessToken:      tok,
		TokenType:        tokenType,
		ExpiresAt:        canonicalTime(exp),
		RefreshToken:     raw,
		RefreshExpiresAt: canonicalTime(rt.ExpiresAt),
	}, nil
}

// clip trims v to at most n runes; empty becomes nil.
func clip(v string, n int) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	if r := []rune(v); len(r) > n {
		v = string(r[:n])
	}
	return &v
}

// Me returns the caller's own profile with the role description from the
// active policy.
func (s *AuthService) Me(ctx context.Context, tc tenancy.TenantContext) (dto.UserDTO, error) {
	if tc.IsZero() {
		return dto.UserDTO{}, apperr.Unauthenticated("missing tenant context")
	}
	u, err := s.users.GetUser(ctx, tc.UserID())
	if errors.Is(err, domain.ErrNotFound) {
		return dto.UserDTO{}, apperr.Unauthenticated("user no longer exists")
	}
	if err != nil {
		return dto.UserDTO{}, translate("auth.me", "user", err)
	}
	if !u.Active {
		return dto.UserDTO{}, apperr.Unauthenticated("user is disabled")
	}
	d, err := userToDTO(u, s.engine.Policy().Describe(tenancy.Role(u.Role)))
	return d, translate("auth.me", "user", err)
}
