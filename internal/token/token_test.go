package token

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/videotube-accounts/internal/config"
)

func testCfg() config.AuthConfig {
	return config.AuthConfig{
		AccessTokenSecret:  "unit-access-secret",
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenSecret: "unit-refresh-secret",
		RefreshTokenTTL:    240 * time.Hour,
		Issuer:             "accounts-service",
		Audience:           []string{"videotube"},
	}
}

// clock — управляемые часы для проверки истечения.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newManager(t *testing.T) (*Manager, *clock) {
	t.Helper()
	clk := &clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	return New(testCfg(), WithClock(clk.Now)), clk
}

func TestIssueAccess_AndVerify_OK(t *testing.T) {
	t.Parallel()

	m, clk := newManager(t)
	uid := uuid.New()

	tok, err := m.IssueAccess(uid)
	require.NoError(t, err)
	require.Equal(t, clk.Now().Add(15*time.Minute), tok.ExpiresAt)

	c, err := m.VerifyAccess(tok.Value)
	require.NoError(t, err)
	require.Equal(t, uid, c.UserID)
	require.NotEmpty(t, c.ID)
	require.Equal(t, clk.Now(), c.IssuedAt)
	require.Equal(t, tok.ExpiresAt, c.ExpiresAt)
}

func TestVerifyAccess_ValidUntilExpiry_InvalidAfter(t *testing.T) {
	t.Parallel()

	m, clk := newManager(t)

	tok, err := m.IssueAccess(uuid.New())
	require.NoError(t, err)

	clk.Advance(15*time.Minute - time.Second)
	_, err = m.VerifyAccess(tok.Value)
	require.NoError(t, err)

	// Момент истечения: допуска на часы нет.
	clk.Advance(time.Second)
	_, err = m.VerifyAccess(tok.Value)
	require.ErrorIs(t, err, ErrInvalidToken)
	require.ErrorIs(t, err, ErrExpired)

	clk.Advance(time.Second)
	_, err = m.VerifyAccess(tok.Value)
	require.ErrorIs(t, err, ErrInvalidToken)
	require.ErrorIs(t, err, ErrExpired)
}

func TestVerifyRefresh_ValidUntilExpiry_InvalidAfter(t *testing.T) {
	t.Parallel()

	m, clk := newManager(t)

	tok, err := m.IssueRefresh(uuid.New())
	require.NoError(t, err)
	require.Equal(t, clk.Now().Add(240*time.Hour), tok.ExpiresAt)

	clk.Advance(240*time.Hour - time.Second)
	_, err = m.VerifyRefresh(tok.Value)
	require.NoError(t, err)

	clk.Advance(2 * time.Second)
	_, err = m.VerifyRefresh(tok.Value)
	require.ErrorIs(t, err, ErrInvalidToken)
	require.ErrorIs(t, err, ErrExpired)
}

func TestIssueRefresh_LongerThanAccess(t *testing.T) {
	t.Parallel()

	m, clk := newManager(t)
	uid := uuid.New()

	p, err := m.IssuePair(uid)
	require.NoError(t, err)
	require.True(t, p.Refresh.ExpiresAt.After(p.Access.ExpiresAt))

	clk.Advance(time.Hour)
	_, err = m.VerifyAccess(p.Access.Value)
	require.ErrorIs(t, err, ErrExpired)

	c, err := m.VerifyRefresh(p.Refresh.Value)
	require.NoError(t, err)
	require.Equal(t, uid, c.UserID)
}

func TestDistinctSecrets_KindsAreNotInterchangeable(t *testing.T) {
	t.Parallel()

	m, _ := newManager(t)

	p, err := m.IssuePair(uuid.New())
	require.NoError(t, err)

	_, err = m.VerifyRefresh(p.Access.Value)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.VerifyAccess(p.Refresh.Value)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssue_SameSecond_TokensDiffer(t *testing.T) {
	t.Parallel()

	m, _ := newManager(t)
	uid := uuid.New()

	a, err := m.IssueRefresh(uid)
	require.NoError(t, err)
	b, err := m.IssueRefresh(uid)
	require.NoError(t, err)

	require.NotEqual(t, a.Value, b.Value)
	require.NotEqual(t, Digest(a.Value), Digest(b.Value))
}

func TestIssue_NilSubject(t *testing.T) {
	t.Parallel()

	m, _ := newManager(t)

	_, err := m.IssueAccess(uuid.Nil)
	require.Error(t, err)
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	m, _ := newManager(t)

	for _, raw := range []string{"", "garbage", "a.b.c", "Bearer x"} {
		_, err := m.VerifyAccess(raw)
		require.ErrorIs(t, err, ErrInvalidToken, raw)
		require.NotErrorIs(t, err, ErrExpired)

		_, err = m.VerifyRefresh(raw)
		require.ErrorIs(t, err, ErrInvalidToken, raw)
	}
}

func TestVerify_Tampered(t *testing.T) {
	t.Parallel()

	m, _ := newManager(t)

	tok, err := m.IssueAccess(uuid.New())
	require.NoError(t, err)

	parts := strings.Split(tok.Value, ".")
	require.Len(t, parts, 3)

	// Подмена payload при сохранении подписи.
	other, err := m.IssueAccess(uuid.New())
	require.NoError(t, err)
	otherParts := strings.Split(other.Value, ".")

	forged := parts[0] + "." + otherParts[1] + "." + parts[2]
	_, err = m.VerifyAccess(forged)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_WrongAlg_WrongIssuer_WrongAudience_BadSubject(t *testing.T) {
	t.Parallel()

	m, clk := newManager(t)
	cfg := testCfg()
	secret := []byte(cfg.AccessTokenSecret)
	now := clk.Now()

	base := func() jwt.MapClaims {
		return jwt.MapClaims{
			"sub": uuid.NewString(),
			"iss": cfg.Issuer,
			"aud": cfg.Audience,
			"iat": now.Unix(),
			"exp": now.Add(time.Minute).Unix(),
			"jti": uuid.NewString(),
		}
	}

	sign := func(t *testing.T, method jwt.SigningMethod, claims jwt.MapClaims) string {
		t.Helper()
		s, err := jwt.NewWithClaims(method, claims).SignedString(secret)
		require.NoError(t, err)
		return s
	}

	tcs := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{"control", func(t *testing.T) string { return sign(t, jwt.SigningMethodHS256, base()) }},
		{"wrong alg", func(t *testing.T) string { return sign(t, jwt.SigningMethodHS512, base()) }},
		{"alg none", func(t *testing.T) string {
			s, err := jwt.NewWithClaims(jwt.SigningMethodNone, base()).SignedString(jwt.UnsafeAllowNoneSignatureType)
			require.NoError(t, err)
			return s
		}},
		{"wrong issuer", func(t *testing.T) string {
			c := base()
			c["iss"] = "someone-else"
			return sign(t, jwt.SigningMethodHS256, c)
		}},
		{"wrong audience", func(t *testing.T) string {
			c := base()
			c["aud"] = []string{"other"}
			return sign(t, jwt.SigningMethodHS256, c)
		}},
		{"bad subject", func(t *testing.T) string {
			c := base()
			c["sub"] = "not-a-uuid"
			return sign(t, jwt.SigningMethodHS256, c)
		}},
		{"no exp", func(t *testing.T) string {
			c := base()
			delete(c, "exp")
			return sign(t, jwt.SigningMethodHS256, c)
		}},
		{"wrong secret", func(t *testing.T) string {
			s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, base()).SignedString([]byte("other"))
			require.NoError(t, err)
			return s
		}},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			_, err := m.VerifyAccess(tc.token(t))
			if tc.name == "control" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestDigest_StableAndOpaque(t *testing.T) {
	t.Parallel()

	d := Digest("some.refresh.token")
	require.Equal(t, d, Digest("some.refresh.token"))
	require.NotEqual(t, d, Digest("some.refresh.tokeN"))
	require.NotContains(t, d, "refresh")
	require.Len(t, d, 43)
}

func TestTTLs(t *testing.T) {
	t.Parallel()

	m, _ := newManager(t)
	require.Equal(t, 15*time.Minute, m.AccessTTL())
	require.Equal(t, 240*time.Hour, m.RefreshTTL())
}
