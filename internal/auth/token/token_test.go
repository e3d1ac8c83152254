package token

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/partnerdesk/internal/clock"
	"github.com/smallbiznis/partnerdesk/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testConfig() config.Config {
	return config.Config{
		AuthJWTSecret:   "test-secret",
		AuthJWTIssuer:   "partnerdesk",
		AuthJWTAudience: "partnerdesk-web",
		AuthTokenTTL:    time.Hour,
	}
}

func TestIssueAndVerify(t *testing.T) {
	clk := clock.NewFakeClock(time.Now())
	m, err := NewManager(testConfig(), clk, zaptest.NewLogger(t))
	require.NoError(t, err)

	raw, expiresAt, err := m.Issue(snowflake.ID(42), "ann@example.test")
	require.NoError(t, err)
	assert.Equal(t, clk.Now().Add(time.Hour), expiresAt)

	claims, err := m.Verify(raw)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(42), id)
	assert.Equal(t, "ann@example.test", claims.Email)
	assert.NotEmpty(t, claims.ID)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	clk := clock.NewFakeClock(time.Now())
	m, err := NewManager(testConfig(), clk, zaptest.NewLogger(t))
	require.NoError(t, err)

	raw, _, err := m.Issue(snowflake.ID(1), "")
	require.NoError(t, err)

	clk.Advance(2 * time.Hour)
	_, err = m.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsForeignTokens(t *testing.T) {
	clk := clock.NewFakeClock(time.Now())
	m, err := NewManager(testConfig(), clk, zaptest.NewLogger(t))
	require.NoError(t, err)

	otherCfg := testConfig()
	otherCfg.AuthJWTSecret = "another-secret"
	other, err := NewManager(otherCfg, clk, zaptest.NewLogger(t))
	require.NoError(t, err)
	raw, _, err := other.Issue(snowflake.ID(1), "")
	require.NoError(t, err)
	_, err = m.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	audCfg := testConfig()
	audCfg.AuthJWTAudience = "someone-else"
	wrongAud, err := NewManager(audCfg, clk, zaptest.NewLogger(t))
	require.NoError(t, err)
	raw, _, err = wrongAud.Issue(snowflake.ID(1), "")
	require.NoError(t, err)
	_, err = m.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Verify("")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = m.Verify("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewManagerRequiresSecretInProduction(t *testing.T) {
	cfg := testConfig()
	cfg.AuthJWTSecret = ""
	cfg.Environment = "production"
	_, err := NewManager(cfg, clock.SystemClock{}, zaptest.NewLogger(t))
	assert.ErrorIs(t, err, ErrMissingSecret)

	cfg.Environment = "development"
	m, err := NewManager(cfg, clock.SystemClock{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.NotNil(t, m)
}
