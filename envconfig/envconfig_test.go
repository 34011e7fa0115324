package envconfig

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	goVerify "github.com/MrEthical07/goVerify"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvironmentDefaults(t *testing.T) {
	s, err := FromEnvironment()
	require.NoError(t, err)

	def := goVerify.DefaultConfig()
	assert.Equal(t, def.Codes.TTL, s.Engine.Codes.TTL)
	assert.Equal(t, def.Codes.Length, s.Engine.Codes.Length)
	assert.Equal(t, def.Codes.Purposes, s.Engine.Codes.Purposes)
	assert.Equal(t, def.Token.Issuer, s.Engine.Token.Issuer)
	assert.Equal(t, def.Throttle.MaxLoginAttempts, s.Engine.Throttle.MaxLoginAttempts)

	assert.Equal(t, ":8080", s.Server.Addr)
	assert.Equal(t, []string{"*"}, s.Server.CORSOrigins)
	assert.Equal(t, "prometheus", s.Server.MetricsExporter)
	assert.Equal(t, 2160*time.Hour, s.Server.Dynamo.Retention)
}

func TestFromEnvironmentOverrides(t *testing.T) {
	keyFile := filepath.Join(t.TempDir(), "key")
	require.NoError(t, os.WriteFile(keyFile, []byte("0123456789abcdef0123456789abcdef"), 0o600))

	t.Setenv("GOVERIFY_CODE_TTL", "5m")
	t.Setenv("GOVERIFY_CODE_LENGTH", "8")
	t.Setenv("GOVERIFY_TOKEN_PRIVATE_KEY_FILE", keyFile)
	t.Setenv("GOVERIFY_LOGIN_MAX_ATTEMPTS", "3")
	t.Setenv("GOVERIFY_THROTTLE_ENABLED", "false")
	t.Setenv("GOVERIFY_DELIVERY_SYNC", "true")
	t.Setenv("GOVERIFY_ADDR", ":9090")
	t.Setenv("GOVERIFY_CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("GOVERIFY_SENDGRID_API_KEY", "SG.x")
	t.Setenv("GOVERIFY_DYNAMO_TABLE", "audit")

	s, err := FromEnvironment()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, s.Engine.Codes.TTL)
	assert.Equal(t, 8, s.Engine.Codes.Length)
	assert.Equal(t, []byte("0123456789abcdef0123456789abcdef"), s.Engine.Token.PrivateKey)
	assert.Equal(t, 3, s.Engine.Throttle.MaxLoginAttempts)
	assert.False(t, s.Engine.Throttle.Enabled)
	assert.True(t, s.Engine.Delivery.Synchronous)

	assert.Equal(t, ":9090", s.Server.Addr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, s.Server.CORSOrigins)
	assert.Equal(t, "SG.x", s.Server.SendGrid.APIKey)
	assert.Equal(t, "audit", s.Server.Dynamo.Table)
}

func TestFromEnvironmentInlineKeyWins(t *testing.T) {
	keyFile := filepath.Join(t.TempDir(), "key")
	require.NoError(t, os.WriteFile(keyFile, []byte("from-file"), 0o600))
	t.Setenv("GOVERIFY_TOKEN_PRIVATE_KEY", "inline")
	t.Setenv("GOVERIFY_TOKEN_PRIVATE_KEY_FILE", keyFile)

	s, err := FromEnvironment()
	require.NoError(t, err)
	assert.Equal(t, []byte("inline"), s.Engine.Token.PrivateKey)
}

func TestFromEnvironmentRejectsBadValue(t *testing.T) {
	t.Setenv("GOVERIFY_CODE_TTL", "soon")
	_, err := FromEnvironment()
	assert.Error(t, err)
}

func TestLoadWithoutDotEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := Load()
	require.NoError(t, err)
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("GOVERIFY_SITE_URL=https://im.example\n"), 0o600))
	t.Chdir(dir)
	t.Cleanup(func() { _ = os.Unsetenv("GOVERIFY_SITE_URL") })

	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://im.example", s.Server.SiteURL)
}

func TestInitLogger(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	logger := InitLogger("goverify")
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	var buf bytes.Buffer
	logger.SetOutput(&buf)
	logger.Info("started")
	assert.Contains(t, buf.String(), "[goverify] started")

	t.Setenv("LOG_LEVEL", "loud")
	assert.Equal(t, logrus.InfoLevel, InitLogger("x").GetLevel())
}
