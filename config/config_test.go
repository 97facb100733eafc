package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
app:
  name: tiktok-link
  environment: staging
  port: "9090"
oauth:
  tiktok:
    client_key: file-key
    client_secret: file-secret
    redirect_uri: https://link.example.com/callback
link:
  secure_key: shared
  success_url: https://app.example.com/dashboard
session:
  secret: session-secret
  ttl: 5m
database:
  type: sqlite
  path: /tmp/link.db
cron:
  enabled: true
  schedules:
    video_resync: "0 0 */6 * * *"
features:
  cron_enabled: true
environments:
  staging:
    app:
      port: "7070"
    logging:
      level: debug
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app_config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "ENVIRONMENT", "TIKTOK_CLIENT_KEY", "TIKTOK_CLIENT_SECRET", "TIKTOK_REDIRECT_URI",
		"SECURE_KEY", "SUCCESS_URL", "SESSION_SECRET", "DATABASE_TYPE", "DATABASE_PATH",
		"FIREBASE_PROJECT_ID", "GOOGLE_APPLICATION_CREDENTIALS", "ADMIN_TOKEN", "SESSION_TTL", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadConfig(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.App.Port, "environment block overrides the port")
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, 5*time.Minute, cfg.Session.TTL)
	assert.Equal(t, "tiktok_link_session", cfg.Session.CookieName)
	assert.Equal(t, map[string]string{"force_login": "1"}, cfg.OAuth.TikTok.AuthorizationParams)
	assert.Equal(t, "https://open.tiktokapis.com/v2/oauth/token/", cfg.OAuth.TikTok.TokenURL)

	schedule, ok := cfg.GetCronSchedule("video_resync")
	assert.True(t, ok)
	assert.Equal(t, "0 0 */6 * * *", schedule)
	assert.True(t, cfg.IsFeatureEnabled("cron"))
	assert.False(t, cfg.IsFeatureEnabled("metrics"))
}

func TestLoadConfigEnvironmentVariablesWin(t *testing.T) {
	clearEnv(t)
	t.Setenv("TIKTOK_CLIENT_KEY", "env-key")
	t.Setenv("SECURE_KEY", "env-shared")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := LoadConfig(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.OAuth.TikTok.ClientKey)
	assert.Equal(t, "env-shared", cfg.Link.SecureKey)
	assert.Equal(t, "9090", cfg.App.Port, "staging block no longer applies")
	assert.True(t, cfg.IsProduction())
}

func TestLoadConfigWithoutFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("TIKTOK_CLIENT_KEY", "k")
	t.Setenv("TIKTOK_CLIENT_SECRET", "s")
	t.Setenv("TIKTOK_REDIRECT_URI", "https://link.example.com/callback")
	t.Setenv("SECURE_KEY", "shared")
	t.Setenv("SUCCESS_URL", "https://app.example.com")
	t.Setenv("SESSION_SECRET", "secret")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "firestore", cfg.Database.Type)
	assert.Equal(t, "8080", cfg.App.Port)
}

func TestLoadConfigSessionTTLFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("SESSION_TTL", "90s")
	cfg, err := LoadConfig(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.Session.TTL)

	t.Setenv("SESSION_TTL", "soon")
	_, err = LoadConfig(writeConfig(t, sampleYAML))
	require.Error(t, err)
}

func TestValidateReportsMissingSettings(t *testing.T) {
	clearEnv(t)
	_, err := LoadConfig(writeConfig(t, "app:\n  name: x\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oauth.tiktok.client_key")
	assert.Contains(t, err.Error(), "link.secure_key")
	assert.Contains(t, err.Error(), "session.secret")
}

func TestValidateRejectsUnknownDatabase(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_TYPE", "mongo")
	_, err := LoadConfig(writeConfig(t, sampleYAML))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mongo")
}

func TestLoadResyncConfigOnlyNeedsStore(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "database:\n  type: sqlite\n  path: jobs.db\n")

	_, err := LoadConfig(path)
	require.Error(t, err)

	cfg, err := LoadResyncConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "https://open.tiktokapis.com/v2/video/list/", cfg.OAuth.TikTok.VideoListURL)

	t.Setenv("DATABASE_TYPE", "mongo")
	_, err = LoadResyncConfig(path)
	require.Error(t, err)
}

func TestTikTokOAuth2Config(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadConfig(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	oc := cfg.TikTokOAuth2Config()
	assert.Equal(t, "file-key", oc.ClientID)
	assert.Equal(t, "https://www.tiktok.com/v2/auth/authorize/", oc.Endpoint.AuthURL)
	assert.Equal(t, "https://link.example.com/callback", oc.RedirectURL)
}

func TestMaskString(t *testing.T) {
	assert.Equal(t, "***", MaskString("abc"))
	assert.Equal(t, "abcd****", MaskString("abcdefgh"))
}
