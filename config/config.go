package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when LoadConfig is called with an empty path.
const DefaultPath = "config/app_config.yaml"

// AppConfig is the whole application configuration.
type AppConfig struct {
	App          AppSettings          `yaml:"app"`
	Database     DatabaseConfig       `yaml:"database"`
	Firebase     FirebaseConfig       `yaml:"firebase"`
	OAuth        OAuthConfig          `yaml:"oauth"`
	Link         LinkConfig           `yaml:"link"`
	Session      SessionConfig        `yaml:"session"`
	CORS         CORSConfig           `yaml:"cors"`
	Cron         CronConfig           `yaml:"cron"`
	Logging      LoggingConfig        `yaml:"logging"`
	Features     FeatureFlags         `yaml:"features"`
	Admin        AdminConfig          `yaml:"admin"`
	Environments map[string]AppConfig `yaml:"environments"`
}

type AppSettings struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
	Port        string `yaml:"port"`
	Debug       bool   `yaml:"debug"`
}

// DatabaseConfig selects the document store backend.
type DatabaseConfig struct {
	Type string `yaml:"type"` // firestore | sqlite
	Path string `yaml:"path"`
}

type FirebaseConfig struct {
	ProjectID       string `yaml:"project_id"`
	CredentialsPath string `yaml:"credentials_path"`
}

type OAuthConfig struct {
	TikTok TikTokProvider `yaml:"tiktok"`
}

// TikTokProvider holds the client credentials and endpoints of the TikTok app.
type TikTokProvider struct {
	ClientKey           string            `yaml:"client_key"`
	ClientSecret        string            `yaml:"client_secret"`
	RedirectURI         string            `yaml:"redirect_uri"`
	AuthURL             string            `yaml:"auth_url"`
	TokenURL            string            `yaml:"token_url"`
	UserInfoURL         string            `yaml:"user_info_url"`
	VideoListURL        string            `yaml:"video_list_url"`
	AuthorizationParams map[string]string `yaml:"authorization_params"`
}

// LinkConfig covers the pre-shared key checked by the initiator and the page
// the browser lands on after a successful link.
type LinkConfig struct {
	SecureKey  string `yaml:"secure_key"`
	SuccessURL string `yaml:"success_url"`
}

type SessionConfig struct {
	Secret     string        `yaml:"secret"`
	CookieName string        `yaml:"cookie_name"`
	TTL        time.Duration `yaml:"ttl"`
	Secure     bool          `yaml:"secure"`
}

type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowedMethods   []string `yaml:"allowed_methods"`
	AllowedHeaders   []string `yaml:"allowed_headers"`
	ExposeHeaders    []string `yaml:"expose_headers"`
	AllowCredentials bool     `yaml:"allow_credentials"`
}

type CronConfig struct {
	Enabled   bool              `yaml:"enabled"`
	Schedules map[string]string `yaml:"schedules"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AdminConfig guards the operator endpoints. An empty token disables them.
type AdminConfig struct {
	Token string `yaml:"token"`
}

type FeatureFlags struct {
	CronEnabled    bool `yaml:"cron_enabled"`
	MetricsEnabled bool `yaml:"metrics_enabled"`
}

// LoadConfig reads the configuration for the web service and checks every
// setting the link flow needs.
//
// A .env file in the working directory is applied to the process environment
// first, then the YAML file, the per-environment block and finally the
// remaining environment variables. A missing YAML file is tolerated so the
// service can run from environment variables alone.
func LoadConfig(configPath string) (*AppConfig, error) {
	cfg, err := load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadResyncConfig reads the configuration like LoadConfig but only checks
// what the standalone video resync needs: the store.
func LoadResyncConfig(configPath string) (*AppConfig, error) {
	cfg, err := load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateStore(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load(configPath string) (*AppConfig, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	if configPath == "" {
		configPath = DefaultPath
	}

	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	cfg := &AppConfig{}
	data, err := os.ReadFile(absPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse yaml %s: %w", absPath, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config %s: %w", absPath, err)
	}

	// the environment name picks the override block, so it is read first
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		cfg.App.Environment = env
	}
	cfg.applyEnvironmentOverrides()
	if err := cfg.applyEnvironmentVariables(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// applyEnvironmentOverrides merges the block for the current environment.
func (c *AppConfig) applyEnvironmentOverrides() {
	envConfig, exists := c.Environments[c.App.Environment]
	if !exists {
		return
	}
	if envConfig.App.Debug {
		c.App.Debug = true
	}
	if envConfig.App.Port != "" {
		c.App.Port = envConfig.App.Port
	}
	if envConfig.Logging.Level != "" {
		c.Logging.Level = envConfig.Logging.Level
	}
	if envConfig.Logging.Format != "" {
		c.Logging.Format = envConfig.Logging.Format
	}
	if len(envConfig.CORS.AllowedOrigins) > 0 {
		c.CORS.AllowedOrigins = envConfig.CORS.AllowedOrigins
	}
	if envConfig.Link.SuccessURL != "" {
		c.Link.SuccessURL = envConfig.Link.SuccessURL
	}
	if envConfig.OAuth.TikTok.RedirectURI != "" {
		c.OAuth.TikTok.RedirectURI = envConfig.OAuth.TikTok.RedirectURI
	}
	if envConfig.Session.Secure {
		c.Session.Secure = true
	}
}

// envOverrides lists the environment variables that override the file.
type envOverrides struct {
	Port               string        `env:"PORT"`
	Environment        string        `env:"ENVIRONMENT"`
	TikTokClientKey    string        `env:"TIKTOK_CLIENT_KEY"`
	TikTokClientSecret string        `env:"TIKTOK_CLIENT_SECRET"`
	TikTokRedirectURI  string        `env:"TIKTOK_REDIRECT_URI"`
	SecureKey          string        `env:"SECURE_KEY"`
	SuccessURL         string        `env:"SUCCESS_URL"`
	SessionSecret      string        `env:"SESSION_SECRET"`
	SessionTTL         time.Duration `env:"SESSION_TTL"`
	DatabaseType       string        `env:"DATABASE_TYPE"`
	DatabasePath       string        `env:"DATABASE_PATH"`
	FirebaseProjectID  string        `env:"FIREBASE_PROJECT_ID"`
	CredentialsPath    string        `env:"GOOGLE_APPLICATION_CREDENTIALS"`
	AdminToken         string        `env:"ADMIN_TOKEN"`
	LogLevel           string        `env:"LOG_LEVEL"`
}

// applyEnvironmentVariables applies the non-empty variables in envOverrides.
func (c *AppConfig) applyEnvironmentVariables() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	set := func(target *string, v string) {
		if v != "" {
			*target = v
		}
	}
	set(&c.App.Port, o.Port)
	set(&c.App.Environment, o.Environment)
	set(&c.OAuth.TikTok.ClientKey, o.TikTokClientKey)
	set(&c.OAuth.TikTok.ClientSecret, o.TikTokClientSecret)
	set(&c.OAuth.TikTok.RedirectURI, o.TikTokRedirectURI)
	set(&c.Link.SecureKey, o.SecureKey)
	set(&c.Link.SuccessURL, o.SuccessURL)
	set(&c.Session.Secret, o.SessionSecret)
	set(&c.Database.Type, o.DatabaseType)
	set(&c.Database.Path, o.DatabasePath)
	set(&c.Firebase.ProjectID, o.FirebaseProjectID)
	set(&c.Firebase.CredentialsPath, o.CredentialsPath)
	set(&c.Admin.Token, o.AdminToken)
	set(&c.Logging.Level, o.LogLevel)
	if o.SessionTTL > 0 {
		c.Session.TTL = o.SessionTTL
	}
	return nil
}

func (c *AppConfig) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "tiktok-link"
	}
	if c.App.Environment == "" {
		c.App.Environment = "development"
	}
	if c.App.Port == "" {
		c.App.Port = "8080"
	}
	if c.Database.Type == "" {
		c.Database.Type = "firestore"
	}
	if c.Database.Path == "" {
		c.Database.Path = "tiktok-link.db"
	}

	tt := &c.OAuth.TikTok
	if tt.AuthURL == "" {
		tt.AuthURL = "https://www.tiktok.com/v2/auth/authorize/"
	}
	if tt.TokenURL == "" {
		tt.TokenURL = "https://open.tiktokapis.com/v2/oauth/token/"
	}
	if tt.UserInfoURL == "" {
		tt.UserInfoURL = "https://open.tiktokapis.com/v2/user/info/"
	}
	if tt.VideoListURL == "" {
		tt.VideoListURL = "https://open.tiktokapis.com/v2/video/list/"
	}
	if tt.AuthorizationParams == nil {
		tt.AuthorizationParams = map[string]string{"force_login": "1"}
	}

	if c.Session.CookieName == "" {
		c.Session.CookieName = "tiktok_link_session"
	}
	if c.Session.TTL <= 0 {
		c.Session.TTL = 10 * time.Minute
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate reports every required setting that is missing.
func (c *AppConfig) Validate() error {
	var missing []string
	check := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	check("oauth.tiktok.client_key", c.OAuth.TikTok.ClientKey)
	check("oauth.tiktok.client_secret", c.OAuth.TikTok.ClientSecret)
	check("oauth.tiktok.redirect_uri", c.OAuth.TikTok.RedirectURI)
	check("link.secure_key", c.Link.SecureKey)
	check("link.success_url", c.Link.SuccessURL)
	check("session.secret", c.Session.Secret)
	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}
	return c.ValidateStore()
}

// ValidateStore checks the database selection.
func (c *AppConfig) ValidateStore() error {
	switch c.Database.Type {
	case "firestore", "sqlite":
		return nil
	default:
		return fmt.Errorf("unsupported database type %q", c.Database.Type)
	}
}

// GetCronSchedule returns the schedule registered under name, if cron is enabled.
func (c *AppConfig) GetCronSchedule(name string) (string, bool) {
	if !c.Cron.Enabled {
		return "", false
	}
	schedule, exists := c.Cron.Schedules[name]
	return schedule, exists
}

// IsFeatureEnabled reports whether a feature flag is on. Unknown names are off.
func (c *AppConfig) IsFeatureEnabled(feature string) bool {
	switch strings.ToLower(feature) {
	case "cron":
		return c.Features.CronEnabled
	case "metrics":
		return c.Features.MetricsEnabled
	default:
		return false
	}
}

// IsProduction reports whether the app runs with production defaults.
func (c *AppConfig) IsProduction() bool {
	return c.App.Environment == "production"
}

// MaskString keeps the first four characters of a secret for log output.
func MaskString(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-4)
}
