package config

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Вспомогательные хелперы.
func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

// Полный корректный YAML с заданными значениями (не зависящими от дефолтов).
const sampleYAML = `
env: "prod"
http:
  host: "127.0.0.1"
  port: "6000"
  base_path: "/api"
auth:
  access_token_secret: "access-secret"
  access_token_ttl: "10m"
  refresh_token_secret: "refresh-secret"
  refresh_token_ttl: "240h"
  issuer: "issuerX"
  audience: ["videotube", "web"]
  bcrypt_cost: 12
cookies:
  allow_insecure: true
  same_site: "strict"
db:
  driver: "mongo"
  url: "mongodb://localhost:27017/videotube"
s3:
  endpoint: "http://localhost:9000"
  bucket: "media"
  public_base_url: "http://cdn.local/media"
timeouts:
  service: "3s"
`

// Минимально валидный YAML (только обязательные поля).
const minimalYAML = `
auth:
  access_token_secret: "min-access"
  refresh_token_secret: "min-refresh"
db:
  driver: "memory"
`

// Некорректный YAML — для проверки ошибок парсинга.
const brokenYAML = `
auth:
  access_token_secret: [unclosed
`

func TestLoad_WithExplicitPath_OK(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.yaml", sampleYAML)

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	require.Equal(t, "prod", cfg.Env)
	require.Equal(t, "127.0.0.1:6000", cfg.HTTP.Addr())
	require.Equal(t, "/api", cfg.HTTP.BasePath)

	require.Equal(t, "access-secret", cfg.Auth.AccessTokenSecret)
	require.Equal(t, "refresh-secret", cfg.Auth.RefreshTokenSecret)
	require.Equal(t, 10*time.Minute, cfg.Auth.AccessTokenTTL)
	require.Equal(t, 240*time.Hour, cfg.Auth.RefreshTokenTTL)
	require.Equal(t, "issuerX", cfg.Auth.Issuer)
	require.ElementsMatch(t, []string{"videotube", "web"}, cfg.Auth.Audience)
	require.Equal(t, 12, cfg.Auth.BcryptCost)

	require.False(t, cfg.Cookies.Secure())
	require.Equal(t, http.SameSiteStrictMode, cfg.Cookies.SameSiteMode())

	require.Equal(t, DriverMongo, cfg.DB.Driver)
	require.Equal(t, "mongodb://localhost:27017/videotube", cfg.DB.URL)
	require.Equal(t, "http://cdn.local/media", cfg.S3.PublicBaseURL)
	require.Equal(t, 3*time.Second, cfg.Timeouts.Service)
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "min.yaml", minimalYAML)

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	require.Equal(t, "local", cfg.Env)
	require.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL)
	require.Equal(t, 240*time.Hour, cfg.Auth.RefreshTokenTTL)
	require.Equal(t, 10, cfg.Auth.BcryptCost)
	require.True(t, cfg.Cookies.Secure())
	require.Equal(t, http.SameSiteLaxMode, cfg.Cookies.SameSiteMode())
	require.Equal(t, "/", cfg.Cookies.Path)
	require.ElementsMatch(t, []string{"image/jpeg", "image/png", "image/webp"}, cfg.Media.AllowedContentTypes)
	require.Empty(t, cfg.S3.Endpoint)
	require.Empty(t, cfg.Redis.URL)
}

func TestLoad_WithExplicitPath_FileDoesNotExist(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "stat failed")
}

func TestLoad_WithExplicitPath_BrokenYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "broken.yaml", brokenYAML)

	_, err := Load(cfgPath)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_WithCONFIG_PATH_OK(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "from_env_path.yaml", minimalYAML)

	t.Setenv("CONFIG_PATH", cfgPath)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "min-access", cfg.Auth.AccessTokenSecret)
	require.Equal(t, DriverMemory, cfg.DB.Driver)
}

func TestLoad_WithLocalYAML_OK(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeFile(t, ".", "local.yaml", sampleYAML)

	t.Setenv("CONFIG_PATH", "")
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "prod", cfg.Env)
}

func TestLoad_EnvOverlayOnTopOfYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.yaml", sampleYAML)

	t.Setenv("ACCESS_TOKEN_EXPIRY", "5m")

	cfg, err := Load(cfgPath)
	require.NoError(t, err)
	require.Equal(t, 5*time.Minute, cfg.Auth.AccessTokenTTL)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("CONFIG_PATH", "")

	// t.Setenv гарантирует восстановление переменных, которые выставит godotenv.
	t.Setenv("ACCESS_TOKEN_SECRET", "")
	t.Setenv("REFRESH_TOKEN_SECRET", "")
	t.Setenv("DB_DRIVER", "")
	require.NoError(t, os.Unsetenv("ACCESS_TOKEN_SECRET"))
	require.NoError(t, os.Unsetenv("REFRESH_TOKEN_SECRET"))
	require.NoError(t, os.Unsetenv("DB_DRIVER"))

	writeFile(t, ".", ".env", "ACCESS_TOKEN_SECRET=dot-access\nREFRESH_TOKEN_SECRET=dot-refresh\nDB_DRIVER=memory\n")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "dot-access", cfg.Auth.AccessTokenSecret)
	require.Equal(t, "dot-refresh", cfg.Auth.RefreshTokenSecret)
}

func TestLoad_EnvOnly_NoConfig_ReturnsDescriptiveError(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("ACCESS_TOKEN_SECRET", "")
	require.NoError(t, os.Unsetenv("ACCESS_TOKEN_SECRET"))

	_, err := Load("")
	require.Error(t, err)
	require.Contains(t, err.Error(), "config not found: provide --config, CONFIG_PATH, local.yaml or env vars")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Auth: AuthConfig{
				AccessTokenSecret:  "a",
				RefreshTokenSecret: "r",
				AccessTokenTTL:     time.Minute,
				RefreshTokenTTL:    time.Hour,
				BcryptCost:         10,
			},
			DB:    DBConfig{Driver: DriverMemory},
			Media: MediaConfig{MaxSizeBytes: 1},
		}
	}

	tcs := []struct {
		name   string
		mutate func(c *Config)
		errSub string
	}{
		{"ok", func(*Config) {}, ""},
		{"same secrets", func(c *Config) { c.Auth.RefreshTokenSecret = "a" }, "must differ"},
		{"empty access secret", func(c *Config) { c.Auth.AccessTokenSecret = " " }, "access_token_secret"},
		{"access ttl zero", func(c *Config) { c.Auth.AccessTokenTTL = 0 }, "access_token_ttl"},
		{"refresh ttl not greater", func(c *Config) { c.Auth.RefreshTokenTTL = time.Minute }, "refresh_token_ttl"},
		{"bcrypt cost too low", func(c *Config) { c.Auth.BcryptCost = 1 }, "bcrypt_cost"},
		{"unknown driver", func(c *Config) { c.DB.Driver = "sqlite" }, "unknown driver"},
		{"mongo without url", func(c *Config) { c.DB.Driver = DriverMongo }, "db.url"},
		{"s3 without bucket", func(c *Config) { c.S3.Endpoint = "http://minio:9000" }, "s3.bucket"},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			c := valid()
			tc.mutate(&c)

			err := c.validate()
			if tc.errSub == "" {
				require.NoError(t, err)
				return
			}

			require.Error(t, err)
			require.Contains(t, err.Error(), tc.errSub)
		})
	}
}

func TestMustLoad_PanicsOnError(t *testing.T) {
	require.Panics(t, func() {
		_ = MustLoad(filepath.Join(t.TempDir(), "nope.yaml"))
	})
}
