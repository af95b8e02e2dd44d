// config предоставляет структуру конфигурации accounts-service и функции
// загрузки из файла/переменных окружения с предсказуемым приоритетом.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Драйверы хранилища пользователей.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config — корневая конфигурация сервиса.
// Источники значений (по убыванию приоритета):
//  1. явный путь через флаг --config;
//  2. путь в переменной окружения CONFIG_PATH;
//  3. файл local.yaml из рабочей директории;
//  4. переменные окружения (cleanenv).
//
// Перед чтением переменных окружения подгружается ./.env (если файл есть).
type Config struct {
	Env      string        `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig    `yaml:"http"`
	Auth     AuthConfig    `yaml:"auth"`
	Cookies  CookieConfig  `yaml:"cookies"`
	DB       DBConfig      `yaml:"db"`
	S3       S3Config      `yaml:"s3"`
	Media    MediaConfig   `yaml:"media"`
	Redis    RedisConfig   `yaml:"redis"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
}

// TimeoutConfig — таймауты сервиса.
type TimeoutConfig struct {
	Service time.Duration `yaml:"service" env:"SERVICE_TIMEOUT" env-default:"5s"`
}

// HTTPConfig — сетевые настройки HTTP-сервера.
type HTTPConfig struct {
	Host     string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port     string `yaml:"port" env:"HTTP_PORT" env-default:"8000"`
	BasePath string `yaml:"base_path" env:"HTTP_BASE_PATH" env-default:"/api/v1"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// AuthConfig содержит параметры выпуска и валидации токенов.
// Секреты access и refresh обязаны различаться: компрометация одного
// не должна позволять подделать другой.
type AuthConfig struct {
	AccessTokenSecret  string        `yaml:"access_token_secret" env:"ACCESS_TOKEN_SECRET" env-required:"true"`
	AccessTokenTTL     time.Duration `yaml:"access_token_ttl" env:"ACCESS_TOKEN_EXPIRY" env-default:"15m"`
	RefreshTokenSecret string        `yaml:"refresh_token_secret" env:"REFRESH_TOKEN_SECRET" env-required:"true"`
	RefreshTokenTTL    time.Duration `yaml:"refresh_token_ttl" env:"REFRESH_TOKEN_EXPIRY" env-default:"240h"`
	Issuer             string        `yaml:"issuer" env:"TOKEN_ISSUER" env-default:"accounts-service"`
	Audience           []string      `yaml:"audience" env:"TOKEN_AUDIENCE" env-default:"videotube"`
	BcryptCost         int           `yaml:"bcrypt_cost" env:"BCRYPT_COST" env-default:"10"`
}

// CookieConfig — параметры cookie, через которые передаются токены.
// Cookie всегда HttpOnly и по умолчанию Secure; AllowInsecure нужен только
// для локальной отладки по http.
type CookieConfig struct {
	AllowInsecure bool   `yaml:"allow_insecure" env:"COOKIE_ALLOW_INSECURE"`
	SameSite      string `yaml:"same_site" env:"COOKIE_SAME_SITE" env-default:"lax"`
	Domain        string `yaml:"domain" env:"COOKIE_DOMAIN"`
	Path          string `yaml:"path" env:"COOKIE_PATH" env-default:"/"`
}

// Secure сообщает, нужно ли ставить флаг Secure.
func (c CookieConfig) Secure() bool {
	return !c.AllowInsecure
}

// SameSiteMode переводит строковое значение в http.SameSite.
func (c CookieConfig) SameSiteMode() http.SameSite {
	switch strings.ToLower(c.SameSite) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// DBConfig — настройки подключения к хранилищу пользователей.
type DBConfig struct {
	Driver string `yaml:"driver" env:"DB_DRIVER" env-default:"mongo"`
	URL    string `yaml:"url" env:"DATABASE_URL"`
}

// S3Config — параметры подключения к MinIO/S3 для медиа профиля.
// Пустой Endpoint отключает работу с медиа.
type S3Config struct {
	Endpoint      string        `yaml:"endpoint" env:"S3_ENDPOINT"`
	RootUser      string        `yaml:"root_user" env:"S3_ROOT_USER"`
	RootPassword  string        `yaml:"root_password" env:"S3_ROOT_PASSWORD"`
	Bucket        string        `yaml:"bucket" env:"S3_BUCKET" env-default:"media"`
	PresignTTL    time.Duration `yaml:"presign_ttl" env:"S3_PRESIGN_TTL" env-default:"15m"`
	PublicBaseURL string        `yaml:"public_base_url" env:"S3_PUBLIC_BASE_URL"`
}

// MediaConfig — ограничения на загружаемые изображения профиля.
type MediaConfig struct {
	MaxSizeBytes        int64    `yaml:"max_size_bytes" env:"MEDIA_MAX_SIZE_BYTES" env-default:"5242880"`
	AllowedContentTypes []string `yaml:"allowed_content_types" env:"MEDIA_ALLOWED_CONTENT_TYPES" env-default:"image/jpeg,image/png,image/webp"`
}

// RedisConfig — опциональный кэш публичных профилей. Пустой URL отключает кэш.
type RedisConfig struct {
	URL    string        `yaml:"url" env:"REDIS_URL"`
	Prefix string        `yaml:"prefix" env:"REDIS_PREFIX" env-default:"accounts:user:"`
	TTL    time.Duration `yaml:"ttl" env:"REDIS_TTL" env-default:"1m"`
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// После чтения файла накладываем ENV-переменные поверх значений из YAML.
func Load(path string) (*Config, error) {
	var cfg Config

	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	readFile := func(p string) (*Config, error) {
		if p == "" {
			return nil, fmt.Errorf("empty config path")
		}

		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	var (
		c   *Config
		err error
	)

	switch {
	case path != "":
		c, err = readFile(path)
	case os.Getenv("CONFIG_PATH") != "":
		c, err = readFile(os.Getenv("CONFIG_PATH"))
	default:
		if _, statErr := os.Stat("local.yaml"); statErr == nil {
			c, err = readFile("local.yaml")
			break
		}

		if envErr := cleanenv.ReadEnv(&cfg); envErr != nil {
			return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", envErr)
		}
		c = &cfg
	}

	if err != nil {
		return nil, err
	}

	if err := c.validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// loadDotEnv подгружает переменные из .env, не перетирая уже выставленные.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("dotenv %q stat failed: %w", path, err)
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}

	return nil
}

// validate — базовая валидация значений.
func (c *Config) validate() error {
	if strings.TrimSpace(c.Auth.AccessTokenSecret) == "" {
		return fmt.Errorf("auth.access_token_secret is required")
	}

	if strings.TrimSpace(c.Auth.RefreshTokenSecret) == "" {
		return fmt.Errorf("auth.refresh_token_secret is required")
	}

	if c.Auth.AccessTokenSecret == c.Auth.RefreshTokenSecret {
		return fmt.Errorf("auth: access and refresh token secrets must differ")
	}

	if c.Auth.AccessTokenTTL <= 0 {
		return fmt.Errorf("auth.access_token_ttl must be > 0")
	}

	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		return fmt.Errorf("auth.refresh_token_ttl must be greater than auth.access_token_ttl")
	}

	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("auth.bcrypt_cost must be within [%d, %d]", bcrypt.MinCost, bcrypt.MaxCost)
	}

	switch c.DB.Driver {
	case DriverMongo, DriverPostgres:
		if c.DB.URL == "" {
			return fmt.Errorf("db.url is required for driver %q", c.DB.Driver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("db.driver: unknown driver %q", c.DB.Driver)
	}

	if c.S3.Endpoint != "" && c.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is required when s3.endpoint is set")
	}

	if c.Media.MaxSizeBytes <= 0 {
		return fmt.Errorf("media.max_size_bytes must be > 0")
	}

	return nil
}
