package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DevSecretKey is the built-in session signing key. It is only accepted when
// APP_ENV=development.
const DevSecretKey = "dev-secret-change-me"

var ErrDevSecret = errors.New("AUTH_SECRET_KEY must be set outside development")

type Config struct {
	App     AppConfig
	Log     LogConfig
	DB      DBConfig
	Redis   RedisConfig
	GRPC    GRPCConfig
	HTTP    HTTPConfig
	Auth    AuthConfig
	Storage StorageConfig
	Reports ReportsConfig
}

type AppConfig struct {
	ENV string `env:"APP_ENV" envDefault:"production"`
}

type LogConfig struct {
	Level     string `env:"LOG_LEVEL" envDefault:"info"`
	Format    string `env:"LOG_FORMAT" envDefault:"text"`
	Component string `env:"LOG_COMPONENT" envDefault:"grpc_server"`
	Source    bool   `env:"LOG_SOURCE"`
}

// DBConfig selects the gorm dialector. Driver is "mysql" or "sqlite".
type DBConfig struct {
	Driver     string `env:"DB_DRIVER" envDefault:"mysql"`
	DSN        string `env:"MYSQL_DSN"`
	Host       string `env:"DB_HOST" envDefault:"localhost"`
	Port       string `env:"DB_PORT" envDefault:"3306"`
	User       string `env:"DB_USER" envDefault:"root"`
	Password   string `env:"DB_PASSWORD" envDefault:"root"`
	Name       string `env:"DB_NAME" envDefault:"hwreports"`
	SQLitePath string `env:"DB_SQLITE_PATH" envDefault:"hwreports.db"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type GRPCConfig struct {
	Host string `env:"GRPC_HOST" envDefault:"127.0.0.1"`
	Port string `env:"GRPC_PORT" envDefault:"50051"`
}

// HTTPConfig drives the side server that publishes stored objects.
type HTTPConfig struct {
	Addr           string   `env:"HTTP_ADDR" envDefault:"127.0.0.1:8080"`
	AllowedOrigins []string `env:"HTTP_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
}

type AuthConfig struct {
	Issuer        string        `env:"AUTH_ISSUER" envDefault:"hwreports"`
	SecretKey     string        `env:"AUTH_SECRET_KEY" envDefault:"dev-secret-change-me"`
	SessionTTL    time.Duration `env:"AUTH_SESSION_TTL" envDefault:"168h"`
	OAuthStateTTL time.Duration `env:"AUTH_OAUTH_STATE_TTL" envDefault:"10m"`

	GoogleClientID     string `env:"OAUTH_GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"OAUTH_GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURI  string `env:"OAUTH_GOOGLE_REDIRECT_URI"`
	GitHubClientID     string `env:"OAUTH_GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"OAUTH_GITHUB_CLIENT_SECRET"`
	GitHubRedirectURI  string `env:"OAUTH_GITHUB_REDIRECT_URI"`
}

type StorageConfig struct {
	Root           string `env:"STORAGE_ROOT" envDefault:"./data/storage"`
	PublicURL      string `env:"STORAGE_PUBLIC_URL" envDefault:"http://127.0.0.1:8080/storage"`
	MaxImageBytes  int64  `env:"STORAGE_MAX_IMAGE_BYTES" envDefault:"5242880"`
	MaxAvatarBytes int64  `env:"STORAGE_MAX_AVATAR_BYTES" envDefault:"2097152"`
}

type ReportsConfig struct {
	EditWindow      time.Duration `env:"REPORT_EDIT_WINDOW" envDefault:"2h"`
	PopularWindow   time.Duration `env:"POPULAR_WINDOW" envDefault:"720h"`
	PopularCacheTTL time.Duration `env:"POPULAR_CACHE_TTL" envDefault:"5m"`
	PageSize        int           `env:"REPORTS_PAGE_SIZE" envDefault:"20"`
	DashboardLimit  int           `env:"DASHBOARD_LIMIT" envDefault:"50"`
	HardwareOptions string        `env:"HARDWARE_OPTIONS_PATH" envDefault:"assets/hardware.yaml"`
}

// Load reads an optional .env file and parses the environment.
func Load() (*Config, error) {
	// a missing .env is fine, real env vars still apply
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.finish()
	return cfg, nil
}

// New loads the config and checks it is safe to run with.
func New() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Defaults returns the config as if no environment variable was set.
func Defaults() *Config {
	cfg := &Config{}
	_ = env.ParseWithOptions(cfg, env.Options{Environment: map[string]string{}})
	cfg.finish()
	return cfg
}

func (c *Config) finish() {
	if c.DB.DSN == "" {
		c.DB.DSN = fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name,
		)
	}
}

// Validate rejects settings that are only acceptable in development.
func (c *Config) Validate() error {
	if !c.IsDevelopment() && (c.Auth.SecretKey == "" || c.Auth.SecretKey == DevSecretKey) {
		return ErrDevSecret
	}
	return nil
}

// IsDevelopment reports whether demo data may be seeded at startup.
func (c *Config) IsDevelopment() bool {
	return c.App.ENV == "development"
}
