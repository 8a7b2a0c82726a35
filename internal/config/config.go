package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	BackendMemory   = "memory"
	BackendSheets   = "sheets"
	BackendPostgres = "postgres"
)

type Config struct {
	Port          string `envconfig:"PORT" default:"8080"`
	Env           string `envconfig:"APP_ENV" default:"development"`
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`
	AllowedOrigin string `envconfig:"ALLOWED_ORIGIN" default:"http://localhost:5173"`
	Timezone      string `envconfig:"TIMEZONE" default:"Asia/Jakarta"`
	StoreBackend  string `envconfig:"STORE_BACKEND" default:"memory"`

	SpreadsheetID       string `envconfig:"GOOGLE_SPREADSHEET_ID"`
	ServiceAccountEmail string `envconfig:"GOOGLE_SERVICE_ACCOUNT_EMAIL"`
	PrivateKey          string `envconfig:"GOOGLE_PRIVATE_KEY"`
	SheetProducts       string `envconfig:"SHEET_MASTER_BARANG" default:"MASTER_BARANG"`
	SheetTransactions   string `envconfig:"SHEET_TRANSAKSI_LOG" default:"TRANSAKSI_LOG"`
	SheetDashboard      string `envconfig:"SHEET_DASHBOARD_WAKTU" default:"DASHBOARD_WAKTU"`
	SheetDebts          string `envconfig:"SHEET_CATATAN_HUTANG" default:"CATATAN_HUTANG"`

	DatabaseURL string `envconfig:"DATABASE_URL"`

	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	LockTTL       time.Duration `envconfig:"LOCK_TTL" default:"10s"`

	CloudinaryCloudName string `envconfig:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `envconfig:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `envconfig:"CLOUDINARY_API_SECRET"`
	CloudinaryFolder    string `envconfig:"CLOUDINARY_FOLDER" default:"pos-products"`

	AuthSecret      string        `envconfig:"AUTH_SECRET"`
	AccessTokenTTL  time.Duration `envconfig:"ACCESS_TOKEN_TTL" default:"8h"`
	AdminUsername   string        `envconfig:"ADMIN_USERNAME" default:"admin"`
	AdminPassword   string        `envconfig:"ADMIN_PASSWORD"`
	CashierUsername string        `envconfig:"CASHIER_USERNAME" default:"kasir"`
	CashierPassword string        `envconfig:"CASHIER_PASSWORD"`
	RateLimitRPS    float64       `envconfig:"RATE_LIMIT_RPS" default:"20"`
	RateLimitBurst  int           `envconfig:"RATE_LIMIT_BURST" default:"40"`
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	cfg.PrivateKey = strings.ReplaceAll(cfg.PrivateKey, `\n`, "\n")
	cfg.AuthSecret = strings.TrimSpace(cfg.AuthSecret)
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))
	return cfg, nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func (c Config) AuthEnabled() bool {
	return c.AuthSecret != ""
}

func (c Config) CloudinaryEnabled() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// Validate reports settings that make the server unable to start.
func (c Config) Validate() error {
	var errs []error

	switch c.StoreBackend {
	case BackendMemory:
	case BackendSheets:
		if c.SpreadsheetID == "" || c.ServiceAccountEmail == "" || c.PrivateKey == "" {
			errs = append(errs, errors.New("sheets backend needs GOOGLE_SPREADSHEET_ID, GOOGLE_SERVICE_ACCOUNT_EMAIL and GOOGLE_PRIVATE_KEY"))
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("postgres backend needs DATABASE_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}

	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("invalid TIMEZONE: %w", err))
	}

	if c.AuthEnabled() {
		if len(c.AuthSecret) < 32 {
			errs = append(errs, errors.New("AUTH_SECRET must be at least 32 characters"))
		}
		if c.AdminPassword == "" {
			errs = append(errs, errors.New("ADMIN_PASSWORD is required when AUTH_SECRET is set"))
		}
	}

	return errors.Join(errs...)
}

// Check reports which integration settings are present without exposing
// their values.
func (c Config) Check() map[string]bool {
	return map[string]bool{
		"GOOGLE_SPREADSHEET_ID":        c.SpreadsheetID != "",
		"GOOGLE_SERVICE_ACCOUNT_EMAIL": c.ServiceAccountEmail != "",
		"GOOGLE_PRIVATE_KEY":           c.PrivateKey != "",
		"SHEET_MASTER_BARANG":          c.SheetProducts != "",
		"SHEET_TRANSAKSI_LOG":          c.SheetTransactions != "",
		"SHEET_DASHBOARD_WAKTU":        c.SheetDashboard != "",
		"SHEET_CATATAN_HUTANG":         c.SheetDebts != "",
		"DATABASE_URL":                 c.DatabaseURL != "",
		"REDIS_ADDR":                   c.RedisAddr != "",
		"CLOUDINARY_CLOUD_NAME":        c.CloudinaryCloudName != "",
		"CLOUDINARY_API_KEY":           c.CloudinaryAPIKey != "",
		"CLOUDINARY_API_SECRET":        c.CloudinaryAPISecret != "",
		"AUTH_SECRET":                  c.AuthSecret != "",
	}
}
