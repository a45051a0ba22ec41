// Package config carga la configuración del servicio: defaults, luego el
// archivo YAML (si hay) y por último variables de entorno.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App      App      `yaml:"app"`
	Log      Log      `yaml:"log"`
	Storage  Storage  `yaml:"storage"`
	Redis    Redis    `yaml:"redis"`
	Gemini   Gemini   `yaml:"gemini"`
	Auth     Auth     `yaml:"auth"`
	Profiles Profiles `yaml:"profiles"`
	PayPal   PayPal   `yaml:"paypal"`
}

type App struct {
	Name string `yaml:"name"`
	Port string `yaml:"port"`
}

type Log struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // text|json
}

// Storage: DSN gana sobre Firestore. Sin ninguno => in-memory.
type Storage struct {
	DSN                string `yaml:"dsn"`
	FirestoreProjectID string `yaml:"firestore_project_id"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type Gemini struct {
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
}

type Auth struct {
	JWTSecret   string `yaml:"jwt_secret"`
	JWTIssuer   string `yaml:"jwt_issuer"`
	JWTAudience string `yaml:"jwt_audience"`
	// Vacío => no hay admin.
	AdminEmail string `yaml:"admin_email"`
	// Código compartido de /me/redeem. Vacío => redeem deshabilitado.
	RedeemCode string `yaml:"redeem_code"`
	// Sesiones sin requests por más de esto se cierran. Negativo => nunca.
	SessionIdle time.Duration `yaml:"session_idle"`
}

type Profiles struct {
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type PayPal struct {
	BaseURL     string        `yaml:"base_url"`
	ClientID    string        `yaml:"client_id"`
	Secret      string        `yaml:"secret"`
	Timeout     time.Duration `yaml:"timeout"`
	Amount      string        `yaml:"amount"`
	Currency    string        `yaml:"currency"`
	Description string        `yaml:"description"`
	ReturnURL   string        `yaml:"return_url"`
	CancelURL   string        `yaml:"cancel_url"`
}

func (p PayPal) IsConfigured() bool {
	return strings.TrimSpace(p.ClientID) != "" && strings.TrimSpace(p.Secret) != ""
}

func Default() Config {
	return Config{
		App:      App{Name: "pet-wellness", Port: "8080"},
		Log:      Log{Level: "info", Format: "text"},
		Redis:    Redis{Prefix: "pet-wellness"},
		Gemini:   Gemini{Model: "gemini-2.5-flash"},
		Auth:     Auth{SessionIdle: 30 * time.Minute},
		Profiles: Profiles{CacheTTL: 24 * time.Hour},
		PayPal: PayPal{
			Timeout:     15 * time.Second,
			Amount:      "4.99",
			Currency:    "USD",
			Description: "Pet Wellness Pro",
			ReturnURL:   "http://localhost:8080/payments/return",
			CancelURL:   "http://localhost:8080/",
		},
	}
}

// Load arma la config. path vacío => solo defaults + env.
func Load(path string) (Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if path = strings.TrimSpace(path); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	str("APP_NAME", &cfg.App.Name)
	str("PORT", &cfg.App.Port)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("DB_DSN", &cfg.Storage.DSN)
	str("FIRESTORE_PROJECT_ID", &cfg.Storage.FirestoreProjectID)
	str("REDIS_ADDR", &cfg.Redis.Addr)
	str("REDIS_PASSWORD", &cfg.Redis.Password)
	str("REDIS_PREFIX", &cfg.Redis.Prefix)
	str("GEMINI_API_KEY", &cfg.Gemini.APIKey)
	str("GEMINI_MODEL", &cfg.Gemini.Model)
	str("JWT_SECRET", &cfg.Auth.JWTSecret)
	str("JWT_ISSUER", &cfg.Auth.JWTIssuer)
	str("JWT_AUDIENCE", &cfg.Auth.JWTAudience)
	str("ADMIN_EMAIL", &cfg.Auth.AdminEmail)
	str("REDEEM_CODE", &cfg.Auth.RedeemCode)
	str("PAYPAL_BASE_URL", &cfg.PayPal.BaseURL)
	str("PAYPAL_CLIENT_ID", &cfg.PayPal.ClientID)
	str("PAYPAL_SECRET", &cfg.PayPal.Secret)
	str("PAYPAL_AMOUNT", &cfg.PayPal.Amount)
	str("PAYPAL_CURRENCY", &cfg.PayPal.Currency)
	str("PAYPAL_RETURN_URL", &cfg.PayPal.ReturnURL)
	str("PAYPAL_CANCEL_URL", &cfg.PayPal.CancelURL)

	if v, ok := lookup("REDIS_DB"); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: REDIS_DB: %w", err)
		}
		cfg.Redis.DB = n
	}
	if v, ok := lookup("SESSION_IDLE_TIMEOUT"); ok && strings.TrimSpace(v) != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: SESSION_IDLE_TIMEOUT: %w", err)
		}
		cfg.Auth.SessionIdle = d
	}
	if v, ok := lookup("PROFILE_CACHE_TTL"); ok && strings.TrimSpace(v) != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: PROFILE_CACHE_TTL: %w", err)
		}
		cfg.Profiles.CacheTTL = d
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.App.Port) == "" {
		errs = append(errs, errors.New("app.port is required"))
	}
	if _, err := strconv.Atoi(c.App.Port); err != nil {
		errs = append(errs, fmt.Errorf("app.port must be numeric: %q", c.App.Port))
	}
	if c.Profiles.CacheTTL <= 0 {
		errs = append(errs, errors.New("profiles.cache_ttl must be positive"))
	}
	if c.Redis.DB < 0 {
		errs = append(errs, errors.New("redis.db must be >= 0"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Addr es la dirección de escucha del server.
func (c Config) Addr() string {
	return ":" + c.App.Port
}
