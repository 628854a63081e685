package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Server struct {
		Addr         string `yaml:"addr"`
		ReadTimeout  string `yaml:"read_timeout"`
		WriteTimeout string `yaml:"write_timeout"`
	} `yaml:"server"`

	Storage struct {
		// memory | postgres
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxOpenConns    int    `yaml:"max_open_conns"`
			MinConns        int    `yaml:"min_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		// memory | redis
		Kind  string `yaml:"kind"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL string `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	Auth struct {
		// HS256 signing secret para bearer tokens de dispositivos/operadores.
		JWTSecret string `yaml:"jwt_secret"`
		Issuer    string `yaml:"issuer"`
		// Hash bcrypt de la API key de admin (header X-Admin-API-Key).
		AdminKeyHash string `yaml:"admin_key_hash"`
	} `yaml:"auth"`

	Fraud struct {
		Weights struct {
			Age      float64 `yaml:"age"`
			Geo      float64 `yaml:"geo"`
			Velocity float64 `yaml:"velocity"`
			Trust    float64 `yaml:"trust"`
			Offense  float64 `yaml:"offense"`
		} `yaml:"weights"`
		Thresholds struct {
			Low  float64 `yaml:"low"`
			High float64 `yaml:"high"`
		} `yaml:"thresholds"`
		// Escalas de normalización de señales.
		MaxTokenAge    string  `yaml:"max_token_age"`   // edad a partir de la cual la señal satura en 1
		GeoScaleKM     float64 `yaml:"geo_scale_km"`    // distancia que satura la señal geográfica
		VelocityCap    int     `yaml:"velocity_cap"`    // validaciones por ventana que saturan la señal
		VelocityWindow string  `yaml:"velocity_window"` // ventana de conteo por actor
		OffenseCap     int     `yaml:"offense_cap"`     // anomalías previas que saturan la señal
		OffenseWindow  string  `yaml:"offense_window"`  // lookback de reincidencia
	} `yaml:"fraud"`

	Verifier struct {
		Enabled bool   `yaml:"enabled"`
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
		Timeout string `yaml:"timeout"`
		// fail_open: sin verifier se decide solo con el score (default).
		// fail_closed: sin verifier se rechaza como counterfeit.
		FailClosed bool `yaml:"fail_closed"`
	} `yaml:"verifier"`

	Rewards struct {
		AuthenticPoints   int64 `yaml:"authentic_points"`
		SuspiciousPoints  int64 `yaml:"suspicious_points"`
		CounterfeitPoints int64 `yaml:"counterfeit_points"`
		Retry             struct {
			Interval    string `yaml:"interval"`
			MaxAttempts int    `yaml:"max_attempts"`
		} `yaml:"retry"`
	} `yaml:"rewards"`

	Rate struct {
		MaxRequests int    `yaml:"max_requests"`
		Window      string `yaml:"window"`
	} `yaml:"rate"`

	Channels []Channel `yaml:"channels"`

	SMTP struct {
		Host     string   `yaml:"host"`
		Port     int      `yaml:"port"`
		User     string   `yaml:"user"`
		Pass     string   `yaml:"pass"`
		From     string   `yaml:"from"`
		AlertsTo []string `yaml:"alerts_to"`
	} `yaml:"smtp"`
}

// Channel describe un punto de distribución registrado con su trust score
// y su ubicación esperada (para la señal de distancia geográfica).
type Channel struct {
	Ref   string  `yaml:"ref"`
	Trust float64 `yaml:"trust"`
	Lat   float64 `yaml:"lat"`
	Lng   float64 `yaml:"lng"`
}

func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}

	// sane defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == "" {
		c.Server.ReadTimeout = "10s"
	}
	if c.Server.WriteTimeout == "" {
		c.Server.WriteTimeout = "30s"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Memory.DefaultTTL == "" {
		c.Cache.Memory.DefaultTTL = "2m"
	}

	// Fraud defaults: pesos de referencia y thresholds del policy.
	w := &c.Fraud.Weights
	if w.Age == 0 && w.Geo == 0 && w.Velocity == 0 && w.Trust == 0 && w.Offense == 0 {
		w.Age, w.Geo, w.Velocity, w.Trust, w.Offense = 0.15, 0.20, 0.25, 0.20, 0.20
	}
	if c.Fraud.Thresholds.Low == 0 {
		c.Fraud.Thresholds.Low = 0.35
	}
	if c.Fraud.Thresholds.High == 0 {
		c.Fraud.Thresholds.High = 0.70
	}
	if c.Fraud.MaxTokenAge == "" {
		c.Fraud.MaxTokenAge = "8760h" // 1 año
	}
	if c.Fraud.GeoScaleKM == 0 {
		c.Fraud.GeoScaleKM = 500
	}
	if c.Fraud.VelocityCap == 0 {
		c.Fraud.VelocityCap = 20
	}
	if c.Fraud.VelocityWindow == "" {
		c.Fraud.VelocityWindow = "1h"
	}
	if c.Fraud.OffenseCap == 0 {
		c.Fraud.OffenseCap = 5
	}
	if c.Fraud.OffenseWindow == "" {
		c.Fraud.OffenseWindow = "720h" // 30d
	}

	if c.Verifier.Timeout == "" {
		c.Verifier.Timeout = "2s"
	}

	if c.Rewards.AuthenticPoints == 0 {
		c.Rewards.AuthenticPoints = 10
	}
	if c.Rewards.SuspiciousPoints == 0 {
		c.Rewards.SuspiciousPoints = 5
	}
	if c.Rewards.CounterfeitPoints == 0 {
		c.Rewards.CounterfeitPoints = 25
	}
	if c.Rewards.Retry.Interval == "" {
		c.Rewards.Retry.Interval = "30s"
	}
	if c.Rewards.Retry.MaxAttempts == 0 {
		c.Rewards.Retry.MaxAttempts = 10
	}

	if c.Rate.Window == "" {
		c.Rate.Window = "1m"
	}
	if c.Rate.MaxRequests == 0 {
		c.Rate.MaxRequests = 60
	}

	// validate string durations
	for _, d := range []string{
		c.Server.ReadTimeout, c.Server.WriteTimeout,
		c.Cache.Memory.DefaultTTL, c.Fraud.MaxTokenAge,
		c.Fraud.VelocityWindow, c.Fraud.OffenseWindow,
		c.Verifier.Timeout, c.Rewards.Retry.Interval, c.Rate.Window,
	} {
		if _, err := time.ParseDuration(d); err != nil {
			return nil, fmt.Errorf("config: invalid duration %q: %w", d, err)
		}
	}
	if c.Storage.Postgres.ConnMaxLifetime != "" {
		if _, err := time.ParseDuration(c.Storage.Postgres.ConnMaxLifetime); err != nil {
			return nil, err
		}
	}

	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Dur parsea una duración ya validada por Load.
func Dur(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvFloat(key string) (float64, bool) {
	if s, ok := getEnvStr(key); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvInt("STORAGE_PG_MAX_OPEN_CONNS"); ok {
		c.Storage.Postgres.MaxOpenConns = v
	}

	// CACHE
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}

	// AUTH
	if v, ok := getEnvStr("AUTH_JWT_SECRET"); ok {
		c.Auth.JWTSecret = v
	}
	if v, ok := getEnvStr("AUTH_ADMIN_KEY_HASH"); ok {
		c.Auth.AdminKeyHash = v
	}

	// FRAUD
	if v, ok := getEnvFloat("FRAUD_THRESHOLD_LOW"); ok {
		c.Fraud.Thresholds.Low = v
	}
	if v, ok := getEnvFloat("FRAUD_THRESHOLD_HIGH"); ok {
		c.Fraud.Thresholds.High = v
	}

	// VERIFIER
	if v, ok := getEnvBool("VERIFIER_ENABLED"); ok {
		c.Verifier.Enabled = v
	}
	if v, ok := getEnvStr("VERIFIER_BASE_URL"); ok {
		c.Verifier.BaseURL = v
	}
	if v, ok := getEnvStr("VERIFIER_API_KEY"); ok {
		c.Verifier.APIKey = v
	}
	if v, ok := getEnvBool("VERIFIER_FAIL_CLOSED"); ok {
		c.Verifier.FailClosed = v
	}

	// SMTP
	if v, ok := getEnvStr("SMTP_HOST"); ok {
		c.SMTP.Host = v
	}
	if v, ok := getEnvInt("SMTP_PORT"); ok {
		c.SMTP.Port = v
	}
	if v, ok := getEnvStr("SMTP_USER"); ok {
		c.SMTP.User = v
	}
	if v, ok := getEnvStr("SMTP_PASS"); ok {
		c.SMTP.Pass = v
	}
}

func (c *Config) Validate() error {
	w := c.Fraud.Weights
	for _, f := range []float64{w.Age, w.Geo, w.Velocity, w.Trust, w.Offense} {
		if f < 0 {
			return fmt.Errorf("config: fraud weights must be non-negative")
		}
	}
	sum := w.Age + w.Geo + w.Velocity + w.Trust + w.Offense
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("config: fraud weights must sum to 1, got %v", sum)
	}
	t := c.Fraud.Thresholds
	if t.Low < 0 || t.High > 1 || t.Low >= t.High {
		return fmt.Errorf("config: thresholds must satisfy 0 <= low < high <= 1")
	}
	if c.Storage.Driver == "postgres" && c.Storage.DSN == "" {
		return fmt.Errorf("config: storage.dsn is required for the postgres driver")
	}
	for _, ch := range c.Channels {
		if ch.Trust < 0 || ch.Trust > 1 {
			return fmt.Errorf("config: channel %q trust must be in [0,1]", ch.Ref)
		}
	}
	return nil
}
