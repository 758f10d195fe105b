package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

type DatabaseConfig struct {
	Host        string
	Port        string
	User        string
	Password    string
	Name        string
	SSLMode     string
	AutoMigrate bool
	MaxRetries  int
}

type ShiftDefaults struct {
	Start        string
	End          string
	GraceMinutes int
	Timezone     string
}

type PunchConfig struct {
	WebCooldown time.Duration
	LockTTL     time.Duration
	DeviceRate  float64
	DeviceBurst int
	WebRate     float64
	WebBurst    int
}

type Config struct {
	AppEnv             string
	Port               string
	JWTSecret          string
	RedisAddr          string
	KafkaBroker        string
	OutboxPollInterval time.Duration
	CORSAllowedOrigins []string
	RBACPolicyPath     string
	DB                 DatabaseConfig
	Shift              ShiftDefaults
	Punch              PunchConfig
}

func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Load reads .env (when present) and the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from any env lookup function.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	r := reader{lookup: lookup}

	cfg := Config{
		AppEnv:             r.str("APP_ENV", "development"),
		Port:               r.str("PORT", "3000"),
		JWTSecret:          r.str("JWT_SECRET", ""),
		RedisAddr:          r.str("REDIS_ADDR", "localhost:6379"),
		KafkaBroker:        r.str("KAFKA_BROKER", ""),
		OutboxPollInterval: r.duration("OUTBOX_POLL_INTERVAL", 3*time.Second),
		CORSAllowedOrigins: r.list("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		RBACPolicyPath:     r.str("RBAC_POLICY_PATH", ""),
		DB: DatabaseConfig{
			Host:        r.str("DB_HOST", "localhost"),
			Port:        r.str("DB_PORT", "5432"),
			User:        r.str("DB_USER", "postgres"),
			Password:    r.str("DB_PASSWORD", ""),
			Name:        r.str("DB_NAME", "presence"),
			SSLMode:     r.str("DB_SSLMODE", "disable"),
			AutoMigrate: r.boolean("DB_AUTO_MIGRATE", false),
			MaxRetries:  r.integer("DB_MAX_RETRIES", 5),
		},
		Shift: ShiftDefaults{
			Start:        r.str("SHIFT_DEFAULT_START", "09:00"),
			End:          r.str("SHIFT_DEFAULT_END", "17:00"),
			GraceMinutes: r.integer("SHIFT_DEFAULT_GRACE_MINUTES", 15),
			Timezone:     r.str("SHIFT_DEFAULT_TIMEZONE", "UTC"),
		},
		Punch: PunchConfig{
			WebCooldown: r.duration("WEB_PUNCH_COOLDOWN", time.Minute),
			LockTTL:     r.duration("PUNCH_LOCK_TTL", 10*time.Second),
			DeviceRate:  r.float("DEVICE_RATE_LIMIT", 5),
			DeviceBurst: r.integer("DEVICE_RATE_BURST", 20),
			WebRate:     r.float("WEB_PUNCH_RATE_LIMIT", 1),
			WebBurst:    r.integer("WEB_PUNCH_RATE_BURST", 5),
		},
	}

	if r.err != nil {
		return Config{}, r.err
	}
	if cfg.Shift.GraceMinutes < 0 {
		return Config{}, fmt.Errorf("SHIFT_DEFAULT_GRACE_MINUTES must not be negative")
	}
	if _, err := time.LoadLocation(cfg.Shift.Timezone); err != nil {
		return Config{}, fmt.Errorf("SHIFT_DEFAULT_TIMEZONE: %w", err)
	}
	return cfg, nil
}

// reader keeps the first parse error so Load can report it once.
type reader struct {
	lookup func(string) (string, bool)
	err    error
}

func (r *reader) str(key, def string) string {
	v, ok := r.lookup(key)
	v = strings.TrimSpace(v)
	if !ok || v == "" {
		return def
	}
	return v
}

func (r *reader) list(key string, def []string) []string {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (r *reader) integer(key string, def int) int {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, err)
		return def
	}
	return n
}

func (r *reader) float(key string, def float64) float64 {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.fail(key, err)
		return def
	}
	return f
}

func (r *reader) boolean(key string, def bool) bool {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(key, err)
		return def
	}
	return b
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, err)
		return def
	}
	return d
}

func (r *reader) fail(key string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("invalid %s: %w", key, err)
	}
}
