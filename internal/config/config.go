package config

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"pkujx.cn/library/pkg/database"
)

const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// AuthConfig is injected into the session guard and registration.
type AuthConfig struct {
	CookieName   string
	SessionTTL   time.Duration
	CookieSecure bool
	SameSite     http.SameSite
	// RegistrationDomains maps an email domain to the role assigned on sign-up.
	RegistrationDomains map[string]string
}

// RoleForEmail returns the role for the email's domain, or false when the
// domain is not on the allow-list.
func (a AuthConfig) RoleForEmail(email string) (string, bool) {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return "", false
	}
	role, ok := a.RegistrationDomains[strings.ToLower(email[at+1:])]
	return role, ok
}

type Config struct {
	AppEnv string
	Port   string

	DBDriver    string
	DatabaseURL string
	SQLitePath  string
	RedisURL    string

	MeiliSearchHost string
	MeiliMasterKey  string

	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string

	Auth AuthConfig

	DefaultBorrowPeriod  time.Duration
	RateLimitPost        time.Duration
	SessionPurgeInterval time.Duration
	ViewSyncInterval     time.Duration
	HTMLSettingKeys      []string
}

const defaultRegistrationDomains = "student.pkujx.cn=student,pkujx.cn=teacher,qq.com=student,163.com=student"

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv: getEnv("APP_ENV", "development"),
		Port:   getEnv("PORT", "8080"),

		DBDriver:   getEnv("DB_DRIVER", database.DriverPostgres),
		SQLitePath: getEnv("SQLITE_PATH", "data/library.db"),
		RedisURL:   os.Getenv("REDIS_URL"),

		MeiliSearchHost: os.Getenv("MEILISEARCH_HOST"),
		MeiliMasterKey:  os.Getenv("MEILI_MASTER_KEY"),

		CloudinaryCloudName:    os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:       os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret:    os.Getenv("CLOUDINARY_API_SECRET"),
		CloudinaryUploadFolder: getEnv("CLOUDINARY_UPLOAD_FOLDER", "library"),

		HTMLSettingKeys: splitList(getEnv("HTML_SETTING_KEYS", "announcement,site_notice,footer_html")),
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = database.PostgresDSN(
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_USER", "postgres"),
			os.Getenv("DB_PASS"),
			getEnv("DB_NAME", "library"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_SSLMODE", "disable"),
		)
	}

	var err error
	cfg.Auth, err = loadAuth()
	if err != nil {
		return nil, err
	}

	borrowDays, err := strconv.Atoi(getEnv("DEFAULT_BORROW_DAYS", "30"))
	if err != nil || borrowDays <= 0 {
		return nil, fmt.Errorf("invalid DEFAULT_BORROW_DAYS: must be a positive integer")
	}
	cfg.DefaultBorrowPeriod = time.Duration(borrowDays) * 24 * time.Hour

	cfg.RateLimitPost, err = time.ParseDuration(getEnv("RATE_LIMIT_POST", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_POST: %w", err)
	}
	cfg.SessionPurgeInterval, err = time.ParseDuration(getEnv("SESSION_PURGE_INTERVAL", "12h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_PURGE_INTERVAL: %w", err)
	}
	cfg.ViewSyncInterval, err = time.ParseDuration(getEnv("VIEW_SYNC_INTERVAL", "1m"))
	if err != nil {
		return nil, fmt.Errorf("invalid VIEW_SYNC_INTERVAL: %w", err)
	}

	return cfg, nil
}

func loadAuth() (AuthConfig, error) {
	ttl, err := time.ParseDuration(getEnv("SESSION_TTL", "24h"))
	if err != nil || ttl <= 0 {
		return AuthConfig{}, fmt.Errorf("invalid SESSION_TTL")
	}

	secure, err := strconv.ParseBool(getEnv("COOKIE_SECURE", "true"))
	if err != nil {
		return AuthConfig{}, fmt.Errorf("invalid COOKIE_SECURE: %w", err)
	}

	sameSite, err := ParseSameSite(getEnv("COOKIE_SAMESITE", "lax"))
	if err != nil {
		return AuthConfig{}, err
	}

	domains, err := ParseDomainRoles(getEnv("REGISTRATION_DOMAINS", defaultRegistrationDomains))
	if err != nil {
		return AuthConfig{}, err
	}

	return AuthConfig{
		CookieName:          getEnv("SESSION_COOKIE_NAME", "library_session"),
		SessionTTL:          ttl,
		CookieSecure:        secure,
		SameSite:            sameSite,
		RegistrationDomains: domains,
	}, nil
}

// ParseDomainRoles parses "domain=role,domain=role".
func ParseDomainRoles(s string) (map[string]string, error) {
	out := make(map[string]string)
	for _, pair := range splitList(s) {
		domain, role, ok := strings.Cut(pair, "=")
		domain = strings.ToLower(strings.TrimSpace(domain))
		role = strings.TrimSpace(role)
		if !ok || domain == "" {
			return nil, fmt.Errorf("invalid REGISTRATION_DOMAINS entry %q", pair)
		}
		switch role {
		case RoleStudent, RoleTeacher, RoleAdmin:
		default:
			return nil, fmt.Errorf("invalid role %q for domain %s", role, domain)
		}
		out[domain] = role
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("REGISTRATION_DOMAINS must not be empty")
	}
	return out, nil
}

func ParseSameSite(s string) (http.SameSite, error) {
	switch strings.ToLower(s) {
	case "lax":
		return http.SameSiteLaxMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	default:
		return 0, fmt.Errorf("invalid COOKIE_SAMESITE %q", s)
	}
}

func (c *Config) DatabaseOptions() database.Options {
	return database.Options{
		Driver:     c.DBDriver,
		DSN:        c.DatabaseURL,
		SQLitePath: c.SQLitePath,
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
