package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	JWTSecret              string
	JWTTTL                 time.Duration
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	AnnouncementCacheTTL   time.Duration
	LoginRateLimit         int
	LoginRateWindow        time.Duration
	UploadMaxSizeMB        int
	BootstrapAdmin         BootstrapAdmin
	Audit                  AuditConfig
}

// BootstrapAdmin describes the super admin created on first start. It is skipped
// when the email or password is empty.
type BootstrapAdmin struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// AuditConfig groups the audit trail settings.
type AuditConfig struct {
	QueueSize       int
	Workers         int
	Subject         string
	RetentionCron   string
	RetentionDays   int
	ArchiveBucket   string
	ArchiveRegion   string
	ArchiveEndpoint string
	ArchiveAccess   string
	ArchiveSecret   string
	ArchivePathHost bool
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// IsProduction reports whether error details should be hidden from clients.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("EBULLETIN")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "e-Bulletin API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("jwt.ttl", "24h")
	v.SetDefault("cloudinary.folder", "ebulletin/uploads")
	v.SetDefault("announcement.cache_ttl", "2m")
	v.SetDefault("login.rate_limit", 10)
	v.SetDefault("login.rate_window", "1m")
	v.SetDefault("upload.max_size_mb", 10)
	v.SetDefault("bootstrap.admin_first_name", "Super")
	v.SetDefault("bootstrap.admin_last_name", "Admin")
	v.SetDefault("audit.queue_size", 1024)
	v.SetDefault("audit.workers", 2)
	v.SetDefault("audit.subject", "ebulletin.audit")
	v.SetDefault("audit.retention_days", 365)
	v.SetDefault("audit.retention_cron", "30 2 * * *")
	v.SetDefault("audit.archive_region", "us-east-1")

	jwtTTL, err := parseDuration(v, "jwt.ttl")
	if err != nil {
		return Config{}, err
	}
	cacheTTL, err := parseDuration(v, "announcement.cache_ttl")
	if err != nil {
		return Config{}, err
	}
	rateWindow, err := parseDuration(v, "login.rate_window")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		JWTSecret:              v.GetString("jwt.secret"),
		JWTTTL:                 jwtTTL,
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		AnnouncementCacheTTL:   cacheTTL,
		LoginRateLimit:         v.GetInt("login.rate_limit"),
		LoginRateWindow:        rateWindow,
		UploadMaxSizeMB:        v.GetInt("upload.max_size_mb"),
		BootstrapAdmin: BootstrapAdmin{
			Email:     v.GetString("bootstrap.admin_email"),
			Password:  v.GetString("bootstrap.admin_password"),
			FirstName: v.GetString("bootstrap.admin_first_name"),
			LastName:  v.GetString("bootstrap.admin_last_name"),
		},
		Audit: AuditConfig{
			QueueSize:       v.GetInt("audit.queue_size"),
			Workers:         v.GetInt("audit.workers"),
			Subject:         v.GetString("audit.subject"),
			RetentionCron:   v.GetString("audit.retention_cron"),
			RetentionDays:   v.GetInt("audit.retention_days"),
			ArchiveBucket:   v.GetString("audit.archive_bucket"),
			ArchiveRegion:   v.GetString("audit.archive_region"),
			ArchiveEndpoint: v.GetString("audit.archive_endpoint"),
			ArchiveAccess:   v.GetString("audit.archive_access_key"),
			ArchiveSecret:   v.GetString("audit.archive_secret_key"),
			ArchivePathHost: v.GetBool("audit.archive_path_style"),
		},
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.Audit.QueueSize <= 0 {
		cfg.Audit.QueueSize = 1024
	}
	if cfg.Audit.Workers <= 0 {
		cfg.Audit.Workers = 2
	}
	if cfg.Audit.RetentionDays < 30 || cfg.Audit.RetentionDays > 3650 {
		return Config{}, fmt.Errorf("audit retention days must be between 30 and 3650, got %d", cfg.Audit.RetentionDays)
	}
	if cfg.LoginRateLimit <= 0 {
		cfg.LoginRateLimit = 10
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}
