package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesAuditDefaults(t *testing.T) {
	t.Setenv("EBULLETIN_JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 1024, cfg.Audit.QueueSize)
	require.Equal(t, 2, cfg.Audit.Workers)
	require.Equal(t, "ebulletin.audit", cfg.Audit.Subject)
	require.Equal(t, 365, cfg.Audit.RetentionDays)
	require.Equal(t, "30 2 * * *", cfg.Audit.RetentionCron)
	require.Equal(t, 24*time.Hour, cfg.JWTTTL)
	require.Equal(t, 10, cfg.UploadMaxSizeMB)
	require.Empty(t, cfg.BootstrapAdmin.Email)
	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.False(t, cfg.IsProduction())
}

func TestLoadReadsOverrides(t *testing.T) {
	t.Setenv("EBULLETIN_JWT_SECRET", "secret")
	t.Setenv("EBULLETIN_APP_ENV", "Production")
	t.Setenv("EBULLETIN_AUDIT_QUEUE_SIZE", "16")
	t.Setenv("EBULLETIN_AUDIT_WORKERS", "4")
	t.Setenv("EBULLETIN_AUDIT_RETENTION_CRON", "@daily")
	t.Setenv("EBULLETIN_AUDIT_ARCHIVE_BUCKET", "audit-bucket")
	t.Setenv("EBULLETIN_BOOTSTRAP_ADMIN_EMAIL", "root@school.test")

	cfg, err := Load()
	require.NoError(t, err)
	require.True(t, cfg.IsProduction())
	require.Equal(t, 16, cfg.Audit.QueueSize)
	require.Equal(t, 4, cfg.Audit.Workers)
	require.Equal(t, "@daily", cfg.Audit.RetentionCron)
	require.Equal(t, "audit-bucket", cfg.Audit.ArchiveBucket)
	require.Equal(t, "root@school.test", cfg.BootstrapAdmin.Email)
	require.Equal(t, "Super", cfg.BootstrapAdmin.FirstName)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	t.Setenv("EBULLETIN_JWT_SECRET", "")
	_, err := Load()
	require.ErrorContains(t, err, "jwt secret")

	t.Setenv("EBULLETIN_JWT_SECRET", "secret")
	t.Setenv("EBULLETIN_AUDIT_RETENTION_DAYS", "7")
	_, err = Load()
	require.ErrorContains(t, err, "retention days")

	t.Setenv("EBULLETIN_AUDIT_RETENTION_DAYS", "90")
	t.Setenv("EBULLETIN_JWT_TTL", "soon")
	_, err = Load()
	require.ErrorContains(t, err, "jwt.ttl")
}
