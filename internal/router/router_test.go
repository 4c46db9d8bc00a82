package router_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/ebulletin-go-api/internal/config"
	"github.com/noah-isme/ebulletin-go-api/internal/database"
	"github.com/noah-isme/ebulletin-go-api/internal/handler"
	"github.com/noah-isme/ebulletin-go-api/internal/middleware"
	"github.com/noah-isme/ebulletin-go-api/internal/models"
	"github.com/noah-isme/ebulletin-go-api/internal/repository"
	"github.com/noah-isme/ebulletin-go-api/internal/router"
	"github.com/noah-isme/ebulletin-go-api/internal/service"
)

const secret = "router-secret"

type syncSink struct {
	svc service.AuditLogService
}

func (s syncSink) Record(input service.LogActionInput) {
	s.svc.LogAction(context.Background(), input)
}

func setupApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	logger := zerolog.Nop()
	validate := validator.New(validator.WithRequiredStructEnabled())
	audit := service.NewAuditLogService(repository.NewAuditLogRepository(db), validate, nil, nil, logger)
	auditor := middleware.NewAuditor(syncSink{svc: audit}, logger)

	cfg := config.Config{AppName: "e-Bulletin API", AppEnv: "test"}
	app := fiber.New()
	router.Register(app, cfg, router.Dependencies{
		Auditor:         auditor,
		JWT:             middleware.JWTConfig{Secret: secret, Revoker: service.NewMemoryTokenRevoker(), Logger: logger},
		AuditLogHandler: handler.NewAuditLogHandler(audit, validate, logger, true),
	})
	return app, db
}

func token(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	claims["iat"] = time.Now().Add(-time.Minute).Unix()
	claims["exp"] = time.Now().Add(time.Hour).Unix()
	claims["jti"] = uuid.NewString()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func get(t *testing.T, app *fiber.App, method, target, bearer string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if bearer != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+bearer)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func securityEvents(t *testing.T, db *gorm.DB) []models.AuditLog {
	t.Helper()
	var rows []models.AuditLog
	require.NoError(t, db.Where("action_type = ?", models.AuditActionSecurityEvent).Order("log_id ASC").Find(&rows).Error)
	return rows
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	app, _ := setupApp(t)

	resp := get(t, app, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "e-Bulletin API", resp.Header.Get("X-Application"))

	resp = get(t, app, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "go_goroutines")
}

func TestRejectedTokenRecordsSecurityEvent(t *testing.T) {
	app, db := setupApp(t)

	resp := get(t, app, http.MethodGet, "/api/audit-logs", "not-a-jwt")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	rows := securityEvents(t, db)
	require.Len(t, rows, 1)
	require.Equal(t, "Security event: TOKEN_REJECTED (severity: medium)", rows[0].Description)
	require.Equal(t, "security", rows[0].TargetTable)
	require.NotNil(t, rows[0].NewValues)
	require.Contains(t, *rows[0].NewValues, "invalid_token")
	require.Contains(t, *rows[0].NewValues, "/api/audit-logs")

	resp = get(t, app, http.MethodGet, "/api/audit-logs", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Len(t, securityEvents(t, db), 1)
}

func TestDeniedAccessRecordsSecurityEvent(t *testing.T) {
	app, db := setupApp(t)

	student := token(t, jwt.MapClaims{"sub": "7", "role": "student", "student_number": "2024-0007"})
	resp := get(t, app, http.MethodGet, "/api/audit-logs", student)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	admin := token(t, jwt.MapClaims{"sub": "3", "role": "admin", "email": "ops@school.test", "position": "admin"})
	resp = get(t, app, http.MethodDelete, "/api/audit-logs/cleanup?days=90", admin)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	rows := securityEvents(t, db)
	require.Len(t, rows, 2)
	require.Equal(t, "Security event: ACCESS_DENIED (severity: high)", rows[0].Description)
	require.Contains(t, *rows[0].NewValues, "role_not_allowed")
	require.Contains(t, *rows[0].NewValues, "student:7")
	require.Contains(t, *rows[1].NewValues, "position_not_allowed")
	require.True(t, strings.Contains(*rows[1].NewValues, `"method":"DELETE"`))
}

func TestAdminReachesAuditLogs(t *testing.T) {
	app, db := setupApp(t)

	admin := token(t, jwt.MapClaims{"sub": "3", "role": "admin", "email": "ops@school.test", "position": "super_admin"})
	resp := get(t, app, http.MethodGet, "/api/audit-logs/stats", admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, securityEvents(t, db))
}
