package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
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

	"github.com/noah-isme/ebulletin-go-api/internal/database"
	"github.com/noah-isme/ebulletin-go-api/internal/handler"
	"github.com/noah-isme/ebulletin-go-api/internal/middleware"
	"github.com/noah-isme/ebulletin-go-api/internal/models"
	"github.com/noah-isme/ebulletin-go-api/internal/repository"
	"github.com/noah-isme/ebulletin-go-api/internal/service"
)

const testSecret = "handler-secret"

// syncSink persists entries inline so assertions can run right after app.Test.
type syncSink struct {
	svc service.AuditLogService
}

func (s syncSink) Record(input service.LogActionInput) {
	s.svc.LogAction(context.Background(), input)
}

type testEnv struct {
	db       *gorm.DB
	validate *validator.Validate
	logger   zerolog.Logger
	revoker  service.TokenRevoker
	audit    service.AuditLogService
	auditor  *middleware.Auditor
	guards   handler.RouteGuards
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	logger := zerolog.Nop()
	validate := validator.New(validator.WithRequiredStructEnabled())
	revoker := service.NewMemoryTokenRevoker()
	audit := service.NewAuditLogService(repository.NewAuditLogRepository(db), validate, nil, nil, logger)

	authenticated := middleware.JWTProtected(middleware.JWTConfig{Secret: testSecret, Revoker: revoker, Logger: logger})
	return &testEnv{
		db:       db,
		validate: validate,
		logger:   logger,
		revoker:  revoker,
		audit:    audit,
		auditor:  middleware.NewAuditor(syncSink{svc: audit}, logger),
		guards: handler.RouteGuards{
			Authenticated: []fiber.Handler{authenticated},
			Admin:         []fiber.Handler{authenticated, middleware.RequireRole(models.AuditUserAdmin)},
			SuperAdmin:    []fiber.Handler{middleware.RequirePosition(models.AdminPositionSuperAdmin)},
		},
	}
}

func (e *testEnv) seedAdmin(t *testing.T, email, position, first, last string) models.AdminAccount {
	t.Helper()
	hash, err := service.HashPassword("secret-pass")
	require.NoError(t, err)
	account := models.AdminAccount{Email: email, PasswordHash: hash, Position: position, IsActive: true}
	require.NoError(t, e.db.Create(&account).Error)
	require.NoError(t, e.db.Create(&models.AdminProfile{AdminID: account.AdminID, FirstName: first, LastName: last}).Error)
	return account
}

func (e *testEnv) seedStudent(t *testing.T, number, first, last string) models.StudentAccount {
	t.Helper()
	hash, err := service.HashPassword("secret-pass")
	require.NoError(t, err)
	account := models.StudentAccount{StudentNumber: number, PasswordHash: hash, IsActive: true}
	require.NoError(t, e.db.Create(&account).Error)
	require.NoError(t, e.db.Create(&models.StudentProfile{StudentID: account.StudentID, FirstName: first, LastName: last}).Error)
	return account
}

func (e *testEnv) auditRows(t *testing.T, action, table string) []models.AuditLog {
	t.Helper()
	var rows []models.AuditLog
	require.NoError(t, e.db.Where("action_type = ? AND target_table = ?", action, table).Order("log_id ASC").Find(&rows).Error)
	return rows
}

func adminToken(t *testing.T, account models.AdminAccount) string {
	t.Helper()
	return signToken(t, jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(account.AdminID), 10),
		"role":     models.AuditUserAdmin,
		"email":    account.Email,
		"position": account.Position,
		"jti":      uuid.NewString(),
	})
}

func studentToken(t *testing.T, account models.StudentAccount) string {
	t.Helper()
	return signToken(t, jwt.MapClaims{
		"sub":            strconv.FormatUint(uint64(account.StudentID), 10),
		"role":           models.AuditUserStudent,
		"student_number": account.StudentNumber,
		"jti":            uuid.NewString(),
	})
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	claims["iat"] = time.Now().Add(-time.Minute).Unix()
	claims["exp"] = time.Now().Add(time.Hour).Unix()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func doRequest(t *testing.T, app *fiber.App, method, target, token string, payload interface{}) *http.Response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, body)
	if payload != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

type envelope struct {
	Success    bool                   `json:"success"`
	Message    string                 `json:"message"`
	Data       json.RawMessage        `json:"data"`
	Pagination json.RawMessage        `json:"pagination"`
	Filters    map[string]interface{} `json:"filters"`
	Details    json.RawMessage        `json:"details"`
}
